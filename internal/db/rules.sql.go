package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const ruleColumns = `id, item_code, name, description, firing_operator, firing_threshold, effect_type, effect_percentage::text, created_at, updated_at`

func scanRule(row interface{ Scan(...any) error }) (Rule, error) {
	var (
		i      Rule
		factor pgtype.Text
	)
	err := row.Scan(&i.ID, &i.ItemCode, &i.Name, &i.Description, &i.FiringOperator, &i.FiringThreshold, &i.EffectType, &factor, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return Rule{}, err
	}
	if factor.Valid {
		d, err := decimal.NewFromString(factor.String)
		if err != nil {
			return Rule{}, err
		}
		i.EffectPercentage = decimal.NullDecimal{Decimal: d, Valid: true}
	}
	return i, nil
}

func nullDecimalArg(d decimal.NullDecimal) pgtype.Text {
	if !d.Valid {
		return pgtype.Text{}
	}
	return pgtype.Text{String: d.Decimal.String(), Valid: true}
}

const createRule = `INSERT INTO rules (item_code, name, description, firing_operator, firing_threshold, effect_type, effect_percentage)
VALUES ($1, $2, $3, $4, $5, $6, $7::text::numeric)
RETURNING ` + ruleColumns

type CreateRuleParams struct {
	ItemCode         string
	Name             string
	Description      string
	FiringOperator   string
	FiringThreshold  int32
	EffectType       string
	EffectPercentage decimal.NullDecimal
}

func (q *Queries) CreateRule(ctx context.Context, arg CreateRuleParams) (Rule, error) {
	row := q.db.QueryRow(ctx, createRule,
		arg.ItemCode,
		arg.Name,
		arg.Description,
		arg.FiringOperator,
		arg.FiringThreshold,
		arg.EffectType,
		nullDecimalArg(arg.EffectPercentage),
	)
	return scanRule(row)
}

const getRuleByID = `SELECT ` + ruleColumns + ` FROM rules WHERE id = $1`

func (q *Queries) GetRuleByID(ctx context.Context, id pgtype.UUID) (Rule, error) {
	return scanRule(q.db.QueryRow(ctx, getRuleByID, id))
}

// Declaration order is insertion order.
const listRules = `SELECT ` + ruleColumns + ` FROM rules ORDER BY seq`

func (q *Queries) ListRules(ctx context.Context) ([]Rule, error) {
	rows, err := q.db.Query(ctx, listRules)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Rule
	for rows.Next() {
		i, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateRule = `UPDATE rules SET
    item_code = $2,
    name = $3,
    description = $4,
    firing_operator = $5,
    firing_threshold = $6,
    effect_type = $7,
    effect_percentage = $8::text::numeric,
    updated_at = now()
WHERE id = $1
RETURNING ` + ruleColumns

type UpdateRuleParams struct {
	ID               pgtype.UUID
	ItemCode         string
	Name             string
	Description      string
	FiringOperator   string
	FiringThreshold  int32
	EffectType       string
	EffectPercentage decimal.NullDecimal
}

func (q *Queries) UpdateRule(ctx context.Context, arg UpdateRuleParams) (Rule, error) {
	row := q.db.QueryRow(ctx, updateRule,
		arg.ID,
		arg.ItemCode,
		arg.Name,
		arg.Description,
		arg.FiringOperator,
		arg.FiringThreshold,
		arg.EffectType,
		nullDecimalArg(arg.EffectPercentage),
	)
	return scanRule(row)
}

const deleteRule = `DELETE FROM rules WHERE id = $1`

func (q *Queries) DeleteRule(ctx context.Context, id pgtype.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteRule, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

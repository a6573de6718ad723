package rules

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-offers/internal/common"
	"github.com/noah-isme/backend-offers/internal/db"
	"github.com/noah-isme/backend-offers/internal/pricing"
)

type queries interface {
	CreateRule(ctx context.Context, arg db.CreateRuleParams) (db.Rule, error)
	GetRuleByID(ctx context.Context, id pgtype.UUID) (db.Rule, error)
	ListRules(ctx context.Context) ([]db.Rule, error)
	UpdateRule(ctx context.Context, arg db.UpdateRuleParams) (db.Rule, error)
	DeleteRule(ctx context.Context, id pgtype.UUID) (int64, error)
}

// Rule is the API representation of an offer rule.
type Rule struct {
	ID               string           `json:"id"`
	ItemCode         string           `json:"item_code"`
	Name             string           `json:"name"`
	Description      string           `json:"description"`
	FiringOperator   string           `json:"firing_operator"`
	FiringThreshold  int              `json:"firing_threshold"`
	EffectType       string           `json:"effect_type"`
	EffectPercentage *decimal.Decimal `json:"effect_percentage"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Input is the create/update payload for a rule.
type Input struct {
	ItemCode         string           `json:"item_code" validate:"required,max=32"`
	Name             string           `json:"name" validate:"required,max=120"`
	Description      string           `json:"description" validate:"max=1000"`
	FiringOperator   string           `json:"firing_operator" validate:"required,oneof=>= > == < <="`
	FiringThreshold  *int             `json:"firing_threshold" validate:"required,min=0,max=2147483647"`
	EffectType       string           `json:"effect_type" validate:"required,oneof=update_prices one_free"`
	EffectPercentage *decimal.Decimal `json:"effect_percentage" validate:"required_if=EffectType update_prices"`
}

// Service manages the persisted rule set.
type Service struct {
	queries  queries
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(q queries) *Service {
	return &Service{queries: q, validate: validator.New(validator.WithRequiredStructEnabled())}
}

// List returns every rule in declaration order.
func (s *Service) List(ctx context.Context) ([]Rule, error) {
	rows, err := s.queries.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	out := make([]Rule, 0, len(rows))
	for _, row := range rows {
		out = append(out, toRule(row))
	}
	return out, nil
}

// Get returns one rule.
func (s *Service) Get(ctx context.Context, id string) (Rule, error) {
	uid, err := db.ToUUID(id)
	if err != nil {
		return Rule{}, errRuleNotFound()
	}
	row, err := s.queries.GetRuleByID(ctx, uid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rule{}, errRuleNotFound()
		}
		return Rule{}, fmt.Errorf("get rule: %w", err)
	}
	return toRule(row), nil
}

// Create validates and appends a rule to the end of the declaration order.
func (s *Service) Create(ctx context.Context, in Input) (Rule, error) {
	if err := s.check(&in); err != nil {
		return Rule{}, err
	}
	row, err := s.queries.CreateRule(ctx, db.CreateRuleParams{
		ItemCode:         in.ItemCode,
		Name:             in.Name,
		Description:      in.Description,
		FiringOperator:   in.FiringOperator,
		FiringThreshold:  int32(*in.FiringThreshold),
		EffectType:       in.EffectType,
		EffectPercentage: factorArg(in),
	})
	if err != nil {
		return Rule{}, fmt.Errorf("create rule: %w", err)
	}
	return toRule(row), nil
}

// Update replaces a rule in place; its position in the declaration order is kept.
func (s *Service) Update(ctx context.Context, id string, in Input) (Rule, error) {
	uid, err := db.ToUUID(id)
	if err != nil {
		return Rule{}, errRuleNotFound()
	}
	if err := s.check(&in); err != nil {
		return Rule{}, err
	}
	row, err := s.queries.UpdateRule(ctx, db.UpdateRuleParams{
		ID:               uid,
		ItemCode:         in.ItemCode,
		Name:             in.Name,
		Description:      in.Description,
		FiringOperator:   in.FiringOperator,
		FiringThreshold:  int32(*in.FiringThreshold),
		EffectType:       in.EffectType,
		EffectPercentage: factorArg(in),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rule{}, errRuleNotFound()
		}
		return Rule{}, fmt.Errorf("update rule: %w", err)
	}
	return toRule(row), nil
}

// Delete removes a rule.
func (s *Service) Delete(ctx context.Context, id string) error {
	uid, err := db.ToUUID(id)
	if err != nil {
		return errRuleNotFound()
	}
	n, err := s.queries.DeleteRule(ctx, uid)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if n == 0 {
		return errRuleNotFound()
	}
	return nil
}

func (s *Service) check(in *Input) error {
	in.ItemCode = strings.ToUpper(strings.TrimSpace(in.ItemCode))
	in.Name = strings.TrimSpace(in.Name)
	in.FiringOperator = strings.TrimSpace(in.FiringOperator)
	in.EffectType = strings.TrimSpace(in.EffectType)
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			return &common.AppError{Code: "VALIDATION_ERROR", Message: "invalid rule payload", HTTPStatus: http.StatusBadRequest, Err: err, Details: fields}
		}
		return common.NewAppError("VALIDATION_ERROR", "invalid rule payload", http.StatusBadRequest, err)
	}
	return checkFactor(*in)
}

// Factors are stored as NUMERIC(12, 7).
var maxFactor = decimal.New(1, 5)

const factorScale = 7

func checkFactor(in Input) error {
	if in.EffectType != string(pricing.EffectUpdatePrices) || in.EffectPercentage == nil {
		return nil
	}
	f := *in.EffectPercentage
	tag := ""
	switch {
	case !f.Equal(f.Round(factorScale)):
		tag = "scale"
	case f.Abs().GreaterThanOrEqual(maxFactor):
		tag = "max"
	default:
		return nil
	}
	return &common.AppError{
		Code:       "VALIDATION_ERROR",
		Message:    "invalid rule payload",
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]string{"EffectPercentage": tag},
	}
}

func factorArg(in Input) decimal.NullDecimal {
	if in.EffectType != string(pricing.EffectUpdatePrices) || in.EffectPercentage == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *in.EffectPercentage, Valid: true}
}

func errRuleNotFound() error {
	return common.NewAppError("RULE_NOT_FOUND", "rule not found", http.StatusNotFound, nil)
}

func toRule(row db.Rule) Rule {
	r := Rule{
		ID:              db.UUIDString(row.ID),
		ItemCode:        row.ItemCode,
		Name:            row.Name,
		Description:     row.Description,
		FiringOperator:  row.FiringOperator,
		FiringThreshold: int(row.FiringThreshold),
		EffectType:      row.EffectType,
		CreatedAt:       row.CreatedAt.Time,
		UpdatedAt:       row.UpdatedAt.Time,
	}
	if row.EffectPercentage.Valid {
		d := row.EffectPercentage.Decimal
		r.EffectPercentage = &d
	}
	return r
}

// toEngineRule converts a stored rule. Operator and effect strings pass through
// unchanged so the engine can reject anything unsupported.
func toEngineRule(row db.Rule) pricing.Rule {
	r := pricing.Rule{
		ID:              db.UUIDString(row.ID),
		Name:            row.Name,
		Description:     row.Description,
		ItemCode:        row.ItemCode,
		FiringOperator:  pricing.Comparator(row.FiringOperator),
		FiringThreshold: int(row.FiringThreshold),
		EffectType:      pricing.EffectType(row.EffectType),
	}
	if row.EffectPercentage.Valid {
		r.EffectFactor = row.EffectPercentage.Decimal
	}
	return r
}

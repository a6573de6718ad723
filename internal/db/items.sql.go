package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const itemColumns = `id, code, name, price::text, created_at`

const createItem = `INSERT INTO items (code, name, price)
VALUES ($1, $2, $3::text::numeric)
RETURNING ` + itemColumns

type CreateItemParams struct {
	Code  string
	Name  string
	Price decimal.Decimal
}

func (q *Queries) CreateItem(ctx context.Context, arg CreateItemParams) (Item, error) {
	row := q.db.QueryRow(ctx, createItem, arg.Code, arg.Name, arg.Price.String())
	var i Item
	err := row.Scan(&i.ID, &i.Code, &i.Name, &i.Price, &i.CreatedAt)
	return i, err
}

const getItemByID = `SELECT ` + itemColumns + ` FROM items WHERE id = $1`

func (q *Queries) GetItemByID(ctx context.Context, id pgtype.UUID) (Item, error) {
	row := q.db.QueryRow(ctx, getItemByID, id)
	var i Item
	err := row.Scan(&i.ID, &i.Code, &i.Name, &i.Price, &i.CreatedAt)
	return i, err
}

const getItemByCode = `SELECT ` + itemColumns + ` FROM items WHERE code = $1 ORDER BY created_at, id LIMIT 1`

func (q *Queries) GetItemByCode(ctx context.Context, code string) (Item, error) {
	row := q.db.QueryRow(ctx, getItemByCode, code)
	var i Item
	err := row.Scan(&i.ID, &i.Code, &i.Name, &i.Price, &i.CreatedAt)
	return i, err
}

const listItems = `SELECT ` + itemColumns + ` FROM items
ORDER BY created_at, id
LIMIT $1 OFFSET $2`

func (q *Queries) ListItems(ctx context.Context, arg ListParams) ([]Item, error) {
	rows, err := q.db.Query(ctx, listItems, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var i Item
		if err := rows.Scan(&i.ID, &i.Code, &i.Name, &i.Price, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countItems = `SELECT count(*) FROM items`

func (q *Queries) CountItems(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countItems).Scan(&count)
	return count, err
}

package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const cartColumns = `id, user_id, total_price::text, created_at, updated_at`

const createCart = `INSERT INTO carts (user_id) VALUES ($1) RETURNING ` + cartColumns

func (q *Queries) CreateCart(ctx context.Context, userID pgtype.UUID) (Cart, error) {
	row := q.db.QueryRow(ctx, createCart, userID)
	var i Cart
	err := row.Scan(&i.ID, &i.UserID, &i.TotalPrice, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const getCartByID = `SELECT ` + cartColumns + ` FROM carts WHERE id = $1`

func (q *Queries) GetCartByID(ctx context.Context, id pgtype.UUID) (Cart, error) {
	row := q.db.QueryRow(ctx, getCartByID, id)
	var i Cart
	err := row.Scan(&i.ID, &i.UserID, &i.TotalPrice, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const listCarts = `SELECT ` + cartColumns + ` FROM carts
ORDER BY created_at, id
LIMIT $1 OFFSET $2`

func (q *Queries) ListCarts(ctx context.Context, arg ListParams) ([]Cart, error) {
	rows, err := q.db.Query(ctx, listCarts, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Cart
	for rows.Next() {
		var i Cart
		if err := rows.Scan(&i.ID, &i.UserID, &i.TotalPrice, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countCarts = `SELECT count(*) FROM carts`

func (q *Queries) CountCarts(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countCarts).Scan(&count)
	return count, err
}

const updateCartTotal = `UPDATE carts SET total_price = $2::text::numeric, updated_at = now() WHERE id = $1`

type UpdateCartTotalParams struct {
	ID         pgtype.UUID
	TotalPrice decimal.Decimal
}

func (q *Queries) UpdateCartTotal(ctx context.Context, arg UpdateCartTotalParams) error {
	_, err := q.db.Exec(ctx, updateCartTotal, arg.ID, arg.TotalPrice.StringFixed(2))
	return err
}

const listCartLines = `SELECT ci.id, i.id, i.code, i.name, i.price::text
FROM cart_items ci
JOIN items i ON i.id = ci.item_id
WHERE ci.cart_id = $1
ORDER BY ci.seq`

// CartLine is one cart_items row joined with its item.
type CartLine struct {
	CartItemID pgtype.UUID     `json:"cart_item_id"`
	ItemID     pgtype.UUID     `json:"item_id"`
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
}

func (q *Queries) ListCartLines(ctx context.Context, cartID pgtype.UUID) ([]CartLine, error) {
	rows, err := q.db.Query(ctx, listCartLines, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CartLine
	for rows.Next() {
		var i CartLine
		if err := rows.Scan(&i.CartItemID, &i.ItemID, &i.Code, &i.Name, &i.Price); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const addCartItem = `INSERT INTO cart_items (cart_id, item_id) VALUES ($1, $2)
RETURNING id, cart_id, item_id, created_at`

type AddCartItemParams struct {
	CartID pgtype.UUID
	ItemID pgtype.UUID
}

func (q *Queries) AddCartItem(ctx context.Context, arg AddCartItemParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, addCartItem, arg.CartID, arg.ItemID)
	var i CartItem
	err := row.Scan(&i.ID, &i.CartID, &i.ItemID, &i.CreatedAt)
	return i, err
}

const removeCartItem = `DELETE FROM cart_items
WHERE id = (
    SELECT id FROM cart_items
    WHERE cart_id = $1 AND item_id = $2
    ORDER BY seq DESC
    LIMIT 1
)`

type RemoveCartItemParams struct {
	CartID pgtype.UUID
	ItemID pgtype.UUID
}

// RemoveCartItem deletes one instance of the item from the cart and reports how many rows went.
func (q *Queries) RemoveCartItem(ctx context.Context, arg RemoveCartItemParams) (int64, error) {
	tag, err := q.db.Exec(ctx, removeCartItem, arg.CartID, arg.ItemID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

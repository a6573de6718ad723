package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// Querier lists every statement so services can depend on an interface and tests can stub it.
type Querier interface {
	CreateUser(ctx context.Context, arg CreateUserParams) (User, error)
	GetUserByID(ctx context.Context, id pgtype.UUID) (User, error)
	ListUsers(ctx context.Context, arg ListParams) ([]User, error)
	CountUsers(ctx context.Context) (int64, error)

	CreateItem(ctx context.Context, arg CreateItemParams) (Item, error)
	GetItemByID(ctx context.Context, id pgtype.UUID) (Item, error)
	GetItemByCode(ctx context.Context, code string) (Item, error)
	ListItems(ctx context.Context, arg ListParams) ([]Item, error)
	CountItems(ctx context.Context) (int64, error)

	CreateCart(ctx context.Context, userID pgtype.UUID) (Cart, error)
	GetCartByID(ctx context.Context, id pgtype.UUID) (Cart, error)
	ListCarts(ctx context.Context, arg ListParams) ([]Cart, error)
	CountCarts(ctx context.Context) (int64, error)
	UpdateCartTotal(ctx context.Context, arg UpdateCartTotalParams) error
	ListCartLines(ctx context.Context, cartID pgtype.UUID) ([]CartLine, error)
	AddCartItem(ctx context.Context, arg AddCartItemParams) (CartItem, error)
	RemoveCartItem(ctx context.Context, arg RemoveCartItemParams) (int64, error)

	CreateRule(ctx context.Context, arg CreateRuleParams) (Rule, error)
	GetRuleByID(ctx context.Context, id pgtype.UUID) (Rule, error)
	ListRules(ctx context.Context) ([]Rule, error)
	UpdateRule(ctx context.Context, arg UpdateRuleParams) (Rule, error)
	DeleteRule(ctx context.Context, id pgtype.UUID) (int64, error)
}

var _ Querier = (*Queries)(nil)

// ListParams carries pagination for list statements.
type ListParams struct {
	Limit  int32
	Offset int32
}

package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-offers/internal/common"
	"github.com/noah-isme/backend-offers/internal/db"
)

type queries interface {
	CreateCart(ctx context.Context, userID pgtype.UUID) (db.Cart, error)
	GetCartByID(ctx context.Context, id pgtype.UUID) (db.Cart, error)
	ListCarts(ctx context.Context, arg db.ListParams) ([]db.Cart, error)
	CountCarts(ctx context.Context) (int64, error)
	ListCartLines(ctx context.Context, cartID pgtype.UUID) ([]db.CartLine, error)
	AddCartItem(ctx context.Context, arg db.AddCartItemParams) (db.CartItem, error)
	RemoveCartItem(ctx context.Context, arg db.RemoveCartItemParams) (int64, error)
}

// Enqueuer schedules an asynchronous reprice of a cart.
type Enqueuer interface {
	EnqueueReprice(ctx context.Context, cartID string) error
}

// Cart is the API representation of a cart. TotalPrice is the last applied
// total and is stale until offers are applied again.
type Cart struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Lines      []Line          `json:"items,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Line is one purchased item instance.
type Line struct {
	ID     string          `json:"id"`
	ItemID string          `json:"item_id"`
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}

// Service manages carts and their lines.
type Service struct {
	queries  queries
	enqueuer Enqueuer
	logger   zerolog.Logger
}

// ServiceConfig groups Service dependencies. Enqueuer is optional.
type ServiceConfig struct {
	Queries  queries
	Enqueuer Enqueuer
	Logger   zerolog.Logger
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{queries: cfg.Queries, enqueuer: cfg.Enqueuer, logger: cfg.Logger}
}

// Create opens an empty cart for the user.
func (s *Service) Create(ctx context.Context, userID string) (Cart, error) {
	uid, err := db.ToUUID(userID)
	if err != nil {
		return Cart{}, common.NewAppError("VALIDATION_ERROR", "user_id must be a uuid", http.StatusBadRequest, err)
	}
	row, err := s.queries.CreateCart(ctx, uid)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return Cart{}, common.NewAppError("USER_NOT_FOUND", "user not found", http.StatusNotFound, nil)
		}
		return Cart{}, fmt.Errorf("create cart: %w", err)
	}
	return toCart(row, nil), nil
}

// Get returns the cart with its lines.
func (s *Service) Get(ctx context.Context, id string) (Cart, error) {
	uid, row, err := s.load(ctx, id)
	if err != nil {
		return Cart{}, err
	}
	lines, err := s.queries.ListCartLines(ctx, uid)
	if err != nil {
		return Cart{}, fmt.Errorf("list cart lines: %w", err)
	}
	return toCart(row, lines), nil
}

// List returns a page of carts, without lines, and the total count.
func (s *Service) List(ctx context.Context, req common.PageRequest) ([]Cart, int64, error) {
	req = req.Clamp()
	total, err := s.queries.CountCarts(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count carts: %w", err)
	}
	rows, err := s.queries.ListCarts(ctx, db.ListParams{Limit: int32(req.PerPage), Offset: int32(req.Offset())})
	if err != nil {
		return nil, 0, fmt.Errorf("list carts: %w", err)
	}
	out := make([]Cart, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCart(row, nil))
	}
	return out, total, nil
}

// AddItem appends one instance of the item to the cart.
func (s *Service) AddItem(ctx context.Context, cartID, itemID string) (Cart, error) {
	uid, _, err := s.load(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	iid, err := db.ToUUID(itemID)
	if err != nil {
		return Cart{}, common.NewAppError("VALIDATION_ERROR", "item_id must be a uuid", http.StatusBadRequest, err)
	}
	if _, err := s.queries.AddCartItem(ctx, db.AddCartItemParams{CartID: uid, ItemID: iid}); err != nil {
		if db.IsForeignKeyViolation(err) {
			return Cart{}, common.NewAppError("ITEM_NOT_FOUND", "item not found", http.StatusNotFound, nil)
		}
		return Cart{}, fmt.Errorf("add cart item: %w", err)
	}
	s.reprice(ctx, cartID)
	return s.Get(ctx, cartID)
}

// RemoveItem drops one instance of the item from the cart.
func (s *Service) RemoveItem(ctx context.Context, cartID, itemID string) (Cart, error) {
	uid, _, err := s.load(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	iid, err := db.ToUUID(itemID)
	if err != nil {
		return Cart{}, errLineNotFound()
	}
	n, err := s.queries.RemoveCartItem(ctx, db.RemoveCartItemParams{CartID: uid, ItemID: iid})
	if err != nil {
		return Cart{}, fmt.Errorf("remove cart item: %w", err)
	}
	if n == 0 {
		return Cart{}, errLineNotFound()
	}
	s.reprice(ctx, cartID)
	return s.Get(ctx, cartID)
}

func (s *Service) load(ctx context.Context, id string) (pgtype.UUID, db.Cart, error) {
	uid, err := db.ToUUID(id)
	if err != nil {
		return pgtype.UUID{}, db.Cart{}, errCartNotFound()
	}
	row, err := s.queries.GetCartByID(ctx, uid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgtype.UUID{}, db.Cart{}, errCartNotFound()
		}
		return pgtype.UUID{}, db.Cart{}, fmt.Errorf("get cart: %w", err)
	}
	return uid, row, nil
}

// reprice is best effort. A failed enqueue leaves the stored total stale
// until the next apply.
func (s *Service) reprice(ctx context.Context, cartID string) {
	if s.enqueuer == nil {
		return
	}
	if err := s.enqueuer.EnqueueReprice(ctx, cartID); err != nil {
		s.logger.Warn().Err(err).Str("cart_id", cartID).Msg("enqueue cart reprice failed")
	}
}

func errCartNotFound() error {
	return common.NewAppError("CART_NOT_FOUND", "cart not found", http.StatusNotFound, nil)
}

func errLineNotFound() error {
	return common.NewAppError("CART_ITEM_NOT_FOUND", "item is not in the cart", http.StatusNotFound, nil)
}

func toCart(row db.Cart, lines []db.CartLine) Cart {
	c := Cart{
		ID:         db.UUIDString(row.ID),
		UserID:     db.UUIDString(row.UserID),
		TotalPrice: row.TotalPrice,
		CreatedAt:  row.CreatedAt.Time,
		UpdatedAt:  row.UpdatedAt.Time,
	}
	if lines != nil {
		c.Lines = make([]Line, 0, len(lines))
	}
	for _, l := range lines {
		c.Lines = append(c.Lines, Line{
			ID:     db.UUIDString(l.CartItemID),
			ItemID: db.UUIDString(l.ItemID),
			Code:   l.Code,
			Name:   l.Name,
			Price:  l.Price,
		})
	}
	return c
}

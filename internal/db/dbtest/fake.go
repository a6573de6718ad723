// Package dbtest provides an in-memory db.Querier for service tests.
package dbtest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-offers/internal/db"
)

// Fake mimics the Postgres schema closely enough for service tests: ordering
// follows insertion, missing rows return pgx.ErrNoRows, and dangling
// references return a foreign-key PgError.
type Fake struct {
	mu sync.Mutex

	users     []db.User
	items     []db.Item
	carts     []db.Cart
	cartItems []db.CartItem
	rules     []db.Rule

	// Err, when set, is returned by every method.
	Err error
	// Commits counts successful InTx calls.
	Commits int
}

var _ db.Querier = (*Fake)(nil)

// New returns an empty Fake.
func New() *Fake {
	return &Fake{}
}

// InTx runs fn against the fake; there is no rollback.
func (f *Fake) InTx(_ context.Context, fn func(db.Querier) error) error {
	if err := fn(f); err != nil {
		return err
	}
	f.mu.Lock()
	f.Commits++
	f.mu.Unlock()
	return nil
}

func newID() pgtype.UUID {
	return pgtype.UUID{Bytes: uuid.New(), Valid: true}
}

func now() pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: time.Now(), Valid: true}
}

func fkViolation() error {
	return &pgconn.PgError{Code: db.ForeignKeyViolation, Message: "foreign key violation"}
}

func page[T any](rows []T, arg db.ListParams) []T {
	start := int(arg.Offset)
	if start >= len(rows) {
		return nil
	}
	end := start + int(arg.Limit)
	if end > len(rows) {
		end = len(rows)
	}
	out := make([]T, end-start)
	copy(out, rows[start:end])
	return out
}

func (f *Fake) CreateUser(_ context.Context, arg db.CreateUserParams) (db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return db.User{}, f.Err
	}
	u := db.User{ID: newID(), Name: arg.Name, Fullname: arg.Fullname, Nickname: arg.Nickname, CreatedAt: now()}
	f.users = append(f.users, u)
	return u, nil
}

func (f *Fake) GetUserByID(_ context.Context, id pgtype.UUID) (db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return db.User{}, f.Err
	}
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return db.User{}, pgx.ErrNoRows
}

func (f *Fake) ListUsers(_ context.Context, arg db.ListParams) ([]db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return page(f.users, arg), nil
}

func (f *Fake) CountUsers(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.users)), f.Err
}

func (f *Fake) CreateItem(_ context.Context, arg db.CreateItemParams) (db.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return db.Item{}, f.Err
	}
	it := db.Item{ID: newID(), Code: arg.Code, Name: arg.Name, Price: arg.Price, CreatedAt: now()}
	f.items = append(f.items, it)
	return it, nil
}

func (f *Fake) GetItemByID(_ context.Context, id pgtype.UUID) (db.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return db.Item{}, f.Err
	}
	return f.itemLocked(id)
}

func (f *Fake) itemLocked(id pgtype.UUID) (db.Item, error) {
	for _, it := range f.items {
		if it.ID == id {
			return it, nil
		}
	}
	return db.Item{}, pgx.ErrNoRows
}

func (f *Fake) GetItemByCode(_ context.Context, code string) (db.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return db.Item{}, f.Err
	}
	for _, it := range f.items {
		if it.Code == code {
			return it, nil
		}
	}
	return db.Item{}, pgx.ErrNoRows
}

func (f *Fake) ListItems(_ context.Context, arg db.ListParams) ([]db.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return page(f.items, arg), nil
}

func (f *Fake) CountItems(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.items)), f.Err
}

func (f *Fake) CreateCart(_ context.Context, userID pgtype.UUID) (db.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return db.Cart{}, f.Err
	}
	found := false
	for _, u := range f.users {
		if u.ID == userID {
			found = true
			break
		}
	}
	if !found {
		return db.Cart{}, fkViolation()
	}
	c := db.Cart{ID: newID(), UserID: userID, CreatedAt: now(), UpdatedAt: now()}
	f.carts = append(f.carts, c)
	return c, nil
}

func (f *Fake) GetCartByID(_ context.Context, id pgtype.UUID) (db.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return db.Cart{}, f.Err
	}
	for _, c := range f.carts {
		if c.ID == id {
			return c, nil
		}
	}
	return db.Cart{}, pgx.ErrNoRows
}

func (f *Fake) ListCarts(_ context.Context, arg db.ListParams) ([]db.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return page(f.carts, arg), nil
}

func (f *Fake) CountCarts(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.carts)), f.Err
}

func (f *Fake) UpdateCartTotal(_ context.Context, arg db.UpdateCartTotalParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	for i := range f.carts {
		if f.carts[i].ID == arg.ID {
			f.carts[i].TotalPrice = arg.TotalPrice.Round(2)
			f.carts[i].UpdatedAt = now()
		}
	}
	return nil
}

func (f *Fake) ListCartLines(_ context.Context, cartID pgtype.UUID) ([]db.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var out []db.CartLine
	for _, ci := range f.cartItems {
		if ci.CartID != cartID {
			continue
		}
		it, err := f.itemLocked(ci.ItemID)
		if err != nil {
			continue
		}
		out = append(out, db.CartLine{CartItemID: ci.ID, ItemID: it.ID, Code: it.Code, Name: it.Name, Price: it.Price})
	}
	return out, nil
}

func (f *Fake) AddCartItem(_ context.Context, arg db.AddCartItemParams) (db.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return db.CartItem{}, f.Err
	}
	if _, err := f.itemLocked(arg.ItemID); err != nil {
		return db.CartItem{}, fkViolation()
	}
	ci := db.CartItem{ID: newID(), CartID: arg.CartID, ItemID: arg.ItemID, CreatedAt: now()}
	f.cartItems = append(f.cartItems, ci)
	return ci, nil
}

func (f *Fake) RemoveCartItem(_ context.Context, arg db.RemoveCartItemParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return 0, f.Err
	}
	for i := len(f.cartItems) - 1; i >= 0; i-- {
		ci := f.cartItems[i]
		if ci.CartID == arg.CartID && ci.ItemID == arg.ItemID {
			f.cartItems = append(f.cartItems[:i], f.cartItems[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (f *Fake) CreateRule(_ context.Context, arg db.CreateRuleParams) (db.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return db.Rule{}, f.Err
	}
	r := db.Rule{
		ID:               newID(),
		ItemCode:         arg.ItemCode,
		Name:             arg.Name,
		Description:      arg.Description,
		FiringOperator:   arg.FiringOperator,
		FiringThreshold:  arg.FiringThreshold,
		EffectType:       arg.EffectType,
		EffectPercentage: arg.EffectPercentage,
		CreatedAt:        now(),
		UpdatedAt:        now(),
	}
	f.rules = append(f.rules, r)
	return r, nil
}

func (f *Fake) GetRuleByID(_ context.Context, id pgtype.UUID) (db.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return db.Rule{}, f.Err
	}
	for _, r := range f.rules {
		if r.ID == id {
			return r, nil
		}
	}
	return db.Rule{}, pgx.ErrNoRows
}

func (f *Fake) ListRules(context.Context) ([]db.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	out := make([]db.Rule, len(f.rules))
	copy(out, f.rules)
	return out, nil
}

func (f *Fake) UpdateRule(_ context.Context, arg db.UpdateRuleParams) (db.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return db.Rule{}, f.Err
	}
	for i := range f.rules {
		if f.rules[i].ID != arg.ID {
			continue
		}
		r := &f.rules[i]
		r.ItemCode = arg.ItemCode
		r.Name = arg.Name
		r.Description = arg.Description
		r.FiringOperator = arg.FiringOperator
		r.FiringThreshold = arg.FiringThreshold
		r.EffectType = arg.EffectType
		r.EffectPercentage = arg.EffectPercentage
		r.UpdatedAt = now()
		return *r, nil
	}
	return db.Rule{}, pgx.ErrNoRows
}

func (f *Fake) DeleteRule(_ context.Context, id pgtype.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return 0, f.Err
	}
	for i, r := range f.rules {
		if r.ID == id {
			f.rules = append(f.rules[:i], f.rules[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

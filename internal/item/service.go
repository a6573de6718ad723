package item

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-offers/internal/common"
	"github.com/noah-isme/backend-offers/internal/db"
)

var (
	// ErrNotFound indicates the requested item does not exist.
	ErrNotFound = errors.New("item not found")
	// ErrInvalidInput indicates the payload failed validation.
	ErrInvalidInput = errors.New("invalid item input")
)

type queryProvider interface {
	CreateItem(ctx context.Context, arg db.CreateItemParams) (db.Item, error)
	GetItemByID(ctx context.Context, id pgtype.UUID) (db.Item, error)
	GetItemByCode(ctx context.Context, code string) (db.Item, error)
	ListItems(ctx context.Context, arg db.ListParams) ([]db.Item, error)
	CountItems(ctx context.Context) (int64, error)
}

// Item is the API representation of a catalog entry.
type Item struct {
	ID        string          `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}

// CreateInput is the payload for a new item.
type CreateInput struct {
	Code  string          `json:"code" validate:"required,max=32"`
	Name  string          `json:"name" validate:"required,max=120"`
	Price decimal.Decimal `json:"price" validate:"gte=0"`
}

// InputError lists the fields of a CreateInput that failed validation, keyed
// by field name with the failing tag as value.
type InputError struct {
	Fields map[string]string
}

func (e *InputError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name, tag := range e.Fields {
		names = append(names, name+"="+tag)
	}
	sort.Strings(names)
	return fmt.Sprintf("%s: %s", ErrInvalidInput, strings.Join(names, ", "))
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// compare decimals numerically for gte/lte tags
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// ListResult is a page of items.
type ListResult struct {
	Items []Item
	Total int64
	Page  int
	Limit int
}

// Service handles catalog items with a read-through Redis cache.
type Service struct {
	queries  queryProvider
	cache    *Cache
	logger   zerolog.Logger
	validate *validator.Validate
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries queryProvider
	Cache   *Cache
	Logger  zerolog.Logger
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{queries: cfg.Queries, cache: cfg.Cache, logger: cfg.Logger, validate: newValidator()}
}

// Create validates and stores a new item. Codes are normalised to upper case.
func (s *Service) Create(ctx context.Context, in CreateInput) (Item, error) {
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return Item{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		return Item{}, &InputError{Fields: fields}
	}
	row, err := s.queries.CreateItem(ctx, db.CreateItemParams{Code: in.Code, Name: in.Name, Price: in.Price.Round(2)})
	if err != nil {
		return Item{}, fmt.Errorf("create item: %w", err)
	}
	out := toItem(row)
	s.store(ctx, out)
	return out, nil
}

// Get returns the item with id, consulting the cache first.
func (s *Service) Get(ctx context.Context, id string) (Item, error) {
	if cached, ok := s.lookup(ctx, idKey(id)); ok {
		return cached, nil
	}
	uid, err := db.ToUUID(id)
	if err != nil {
		return Item{}, ErrNotFound
	}
	row, err := s.queries.GetItemByID(ctx, uid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, fmt.Errorf("get item: %w", err)
	}
	out := toItem(row)
	s.store(ctx, out)
	return out, nil
}

// GetByCode returns the first item registered under code.
func (s *Service) GetByCode(ctx context.Context, code string) (Item, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if cached, ok := s.lookup(ctx, codeKey(code)); ok {
		return cached, nil
	}
	row, err := s.queries.GetItemByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, fmt.Errorf("get item by code: %w", err)
	}
	out := toItem(row)
	s.store(ctx, out)
	return out, nil
}

// List returns one page of items in creation order.
func (s *Service) List(ctx context.Context, req common.PageRequest) (ListResult, error) {
	req = req.Clamp()
	total, err := s.queries.CountItems(ctx)
	if err != nil {
		return ListResult{}, fmt.Errorf("count items: %w", err)
	}
	rows, err := s.queries.ListItems(ctx, db.ListParams{Limit: int32(req.PerPage), Offset: int32(req.Offset())})
	if err != nil {
		return ListResult{}, fmt.Errorf("list items: %w", err)
	}
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, toItem(row))
	}
	return ListResult{Items: items, Total: total, Page: req.Page, Limit: req.PerPage}, nil
}

func (s *Service) lookup(ctx context.Context, key string) (Item, bool) {
	it, ok, err := s.cache.Lookup(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("item cache read failed")
	}
	return it, ok
}

func (s *Service) store(ctx context.Context, it Item) {
	if err := s.cache.Store(ctx, it); err != nil {
		s.logger.Warn().Err(err).Str("item_code", it.Code).Msg("item cache write failed")
	}
}

func toItem(row db.Item) Item {
	return Item{
		ID:        db.UUIDString(row.ID),
		Code:      row.Code,
		Name:      row.Name,
		Price:     row.Price,
		CreatedAt: row.CreatedAt.Time,
	}
}

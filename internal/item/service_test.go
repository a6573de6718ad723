package item

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-offers/internal/common"
	"github.com/noah-isme/backend-offers/internal/db"
)

type stubQueries struct {
	items  map[pgtype.UUID]db.Item
	order  []pgtype.UUID
	getHit int
}

func newStubQueries() *stubQueries {
	return &stubQueries{items: map[pgtype.UUID]db.Item{}}
}

func (s *stubQueries) CreateItem(_ context.Context, arg db.CreateItemParams) (db.Item, error) {
	id := pgtype.UUID{Bytes: uuid.New(), Valid: true}
	row := db.Item{ID: id, Code: arg.Code, Name: arg.Name, Price: arg.Price, CreatedAt: pgtype.Timestamptz{Time: time.Now(), Valid: true}}
	s.items[id] = row
	s.order = append(s.order, id)
	return row, nil
}

func (s *stubQueries) GetItemByID(_ context.Context, id pgtype.UUID) (db.Item, error) {
	s.getHit++
	row, ok := s.items[id]
	if !ok {
		return db.Item{}, pgx.ErrNoRows
	}
	return row, nil
}

func (s *stubQueries) GetItemByCode(_ context.Context, code string) (db.Item, error) {
	for _, id := range s.order {
		if s.items[id].Code == code {
			return s.items[id], nil
		}
	}
	return db.Item{}, pgx.ErrNoRows
}

func (s *stubQueries) ListItems(_ context.Context, arg db.ListParams) ([]db.Item, error) {
	var out []db.Item
	for i := int(arg.Offset); i < len(s.order) && len(out) < int(arg.Limit); i++ {
		out = append(out, s.items[s.order[i]])
	}
	return out, nil
}

func (s *stubQueries) CountItems(context.Context) (int64, error) {
	return int64(len(s.order)), nil
}

func newTestService(t *testing.T) (*Service, *stubQueries, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	q := newStubQueries()
	svc := NewService(ServiceConfig{Queries: q, Cache: NewCache(client, time.Minute), Logger: zerolog.Nop()})
	return svc, q, mr
}

func TestCreateNormalisesAndCaches(t *testing.T) {
	svc, q, mr := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{Code: " gr1 ", Name: "Green tea", Price: decimal.RequireFromString("3.111")})
	require.NoError(t, err)
	require.Equal(t, "GR1", created.Code)
	require.True(t, decimal.RequireFromString("3.11").Equal(created.Price))
	require.True(t, mr.Exists(idKey(created.ID)))
	require.True(t, mr.Exists(codeKey("GR1")))

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.Code, got.Code)
	require.Zero(t, q.getHit, "cached item must not hit the database")
}

func TestCreateRejectsInvalid(t *testing.T) {
	cases := map[string]struct {
		in    CreateInput
		field string
		tag   string
	}{
		"blank code":     {CreateInput{Code: "  ", Name: "x", Price: decimal.NewFromInt(1)}, "Code", "required"},
		"missing name":   {CreateInput{Code: "X", Price: decimal.NewFromInt(1)}, "Name", "required"},
		"negative price": {CreateInput{Code: "X", Name: "x", Price: decimal.RequireFromString("-0.01")}, "Price", "gte"},
		"long code":      {CreateInput{Code: strings.Repeat("A", 33), Name: "x", Price: decimal.NewFromInt(1)}, "Code", "max"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc, q, _ := newTestService(t)
			_, err := svc.Create(context.Background(), tc.in)
			require.ErrorIs(t, err, ErrInvalidInput)
			var inputErr *InputError
			require.ErrorAs(t, err, &inputErr)
			require.Equal(t, tc.tag, inputErr.Fields[tc.field])
			require.Empty(t, q.items, "invalid input must not be stored")
		})
	}
}

func TestCreateAcceptsFreeItem(t *testing.T) {
	svc, _, _ := newTestService(t)
	it, err := svc.Create(context.Background(), CreateInput{Code: "bag", Name: "Paper bag", Price: decimal.Zero})
	require.NoError(t, err)
	require.Equal(t, "BAG", it.Code)
	require.True(t, it.Price.IsZero())
}

func TestGetMissingAndMalformed(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Get(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Get(context.Background(), "not-a-uuid")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetByCodeAndList(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	for _, code := range []string{"GR1", "SR1", "CF1"} {
		_, err := svc.Create(ctx, CreateInput{Code: code, Name: code, Price: decimal.NewFromInt(1)})
		require.NoError(t, err)
	}

	got, err := svc.GetByCode(ctx, "sr1")
	require.NoError(t, err)
	require.Equal(t, "SR1", got.Code)

	page, err := svc.List(ctx, common.PageRequest{Page: 2, PerPage: 2})
	require.NoError(t, err)
	require.EqualValues(t, 3, page.Total)
	require.Len(t, page.Items, 1)
	require.Equal(t, "CF1", page.Items[0].Code)
}

func TestHandlerRoutes(t *testing.T) {
	svc, _, _ := newTestService(t)
	h := NewHandler(HandlerConfig{Service: svc})
	r := chi.NewRouter()
	r.Get("/items", h.List)
	r.Post("/items", h.Create)
	r.Get("/items/{id}", h.Get)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{"code":"CF1","name":"Coffee","price":"11.23"}`)))
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Contains(t, rr.Body.String(), `"price":"11.23"`)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/items", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "1", rr.Header().Get("X-Total-Count"))

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/items/"+uuid.NewString(), nil))
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{"code":"","name":"x","price":1}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), `"VALIDATION_ERROR"`)
	require.Contains(t, rr.Body.String(), `"Code":"required"`)
}

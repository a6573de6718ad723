package user

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-offers/internal/common"
	"github.com/noah-isme/backend-offers/internal/db"
)

type stubQueries struct {
	users   []db.User
	listErr error
}

func (s *stubQueries) CreateUser(_ context.Context, arg db.CreateUserParams) (db.User, error) {
	u := db.User{ID: pgtype.UUID{Bytes: uuid.New(), Valid: true}, Name: arg.Name, Fullname: arg.Fullname, Nickname: arg.Nickname}
	s.users = append(s.users, u)
	return u, nil
}

func (s *stubQueries) GetUserByID(_ context.Context, id pgtype.UUID) (db.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return db.User{}, pgx.ErrNoRows
}

func (s *stubQueries) ListUsers(_ context.Context, arg db.ListParams) ([]db.User, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	end := int(arg.Offset + arg.Limit)
	if end > len(s.users) {
		end = len(s.users)
	}
	if int(arg.Offset) >= end {
		return nil, nil
	}
	return s.users[arg.Offset:end], nil
}

func (s *stubQueries) CountUsers(context.Context) (int64, error) {
	return int64(len(s.users)), nil
}

func TestCreateAndGet(t *testing.T) {
	svc := NewService(&stubQueries{})
	ctx := context.Background()

	u, err := svc.Create(ctx, Input{Name: "  ada ", Fullname: "Ada Lovelace"})
	require.NoError(t, err)
	require.Equal(t, "ada", u.Name)

	got, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u, got)
}

func TestCreateRequiresName(t *testing.T) {
	svc := NewService(&stubQueries{})
	_, err := svc.Create(context.Background(), Input{Name: "   "})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestGetUnknownUser(t *testing.T) {
	svc := NewService(&stubQueries{})
	for _, id := range []string{uuid.NewString(), "nope"} {
		_, err := svc.Get(context.Background(), id)
		var appErr *common.AppError
		require.ErrorAs(t, err, &appErr)
		require.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
	}
}

func TestHandlers(t *testing.T) {
	q := &stubQueries{}
	h := &Handler{Service: NewService(q)}
	r := chi.NewRouter()
	r.Get("/users", h.List)
	r.Post("/users", h.Create)
	r.Get("/users/{id}", h.Get)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{"name":"grace"}`)))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/"+db.UUIDString(q.users[0].ID), nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "grace")

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/"+uuid.NewString(), nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, rr.Body.String(), "USER_NOT_FOUND")

	q.listErr = errors.New("db down")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users", nil))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
}

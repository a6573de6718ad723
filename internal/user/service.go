package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-offers/internal/common"
	"github.com/noah-isme/backend-offers/internal/db"
)

const (
	httpStatusBadRequest = 400
	httpStatusNotFound   = 404
)

type queries interface {
	CreateUser(ctx context.Context, arg db.CreateUserParams) (db.User, error)
	GetUserByID(ctx context.Context, id pgtype.UUID) (db.User, error)
	ListUsers(ctx context.Context, arg db.ListParams) ([]db.User, error)
	CountUsers(ctx context.Context) (int64, error)
}

// User is the API representation of a shopper.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Fullname  string    `json:"fullname"`
	Nickname  string    `json:"nickname"`
	CreatedAt time.Time `json:"created_at"`
}

// Input captures the payload for creating a user.
type Input struct {
	Name     string
	Fullname string
	Nickname string
}

// Service orchestrates user operations.
type Service struct {
	queries queries
}

// NewService constructs a Service.
func NewService(q queries) *Service {
	return &Service{queries: q}
}

// Create stores a new user. Name is required; the other fields are optional.
func (s *Service) Create(ctx context.Context, in Input) (User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return User{}, common.NewAppError("VALIDATION_ERROR", "name is required", httpStatusBadRequest, nil)
	}
	row, err := s.queries.CreateUser(ctx, db.CreateUserParams{
		Name:     name,
		Fullname: strings.TrimSpace(in.Fullname),
		Nickname: strings.TrimSpace(in.Nickname),
	})
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return toUser(row), nil
}

// Get returns a single user.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	uid, err := db.ToUUID(id)
	if err != nil {
		return User{}, notFound()
	}
	row, err := s.queries.GetUserByID(ctx, uid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, notFound()
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return toUser(row), nil
}

// List returns a page of users and the total count.
func (s *Service) List(ctx context.Context, req common.PageRequest) ([]User, int64, error) {
	req = req.Clamp()
	total, err := s.queries.CountUsers(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	rows, err := s.queries.ListUsers(ctx, db.ListParams{Limit: int32(req.PerPage), Offset: int32(req.Offset())})
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	users := make([]User, 0, len(rows))
	for _, row := range rows {
		users = append(users, toUser(row))
	}
	return users, total, nil
}

func notFound() error {
	return common.NewAppError("USER_NOT_FOUND", "user not found", httpStatusNotFound, nil)
}

func toUser(row db.User) User {
	return User{
		ID:        db.UUIDString(row.ID),
		Name:      row.Name,
		Fullname:  row.Fullname,
		Nickname:  row.Nickname,
		CreatedAt: row.CreatedAt.Time,
	}
}

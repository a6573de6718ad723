package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createUser = `INSERT INTO users (name, fullname, nickname)
VALUES ($1, $2, $3)
RETURNING id, name, fullname, nickname, created_at`

type CreateUserParams struct {
	Name     string
	Fullname string
	Nickname string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser, arg.Name, arg.Fullname, arg.Nickname)
	var i User
	err := row.Scan(&i.ID, &i.Name, &i.Fullname, &i.Nickname, &i.CreatedAt)
	return i, err
}

const getUserByID = `SELECT id, name, fullname, nickname, created_at FROM users WHERE id = $1`

func (q *Queries) GetUserByID(ctx context.Context, id pgtype.UUID) (User, error) {
	row := q.db.QueryRow(ctx, getUserByID, id)
	var i User
	err := row.Scan(&i.ID, &i.Name, &i.Fullname, &i.Nickname, &i.CreatedAt)
	return i, err
}

const listUsers = `SELECT id, name, fullname, nickname, created_at FROM users
ORDER BY created_at, id
LIMIT $1 OFFSET $2`

func (q *Queries) ListUsers(ctx context.Context, arg ListParams) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsers, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []User
	for rows.Next() {
		var i User
		if err := rows.Scan(&i.ID, &i.Name, &i.Fullname, &i.Nickname, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countUsers = `SELECT count(*) FROM users`

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countUsers).Scan(&count)
	return count, err
}

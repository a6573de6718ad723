package db

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

type User struct {
	ID        pgtype.UUID        `json:"id"`
	Name      string             `json:"name"`
	Fullname  string             `json:"fullname"`
	Nickname  string             `json:"nickname"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

type Item struct {
	ID        pgtype.UUID        `json:"id"`
	Code      string             `json:"code"`
	Name      string             `json:"name"`
	Price     decimal.Decimal    `json:"price"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

type Cart struct {
	ID         pgtype.UUID        `json:"id"`
	UserID     pgtype.UUID        `json:"user_id"`
	TotalPrice decimal.Decimal    `json:"total_price"`
	CreatedAt  pgtype.Timestamptz `json:"created_at"`
	UpdatedAt  pgtype.Timestamptz `json:"updated_at"`
}

type CartItem struct {
	ID        pgtype.UUID        `json:"id"`
	CartID    pgtype.UUID        `json:"cart_id"`
	ItemID    pgtype.UUID        `json:"item_id"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

type Rule struct {
	ID               pgtype.UUID         `json:"id"`
	ItemCode         string              `json:"item_code"`
	Name             string              `json:"name"`
	Description      string              `json:"description"`
	FiringOperator   string              `json:"firing_operator"`
	FiringThreshold  int32               `json:"firing_threshold"`
	EffectType       string              `json:"effect_type"`
	EffectPercentage decimal.NullDecimal `json:"effect_percentage"`
	CreatedAt        pgtype.Timestamptz  `json:"created_at"`
	UpdatedAt        pgtype.Timestamptz  `json:"updated_at"`
}

// Package seed holds the challenge catalog and offer rules, and loads them
// together with sample users and carts into an empty database.
package seed

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-offers/internal/db"
	"github.com/noah-isme/backend-offers/internal/pricing"
)

// CatalogItem is one product of the challenge catalog.
type CatalogItem struct {
	Code  string
	Name  string
	Price decimal.Decimal
}

// Catalog returns the challenge products.
func Catalog() []CatalogItem {
	return []CatalogItem{
		{Code: "GR1", Name: "Green Tea", Price: decimal.RequireFromString("3.11")},
		{Code: "SR1", Name: "Strawberries", Price: decimal.RequireFromString("5.00")},
		{Code: "CF1", Name: "Coffee", Price: decimal.RequireFromString("11.23")},
	}
}

// Rules returns the challenge offers in declaration order.
func Rules() []db.CreateRuleParams {
	return []db.CreateRuleParams{
		{
			ItemCode:        "GR1",
			Name:            "buy-one-get-one-free",
			Description:     "The CEO is a big fan of buy-one-get-one-free offers and green tea.",
			FiringOperator:  string(pricing.GreaterOrEqual),
			FiringThreshold: 2,
			EffectType:      string(pricing.EffectOneFree),
		},
		{
			ItemCode:         "SR1",
			Name:             "bulk-strawberries",
			Description:      "Buying 3 or more strawberries drops their price to 4.50.",
			FiringOperator:   string(pricing.GreaterOrEqual),
			FiringThreshold:  3,
			EffectType:       string(pricing.EffectUpdatePrices),
			EffectPercentage: decimal.NewNullDecimal(decimal.RequireFromString("0.1")),
		},
		{
			ItemCode:         "CF1",
			Name:             "coffee-addiction",
			Description:      "Buying 3 or more coffees drops their price to two thirds.",
			FiringOperator:   string(pricing.GreaterOrEqual),
			FiringThreshold:  3,
			EffectType:       string(pricing.EffectUpdatePrices),
			EffectPercentage: decimal.NewNullDecimal(decimal.RequireFromString("0.3333333")),
		},
	}
}

// EngineCatalog indexes Catalog by code as engine items.
func EngineCatalog() map[string]pricing.Item {
	out := make(map[string]pricing.Item)
	for _, it := range Catalog() {
		out[it.Code] = pricing.Item{ID: it.Code, Code: it.Code, Name: it.Name, UnitPrice: it.Price}
	}
	return out
}

// EngineRules converts Rules for direct use with pricing.Engine.
func EngineRules() []pricing.Rule {
	params := Rules()
	out := make([]pricing.Rule, 0, len(params))
	for _, p := range params {
		r := pricing.Rule{
			ID:              p.Name,
			Name:            p.Name,
			Description:     p.Description,
			ItemCode:        p.ItemCode,
			FiringOperator:  pricing.Comparator(p.FiringOperator),
			FiringThreshold: int(p.FiringThreshold),
			EffectType:      pricing.EffectType(p.EffectType),
		}
		if p.EffectPercentage.Valid {
			r.EffectFactor = p.EffectPercentage.Decimal
		}
		out = append(out, r)
	}
	return out
}

// Options controls how much sample data Run inserts.
type Options struct {
	Users int
}

// Summary reports what Run inserted.
type Summary struct {
	Skipped bool
	Users   int
	Items   int
	Rules   int
	Carts   int
}

// Run loads sample users, the catalog, the rules and one empty cart per user.
// It does nothing when the catalog already has items, so it is safe to call on
// every start.
func Run(ctx context.Context, q db.Querier, opts Options) (Summary, error) {
	existing, err := q.CountItems(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("count items: %w", err)
	}
	if existing > 0 {
		return Summary{Skipped: true}, nil
	}
	if opts.Users <= 0 {
		opts.Users = 10
	}

	var sum Summary
	for i := 0; i < opts.Users; i++ {
		u, err := q.CreateUser(ctx, db.CreateUserParams{
			Name:     fmt.Sprintf("name_%d", i),
			Fullname: fmt.Sprintf("full_%d", i),
			Nickname: fmt.Sprintf("nick_%d", i),
		})
		if err != nil {
			return sum, fmt.Errorf("create user %d: %w", i, err)
		}
		sum.Users++
		if _, err := q.CreateCart(ctx, u.ID); err != nil {
			return sum, fmt.Errorf("create cart for user %d: %w", i, err)
		}
		sum.Carts++
	}
	for _, it := range Catalog() {
		if _, err := q.CreateItem(ctx, db.CreateItemParams{Code: it.Code, Name: it.Name, Price: it.Price}); err != nil {
			return sum, fmt.Errorf("create item %s: %w", it.Code, err)
		}
		sum.Items++
	}
	for _, r := range Rules() {
		if _, err := q.CreateRule(ctx, r); err != nil {
			return sum, fmt.Errorf("create rule %s: %w", r.Name, err)
		}
		sum.Rules++
	}
	return sum, nil
}

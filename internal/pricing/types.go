package pricing

import "github.com/shopspring/decimal"

// Comparator is the operator used to compare a matched item count against a rule threshold.
type Comparator string

// Supported comparators.
const (
	GreaterOrEqual Comparator = ">="
	Greater        Comparator = ">"
	Equal          Comparator = "=="
	Less           Comparator = "<"
	LessOrEqual    Comparator = "<="
)

// EffectType selects how a fired rule adjusts the price of its matched group.
type EffectType string

// Supported effects.
const (
	EffectUpdatePrices EffectType = "update_prices"
	EffectOneFree      EffectType = "one_free"
)

// Item is a catalog entry as seen by the engine.
type Item struct {
	ID        string
	Code      string
	Name      string
	UnitPrice decimal.Decimal
}

// CartLine is one purchased instance of an item.
type CartLine struct {
	ID   string
	Item Item
}

// Cart holds the lines to price. TotalPrice is output only.
type Cart struct {
	ID         string
	UserID     string
	Lines      []CartLine
	TotalPrice decimal.Decimal
}

// Rule describes an offer: when enough items with ItemCode are present, apply the effect.
type Rule struct {
	ID              string
	Name            string
	Description     string
	ItemCode        string
	FiringOperator  Comparator
	FiringThreshold int
	EffectType      EffectType
	// EffectFactor is the fraction taken off each unit for update_prices.
	EffectFactor decimal.Decimal
}

// Snapshot is the set of carts a single Apply call may resolve.
type Snapshot struct {
	Carts map[string]*Cart
}

// NewSnapshot indexes carts by ID.
func NewSnapshot(carts ...*Cart) Snapshot {
	s := Snapshot{Carts: make(map[string]*Cart, len(carts))}
	for _, c := range carts {
		if c != nil {
			s.Carts[c.ID] = c
		}
	}
	return s
}

// AppliedOffer records a rule that fired and what its group contributed.
type AppliedOffer struct {
	RuleID   string          `json:"ruleId"`
	RuleName string          `json:"ruleName"`
	ItemCode string          `json:"itemCode"`
	Count    int             `json:"count"`
	Price    decimal.Decimal `json:"price"`
}

// Result aggregates the computed pricing components for a cart.
type Result struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
	Applied  []AppliedOffer  `json:"applied"`
}

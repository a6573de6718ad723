package pricing

import "github.com/shopspring/decimal"

// Valid reports whether the effect type is supported by Resolve.
func (e EffectType) Valid() bool {
	return e == EffectUpdatePrices || e == EffectOneFree
}

// Resolve computes the price a fired rule's matched group contributes to the cart.
func Resolve(items []Item, effect EffectType, factor decimal.Decimal) (decimal.Decimal, error) {
	switch effect {
	case EffectOneFree:
		if len(items) == 0 {
			return decimal.Zero, nil
		}
		// Grouping by code means every unit shares one price.
		return items[0].UnitPrice.Mul(decimal.NewFromInt(int64(len(items) - 1))), nil
	case EffectUpdatePrices:
		total := decimal.Zero
		for _, it := range items {
			total = total.Add(it.UnitPrice.Sub(it.UnitPrice.Mul(factor)))
		}
		return total, nil
	default:
		return decimal.Zero, &UnknownEffectError{Effect: effect}
	}
}

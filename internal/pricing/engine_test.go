package pricing

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	greenTea     = Item{ID: "1", Code: "GR1", Name: "Green Tea", UnitPrice: decimal.RequireFromString("3.11")}
	strawberries = Item{ID: "2", Code: "SR1", Name: "Strawberries", UnitPrice: decimal.RequireFromString("5.00")}
	coffee       = Item{ID: "3", Code: "CF1", Name: "Coffee", UnitPrice: decimal.RequireFromString("11.23")}
)

func challengeRules() []Rule {
	return []Rule{
		{ID: "r1", Name: "buy-one-get-one-free", ItemCode: "GR1", FiringOperator: GreaterOrEqual, FiringThreshold: 2, EffectType: EffectOneFree},
		{ID: "r2", Name: "bulk-strawberries", ItemCode: "SR1", FiringOperator: GreaterOrEqual, FiringThreshold: 3, EffectType: EffectUpdatePrices, EffectFactor: decimal.RequireFromString("0.1")},
		{ID: "r3", Name: "coffee-addiction", ItemCode: "CF1", FiringOperator: GreaterOrEqual, FiringThreshold: 3, EffectType: EffectUpdatePrices, EffectFactor: decimal.RequireFromString("0.3333333")},
	}
}

func cartOf(id string, items ...Item) *Cart {
	c := &Cart{ID: id}
	for i, it := range items {
		c.Lines = append(c.Lines, CartLine{ID: fmt.Sprintf("%s-%d", id, i), Item: it})
	}
	return c
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(want).Equal(got), "expected %s, got %s", want, got.String())
}

func TestApplyChallengeScenarios(t *testing.T) {
	cases := []struct {
		name  string
		items []Item
		want  string
	}{
		{"mixed basket", []Item{greenTea, strawberries, greenTea, greenTea, coffee}, "22.45"},
		{"two green teas", []Item{greenTea, greenTea}, "3.11"},
		{"bulk strawberries", []Item{strawberries, strawberries, greenTea, strawberries}, "16.61"},
		{"coffee addict", []Item{greenTea, coffee, strawberries, coffee, coffee}, "30.57"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cart := cartOf("c1", tc.items...)
			res, err := Engine{}.Apply(NewSnapshot(cart), "c1", challengeRules())
			require.NoError(t, err)
			requireDecimal(t, tc.want, res.Total)
			requireDecimal(t, tc.want, cart.TotalPrice)
		})
	}
}

func TestApplyNoRulesIsSumOfPrices(t *testing.T) {
	cart := cartOf("c1", greenTea, strawberries, coffee, coffee)
	res, err := Engine{}.ApplyCart(cart, nil)
	require.NoError(t, err)
	requireDecimal(t, "30.57", res.Total)
	requireDecimal(t, "30.57", res.Subtotal)
	require.True(t, res.Discount.IsZero())
	require.Empty(t, res.Applied)
}

func TestApplyEmptyCart(t *testing.T) {
	res, err := Engine{}.ApplyCart(&Cart{ID: "empty"}, challengeRules())
	require.NoError(t, err)
	require.True(t, res.Total.IsZero())
}

func TestApplyUnmatchedItemsPassThrough(t *testing.T) {
	biscuit := Item{ID: "9", Code: "BS1", UnitPrice: decimal.RequireFromString("1.99")}
	cart := cartOf("c1", biscuit, greenTea, greenTea, biscuit)
	res, err := Engine{}.ApplyCart(cart, challengeRules())
	require.NoError(t, err)
	// 2 x 1.99 + one green tea charged
	requireDecimal(t, "7.09", res.Total)
	require.Len(t, res.Applied, 1)
	require.Equal(t, "buy-one-get-one-free", res.Applied[0].RuleName)
	require.Equal(t, 2, res.Applied[0].Count)
	requireDecimal(t, "3.11", res.Discount)
}

func TestApplyCartNotFound(t *testing.T) {
	cart := cartOf("c1", greenTea)
	_, err := Engine{}.Apply(NewSnapshot(cart), "missing", challengeRules())
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrCartNotFound))
	var nf *CartNotFoundError
	require.True(t, errors.As(err, &nf))
	require.Equal(t, "missing", nf.CartID)
	require.True(t, cart.TotalPrice.IsZero())
}

func TestApplyPermutationInvariance(t *testing.T) {
	base := []Item{greenTea, coffee, strawberries, coffee, coffee, greenTea}
	var want decimal.Decimal
	first := true
	permute(base, func(items []Item) {
		res, err := Engine{}.ApplyCart(cartOf("p", items...), challengeRules())
		if err != nil {
			t.Fatalf("apply: %v", err)
		}
		if first {
			want, first = res.Total, false
			return
		}
		if !want.Equal(res.Total) {
			t.Fatalf("permutation %v priced %s, expected %s", codes(items), res.Total, want)
		}
	})
	requireDecimal(t, "30.57", want)
}

func TestApplyIsIdempotent(t *testing.T) {
	cart := cartOf("c1", greenTea, strawberries, greenTea, greenTea, coffee)
	rules := challengeRules()
	first, err := Engine{}.ApplyCart(cart, rules)
	require.NoError(t, err)
	second, err := Engine{}.ApplyCart(cart, rules)
	require.NoError(t, err)
	require.True(t, first.Total.Equal(second.Total))
	require.Len(t, cart.Lines, 5)
}

func TestApplyFirstFiredRuleClaimsItems(t *testing.T) {
	rules := []Rule{
		{ID: "a", Name: "half-off", ItemCode: "SR1", FiringOperator: GreaterOrEqual, FiringThreshold: 2, EffectType: EffectUpdatePrices, EffectFactor: decimal.RequireFromString("0.5")},
		{ID: "b", Name: "one-free", ItemCode: "SR1", FiringOperator: GreaterOrEqual, FiringThreshold: 1, EffectType: EffectOneFree},
	}
	res, err := Engine{}.ApplyCart(cartOf("c", strawberries, strawberries), rules)
	require.NoError(t, err)
	// Only the first rule prices the strawberries; the second sees no unclaimed lines.
	requireDecimal(t, "5.00", res.Total)
	require.Len(t, res.Applied, 1)
	require.Equal(t, "a", res.Applied[0].RuleID)
}

func TestApplyLaterRuleSeesItemsWhenEarlierDoesNotFire(t *testing.T) {
	rules := []Rule{
		{ID: "a", ItemCode: "SR1", FiringOperator: GreaterOrEqual, FiringThreshold: 5, EffectType: EffectUpdatePrices, EffectFactor: decimal.RequireFromString("0.5")},
		{ID: "b", ItemCode: "SR1", FiringOperator: Equal, FiringThreshold: 2, EffectType: EffectOneFree},
	}
	res, err := Engine{}.ApplyCart(cartOf("c", strawberries, strawberries), rules)
	require.NoError(t, err)
	requireDecimal(t, "5.00", res.Total)
	require.Equal(t, "b", res.Applied[0].RuleID)
}

func TestApplyRejectsInvalidOperator(t *testing.T) {
	rules := challengeRules()
	rules = append(rules, Rule{ID: "bad", ItemCode: "ZZ9", FiringOperator: "1; import os", EffectType: EffectOneFree})
	cart := cartOf("c1", greenTea, greenTea)
	_, err := Engine{}.ApplyCart(cart, rules)
	require.True(t, errors.Is(err, ErrInvalidRule))
	require.Contains(t, err.Error(), "bad")
	require.True(t, cart.TotalPrice.IsZero())
}

func TestApplyRejectsUnknownEffect(t *testing.T) {
	rules := []Rule{{ID: "x", ItemCode: "GR1", FiringOperator: GreaterOrEqual, FiringThreshold: 1, EffectType: "half_price"}}
	_, err := Engine{}.ApplyCart(cartOf("c1", greenTea), rules)
	require.True(t, errors.Is(err, ErrUnknownEffect))
	var ue *UnknownEffectError
	require.True(t, errors.As(err, &ue))
	require.Equal(t, "x", ue.RuleID)
}

func TestApplyConcurrentCarts(t *testing.T) {
	engine := Engine{}
	rules := challengeRules()
	carts := make([]*Cart, 32)
	for i := range carts {
		carts[i] = cartOf(fmt.Sprintf("c%d", i), greenTea, strawberries, greenTea, greenTea, coffee)
	}
	snapshot := NewSnapshot(carts...)

	var wg sync.WaitGroup
	errs := make(chan error, len(carts))
	for _, c := range carts {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			res, err := engine.Apply(snapshot, id, rules)
			if err != nil {
				errs <- err
				return
			}
			if res.Total.StringFixed(2) != "22.45" {
				errs <- fmt.Errorf("cart %s priced %s", id, res.Total)
			}
		}(c.ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func permute(items []Item, visit func([]Item)) {
	var rec func(k int)
	buf := append([]Item(nil), items...)
	rec = func(k int) {
		if k == len(buf) {
			visit(append([]Item(nil), buf...))
			return
		}
		for i := k; i < len(buf); i++ {
			buf[k], buf[i] = buf[i], buf[k]
			rec(k + 1)
			buf[k], buf[i] = buf[i], buf[k]
		}
	}
	rec(0)
}

func codes(items []Item) string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Code
	}
	return strings.Join(out, ",")
}

func TestRoundHalfUp(t *testing.T) {
	cases := map[string]string{
		"1.005":   "1.01",
		"1.004":   "1",
		"2.675":   "2.68",
		"-0.005":  "0",
		"-0.015":  "-0.01",
		"-0.0051": "-0.01",
		"22.45":   "22.45",
	}
	for in, want := range cases {
		requireDecimal(t, want, RoundHalfUp(decimal.RequireFromString(in), 2))
	}
}

func TestApplyRoundsNegativeHalfUp(t *testing.T) {
	rules := []Rule{{
		ID: "r1", Name: "over-discount", ItemCode: "SR1",
		FiringOperator: GreaterOrEqual, FiringThreshold: 1,
		EffectType: EffectUpdatePrices, EffectFactor: decimal.RequireFromString("1.001"),
	}}
	cart := cartOf("c1", strawberries)
	res, err := Engine{}.ApplyCart(cart, rules)
	require.NoError(t, err)
	requireDecimal(t, "0", res.Total)
	requireDecimal(t, "0", cart.TotalPrice)
	requireDecimal(t, "5", res.Discount)
}

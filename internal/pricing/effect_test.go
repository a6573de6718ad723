package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestResolveOneFree(t *testing.T) {
	got, err := Resolve([]Item{greenTea, greenTea, greenTea}, EffectOneFree, decimal.Zero)
	require.NoError(t, err)
	requireDecimal(t, "6.22", got)

	got, err = Resolve([]Item{greenTea}, EffectOneFree, decimal.Zero)
	require.NoError(t, err)
	require.True(t, got.IsZero())

	got, err = Resolve(nil, EffectOneFree, decimal.Zero)
	require.NoError(t, err)
	require.True(t, got.IsZero())
}

func TestResolveUpdatePrices(t *testing.T) {
	got, err := Resolve([]Item{coffee, coffee, coffee}, EffectUpdatePrices, decimal.RequireFromString("0.3333333"))
	require.NoError(t, err)
	requireDecimal(t, "22.460001123", got)
	require.Equal(t, "22.46", got.Round(2).StringFixed(2))

	got, err = Resolve([]Item{strawberries, strawberries, strawberries}, EffectUpdatePrices, decimal.RequireFromString("0.1"))
	require.NoError(t, err)
	requireDecimal(t, "13.5", got)
}

func TestResolveUpdatePricesFactorNotClamped(t *testing.T) {
	got, err := Resolve([]Item{strawberries}, EffectUpdatePrices, decimal.RequireFromString("1.5"))
	require.NoError(t, err)
	requireDecimal(t, "-2.5", got)
}

func TestResolveUnknownEffect(t *testing.T) {
	_, err := Resolve([]Item{greenTea}, "buy_two_pay_three", decimal.Zero)
	require.True(t, errors.Is(err, ErrUnknownEffect))
}

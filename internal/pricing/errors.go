package pricing

import (
	"errors"
	"fmt"
)

var (
	// ErrCartNotFound is matched by CartNotFoundError.
	ErrCartNotFound = errors.New("cart not found")
	// ErrInvalidRule is matched by InvalidRuleError.
	ErrInvalidRule = errors.New("invalid rule")
	// ErrUnknownEffect is matched by UnknownEffectError.
	ErrUnknownEffect = errors.New("unknown effect")
)

// CartNotFoundError is returned when the requested cart is absent from the snapshot.
type CartNotFoundError struct {
	CartID string
}

func (e *CartNotFoundError) Error() string {
	return fmt.Sprintf("no cart with id %q was found", e.CartID)
}

// Is allows errors.Is(err, ErrCartNotFound).
func (e *CartNotFoundError) Is(target error) bool { return target == ErrCartNotFound }

// InvalidRuleError reports a firing operator outside the supported set.
type InvalidRuleError struct {
	RuleID   string
	Operator Comparator
}

func (e *InvalidRuleError) Error() string {
	if e.RuleID == "" {
		return fmt.Sprintf("unsupported firing operator %q", string(e.Operator))
	}
	return fmt.Sprintf("rule %s: unsupported firing operator %q", e.RuleID, string(e.Operator))
}

// Is allows errors.Is(err, ErrInvalidRule).
func (e *InvalidRuleError) Is(target error) bool { return target == ErrInvalidRule }

// UnknownEffectError reports an effect type the resolver does not implement.
type UnknownEffectError struct {
	RuleID string
	Effect EffectType
}

func (e *UnknownEffectError) Error() string {
	if e.RuleID == "" {
		return fmt.Sprintf("unknown effect type %q", string(e.Effect))
	}
	return fmt.Sprintf("rule %s: unknown effect type %q", e.RuleID, string(e.Effect))
}

// Is allows errors.Is(err, ErrUnknownEffect).
func (e *UnknownEffectError) Is(target error) bool { return target == ErrUnknownEffect }

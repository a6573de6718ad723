package rules

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/noah-isme/backend-offers/internal/db"
	"github.com/noah-isme/backend-offers/internal/lock"
	"github.com/noah-isme/backend-offers/internal/obs"
	"github.com/noah-isme/backend-offers/internal/pricing"
)

// TxRunner opens a unit of work over the query layer. *db.Store is the
// production implementation.
type TxRunner interface {
	InTx(ctx context.Context, fn func(db.Querier) error) error
}

// Applier prices persisted carts with the persisted rule set.
type Applier struct {
	tx       TxRunner
	engine   pricing.Engine
	locker   *lock.Locker
	lockTTL  time.Duration
	lockWait time.Duration
	logger   zerolog.Logger
	discount metric.Float64Counter
}

// ApplierConfig groups Applier dependencies. Locker is optional; without it
// concurrent applies on one cart race on the final total write. LockWait
// caps how long Apply queues behind another pricing run on the same cart
// and defaults to LockTTL.
type ApplierConfig struct {
	Tx       TxRunner
	Locker   *lock.Locker
	LockTTL  time.Duration
	LockWait time.Duration
	Logger   zerolog.Logger
}

const defaultLockWait = 5 * time.Second

// NewApplier constructs an Applier.
func NewApplier(cfg ApplierConfig) *Applier {
	a := &Applier{
		tx:       cfg.Tx,
		locker:   cfg.Locker,
		lockTTL:  cfg.LockTTL,
		lockWait: cfg.LockWait,
		logger:   cfg.Logger,
	}
	if a.lockWait <= 0 {
		a.lockWait = a.lockTTL
	}
	if a.lockWait <= 0 {
		a.lockWait = defaultLockWait
	}
	counter, err := otel.Meter("offers/rules").Float64Counter(
		"offers.discount.amount",
		metric.WithDescription("Money taken off cart subtotals by fired offers."),
	)
	if err == nil {
		a.discount = counter
	}
	return a
}

// Apply loads the cart and every rule in one snapshot, prices the cart, and
// stores the rounded total. A malformed or unknown cart id yields a
// *pricing.CartNotFoundError; an unsupported rule aborts without writing.
func (a *Applier) Apply(ctx context.Context, cartID string) (pricing.Result, error) {
	var result pricing.Result
	run := func(ctx context.Context) error {
		var err error
		result, err = a.apply(ctx, cartID)
		return err
	}

	start := time.Now()
	var err error
	if a.locker != nil && a.locker.R != nil {
		locker := *a.locker
		locker.Wait = a.lockWait
		err = locker.WithLock(ctx, lock.CartKey(cartID), a.lockTTL, run)
	} else {
		err = run(ctx)
	}
	elapsed := float64(time.Since(start).Microseconds()) / 1000

	if err != nil {
		obs.ObserveApply(outcome(err), elapsed, nil)
		evt := a.logger.Warn()
		if outcome(err) == "error" {
			evt = a.logger.Error()
		}
		evt.Err(err).Str("cart_id", cartID).Msg("apply offers failed")
		return pricing.Result{}, err
	}

	fired := make([]string, 0, len(result.Applied))
	for _, ao := range result.Applied {
		fired = append(fired, ao.RuleName)
	}
	obs.ObserveApply("ok", elapsed, fired)
	if a.discount != nil {
		amount, _ := result.Discount.Float64()
		a.discount.Add(ctx, amount, metric.WithAttributes(attribute.Int("offers.fired", len(fired))))
	}
	a.logger.Info().
		Str("cart_id", cartID).
		Str("subtotal", result.Subtotal.StringFixed(2)).
		Str("total", result.Total.StringFixed(2)).
		Strs("fired", fired).
		Msg("offers applied")
	return result, nil
}

func (a *Applier) apply(ctx context.Context, cartID string) (pricing.Result, error) {
	if a.tx == nil {
		return pricing.Result{}, errors.New("rules: applier store not configured")
	}
	id, err := db.ToUUID(cartID)
	if err != nil {
		return pricing.Result{}, &pricing.CartNotFoundError{CartID: cartID}
	}

	var result pricing.Result
	err = a.tx.InTx(ctx, func(q db.Querier) error {
		row, err := q.GetCartByID(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return &pricing.CartNotFoundError{CartID: cartID}
			}
			return fmt.Errorf("get cart: %w", err)
		}
		ruleRows, err := q.ListRules(ctx)
		if err != nil {
			return fmt.Errorf("list rules: %w", err)
		}
		lines, err := q.ListCartLines(ctx, id)
		if err != nil {
			return fmt.Errorf("list cart lines: %w", err)
		}

		cart := toEngineCart(row, lines)
		engineRules := make([]pricing.Rule, 0, len(ruleRows))
		for _, r := range ruleRows {
			engineRules = append(engineRules, toEngineRule(r))
		}
		result, err = a.engine.ApplyCart(cart, engineRules)
		if err != nil {
			return err
		}
		if err := q.UpdateCartTotal(ctx, db.UpdateCartTotalParams{ID: id, TotalPrice: cart.TotalPrice}); err != nil {
			return fmt.Errorf("update cart total: %w", err)
		}
		return nil
	})
	if err != nil {
		return pricing.Result{}, err
	}
	return result, nil
}

func toEngineCart(row db.Cart, lines []db.CartLine) *pricing.Cart {
	cart := &pricing.Cart{
		ID:     db.UUIDString(row.ID),
		UserID: db.UUIDString(row.UserID),
		Lines:  make([]pricing.CartLine, 0, len(lines)),
	}
	for _, l := range lines {
		cart.Lines = append(cart.Lines, pricing.CartLine{
			ID: db.UUIDString(l.CartItemID),
			Item: pricing.Item{
				ID:        db.UUIDString(l.ItemID),
				Code:      l.Code,
				Name:      l.Name,
				UnitPrice: l.Price,
			},
		})
	}
	return cart
}

func outcome(err error) string {
	switch {
	case errors.Is(err, pricing.ErrCartNotFound):
		return "cart_not_found"
	case errors.Is(err, pricing.ErrInvalidRule), errors.Is(err, pricing.ErrUnknownEffect):
		return "invalid_rules"
	case errors.Is(err, lock.ErrBusy):
		return "cart_busy"
	default:
		return "error"
	}
}

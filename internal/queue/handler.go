package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-offers/internal/pricing"
)

// Applier prices a persisted cart. *rules.Applier satisfies it.
type Applier interface {
	Apply(ctx context.Context, cartID string) (pricing.Result, error)
}

// RepriceHandler runs TypeCartReprice tasks.
type RepriceHandler struct {
	Applier Applier
	Logger  zerolog.Logger
}

// ProcessTask implements asynq.Handler. Failures that a retry cannot fix,
// such as a deleted cart or an unsupported rule, skip the retry queue.
func (h RepriceHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	started := time.Now()
	record := func(status string) { observeTask(TypeCartReprice, status, started) }
	p, err := decodeReprice(t.Payload())
	if err != nil {
		record("invalid_payload")
		return fmt.Errorf("decode reprice payload: %v: %w", err, asynq.SkipRetry)
	}
	if h.Applier == nil {
		record("error")
		return errors.New("queue: reprice applier not configured")
	}
	res, err := h.Applier.Apply(ctx, p.CartID)
	switch {
	case err == nil:
		record("ok")
		h.Logger.Debug().Str("cart_id", p.CartID).Str("total", res.Total.StringFixed(2)).Msg("cart repriced")
		return nil
	case errors.Is(err, pricing.ErrCartNotFound):
		record("cart_not_found")
		return fmt.Errorf("reprice %s: %v: %w", p.CartID, err, asynq.SkipRetry)
	case errors.Is(err, pricing.ErrInvalidRule), errors.Is(err, pricing.ErrUnknownEffect):
		record("invalid_rules")
		return fmt.Errorf("reprice %s: %v: %w", p.CartID, err, asynq.SkipRetry)
	default:
		record("retry")
		return fmt.Errorf("reprice %s: %w", p.CartID, err)
	}
}

// NewMux routes reprice tasks to h.
func NewMux(h RepriceHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeCartReprice, h)
	return mux
}

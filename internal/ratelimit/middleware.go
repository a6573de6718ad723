package ratelimit

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/noah-isme/backend-offers/internal/common"
)

// Rejected counts requests refused by a Handler, by scope.
var Rejected = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "offers",
	Subsystem: "ratelimit",
	Name:      "rejected_total",
	Help:      "Requests refused by the sliding window rate limiter.",
}, []string{"scope"})

func init() {
	prometheus.MustRegister(Rejected)
}

// Allower is the decision side of a limiter; Limiter satisfies it.
type Allower interface {
	Allow(ctx context.Context, key string, window time.Duration, max int) (bool, int, time.Time, error)
}

// Config describes how to derive a rate limit key and thresholds.
type Config struct {
	Scope  string
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// Handler enforces Config in front of a route. When the limiter store is
// unreachable requests pass through and OnError is told.
type Handler struct {
	Limiter Allower
	Config  Config
	OnError func(error)
}

// ClientAndCartKey keys requests by caller address and the {id} route
// parameter, so one client hammering a cart does not starve other carts.
func ClientAndCartKey(r *http.Request) string {
	return common.ClientIP(r) + ":" + chi.URLParam(r, "id")
}

func (h Handler) Middleware(next http.Handler) http.Handler {
	if h.Limiter == nil || h.Config.Key == nil || h.Config.Max <= 0 {
		return next
	}
	scope := h.Config.Scope
	if scope == "" {
		scope = "default"
	}
	limit := strconv.Itoa(h.Config.Max)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, remaining, resetAt, err := h.Limiter.Allow(r.Context(), scope+":"+h.Config.Key(r), h.Config.Window, h.Config.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		wait := int(math.Ceil(time.Until(resetAt).Seconds()))
		if wait < 0 {
			wait = 0
		}
		headers := w.Header()
		headers.Set("X-RateLimit-Limit", limit)
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
		if !allowed {
			Rejected.WithLabelValues(scope).Inc()
			headers.Set("Retry-After", strconv.Itoa(wait))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded", map[string]int{"retry_after_seconds": wait})
			return
		}
		next.ServeHTTP(w, r)
	})
}

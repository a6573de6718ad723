package common

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newIdem(t *testing.T) (Idem, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return Idem{R: client, TTL: time.Minute}, mr
}

func applyRequest(key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/carts/c1/apply", nil)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func TestIdemReplaysFirstResponse(t *testing.T) {
	idem, _ := newIdem(t)
	var calls atomic.Int32
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		Data(w, http.StatusOK, map[string]any{"total_price": "22.45", "call": n})
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, applyRequest("k1"))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, applyRequest("k1"))

	require.EqualValues(t, 1, calls.Load())
	require.Equal(t, http.StatusOK, second.Code)
	require.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	require.Equal(t, "application/json", second.Header().Get("Content-Type"))
	require.JSONEq(t, first.Body.String(), second.Body.String())

	other := httptest.NewRecorder()
	h.ServeHTTP(other, applyRequest("k2"))
	require.EqualValues(t, 2, calls.Load())

	h.ServeHTTP(httptest.NewRecorder(), applyRequest(""))
	h.ServeHTTP(httptest.NewRecorder(), applyRequest(""))
	require.EqualValues(t, 4, calls.Load(), "requests without a key are never deduplicated")
}

func TestIdemReleasesKeyOnServerError(t *testing.T) {
	idem, mr := newIdem(t)
	var calls atomic.Int32
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			JSONError(w, http.StatusServiceUnavailable, "CART_BUSY", "busy", nil)
			return
		}
		Data(w, http.StatusOK, "ok")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, applyRequest("retry-me"))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.Empty(t, mr.Keys())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, applyRequest("retry-me"))
	require.Equal(t, http.StatusOK, rr.Code)
	require.EqualValues(t, 2, calls.Load())
}

func TestIdemInProgress(t *testing.T) {
	idem, mr := newIdem(t)
	req := applyRequest("busy")
	require.NoError(t, mr.Set(idemKey(req, "busy"), idemPending))

	rr := httptest.NewRecorder()
	idem.Middleware(http.NotFoundHandler()).ServeHTTP(rr, req)
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Contains(t, rr.Body.String(), "IDEMPOTENCY_IN_PROGRESS")
}

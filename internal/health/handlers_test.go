package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-offers/internal/health"
)

type stubChecker struct {
	dbErr    error
	redisErr error
}

func (s stubChecker) PingDB(context.Context, time.Duration) error    { return s.dbErr }
func (s stubChecker) PingRedis(context.Context, time.Duration) error { return s.redisErr }

func ready(t *testing.T, h health.Handler) (int, map[string]string) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return rr.Code, body
}

func TestLive(t *testing.T) {
	rr := httptest.NewRecorder()
	health.Handler{}.Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())
}

func TestReadyProbes(t *testing.T) {
	cases := []struct {
		name    string
		checker stubChecker
		status  int
		want    map[string]string
	}{
		{"healthy", stubChecker{}, http.StatusOK, map[string]string{"status": "ok", "db": "ok", "redis": "ok"}},
		{"db down", stubChecker{dbErr: errors.New("db down")}, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "db": "db down", "redis": "ok"}},
		{"redis loading", stubChecker{redisErr: errors.New("LOADING")}, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "db": "ok", "redis": "LOADING"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := ready(t, health.Handler{Checker: tc.checker, DBTimeout: 10 * time.Millisecond, RedisTimeout: 10 * time.Millisecond})
			require.Equal(t, tc.status, code)
			require.Equal(t, tc.want, body)
		})
	}
}

func TestReadyReportsDrainAndMissingChecker(t *testing.T) {
	t.Cleanup(func() { health.SetReady(true) })

	health.SetReady(false)
	code, body := ready(t, health.Handler{Checker: stubChecker{}})
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "shutting_down", body["status"])

	health.SetReady(true)
	code, body = ready(t, health.Handler{})
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "unconfigured", body["status"])
}

package security

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBodyLimit(t *testing.T) {
	cases := []struct {
		name          string
		limit         BodyLimit
		body          string
		contentLength int64
		contentType   string
		wantStatus    int
		wantCode      string
		wantMaxBytes  bool
	}{
		{name: "within limit", limit: BodyLimit{Max: 32}, body: `{"cart_id":"c1"}`, wantStatus: http.StatusOK},
		{name: "declared oversize", limit: BodyLimit{Max: 5}, body: "content", contentLength: 100, wantStatus: http.StatusRequestEntityTooLarge, wantCode: "PAYLOAD_TOO_LARGE"},
		{name: "undeclared oversize", limit: BodyLimit{Max: 5}, body: "excessive", contentLength: -1, wantStatus: http.StatusOK, wantMaxBytes: true},
		{name: "json with charset", limit: BodyLimit{Max: 64, JSONOnly: true}, body: `{}`, contentType: "application/json; charset=utf-8", wantStatus: http.StatusOK},
		{name: "form body", limit: BodyLimit{Max: 64, JSONOnly: true}, body: "a=b", contentType: "application/x-www-form-urlencoded", wantStatus: http.StatusUnsupportedMediaType, wantCode: "UNSUPPORTED_MEDIA_TYPE"},
		{name: "no limit", limit: BodyLimit{}, body: strings.Repeat("x", 1024), wantStatus: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var readErr error
			handler := tc.limit.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, readErr = io.ReadAll(r.Body)
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(http.MethodPost, "/api/v1/carts/c1/apply", strings.NewReader(tc.body))
			if tc.contentLength != 0 {
				req.ContentLength = tc.contentLength
			}
			if tc.contentType != "" {
				req.Header.Set("Content-Type", tc.contentType)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rr.Code)
			}
			if tc.wantCode != "" && !strings.Contains(rr.Body.String(), tc.wantCode) {
				t.Fatalf("expected %s in body, got %q", tc.wantCode, rr.Body.String())
			}
			var mbe *http.MaxBytesError
			if got := errors.As(readErr, &mbe); got != tc.wantMaxBytes {
				t.Fatalf("max bytes error = %v, read error %v", got, readErr)
			}
		})
	}
}

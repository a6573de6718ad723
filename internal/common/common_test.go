package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePagination(t *testing.T) {
	cases := []struct {
		query string
		want  PageRequest
	}{
		{"", PageRequest{Page: 1, PerPage: 20}},
		{"?page=3&per_page=10", PageRequest{Page: 3, PerPage: 10}},
		{"?page=2&limit=5", PageRequest{Page: 2, PerPage: 5}},
		{"?page=-1&per_page=0", PageRequest{Page: 1, PerPage: 20}},
		{"?per_page=5000", PageRequest{Page: 1, PerPage: MaxPerPage}},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/carts"+tc.query, nil)
		require.Equal(t, tc.want, ParsePagination(req, 20), tc.query)
	}
	require.Equal(t, 20, PageRequest{Page: 3, PerPage: 10}.Offset())
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(PageRequest{Page: 2, PerPage: 2}, 3)
	require.Equal(t, Pagination{Page: 2, PerPage: 2, TotalItems: 3, TotalPages: 2}, p)
	require.Zero(t, NewPagination(PageRequest{Page: 1, PerPage: 20}, 0).TotalPages)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	require.Equal(t, "192.0.2.1", ClientIP(req))

	req.Header.Set("X-Real-IP", "203.0.113.10")
	require.Equal(t, "203.0.113.10", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "garbage, 198.51.100.7:443, 10.0.0.1")
	require.Equal(t, "198.51.100.7", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "not-an-ip")
	require.Equal(t, "203.0.113.10", ClientIP(req))
	require.Empty(t, ClientIP(nil))
}

func TestSubject(t *testing.T) {
	_, ok := Subject(context.Background())
	require.False(t, ok)
	_, ok = Subject(WithSubject(context.Background(), ""))
	require.False(t, ok)
	subject, ok := Subject(WithSubject(context.Background(), "admin"))
	require.True(t, ok)
	require.Equal(t, "admin", subject)
}

func TestDataAndPageEnvelopes(t *testing.T) {
	rr := httptest.NewRecorder()
	Data(rr, http.StatusCreated, map[string]string{"id": "c1"})
	require.Equal(t, http.StatusCreated, rr.Code)
	require.JSONEq(t, `{"data":{"id":"c1"}}`, rr.Body.String())

	rr = httptest.NewRecorder()
	Page(rr, []int{1}, NewPagination(PageRequest{Page: 1, PerPage: 1}, 1))
	require.JSONEq(t, `{"data":[1],"pagination":{"page":1,"per_page":1,"total_items":1,"total_pages":1}}`, rr.Body.String())

	rr = httptest.NewRecorder()
	JSONError(rr, http.StatusNotFound, "CART_NOT_FOUND", "cart not found", nil)
	require.JSONEq(t, `{"error":{"code":"CART_NOT_FOUND","message":"cart not found"}}`, rr.Body.String())
}

func TestWriteError(t *testing.T) {
	cause := errors.New("pg: connection reset")
	appErr := NewAppError("CART_NOT_FOUND", "cart not found", http.StatusNotFound, cause)
	require.ErrorIs(t, appErr, cause)
	require.Equal(t, "CART_NOT_FOUND: cart not found: pg: connection reset", appErr.Error())

	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("apply: %w", appErr), http.StatusNotFound, "CART_NOT_FOUND"},
		{&AppError{Code: "X", Message: "x"}, http.StatusInternalServerError, "X"},
		{fmt.Errorf("query: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "TIMEOUT"},
		{cause, http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		WriteError(rr, tc.err)
		require.Equal(t, tc.status, rr.Code)
		require.Contains(t, rr.Body.String(), `"code":"`+tc.code+`"`)
		require.NotContains(t, rr.Body.String(), "connection reset")
	}
}

package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-offers/internal/common"
)

var fastParams = &argon2id.Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newTestService(t *testing.T) *Service {
	t.Helper()
	hash, err := argon2id.CreateHash("correct-horse", fastParams)
	require.NoError(t, err)
	svc, err := NewService(Config{
		Username:       "ops",
		PasswordHash:   hash,
		Secret:         "super-secret-key",
		AccessTokenTTL: time.Minute,
		Issuer:         "backend-offers",
		Audience:       "offers-admin",
	})
	require.NoError(t, err)
	fixed := time.Now()
	svc.WithNow(func() time.Time { return fixed })
	return svc
}

func TestNewServiceRequiresSecret(t *testing.T) {
	_, err := NewService(Config{})
	require.Error(t, err)
}

func TestLoginIssuesParseableToken(t *testing.T) {
	svc := newTestService(t)
	result, err := svc.Login("ops", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, "ops", result.Subject)
	require.NotEmpty(t, result.AccessToken)

	subject, err := svc.ParseAccessToken(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "ops", subject)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t)
	for _, tc := range []struct{ user, pass string }{
		{"ops", "wrong-horse"},
		{"other", "correct-horse"},
		{"ops", ""},
	} {
		_, err := svc.Login(tc.user, tc.pass)
		var appErr *common.AppError
		require.ErrorAs(t, err, &appErr)
		require.Equal(t, "INVALID_CREDENTIALS", appErr.Code)
		require.Equal(t, http.StatusUnauthorized, appErr.HTTPStatus)
	}
}

func TestLoginDisabledWithoutHash(t *testing.T) {
	svc, err := NewService(Config{Secret: "s"})
	require.NoError(t, err)
	_, err = svc.Login("admin", "whatever-password")
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "LOGIN_DISABLED", appErr.Code)
}

func TestHashPasswordRoundTrip(t *testing.T) {
	_, err := HashPassword("short")
	require.Error(t, err)

	hash, err := HashPassword("long-enough-password")
	require.NoError(t, err)
	ok, err := argon2id.ComparePasswordAndHash("long-enough-password", hash)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestParseAccessTokenRejectsAlgorithmMismatch(t *testing.T) {
	svc := newTestService(t)
	fixed := svc.now()
	built, err := jwt.NewBuilder().
		Subject("ops").
		Issuer(svc.issuer).
		Audience([]string{svc.audience}).
		IssuedAt(fixed).
		Expiration(fixed.Add(svc.accessTTL)).
		Claim("role", adminRole).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(built, jwt.WithKey(jwa.HS384, svc.secret))
	require.NoError(t, err)

	_, err = svc.ParseAccessToken(string(signed))
	require.Error(t, err)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	svc := newTestService(t)
	token, _, err := svc.SignAccessToken("ops")
	require.NoError(t, err)

	later := svc.now().Add(2 * time.Minute)
	svc.WithNow(func() time.Time { return later })
	_, err = svc.ParseAccessToken(token)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsOverlongLifetime(t *testing.T) {
	svc := newTestService(t)
	minter, err := NewService(Config{
		Secret:         "super-secret-key",
		AccessTokenTTL: 24 * time.Hour,
		Issuer:         "backend-offers",
		Audience:       "offers-admin",
	})
	require.NoError(t, err)
	token, _, err := minter.SignAccessToken("ops")
	require.NoError(t, err)

	_, err = svc.ParseAccessToken(token)
	require.ErrorIs(t, err, errLifetimeTooLong)
}

func TestRequireAuthMiddleware(t *testing.T) {
	svc := newTestService(t)
	token, _, err := svc.SignAccessToken("ops")
	require.NoError(t, err)

	var seen string
	protected := Middleware{Service: svc}.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = common.Subject(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rules", nil)
	rr := httptest.NewRecorder()
	protected.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	require.Equal(t, `Bearer realm="offers-admin"`, rr.Header().Get("WWW-Authenticate"))

	req = httptest.NewRequest(http.MethodPost, "/api/v1/rules", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr = httptest.NewRecorder()
	protected.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Contains(t, rr.Header().Get("WWW-Authenticate"), `error="invalid_token"`)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/rules", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	protected.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "ops", seen)
}

func TestLoginHandler(t *testing.T) {
	h := &Handler{Service: newTestService(t)}

	rr := httptest.NewRecorder()
	h.Login(rr, httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", strings.NewReader(`{"username":"ops","password":"correct-horse"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "access_token")

	rr = httptest.NewRecorder()
	h.Login(rr, httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", strings.NewReader(`{"username":"ops","password":"nope-nope"}`)))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	h.Login(rr, httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", strings.NewReader(`{`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

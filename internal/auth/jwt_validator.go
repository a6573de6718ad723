package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var (
	errNilToken        = errors.New("auth: token is nil")
	errMissingSubject  = errors.New("auth: token missing subject")
	errLifetimeTooLong = errors.New("auth: token lifetime exceeds the configured maximum")
)

// TokenValidator checks the claims of an already signature-verified admin token.
type TokenValidator struct {
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Algorithm jwa.SignatureAlgorithm
	// Role, when set, must match the "role" claim.
	Role string
	// MaxLifetime rejects tokens whose exp - iat is longer, so a token minted
	// offline with a huge --ttl is refused by the server.
	MaxLifetime time.Duration
}

// Validate checks algorithm, subject, lifetime and the registered claims at now.
func (v TokenValidator) Validate(tok jwt.Token, algorithm jwa.SignatureAlgorithm, now time.Time) error {
	if tok == nil {
		return errNilToken
	}
	if algorithm == "" || (v.Algorithm != "" && algorithm != v.Algorithm) {
		return fmt.Errorf("auth: unexpected token algorithm %q", algorithm)
	}
	if tok.Subject() == "" {
		return errMissingSubject
	}
	if v.MaxLifetime > 0 && !tok.IssuedAt().IsZero() && !tok.Expiration().IsZero() {
		if tok.Expiration().Sub(tok.IssuedAt()) > v.MaxLifetime+v.ClockSkew {
			return errLifetimeTooLong
		}
	}
	return jwt.Validate(tok, v.options(now)...)
}

func (v TokenValidator) options(now time.Time) []jwt.ValidateOption {
	opts := []jwt.ValidateOption{jwt.WithClock(jwt.ClockFunc(func() time.Time { return now }))}
	if v.ClockSkew > 0 {
		opts = append(opts, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.Audience))
	}
	if v.Role != "" {
		opts = append(opts, jwt.WithClaimValue("role", v.Role))
	}
	return opts
}

package rpc

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	jwt "github.com/golang-jwt/jwt/v5"

	"certchain/crypto"
)

var (
	errAuthNotConfigured = errors.New("authentication not configured")
	errMissingBearer     = errors.New("missing bearer token")
	errAudienceMismatch  = errors.New("audience mismatch")
)

// AuthConfig configures caller authentication. The token subject is the
// caller's account address.
type AuthConfig struct {
	HMACSecret []byte
	Issuer     string
	Audience   []string
	ClockSkew  time.Duration
}

// Authenticator resolves the caller of state-changing methods from an
// HMAC-signed JWT.
type Authenticator struct {
	cfg AuthConfig
	now func() time.Time
}

func NewAuthenticator(cfg AuthConfig) *Authenticator {
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = 2 * time.Minute
	}
	return &Authenticator{cfg: cfg, now: time.Now}
}

// Enabled reports whether a secret is configured.
func (a *Authenticator) Enabled() bool {
	return a != nil && len(a.cfg.HMACSecret) > 0
}

// Caller validates the bearer token of r and returns its subject.
func (a *Authenticator) Caller(r *http.Request) (common.Address, error) {
	if !a.Enabled() {
		return common.Address{}, errAuthNotConfigured
	}
	raw := extractBearer(r.Header.Get("Authorization"))
	if raw == "" {
		return common.Address{}, errMissingBearer
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithLeeway(a.cfg.ClockSkew),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.cfg.HMACSecret, nil
	}, opts...)
	if err != nil {
		return common.Address{}, err
	}
	if !token.Valid {
		return common.Address{}, errors.New("token invalid")
	}
	if err := a.checkAudience(claims.Audience); err != nil {
		return common.Address{}, err
	}
	caller, err := crypto.ParseAddress(claims.Subject)
	if err != nil {
		return common.Address{}, fmt.Errorf("subject: %w", err)
	}
	return caller, nil
}

func (a *Authenticator) checkAudience(aud jwt.ClaimStrings) error {
	if len(a.cfg.Audience) == 0 {
		return nil
	}
	for _, want := range a.cfg.Audience {
		for _, got := range aud {
			if got == want {
				return nil
			}
		}
	}
	return errAudienceMismatch
}

// IssueToken signs an HS256 token naming caller as subject.
func IssueToken(secret []byte, caller common.Address, issuer string, audience []string, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errAuthNotConfigured
	}
	if ttl <= 0 {
		return "", errors.New("token ttl must be positive")
	}
	claims := jwt.RegisteredClaims{
		Subject:   caller.Hex(),
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if len(audience) > 0 {
		claims.Audience = jwt.ClaimStrings(audience)
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func extractBearer(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

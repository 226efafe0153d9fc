package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token classes. Access tokens authorize individual requests; refresh
// tokens only mint new access tokens and are the revocable class.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

const (
	defaultIssuer     = "clinic.tj"
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// Claims are carried by both token classes.
type Claims struct {
	Username  string `json:"username"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim back into a user id.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrTokenInvalid
	}
	return id, nil
}

// TokenService issues and verifies signed bearer tokens. The signing
// secret is fixed at construction; rotating it invalidates every token
// issued before the rotation.
type TokenService struct {
	secret     []byte
	method     jwt.SigningMethod
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	revoked    RevocationStore
	now        func() time.Time
}

// TokenOption configures TokenService behavior.
type TokenOption func(*TokenService) error

// WithSigningMethod selects the HMAC signing algorithm by its JOSE name
// (HS256, HS384, HS512).
func WithSigningMethod(alg string) TokenOption {
	return func(s *TokenService) error {
		alg = strings.TrimSpace(alg)
		if alg == "" {
			return nil
		}
		method := jwt.GetSigningMethod(alg)
		if method == nil {
			return fmt.Errorf("auth: unknown signing algorithm %q", alg)
		}
		if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
			return fmt.Errorf("auth: signing algorithm %q is not HMAC", alg)
		}
		s.method = method
		return nil
	}
}

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) error {
		if iss := strings.TrimSpace(issuer); iss != "" {
			s.issuer = iss
		}
		return nil
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) error {
		if ttl > 0 {
			s.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) error {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) TokenOption {
	return func(s *TokenService) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewTokenService constructs a TokenService with optional configuration.
func NewTokenService(secret string, revoked RevocationStore, opts ...TokenOption) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	if revoked == nil {
		return nil, errors.New("auth: revocation store is required")
	}
	s := &TokenService{
		secret:     []byte(secret),
		method:     jwt.SigningMethodHS256,
		issuer:     defaultIssuer,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		revoked:    revoked,
		now:        time.Now,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// IssueAccess signs a short-lived access token for user.
func (s *TokenService) IssueAccess(u *User) (string, time.Time, error) {
	return s.issue(u, TokenTypeAccess, s.accessTTL)
}

// IssueRefresh signs a long-lived refresh token for user.
func (s *TokenService) IssueRefresh(u *User) (string, time.Time, error) {
	return s.issue(u, TokenTypeRefresh, s.refreshTTL)
}

func (s *TokenService) issue(u *User, typ string, ttl time.Duration) (string, time.Time, error) {
	if u == nil || u.ID <= 0 {
		return "", time.Time{}, ErrInvalidInput
	}
	now := s.now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		Username:  u.Username,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, exp, nil
}

// Verify checks the token and returns its claims. Checks run in a fixed
// order and the first failure wins: signature, token class, denylist,
// expiry. Signature first keeps forged input away from the denylist
// lookup; the class check precedes revocation and expiry so a
// wrong-class token reveals nothing about whether it was ever issued.
func (s *TokenService) Verify(ctx context.Context, token, wantType string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenInvalid
	}

	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	parsed, err := parser.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != s.method.Alg() {
			return nil, ErrTokenInvalid
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, ErrTokenInvalid
	}
	if strings.TrimSpace(claims.Subject) == "" || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, ErrTokenInvalid
	}
	if claims.Issuer != s.issuer {
		return nil, ErrTokenInvalid
	}

	if claims.TokenType != wantType {
		return nil, ErrTokenWrongType
	}

	revoked, err := s.revoked.IsRevoked(ctx, token)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	if s.now().After(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

// Revoke appends the token to the denylist. Revoking an already-revoked
// token is not an error.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrTokenInvalid
	}
	return s.revoked.Revoke(ctx, RevokedToken{Token: token, RevokedAt: s.now().UTC()})
}

// PruneRevoked drops denylist entries old enough that the tokens they
// name have expired on their own. Refresh tokens are the longest-lived
// class, so anything revoked more than one refresh lifetime ago is dead
// weight.
func (s *TokenService) PruneRevoked(ctx context.Context) (int64, error) {
	return s.revoked.PruneBefore(ctx, s.now().UTC().Add(-s.refreshTTL))
}

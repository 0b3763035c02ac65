package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/webcrawler/backend/internal/config"
)

// TimeFormat is the layout of the issued_at claim.
const TimeFormat = "2006-01-02 15:04:05"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

func (t TokenType) Valid() bool {
	return t == TokenTypeAccess || t == TokenTypeRefresh
}

var (
	ErrMalformed    = errors.New("token is malformed")
	ErrBadSignature = errors.New("token signature is invalid")
	ErrExpired      = errors.New("token has expired")
	ErrMissingClaim = errors.New("token claims are incomplete")
)

// Claims is the payload signed into every token.
//
// Exp equal to issued_at is the "never expires" marker produced by a negative
// TTL; Decode skips the expiry check for such tokens.
type Claims struct {
	UserID  uint      `json:"user_id"`
	IsAdmin bool      `json:"is_admin"`
	Type    TokenType `json:"type"`
	Issued  string    `json:"issued_at"`
	jwt.RegisteredClaims
}

// IssuedTime parses the issued_at claim.
func (c *Claims) IssuedTime() (time.Time, error) {
	return time.ParseInLocation(TimeFormat, c.Issued, time.UTC)
}

// NeverExpires reports whether the token was minted with a negative TTL.
func (c *Claims) NeverExpires() bool {
	if c.ExpiresAt == nil {
		return false
	}
	issued, err := c.IssuedTime()
	if err != nil {
		return false
	}
	return c.ExpiresAt.Unix() == issued.Unix()
}

// Expiry returns the absolute expiry, or nil for non-expiring tokens.
func (c *Claims) Expiry() *time.Time {
	if c.ExpiresAt == nil || c.NeverExpires() {
		return nil
	}
	t := c.ExpiresAt.Time
	return &t
}

// TokenCodec signs and verifies claims with a shared HMAC-SHA256 secret.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

type CodecOption func(*TokenCodec)

// WithClock overrides the time source used for issuing and expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) { c.now = now }
}

func NewTokenCodec(cfg *config.JWTConfig, opts ...CodecOption) (*TokenCodec, error) {
	if cfg == nil || cfg.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	c := &TokenCodec{
		secret: []byte(cfg.Secret),
		now:    time.Now,
		// Expiry is checked by Decode itself, after the signature, so that the
		// non-expiring marker can be honoured.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewClaims builds claims for a principal. A negative ttl yields a token
// whose exp equals its issue instant.
func (c *TokenCodec) NewClaims(userID uint, isAdmin bool, tokenType TokenType, ttl time.Duration) Claims {
	issued := c.now().UTC().Truncate(time.Second)
	exp := issued
	if ttl >= 0 {
		exp = issued.Add(ttl).Truncate(time.Second)
		if !exp.After(issued) {
			exp = issued.Add(time.Second)
		}
	}

	return Claims{
		UserID:  userID,
		IsAdmin: isAdmin,
		Type:    tokenType,
		Issued:  issued.Format(TimeFormat),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
}

// Issue builds and encodes claims in one step.
func (c *TokenCodec) Issue(userID uint, isAdmin bool, tokenType TokenType, ttl time.Duration) (string, *Claims, error) {
	claims := c.NewClaims(userID, isAdmin, tokenType, ttl)
	token, err := c.Encode(claims)
	if err != nil {
		return "", nil, err
	}
	return token, &claims, nil
}

func (c *TokenCodec) Encode(claims Claims) (string, error) {
	switch {
	case claims.UserID == 0:
		return "", fmt.Errorf("%w: user_id", ErrMissingClaim)
	case claims.Type == "":
		return "", fmt.Errorf("%w: type", ErrMissingClaim)
	case !claims.Type.Valid():
		return "", fmt.Errorf("%w: unknown type %q", ErrMissingClaim, claims.Type)
	case claims.Issued == "":
		return "", fmt.Errorf("%w: issued_at", ErrMissingClaim)
	case claims.ExpiresAt == nil:
		return "", fmt.Errorf("%w: exp", ErrMissingClaim)
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Decode verifies the signature and only then the expiry of token.
func (c *TokenCodec) Decode(token string) (*Claims, error) {
	claims := &Claims{}
	if _, err := c.parser.ParseWithClaims(token, claims, c.keyFunc); err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrTokenUnverifiable) {
			return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if claims.UserID == 0 || !claims.Type.Valid() || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: required claims missing", ErrMalformed)
	}
	if _, err := claims.IssuedTime(); err != nil {
		return nil, fmt.Errorf("%w: issued_at: %v", ErrMalformed, err)
	}

	if !claims.NeverExpires() && c.now().After(claims.ExpiresAt.Time) {
		return nil, ErrExpired
	}

	return claims, nil
}

func (c *TokenCodec) keyFunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return c.secret, nil
}

// HashToken returns the hex SHA-256 digest under which a token is persisted.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// resetAudience keeps password reset tokens apart from session tokens: Decode
// rejects them for lacking user_id, DecodeReset rejects anything else.
const resetAudience = "password-reset"

// ResetClaims authorise one password reset. Subject is the account email and
// Fingerprint binds the token to the password hash it was issued against.
type ResetClaims struct {
	Fingerprint string `json:"pwd"`
	jwt.RegisteredClaims
}

// PasswordFingerprint is a short digest of a stored password hash.
func PasswordFingerprint(passwordHash string) string {
	return HashToken(passwordHash)[:16]
}

// IssueReset signs a reset token for email that expires after ttl.
func (c *TokenCodec) IssueReset(email, passwordHash string, ttl time.Duration) (string, time.Time, error) {
	if email == "" {
		return "", time.Time{}, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	now := c.now().UTC()
	exp := now.Add(ttl)
	claims := ResetClaims{
		Fingerprint: PasswordFingerprint(passwordHash),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Audience:  jwt.ClaimStrings{resetAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// DecodeReset verifies a reset token the same way Decode verifies session
// tokens: signature first, then the claims, then expiry.
func (c *TokenCodec) DecodeReset(token string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	if _, err := c.parser.ParseWithClaims(token, claims, c.keyFunc); err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrTokenUnverifiable) {
			return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if claims.Subject == "" || claims.Fingerprint == "" || claims.ExpiresAt == nil || !slices.Contains(claims.Audience, resetAudience) {
		return nil, fmt.Errorf("%w: not a reset token", ErrMalformed)
	}
	if c.now().After(claims.ExpiresAt.Time) {
		return nil, ErrExpired
	}
	return claims, nil
}

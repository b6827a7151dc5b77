// Package auth guards mutating routes with one shared admin secret and
// short-lived login tokens.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/okian/starboard/internal/domain/clock"
)

const (
	defaultTokenTTL = 12 * time.Hour
	issuer          = "starboard"
	subject         = "admin"
	secretBytes     = 32
)

// Errors returned by the authorizer.
var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrInvalidToken    = errors.New("invalid token")
	ErrNotConfigured   = errors.New("no admin password configured")
)

// Claims is the payload of a login token.
type Claims struct {
	jwt.RegisteredClaims
}

// Authorizer checks the admin password and issues tokens.
type Authorizer struct {
	hash     []byte
	password []byte
	secret   []byte
	ttl      time.Duration
	clock    clock.Clock
}

// New creates an Authorizer. Without WithSigningKey a random key is
// generated, so tokens do not survive a restart.
func New(opts ...Option) (*Authorizer, error) {
	a := &Authorizer{ttl: defaultTokenTTL, clock: clock.System{}}
	for _, opt := range opts {
		opt(a)
	}
	if len(a.hash) > 0 {
		if _, err := bcrypt.Cost(a.hash); err != nil {
			return nil, fmt.Errorf("admin password hash: %w", err)
		}
	}
	if len(a.secret) == 0 {
		a.secret = make([]byte, secretBytes)
		if _, err := rand.Read(a.secret); err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
	}
	return a, nil
}

// Configured reports whether any password can succeed.
func (a *Authorizer) Configured() bool {
	return len(a.hash) > 0 || len(a.password) > 0
}

// CheckPassword compares password against the bcrypt hash when one is set,
// else against the plain default password.
func (a *Authorizer) CheckPassword(password string) error {
	if password == "" {
		return ErrInvalidPassword
	}
	if len(a.hash) > 0 {
		if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
			return ErrInvalidPassword
		}
		return nil
	}
	if len(a.password) == 0 {
		return ErrNotConfigured
	}
	if subtle.ConstantTimeCompare(a.password, []byte(password)) != 1 {
		return ErrInvalidPassword
	}
	return nil
}

// Login checks password and returns a signed token with its expiry.
func (a *Authorizer) Login(password string) (string, time.Time, error) {
	if err := a.CheckPassword(password); err != nil {
		return "", time.Time{}, err
	}
	return a.IssueToken()
}

// IssueToken returns a signed HS256 token valid for the configured TTL.
func (a *Authorizer) IssueToken() (string, time.Time, error) {
	now := a.clock.Now()
	expires := now.Add(a.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// VerifyToken validates signature, issuer and expiry.
func (a *Authorizer) VerifyToken(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.clock.Now),
	)
	tok, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authorize accepts either "Bearer <token>" or a raw admin password.
func (a *Authorizer) Authorize(credential string) bool {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return false
	}
	if token, ok := strings.CutPrefix(credential, "Bearer "); ok {
		_, err := a.VerifyToken(strings.TrimSpace(token))
		return err == nil
	}
	return a.CheckPassword(credential) == nil
}

// HashPassword returns a bcrypt hash suitable for the admin hash setting.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

package auth

import (
	"time"

	"github.com/okian/starboard/internal/domain/clock"
)

// Option configures an Authorizer.
type Option func(*Authorizer)

// WithPasswordHash sets a bcrypt hash. It takes precedence over the plain
// password.
func WithPasswordHash(hash string) Option {
	return func(a *Authorizer) {
		if hash != "" {
			a.hash = []byte(hash)
		}
	}
}

// WithPassword sets the plain default password.
func WithPassword(password string) Option {
	return func(a *Authorizer) {
		if password != "" {
			a.password = []byte(password)
		}
	}
}

// WithSigningKey sets the HMAC key for tokens.
func WithSigningKey(key string) Option {
	return func(a *Authorizer) {
		if key != "" {
			a.secret = []byte(key)
		}
	}
}

// WithTokenTTL sets how long issued tokens stay valid.
func WithTokenTTL(ttl time.Duration) Option {
	return func(a *Authorizer) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(c clock.Clock) Option {
	return func(a *Authorizer) {
		if c != nil {
			a.clock = c
		}
	}
}

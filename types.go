package lodging

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of a verified identity
type Identity interface {
	ID() string
	Email() string
	EmailVerified() bool
	IssuedAt() time.Time
}

// Session holds attributes that are part of an auth session
type Session interface {
	GetUserID() string
	GetUserUUID() (uuid.UUID, error)
	GetEmail() string
	GetIssuedAt() *time.Time
	GetExpiration() *time.Time
}

// AssertionVerifier validates a raw identity assertion from the upstream
// provider and returns the verified identity. Implementations must be safe
// for concurrent use and must not keep request state.
type AssertionVerifier interface {
	Verify(ctx context.Context, rawAssertion string) (Identity, error)
}

// TokenService issues and validates session credentials
type TokenService interface {
	Issue(identity Identity) (string, time.Time, error)
	Validate(token string) (*SessionClaims, error)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSessionTTL() int
	GetIssuer() string
	GetAudience() []string
	GetCookieName() string
	GetProtectedPrefix() string
	GetLoginRoute() string
	GetForbiddenRoute() string
	GetSecureCookies() bool
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] LODGING "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] LODGING "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] LODGING "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] LODGING "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

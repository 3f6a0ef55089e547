package lodging

import (
	"context"
	"strings"
)

// GateDecision is the outcome of evaluating a request against the
// administrative perimeter.
type GateDecision int

const (
	// GateAllow lets the request through.
	GateAllow GateDecision = iota
	// GateRedirectLogin sends the requester to the login route. Every
	// session failure collapses into this decision so the perimeter never
	// reveals why authorization failed.
	GateRedirectLogin
	// GateRedirectForbidden sends an authenticated non-admin away from the
	// protected prefix.
	GateRedirectForbidden
)

func (d GateDecision) String() string {
	switch d {
	case GateAllow:
		return "allow"
	case GateRedirectLogin:
		return "redirect_login"
	case GateRedirectForbidden:
		return "redirect_forbidden"
	default:
		return "unknown"
	}
}

// AccountLookup resolves the persisted account for a session subject.
// The gate checks the stored role on every request rather than trusting
// anything embedded in the credential.
type AccountLookup interface {
	AccountBySubject(ctx context.Context, subject string) (*Account, error)
}

// AccountLookupFunc adapts a function to the AccountLookup interface.
type AccountLookupFunc func(ctx context.Context, subject string) (*Account, error)

func (f AccountLookupFunc) AccountBySubject(ctx context.Context, subject string) (*Account, error) {
	return f(ctx, subject)
}

// Gate guards a route prefix, admitting only sessions whose persisted
// account carries the admin role.
type Gate struct {
	lookup          AccountLookup
	protectedPrefix string
	logger          Logger
}

// GateOption customizes gate construction.
type GateOption func(*Gate)

// WithGatePrefix overrides the protected route prefix.
func WithGatePrefix(prefix string) GateOption {
	return func(g *Gate) {
		if prefix != "" {
			g.protectedPrefix = prefix
		}
	}
}

// WithGateLogger overrides the gate's logger.
func WithGateLogger(logger Logger) GateOption {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGate builds a gate over the given account lookup. The default
// protected prefix is /admin.
func NewGate(lookup AccountLookup, opts ...GateOption) *Gate {
	g := &Gate{
		lookup:          lookup,
		protectedPrefix: "/admin",
		logger:          defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Protects reports whether the path falls under the gate's prefix.
func (g *Gate) Protects(path string) bool {
	return strings.HasPrefix(path, g.protectedPrefix)
}

// Decide evaluates a request path and the session recovered from it.
// Paths outside the protected prefix are always allowed. A missing or
// invalid session redirects to login; an authenticated non-admin, or a
// session whose account no longer exists, redirects away from the
// protected area. Lookup errors other than not-found fail closed to the
// login redirect.
func (g *Gate) Decide(ctx context.Context, path string, session Session) GateDecision {
	if !g.Protects(path) {
		return GateAllow
	}

	if session == nil {
		return GateRedirectLogin
	}

	account, err := g.lookup.AccountBySubject(ctx, session.GetUserID())
	if err != nil {
		if IsNotFoundError(err) {
			return GateRedirectForbidden
		}
		g.logger.Warn("gate: account lookup failed for subject %s: %v", session.GetUserID(), err)
		return GateRedirectLogin
	}

	if account == nil || !account.IsAdmin() {
		return GateRedirectForbidden
	}

	return GateAllow
}

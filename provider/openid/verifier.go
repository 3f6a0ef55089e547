package openid

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	lodging "github.com/goliatone/go-lodging"
)

// assertionClaims is the subset of OpenID claims the portal cares about.
type assertionClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// Verifier validates provider-issued identity assertions using JWKS.
// It is stateless per request and safe for concurrent use.
type Verifier struct {
	config  Config
	jwks    *keyfunc.JWKS
	methods []string
}

var _ lodging.AssertionVerifier = (*Verifier)(nil)

// NewVerifier creates a verifier that resolves signing keys from the
// configured JWKS endpoint.
func NewVerifier(cfg Config) (*Verifier, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.JWKSURL == "" {
		return nil, fmt.Errorf("openid: JWKS URL is required")
	}

	refreshInterval := cfg.RefreshInterval
	if refreshInterval == 0 {
		refreshInterval = time.Hour
	}
	refreshRateLimit := cfg.RefreshRateLimit
	if refreshRateLimit == 0 {
		refreshRateLimit = 5 * time.Minute
	}
	refreshTimeout := cfg.RefreshTimeout
	if refreshTimeout == 0 {
		refreshTimeout = 10 * time.Second
	}

	logger := cfg.logger()

	jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
		RefreshInterval:   refreshInterval,
		RefreshRateLimit:  refreshRateLimit,
		RefreshTimeout:    refreshTimeout,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Warn("openid: JWKS refresh failed: %v", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openid: failed to load JWKS: %w", err)
	}

	return &Verifier{
		config:  cfg,
		jwks:    jwks,
		methods: []string{"RS256"},
	}, nil
}

// NewVerifierWithKeyfunc creates a verifier over an existing key set,
// used in tests with static given keys. When methods is empty RS256 is
// assumed.
func NewVerifierWithKeyfunc(cfg Config, jwks *keyfunc.JWKS, methods ...string) (*Verifier, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if jwks == nil {
		return nil, fmt.Errorf("openid: key set is required")
	}

	if len(methods) == 0 {
		methods = []string{"RS256"}
	}

	return &Verifier{
		config:  cfg,
		jwks:    jwks,
		methods: methods,
	}, nil
}

// Close stops the background JWKS refresh goroutine.
func (v *Verifier) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

// Verify implements lodging.AssertionVerifier.
func (v *Verifier) Verify(ctx context.Context, rawAssertion string) (lodging.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, timeoutError(err)
	}

	if rawAssertion == "" {
		return nil, lodging.ErrAssertionInvalid.WithMetadata(map[string]any{
			"reason": "empty assertion",
		})
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.methods),
		jwt.WithIssuer(v.config.Issuer),
	}
	if len(v.config.Audience) > 0 {
		opts = append(opts, jwt.WithAudience(v.config.Audience[0]))
	}

	claims := &assertionClaims{}
	token, err := jwt.ParseWithClaims(rawAssertion, claims, v.jwks.Keyfunc, opts...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, timeoutError(ctxErr)
		}
		return nil, normalizeVerificationError(err)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, lodging.ErrAssertionInvalid.WithMetadata(map[string]any{
			"reason": "missing subject",
		})
	}

	issuedAt := time.Time{}
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Time
	}

	identity := lodging.NewIdentity(
		claims.Subject,
		claims.Email,
		claims.EmailVerified,
		issuedAt,
	)

	return identity, nil
}

func normalizeVerificationError(err error) error {
	if err == nil {
		return nil
	}

	clone := lodging.ErrAssertionInvalid.Clone()
	if stderrors.Is(err, jwt.ErrTokenExpired) {
		clone = lodging.ErrAssertionExpired.Clone()
	}

	if clone == nil {
		return err
	}

	clone.Source = err
	return clone.WithMetadata(map[string]any{
		"provider": "openid",
		"cause":    err.Error(),
	})
}

func timeoutError(cause error) error {
	if stderrors.Is(cause, context.Canceled) {
		return cause
	}

	clone := lodging.ErrVerificationTimeout.Clone()
	if clone == nil {
		return cause
	}

	clone.Source = cause
	return clone.WithMetadata(map[string]any{
		"provider": "openid",
		"cause":    cause.Error(),
	})
}

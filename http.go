package lodging

import (
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

const (
	// DefaultCookieName is the session cookie, matching the name the
	// web client expects.
	DefaultCookieName = "session"

	localsSessionKey = "lodging_session"
	localsAccountKey = "lodging_account"
)

// SessionFromCookie validates the session cookie on the request and
// returns the recovered session. A missing cookie maps to
// ErrMissingToken so callers treat it like any other validation failure.
func SessionFromCookie(c *fiber.Ctx, cookieName string, tokens TokenService) (Session, error) {
	raw := c.Cookies(cookieName)
	if raw == "" {
		return nil, ErrMissingToken
	}

	claims, err := tokens.Validate(raw)
	if err != nil {
		return nil, err
	}

	return sessionFromClaims(claims)
}

// SessionFromLocals returns the session a middleware stored on the
// request, if any.
func SessionFromLocals(c *fiber.Ctx) (Session, bool) {
	raw := c.Locals(localsSessionKey)
	if raw == nil {
		return nil, false
	}
	session, ok := raw.(Session)
	return session, ok
}

// AccountFromLocals returns the account a middleware stored on the
// request, if any.
func AccountFromLocals(c *fiber.Ctx) (*Account, bool) {
	raw := c.Locals(localsAccountKey)
	if raw == nil {
		return nil, false
	}
	account, ok := raw.(*Account)
	return account, ok
}

// WriteSessionCookie sets the session cookie. HTTPOnly always; Secure
// follows configuration so local development over plain HTTP works.
func WriteSessionCookie(c *fiber.Ctx, name, token string, expiresAt time.Time, ttlSeconds int, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		MaxAge:   ttlSeconds,
		Expires:  expiresAt,
		Secure:   secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie immediately.
func ClearSessionCookie(c *fiber.Ctx, name string, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   0,
		Expires:  time.Unix(0, 0),
		Secure:   secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// RequireSession returns a middleware that rejects requests without a
// valid session cookie. On success the session (and the account it
// resolves to) is stored in Locals and in the request context.
func RequireSession(cookieName string, tokens TokenService, lookup AccountLookup, logger Logger) fiber.Handler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c *fiber.Ctx) error {
		session, err := SessionFromCookie(c, cookieName, tokens)
		if err != nil {
			logger.Debug("session rejected: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		c.Locals(localsSessionKey, session)
		c.SetUserContext(WithSessionContext(c.UserContext(), session))

		if lookup != nil {
			account, err := lookup.AccountBySubject(c.UserContext(), session.GetUserID())
			if err != nil {
				if !IsNotFoundError(err) {
					logger.Warn("session account lookup failed: %v", err)
				}
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Unauthorized",
				})
			}
			c.Locals(localsAccountKey, account)
			c.SetUserContext(WithContext(c.UserContext(), account))
		}

		return c.Next()
	}
}

// GateMiddleware enforces the admin perimeter. The session cookie is
// validated on each request; any failure collapses into the login
// redirect and non-admin accounts are redirected away.
func GateMiddleware(gate *Gate, cookieName string, tokens TokenService, loginRoute, forbiddenRoute string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var session Session
		if s, err := SessionFromCookie(c, cookieName, tokens); err == nil {
			session = s
		}

		switch gate.Decide(c.UserContext(), c.Path(), session) {
		case GateAllow:
			if session != nil {
				c.Locals(localsSessionKey, session)
				c.SetUserContext(WithSessionContext(c.UserContext(), session))
			}
			return c.Next()
		case GateRedirectForbidden:
			return c.Redirect(forbiddenRoute, fiber.StatusFound)
		default:
			return c.Redirect(loginRoute, fiber.StatusFound)
		}
	}
}

// respondError maps domain errors onto HTTP responses using the rich
// error taxonomy. Unknown errors stay opaque.
func respondError(c *fiber.Ctx, logger Logger, err error) error {
	if logger == nil {
		logger = defLogger{}
	}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		status := fiber.StatusInternalServerError
		switch rich.Category {
		case goerrors.CategoryAuth:
			status = fiber.StatusUnauthorized
		case goerrors.CategoryAuthz:
			status = fiber.StatusForbidden
		case goerrors.CategoryNotFound:
			status = fiber.StatusNotFound
		case goerrors.CategoryConflict:
			status = fiber.StatusConflict
		case goerrors.CategoryValidation:
			status = fiber.StatusBadRequest
		}

		if status == fiber.StatusInternalServerError {
			logger.Error("request failed: %v", err)
			return c.Status(status).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		return c.Status(status).JSON(fiber.Map{
			"error": rich.Message,
			"code":  rich.TextCode,
		})
	}

	logger.Error("request failed: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal server error",
	})
}

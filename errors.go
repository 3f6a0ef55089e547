package lodging

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

const (
	textCodeInvalidAssertion    = "INVALID_ASSERTION"
	textCodeExpiredAssertion    = "EXPIRED_ASSERTION"
	textCodeVerificationTimeout = "VERIFICATION_TIMEOUT"
	textCodeMissingToken        = "MISSING_TOKEN"
	textCodeMalformedToken      = "MALFORMED_TOKEN"
	textCodeTokenExpired        = "TOKEN_EXPIRED"
	textCodeDuplicateApp        = "DUPLICATE_APPLICATION"
	textCodeIllegalTransition   = "ILLEGAL_TRANSITION"
	textCodeNotFound            = "NOT_FOUND"
	textCodeForbidden           = "FORBIDDEN"
)

// ErrAssertionInvalid is returned for structurally invalid or unsigned
// identity assertions.
var ErrAssertionInvalid = goerrors.New("invalid identity assertion", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidAssertion).
	WithCode(goerrors.CodeUnauthorized)

// ErrAssertionExpired is returned when the assertion verifies but its
// embedded expiry has passed. Callers surface "please re-authenticate"
// instead of "malformed request".
var ErrAssertionExpired = goerrors.New("identity assertion has expired", goerrors.CategoryAuth).
	WithTextCode(textCodeExpiredAssertion).
	WithCode(goerrors.CodeUnauthorized)

// ErrVerificationTimeout is returned when the caller's deadline elapsed
// before the assertion could be verified.
var ErrVerificationTimeout = goerrors.New("identity verification timed out", goerrors.CategoryOperation).
	WithTextCode(textCodeVerificationTimeout).
	WithCode(goerrors.CodeInternal)

// ErrMissingToken is returned when no session credential was presented.
var ErrMissingToken = goerrors.New("no session credential presented", goerrors.CategoryAuth).
	WithTextCode(textCodeMissingToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned when the credential's integrity check fails.
var ErrTokenMalformed = goerrors.New("session credential failed integrity check", goerrors.CategoryAuth).
	WithTextCode(textCodeMalformedToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned when the credential verifies but is past its
// expiration.
var ErrTokenExpired = goerrors.New("session credential has expired", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrDuplicateApplication is returned when an account submits a second
// application.
var ErrDuplicateApplication = goerrors.New("account already has an application", goerrors.CategoryConflict).
	WithTextCode(textCodeDuplicateApp).
	WithCode(goerrors.CodeConflict)

// ErrIllegalTransition is returned when a status change is requested on an
// application that is not pending. Terminal states reject every transition.
var ErrIllegalTransition = goerrors.New("illegal application status transition", goerrors.CategoryConflict).
	WithTextCode(textCodeIllegalTransition).
	WithCode(goerrors.CodeConflict)

// ErrApplicationNotFound is returned when no application exists for the
// account.
var ErrApplicationNotFound = goerrors.New("application not found", goerrors.CategoryNotFound).
	WithTextCode(textCodeNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrAccountNotFound is returned when no account exists for the subject.
var ErrAccountNotFound = goerrors.New("account not found", goerrors.CategoryNotFound).
	WithTextCode(textCodeNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrActorForbidden is returned when the acting role may not perform the
// requested operation.
var ErrActorForbidden = goerrors.New("actor role is not allowed to perform this operation", goerrors.CategoryAuthz).
	WithTextCode(textCodeForbidden).
	WithCode(goerrors.CodeForbidden)

// ErrDuplicateAccount is returned when registration targets a subject that
// already has an account.
var ErrDuplicateAccount = goerrors.New("account already registered", goerrors.CategoryConflict).
	WithTextCode("DUPLICATE_ACCOUNT").
	WithCode(goerrors.CodeConflict)

// HasTextCode reports whether err carries the given rich-error text code.
func HasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.TextCode == code
	}
	return false
}

// IsNotFoundError reports whether err represents a missing record, either
// from the repository layer or from the domain sentinels.
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if repository.IsRecordNotFound(err) {
		return true
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.Category == goerrors.CategoryNotFound
	}
	return false
}

// isUniqueViolation reports whether err is a unique-constraint failure
// surfaced by the database driver. The existence check in Register/Submit
// races with concurrent inserts; the constraint is the authority, so its
// error maps back to the same conflict sentinel.
func isUniqueViolation(err error) bool {
	for err != nil {
		msg := err.Error()
		if strings.Contains(msg, "UNIQUE constraint failed") ||
			strings.Contains(msg, "duplicate key value violates unique constraint") ||
			strings.Contains(msg, "SQLSTATE 23505") {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return HasTextCode(err, textCodeTokenExpired) ||
		strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return HasTextCode(err, textCodeMalformedToken) ||
		strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

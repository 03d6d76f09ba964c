package jwtauth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeNotConfigured       = "AUTH_NOT_CONFIGURED"
	TextCodeInvalidCreds        = "INVALID_CREDENTIALS"
	TextCodeDuplicateUsername   = "DUPLICATE_USERNAME"
	TextCodeDuplicateEmail      = "DUPLICATE_EMAIL"
	TextCodeTokenExpired        = "TOKEN_EXPIRED"
	TextCodeSignatureInvalid    = "TOKEN_SIGNATURE_INVALID"
	TextCodeTokenMalformed      = "TOKEN_MALFORMED"
	TextCodeInvalidRefresh      = "INVALID_REFRESH_TOKEN"
	TextCodeMissingPayloadField = "MISSING_PAYLOAD_FIELD"
	TextCodeUserNotFound        = "USER_NOT_FOUND"
	TextCodeNoActiveSession     = "NO_ACTIVE_SESSION"
	TextCodeStoreFailure        = "STORE_FAILURE"
)

// ErrNotConfigured is returned when the engine is used before the signing
// key or stores are wired. Fatal, not retryable.
var ErrNotConfigured = goerrors.New("auth module is not configured", goerrors.CategoryInternal).
	WithTextCode(TextCodeNotConfigured)

// ErrInvalidCredentials covers both unknown username and wrong password so
// callers cannot enumerate accounts.
var ErrInvalidCredentials = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrDuplicateUsername is returned when an active user already holds the username.
var ErrDuplicateUsername = goerrors.New("an active user with that username already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateUsername).
	WithCode(goerrors.CodeConflict)

// ErrDuplicateEmail is returned when an active user already holds the email.
var ErrDuplicateEmail = goerrors.New("an active account with that email already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(goerrors.CodeConflict)

// ErrTokenExpired is returned when a token decodes but its exp claim is in the past.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrSignatureInvalid is returned when the token signature does not verify.
var ErrSignatureInvalid = goerrors.New("token signature is invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeSignatureInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that cannot be parsed at all.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidRefreshToken collapses not-found, already-consumed, and expired
// refresh tokens into one externally visible failure.
var ErrInvalidRefreshToken = goerrors.New("invalid refresh token", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidRefresh).
	WithCode(goerrors.CodeUnauthorized)

// ErrMissingPayloadField is returned before any store mutation when the
// caller payload lacks a required claim key.
var ErrMissingPayloadField = goerrors.New("required token payload field is missing", goerrors.CategoryBadInput).
	WithTextCode(TextCodeMissingPayloadField).
	WithCode(goerrors.CodeBadRequest)

// ErrUserNotFound is returned when the named user does not exist.
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrNoActiveSession is returned by logout when the user holds no active token.
var ErrNoActiveSession = goerrors.New("no active session for user", goerrors.CategoryNotFound).
	WithTextCode(TextCodeNoActiveSession).
	WithCode(goerrors.CodeNotFound)

// StoreFailure wraps an underlying storage error at the transaction boundary.
func StoreFailure(err error) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "storage operation failed").
		WithTextCode(TextCodeStoreFailure)
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsInvalidRefreshError reports whether the error is the collapsed
// invalid-refresh failure.
func IsInvalidRefreshError(err error) bool {
	if err == nil {
		return false
	}
	return goerrors.Is(err, ErrInvalidRefreshToken)
}

package emailchange

import (
	goerrors "github.com/goliatone/go-errors"
)

// Stable machine-readable codes attached to rich errors.
const (
	TextCodeTokenNotFound  = "TOKEN_NOT_FOUND"
	TextCodeDirectoryError = "DIRECTORY_ERROR"
)

// Reason codes surfaced to HTTP/CLI callers. These are part of the public
// contract: the confirmation failure page matches on them.
const (
	ReasonMissingToken     = "missing_token"
	ReasonInvalidOrExpired = "invalid_or_expired"
	ReasonDirectoryError   = "directory_error"
	ReasonServerError      = "server_error"
)

func errTokenNotFound() error {
	return goerrors.New("email change token not found or expired", goerrors.CategoryNotFound).
		WithCode(goerrors.CodeNotFound).
		WithTextCode(TextCodeTokenNotFound)
}

// IsTokenNotFound reports whether err represents a missing, consumed, or
// expired token.
func IsTokenNotFound(err error) bool {
	return goerrors.IsNotFound(err)
}

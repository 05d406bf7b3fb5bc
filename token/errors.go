package token

import (
	"net/http"

	"github.com/KOMKZ/go-yogan-auth/errcode"
)

// Reasons carried by token errors, stable for clients.
const (
	ReasonExpired     = "expired"
	ReasonRevoked     = "revoked"
	ReasonFamilyStale = "family-stale"
	ReasonWrongType   = "wrong-type"
	ReasonMissing     = "missing"
	ReasonMalformed   = "malformed"
)

var (
	ErrTokenExpired = errcode.Register(errcode.New(errcode.ModuleToken, 1, "token",
		"error.token.expired", "Token has expired", http.StatusUnauthorized).WithReason(ReasonExpired))

	ErrTokenRevoked = errcode.Register(errcode.New(errcode.ModuleToken, 2, "token",
		"error.token.revoked", "Token has been revoked", http.StatusUnauthorized).WithReason(ReasonRevoked))

	ErrFamilyStale = errcode.Register(errcode.New(errcode.ModuleToken, 3, "token",
		"error.token.family_stale", "Token has been revoked", http.StatusUnauthorized).WithReason(ReasonFamilyStale))

	ErrWrongType = errcode.Register(errcode.New(errcode.ModuleToken, 4, "token",
		"error.token.wrong_type", "Wrong token type", http.StatusUnprocessableEntity).WithReason(ReasonWrongType))

	ErrTokenMissing = errcode.Register(errcode.New(errcode.ModuleToken, 5, "token",
		"error.token.missing", "Missing token", http.StatusUnprocessableEntity).WithReason(ReasonMissing))

	ErrTokenMalformed = errcode.Register(errcode.New(errcode.ModuleToken, 6, "token",
		"error.token.malformed", "Malformed token", http.StatusUnprocessableEntity).WithReason(ReasonMalformed))

	ErrInvalidConfig = errcode.Register(errcode.New(errcode.ModuleToken, 7, "token",
		"error.token.invalid_config", "Invalid token configuration", http.StatusInternalServerError))
)

// IsAuthError reports whether err means the caller must authenticate again.
func IsAuthError(err error) bool {
	le, ok := errcode.As(err)
	return ok && le.Module() == "token" && le.HTTPStatus() == http.StatusUnauthorized
}

package account

import (
	"net/http"

	"github.com/KOMKZ/go-yogan-auth/errcode"
)

var (
	ErrEmailTaken = errcode.Register(errcode.New(errcode.ModuleAccount, 1, "account",
		"error.account.email_taken", "Email is already registered", http.StatusConflict))

	ErrInvalidCredentials = errcode.Register(errcode.New(errcode.ModuleAccount, 2, "account",
		"error.account.invalid_credentials", "Bad email or password", http.StatusUnauthorized).WithReason("bad-credentials"))

	ErrUserNotFound = errcode.Register(errcode.New(errcode.ModuleAccount, 3, "account",
		"error.account.not_found", "User not found", http.StatusUnauthorized).WithReason("unknown-user"))

	ErrNothingToChange = errcode.Register(errcode.New(errcode.ModuleAccount, 4, "account",
		"error.account.nothing_to_change", "Provide a new email or password", http.StatusBadRequest))
)

package limiter

import (
	"fmt"
	"net/http"

	"github.com/KOMKZ/go-yogan-auth/errcode"
)

var (
	ErrLimitExceeded = errcode.Register(errcode.New(errcode.ModuleLimiter, 1, "limiter",
		"error.limiter.exceeded", "Too many requests", http.StatusTooManyRequests))

	ErrInvalidConfig = errcode.Register(errcode.New(errcode.ModuleLimiter, 2, "limiter",
		"error.limiter.invalid_config", "Invalid limiter configuration", http.StatusInternalServerError))
)

// ValidationError points at the rule and field that failed.
type ValidationError struct {
	Rule    string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("limiter rule %q: %s %s", e.Rule, e.Field, e.Message)
	}
	return fmt.Sprintf("limiter config: %s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

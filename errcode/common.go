package errcode

import "net/http"

const (
	ModuleCommon  = 1
	ModuleToken   = 10
	ModuleAccount = 20
	ModuleLimiter = 30
	ModuleStore   = 40
	ModuleHistory = 50
)

var (
	ErrInternal = Register(New(ModuleCommon, 1000, "common", "error.common.internal",
		"Internal server error", http.StatusInternalServerError))
	ErrBadRequest = Register(New(ModuleCommon, 1001, "common", "error.common.bad_request",
		"Malformed request", http.StatusBadRequest))
	ErrNotFound = Register(New(ModuleCommon, 1004, "common", "error.common.not_found",
		"Resource not found", http.StatusNotFound))
	ErrMethodNotAllowed = Register(New(ModuleCommon, 1005, "common", "error.common.method_not_allowed",
		"Method not allowed", http.StatusMethodNotAllowed))
	ErrValidation = Register(New(ModuleCommon, 1010, "common", "error.common.validation_failed",
		"Validation failed", http.StatusBadRequest))
)

// Package errcode defines layered error codes shared by every module.
//
// A code is moduleCode*10000 + businessCode, e.g. 100003 is token/0003.
// Module codes: 1 common, 10 token, 20 account, 30 limiter, 40 token store, 50 history.
package errcode

import (
	"errors"
	"fmt"
	"net/http"
)

// LayeredError carries a stable code, an HTTP status and optional context.
// All With* methods return a copy; package-level sentinels are never mutated.
type LayeredError struct {
	module     string
	code       int
	msgKey     string
	msg        string
	reason     string
	httpStatus int
	data       map[string]interface{}
	cause      error
}

// New creates a LayeredError. httpStatus defaults to 200.
func New(moduleCode, businessCode int, module, msgKey, msg string, httpStatus ...int) *LayeredError {
	status := http.StatusOK
	if len(httpStatus) > 0 {
		status = httpStatus[0]
	}
	return &LayeredError{
		module:     module,
		code:       moduleCode*10000 + businessCode,
		msgKey:     msgKey,
		msg:        msg,
		httpStatus: status,
		data:       make(map[string]interface{}),
	}
}

func (e *LayeredError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *LayeredError) Code() int {
	return e.code
}

func (e *LayeredError) Module() string {
	return e.module
}

// MsgKey is the i18n key, e.g. "error.token.revoked".
func (e *LayeredError) MsgKey() string {
	return e.msgKey
}

func (e *LayeredError) Message() string {
	return e.msg
}

// Reason is a short machine-readable tag such as "expired" or "wrong-type".
func (e *LayeredError) Reason() string {
	return e.reason
}

func (e *LayeredError) HTTPStatus() int {
	return e.httpStatus
}

func (e *LayeredError) Data() map[string]interface{} {
	return e.data
}

func (e *LayeredError) Cause() error {
	return e.cause
}

func (e *LayeredError) Unwrap() error {
	return e.cause
}

func (e *LayeredError) WithMsg(msg string) *LayeredError {
	clone := *e
	clone.msg = msg
	return &clone
}

func (e *LayeredError) WithMsgf(format string, args ...interface{}) *LayeredError {
	clone := *e
	clone.msg = fmt.Sprintf(format, args...)
	return &clone
}

func (e *LayeredError) WithReason(reason string) *LayeredError {
	clone := *e
	clone.reason = reason
	return &clone
}

func (e *LayeredError) WithData(key string, value interface{}) *LayeredError {
	clone := *e
	clone.data = e.cloneData()
	clone.data[key] = value
	return &clone
}

func (e *LayeredError) WithFields(fields map[string]interface{}) *LayeredError {
	clone := *e
	clone.data = e.cloneData()
	for k, v := range fields {
		clone.data[k] = v
	}
	return &clone
}

func (e *LayeredError) WithHTTPStatus(status int) *LayeredError {
	clone := *e
	clone.httpStatus = status
	return &clone
}

// Wrap attaches cause. A nil cause returns e unchanged.
func (e *LayeredError) Wrap(cause error) *LayeredError {
	if cause == nil {
		return e
	}
	clone := *e
	clone.cause = cause
	return &clone
}

func (e *LayeredError) Wrapf(cause error, format string, args ...interface{}) *LayeredError {
	clone := e.WithMsgf(format, args...)
	clone.cause = cause
	return clone
}

// Is compares codes, so errors.Is(err, ErrTokenRevoked) survives WithMsg and Wrap.
func (e *LayeredError) Is(target error) bool {
	t, ok := target.(*LayeredError)
	if !ok {
		return false
	}
	return e.code == t.code
}

func (e *LayeredError) String() string {
	if e.cause != nil {
		return fmt.Sprintf("LayeredError{code:%d, module:%s, reason:%s, msg:%s, cause:%v}",
			e.code, e.module, e.reason, e.msg, e.cause)
	}
	return fmt.Sprintf("LayeredError{code:%d, module:%s, reason:%s, msg:%s}",
		e.code, e.module, e.reason, e.msg)
}

func (e *LayeredError) cloneData() map[string]interface{} {
	data := make(map[string]interface{}, len(e.data))
	for k, v := range e.data {
		data[k] = v
	}
	return data
}

// As extracts the outermost LayeredError in err's chain.
func As(err error) (*LayeredError, bool) {
	var le *LayeredError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

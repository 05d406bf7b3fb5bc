package httpx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KOMKZ/go-yogan-auth/database"
	"github.com/KOMKZ/go-yogan-auth/errcode"
	"github.com/KOMKZ/go-yogan-auth/logger"
)

// ErrorBody is rendered for every failure. Code mirrors the HTTP status,
// ErrorCode is the layered code.
type ErrorBody struct {
	Code      int                    `json:"code"`
	ErrorCode int                    `json:"error_code,omitempty"`
	Message   string                 `json:"message"`
	Reason    string                 `json:"reason,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// MessageBody is the minimal success payload for endpoints without data.
type MessageBody struct {
	Message string `json:"message"`
}

// JSON writes resp as-is. A nil resp renders as {}.
func JSON(c *gin.Context, status int, resp interface{}) {
	if resp == nil {
		resp = gin.H{}
	}
	c.JSON(status, resp)
}

// Abort writes an ErrorBody and stops the middleware chain.
func Abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, ErrorBody{Code: status, Message: msg})
}

// NoRouteHandler renders unknown routes as JSON 404.
func NoRouteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		HandleError(c, errcode.ErrNotFound.WithMsgf("Route not found: %s %s", c.Request.Method, c.Request.URL.Path))
	}
}

// NoMethodHandler renders 405 as JSON.
func NoMethodHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		HandleError(c, errcode.ErrMethodNotAllowed.WithMsgf("Method not allowed: %s %s", c.Request.Method, c.Request.URL.Path))
	}
}

// HandleError is the single place where errors become HTTP responses.
// LayeredErrors keep their status and code; record-not-found maps to 404;
// anything else is a 500 with a generic message.
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	ctx := c.Request.Context()
	cfg := getErrorLoggingConfig(c)

	le, ok := errcode.As(err)
	if !ok && errors.Is(err, database.ErrRecordNotFound) {
		le, ok = errcode.ErrNotFound.Wrap(err), true
	}
	if !ok {
		le = errcode.ErrInternal.Wrap(err)
	}

	if shouldLogError(cfg, le) {
		fields := []zap.Field{
			zap.Int("error_code", le.Code()),
			zap.String("error_msg", le.Message()),
			zap.String("path", c.FullPath()),
		}
		if cfg.FullErrorChain {
			fields = append(fields, zap.String("error_chain", le.String()), zap.Error(err))
		}

		switch {
		case le.HTTPStatus() >= http.StatusInternalServerError:
			logger.ErrorCtx(ctx, "httpx", "request failed", fields...)
		case cfg.LogLevel == "info":
			logger.InfoCtx(ctx, "httpx", "request failed", fields...)
		case cfg.LogLevel == "warn":
			logger.WarnCtx(ctx, "httpx", "request failed", fields...)
		default:
			logger.ErrorCtx(ctx, "httpx", "request failed", fields...)
		}
	}

	body := ErrorBody{
		Code:      le.HTTPStatus(),
		ErrorCode: le.Code(),
		Message:   le.Message(),
		Reason:    le.Reason(),
	}
	if len(le.Data()) > 0 {
		body.Data = le.Data()
	}
	c.AbortWithStatusJSON(le.HTTPStatus(), body)
}

func shouldLogError(cfg errorLoggingConfigInternal, err *errcode.LayeredError) bool {
	if err.HTTPStatus() >= http.StatusInternalServerError {
		return true
	}
	return cfg.Enable && !cfg.IgnoreStatusMap[err.HTTPStatus()]
}

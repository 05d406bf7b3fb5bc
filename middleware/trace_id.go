// Package middleware holds the gin middleware in front of the auth routes.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

const (
	TraceIDKey    = "trace_id"
	TraceIDHeader = "X-Trace-ID"
)

type TraceConfig struct {
	Key                  string
	Header               string
	EnableResponseHeader bool
	Generator            func() string
}

func DefaultTraceConfig() TraceConfig {
	return TraceConfig{
		Key:                  TraceIDKey,
		Header:               TraceIDHeader,
		EnableResponseHeader: true,
		Generator:            uuid.NewString,
	}
}

// TraceID puts a trace id on the gin context, the request context and the
// response header. An active OTel span wins over the incoming header.
func TraceID(cfg TraceConfig) gin.HandlerFunc {
	if cfg.Key == "" {
		cfg.Key = TraceIDKey
	}
	if cfg.Header == "" {
		cfg.Header = TraceIDHeader
	}
	if cfg.Generator == nil {
		cfg.Generator = uuid.NewString
	}

	return func(c *gin.Context) {
		var traceID string
		if sc := trace.SpanFromContext(c.Request.Context()).SpanContext(); sc.IsValid() {
			traceID = sc.TraceID().String()
		} else {
			traceID = c.GetHeader(cfg.Header)
			if traceID == "" {
				traceID = cfg.Generator()
			}
			//nolint:staticcheck // the logger reads the plain string key
			ctx := context.WithValue(c.Request.Context(), cfg.Key, traceID)
			c.Request = c.Request.WithContext(ctx)
		}

		c.Set(cfg.Key, traceID)
		if cfg.EnableResponseHeader {
			c.Header(cfg.Header, traceID)
		}
		c.Next()
	}
}

func GetTraceID(c *gin.Context) string {
	return c.GetString(TraceIDKey)
}

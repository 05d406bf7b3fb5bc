package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSConfig controls cross-origin access for browser clients.
type CORSConfig struct {
	Enable bool `mapstructure:"enable"`

	// AllowOrigins lists exact origins; a single "*" allows any origin.
	AllowOrigins  []string `mapstructure:"allow_origins"`
	AllowMethods  []string `mapstructure:"allow_methods"`
	AllowHeaders  []string `mapstructure:"allow_headers"`
	ExposeHeaders []string `mapstructure:"expose_headers"`

	// AllowCredentials cannot be combined with a "*" origin; the request
	// origin is echoed instead.
	AllowCredentials bool `mapstructure:"allow_credentials"`

	// MaxAge is the preflight cache time in seconds.
	MaxAge int `mapstructure:"max_age"`
}

// DefaultCORSConfig exposes the rate limit, trace and pagination headers so
// browser clients can read them.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", TraceIDHeader},
		ExposeHeaders: []string{
			TraceIDHeader, "Retry-After",
			"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset",
			"X-Total-Count", "X-Page", "X-Page-Size", "X-Total-Pages",
		},
		MaxAge: 43200,
	}
}

func (c *CORSConfig) ApplyDefaults() {
	d := DefaultCORSConfig()
	if len(c.AllowOrigins) == 0 {
		c.AllowOrigins = d.AllowOrigins
	}
	if len(c.AllowMethods) == 0 {
		c.AllowMethods = d.AllowMethods
	}
	if len(c.AllowHeaders) == 0 {
		c.AllowHeaders = d.AllowHeaders
	}
	if c.ExposeHeaders == nil {
		c.ExposeHeaders = d.ExposeHeaders
	}
	if c.MaxAge == 0 {
		c.MaxAge = d.MaxAge
	}
}

// CORS answers preflight requests with 204 and decorates every other
// response. Requests from an origin outside the list pass through untouched.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	cfg.ApplyDefaults()

	wildcard := len(cfg.AllowOrigins) == 1 && cfg.AllowOrigins[0] == "*"
	allowed := make(map[string]struct{}, len(cfg.AllowOrigins))
	for _, o := range cfg.AllowOrigins {
		allowed[o] = struct{}{}
	}
	methods := strings.Join(cfg.AllowMethods, ", ")
	headers := strings.Join(cfg.AllowHeaders, ", ")
	expose := strings.Join(cfg.ExposeHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		allowOrigin := ""
		switch {
		case wildcard && cfg.AllowCredentials:
			allowOrigin = origin
		case wildcard:
			allowOrigin = "*"
		default:
			if _, ok := allowed[origin]; ok {
				allowOrigin = origin
			}
		}
		if allowOrigin == "" {
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", allowOrigin)
		if allowOrigin != "*" {
			h.Add("Vary", "Origin")
		}
		h.Set("Access-Control-Allow-Methods", methods)
		h.Set("Access-Control-Allow-Headers", headers)
		if expose != "" {
			h.Set("Access-Control-Expose-Headers", expose)
		}
		if cfg.AllowCredentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method == http.MethodOptions {
			h.Set("Access-Control-Max-Age", maxAge)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

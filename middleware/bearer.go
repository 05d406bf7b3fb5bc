package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/KOMKZ/go-yogan-auth/httpx"
	"github.com/KOMKZ/go-yogan-auth/token"
)

const (
	claimsKey = "auth:claims"
	rawKey    = "auth:raw_token"
)

// Validator is the part of token.Service the middleware needs.
type Validator interface {
	Validate(ctx context.Context, raw string, expected token.Type) (*token.Claims, error)
}

// RequireToken admits requests carrying a valid bearer token of type expected.
// A missing token is a 422, a rejected one keeps the status of its error.
func RequireToken(v Validator, expected token.Type) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := BearerToken(c)
		if raw == "" {
			httpx.HandleError(c, token.ErrTokenMissing)
			return
		}

		claims, err := v.Validate(c.Request.Context(), raw, expected)
		if err != nil {
			httpx.HandleError(c, err)
			return
		}

		c.Set(claimsKey, claims)
		c.Set(rawKey, raw)
		c.Next()
	}
}

// BearerToken returns the token from "Authorization: Bearer <token>", or "".
func BearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	scheme, raw, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(raw)
}

// Claims returns what RequireToken stored. It panics when the route is not
// behind RequireToken.
func Claims(c *gin.Context) *token.Claims {
	return c.MustGet(claimsKey).(*token.Claims)
}

// RawToken returns the token string RequireToken validated.
func RawToken(c *gin.Context) string {
	return c.GetString(rawKey)
}

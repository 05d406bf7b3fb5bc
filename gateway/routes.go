package gateway

import (
	"github.com/gin-gonic/gin"

	"github.com/KOMKZ/go-yogan-auth/httpx"
	"github.com/KOMKZ/go-yogan-auth/limiter"
	"github.com/KOMKZ/go-yogan-auth/middleware"
	"github.com/KOMKZ/go-yogan-auth/token"
)

// Route names double as limiter route keys.
const (
	RouteSignup           = "signup"
	RouteLogin            = "login"
	RouteLogout           = "logout"
	RouteCompletelyLogout = "completely_logout"
	RouteRefresh          = "refresh"
	RouteAuth             = "auth"
	RouteChanging         = "changing"
	RouteHistory          = "history"
)

// Register mounts /api/v1 on r. Every route is rate limited first, then
// authenticated where it needs a token.
func (h *Handler) Register(r gin.IRouter, fw *limiter.FixedWindow, limits limiter.Config) {
	v1 := r.Group("/api/v1")
	limit := func(route string) gin.HandlerFunc {
		return middleware.RateLimit(fw, limits, route)
	}
	access := middleware.RequireToken(h.tokens, token.TypeAccess)
	refresh := middleware.RequireToken(h.tokens, token.TypeRefresh)

	v1.POST("/signup", limit(RouteSignup), wrapCreated(h.signup))
	v1.POST("/login", limit(RouteLogin), httpx.Wrap(h.login))
	v1.DELETE("/logout", limit(RouteLogout), access, httpx.Wrap(h.logout))
	v1.DELETE("/completely_logout", limit(RouteCompletelyLogout), access, httpx.Wrap(h.completelyLogout))
	v1.POST("/refresh", limit(RouteRefresh), refresh, httpx.Wrap(h.refresh))
	v1.GET("/auth", limit(RouteAuth), access, httpx.Wrap(h.auth))
	v1.PATCH("/changing", limit(RouteChanging), access, httpx.Wrap(h.changing))
	v1.GET("/history", limit(RouteHistory), access, httpx.Wrap(h.historyList))
}

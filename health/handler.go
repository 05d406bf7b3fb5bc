package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler renders the aggregate: 200 when healthy, 503 otherwise.
func Handler(a *Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := a.Check(c.Request.Context())
		status := http.StatusOK
		if !resp.IsHealthy() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, resp)
	}
}

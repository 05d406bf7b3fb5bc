package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KOMKZ/go-yogan-auth/validator"
)

// HandlerFunc is a typed handler; Req carries json/form/uri tags.
type HandlerFunc[Req any, Resp any] func(c *gin.Context, req *Req) (*Resp, error)

type wrapOptions struct {
	status int
}

type WrapOption func(*wrapOptions)

// WithStatus sets the success status, e.g. 201 for creations.
func WithStatus(status int) WrapOption {
	return func(o *wrapOptions) { o.status = status }
}

// Wrap binds, validates, calls handler and renders the result.
// Any error goes through HandleError.
func Wrap[Req any, Resp any](handler HandlerFunc[Req, Resp], opts ...WrapOption) gin.HandlerFunc {
	o := wrapOptions{status: http.StatusOK}
	for _, opt := range opts {
		opt(&o)
	}

	return func(c *gin.Context) {
		var req Req
		if err := Parse(c, &req); err != nil {
			HandleError(c, err)
			return
		}

		if v, ok := any(&req).(validator.Validatable); ok {
			if err := validator.ValidateRequest(v); err != nil {
				HandleError(c, err)
				return
			}
		}

		resp, err := handler(c, &req)
		if err != nil {
			HandleError(c, err)
			return
		}

		JSON(c, o.status, resp)
	}
}

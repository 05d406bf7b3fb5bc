package httpx

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/KOMKZ/go-yogan-auth/errcode"
)

func init() {
	// a body with unexpected keys is a client error, not something to ignore
	binding.EnableDecoderDisallowUnknownFields = true
}

// Parse binds uri, query and JSON body (when present) into req.
// Binding failures become errcode.ErrBadRequest.
func Parse(c *gin.Context, req interface{}) error {
	if len(c.Params) > 0 {
		if err := c.ShouldBindUri(req); err != nil {
			return errcode.ErrBadRequest.WithMsg("Invalid path parameters").Wrap(err)
		}
	}

	if err := c.ShouldBindQuery(req); err != nil {
		return errcode.ErrBadRequest.WithMsg("Invalid query parameters").Wrap(err)
	}

	if c.Request.ContentLength != 0 && c.Request.Body != nil {
		if err := c.ShouldBindJSON(req); err != nil {
			return errcode.ErrBadRequest.WithMsg("Malformed JSON body").Wrap(err)
		}
	}

	return nil
}

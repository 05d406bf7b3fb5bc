package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KOMKZ/go-yogan-auth/database"
	"github.com/KOMKZ/go-yogan-auth/errcode"
	"github.com/KOMKZ/go-yogan-auth/httpx/types"
	"github.com/KOMKZ/go-yogan-auth/testutil"
)

type createReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r createReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 0)),
	)
}

type createResp struct {
	ID string `json:"id"`
}

type listReq struct {
	types.PageQuery
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorLoggingMiddleware(DefaultErrorLoggingConfig()))
	r.NoRoute(NoRouteHandler())
	return r
}

func TestWrap_SuccessStatus(t *testing.T) {
	r := newEngine()
	r.POST("/items", Wrap(func(c *gin.Context, req *createReq) (*createResp, error) {
		return &createResp{ID: "id-" + req.Email}, nil
	}, WithStatus(http.StatusCreated)))

	resp := testutil.POST("/items").WithJSON(createReq{Email: "a@b.com", Password: "longpass1"}).Do(r)
	require.Equal(t, http.StatusCreated, resp.Status())

	var body createResp
	require.NoError(t, resp.JSON(&body))
	assert.Equal(t, "id-a@b.com", body.ID)
}

func TestWrap_ValidationError(t *testing.T) {
	r := newEngine()
	r.POST("/items", Wrap(func(c *gin.Context, req *createReq) (*createResp, error) {
		t.Fatal("handler must not run")
		return nil, nil
	}))

	resp := testutil.POST("/items").WithJSON(createReq{Email: "a@b.com", Password: "short"}).Do(r)
	require.Equal(t, http.StatusBadRequest, resp.Status())

	var body ErrorBody
	require.NoError(t, resp.JSON(&body))
	assert.Equal(t, http.StatusBadRequest, body.Code)
	assert.Equal(t, errcode.ErrValidation.Code(), body.ErrorCode)
	assert.Contains(t, body.Data["fields"], "password")
}

func TestWrap_UnknownFieldsRejected(t *testing.T) {
	r := newEngine()
	r.POST("/items", Wrap(func(c *gin.Context, req *createReq) (*createResp, error) {
		return &createResp{}, nil
	}))

	resp := testutil.POST("/items").WithJSON(map[string]string{"mail": "a@b.com", "password": "longpass1"}).Do(r)
	assert.Equal(t, http.StatusBadRequest, resp.Status())
}

func TestWrap_QueryBinding(t *testing.T) {
	r := newEngine()
	r.GET("/items", Wrap(func(c *gin.Context, req *listReq) (*types.PageMeta, error) {
		req.ApplyDefaults()
		meta := types.NewPageMeta(45, req.Page, req.PageSize)
		return &meta, nil
	}))

	resp := testutil.GET("/items").WithQuery("page", "2").Do(r)
	require.Equal(t, http.StatusOK, resp.Status())

	var meta types.PageMeta
	require.NoError(t, resp.JSON(&meta))
	assert.Equal(t, 2, meta.Page)
	assert.Equal(t, types.DefaultPageSize, meta.PageSize)
	assert.Equal(t, 3, meta.Pages)

	resp = testutil.GET("/items").WithQuery("page_size", "500").Do(r)
	assert.Equal(t, http.StatusBadRequest, resp.Status())
}

type itemReq struct {
	ID int `uri:"id" binding:"required"`
}

func TestWrap_URIBinding(t *testing.T) {
	r := newEngine()
	r.GET("/items/:id", Wrap(func(c *gin.Context, req *itemReq) (*createResp, error) {
		return &createResp{ID: fmt.Sprint(req.ID)}, nil
	}))

	resp := testutil.GET("/items/42").Do(r)
	require.Equal(t, http.StatusOK, resp.Status())
	var body createResp
	require.NoError(t, resp.JSON(&body))
	assert.Equal(t, "42", body.ID)

	resp = testutil.GET("/items/abc").Do(r)
	require.Equal(t, http.StatusBadRequest, resp.Status())
	var eb ErrorBody
	require.NoError(t, resp.JSON(&eb))
	assert.Equal(t, errcode.ErrBadRequest.Code(), eb.ErrorCode)
}

func TestHandleError_Mapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		reason string
	}{
		{"layered", errcode.New(10, 3, "token", "k", "Token has been revoked", http.StatusUnauthorized).WithReason("revoked"), http.StatusUnauthorized, "revoked"},
		{"wrapped layered", fmt.Errorf("refresh: %w", errcode.New(40, 1, "store", "k", "Unavailable", http.StatusServiceUnavailable)), http.StatusServiceUnavailable, ""},
		{"not found", fmt.Errorf("find user: %w", database.ErrRecordNotFound), http.StatusNotFound, ""},
		{"unknown", errors.New("secret internals"), http.StatusInternalServerError, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newEngine()
			r.GET("/x", func(c *gin.Context) { HandleError(c, tc.err) })

			resp := testutil.GET("/x").Do(r)
			require.Equal(t, tc.status, resp.Status())

			var body ErrorBody
			require.NoError(t, resp.JSON(&body))
			assert.Equal(t, tc.status, body.Code)
			assert.Equal(t, tc.reason, body.Reason)
			assert.NotContains(t, body.Message, "secret internals")
		})
	}
}

func TestNoRouteHandler(t *testing.T) {
	resp := testutil.GET("/missing").Do(newEngine())
	assert.Equal(t, http.StatusNotFound, resp.Status())
}

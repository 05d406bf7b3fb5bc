// Package gateway exposes the account and token services over HTTP.
package gateway

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/KOMKZ/go-yogan-auth/account"
	"github.com/KOMKZ/go-yogan-auth/history"
	"github.com/KOMKZ/go-yogan-auth/httpx"
	"github.com/KOMKZ/go-yogan-auth/httpx/types"
	"github.com/KOMKZ/go-yogan-auth/middleware"
	"github.com/KOMKZ/go-yogan-auth/token"
)

// Tokens is the part of token.Service the handlers call directly.
type Tokens interface {
	middleware.Validator
	Refresh(ctx context.Context, raw string) (*token.Pair, error)
	Revoke(ctx context.Context, raw string) error
}

// Accounts is the part of account.Service the handlers call.
type Accounts interface {
	Signup(ctx context.Context, email, password string) (*token.Pair, error)
	Login(ctx context.Context, email, password string) (*token.Pair, error)
	Me(ctx context.Context, userID string) (*account.User, error)
	ChangeCredentials(ctx context.Context, userID, email, password string) (*token.Pair, error)
	LogoutEverywhere(ctx context.Context, userID string) (*token.Pair, error)
}

type Handler struct {
	tokens   Tokens
	accounts Accounts
	history  history.Reader
}

func NewHandler(tokens Tokens, accounts Accounts, hist history.Reader) *Handler {
	return &Handler{tokens: tokens, accounts: accounts, history: hist}
}

func (h *Handler) signup(c *gin.Context, req *signupReq) (*token.Pair, error) {
	return h.accounts.Signup(c.Request.Context(), req.Email, req.Password)
}

func (h *Handler) login(c *gin.Context, req *loginReq) (*token.Pair, error) {
	return h.accounts.Login(c.Request.Context(), req.Email, req.Password)
}

func (h *Handler) logout(c *gin.Context, _ *emptyReq) (*httpx.MessageBody, error) {
	if err := h.tokens.Revoke(c.Request.Context(), middleware.RawToken(c)); err != nil {
		return nil, err
	}
	return &httpx.MessageBody{Message: "Successfully logged out"}, nil
}

func (h *Handler) completelyLogout(c *gin.Context, _ *emptyReq) (*token.Pair, error) {
	return h.accounts.LogoutEverywhere(c.Request.Context(), middleware.Claims(c).Subject)
}

func (h *Handler) refresh(c *gin.Context, _ *emptyReq) (*token.Pair, error) {
	return h.tokens.Refresh(c.Request.Context(), middleware.RawToken(c))
}

func (h *Handler) auth(c *gin.Context, _ *emptyReq) (*userResp, error) {
	u, err := h.accounts.Me(c.Request.Context(), middleware.Claims(c).Subject)
	if err != nil {
		return nil, err
	}
	var resp userResp
	if err := types.Copy(&resp, u); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (h *Handler) changing(c *gin.Context, req *changingReq) (*token.Pair, error) {
	return h.accounts.ChangeCredentials(c.Request.Context(), middleware.Claims(c).Subject, req.Email, req.Password)
}

// historyList renders a bare JSON array; pagination travels in headers.
func (h *Handler) historyList(c *gin.Context, req *historyReq) (*[]history.Event, error) {
	req.ApplyDefaults()
	events, total, err := h.history.List(c.Request.Context(), middleware.Claims(c).Subject, req.Page, req.PageSize)
	if err != nil {
		return nil, err
	}

	meta := types.NewPageMeta(total, req.Page, req.PageSize)
	c.Header("X-Total-Count", strconv.FormatInt(meta.Total, 10))
	c.Header("X-Page", strconv.Itoa(meta.Page))
	c.Header("X-Page-Size", strconv.Itoa(meta.PageSize))
	c.Header("X-Total-Pages", strconv.Itoa(meta.Pages))
	return &events, nil
}

func wrapCreated[Req any, Resp any](fn httpx.HandlerFunc[Req, Resp]) gin.HandlerFunc {
	return httpx.Wrap(fn, httpx.WithStatus(http.StatusCreated))
}

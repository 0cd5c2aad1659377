package rpc

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/park285/ledger-chess/internal/account"
	"github.com/park285/ledger-chess/internal/ledger"
	"github.com/park285/ledger-chess/internal/msgcat"
	"github.com/park285/ledger-chess/internal/obslog"
	"github.com/park285/ledger-chess/internal/runtime"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Ledger is what the server exposes: transaction submission and reads.
type Ledger interface {
	Submit(ctx context.Context, tx *runtime.Transaction) (*runtime.Receipt, error)
	Account(ctx context.Context, addr account.Address) (*ledger.Account, error)
}

const (
	pathTransactions = "/v1/transactions"
	pathAccounts     = "/v1/accounts/"
	pathHealth       = "/healthz"
	headerRequestID  = "X-Request-Id"
	maxBodySize      = 64 << 10
)

type Server struct {
	ledger Ledger
	msgs   *msgcat.Catalog
	srv    *fasthttp.Server
}

func NewServer(l Ledger, msgs *msgcat.Catalog) *Server {
	s := &Server{ledger: l, msgs: msgs}
	s.srv = &fasthttp.Server{
		Handler:            s.Handle,
		Name:               "chess-node",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		MaxRequestBodySize: maxBodySize,
	}
	return s
}

func (s *Server) ListenAndServe(addr string) error { return s.srv.ListenAndServe(addr) }

func (s *Server) Serve(ln net.Listener) error { return s.srv.Serve(ln) }

func (s *Server) Shutdown(ctx context.Context) error { return s.srv.ShutdownWithContext(ctx) }

// Handle routes one request.
func (s *Server) Handle(ctx *fasthttp.RequestCtx) {
	reqID := strings.TrimSpace(string(ctx.Request.Header.Peek(headerRequestID)))
	if reqID == "" {
		reqID = uuid.NewString()
	}
	ctx.Response.Header.Set(headerRequestID, reqID)
	start := time.Now()

	path := string(ctx.Path())
	switch {
	case path == pathHealth:
		s.writeJSON(ctx, fasthttp.StatusOK, map[string]string{"status": "ok"})
	case path == pathTransactions && ctx.IsPost():
		s.submit(ctx, reqID)
	case strings.HasPrefix(path, pathAccounts) && ctx.IsGet():
		s.account(ctx, reqID, strings.TrimPrefix(path, pathAccounts))
	case path == pathTransactions || strings.HasPrefix(path, pathAccounts):
		s.writeError(ctx, reqID, fasthttp.StatusMethodNotAllowed, "InvalidArgument", "method not allowed", nil)
	default:
		s.writeError(ctx, reqID, fasthttp.StatusNotFound, "NotFound", "no such route", map[string]any{"account": path})
	}

	obslog.L().Debug("rpc_request",
		zap.String("request_id", reqID),
		zap.ByteString("method", ctx.Method()),
		zap.String("path", path),
		zap.Int("status", ctx.Response.StatusCode()),
		zap.Duration("took", time.Since(start)),
	)
}

func (s *Server) submit(ctx *fasthttp.RequestCtx, reqID string) {
	var tx runtime.Transaction
	if err := json.Unmarshal(ctx.PostBody(), &tx); err != nil {
		s.writeError(ctx, reqID, fasthttp.StatusBadRequest, "InvalidArgument", "decode transaction: "+err.Error(), nil)
		return
	}
	rec, err := s.ledger.Submit(ctx, &tx)
	if err != nil {
		code := runtime.CodeOf(err)
		if code == "Internal" {
			obslog.L().Error("rpc_submit_failed", zap.String("request_id", reqID), zap.Error(err))
		}
		s.writeError(ctx, reqID, statusFor(code), code, err.Error(), nil)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, SubmitResponse{Receipt: rec})
}

func (s *Server) account(ctx *fasthttp.RequestCtx, reqID, raw string) {
	addr, err := account.ParseAddress(raw)
	if err != nil {
		s.writeError(ctx, reqID, fasthttp.StatusBadRequest, "InvalidArgument", err.Error(), nil)
		return
	}
	acct, err := s.ledger.Account(ctx, addr)
	if err != nil {
		obslog.L().Error("rpc_account_failed", zap.String("request_id", reqID), zap.Error(err))
		s.writeError(ctx, reqID, fasthttp.StatusInternalServerError, "Internal", err.Error(), nil)
		return
	}
	if acct == nil {
		s.writeError(ctx, reqID, fasthttp.StatusNotFound, "NotFound", "no account", map[string]any{"account": addr.String()})
		return
	}
	view, err := viewOf(addr, acct)
	if err != nil {
		s.writeError(ctx, reqID, fasthttp.StatusInternalServerError, "Internal", err.Error(), nil)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, view)
}

func statusFor(code string) int {
	switch code {
	case "InvalidArgument", "OutOfBounds":
		return fasthttp.StatusBadRequest
	case "MissingSignature", "BadSignature":
		return fasthttp.StatusUnauthorized
	case "Unauthorized", "InvalidToken":
		return fasthttp.StatusForbidden
	case "UnknownProgram", "AccountNotFound", "NotFound":
		return fasthttp.StatusNotFound
	case "Conflict":
		return fasthttp.StatusConflict
	case "Internal":
		return fasthttp.StatusInternalServerError
	default:
		return fasthttp.StatusUnprocessableEntity
	}
}

// writeError renders the message from the catalog; detail is the fallback
// when the catalog has no usable template.
func (s *Server) writeError(ctx *fasthttp.RequestCtx, reqID string, status int, code, detail string, data map[string]any) {
	msg := s.msgs.ErrorMessage(code, data, detail)
	s.writeJSON(ctx, status, ErrorBody{Code: code, Message: msg, RequestID: reqID})
}

func (s *Server) writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		ctx.Error(`{"code":"Internal","message":"encode response"}`, fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

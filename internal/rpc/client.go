package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/park285/ledger-chess/internal/account"
	"github.com/park285/ledger-chess/internal/runtime"
	"github.com/valyala/fasthttp"
)

// Client talks to a chess node. Reads retry on transport errors and 5xx;
// submissions are sent once, since a lost response may still have committed.
type Client struct {
	base    string
	http    *fasthttp.Client
	timeout time.Duration
	tries   int
}

type Option func(*Client)

// WithTimeout bounds each attempt; a shorter context deadline wins.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetry sets the attempt count for reads.
func WithRetry(tries int) Option {
	return func(c *Client) { c.tries = tries }
}

// WithDialer replaces the TCP dialer, e.g. with an in-memory listener.
func WithDialer(dial func(addr string) (net.Conn, error)) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &fasthttp.Client{
			Name:            "chessctl",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			MaxConnsPerHost: 64,
		},
		timeout: 10 * time.Second,
		tries:   3,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tries < 1 {
		c.tries = 1
	}
	return c
}

func (c *Client) Submit(ctx context.Context, tx *runtime.Transaction) (*runtime.Receipt, error) {
	var resp SubmitResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, pathTransactions, tx, &resp, false); err != nil {
		return nil, err
	}
	return resp.Receipt, nil
}

// Account returns the decoded account, or an APIError with code NotFound.
func (c *Client) Account(ctx context.Context, addr account.Address) (*AccountView, error) {
	var view AccountView
	if err := c.doJSON(ctx, fasthttp.MethodGet, pathAccounts+addr.String(), nil, &view, true); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, fasthttp.MethodGet, pathHealth, nil, nil, true)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any, retry bool) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = b
	}
	tries := 1
	if retry {
		tries = c.tries
	}

	var err error
	for n := 1; ; n++ {
		var again bool
		again, err = c.attempt(ctx, method, path, body, out)
		if err == nil || !again || n == tries {
			return err
		}
		if waitErr := wait(ctx, backoff(n)); waitErr != nil {
			return err
		}
	}
}

// attempt performs one exchange and reports whether a failure is worth
// repeating.
func (c *Client) attempt(ctx context.Context, method, path string, body []byte, out any) (bool, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(method)
	req.SetRequestURI(c.base + path)
	req.Header.SetContentType("application/json")
	if body != nil {
		req.SetBody(body)
	}

	if err := c.http.DoDeadline(req, resp, c.deadline(ctx)); err != nil {
		return true, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if status := resp.StatusCode(); status < 200 || status >= 300 {
		return retryable(status), decodeAPIError(status, resp.Body())
	}
	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return false, fmt.Errorf("decode response: %w", err)
		}
	}
	return false, nil
}

func decodeAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status}
	if err := json.Unmarshal(body, &e.ErrorBody); err != nil || e.Code == "" {
		e.Code = "Internal"
		e.Message = clip(string(body), 512)
	}
	return e
}

func (c *Client) deadline(ctx context.Context) time.Time {
	dl := time.Now().Add(c.timeout)
	if ctxDL, ok := ctx.Deadline(); ok && ctxDL.Before(dl) {
		return ctxDL
	}
	return dl
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoff doubles from 100ms and stops growing after the sixth attempt.
func backoff(attempt int) time.Duration {
	attempt = min(max(attempt, 1), 6)
	return (100 * time.Millisecond) << (attempt - 1)
}

func retryable(status int) bool {
	switch status {
	case fasthttp.StatusInternalServerError, fasthttp.StatusBadGateway,
		fasthttp.StatusServiceUnavailable, fasthttp.StatusGatewayTimeout:
		return true
	}
	return false
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

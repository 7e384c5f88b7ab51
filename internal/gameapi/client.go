package gameapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
)

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

// StatusError is a non-2xx answer. Body is kept whole because some statuses carry a position.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("game server error: %s %s status=%d body=%s", e.Method, e.Path, e.Status, truncate(e.Body, 512))
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == code
}

type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int

	jarMu sync.Mutex
	jar   map[string]string
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 30 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 4},
		defaultTimeout: 15 * time.Second,
		retryMax:       3,
		jar:            make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// Cookie returns the stored value of a session cookie, if any.
func (c *Client) Cookie(name string) (string, bool) {
	c.jarMu.Lock()
	defer c.jarMu.Unlock()
	v, ok := c.jar[name]
	return v, ok
}

type request struct {
	method      string
	path        string
	contentType string
	body        []byte
	retry       bool
}

// do sends r and returns the body of a 2xx answer. Other statuses come back as *StatusError.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(r.method)
	req.SetRequestURI(c.baseURL + r.path)
	if r.contentType != "" {
		req.Header.SetContentType(r.contentType)
	}
	req.Header.Set("Cache-Control", "no-cache")

	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	c.jarMu.Lock()
	for k, v := range c.jar {
		req.Header.SetCookie(k, v)
	}
	c.jarMu.Unlock()

	if r.body != nil {
		req.SetBody(r.body)
	}

	attempts := 1
	if r.retry {
		attempts = c.retryMax
		if attempts <= 0 {
			attempts = 1
		}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		deadline := c.computeDeadline(ctx)
		err := c.http.DoDeadline(req, resp, deadline)
		if err != nil {
			if errors.Is(err, fasthttp.ErrTimeout) && ctx.Err() != nil {
				err = fmt.Errorf("%w: %v", ctx.Err(), err)
			}
			if attempt == attempts {
				return nil, fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return nil, lastErr
			}
			continue
		}

		c.storeCookies(resp)

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			serr := &StatusError{Method: r.method, Path: r.path, Status: status, Body: string(resp.Body())}
			if attempt == attempts || !shouldRetryStatus(status) {
				return nil, serr
			}
			lastErr = serr
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return nil, lastErr
			}
			continue
		}

		body := make([]byte, len(resp.Body()))
		copy(body, resp.Body())
		return body, nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return nil, lastErr
}

func (c *Client) storeCookies(resp *fasthttp.Response) {
	now := time.Now()
	c.jarMu.Lock()
	defer c.jarMu.Unlock()
	resp.Header.VisitAllCookie(func(_, value []byte) {
		var ck fasthttp.Cookie
		if err := ck.ParseBytes(value); err != nil {
			return
		}
		name := string(ck.Key())
		if name == "" {
			return
		}
		exp := ck.Expire()
		removed := len(ck.Value()) == 0 || ck.MaxAge() < 0 ||
			(exp != fasthttp.CookieExpireUnlimited && exp.Before(now))
		if removed {
			delete(c.jar, name)
			return
		}
		c.jar[name] = string(ck.Value())
	})
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		clientDL := time.Now().Add(c.defaultTimeout)
		if dl.Before(clientDL) {
			return dl
		}
		return clientDL
	}
	return time.Now().Add(c.defaultTimeout)
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

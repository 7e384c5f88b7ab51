package assist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/BaitAPI/ChessDestroyer/pkg/chessdto"
)

var ErrEmptySuggestion = errors.New("advisory service returned no move")

// Client asks the external advisory service for a move in a given position.
type Client struct {
	url     string
	http    *fasthttp.Client
	timeout time.Duration
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:     strings.TrimSpace(url),
		http:    &fasthttp.Client{ReadTimeout: 30 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 2},
		timeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Suggest posts {fen} and returns the service's {san, move} answer.
func (c *Client) Suggest(ctx context.Context, fen string) (chessdto.AdvisoryResponse, error) {
	var out chessdto.AdvisoryResponse
	payload, err := json.Marshal(chessdto.AdvisoryRequest{FEN: fen})
	if err != nil {
		return out, fmt.Errorf("marshal request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.url)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	deadline := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return out, fmt.Errorf("advisory request failed: %w", err)
	}
	if status := resp.StatusCode(); status < 200 || status >= 300 {
		body := string(resp.Body())
		if len(body) > 256 {
			body = body[:256]
		}
		return out, fmt.Errorf("advisory api error: status=%d body=%s", status, body)
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return out, fmt.Errorf("decode advisory response: %w", err)
	}
	if strings.TrimSpace(out.Move) == "" && strings.TrimSpace(out.SAN) == "" {
		return out, ErrEmptySuggestion
	}
	return out, nil
}

package gameapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/BaitAPI/ChessDestroyer/pkg/chessdto"
)

const SessionCookie = "session_key"

var (
	ErrSessionRunning = errors.New("a session is already running for this client")
	ErrNoSession      = errors.New("server did not issue a session")
	ErrEmptyPosition  = errors.New("server answered without a position")
)

// Open creates the server-side match and returns the resolved side code ("w" or "b").
func (c *Client) Open(ctx context.Context, s chessdto.GameSettings) (string, error) {
	q := url.Values{}
	q.Set("username", s.Username)
	q.Set("difficulty", strconv.Itoa(s.Difficulty))
	q.Set("color", s.Color)
	if s.NewSession {
		q.Set("new_session", "true")
	}

	body, err := c.do(ctx, request{method: fasthttp.MethodGet, path: "/game?" + q.Encode(), retry: false})
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Status == http.StatusBadRequest && strings.Contains(se.Body, "already a Session") {
			return "", fmt.Errorf("%w: %s", ErrSessionRunning, se.Body)
		}
		return "", err
	}
	if _, ok := c.Cookie(SessionCookie); !ok {
		return "", ErrNoSession
	}

	color, err := parseHiddenColor(body)
	if err != nil {
		return "", err
	}
	return color, nil
}

// SubmitMove posts coordinate notation to /move and returns the server's FEN.
// An empty move is the opening request: the server answers with its current position.
func (c *Client) SubmitMove(ctx context.Context, move string) (string, error) {
	body, err := c.do(ctx, request{
		method:      fasthttp.MethodPost,
		path:        "/move",
		contentType: "text/plain",
		body:        []byte(move),
	})
	if err != nil {
		return "", err
	}
	fen := strings.TrimSpace(string(body))
	if fen == "" {
		return "", ErrEmptyPosition
	}
	return fen, nil
}

// GameEndResult is the server's view of a position the client believes is over.
type GameEndResult struct {
	Confirmed bool
	// FEN is set when the server disagrees (406) and supplies its own position.
	FEN string
}

func (c *Client) GameEnd(ctx context.Context) (GameEndResult, error) {
	_, err := c.do(ctx, request{method: fasthttp.MethodGet, path: "/game_end", retry: true})
	if err == nil {
		return GameEndResult{Confirmed: true}, nil
	}
	var se *StatusError
	if errors.As(err, &se) && se.Status == http.StatusNotAcceptable {
		fen := strings.TrimSpace(se.Body)
		if fen == "" {
			return GameEndResult{}, fmt.Errorf("%w: game_end conflict", ErrEmptyPosition)
		}
		return GameEndResult{FEN: fen}, nil
	}
	return GameEndResult{}, err
}

// Scoreboard returns the top count results, most significant first.
func (c *Client) Scoreboard(ctx context.Context, count int) ([]chessdto.ScoreEntry, error) {
	if count <= 0 {
		count = 1
	}
	body, err := c.do(ctx, request{
		method: fasthttp.MethodGet,
		path:   "/scoreboard?count=" + strconv.Itoa(count),
		retry:  true,
	})
	if err != nil {
		return nil, err
	}
	var out []chessdto.ScoreEntry
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode scoreboard: %w", err)
	}
	return out, nil
}

// Ping checks that the server answers at all.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, request{method: fasthttp.MethodGet, path: "/scoreboard?count=1", retry: false})
	return err
}

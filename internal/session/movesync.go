package session

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/BaitAPI/ChessDestroyer/internal/gameapi"
	"github.com/BaitAPI/ChessDestroyer/internal/rules"
)

// MoveSync sends local moves to the server and returns the server's position,
// which replaces the local one.
type MoveSync struct {
	server Server
}

func NewMoveSync(server Server) *MoveSync {
	return &MoveSync{server: server}
}

// Submit sends m and returns the canonical position. Any failure is a KindSyncFailure.
func (s *MoveSync) Submit(ctx context.Context, m rules.Move) (rules.Position, error) {
	fen, err := s.server.SubmitMove(ctx, m.String())
	if err != nil {
		return rules.Position{}, &Error{Kind: KindSyncFailure, Op: "submit", Move: m.String(), Err: err}
	}
	pos, err := rules.ParsePosition(fen)
	if err != nil {
		return rules.Position{}, &Error{Kind: KindSyncFailure, Op: "submit", Move: m.String(), Err: err}
	}
	return pos, nil
}

// RequestOpeningMove asks for the position after the server's first move. The
// body is empty; the server answers 406 with its current position, which is
// accepted the same way as a 2xx.
func (s *MoveSync) RequestOpeningMove(ctx context.Context) (rules.Position, error) {
	fen, err := s.server.SubmitMove(ctx, "")
	if err != nil {
		var se *gameapi.StatusError
		if !errors.As(err, &se) || se.Status != http.StatusNotAcceptable || strings.TrimSpace(se.Body) == "" {
			return rules.Position{}, &Error{Kind: KindSyncFailure, Op: "opening", Err: err}
		}
		fen = se.Body
	}
	pos, err := rules.ParsePosition(fen)
	if err != nil {
		return rules.Position{}, &Error{Kind: KindSyncFailure, Op: "opening", Err: err}
	}
	return pos, nil
}

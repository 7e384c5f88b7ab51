package session

import (
	"context"

	"github.com/BaitAPI/ChessDestroyer/internal/rules"
)

type Verdict int

const (
	// VerdictConfirmed: the server agrees the game is over.
	VerdictConfirmed Verdict = iota + 1
	// VerdictCorrected: the server disagrees and sent its own position.
	VerdictCorrected
)

type TerminalOutcome struct {
	Verdict Verdict
	Outcome rules.Outcome
	Reason  rules.TerminalReason
	// Position is the server's position when Verdict is VerdictCorrected.
	Position rules.Position
}

// GameOver confirms locally detected game ends with the server.
type GameOver struct {
	server Server
	engine rules.Engine
}

func NewGameOver(server Server, engine rules.Engine) *GameOver {
	return &GameOver{server: server, engine: engine}
}

// CheckTerminal returns nil without a network call when pos is not terminal.
// Server failures other than a correction are KindTerminalCheckFailure.
func (g *GameOver) CheckTerminal(ctx context.Context, pos rules.Position) (*TerminalOutcome, error) {
	reason := g.engine.TerminalReason(pos)
	if reason == rules.ReasonNone {
		return nil, nil
	}

	res, err := g.server.GameEnd(ctx)
	if err != nil {
		return nil, &Error{Kind: KindTerminalCheckFailure, Op: "game_end", Err: err}
	}
	if res.Confirmed {
		return &TerminalOutcome{
			Verdict: VerdictConfirmed,
			Reason:  reason,
			Outcome: rules.OutcomeFor(reason, g.engine.Turn(pos)),
		}, nil
	}
	corrected, err := rules.ParsePosition(res.FEN)
	if err != nil {
		return nil, &Error{Kind: KindTerminalCheckFailure, Op: "game_end", Err: err}
	}
	return &TerminalOutcome{Verdict: VerdictCorrected, Position: corrected}, nil
}

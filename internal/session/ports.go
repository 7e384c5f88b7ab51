package session

import (
	"context"

	"github.com/BaitAPI/ChessDestroyer/internal/gameapi"
	"github.com/BaitAPI/ChessDestroyer/internal/rules"
	"github.com/BaitAPI/ChessDestroyer/pkg/chessdto"
)

// Server is the game server as the protocols see it. *gameapi.Client satisfies it.
type Server interface {
	SubmitMove(ctx context.Context, move string) (string, error)
	GameEnd(ctx context.Context) (gameapi.GameEndResult, error)
}

// Advisor suggests a move for a position. *assist.Client satisfies it.
type Advisor interface {
	Suggest(ctx context.Context, fen string) (chessdto.AdvisoryResponse, error)
}

// Scores is best-effort: failures come back as an empty slice.
type Scores interface {
	FetchTop(ctx context.Context, n int) []chessdto.ScoreEntry
}

type Archive interface {
	Save(ctx context.Context, rec *chessdto.MatchRecord) (int64, error)
}

// Presenter shows session progress to the player. Calls come from the
// controller's goroutine only.
type Presenter interface {
	Turn(local, toMove rules.Side)
	Announce(outcome rules.Outcome)
	Scoreboard(rows []chessdto.ScoreEntry)
	Stalled(on bool)
	Corrected()
	Problem(err *Error)
}

// moveInferer is implemented by rules.Adapter; it names the opponent's reply.
type moveInferer interface {
	InferMove(prev, next rules.Position) (string, bool)
}

package session

import (
	"github.com/BaitAPI/ChessDestroyer/internal/rules"
)

type State int

const (
	AwaitingLocalMove State = iota
	AwaitingRemoteMove
	Terminal
)

func (s State) String() string {
	switch s {
	case AwaitingLocalMove:
		return "awaiting_local_move"
	case AwaitingRemoteMove:
		return "awaiting_remote_move"
	case Terminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// SessionState is owned by one Controller. The side to move is not stored;
// it is always read from Position.
type SessionState struct {
	ID             string
	Position       rules.Position
	LocalSide      rules.Side
	Terminal       bool
	TerminalReason rules.TerminalReason
	AssistEnabled  bool
}

// Snapshot is a copy of the controller's state for observers and tests.
type Snapshot struct {
	SessionState
	TurnToMove rules.Side
	State      State
	Pending    bool
	Stalled    bool
	// Episode counts terminal entries; Announced counts announcements made.
	Episode   int
	Announced int
	Outcome   rules.Outcome
	MovesSAN  []string
	LastError error
	Finished  bool
}

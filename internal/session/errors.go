package session

import (
	"errors"
	"fmt"
)

// Kind classifies the failures a session can run into. None of them end the session.
type Kind int

const (
	// KindIllegalMove is a rejected drop. The piece snaps back.
	KindIllegalMove Kind = iota + 1
	// KindSyncFailure means /move failed; the local position stands.
	KindSyncFailure
	// KindTerminalCheckFailure means /game_end failed; play resumes uncorrected.
	KindTerminalCheckFailure
	// KindAssistIntegration means the advisory service suggested a move the rules reject.
	KindAssistIntegration
)

func (k Kind) String() string {
	switch k {
	case KindIllegalMove:
		return "illegal_move"
	case KindSyncFailure:
		return "sync_failure"
	case KindTerminalCheckFailure:
		return "terminal_check_failure"
	case KindAssistIntegration:
		return "assist_integration"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Op   string
	// Move is the coordinate or SAN text involved, if any.
	Move string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Move != "" {
		msg += fmt.Sprintf(" (%s)", e.Move)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether the outermost session error in err's chain has kind k.
func IsKind(err error, k Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == k
}

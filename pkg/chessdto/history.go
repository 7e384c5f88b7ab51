package chessdto

import "time"

// MatchRecord is an archived, server-confirmed game result.
type MatchRecord struct {
	ID          int64
	SessionUUID string
	Username    string
	LocalSide   string
	Opponent    string
	Result      string
	Reason      string
	FinalFEN    string
	MovesSAN    []string
	StartedAt   time.Time
	EndedAt     time.Time
	Duration    time.Duration
}

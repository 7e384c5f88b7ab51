package archive

import (
	"fmt"
	"strings"
	"time"

	"github.com/BaitAPI/ChessDestroyer/pkg/chessdto"
)

// PGNResult maps a local-perspective result to the PGN result token.
func PGNResult(rec *chessdto.MatchRecord) string {
	switch strings.ToLower(strings.TrimSpace(rec.Result)) {
	case "draw":
		return "1/2-1/2"
	case "win":
		if rec.LocalSide == "black" {
			return "0-1"
		}
		return "1-0"
	case "loss":
		if rec.LocalSide == "black" {
			return "1-0"
		}
		return "0-1"
	default:
		return "*"
	}
}

// BuildPGN renders the moves this client saw. Moves made before a server
// correction are not replayed, so the movetext can be partial.
func BuildPGN(rec *chessdto.MatchRecord) string {
	if rec == nil {
		return ""
	}
	result := PGNResult(rec)
	date := rec.EndedAt
	if date.IsZero() {
		date = time.Now()
	}
	white, black := sanitizePGN(rec.Username), sanitizePGN(rec.Opponent)
	if rec.LocalSide == "black" {
		white, black = black, white
	}

	var b strings.Builder
	b.WriteString("[Event \"ChessDestroyer\"]\n")
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", white))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", black))
	if strings.TrimSpace(rec.Reason) != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(rec.Reason)))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", result))

	for i := 0; i < len(rec.MovesSAN); i += 2 {
		b.WriteString(fmt.Sprintf("%d. %s ", i/2+1, strings.TrimSpace(rec.MovesSAN[i])))
		if i+1 < len(rec.MovesSAN) {
			b.WriteString(strings.TrimSpace(rec.MovesSAN[i+1]))
			b.WriteString(" ")
		}
	}
	b.WriteString(result)
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}

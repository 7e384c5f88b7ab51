package chesspresenter

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/BaitAPI/ChessDestroyer/internal/msgcat"
	"github.com/BaitAPI/ChessDestroyer/internal/rules"
	"github.com/BaitAPI/ChessDestroyer/internal/session"
	"github.com/BaitAPI/ChessDestroyer/pkg/chessdto"
)

const (
	activeMarker   = "▶"
	inactiveMarker = " "
)

// Players names both sides of the board.
type Players struct {
	Local    string
	Opponent string
}

func (p Players) name(side, local rules.Side) string {
	if side == local {
		return p.Local
	}
	return p.Opponent
}

// Formatter renders session events into terminal text using the message catalog.
type Formatter struct {
	catalog *msgcat.Catalog
}

func NewFormatter(catalog *msgcat.Catalog) *Formatter {
	if catalog == nil {
		catalog = msgcat.Default()
	}
	return &Formatter{catalog: catalog}
}

func (f *Formatter) Opened(players Players, local rules.Side) string {
	return f.catalog.Text("session.opened", map[string]any{
		"Opponent": players.Opponent,
		"Side":     local.Title(),
	})
}

// Labels renders the two player labels with the side to move marked active.
// The side at the bottom of the board comes last.
func (f *Formatter) Labels(players Players, local, toMove rules.Side) string {
	label := func(side rules.Side) string {
		marker := inactiveMarker
		if side == toMove {
			marker = activeMarker
		}
		return fmt.Sprintf("%s %s (%s)", marker, players.name(side, local), side.Title())
	}
	return label(local.Opposite()) + "   " + label(local)
}

func (f *Formatter) Status(local, toMove rules.Side) string {
	if toMove == local {
		return f.catalog.Text("turn.local", map[string]any{"Side": toMove.Title()})
	}
	return f.catalog.Text("turn.remote", map[string]any{"Side": toMove.Title()})
}

// Announcement is empty for outcomes that are not announced.
func (f *Formatter) Announcement(outcome rules.Outcome) string {
	switch outcome {
	case rules.OutcomeCheckmateWhite:
		return f.catalog.Text("announce.checkmate", map[string]any{"Side": rules.White.Title()})
	case rules.OutcomeCheckmateBlack:
		return f.catalog.Text("announce.checkmate", map[string]any{"Side": rules.Black.Title()})
	case rules.OutcomeDraw:
		return f.catalog.Text("announce.draw", nil)
	default:
		return ""
	}
}

// Scoreboard renders rows in server order, ranked from 1.
func (f *Formatter) Scoreboard(rows []chessdto.ScoreEntry) string {
	var sb strings.Builder
	sb.WriteString(f.catalog.Text("scoreboard.title", nil))
	sb.WriteString("\n")
	if len(rows) == 0 {
		sb.WriteString(f.catalog.Text("scoreboard.empty", nil))
		return sb.String()
	}
	sb.WriteString(f.catalog.Text("scoreboard.description", nil))
	sb.WriteString("\n")

	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\n",
		f.catalog.Text("scoreboard.rank", nil),
		f.catalog.Text("scoreboard.winner", nil),
		f.catalog.Text("scoreboard.score", nil))
	for i, row := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, strings.TrimSpace(row.Winner), formatScore(row.Score))
	}
	_ = tw.Flush()
	return strings.TrimRight(sb.String(), "\n")
}

func formatScore(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

func (f *Formatter) Stalled(on bool) string {
	if on {
		return f.catalog.Text("stalled.on", nil)
	}
	return f.catalog.Text("stalled.off", nil)
}

func (f *Formatter) Corrected() string {
	return f.catalog.Text("correction.applied", nil)
}

func (f *Formatter) Problem(err *session.Error) string {
	if err == nil {
		return ""
	}
	var key string
	switch err.Kind {
	case session.KindIllegalMove:
		key = "problem.illegal_move"
	case session.KindSyncFailure:
		key = "problem.sync_failure"
	case session.KindTerminalCheckFailure:
		key = "problem.terminal_check_failure"
	case session.KindAssistIntegration:
		key = "problem.assist_integration"
	default:
		return err.Error()
	}
	return f.catalog.Text(key, map[string]any{"Move": err.Move})
}

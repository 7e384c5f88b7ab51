package chesspresenter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/BaitAPI/ChessDestroyer/internal/rules"
	"github.com/BaitAPI/ChessDestroyer/internal/session"
	"github.com/BaitAPI/ChessDestroyer/pkg/chessdto"
)

func TestFormatterAnnouncement(t *testing.T) {
	f := NewFormatter(nil)
	cases := map[rules.Outcome]string{
		rules.OutcomeCheckmateWhite: "White is Checkmate",
		rules.OutcomeCheckmateBlack: "Black is Checkmate",
		rules.OutcomeDraw:           "Draw",
		rules.OutcomeOverride:       "",
		rules.OutcomeNone:           "",
	}
	for outcome, want := range cases {
		if got := f.Announcement(outcome); got != want {
			t.Fatalf("Announcement(%v) = %q, want %q", outcome, got, want)
		}
	}
}

func TestFormatterScoreboard(t *testing.T) {
	f := NewFormatter(nil)

	empty := f.Scoreboard(nil)
	if !strings.Contains(empty, "There are no Scores yet.") {
		t.Fatalf("empty scoreboard = %q", empty)
	}

	out := f.Scoreboard([]chessdto.ScoreEntry{{Winner: "alice", Score: 42}, {Winner: "bob", Score: 12.5}})
	lines := strings.Split(out, "\n")
	if len(lines) != 5 {
		t.Fatalf("lines = %q", lines)
	}
	if lines[1] != "Take a look at the Scoreboard:" {
		t.Fatalf("description = %q", lines[1])
	}
	if fields := strings.Fields(lines[2]); len(fields) != 3 || fields[0] != "Rank" || fields[1] != "Winner" || fields[2] != "Score" {
		t.Fatalf("header = %q", lines[2])
	}
	if fields := strings.Fields(lines[3]); fields[0] != "1" || fields[1] != "alice" || fields[2] != "42" {
		t.Fatalf("row 1 = %q", lines[3])
	}
	if fields := strings.Fields(lines[4]); fields[0] != "2" || fields[1] != "bob" || fields[2] != "12.5" {
		t.Fatalf("row 2 = %q", lines[4])
	}
}

func TestFormatterProblem(t *testing.T) {
	f := NewFormatter(nil)
	got := f.Problem(&session.Error{Kind: session.KindAssistIntegration, Move: "d5f7 / Qxf7"})
	if got != "The assistant suggested an illegal move: d5f7 / Qxf7" {
		t.Fatalf("assist problem = %q", got)
	}
	if got := f.Problem(&session.Error{Kind: session.KindIllegalMove, Move: "e2e5"}); got != "e2e5 is not a legal move." {
		t.Fatalf("illegal move = %q", got)
	}
	if f.Problem(nil) != "" {
		t.Fatalf("nil problem should render nothing")
	}
}

func TestFormatterLabels(t *testing.T) {
	f := NewFormatter(nil)
	players := Players{Local: "alice", Opponent: "Martin"}

	got := f.Labels(players, rules.White, rules.White)
	if got != "  Martin (Black)   ▶ alice (White)" {
		t.Fatalf("labels = %q", got)
	}
	got = f.Labels(players, rules.Black, rules.White)
	if got != "▶ Martin (White)     alice (Black)" {
		t.Fatalf("labels = %q", got)
	}
}

func TestPresenterWritesTurnAndAnnouncement(t *testing.T) {
	var buf bytes.Buffer
	p := NewPresenter(&buf, NewFormatter(nil), Players{Local: "alice", Opponent: "Martin"}, WithoutSpinner())

	p.Turn(rules.White, rules.White)
	p.Turn(rules.White, rules.Black)
	p.Stalled(true)
	p.Corrected()
	p.Announce(rules.OutcomeCheckmateBlack)
	p.Scoreboard(nil)

	out := buf.String()
	for _, want := range []string{
		"Your move (White)",
		"Waiting for Black...",
		"The server is taking long to answer...",
		"The server corrected the board, play continues.",
		"Black is Checkmate",
		"There are no Scores yet.",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

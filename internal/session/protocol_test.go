package session

import (
	"context"
	"testing"

	"github.com/BaitAPI/ChessDestroyer/internal/gameapi"
	"github.com/BaitAPI/ChessDestroyer/internal/rules"
)

func TestMoveSyncSubmit(t *testing.T) {
	srv := &fakeServer{submit: func(_ context.Context, move string) (string, error) {
		return afterE5FEN, nil
	}}
	pos, err := NewMoveSync(srv).Submit(context.Background(), rules.Move{From: square(t, "e2"), To: square(t, "e4")})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !pos.Equal(mustPos(t, afterE5FEN)) {
		t.Fatalf("pos = %s", pos)
	}
	if moves := srv.submitted(); len(moves) != 1 || moves[0] != "e2e4" {
		t.Fatalf("body = %v", moves)
	}
}

func TestMoveSyncSubmitFailures(t *testing.T) {
	cases := map[string]func(context.Context, string) (string, error){
		"status": func(context.Context, string) (string, error) {
			return "", &gameapi.StatusError{Method: "POST", Path: "/move", Status: 406, Body: afterE4FEN}
		},
		"garbage": func(context.Context, string) (string, error) { return "not a fen", nil },
		"network": func(context.Context, string) (string, error) { return "", errBoom },
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewMoveSync(&fakeServer{submit: fn}).Submit(context.Background(), rules.Move{From: square(t, "e2"), To: square(t, "e4")})
			if !IsKind(err, KindSyncFailure) {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func TestMoveSyncOpening(t *testing.T) {
	srv := &fakeServer{submit: func(context.Context, string) (string, error) {
		return "", &gameapi.StatusError{Method: "POST", Path: "/move", Status: 406, Body: afterE4FEN + "\n"}
	}}
	pos, err := NewMoveSync(srv).RequestOpeningMove(context.Background())
	if err != nil {
		t.Fatalf("RequestOpeningMove: %v", err)
	}
	if !pos.Equal(mustPos(t, afterE4FEN)) {
		t.Fatalf("pos = %s", pos)
	}
	if moves := srv.submitted(); len(moves) != 1 || moves[0] != "" {
		t.Fatalf("opening body = %q", moves)
	}

	srv.submit = func(context.Context, string) (string, error) { return afterE4FEN, nil }
	if _, err := NewMoveSync(srv).RequestOpeningMove(context.Background()); err != nil {
		t.Fatalf("2xx opening: %v", err)
	}

	srv.submit = func(context.Context, string) (string, error) {
		return "", &gameapi.StatusError{Method: "POST", Path: "/move", Status: 500, Body: afterE4FEN}
	}
	if _, err := NewMoveSync(srv).RequestOpeningMove(context.Background()); !IsKind(err, KindSyncFailure) {
		t.Fatalf("500 opening err = %v", err)
	}
}

func TestCheckTerminalSkipsServerForLivePositions(t *testing.T) {
	srv := &fakeServer{}
	out, err := NewGameOver(srv, rules.NewAdapter()).CheckTerminal(context.Background(), rules.StartPosition())
	if out != nil || err != nil {
		t.Fatalf("out = %+v err = %v", out, err)
	}
	if srv.gameEndCalls() != 0 {
		t.Fatalf("no request expected")
	}
}

func TestCheckTerminalVerdicts(t *testing.T) {
	mate := mustPos(t, "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3")
	eng := rules.NewAdapter()

	out, err := NewGameOver(&fakeServer{}, eng).CheckTerminal(context.Background(), mate)
	if err != nil || out.Verdict != VerdictConfirmed {
		t.Fatalf("out = %+v err = %v", out, err)
	}
	if out.Outcome != rules.OutcomeCheckmateWhite || out.Reason != rules.ReasonCheckmate {
		t.Fatalf("outcome = %v reason = %v", out.Outcome, out.Reason)
	}

	srv := &fakeServer{ends: []func() (gameapi.GameEndResult, error){corrected(afterE5FEN)}}
	out, err = NewGameOver(srv, eng).CheckTerminal(context.Background(), mate)
	if err != nil || out.Verdict != VerdictCorrected || !out.Position.Equal(mustPos(t, afterE5FEN)) {
		t.Fatalf("out = %+v err = %v", out, err)
	}

	srv = &fakeServer{ends: []func() (gameapi.GameEndResult, error){failing(502)}}
	if _, err := NewGameOver(srv, eng).CheckTerminal(context.Background(), mate); !IsKind(err, KindTerminalCheckFailure) {
		t.Fatalf("err = %v", err)
	}

	srv = &fakeServer{ends: []func() (gameapi.GameEndResult, error){corrected("junk")}}
	if _, err := NewGameOver(srv, eng).CheckTerminal(context.Background(), mate); !IsKind(err, KindTerminalCheckFailure) {
		t.Fatalf("bad fen err = %v", err)
	}
}

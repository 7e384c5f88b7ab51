package rules

import (
	"errors"
	"strings"
	"testing"
)

const (
	foolsMateFEN = "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3"
	stalemateFEN = "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1"
	promotionFEN = "8/P7/8/8/8/8/8/k6K w - - 0 1"
)

func mustPosition(t *testing.T, fen string) Position {
	t.Helper()
	p, err := ParsePosition(fen)
	if err != nil {
		t.Fatalf("ParsePosition(%q): %v", fen, err)
	}
	return p
}

func sq(t *testing.T, s string) Square {
	t.Helper()
	v, err := ParseSquare(s)
	if err != nil {
		t.Fatalf("ParseSquare(%q): %v", s, err)
	}
	return v
}

func TestLegalDestinationsFromStart(t *testing.T) {
	a := NewAdapter()
	pos := StartPosition()

	got := a.LegalDestinations(pos, White, sq(t, "e2"))
	if len(got) != 2 || got[0].String() != "e3" || got[1].String() != "e4" {
		t.Fatalf("e2 destinations = %v", got)
	}
	if d := a.LegalDestinations(pos, Black, sq(t, "e7")); len(d) != 0 {
		t.Fatalf("black is not to move, got %v", d)
	}
	if d := a.LegalDestinations(pos, White, sq(t, "e7")); len(d) != 0 {
		t.Fatalf("piece belongs to the other side, got %v", d)
	}
	if d := a.LegalDestinations(pos, White, sq(t, "e4")); len(d) != 0 {
		t.Fatalf("empty square, got %v", d)
	}
}

func TestApplyFlipsTurn(t *testing.T) {
	a := NewAdapter()
	pos := StartPosition()

	next, san, err := a.Apply(pos, Move{From: sq(t, "e2"), To: sq(t, "e4")})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if san != "e4" {
		t.Fatalf("san = %q", san)
	}
	if a.Turn(next) != Black {
		t.Fatalf("turn after e2e4 = %v", a.Turn(next))
	}
	if d := a.LegalDestinations(next, White, sq(t, "d2")); len(d) != 0 {
		t.Fatalf("white must not move after its own move, got %v", d)
	}
	if d := a.LegalDestinations(next, Black, sq(t, "e7")); len(d) != 2 {
		t.Fatalf("black e7 destinations = %v", d)
	}
	if !pos.Equal(StartPosition()) {
		t.Fatalf("source position must not change")
	}
}

func TestApplyRejectsIllegalMove(t *testing.T) {
	a := NewAdapter()
	pos := StartPosition()

	next, _, err := a.Apply(pos, Move{From: sq(t, "e2"), To: sq(t, "e5")})
	if !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
	if !next.Equal(pos) {
		t.Fatalf("rejected move must leave the position untouched")
	}
}

func TestApplyDefaultsToQueenPromotion(t *testing.T) {
	a := NewAdapter()
	pos := mustPosition(t, promotionFEN)

	next, _, err := a.Apply(pos, Move{From: sq(t, "a7"), To: sq(t, "a8")})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if p := a.Pieces(next)[sq(t, "a8")]; p != (Piece{Side: White, Kind: Queen}) {
		t.Fatalf("a8 = %v", p)
	}

	under, _, err := a.Apply(pos, Move{From: sq(t, "a7"), To: sq(t, "a8"), Promotion: Knight})
	if err != nil {
		t.Fatalf("Apply underpromotion: %v", err)
	}
	if p := a.Pieces(under)[sq(t, "a8")]; p.Kind != Knight {
		t.Fatalf("a8 = %v", p)
	}
}

func TestCompleteAddsQueenOnlyForPromotions(t *testing.T) {
	a := NewAdapter()
	pos := mustPosition(t, promotionFEN)

	if got := a.Complete(pos, Move{From: sq(t, "a7"), To: sq(t, "a8")}).String(); got != "a7a8q" {
		t.Fatalf("promotion = %q", got)
	}
	if got := a.Complete(pos, Move{From: sq(t, "a7"), To: sq(t, "a8"), Promotion: Rook}).String(); got != "a7a8r" {
		t.Fatalf("explicit promotion = %q", got)
	}
	if got := a.Complete(pos, Move{From: sq(t, "h1"), To: sq(t, "h2")}).String(); got != "h1h2" {
		t.Fatalf("king move = %q", got)
	}
}

func TestDoublePushWithoutCaptureDropsEnPassantSquare(t *testing.T) {
	a := NewAdapter()
	next, _, err := a.Apply(StartPosition(), Move{From: sq(t, "e2"), To: sq(t, "e4")})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	want := mustPosition(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1")
	if !next.Equal(want) {
		t.Fatalf("after e4 = %s, want %s", next, want)
	}
	if !mustPosition(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1").Equal(want) {
		t.Fatalf("an uncapturable en-passant square should not change the position")
	}
}

func TestCapturableEnPassantSquareIsKept(t *testing.T) {
	a := NewAdapter()
	pos := mustPosition(t, "rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3")
	if fields := strings.Fields(pos.FEN()); fields[3] != "f6" {
		t.Fatalf("en-passant field = %q", fields[3])
	}
	if pos.Equal(mustPosition(t, "rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq - 0 3")) {
		t.Fatalf("positions differ in an available capture")
	}
	next, _, err := a.Apply(pos, Move{From: sq(t, "e5"), To: sq(t, "f6")})
	if err != nil {
		t.Fatalf("en-passant capture: %v", err)
	}
	if _, ok := a.Pieces(next)[sq(t, "f5")]; ok {
		t.Fatalf("captured pawn still on f5")
	}
}

func TestTerminalDetection(t *testing.T) {
	a := NewAdapter()
	cases := []struct {
		name    string
		fen     string
		reason  TerminalReason
		inCheck bool
	}{
		{"start", StartFEN, ReasonNone, false},
		{"checkmate", foolsMateFEN, ReasonCheckmate, true},
		{"stalemate", stalemateFEN, ReasonDraw, false},
		{"fifty moves", "7k/8/8/8/8/8/R7/K7 w - - 100 80", ReasonDraw, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pos := mustPosition(t, tc.fen)
			if got := a.TerminalReason(pos); got != tc.reason {
				t.Fatalf("reason = %v want %v", got, tc.reason)
			}
			if a.IsTerminal(pos) != (tc.reason != ReasonNone) {
				t.Fatalf("IsTerminal disagrees with reason")
			}
			if got := a.InCheck(pos); got != tc.inCheck {
				t.Fatalf("InCheck = %v", got)
			}
		})
	}
}

func TestCheckmateOutcomeNamesMatedSide(t *testing.T) {
	a := NewAdapter()
	pos := mustPosition(t, foolsMateFEN)
	if got := OutcomeFor(a.TerminalReason(pos), a.Turn(pos)); got != OutcomeCheckmateWhite {
		t.Fatalf("outcome = %v", got)
	}
	if k := a.KingSquare(pos, White); k.String() != "e1" {
		t.Fatalf("white king = %v", k)
	}
}

func TestPositionRoundTripKeepsLegalMoves(t *testing.T) {
	a := NewAdapter()
	pos, _, err := a.Apply(StartPosition(), Move{From: sq(t, "g1"), To: sq(t, "f3")})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	again := mustPosition(t, pos.FEN())
	if !again.Equal(pos) {
		t.Fatalf("round trip changed fen: %q vs %q", again.FEN(), pos.FEN())
	}
	for _, from := range []string{"b8", "g8", "e7"} {
		x := a.LegalDestinations(pos, Black, sq(t, from))
		y := a.LegalDestinations(again, Black, sq(t, from))
		if len(x) != len(y) {
			t.Fatalf("%s: %v vs %v", from, x, y)
		}
		for i := range x {
			if x[i] != y[i] {
				t.Fatalf("%s: %v vs %v", from, x, y)
			}
		}
	}
}

func TestResolveSuggestion(t *testing.T) {
	a := NewAdapter()
	pos := StartPosition()

	m, err := a.Resolve(pos, "g1f3", "")
	if err != nil || m.String() != "g1f3" {
		t.Fatalf("coord resolve = %v, %v", m, err)
	}
	m, err = a.Resolve(pos, "", "Nf3")
	if err != nil || m.String() != "g1f3" {
		t.Fatalf("san resolve = %v, %v", m, err)
	}
	if _, err := a.Resolve(pos, "", ""); !errors.Is(err, ErrBadNotation) {
		t.Fatalf("empty suggestion should fail, got %v", err)
	}
}

func TestParsePositionRejectsGarbage(t *testing.T) {
	if _, err := ParsePosition("not a fen"); !errors.Is(err, ErrBadPosition) {
		t.Fatalf("expected ErrBadPosition, got %v", err)
	}
	if _, err := ParsePosition(""); !errors.Is(err, ErrBadPosition) {
		t.Fatalf("expected ErrBadPosition for empty input, got %v", err)
	}
}

func TestParseMove(t *testing.T) {
	m, err := ParseMove("e7e8q")
	if err != nil {
		t.Fatalf("ParseMove: %v", err)
	}
	if m.From.String() != "e7" || m.To.String() != "e8" || m.Promotion != Queen {
		t.Fatalf("parsed %+v", m)
	}
	for _, bad := range []string{"", "e2", "e2e9", "e7e8k", "z1a1"} {
		if _, err := ParseMove(bad); err == nil {
			t.Fatalf("ParseMove(%q) should fail", bad)
		}
	}
}

func TestInferMove(t *testing.T) {
	a := NewAdapter()
	after := mustPosition(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1")
	reply := mustPosition(t, "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 0 2")

	san, ok := a.InferMove(after, reply)
	if !ok || san != "e5" {
		t.Fatalf("InferMove = %q, %v", san, ok)
	}
	if _, ok := a.InferMove(StartPosition(), reply); ok {
		t.Fatalf("two plies apart must not resolve to one move")
	}
}

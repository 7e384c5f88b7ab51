package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BaitAPI/ChessDestroyer/internal/board"
	"github.com/BaitAPI/ChessDestroyer/internal/gameapi"
	"github.com/BaitAPI/ChessDestroyer/internal/rules"
	"github.com/BaitAPI/ChessDestroyer/pkg/chessdto"
)

const (
	afterE4FEN  = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"
	afterE5FEN  = "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 0 2"
	preMateFEN  = "rnbqkbnr/pppp1ppp/8/4p3/6P1/5P2/PPPPP2P/RNBQKBNR b KQkq - 0 2"
	assistFEN   = "r1bqkbnr/pppp1ppp/2n5/3Q4/4P3/8/PPPP1PPP/RNB1KBNR w KQkq - 0 4"
	stalemate   = "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1"
	midgameFEN  = "r1bqkb1r/pppp1ppp/2n2n2/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4"
	errBoom     = constErr("boom")
	gameEndPath = "/game_end"
)

type constErr string

func (e constErr) Error() string { return string(e) }

func mustPos(t *testing.T, fen string) rules.Position {
	t.Helper()
	p, err := rules.ParsePosition(fen)
	if err != nil {
		t.Fatalf("ParsePosition(%q): %v", fen, err)
	}
	return p
}

func square(t *testing.T, s string) rules.Square {
	t.Helper()
	sq, err := rules.ParseSquare(s)
	if err != nil {
		t.Fatalf("ParseSquare(%q): %v", s, err)
	}
	return sq
}

func drop(t *testing.T, from, to string) board.Event {
	return board.Drop(square(t, from), square(t, to), rules.NoKind)
}

type fakeServer struct {
	mu       sync.Mutex
	moves    []string
	submit   func(ctx context.Context, move string) (string, error)
	ends     []func() (gameapi.GameEndResult, error)
	endCalls int
}

func (s *fakeServer) SubmitMove(ctx context.Context, move string) (string, error) {
	s.mu.Lock()
	s.moves = append(s.moves, move)
	fn := s.submit
	s.mu.Unlock()
	if fn == nil {
		return "", &gameapi.StatusError{Method: "POST", Path: "/move", Status: 500, Body: "Could not generate stockfish move"}
	}
	return fn(ctx, move)
}

func (s *fakeServer) GameEnd(ctx context.Context) (gameapi.GameEndResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endCalls++
	if len(s.ends) == 0 {
		return gameapi.GameEndResult{Confirmed: true}, nil
	}
	next := s.ends[0]
	if len(s.ends) > 1 {
		s.ends = s.ends[1:]
	}
	return next()
}

func (s *fakeServer) submitted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.moves...)
}

func (s *fakeServer) gameEndCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endCalls
}

func confirmed() (gameapi.GameEndResult, error) { return gameapi.GameEndResult{Confirmed: true}, nil }

func corrected(fen string) func() (gameapi.GameEndResult, error) {
	return func() (gameapi.GameEndResult, error) { return gameapi.GameEndResult{FEN: fen}, nil }
}

func failing(status int) func() (gameapi.GameEndResult, error) {
	return func() (gameapi.GameEndResult, error) {
		return gameapi.GameEndResult{}, &gameapi.StatusError{Method: "GET", Path: gameEndPath, Status: status}
	}
}

type fakeView struct {
	mu         sync.Mutex
	renders    []string
	highlights [][]rules.Square
	circles    []rules.Square
	clears     int
	events     chan board.Event
}

func newFakeView() *fakeView { return &fakeView{events: make(chan board.Event, 8)} }

func (v *fakeView) Render(_ context.Context, pos rules.Position) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.renders = append(v.renders, pos.FEN())
	return nil
}

func (v *fakeView) Highlight(squares []rules.Square) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.highlights = append(v.highlights, append([]rules.Square(nil), squares...))
}

func (v *fakeView) ClearHighlights() { v.Highlight(nil) }

func (v *fakeView) AddCircles(squares []rules.Square) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.circles = append(v.circles, squares...)
}

func (v *fakeView) ClearCircles() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.circles = nil
	v.clears++
}

func (v *fakeView) Events() <-chan board.Event { return v.events }
func (v *fakeView) Close() error                { return nil }

func (v *fakeView) lastRender() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.renders) == 0 {
		return ""
	}
	return v.renders[len(v.renders)-1]
}

func (v *fakeView) renderCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.renders)
}

func (v *fakeView) lastHighlight() []rules.Square {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.highlights) == 0 {
		return nil
	}
	return v.highlights[len(v.highlights)-1]
}

type turnCall struct{ local, toMove rules.Side }

type fakePresenter struct {
	mu          sync.Mutex
	turns       []turnCall
	announced   []rules.Outcome
	scoreboards [][]chessdto.ScoreEntry
	stalled     []bool
	corrections int
	problems    []*Error
}

func (p *fakePresenter) Turn(local, toMove rules.Side) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.turns = append(p.turns, turnCall{local, toMove})
}

func (p *fakePresenter) Announce(o rules.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.announced = append(p.announced, o)
}

func (p *fakePresenter) Scoreboard(rows []chessdto.ScoreEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scoreboards = append(p.scoreboards, rows)
}

func (p *fakePresenter) Stalled(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stalled = append(p.stalled, on)
}

func (p *fakePresenter) Corrected() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.corrections++
}

func (p *fakePresenter) Problem(err *Error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.problems = append(p.problems, err)
}

func (p *fakePresenter) lastTurn() (turnCall, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.turns) == 0 {
		return turnCall{}, false
	}
	return p.turns[len(p.turns)-1], true
}

func (p *fakePresenter) stalledCalls() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]bool(nil), p.stalled...)
}

func (p *fakePresenter) problemKinds() []Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Kind, 0, len(p.problems))
	for _, e := range p.problems {
		out = append(out, e.Kind)
	}
	return out
}

type fakeScores struct {
	mu    sync.Mutex
	calls int
	count int
	rows  []chessdto.ScoreEntry
}

func (s *fakeScores) FetchTop(_ context.Context, n int) []chessdto.ScoreEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.count = n
	return s.rows
}

type fakeAdvisor struct {
	mu    sync.Mutex
	calls []string
	fn    func(ctx context.Context, fen string) (chessdto.AdvisoryResponse, error)
}

func (a *fakeAdvisor) Suggest(ctx context.Context, fen string) (chessdto.AdvisoryResponse, error) {
	a.mu.Lock()
	a.calls = append(a.calls, fen)
	fn := a.fn
	a.mu.Unlock()
	if fn == nil {
		return chessdto.AdvisoryResponse{}, errors.New("no suggestion")
	}
	return fn(ctx, fen)
}

type harness struct {
	ctrl      *Controller
	server    *fakeServer
	view      *fakeView
	presenter *fakePresenter
	scores    *fakeScores
	advisor   *fakeAdvisor
}

func newHarness(t *testing.T, cfg Config, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		server:    &fakeServer{},
		view:      newFakeView(),
		presenter: &fakePresenter{},
		scores:    &fakeScores{rows: []chessdto.ScoreEntry{{Winner: "alice", Score: 12.5}}},
		advisor:   &fakeAdvisor{},
	}
	if cfg.Username == "" {
		cfg.Username = "alice"
	}
	if cfg.Opponent == "" {
		cfg.Opponent = "Martin"
	}
	ctrl, err := New(cfg, Deps{
		Engine:    rules.NewAdapter(),
		View:      h.view,
		Server:    h.server,
		Presenter: h.presenter,
		Advisor:   h.advisor,
		Scores:    h.scores,
	}, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.ctrl = ctrl
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaitAPI/ChessDestroyer/internal/board"
	"github.com/BaitAPI/ChessDestroyer/internal/rules"
	"github.com/BaitAPI/ChessDestroyer/pkg/chessdto"
)

const (
	defaultRequestTimeout  = 15 * time.Second
	defaultStallAfter      = 5 * time.Second
	defaultScoreboardCount = 1000
)

type Config struct {
	LocalSide rules.Side
	// Initial defaults to the standard start position.
	Initial         rules.Position
	AssistEnabled   bool
	RequestTimeout  time.Duration
	StallAfter      time.Duration
	ScoreboardCount int
	Username        string
	Opponent        string
}

type Deps struct {
	Engine    rules.Engine
	View      board.View
	Server    Server
	Presenter Presenter
	// Optional.
	Advisor Advisor
	Scores  Scores
	Archive Archive
	Logger  *zap.Logger
}

type Option func(*Controller)

// WithSynchronousCalls runs network calls inline on the caller's goroutine.
// Stall detection is off in this mode.
func WithSynchronousCalls() Option {
	return func(c *Controller) { c.async = false }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithSessionID(id string) Option {
	return func(c *Controller) { c.state.ID = id }
}

// Controller runs one match. All state changes happen on one goroutine: the
// caller of Start/HandleEvent in synchronous mode, the Run loop otherwise.
// Network calls run elsewhere and hand their results back as closures.
type Controller struct {
	cfg      Config
	deps     Deps
	logger   *zap.Logger
	sync     *MoveSync
	gameOver *GameOver
	now      func() time.Time

	mu        sync.Mutex
	state     SessionState
	moves     []string
	pending   bool
	stalled   bool
	callSeq   uint64
	inflight  uint64
	episode   int
	announced int
	lastEp    int
	outcome   rules.Outcome
	lastErr   error
	startedAt time.Time
	finished  bool
	started   bool

	async    bool
	inbox    chan func()
	rootCtx  context.Context
	stop     chan struct{}
	done     chan struct{}
	doneOnce sync.Once
}

func New(cfg Config, deps Deps, opts ...Option) (*Controller, error) {
	var errs []error
	if deps.Engine == nil {
		errs = append(errs, errors.New("rules engine is required"))
	}
	if deps.View == nil {
		errs = append(errs, errors.New("board view is required"))
	}
	if deps.Server == nil {
		errs = append(errs, errors.New("server is required"))
	}
	if deps.Presenter == nil {
		errs = append(errs, errors.New("presenter is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if cfg.Initial.IsZero() {
		cfg.Initial = rules.StartPosition()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.StallAfter <= 0 {
		cfg.StallAfter = defaultStallAfter
	}
	if cfg.ScoreboardCount <= 0 {
		cfg.ScoreboardCount = defaultScoreboardCount
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Controller{
		cfg:      cfg,
		deps:     deps,
		sync:     NewMoveSync(deps.Server),
		gameOver: NewGameOver(deps.Server, deps.Engine),
		now:      time.Now,
		state: SessionState{
			ID:            uuid.NewString(),
			Position:      cfg.Initial,
			LocalSide:     cfg.LocalSide,
			AssistEnabled: cfg.AssistEnabled,
		},
		async:   true,
		inbox:   make(chan func(), 16),
		rootCtx: context.Background(),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logger.With(zap.String("session", c.state.ID), zap.String("local", cfg.LocalSide.String()))
	return c, nil
}

// Snapshot copies the current state. Safe from any goroutine.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		SessionState: c.state,
		TurnToMove:   c.turn(),
		State:        c.stateLocked(),
		Pending:      c.pending,
		Stalled:      c.stalled,
		Episode:      c.episode,
		Announced:    c.announced,
		Outcome:      c.outcome,
		MovesSAN:     append([]string(nil), c.moves...),
		LastError:    c.lastErr,
		Finished:     c.finished,
	}
}

// Done is closed when the game has been announced or the player quit.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Start renders the initial position and issues the opening request when the
// server moves first. It does nothing on a second call.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start(ctx)
}

// HandleEvent applies one board event.
func (c *Controller) HandleEvent(ev board.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handle(ev)
}

// Run starts the session and processes board events and call results until
// the game is over, the player quits, input ends or ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	if !c.async {
		return errors.New("Run needs asynchronous calls")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer close(c.stop)

	c.mu.Lock()
	c.rootCtx = ctx
	c.start(ctx)
	c.mu.Unlock()

	events := c.deps.View.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case fn := <-c.inbox:
			c.mu.Lock()
			fn()
			c.mu.Unlock()
		case ev, ok := <-events:
			if !ok {
				c.logger.Info("board_input_closed")
				return nil
			}
			c.HandleEvent(ev)
		}
	}
}

func (c *Controller) start(ctx context.Context) {
	if c.started {
		return
	}
	c.started = true
	c.startedAt = c.now()
	c.logger.Info("session_started",
		zap.String("fen", c.state.Position.FEN()),
		zap.Bool("assist", c.state.AssistEnabled))

	c.render(ctx)
	if c.evaluate() {
		c.confirmTerminal()
		return
	}
	if c.turn() != c.state.LocalSide {
		c.requestOpening()
		return
	}
	c.presentTurn()
	c.maybeAssist()
}

func (c *Controller) handle(ev board.Event) {
	switch ev.Kind {
	case board.EventQuit:
		c.logger.Info("session_quit")
		c.markDone()
	case board.EventDragStart:
		c.onDragStart(ev)
	case board.EventDrop:
		c.onDrop(ev)
	}
}

func (c *Controller) onDragStart(ev board.Event) {
	if !c.canMove() {
		return
	}
	if !ev.Piece.IsZero() && ev.Piece.Side != c.state.LocalSide {
		return
	}
	dests := c.deps.Engine.LegalDestinations(c.state.Position, c.state.LocalSide, ev.Square)
	if len(dests) > 0 {
		c.deps.View.AddCircles(dests)
	}
}

func (c *Controller) onDrop(ev board.Event) {
	c.deps.View.ClearCircles()
	if ev.Source == ev.Target || !ev.Target.Valid() {
		c.render(c.rootCtx)
		return
	}
	if !c.canMove() {
		c.logger.Debug("drop_rejected",
			zap.Bool("pending", c.pending),
			zap.Bool("terminal", c.state.Terminal),
			zap.String("state", c.stateLocked().String()))
		c.render(c.rootCtx)
		return
	}

	m := rules.Move{From: ev.Source, To: ev.Target, Promotion: ev.Promotion}
	if err := c.playLocal(m); err != nil {
		var se *Error
		if errors.As(err, &se) {
			c.logger.Debug("illegal_move", zap.String("move", m.String()))
			c.deps.Presenter.Problem(se)
		}
		c.render(c.rootCtx)
	}
}

// playLocal applies m locally, renders it and submits it. The move that ends
// the game is still submitted; the terminal check follows the submission.
func (c *Controller) playLocal(m rules.Move) error {
	// The submitted move must carry the same promotion the board applied.
	m = c.deps.Engine.Complete(c.state.Position, m)
	next, san, err := c.deps.Engine.Apply(c.state.Position, m)
	if err != nil {
		return &Error{Kind: KindIllegalMove, Op: "apply", Move: m.String(), Err: err}
	}
	c.setPosition(next, san)
	c.render(c.rootCtx)
	ending := c.evaluate()
	c.submit(m, ending)
	return nil
}

func (c *Controller) submit(m rules.Move, ending bool) {
	c.pending = true
	if !ending {
		c.presentTurn()
	}
	c.call("submit", func(ctx context.Context) func() {
		pos, err := c.sync.Submit(ctx, m)
		return func() { c.settle(pos, err, ending) }
	})
}

func (c *Controller) requestOpening() {
	c.pending = true
	c.presentTurn()
	c.call("opening", func(ctx context.Context) func() {
		pos, err := c.sync.RequestOpeningMove(ctx)
		return func() { c.settle(pos, err, false) }
	})
}

// settle applies the result of a move or opening request and runs the terminal check.
func (c *Controller) settle(pos rules.Position, err error, ending bool) {
	c.pending = false
	if err != nil {
		if ending {
			c.logger.Debug("final_move_not_acknowledged", zap.Error(err))
		} else {
			c.fail(err, zap.WarnLevel)
		}
	} else {
		c.adopt(pos)
		c.evaluate()
	}

	if c.state.Terminal {
		c.confirmTerminal()
		return
	}
	c.presentTurn()
	c.maybeAssist()
}

// adopt replaces the local position with the server's.
func (c *Controller) adopt(pos rules.Position) {
	if pos.Equal(c.state.Position) {
		return
	}
	san := ""
	if inf, ok := c.deps.Engine.(moveInferer); ok {
		san, _ = inf.InferMove(c.state.Position, pos)
	}
	c.setPosition(pos, san)
	c.render(c.rootCtx)
}

// evaluate re-derives the terminal flag from the position. Entering terminal
// from non-terminal starts a new episode.
func (c *Controller) evaluate() bool {
	reason := c.deps.Engine.TerminalReason(c.state.Position)
	if reason == rules.ReasonNone {
		c.state.Terminal = false
		return false
	}
	if !c.state.Terminal {
		c.state.Terminal = true
		c.episode++
		c.logger.Info("terminal_detected", zap.Int("episode", c.episode), zap.String("reason", reason.String()))
	}
	c.state.TerminalReason = reason
	return true
}

func (c *Controller) confirmTerminal() {
	c.pending = true
	episode := c.episode
	pos := c.state.Position
	c.call("game_end", func(ctx context.Context) func() {
		out, err := c.gameOver.CheckTerminal(ctx, pos)
		return func() { c.afterGameEnd(episode, out, err) }
	})
}

func (c *Controller) afterGameEnd(episode int, out *TerminalOutcome, err error) {
	c.pending = false
	if err != nil {
		c.fail(err, zap.WarnLevel)
		c.state.Terminal = false
		c.state.TerminalReason = rules.ReasonNone
		c.presentTurn()
		c.maybeAssist()
		return
	}
	if out == nil {
		c.state.Terminal = false
		c.presentTurn()
		c.maybeAssist()
		return
	}
	switch out.Verdict {
	case VerdictConfirmed:
		c.finish(episode, out)
	case VerdictCorrected:
		c.correct(out.Position)
	}
}

// correct applies a 406 correction and re-runs terminal detection. A correction
// to the position already held changes nothing and is not re-queried.
func (c *Controller) correct(pos rules.Position) {
	c.state.Terminal = false
	if pos.Equal(c.state.Position) {
		c.logger.Info("server_correction_noop", zap.String("fen", pos.FEN()))
		c.state.TerminalReason = rules.ReasonServerOverride
		c.presentTurn()
		return
	}

	c.logger.Info("server_correction",
		zap.String("local_fen", c.state.Position.FEN()),
		zap.String("server_fen", pos.FEN()))
	c.setPosition(pos, "")
	c.state.TerminalReason = rules.ReasonServerOverride
	c.render(c.rootCtx)
	c.deps.Presenter.Corrected()

	if c.evaluate() {
		c.confirmTerminal()
		return
	}
	c.presentTurn()
	c.maybeAssist()
}

func (c *Controller) finish(episode int, out *TerminalOutcome) {
	if c.lastEp == episode {
		return
	}
	c.lastEp = episode
	c.outcome = out.Outcome
	c.announced++
	c.logger.Info("game_over", zap.String("outcome", out.Outcome.String()), zap.Int("episode", episode))
	c.deps.Presenter.Announce(out.Outcome)

	rec := c.record(out)
	count := c.cfg.ScoreboardCount
	c.pending = true
	c.call("scoreboard", func(ctx context.Context) func() {
		var rows []chessdto.ScoreEntry
		if c.deps.Scores != nil {
			rows = c.deps.Scores.FetchTop(ctx, count)
		}
		if c.deps.Archive != nil {
			if id, err := c.deps.Archive.Save(ctx, rec); err != nil {
				c.logger.Warn("archive_failed", zap.Error(err))
			} else {
				c.logger.Info("match_archived", zap.Int64("id", id))
			}
		}
		return func() {
			c.pending = false
			if rows == nil {
				rows = []chessdto.ScoreEntry{}
			}
			c.deps.Presenter.Scoreboard(rows)
			c.finished = true
			c.markDone()
		}
	})
}

func (c *Controller) record(out *TerminalOutcome) *chessdto.MatchRecord {
	return &chessdto.MatchRecord{
		SessionUUID: c.state.ID,
		Username:    c.cfg.Username,
		LocalSide:   c.state.LocalSide.String(),
		Opponent:    c.cfg.Opponent,
		Result:      resultFor(out.Outcome, c.state.LocalSide),
		Reason:      out.Reason.String(),
		FinalFEN:    c.state.Position.FEN(),
		MovesSAN:    append([]string(nil), c.moves...),
		StartedAt:   c.startedAt,
		EndedAt:     c.now(),
	}
}

func resultFor(o rules.Outcome, local rules.Side) string {
	switch o {
	case rules.OutcomeDraw:
		return "draw"
	case rules.OutcomeCheckmateWhite:
		if local == rules.White {
			return "loss"
		}
		return "win"
	case rules.OutcomeCheckmateBlack:
		if local == rules.Black {
			return "loss"
		}
		return "win"
	default:
		return "unknown"
	}
}

func (c *Controller) setPosition(pos rules.Position, san string) {
	c.state.Position = pos
	if san != "" {
		c.moves = append(c.moves, san)
	}
	if !c.state.Terminal {
		c.state.TerminalReason = rules.ReasonNone
	}
}

func (c *Controller) render(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := c.deps.View.Render(ctx, c.state.Position); err != nil {
		c.logger.Warn("render_failed", zap.Error(err))
	}
}

// presentTurn shows whose move it is and marks a king in check.
func (c *Controller) presentTurn() {
	if c.state.Terminal {
		return
	}
	toMove := c.turn()
	c.deps.Presenter.Turn(c.state.LocalSide, toMove)
	if c.deps.Engine.InCheck(c.state.Position) {
		if king := c.deps.Engine.KingSquare(c.state.Position, toMove); king.Valid() {
			c.deps.View.Highlight([]rules.Square{king})
			return
		}
	}
	c.deps.View.ClearHighlights()
}

func (c *Controller) fail(err error, level zapcore.Level) {
	c.lastErr = err
	var se *Error
	if !errors.As(err, &se) {
		se = &Error{Kind: KindSyncFailure, Err: err}
	}
	c.logger.Check(level, "session_problem").Write(zap.String("kind", se.Kind.String()), zap.Error(err))
	c.deps.Presenter.Problem(se)
}

func (c *Controller) turn() rules.Side {
	return c.deps.Engine.Turn(c.state.Position)
}

func (c *Controller) stateLocked() State {
	if c.state.Terminal {
		return Terminal
	}
	if c.turn() == c.state.LocalSide {
		return AwaitingLocalMove
	}
	return AwaitingRemoteMove
}

func (c *Controller) canMove() bool {
	return !c.state.Terminal && !c.pending && !c.finished && c.turn() == c.state.LocalSide
}

func (c *Controller) markDone() {
	c.doneOnce.Do(func() { close(c.done) })
}

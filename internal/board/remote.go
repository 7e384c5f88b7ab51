package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/BaitAPI/ChessDestroyer/internal/rules"
)

var errNotConnected = errors.New("board widget not connected")

// Frame is the JSON message exchanged with a remote board widget.
type Frame struct {
	Type        string   `json:"type"`
	FEN         string   `json:"fen,omitempty"`
	Orientation string   `json:"orientation,omitempty"`
	Squares     []string `json:"squares,omitempty"`
	Square      string   `json:"square,omitempty"`
	Piece       string   `json:"piece,omitempty"`
	Source      string   `json:"source,omitempty"`
	Target      string   `json:"target,omitempty"`
	Promotion   string   `json:"promotion,omitempty"`
}

const (
	frameRender    = "render"
	frameHighlight = "highlight"
	frameCircles   = "circles"
	frameDragStart = "dragStart"
	frameDrop      = "drop"
	frameQuit      = "quit"
)

type RemoteOption func(*RemoteView)

func WithReconnect(attempts int) RemoteOption {
	return func(v *RemoteView) { v.maxReconnect = attempts }
}

func WithRemoteLogger(l *zap.Logger) RemoteOption {
	return func(v *RemoteView) {
		if l != nil {
			v.logger = l
		}
	}
}

// RemoteView drives a board widget over a websocket. Outgoing state is kept
// locally and replayed after a reconnect.
type RemoteView struct {
	url          string
	orientation  rules.Side
	logger       *zap.Logger
	maxReconnect int

	mu      sync.Mutex
	conn    *websocket.Conn
	ov      overlay
	lastFEN string

	events     chan Event
	stopCh     chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
	rootCtx    context.Context
	rootCancel context.CancelFunc
}

func DialRemoteView(ctx context.Context, url string, orientation rules.Side, opts ...RemoteOption) (*RemoteView, error) {
	v := &RemoteView{
		url:          url,
		orientation:  orientation,
		logger:       zap.NewNop(),
		maxReconnect: 5,
		events:       make(chan Event, 16),
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.rootCtx, v.rootCancel = context.WithCancel(context.Background())

	conn, err := v.dial(ctx)
	if err != nil {
		v.rootCancel()
		return nil, fmt.Errorf("dial board widget: %w", err)
	}
	v.attach(conn)
	return v, nil
}

func (v *RemoteView) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, v.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	return conn, err
}

// attach installs conn, replays the current state and starts reading.
func (v *RemoteView) attach(conn *websocket.Conn) {
	v.mu.Lock()
	v.conn = conn
	var replay []Frame
	if v.lastFEN != "" {
		replay = append(replay,
			Frame{Type: frameRender, FEN: v.lastFEN, Orientation: v.orientation.String()},
			Frame{Type: frameHighlight, Squares: squareNames(v.ov.highlights)},
			Frame{Type: frameCircles, Squares: v.circleNames()},
		)
	}
	v.mu.Unlock()

	for _, f := range replay {
		if err := v.send(v.rootCtx, f); err != nil {
			v.logger.Debug("board_replay_failed", zap.String("frame", f.Type), zap.Error(err))
		}
	}

	v.wg.Add(1)
	go v.listen(conn)
}

func (v *RemoteView) listen(conn *websocket.Conn) {
	defer v.wg.Done()
	for {
		var f Frame
		if err := wsjson.Read(v.rootCtx, conn, &f); err != nil {
			if v.stopping() {
				return
			}
			v.logger.Warn("board_widget_disconnected", zap.Error(err))
			v.detach(conn, websocket.StatusGoingAway, "reconnect")
			v.reconnect()
			return
		}
		ev, ok := decodeFrame(f)
		if !ok {
			v.logger.Debug("board_frame_ignored", zap.String("type", f.Type))
			continue
		}
		select {
		case v.events <- ev:
		case <-v.stopCh:
			return
		}
	}
}

func (v *RemoteView) reconnect() {
	if v.maxReconnect <= 0 {
		return
	}
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		for attempt := 1; attempt <= v.maxReconnect; attempt++ {
			select {
			case <-v.stopCh:
				return
			case <-time.After(backoff(attempt)):
			}
			conn, err := v.dial(v.rootCtx)
			if err != nil {
				v.logger.Debug("board_reconnect_failed", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
			if v.stopping() {
				_ = conn.Close(websocket.StatusNormalClosure, "close")
				return
			}
			v.logger.Info("board_widget_reconnected", zap.Int("attempt", attempt))
			v.attach(conn)
			return
		}
		v.logger.Error("board_widget_lost", zap.Int("attempts", v.maxReconnect))
	}()
}

func (v *RemoteView) detach(conn *websocket.Conn, code websocket.StatusCode, reason string) {
	v.mu.Lock()
	if v.conn == conn {
		v.conn = nil
	}
	v.mu.Unlock()
	_ = conn.Close(code, reason)
}

func (v *RemoteView) send(ctx context.Context, f Frame) error {
	v.mu.Lock()
	conn := v.conn
	v.mu.Unlock()
	if conn == nil {
		return errNotConnected
	}
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return wsjson.Write(wctx, conn, f)
}

func (v *RemoteView) Render(ctx context.Context, pos rules.Position) error {
	v.mu.Lock()
	v.lastFEN = pos.FEN()
	v.mu.Unlock()
	return v.send(ctx, Frame{Type: frameRender, FEN: pos.FEN(), Orientation: v.orientation.String()})
}

func (v *RemoteView) Highlight(squares []rules.Square) {
	v.mu.Lock()
	changed := v.ov.setHighlights(squares)
	names := squareNames(v.ov.highlights)
	v.mu.Unlock()
	if changed {
		v.push(Frame{Type: frameHighlight, Squares: names})
	}
}

func (v *RemoteView) ClearHighlights() { v.Highlight(nil) }

func (v *RemoteView) AddCircles(squares []rules.Square) {
	v.mu.Lock()
	changed := v.ov.addCircles(squares)
	names := v.circleNames()
	v.mu.Unlock()
	if changed {
		v.push(Frame{Type: frameCircles, Squares: names})
	}
}

func (v *RemoteView) ClearCircles() {
	v.mu.Lock()
	changed := v.ov.clearCircles()
	v.mu.Unlock()
	if changed {
		v.push(Frame{Type: frameCircles})
	}
}

func (v *RemoteView) push(f Frame) {
	if err := v.send(v.rootCtx, f); err != nil {
		v.logger.Debug("board_frame_dropped", zap.String("frame", f.Type), zap.Error(err))
	}
}

func (v *RemoteView) Events() <-chan Event { return v.events }

func (v *RemoteView) Close() error {
	v.stopOnce.Do(func() {
		close(v.stopCh)
		v.mu.Lock()
		conn := v.conn
		v.conn = nil
		v.mu.Unlock()
		if conn != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "close")
		}
		v.rootCancel()
		v.wg.Wait()
		close(v.events)
	})
	return nil
}

func (v *RemoteView) stopping() bool {
	select {
	case <-v.stopCh:
		return true
	default:
		return false
	}
}

// circleNames must be called with mu held.
func (v *RemoteView) circleNames() []string {
	var out []string
	for sq := rules.Square(0); sq < 64; sq++ {
		if v.ov.circled(sq) {
			out = append(out, sq.String())
		}
	}
	return out
}

func decodeFrame(f Frame) (Event, bool) {
	switch f.Type {
	case frameDragStart:
		sq, err := rules.ParseSquare(f.Square)
		if err != nil {
			return Event{}, false
		}
		p, _ := rules.ParsePiece(f.Piece)
		return DragStart(sq, p), true
	case frameDrop:
		from, err := rules.ParseSquare(f.Source)
		if err != nil {
			return Event{}, false
		}
		to, err := rules.ParseSquare(f.Target)
		if err != nil {
			return Event{}, false
		}
		promo := rules.NoKind
		if f.Promotion != "" {
			m, err := rules.ParseMove(f.Source + f.Target + f.Promotion)
			if err != nil {
				return Event{}, false
			}
			promo = m.Promotion
		}
		return Drop(from, to, promo), true
	case frameQuit:
		return Event{Kind: EventQuit}, true
	default:
		return Event{}, false
	}
}

func backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 200 * time.Millisecond
}

package board

import (
	"context"
	"errors"

	"github.com/BaitAPI/ChessDestroyer/internal/rules"
)

var ErrClosed = errors.New("board view closed")

type EventKind int

const (
	EventDragStart EventKind = iota + 1
	EventDrop
	EventQuit
)

func (k EventKind) String() string {
	switch k {
	case EventDragStart:
		return "drag_start"
	case EventDrop:
		return "drop"
	case EventQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Event is emitted by a view. DragStart fills Square and Piece, Drop fills
// Source, Target and optionally Promotion.
type Event struct {
	Kind      EventKind
	Square    rules.Square
	Piece     rules.Piece
	Source    rules.Square
	Target    rules.Square
	Promotion rules.PieceKind
}

func DragStart(sq rules.Square, p rules.Piece) Event {
	return Event{Kind: EventDragStart, Square: sq, Piece: p, Source: rules.NoSquare, Target: rules.NoSquare}
}

func Drop(from, to rules.Square, promo rules.PieceKind) Event {
	return Event{Kind: EventDrop, Square: rules.NoSquare, Source: from, Target: to, Promotion: promo}
}

// View is a board widget. It never checks legality.
//
// Highlight replaces the active highlight set. Circles accumulate until
// ClearCircles. Render of the same position and overlays is idempotent.
type View interface {
	Render(ctx context.Context, pos rules.Position) error
	Highlight(squares []rules.Square)
	ClearHighlights()
	AddCircles(squares []rules.Square)
	ClearCircles()
	// Events may return nil for output-only views.
	Events() <-chan Event
	Close() error
}

// Decoder reads piece placement out of a position. rules.Adapter satisfies it.
type Decoder interface {
	Pieces(pos rules.Position) map[rules.Square]rules.Piece
}

// overlay tracks the highlight and circle sets shared by every view.
type overlay struct {
	highlights []rules.Square
	circles    map[rules.Square]struct{}
}

func (o *overlay) setHighlights(squares []rules.Square) bool {
	next := validSquares(squares)
	if equalSquares(o.highlights, next) {
		return false
	}
	o.highlights = next
	return true
}

func (o *overlay) addCircles(squares []rules.Square) bool {
	if o.circles == nil {
		o.circles = make(map[rules.Square]struct{})
	}
	changed := false
	for _, sq := range validSquares(squares) {
		if _, ok := o.circles[sq]; !ok {
			o.circles[sq] = struct{}{}
			changed = true
		}
	}
	return changed
}

func (o *overlay) clearCircles() bool {
	if len(o.circles) == 0 {
		return false
	}
	o.circles = nil
	return true
}

func (o *overlay) highlighted(sq rules.Square) bool {
	for _, h := range o.highlights {
		if h == sq {
			return true
		}
	}
	return false
}

func (o *overlay) circled(sq rules.Square) bool {
	_, ok := o.circles[sq]
	return ok
}

func validSquares(squares []rules.Square) []rules.Square {
	out := make([]rules.Square, 0, len(squares))
	seen := make(map[rules.Square]struct{}, len(squares))
	for _, sq := range squares {
		if !sq.Valid() {
			continue
		}
		if _, dup := seen[sq]; dup {
			continue
		}
		seen[sq] = struct{}{}
		out = append(out, sq)
	}
	return out
}

func equalSquares(a, b []rules.Square) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func squareNames(squares []rules.Square) []string {
	out := make([]string, 0, len(squares))
	for _, sq := range squares {
		out = append(out, sq.String())
	}
	return out
}

package board

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/BaitAPI/ChessDestroyer/internal/rules"
)

// TerminalView draws an ASCII board and turns typed commands into board events:
// "e2" picks a piece up, "e2e4" or "e7e8q" moves it, "quit" ends input.
type TerminalView struct {
	mu          sync.Mutex
	out         io.Writer
	in          io.Reader
	dec         Decoder
	orientation rules.Side
	ov          overlay
	pieces      map[rules.Square]rules.Piece

	events    chan Event
	startOnce sync.Once
	done      chan struct{}
	closeOnce sync.Once
}

func NewTerminalView(out io.Writer, in io.Reader, dec Decoder, orientation rules.Side) *TerminalView {
	return &TerminalView{
		out:         out,
		in:          in,
		dec:         dec,
		orientation: orientation,
		events:      make(chan Event, 8),
		done:        make(chan struct{}),
	}
}

func (v *TerminalView) Render(ctx context.Context, pos rules.Position) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed() {
		return ErrClosed
	}
	v.pieces = v.dec.Pieces(pos)
	_, err := io.WriteString(v.out, v.frame())
	return err
}

func (v *TerminalView) Highlight(squares []rules.Square) {
	v.mu.Lock()
	v.ov.setHighlights(squares)
	v.mu.Unlock()
}

func (v *TerminalView) ClearHighlights() { v.Highlight(nil) }

func (v *TerminalView) AddCircles(squares []rules.Square) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.ov.addCircles(squares) || v.closed() {
		return
	}
	names := make([]string, 0, len(v.ov.circles))
	for sq := rules.Square(0); sq < 64; sq++ {
		if v.ov.circled(sq) {
			names = append(names, sq.String())
		}
	}
	fmt.Fprintf(v.out, "  moves: %s\n", strings.Join(names, " "))
}

func (v *TerminalView) ClearCircles() {
	v.mu.Lock()
	v.ov.clearCircles()
	v.mu.Unlock()
}

// Events starts reading input on first use.
func (v *TerminalView) Events() <-chan Event {
	v.startOnce.Do(func() { go v.readLoop() })
	return v.events
}

func (v *TerminalView) Close() error {
	v.closeOnce.Do(func() { close(v.done) })
	return nil
}

func (v *TerminalView) closed() bool {
	select {
	case <-v.done:
		return true
	default:
		return false
	}
}

func (v *TerminalView) readLoop() {
	defer close(v.events)
	sc := bufio.NewScanner(v.in)
	for sc.Scan() {
		evs, ok := v.parse(sc.Text())
		if !ok {
			v.mu.Lock()
			fmt.Fprintf(v.out, "  ? %q (try e2, e2e4, e7e8q or quit)\n", strings.TrimSpace(sc.Text()))
			v.mu.Unlock()
			continue
		}
		for _, ev := range evs {
			if !v.emit(ev) {
				return
			}
			if ev.Kind == EventQuit {
				return
			}
		}
	}
	v.emit(Event{Kind: EventQuit})
}

func (v *TerminalView) emit(ev Event) bool {
	select {
	case v.events <- ev:
		return true
	case <-v.done:
		return false
	}
}

func (v *TerminalView) parse(line string) ([]Event, bool) {
	cmd := strings.ToLower(strings.TrimSpace(line))
	switch cmd {
	case "":
		return nil, true
	case "quit", "exit", "q":
		return []Event{{Kind: EventQuit}}, true
	}
	if len(cmd) == 2 {
		sq, err := rules.ParseSquare(cmd)
		if err != nil {
			return nil, false
		}
		return []Event{DragStart(sq, v.pieceAt(sq))}, true
	}
	m, err := rules.ParseMove(cmd)
	if err != nil {
		return nil, false
	}
	return []Event{
		DragStart(m.From, v.pieceAt(m.From)),
		Drop(m.From, m.To, m.Promotion),
	}, true
}

func (v *TerminalView) pieceAt(sq rules.Square) rules.Piece {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pieces[sq]
}

// frame renders the board from the local side's point of view.
// Highlighted squares are bracketed and circled squares marked with '*' or parentheses.
func (v *TerminalView) frame() string {
	var b strings.Builder
	b.WriteString("\n   +------------------------+\n")
	for row := 0; row < 8; row++ {
		rank := 7 - row
		if v.orientation == rules.Black {
			rank = row
		}
		fmt.Fprintf(&b, " %d |", rank+1)
		for col := 0; col < 8; col++ {
			file := col
			if v.orientation == rules.Black {
				file = 7 - col
			}
			sq := rules.NewSquare(file, rank)
			b.WriteString(v.cell(sq))
		}
		b.WriteString("|\n")
	}
	b.WriteString("   +------------------------+\n    ")
	for col := 0; col < 8; col++ {
		file := col
		if v.orientation == rules.Black {
			file = 7 - col
		}
		fmt.Fprintf(&b, " %c ", 'a'+file)
	}
	b.WriteString("\n")
	return b.String()
}

func (v *TerminalView) cell(sq rules.Square) string {
	glyph := "."
	if p, ok := v.pieces[sq]; ok && !p.IsZero() {
		glyph = p.Kind.Letter()
		if p.Side == rules.White {
			glyph = strings.ToUpper(glyph)
		}
	}
	switch {
	case v.ov.highlighted(sq):
		return "[" + glyph + "]"
	case v.ov.circled(sq) && glyph == ".":
		return " * "
	case v.ov.circled(sq):
		return "(" + glyph + ")"
	default:
		return " " + glyph + " "
	}
}

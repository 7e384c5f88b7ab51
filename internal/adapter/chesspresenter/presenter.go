package chesspresenter

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"

	"github.com/BaitAPI/ChessDestroyer/internal/rules"
	"github.com/BaitAPI/ChessDestroyer/internal/session"
	"github.com/BaitAPI/ChessDestroyer/pkg/chessdto"
)

const spinnerCharset = 14

type Option func(*Presenter)

// WithoutSpinner disables the waiting animation.
func WithoutSpinner() Option {
	return func(p *Presenter) { p.spin = nil }
}

// Presenter writes session progress to a terminal. A spinner runs while the
// opponent is to move.
type Presenter struct {
	mu      sync.Mutex
	out     io.Writer
	format  *Formatter
	players Players
	spin    *spinner.Spinner
	waiting bool
}

var _ session.Presenter = (*Presenter)(nil)

func NewPresenter(out io.Writer, format *Formatter, players Players, opts ...Option) *Presenter {
	if format == nil {
		format = NewFormatter(nil)
	}
	p := &Presenter{
		out:     out,
		format:  format,
		players: players,
		spin:    spinner.New(spinner.CharSets[spinnerCharset], 100*time.Millisecond, spinner.WithWriter(out)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Presenter) Opened(local rules.Side) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.line(p.format.Opened(p.players, local))
}

func (p *Presenter) Turn(local, toMove rules.Side) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopWaiting()
	p.line(p.format.Labels(p.players, local, toMove))
	status := p.format.Status(local, toMove)
	if toMove == local {
		p.line(status)
		return
	}
	p.startWaiting(status)
}

func (p *Presenter) Announce(outcome rules.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopWaiting()
	if text := p.format.Announcement(outcome); text != "" {
		p.line("")
		p.line(text)
	}
}

func (p *Presenter) Scoreboard(rows []chessdto.ScoreEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopWaiting()
	p.line("")
	p.line(p.format.Scoreboard(rows))
}

func (p *Presenter) Stalled(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.line(p.format.Stalled(on))
}

func (p *Presenter) Corrected() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.line(p.format.Corrected())
}

func (p *Presenter) Problem(err *session.Error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if text := p.format.Problem(err); text != "" {
		p.line(text)
	}
}

// line writes one line, pausing the spinner around it.
func (p *Presenter) line(text string) {
	if p.waiting && p.spin != nil {
		p.spin.Stop()
		defer p.spin.Start()
	}
	fmt.Fprintln(p.out, strings.TrimRight(text, "\n"))
}

func (p *Presenter) startWaiting(status string) {
	p.waiting = true
	if p.spin == nil {
		fmt.Fprintln(p.out, status)
		return
	}
	p.spin.Suffix = " " + status
	p.spin.Start()
}

func (p *Presenter) stopWaiting() {
	if !p.waiting {
		return
	}
	p.waiting = false
	if p.spin != nil {
		p.spin.Stop()
	}
}

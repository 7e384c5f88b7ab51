package board

import (
	"context"
	"errors"
	"sync"

	"github.com/BaitAPI/ChessDestroyer/internal/rules"
)

const mergedEventBuffer = 16

// Multi mirrors output to every view and merges their events into one stream.
type Multi struct {
	views []View

	start     sync.Once
	events    chan Event
	stop      chan struct{}
	closeOnce sync.Once
}

var _ View = (*Multi)(nil)

func NewMulti(views ...View) *Multi {
	return &Multi{views: views, stop: make(chan struct{})}
}

// Add must be called before Events.
func (m *Multi) Add(v View) {
	m.views = append(m.views, v)
}

func (m *Multi) Render(ctx context.Context, pos rules.Position) error {
	var errs []error
	for _, v := range m.views {
		if err := v.Render(ctx, pos); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Highlight(squares []rules.Square) {
	for _, v := range m.views {
		v.Highlight(squares)
	}
}

func (m *Multi) ClearHighlights() {
	for _, v := range m.views {
		v.ClearHighlights()
	}
}

func (m *Multi) AddCircles(squares []rules.Square) {
	for _, v := range m.views {
		v.AddCircles(squares)
	}
}

func (m *Multi) ClearCircles() {
	for _, v := range m.views {
		v.ClearCircles()
	}
}

// Events starts one forwarder per view on first use. The merged channel closes
// once every source channel has closed or the Multi is closed. It is nil when
// no view produces events.
func (m *Multi) Events() <-chan Event {
	m.start.Do(func() {
		var sources []<-chan Event
		for _, v := range m.views {
			if ch := v.Events(); ch != nil {
				sources = append(sources, ch)
			}
		}
		if len(sources) == 0 {
			return
		}
		m.events = make(chan Event, mergedEventBuffer)

		var wg sync.WaitGroup
		for _, ch := range sources {
			wg.Add(1)
			go func(ch <-chan Event) {
				defer wg.Done()
				m.forward(ch)
			}(ch)
		}
		go func() {
			wg.Wait()
			close(m.events)
		}()
	})
	return m.events
}

func (m *Multi) forward(ch <-chan Event) {
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			select {
			case m.events <- ev:
			case <-m.stop:
				return
			}
		case <-m.stop:
			return
		}
	}
}

func (m *Multi) Close() error {
	m.closeOnce.Do(func() { close(m.stop) })
	var errs []error
	for _, v := range m.views {
		if err := v.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

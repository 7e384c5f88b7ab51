package session

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// call runs work under the request timeout and hands the continuation it
// returns back to the controller goroutine. Callers set pending first; only
// one call is outstanding at a time.
func (c *Controller) call(op string, work func(ctx context.Context) func()) {
	c.callSeq++
	seq := c.callSeq
	c.inflight = seq
	parent := c.rootCtx
	timeout := c.cfg.RequestTimeout

	run := func() {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()

		var stall *time.Timer
		if c.async {
			stall = time.AfterFunc(c.cfg.StallAfter, func() {
				c.post(func() { c.onStall(op, seq) })
			})
		}
		started := time.Now()
		cont := work(ctx)
		if stall != nil {
			stall.Stop()
		}
		elapsed := time.Since(started)

		c.post(func() {
			if c.inflight == seq {
				c.inflight = 0
			}
			if c.stalled {
				c.stalled = false
				c.deps.Presenter.Stalled(false)
				c.logger.Info("call_recovered", zap.String("op", op), zap.Duration("elapsed", elapsed))
			}
			cont()
		})
	}

	if c.async {
		go run()
		return
	}
	run()
}

// post delivers fn to the controller goroutine.
func (c *Controller) post(fn func()) {
	if !c.async {
		fn()
		return
	}
	select {
	case c.inbox <- fn:
	case <-c.stop:
	}
}

func (c *Controller) onStall(op string, seq uint64) {
	if c.inflight != seq || c.stalled {
		return
	}
	c.stalled = true
	c.logger.Warn("call_stalled", zap.String("op", op), zap.Duration("after", c.cfg.StallAfter))
	c.deps.Presenter.Stalled(true)
}

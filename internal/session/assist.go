package session

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/BaitAPI/ChessDestroyer/internal/rules"
	"github.com/BaitAPI/ChessDestroyer/pkg/chessdto"
)

// maybeAssist asks the advisor for a move when assist is on and the local side
// may move. The suggestion is played through the same path as a drop.
func (c *Controller) maybeAssist() {
	if !c.state.AssistEnabled || c.deps.Advisor == nil || !c.canMove() {
		return
	}
	if c.deps.Engine.IsTerminal(c.state.Position) {
		return
	}
	pos := c.state.Position
	c.pending = true
	c.call("assist", func(ctx context.Context) func() {
		resp, err := c.deps.Advisor.Suggest(ctx, pos.FEN())
		return func() { c.afterSuggest(pos, resp, err) }
	})
}

func (c *Controller) afterSuggest(asked rules.Position, resp chessdto.AdvisoryResponse, err error) {
	c.pending = false
	if err != nil {
		c.logger.Warn("assist_unavailable", zap.Error(err))
		c.presentTurn()
		return
	}
	if !asked.Equal(c.state.Position) || !c.canMove() {
		c.logger.Debug("assist_suggestion_stale", zap.String("fen", asked.FEN()))
		return
	}

	m, err := c.deps.Engine.Resolve(asked, resp.Move, resp.SAN)
	if err == nil {
		err = c.playLocal(m)
	}
	if err == nil {
		c.logger.Debug("assist_played", zap.String("move", m.String()), zap.String("san", resp.SAN))
		return
	}

	// The advisor contradicts the rules engine. Assist is switched off so the
	// player can continue by hand.
	aerr := &Error{Kind: KindAssistIntegration, Op: "assist", Move: suggestionText(resp), Err: err}
	c.state.AssistEnabled = false
	c.render(c.rootCtx)
	c.fail(aerr, zap.ErrorLevel)
	c.presentTurn()
}

func suggestionText(resp chessdto.AdvisoryResponse) string {
	parts := make([]string, 0, 2)
	if s := strings.TrimSpace(resp.Move); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(resp.SAN); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, " / ")
}

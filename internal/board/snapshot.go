package board

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/BaitAPI/ChessDestroyer/internal/rules"
)

// SnapshotView writes every distinct frame to dir as board-NNNN.png and keeps
// latest.png pointing at the current one. It emits no events.
type SnapshotView struct {
	mu          sync.Mutex
	dir         string
	dec         Decoder
	orientation rules.Side
	logger      *zap.Logger

	ov       overlay
	pieces   map[rules.Square]rules.Piece
	rendered bool
	last     []byte
	seq      int
}

func NewSnapshotView(dir string, dec Decoder, orientation rules.Side, logger *zap.Logger) (*SnapshotView, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &SnapshotView{dir: dir, dec: dec, orientation: orientation, logger: logger}, nil
}

func (v *SnapshotView) Render(ctx context.Context, pos rules.Position) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pieces = v.dec.Pieces(pos)
	v.rendered = true
	return v.flush(ctx)
}

func (v *SnapshotView) Highlight(squares []rules.Square) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ov.setHighlights(squares) {
		v.redraw()
	}
}

func (v *SnapshotView) ClearHighlights() { v.Highlight(nil) }

func (v *SnapshotView) AddCircles(squares []rules.Square) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ov.addCircles(squares) {
		v.redraw()
	}
}

func (v *SnapshotView) ClearCircles() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ov.clearCircles() {
		v.redraw()
	}
}

func (v *SnapshotView) Events() <-chan Event { return nil }

func (v *SnapshotView) Close() error { return nil }

// Latest is the path of the current frame.
func (v *SnapshotView) Latest() string { return filepath.Join(v.dir, "latest.png") }

func (v *SnapshotView) redraw() {
	if !v.rendered {
		return
	}
	if err := v.flush(context.Background()); err != nil {
		v.logger.Warn("snapshot_redraw_failed", zap.Error(err))
	}
}

func (v *SnapshotView) flush(ctx context.Context) error {
	circles := make(map[rules.Square]struct{}, len(v.ov.circles))
	for sq := range v.ov.circles {
		circles[sq] = struct{}{}
	}
	img, err := renderPNG(ctx, frameSpec{
		pieces:      v.pieces,
		orientation: v.orientation,
		highlights:  append([]rules.Square(nil), v.ov.highlights...),
		circles:     circles,
	})
	if err != nil {
		return err
	}
	if bytes.Equal(img, v.last) {
		return nil
	}
	v.seq++
	name := filepath.Join(v.dir, fmt.Sprintf("board-%04d.png", v.seq))
	if err := os.WriteFile(name, img, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := writeAtomic(v.Latest(), img); err != nil {
		return err
	}
	v.last = img
	v.logger.Debug("snapshot_written", zap.String("file", name))
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}

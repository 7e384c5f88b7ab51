package board

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/BaitAPI/ChessDestroyer/internal/rules"
)

//go:embed assets/pieces/*.svg
var pieceFiles embed.FS

type glyphKey struct {
	piece rules.Piece
	size  int
}

var (
	glyphCache   = map[glyphKey]image.Image{}
	glyphCacheMu sync.RWMutex
)

func pieceGlyph(p rules.Piece, size int) (image.Image, error) {
	key := glyphKey{piece: p, size: size}

	glyphCacheMu.RLock()
	img, ok := glyphCache[key]
	glyphCacheMu.RUnlock()
	if ok {
		return img, nil
	}

	name := fmt.Sprintf("assets/pieces/%s.svg", p.String())
	data, err := pieceFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read piece asset %s: %w", name, err)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(cleanSVG(data)))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg %s: %w", name, err)
	}
	if icon.ViewBox.W <= 0 {
		icon.ViewBox.W = float64(size)
	}
	if icon.ViewBox.H <= 0 {
		icon.ViewBox.H = float64(size)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	rgba := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(rgba, rgba.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)

	glyphCacheMu.Lock()
	glyphCache[key] = rgba
	glyphCacheMu.Unlock()
	return rgba, nil
}

// cleanSVG normalises style spellings oksvg does not parse.
func cleanSVG(svg []byte) []byte {
	out := bytes.ReplaceAll(svg, []byte("fill: #"), []byte("fill:#"))
	out = bytes.ReplaceAll(out, []byte("stroke: #"), []byte("stroke:#"))
	return bytes.ReplaceAll(out, []byte("stop-color: #"), []byte("stop-color:#"))
}

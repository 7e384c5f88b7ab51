package board

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/BaitAPI/ChessDestroyer/internal/rules"
)

const (
	squareSize = 64
	margin     = 24
	boardSize  = squareSize * 8
)

var (
	lightSquare     = color.RGBA{233, 207, 163, 255}
	darkSquare      = color.RGBA{187, 136, 96, 255}
	highlightFill   = color.NRGBA{R: 235, G: 64, B: 52, A: 140}
	circleFill      = color.NRGBA{R: 20, G: 85, B: 30, A: 110}
	coordinateColor = color.NRGBA{R: 60, G: 60, B: 60, A: 255}
	backgroundColor = color.RGBA{245, 241, 232, 255}
)

// frameSpec is everything one PNG depends on.
type frameSpec struct {
	pieces      map[rules.Square]rules.Piece
	orientation rules.Side
	highlights  []rules.Square
	circles     map[rules.Square]struct{}
}

func renderPNG(ctx context.Context, fr frameSpec) ([]byte, error) {
	total := boardSize + margin*2
	img := image.NewRGBA(image.Rect(0, 0, total, total))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)
	origin := image.Point{X: margin, Y: margin}

	for sq := rules.Square(0); sq < 64; sq++ {
		clr := lightSquare
		if (sq.File()+sq.Rank())%2 == 0 {
			clr = darkSquare
		}
		imagedraw.Draw(img, squareRect(sq, fr.orientation, origin), image.NewUniform(clr), image.Point{}, imagedraw.Src)
	}
	for _, sq := range fr.highlights {
		imagedraw.Draw(img, squareRect(sq, fr.orientation, origin), image.NewUniform(highlightFill), image.Point{}, imagedraw.Over)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for sq := rules.Square(0); sq < 64; sq++ {
		p, ok := fr.pieces[sq]
		if !ok || p.IsZero() {
			continue
		}
		glyph, err := pieceGlyph(p, squareSize)
		if err != nil {
			return nil, err
		}
		imagedraw.Draw(img, squareRect(sq, fr.orientation, origin), glyph, image.Point{}, imagedraw.Over)
	}
	for sq := rules.Square(0); sq < 64; sq++ {
		if _, ok := fr.circles[sq]; !ok {
			continue
		}
		r := squareRect(sq, fr.orientation, origin)
		center := image.Pt(r.Min.X+squareSize/2, r.Min.Y+squareSize/2)
		drawDisc(img, center, squareSize/6, circleFill)
	}
	drawCoordinates(img, fr.orientation, origin)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func squareRect(sq rules.Square, orientation rules.Side, origin image.Point) image.Rectangle {
	col, row := sq.File(), 7-sq.Rank()
	if orientation == rules.Black {
		col, row = 7-sq.File(), sq.Rank()
	}
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func drawCoordinates(img *image.RGBA, orientation rules.Side, origin image.Point) {
	d := &font.Drawer{Dst: img, Src: image.NewUniform(coordinateColor), Face: basicfont.Face7x13}
	ascent := basicfont.Face7x13.Metrics().Ascent.Ceil()
	for i := 0; i < 8; i++ {
		file, rank := i, 7-i
		if orientation == rules.Black {
			file, rank = 7-i, i
		}
		center := origin.X + i*squareSize + squareSize/2
		drawCentered(d, string(rune('a'+file)), center, origin.Y+boardSize+ascent+4)

		middle := origin.Y + i*squareSize + squareSize/2
		drawCentered(d, string(rune('1'+rank)), origin.X/2, middle+ascent/2)
	}
}

func drawCentered(d *font.Drawer, text string, centerX, baseline int) {
	w := d.MeasureString(text).Round()
	d.Dot = fixed.P(centerX-w/2, baseline)
	d.DrawString(text)
}

func drawDisc(img *image.RGBA, center image.Point, radius int, clr color.Color) {
	r2 := radius * radius
	src := image.NewUniform(clr)
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y > r2 {
				continue
			}
			p := image.Pt(center.X+x, center.Y+y)
			if !p.In(img.Bounds()) {
				continue
			}
			imagedraw.Draw(img, image.Rect(p.X, p.Y, p.X+1, p.Y+1), src, image.Point{}, imagedraw.Over)
		}
	}
}

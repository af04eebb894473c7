// Package boardimage exports a rendered match frame as a PNG showing the
// three boards side by side.
package boardimage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/park285/tsc-client/internal/match"
	"github.com/park285/tsc-client/internal/view"
	"github.com/park285/tsc-client/pkg/tscproto"
)

const (
	squareSize   = 48
	boardSquares = 8
	boardSize    = squareSize * boardSquares
	boardGap     = 36
	sideMargin   = 28
	topMargin    = 64
	bottomMargin = 72
	frameWidth   = 4
)

var (
	backgroundColor  = color.RGBA{R: 28, G: 31, B: 46, A: 255}
	lightSquare      = color.RGBA{R: 233, G: 207, B: 163, A: 255}
	darkSquare       = color.RGBA{R: 187, G: 136, B: 96, A: 255}
	activeFrameColor = color.RGBA{R: 8, G: 214, B: 120, A: 255}
	finishedOverlay  = color.NRGBA{R: 20, G: 20, B: 20, A: 110}
	textPrimary      = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	textMuted        = color.NRGBA{R: 170, G: 176, B: 200, A: 255}
	runningClock     = color.NRGBA{R: 255, G: 228, B: 120, A: 255}
)

// Size returns the pixel dimensions of every exported image.
func Size() (int, int) {
	w := sideMargin*2 + boardSize*tscproto.BoardCount + boardGap*(tscproto.BoardCount-1)
	h := topMargin + boardSize + bottomMargin
	return w, h
}

// RenderPNG draws f: summary on top, three boards in the frame's
// orientation, labels under each board, then the clocks and status.
func RenderPNG(ctx context.Context, f *view.Frame) ([]byte, error) {
	if f == nil {
		return nil, fmt.Errorf("frame is nil")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	w, h := Size()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawer := &font.Drawer{Dst: img, Face: basicfont.Face7x13}
	drawString(drawer, sideMargin, 28, f.Summary, textPrimary)

	for i := range f.Boards {
		b := f.Boards[i]
		origin := image.Point{X: sideMargin + i*(boardSize+boardGap), Y: topMargin}
		if err := drawBoard(img, b, f.Orientation, origin); err != nil {
			return nil, fmt.Errorf("board %d: %w", b.Index, err)
		}
		drawString(drawer, origin.X, topMargin-10, fmt.Sprintf("Board %d", b.Index), textMuted)
		drawString(drawer, origin.X, topMargin+boardSize+20, b.Label, textPrimary)
	}

	clockY := topMargin + boardSize + 44
	drawClock(drawer, sideMargin, clockY, f.White)
	drawClock(drawer, sideMargin+boardSize, clockY, f.Black)
	if f.Status != "" {
		drawString(drawer, sideMargin+2*(boardSize+boardGap), clockY, f.Status, runningClock)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawBoard(img *image.RGBA, b view.BoardFrame, o view.Orientation, origin image.Point) error {
	board, err := match.ParsePosition(b.Position)
	if err != nil {
		return err
	}

	if b.State == view.BoardActive {
		frame := image.Rect(origin.X-frameWidth, origin.Y-frameWidth, origin.X+boardSize+frameWidth, origin.Y+boardSize+frameWidth)
		imagedraw.Draw(img, frame, image.NewUniform(activeFrameColor), image.Point{}, imagedraw.Src)
	}

	for row := 0; row < boardSquares; row++ {
		for col := 0; col < boardSquares; col++ {
			sq := squareAt(row, col, o)
			rect := cellRect(row, col, origin)
			imagedraw.Draw(img, rect, image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)

			piece := board.Piece(sq)
			if piece == nchess.NoPiece {
				continue
			}
			pimg, err := renderPieceImage(piece, squareSize)
			if err != nil {
				return err
			}
			imagedraw.Draw(img, rect, pimg, image.Point{}, imagedraw.Over)
		}
	}

	if b.State == view.BoardFinished {
		rect := image.Rect(origin.X, origin.Y, origin.X+boardSize, origin.Y+boardSize)
		imagedraw.Draw(img, rect, image.NewUniform(finishedOverlay), image.Point{}, imagedraw.Over)
	}
	return nil
}

// squareAt maps a screen cell to a board square; black orientation rotates
// the board by 180 degrees.
func squareAt(row, col int, o view.Orientation) nchess.Square {
	if o == view.OrientationBlack {
		return nchess.NewSquare(nchess.File(7-col), nchess.Rank(row))
	}
	return nchess.NewSquare(nchess.File(col), nchess.Rank(7-row))
}

func cellRect(row, col int, origin image.Point) image.Rectangle {
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func squareColor(sq nchess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

func drawClock(drawer *font.Drawer, x, baseline int, c view.ClockFrame) {
	clr := color.Color(textMuted)
	text := c.Text
	if c.Running {
		clr = runningClock
		text = "> " + text
	}
	drawString(drawer, x, baseline, text, clr)
}

package view

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/tsc-client/internal/match"
)

const (
	boardColumnWidth = 22
	emptyLightSquare = "."
	emptyDarkSquare  = ":"
)

// Text renders a frame as plain text: summary, the three boards side by side
// with their labels, the clocks and the status line.
func Text(f *Frame) string {
	if f == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(f.Summary)
	sb.WriteString("\n\n")

	grids := make([][]string, len(f.Boards))
	for i := range f.Boards {
		grids[i] = boardLines(f.Boards[i], f.Orientation)
	}
	for row := 0; row < len(grids[0]); row++ {
		for i := range grids {
			sb.WriteString(pad(grids[i][row], boardColumnWidth))
		}
		sb.WriteString("\n")
	}
	for i := range f.Boards {
		sb.WriteString(pad(truncate(f.Boards[i].Label, boardColumnWidth-2), boardColumnWidth))
	}
	sb.WriteString("\n\n")

	sb.WriteString(clockText(f.White))
	sb.WriteString("   ")
	sb.WriteString(clockText(f.Black))
	sb.WriteString("\n")
	if f.Status != "" {
		sb.WriteString(f.Status)
		sb.WriteString("\n")
	}
	return sb.String()
}

func boardLines(b BoardFrame, o Orientation) []string {
	marker := " "
	switch b.State {
	case BoardActive:
		marker = "*"
	case BoardFinished:
		marker = "#"
	}
	lines := []string{fmt.Sprintf("%sBoard %d", marker, b.Index)}

	board, err := match.ParsePosition(b.Position)
	if err != nil {
		for i := 0; i < 9; i++ {
			lines = append(lines, "  ?")
		}
		return lines
	}

	ranks := []int{7, 6, 5, 4, 3, 2, 1, 0}
	files := []int{0, 1, 2, 3, 4, 5, 6, 7}
	if o == OrientationBlack {
		ranks = []int{0, 1, 2, 3, 4, 5, 6, 7}
		files = []int{7, 6, 5, 4, 3, 2, 1, 0}
	}
	for _, r := range ranks {
		var row strings.Builder
		row.WriteString(fmt.Sprintf("%d ", r+1))
		for _, fl := range files {
			sq := nchess.NewSquare(nchess.File(fl), nchess.Rank(r))
			row.WriteString(squareGlyph(board.Piece(sq), (r+fl)%2 == 0))
			row.WriteByte(' ')
		}
		lines = append(lines, strings.TrimRight(row.String(), " "))
	}
	var footer strings.Builder
	footer.WriteString("  ")
	for _, fl := range files {
		footer.WriteByte(byte('a' + fl))
		footer.WriteByte(' ')
	}
	return append(lines, strings.TrimRight(footer.String(), " "))
}

// squareGlyph uses FEN letters: uppercase white, lowercase black.
func squareGlyph(p nchess.Piece, dark bool) string {
	code := match.PieceCode(p)
	if code == "" {
		if dark {
			return emptyDarkSquare
		}
		return emptyLightSquare
	}
	if code[0] == 'b' {
		return strings.ToLower(code[1:])
	}
	return code[1:]
}

func clockText(c ClockFrame) string {
	if c.Running {
		return "▶ " + c.Text
	}
	return "  " + c.Text
}

func pad(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

package match

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// StartPlacement is the FEN placement of the initial position. Servers may
// send the literal "start" for it.
const StartPlacement = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR"

// ParsePosition decodes a position string (full FEN, FEN placement or
// "start") into a board layout. Only the placement is read; turn and castling
// fields belong to the server.
func ParsePosition(pos string) (*nchess.Board, error) {
	fields := strings.Fields(pos)
	placement := StartPlacement
	if len(fields) > 0 && !strings.EqualFold(fields[0], "start") {
		placement = fields[0]
	}
	var b nchess.Board
	if err := b.UnmarshalText([]byte(placement)); err != nil {
		return nil, fmt.Errorf("parse position %q: %w", placement, err)
	}
	return &b, nil
}

// ParseSquare converts algebraic coordinates ("e2") into a square.
func ParseSquare(s string) (nchess.Square, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return nchess.NoSquare, fmt.Errorf("invalid square %q", s)
	}
	return nchess.NewSquare(nchess.File(s[0]-'a'), nchess.Rank(s[1]-'1')), nil
}

// PieceAt returns the piece code ("wP", "bK", ...) on square, or false when empty.
func PieceAt(b *nchess.Board, square string) (string, bool) {
	if b == nil {
		return "", false
	}
	sq, err := ParseSquare(square)
	if err != nil {
		return "", false
	}
	p := b.Piece(sq)
	if p == nchess.NoPiece {
		return "", false
	}
	return PieceCode(p), true
}

// PieceCode renders a piece in board-widget notation: color prefix then type letter.
func PieceCode(p nchess.Piece) string {
	var prefix string
	switch p.Color() {
	case nchess.White:
		prefix = "w"
	case nchess.Black:
		prefix = "b"
	default:
		return ""
	}

	var suffix string
	switch p.Type() {
	case nchess.King:
		suffix = "K"
	case nchess.Queen:
		suffix = "Q"
	case nchess.Rook:
		suffix = "R"
	case nchess.Bishop:
		suffix = "B"
	case nchess.Knight:
		suffix = "N"
	case nchess.Pawn:
		suffix = "P"
	default:
		return ""
	}
	return prefix + suffix
}

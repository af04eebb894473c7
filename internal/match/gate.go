package match

import "github.com/park285/tsc-client/pkg/tscproto"

// CanAttempt reports whether the local user may start dragging a piece of
// pieceColor on board. The server remains the only legality judge; a true
// result only means the attempt is worth sending.
func CanAttempt(board int, pieceColor tscproto.Color, s *tscproto.MatchSnapshot, a *Assignment) bool {
	if s == nil || a == nil {
		return false
	}
	if s.Ended() {
		return false
	}
	turn := s.Engine.CurrentTurn
	if turn.Board != board {
		return false
	}
	if turn.Color != a.Color {
		return false
	}
	// team members never touch another board, even if currentTurn disagrees
	if s.Mode == tscproto.ModeTeam && a.BoardRole != board {
		return false
	}
	return pieceColor == a.Color
}

// PieceColor extracts the side from a piece code such as "wP" or "bK".
func PieceColor(piece string) (tscproto.Color, bool) {
	if piece == "" {
		return "", false
	}
	switch piece[0] {
	case 'w':
		return tscproto.White, true
	case 'b':
		return tscproto.Black, true
	default:
		return "", false
	}
}

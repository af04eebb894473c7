package match

import "github.com/park285/tsc-client/pkg/tscproto"

// Assignment is the local player's role in one snapshot.
type Assignment struct {
	Color     tscproto.Color
	BoardRole int // 1..3 in team mode, 0 when unbound
}

// Resolve finds the local identity among the snapshot's assignments.
// It returns nil when the identity is unknown or not seated in the match.
func Resolve(s *tscproto.MatchSnapshot, me *tscproto.Identity) *Assignment {
	if s == nil || me == nil {
		return nil
	}
	for _, a := range s.Assignments {
		if a.UserID == me.ID {
			return &Assignment{Color: a.Color, BoardRole: a.BoardRole}
		}
	}
	return nil
}

package view

import (
	"strings"
	"sync"

	"github.com/park285/tsc-client/internal/match"
	"github.com/park285/tsc-client/internal/msgcat"
	"github.com/park285/tsc-client/pkg/tscproto"
)

type Orientation string

const (
	OrientationWhite Orientation = "white"
	OrientationBlack Orientation = "black"
)

// BoardState is the visual state of one board.
type BoardState string

const (
	BoardFinished BoardState = "finished"
	BoardActive   BoardState = "active"
	BoardInactive BoardState = "inactive"
)

type BoardFrame struct {
	Index    int
	Position string
	State    BoardState
	Label    string
}

type ClockFrame struct {
	Color   tscproto.Color
	Text    string
	Running bool
}

// Frame is everything drawn for one snapshot. A frame is built from exactly
// one snapshot and never patched afterwards.
type Frame struct {
	MatchID     string
	Orientation Orientation
	Boards      [tscproto.BoardCount]BoardFrame
	White       ClockFrame
	Black       ClockFrame
	Summary     string
	Status      string
	Ended       bool
}

// Board returns the frame of board i (1-based).
func (f *Frame) Board(i int) *BoardFrame {
	if f == nil || i < 1 || i > tscproto.BoardCount {
		return nil
	}
	return &f.Boards[i-1]
}

// MultiBoardView turns snapshots into frames and keeps the last one.
type MultiBoardView struct {
	cat *msgcat.Catalog

	mu      sync.RWMutex
	current *Frame
}

func NewMultiBoardView(cat *msgcat.Catalog) *MultiBoardView {
	if cat == nil {
		cat = msgcat.Default()
	}
	return &MultiBoardView{cat: cat}
}

// Render builds a frame from s and assignment and makes it current.
func (v *MultiBoardView) Render(s *tscproto.MatchSnapshot, a *match.Assignment) *Frame {
	if s == nil {
		return nil
	}
	f := &Frame{
		MatchID:     s.MatchID,
		Orientation: OrientationWhite,
		Ended:       s.Ended(),
	}
	if a != nil && a.Color == tscproto.Black {
		f.Orientation = OrientationBlack
	}

	eng := s.Engine
	for i := 1; i <= tscproto.BoardCount; i++ {
		b := BoardFrame{Index: i, Position: eng.Positions[i]}
		switch {
		case eng.BoardFinished[i]:
			b.State = BoardFinished
			winner, ok := eng.BoardResults[i]
			switch {
			case ok && winner.Valid():
				b.Label = v.cat.RenderOr("board.finished", map[string]any{"Winner": v.colorName(winner)}, "Finished")
			case ok && string(winner) == string(tscproto.ResultDraw):
				b.Label = v.cat.RenderOr("board.finished_draw", nil, "Finished (draw)")
			default:
				b.Label = v.cat.RenderOr("board.finished_unknown", nil, "Finished")
			}
		case eng.CurrentTurn.Board == i:
			b.State = BoardActive
			b.Label = v.cat.RenderOr("board.active", map[string]any{"Color": v.colorName(eng.CurrentTurn.Color)}, "Active")
		default:
			b.State = BoardInactive
			b.Label = v.cat.RenderOr("board.inactive", nil, "Inactive")
		}
		f.Boards[i-1] = b
	}

	f.White = v.clock(s.Clock, tscproto.White)
	f.Black = v.clock(s.Clock, tscproto.Black)
	f.Summary = v.summary(s, a)
	if s.Ended() {
		f.Status = v.terminalStatus(s)
	}

	v.mu.Lock()
	v.current = f
	v.mu.Unlock()
	return f
}

// Current returns the last rendered frame.
func (v *MultiBoardView) Current() *Frame {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current
}

// Reset forgets the last frame.
func (v *MultiBoardView) Reset() {
	v.mu.Lock()
	v.current = nil
	v.mu.Unlock()
}

func (v *MultiBoardView) clock(c tscproto.ClockState, color tscproto.Color) ClockFrame {
	text := FormatClock(c.RemainingMs.For(color))
	return ClockFrame{
		Color:   color,
		Text:    v.cat.RenderOr("clock.line", map[string]any{"Color": v.colorName(color), "Time": text}, text),
		Running: c.Running && c.ActiveColor == color,
	}
}

func (v *MultiBoardView) summary(s *tscproto.MatchSnapshot, a *match.Assignment) string {
	var role string
	switch {
	case a == nil:
		role = v.cat.RenderOr("match.role_none", nil, "Observer")
	case s.Mode == tscproto.ModeSolo:
		role = v.cat.RenderOr("match.role_solo", map[string]any{"Color": v.colorName(a.Color)}, v.colorName(a.Color))
	default:
		role = v.cat.RenderOr("match.role_team", map[string]any{"Color": v.colorName(a.Color), "Board": a.BoardRole}, v.colorName(a.Color))
	}
	mode := strings.ToUpper(string(s.Mode))
	return v.cat.RenderOr("match.summary", map[string]any{"MatchID": s.MatchID, "Mode": mode, "Role": role}, s.MatchID)
}

func (v *MultiBoardView) terminalStatus(s *tscproto.MatchSnapshot) string {
	var result string
	switch s.Result {
	case tscproto.ResultDraw:
		result = v.cat.RenderOr("status.result_draw", nil, "Draw")
	case tscproto.ResultWhite:
		result = v.cat.RenderOr("status.result_w", nil, "White wins")
	default:
		result = v.cat.RenderOr("status.result_b", nil, "Black wins")
	}
	if strings.TrimSpace(s.Termination) == "" {
		return v.cat.RenderOr("status.game_over_plain", map[string]any{"Result": result}, result)
	}
	return v.cat.RenderOr("status.game_over", map[string]any{"Result": result, "Termination": s.Termination}, result)
}

func (v *MultiBoardView) colorName(c tscproto.Color) string {
	return v.cat.RenderOr("color."+string(c), nil, string(c))
}

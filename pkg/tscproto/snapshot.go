package tscproto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Color is a side: "w" or "b".
type Color string

const (
	White Color = "w"
	Black Color = "b"
)

func (c Color) Valid() bool { return c == White || c == Black }

// Mode is the match format.
type Mode string

const (
	ModeSolo Mode = "solo"
	ModeTeam Mode = "team"
)

// Result of a finished match.
type Result string

const (
	ResultWhite Result = "w"
	ResultBlack Result = "b"
	ResultDraw  Result = "draw"
)

// BoardCount is the number of simultaneous boards; boards are indexed 1..BoardCount.
const BoardCount = 3

type AssignmentEntry struct {
	UserID    int64 `json:"userId"`
	Color     Color `json:"color"`
	BoardRole int   `json:"boardRole"` // 0 when null (solo)
}

type Turn struct {
	Board int   `json:"board"`
	Color Color `json:"color"`
}

type EngineState struct {
	Positions     map[int]string `json:"positions"`
	CurrentTurn   Turn           `json:"currentTurn"`
	BoardFinished map[int]bool   `json:"boardFinished"`
	BoardResults  map[int]Color  `json:"boardResults"`
}

type RemainingMs struct {
	W int64 `json:"w"`
	B int64 `json:"b"`
}

func (r RemainingMs) For(c Color) int64 {
	if c == Black {
		return r.B
	}
	return r.W
}

type ClockState struct {
	RemainingMs RemainingMs `json:"remainingMs"`
	ActiveColor Color       `json:"activeColor"`
	Running     bool        `json:"running"`
}

// MatchSnapshot is a complete authoritative description of a match. A new
// snapshot always replaces the previous one; fields are never merged.
type MatchSnapshot struct {
	MatchID     string            `json:"matchId"`
	Mode        Mode              `json:"mode"`
	Assignments []AssignmentEntry `json:"assignments"`
	Engine      EngineState       `json:"engine"`
	Clock       ClockState        `json:"clock"`
	EndedAt     *Timestamp        `json:"endedAt,omitempty"`
	Result      Result            `json:"result,omitempty"`
	Termination string            `json:"termination,omitempty"`
}

// Ended reports whether the whole match is over.
func (s *MatchSnapshot) Ended() bool { return s != nil && s.EndedAt != nil }

// Timestamp accepts epoch milliseconds or an RFC 3339 string.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			t.Time = time.UnixMilli(ms).UTC()
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("timestamp %q: %w", s, err)
		}
		t.Time = parsed
		return nil
	}
	ms, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("timestamp %s: %w", b, err)
	}
	t.Time = time.UnixMilli(int64(ms)).UTC()
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.UnixMilli())
}

// ValidateSnapshot checks the server contract invariants the client relies on.
func ValidateSnapshot(s *MatchSnapshot) error {
	if s == nil {
		return fmt.Errorf("%w: nil snapshot", ErrMalformedSnapshot)
	}
	if s.MatchID == "" {
		return fmt.Errorf("%w: missing matchId", ErrMalformedSnapshot)
	}
	if s.Mode != ModeSolo && s.Mode != ModeTeam {
		return fmt.Errorf("%w: unknown mode %q", ErrMalformedSnapshot, s.Mode)
	}
	for i := 1; i <= BoardCount; i++ {
		if _, ok := s.Engine.Positions[i]; !ok {
			return fmt.Errorf("%w: missing position for board %d", ErrMalformedSnapshot, i)
		}
		if _, ok := s.Engine.BoardFinished[i]; !ok {
			return fmt.Errorf("%w: missing finished flag for board %d", ErrMalformedSnapshot, i)
		}
	}
	turn := s.Engine.CurrentTurn
	if turn.Board < 1 || turn.Board > BoardCount {
		return fmt.Errorf("%w: current turn board %d out of range", ErrMalformedSnapshot, turn.Board)
	}
	if !turn.Color.Valid() {
		return fmt.Errorf("%w: current turn color %q", ErrMalformedSnapshot, turn.Color)
	}
	if s.Clock.ActiveColor != "" && !s.Clock.ActiveColor.Valid() {
		return fmt.Errorf("%w: clock active color %q", ErrMalformedSnapshot, s.Clock.ActiveColor)
	}
	return nil
}

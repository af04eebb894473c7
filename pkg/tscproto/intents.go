package tscproto

type QueueJoinIntent struct {
	Mode        Mode   `json:"mode"`
	TimeControl string `json:"timeControl"`
}

type QueueLeaveIntent struct{}

// MoveIntent is an unvalidated move request. The server answers with either a
// new match_state or a move_rejected event.
type MoveIntent struct {
	MatchID    string `json:"matchId"`
	BoardIndex int    `json:"boardIndex"`
	From       string `json:"from"`
	To         string `json:"to"`
	Promotion  string `json:"promotion"`
}

type ResignIntent struct {
	MatchID string `json:"matchId"`
}

package tscproto

import "encoding/json"

// EventKind names an inbound realtime event.
type EventKind string

const (
	EventHello        EventKind = "hello"
	EventQueueStatus  EventKind = "queue_status"
	EventMoveRejected EventKind = "move_rejected"
	EventFatal        EventKind = "fatal"
	EventMatchState   EventKind = "match_state"
)

// InboundKinds lists every event kind the client routes.
var InboundKinds = []EventKind{EventHello, EventQueueStatus, EventMoveRejected, EventFatal, EventMatchState}

// IntentKind names an outbound realtime intent.
type IntentKind string

const (
	IntentQueueJoin   IntentKind = "queue_join"
	IntentQueueLeave  IntentKind = "queue_leave"
	IntentMoveAttempt IntentKind = "move_attempt"
	IntentResign      IntentKind = "resign"
)

var OutboundKinds = []IntentKind{IntentQueueJoin, IntentQueueLeave, IntentMoveAttempt, IntentResign}

// Envelope is the frame carried over the websocket in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type HelloEvent struct {
	User Identity `json:"user"`
}

type QueueStatus string

const (
	QueueIdle    QueueStatus = "idle"
	QueueQueued  QueueStatus = "queued"
	QueueMatched QueueStatus = "matched"
)

type QueueStatusEvent struct {
	Status QueueStatus `json:"status"`
	Mode   Mode        `json:"mode,omitempty"`
}

type MoveRejectedEvent struct {
	Reason string `json:"reason"`
}

type FatalEvent struct {
	Error string `json:"error"`
}

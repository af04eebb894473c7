package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
)

// State is the connection state reported to OnStateChange callbacks.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateFailed       State = "failed"
)

// Handler receives the raw data of one inbound event. Handlers run on the
// read goroutine and must not block.
type Handler func(data json.RawMessage)

type StateCallback func(state State)

// HeaderProvider injects extra handshake headers.
type HeaderProvider func() map[string]string

var (
	ErrUnknownEventKind  = errors.New("unknown realtime event kind")
	ErrUnknownIntentKind = errors.New("unknown realtime intent kind")
	ErrNotConnected      = errors.New("realtime channel not connected")
	ErrNoCredential      = errors.New("realtime credential is empty")
	ErrConnectAborted    = errors.New("realtime connect aborted by a later connect or close")
)

// HandshakeError is returned when the websocket handshake fails. Status is
// the HTTP status of the upgrade response, or 0 if none was received. The
// channel never retries after it.
type HandshakeError struct {
	Status int
	Err    error
}

func (e *HandshakeError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("realtime handshake failed: status=%d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("realtime handshake failed: %v", e.Err)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

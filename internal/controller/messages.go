package controller

import (
	"encoding/json"

	"github.com/park285/tsc-client/internal/realtime"
	"github.com/park285/tsc-client/pkg/tscproto"
)

type loopMsg interface{ isLoopMsg() }

// eventMsg carries one inbound realtime event.
type eventMsg struct {
	Kind tscproto.EventKind
	Data json.RawMessage
}

type stateMsg struct {
	State realtime.State
}

// callMsg runs Fn on the loop and closes Done afterwards.
type callMsg struct {
	Fn   func()
	Done chan struct{}
}

func (eventMsg) isLoopMsg() {}
func (stateMsg) isLoopMsg() {}
func (callMsg) isLoopMsg()  {}

package controller

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/park285/tsc-client/internal/realtime"
	"github.com/park285/tsc-client/internal/session"
	"github.com/park285/tsc-client/internal/view"
	"github.com/park285/tsc-client/pkg/tscproto"
)

type sentIntent struct {
	Kind    tscproto.IntentKind
	Payload any
}

type fakeChannel struct {
	mu         sync.Mutex
	handlers   map[tscproto.EventKind][]realtime.Handler
	stateCbs   []realtime.StateCallback
	connected  bool
	credential string
	connectErr error
	closes     int
	sent       []sentIntent
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{handlers: make(map[tscproto.EventKind][]realtime.Handler)}
}

func (f *fakeChannel) Connect(_ context.Context, credential string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	f.credential = credential
	return nil
}

func (f *fakeChannel) Close(context.Context) error {
	f.mu.Lock()
	wasConnected := f.connected
	f.connected = false
	f.closes++
	cbs := append([]realtime.StateCallback(nil), f.stateCbs...)
	f.mu.Unlock()
	if wasConnected {
		for _, cb := range cbs {
			cb(realtime.StateDisconnected)
		}
	}
	return nil
}

func (f *fakeChannel) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeChannel) Subscribe(kind tscproto.EventKind, h realtime.Handler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[kind] = append(f.handlers[kind], h)
	return nil
}

func (f *fakeChannel) Send(_ context.Context, kind tscproto.IntentKind, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentIntent{Kind: kind, Payload: payload})
	return nil
}

func (f *fakeChannel) OnStateChange(cb realtime.StateCallback) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateCbs = append(f.stateCbs, cb)
}

func (f *fakeChannel) Sent() []sentIntent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentIntent(nil), f.sent...)
}

// emit delivers an inbound event the way the read goroutine would.
func (f *fakeChannel) emit(t *testing.T, kind tscproto.EventKind, v any) {
	t.Helper()
	var data []byte
	switch raw := v.(type) {
	case string:
		data = []byte(raw)
	default:
		var err error
		if data, err = json.Marshal(v); err != nil {
			t.Fatalf("marshal %s: %v", kind, err)
		}
	}
	f.mu.Lock()
	hs := append([]realtime.Handler(nil), f.handlers[kind]...)
	f.mu.Unlock()
	for _, h := range hs {
		h(data)
	}
}

type fakeAPI struct {
	token    string
	loginErr error
	regErr   error
	me       *tscproto.Identity
	meErr    error
}

func (f *fakeAPI) Register(context.Context, string, string) (string, error) {
	return f.token, f.regErr
}

func (f *fakeAPI) Login(context.Context, string, string) (string, error) {
	return f.token, f.loginErr
}

func (f *fakeAPI) Me(context.Context, string) (*tscproto.Identity, error) {
	return f.me, f.meErr
}

type displayState struct {
	screens []Screen
	me      string
	authErr string
	queue   string
	status  string
	// statuses records every game status set, in order.
	statuses []string
	frames   []*view.Frame
}

type recordingDisplay struct {
	mu sync.Mutex
	displayState
}

func (d *recordingDisplay) ShowScreen(s Screen) {
	d.mu.Lock()
	d.screens = append(d.screens, s)
	d.mu.Unlock()
}

func (d *recordingDisplay) SetMe(text string) {
	d.mu.Lock()
	d.me = text
	d.mu.Unlock()
}

func (d *recordingDisplay) SetAuthError(text string) {
	d.mu.Lock()
	d.authErr = text
	d.mu.Unlock()
}

func (d *recordingDisplay) SetQueueStatus(text string) {
	d.mu.Lock()
	d.queue = text
	d.mu.Unlock()
}

func (d *recordingDisplay) SetGameStatus(text string) {
	d.mu.Lock()
	d.status = text
	d.statuses = append(d.statuses, text)
	d.mu.Unlock()
}

func (d *recordingDisplay) RenderMatch(f *view.Frame) {
	d.mu.Lock()
	d.frames = append(d.frames, f)
	d.mu.Unlock()
}

func (d *recordingDisplay) state() displayState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return displayState{
		screens: append([]Screen(nil), d.screens...),
		me:      d.me,
		authErr: d.authErr,
		queue:   d.queue,
		status:   d.status,
		statuses: append([]string(nil), d.statuses...),
		frames:   append([]*view.Frame(nil), d.frames...),
	}
}

func (d *recordingDisplay) lastScreen() Screen {
	s := d.state()
	if len(s.screens) == 0 {
		return ""
	}
	return s.screens[len(s.screens)-1]
}

type harness struct {
	c       *Controller
	ch      *fakeChannel
	api     *fakeAPI
	store   *session.MemoryStore
	display *recordingDisplay
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		ch:      newFakeChannel(),
		api:     &fakeAPI{token: "tok-7", me: &tscproto.Identity{ID: 7, Username: "ana", Rating: 1500}},
		store:   session.NewMemoryStore(),
		display: &recordingDisplay{},
	}
	c, err := New(Options{API: h.api, Channel: h.ch, Store: h.store, Display: h.display})
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	t.Cleanup(c.Close)
	h.c = c
	return h
}

// sync waits until every event posted so far has been handled.
func (h *harness) sync() { h.c.call(func() {}) }

func (h *harness) login(t *testing.T) {
	t.Helper()
	if err := h.c.Login(context.Background(), "ana", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	h.ch.emit(t, tscproto.EventHello, tscproto.HelloEvent{User: *h.api.me})
	h.sync()
}

func teamSnapshot(matchID string) *tscproto.MatchSnapshot {
	return &tscproto.MatchSnapshot{
		MatchID: matchID,
		Mode:    tscproto.ModeTeam,
		Assignments: []tscproto.AssignmentEntry{
			{UserID: 7, Color: tscproto.White, BoardRole: 2},
			{UserID: 8, Color: tscproto.Black, BoardRole: 2},
		},
		Engine: tscproto.EngineState{
			Positions:     map[int]string{1: "start", 2: "start", 3: "start"},
			CurrentTurn:   tscproto.Turn{Board: 2, Color: tscproto.White},
			BoardFinished: map[int]bool{1: false, 2: false, 3: false},
			BoardResults:  map[int]tscproto.Color{},
		},
		Clock: tscproto.ClockState{
			RemainingMs: tscproto.RemainingMs{W: 300000, B: 300000},
			ActiveColor: tscproto.White,
			Running:     true,
		},
	}
}

func ended(s *tscproto.MatchSnapshot) *tscproto.MatchSnapshot {
	s.EndedAt = &tscproto.Timestamp{Time: time.UnixMilli(1700000000000)}
	s.Result = tscproto.ResultWhite
	s.Termination = "checkmate"
	return s
}

package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/tsc-client/pkg/tscproto"
)

type serverConn struct {
	conn     *websocket.Conn
	received chan tscproto.Envelope
	closed   chan struct{}
}

type fakeServer struct {
	srv   *httptest.Server
	token string
	auth  chan string
	conns chan *serverConn
}

type serverOpts struct {
	acceptDelay time.Duration
	// silent servers never read, so pings go unanswered.
	silent bool
}

func newFakeServer(t *testing.T, token string) *fakeServer {
	t.Helper()
	return startFakeServer(t, token, serverOpts{})
}

func startFakeServer(t *testing.T, token string, opts serverOpts) *fakeServer {
	t.Helper()
	fs := &fakeServer{
		token: token,
		auth:  make(chan string, 8),
		conns: make(chan *serverConn, 8),
	}
	stop := make(chan struct{})
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get("Authorization")
		fs.auth <- got
		if got != "Bearer "+fs.token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if opts.acceptDelay > 0 {
			time.Sleep(opts.acceptDelay)
		}
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		sc := &serverConn{conn: c, received: make(chan tscproto.Envelope, 8), closed: make(chan struct{})}
		fs.conns <- sc
		defer close(sc.closed)
		if opts.silent {
			<-stop
			_ = c.CloseNow()
			return
		}
		for {
			var env tscproto.Envelope
			if err := wsjson.Read(context.Background(), c, &env); err != nil {
				return
			}
			sc.received <- env
		}
	}))
	t.Cleanup(fs.srv.Close)
	t.Cleanup(func() { close(stop) })
	return fs
}

func (fs *fakeServer) wsURL() string {
	return "ws" + strings.TrimPrefix(fs.srv.URL, "http")
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for value")
	}
	var zero T
	return zero
}

func TestConnectSendsBearerHeader(t *testing.T) {
	fs := newFakeServer(t, "secret")
	ch := NewChannel(fs.wsURL(), WithHeaderProvider(func() map[string]string {
		return map[string]string{"X-Client": "tsc", "Authorization": "ignored"}
	}))
	t.Cleanup(func() { _ = ch.Close(context.Background()) })

	if err := ch.Connect(context.Background(), "secret"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if got := recv(t, fs.auth); got != "Bearer secret" {
		t.Fatalf("authorization header = %q", got)
	}
	if ch.State() != StateConnected || !ch.Connected() {
		t.Fatalf("state = %s", ch.State())
	}
}

func TestConnectRejectsEmptyCredential(t *testing.T) {
	ch := NewChannel("ws://127.0.0.1:1/ws")
	if err := ch.Connect(context.Background(), " "); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
}

func TestHandshakeFailureIsFatal(t *testing.T) {
	fs := newFakeServer(t, "secret")
	ch := NewChannel(fs.wsURL())

	var mu sync.Mutex
	var states []State
	ch.OnStateChange(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	err := ch.Connect(context.Background(), "wrong")
	var herr *HandshakeError
	if !errors.As(err, &herr) {
		t.Fatalf("expected HandshakeError, got %v", err)
	}
	if herr.Status != http.StatusUnauthorized {
		t.Fatalf("status = %d", herr.Status)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(states) != 2 || states[0] != StateConnecting || states[1] != StateFailed {
		t.Fatalf("states = %v", states)
	}
}

func TestInboundDispatch(t *testing.T) {
	fs := newFakeServer(t, "secret")
	ch := NewChannel(fs.wsURL())
	t.Cleanup(func() { _ = ch.Close(context.Background()) })

	hellos := make(chan tscproto.HelloEvent, 1)
	if err := ch.Subscribe(tscproto.EventHello, func(data json.RawMessage) {
		var ev tscproto.HelloEvent
		if err := json.Unmarshal(data, &ev); err == nil {
			hellos <- ev
		}
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := ch.Connect(context.Background(), "secret"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	sc := recv(t, fs.conns)

	ctx := context.Background()
	_ = wsjson.Write(ctx, sc.conn, tscproto.Envelope{Type: "mystery", Data: json.RawMessage(`{}`)})
	_ = wsjson.Write(ctx, sc.conn, tscproto.Envelope{Type: "hello", Data: json.RawMessage(`{"user":{"id":7,"username":"ana","rating":1500}}`)})

	ev := recv(t, hellos)
	if ev.User.ID != 7 || ev.User.Username != "ana" {
		t.Fatalf("hello = %+v", ev)
	}
}

func TestSubscribeRejectsUnknownKind(t *testing.T) {
	ch := NewChannel("ws://unused")
	if err := ch.Subscribe("chat", func(json.RawMessage) {}); !errors.Is(err, ErrUnknownEventKind) {
		t.Fatalf("expected ErrUnknownEventKind, got %v", err)
	}
}

func TestSendValidatesAndWritesEnvelope(t *testing.T) {
	fs := newFakeServer(t, "secret")
	ch := NewChannel(fs.wsURL())
	t.Cleanup(func() { _ = ch.Close(context.Background()) })

	ctx := context.Background()
	if err := ch.Send(ctx, tscproto.IntentQueueLeave, nil); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if err := ch.Send(ctx, "chat", nil); !errors.Is(err, ErrUnknownIntentKind) {
		t.Fatalf("expected ErrUnknownIntentKind, got %v", err)
	}

	if err := ch.Connect(ctx, "secret"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	sc := recv(t, fs.conns)

	intent := tscproto.MoveIntent{MatchID: "m1", BoardIndex: 2, From: "e2", To: "e4", Promotion: "q"}
	if err := ch.Send(ctx, tscproto.IntentMoveAttempt, intent); err != nil {
		t.Fatalf("send: %v", err)
	}
	env := recv(t, sc.received)
	if env.Type != "move_attempt" {
		t.Fatalf("type = %q", env.Type)
	}
	var got tscproto.MoveIntent
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode intent: %v", err)
	}
	if got != intent {
		t.Fatalf("intent = %+v, want %+v", got, intent)
	}

	if err := ch.Send(ctx, tscproto.IntentQueueLeave, nil); err != nil {
		t.Fatalf("send leave: %v", err)
	}
	if env := recv(t, sc.received); env.Type != "queue_leave" || string(env.Data) != "{}" {
		t.Fatalf("leave envelope = %+v", env)
	}
}

func TestReconnectClosesPreviousConnection(t *testing.T) {
	fs := newFakeServer(t, "secret")
	ch := NewChannel(fs.wsURL())
	t.Cleanup(func() { _ = ch.Close(context.Background()) })

	ctx := context.Background()
	if err := ch.Connect(ctx, "secret"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	first := recv(t, fs.conns)
	if err := ch.Connect(ctx, "secret"); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	second := recv(t, fs.conns)

	recv(t, first.closed)
	select {
	case <-second.closed:
		t.Fatalf("second connection must stay open")
	default:
	}
	if err := ch.Send(ctx, tscproto.IntentResign, tscproto.ResignIntent{MatchID: "m1"}); err != nil {
		t.Fatalf("send on new connection: %v", err)
	}
	if env := recv(t, second.received); env.Type != "resign" {
		t.Fatalf("type = %q", env.Type)
	}
}

func TestServerCloseDoesNotReconnect(t *testing.T) {
	fs := newFakeServer(t, "secret")
	ch := NewChannel(fs.wsURL())

	states := make(chan State, 8)
	ch.OnStateChange(func(s State) { states <- s })

	if err := ch.Connect(context.Background(), "secret"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if s := recv(t, states); s != StateConnecting {
		t.Fatalf("state = %s", s)
	}
	if s := recv(t, states); s != StateConnected {
		t.Fatalf("state = %s", s)
	}

	sc := recv(t, fs.conns)
	_ = sc.conn.Close(websocket.StatusPolicyViolation, "bye")

	if s := recv(t, states); s != StateDisconnected {
		t.Fatalf("state = %s", s)
	}
	select {
	case <-fs.conns:
		t.Fatalf("channel must not reconnect on its own")
	case <-time.After(200 * time.Millisecond):
	}
	if ch.Connected() {
		t.Fatalf("channel should report disconnected")
	}
}

func liveConns(t *testing.T, fs *fakeServer) int {
	t.Helper()
	var all []*serverConn
	collect := time.After(500 * time.Millisecond)
gather:
	for {
		select {
		case sc := <-fs.conns:
			all = append(all, sc)
		case <-collect:
			break gather
		}
	}
	live := 0
	for _, sc := range all {
		select {
		case <-sc.closed:
		case <-time.After(time.Second):
			live++
		}
	}
	return live
}

func TestConcurrentConnectKeepsOneConnection(t *testing.T) {
	fs := newFakeServer(t, "secret")
	ch := NewChannel(fs.wsURL())
	t.Cleanup(func() { _ = ch.Close(context.Background()) })

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- ch.Connect(context.Background(), "secret")
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrConnectAborted):
		default:
			t.Fatalf("connect: %v", err)
		}
	}
	if succeeded == 0 {
		t.Fatalf("one connect must succeed")
	}
	if !ch.Connected() || ch.State() != StateConnected {
		t.Fatalf("connected=%v state=%s", ch.Connected(), ch.State())
	}
	if n := liveConns(t, fs); n != 1 {
		t.Fatalf("live server connections = %d, want 1", n)
	}
}

func TestCloseDuringDialAbortsConnect(t *testing.T) {
	fs := startFakeServer(t, "secret", serverOpts{acceptDelay: 200 * time.Millisecond})
	ch := NewChannel(fs.wsURL())
	t.Cleanup(func() { _ = ch.Close(context.Background()) })

	result := make(chan error, 1)
	go func() { result <- ch.Connect(context.Background(), "secret") }()

	recv(t, fs.auth)
	time.Sleep(50 * time.Millisecond)
	if err := ch.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := recv(t, result); !errors.Is(err, ErrConnectAborted) {
		t.Fatalf("expected ErrConnectAborted, got %v", err)
	}
	if ch.Connected() || ch.State() != StateDisconnected {
		t.Fatalf("connected=%v state=%s", ch.Connected(), ch.State())
	}
	if n := liveConns(t, fs); n != 0 {
		t.Fatalf("live server connections = %d, want 0", n)
	}
}

func TestUnansweredPingsDisconnect(t *testing.T) {
	fs := startFakeServer(t, "secret", serverOpts{silent: true})
	clk := clockwork.NewFakeClock()
	ch := NewChannel(fs.wsURL(),
		WithClock(clk),
		WithPingInterval(time.Second),
		WithPingTimeout(100*time.Millisecond),
	)
	t.Cleanup(func() { _ = ch.Close(context.Background()) })

	states := make(chan State, 8)
	ch.OnStateChange(func(s State) { states <- s })

	if err := ch.Connect(context.Background(), "secret"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	recv(t, fs.auth)
	recv(t, fs.conns)
	if s := recv(t, states); s != StateConnecting {
		t.Fatalf("state = %s", s)
	}
	if s := recv(t, states); s != StateConnected {
		t.Fatalf("state = %s", s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := clk.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("ping ticker not started: %v", err)
	}

	disconnected := false
	for i := 0; i < maxPingFailures && !disconnected; i++ {
		clk.Advance(time.Second)
		select {
		case s := <-states:
			if s != StateDisconnected {
				t.Fatalf("state = %s", s)
			}
			disconnected = true
		case <-time.After(time.Second):
		}
	}
	if !disconnected {
		if s := recv(t, states); s != StateDisconnected {
			t.Fatalf("state = %s", s)
		}
	}
	if ch.Connected() {
		t.Fatalf("channel should report disconnected")
	}
	select {
	case <-fs.auth:
		t.Fatalf("channel must not handshake again")
	case <-time.After(200 * time.Millisecond):
	}
}

// Package realtime is the single bidirectional websocket between the client
// and the match server. Inbound frames are routed to typed subscribers;
// outbound intents are validated against the fixed intent set.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/tsc-client/pkg/tscproto"
)

const (
	defaultPingInterval = 30 * time.Second
	defaultDialTimeout  = 10 * time.Second
	defaultSendTimeout  = 5 * time.Second
	defaultPingTimeout  = 3 * time.Second
	maxPingFailures     = 2
)

type connection struct {
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Channel struct {
	wsURL  string
	logger *zap.Logger
	clock  clockwork.Clock

	pingInterval   time.Duration
	pingTimeout    time.Duration
	dialTimeout    time.Duration
	headerProvider HeaderProvider

	mu     sync.Mutex
	active *connection
	state  State
	// gen changes on every Connect and Close; a dial that finishes under a
	// stale generation is discarded.
	gen        uint64
	dialCancel context.CancelFunc

	cbM      sync.RWMutex
	handlers map[tscproto.EventKind][]Handler
	stateCbs []StateCallback
}

type Option func(*Channel)

func WithLogger(l *zap.Logger) Option {
	return func(c *Channel) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithClock(clk clockwork.Clock) Option {
	return func(c *Channel) {
		if clk != nil {
			c.clock = clk
		}
	}
}

func WithPingInterval(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.pingInterval = d
		}
	}
}

func WithPingTimeout(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.pingTimeout = d
		}
	}
}

func WithDialTimeout(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.dialTimeout = d
		}
	}
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Channel) { c.headerProvider = h }
}

func NewChannel(wsURL string, opts ...Option) *Channel {
	c := &Channel{
		wsURL:        wsURL,
		logger:       zap.NewNop(),
		clock:        clockwork.NewRealClock(),
		pingInterval: defaultPingInterval,
		pingTimeout:  defaultPingTimeout,
		dialTimeout:  defaultDialTimeout,
		state:        StateDisconnected,
		handlers:     make(map[tscproto.EventKind][]Handler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect closes any existing connection and dials a new one authenticated
// with credential. A later Connect or Close aborts a dial in flight. It does
// not reconnect on later failures.
func (c *Channel) Connect(ctx context.Context, credential string) error {
	if strings.TrimSpace(credential) == "" {
		return ErrNoCredential
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()

	c.mu.Lock()
	c.gen++
	gen := c.gen
	if c.dialCancel != nil {
		c.dialCancel()
	}
	c.dialCancel = cancel
	prev := c.active
	c.active = nil
	c.mu.Unlock()
	defer c.clearDial(gen)

	if prev != nil {
		c.release(prev, websocket.StatusNormalClosure, "reconnect")
		prev.wg.Wait()
	}

	c.setStateIf(gen, StateConnecting)

	conn, resp, err := websocket.Dial(dialCtx, c.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      c.buildHeaders(credential),
	})
	if err != nil {
		if !c.current(gen) {
			return ErrConnectAborted
		}
		herr := &HandshakeError{Err: err}
		if resp != nil {
			herr.Status = resp.StatusCode
		}
		c.logger.Warn("realtime_handshake_failed", zap.Int("status", herr.Status), zap.Error(err))
		c.setStateIf(gen, StateFailed)
		return herr
	}

	connCtx, connCancel := context.WithCancel(context.Background())
	cn := &connection{conn: conn, ctx: connCtx, cancel: connCancel}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		c.release(cn, websocket.StatusNormalClosure, "superseded")
		return ErrConnectAborted
	}
	c.active = cn
	cn.wg.Add(2)
	c.mu.Unlock()

	c.setStateIf(gen, StateConnected)
	c.logger.Info("realtime_connect", zap.String("url", c.wsURL))

	go c.listen(cn)
	go c.pingLoop(cn)
	return nil
}

func (c *Channel) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen
}

func (c *Channel) clearDial(gen uint64) {
	c.mu.Lock()
	if c.gen == gen {
		c.dialCancel = nil
	}
	c.mu.Unlock()
}

// Subscribe registers h for kind. Only the fixed inbound kinds are accepted.
func (c *Channel) Subscribe(kind tscproto.EventKind, h Handler) error {
	if !slices.Contains(tscproto.InboundKinds, kind) {
		return fmt.Errorf("%w: %q", ErrUnknownEventKind, kind)
	}
	if h == nil {
		return nil
	}
	c.cbM.Lock()
	c.handlers[kind] = append(c.handlers[kind], h)
	c.cbM.Unlock()
	return nil
}

func (c *Channel) OnStateChange(cb StateCallback) {
	if cb == nil {
		return
	}
	c.cbM.Lock()
	c.stateCbs = append(c.stateCbs, cb)
	c.cbM.Unlock()
}

// Send writes one intent envelope. A bounded deadline is applied when ctx has none.
func (c *Channel) Send(ctx context.Context, kind tscproto.IntentKind, payload any) error {
	if !slices.Contains(tscproto.OutboundKinds, kind) {
		return fmt.Errorf("%w: %q", ErrUnknownIntentKind, kind)
	}
	if payload == nil {
		payload = struct{}{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s intent: %w", kind, err)
	}

	c.mu.Lock()
	cn := c.active
	c.mu.Unlock()
	if cn == nil {
		return ErrNotConnected
	}

	dctx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, defaultSendTimeout)
		defer cancel()
	}
	if err := wsjson.Write(dctx, cn.conn, tscproto.Envelope{Type: string(kind), Data: data}); err != nil {
		return fmt.Errorf("send %s: %w", kind, err)
	}
	return nil
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether a live connection exists.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// Close terminates the current connection, if any, aborts a dial in flight
// and waits for the connection goroutines until ctx expires.
func (c *Channel) Close(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	dialing := c.dialCancel != nil
	if dialing {
		c.dialCancel()
		c.dialCancel = nil
	}
	cn := c.active
	c.active = nil
	c.mu.Unlock()
	if cn == nil {
		if dialing {
			c.setState(StateDisconnected)
		}
		return nil
	}

	c.release(cn, websocket.StatusNormalClosure, "close")
	c.setState(StateDisconnected)

	done := make(chan struct{})
	go func() {
		cn.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (c *Channel) listen(cn *connection) {
	defer cn.wg.Done()
	for {
		var env tscproto.Envelope
		if err := wsjson.Read(cn.ctx, cn.conn, &env); err != nil {
			if cn.ctx.Err() != nil {
				return
			}
			c.logger.Warn("realtime_read_failed", zap.Error(err))
			c.drop(cn, websocket.StatusGoingAway, "read failure")
			return
		}
		c.dispatch(env)
	}
}

func (c *Channel) dispatch(env tscproto.Envelope) {
	kind := tscproto.EventKind(env.Type)
	c.cbM.RLock()
	hs := slices.Clone(c.handlers[kind])
	c.cbM.RUnlock()

	if !slices.Contains(tscproto.InboundKinds, kind) {
		c.logger.Warn("realtime_unknown_event", zap.String("type", env.Type))
		return
	}
	if len(hs) == 0 {
		c.logger.Debug("realtime_unhandled_event", zap.String("type", env.Type))
		return
	}
	for _, h := range hs {
		h(env.Data)
	}
}

func (c *Channel) pingLoop(cn *connection) {
	defer cn.wg.Done()
	t := c.clock.NewTicker(c.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-cn.ctx.Done():
			return
		case <-t.Chan():
			ctx, cancel := context.WithTimeout(cn.ctx, c.pingTimeout)
			err := cn.conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			if cn.ctx.Err() != nil {
				return
			}
			failures++
			c.logger.Warn("realtime_ping_failed", zap.Int("failures", failures), zap.Error(err))
			if failures >= maxPingFailures {
				c.drop(cn, websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

// drop ends cn after a transport failure. Only the active connection moves
// the channel to disconnected.
func (c *Channel) drop(cn *connection, code websocket.StatusCode, reason string) {
	c.mu.Lock()
	current := c.active == cn
	if current {
		c.active = nil
	}
	c.mu.Unlock()

	c.release(cn, code, reason)
	if current {
		c.logger.Info("realtime_disconnected", zap.String("reason", reason))
		c.setState(StateDisconnected)
	}
}

func (c *Channel) release(cn *connection, code websocket.StatusCode, reason string) {
	cn.cancel()
	_ = cn.conn.Close(code, reason)
}

func (c *Channel) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.notify(s)
}

// setStateIf applies s only while gen is still the current generation.
func (c *Channel) setStateIf(gen uint64, s State) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()
	c.notify(s)
}

func (c *Channel) notify(s State) {
	c.cbM.RLock()
	cbs := slices.Clone(c.stateCbs)
	c.cbM.RUnlock()
	for _, cb := range cbs {
		cb(s)
	}
}

func (c *Channel) buildHeaders(credential string) http.Header {
	hdr := http.Header{}
	if c.headerProvider != nil {
		for k, v := range c.headerProvider() {
			if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
				continue
			}
			hdr.Set(k, v)
		}
	}
	hdr.Set("Authorization", "Bearer "+credential)
	return hdr
}

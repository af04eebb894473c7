// Package controller owns one client session: authentication, the realtime
// channel, the match cache and everything shown to the user. All mutable
// state is confined to a single event loop goroutine.
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/tsc-client/internal/apiclient"
	"github.com/park285/tsc-client/internal/match"
	"github.com/park285/tsc-client/internal/msgcat"
	"github.com/park285/tsc-client/internal/queue"
	"github.com/park285/tsc-client/internal/realtime"
	"github.com/park285/tsc-client/internal/session"
	"github.com/park285/tsc-client/internal/view"
	"github.com/park285/tsc-client/pkg/tscproto"
)

const defaultPromotion = "q"

type Options struct {
	API     AuthAPI
	Channel Channel
	Store   session.CredentialStore
	Display Display
	Catalog *msgcat.Catalog
	Logger  *zap.Logger
	// StrictSnapshots makes malformed snapshots panic through zap DPanic
	// instead of being dropped.
	StrictSnapshots bool
}

type Controller struct {
	id      string
	api     AuthAPI
	channel Channel
	store   session.CredentialStore
	display Display
	cat     *msgcat.Catalog
	logger  *zap.Logger
	strict  bool

	sess  *session.Context
	cache *match.Cache
	view  *view.MultiBoardView
	queue *queue.Controller

	// loop-owned
	assignment *match.Assignment
	matchID    string
	screen     Screen
	loggingOut bool

	inbox  chan loopMsg
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

var ErrNotConfigured = errors.New("controller: api, channel and store are required")

// New wires a controller and starts its loop. Call Close to stop it.
func New(opts Options) (*Controller, error) {
	if opts.API == nil || opts.Channel == nil || opts.Store == nil {
		return nil, ErrNotConfigured
	}
	cat := opts.Catalog
	if cat == nil {
		cat = msgcat.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	display := opts.Display
	if display == nil {
		display = nopDisplay{}
	}

	id := uuid.NewString()
	logger = logger.With(zap.String("session", id))
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		id:      id,
		api:     opts.API,
		channel: opts.Channel,
		store:   opts.Store,
		display: display,
		cat:     cat,
		logger:  logger,
		strict:  opts.StrictSnapshots,
		sess:    session.NewContext(),
		cache:   match.NewCache(),
		view:    view.NewMultiBoardView(cat),
		queue:   queue.NewController(cat, logger),
		screen:  ScreenAuth,
		inbox:   make(chan loopMsg, 64),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	for _, kind := range tscproto.InboundKinds {
		if err := c.channel.Subscribe(kind, func(data json.RawMessage) {
			c.post(eventMsg{Kind: kind, Data: data})
		}); err != nil {
			cancel()
			return nil, fmt.Errorf("subscribe %s: %w", kind, err)
		}
	}
	c.channel.OnStateChange(func(s realtime.State) { c.post(stateMsg{State: s}) })

	go c.loop()
	return c, nil
}

// ID is the session correlation id used in logs.
func (c *Controller) ID() string { return c.id }

// Session exposes the identity and credential holder.
func (c *Controller) Session() *session.Context { return c.sess }

// Close stops the loop. It does not disconnect the channel.
func (c *Controller) Close() {
	c.cancel()
	<-c.done
}

func (c *Controller) post(m loopMsg) {
	select {
	case c.inbox <- m:
	case <-c.ctx.Done():
	}
}

// call runs fn on the loop and waits for it. fn is skipped once the loop stopped.
func (c *Controller) call(fn func()) {
	done := make(chan struct{})
	select {
	case c.inbox <- callMsg{Fn: fn, Done: done}:
	case <-c.ctx.Done():
		return
	}
	select {
	case <-done:
	case <-c.ctx.Done():
	}
}

func (c *Controller) loop() {
	defer close(c.done)
	for {
		select {
		case <-c.ctx.Done():
			return
		case m := <-c.inbox:
			switch msg := m.(type) {
			case eventMsg:
				c.handleEvent(msg)
			case stateMsg:
				c.handleState(msg.State)
			case callMsg:
				msg.Fn()
				close(msg.Done)
			}
		}
	}
}

func (c *Controller) handleEvent(msg eventMsg) {
	switch msg.Kind {
	case tscproto.EventHello:
		var ev tscproto.HelloEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			c.logger.Error("hello_decode_failed", zap.Error(err))
			return
		}
		c.sess.SetIdentity(&ev.User)
		c.display.SetMe(c.meText(&ev.User))
		if c.screen == ScreenAuth {
			c.setScreen(ScreenLobby)
		}

	case tscproto.EventQueueStatus:
		var ev tscproto.QueueStatusEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			c.logger.Error("queue_status_decode_failed", zap.Error(err))
			return
		}
		c.display.SetQueueStatus(c.queue.Apply(ev))

	case tscproto.EventMoveRejected:
		var ev tscproto.MoveRejectedEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			c.logger.Error("move_rejected_decode_failed", zap.Error(err))
			return
		}
		c.logger.Info("move_rejected", zap.String("reason", ev.Reason))
		c.display.SetGameStatus(c.cat.RenderOr("status.move_rejected", map[string]any{"Reason": ev.Reason}, ev.Reason))

	case tscproto.EventFatal:
		var ev tscproto.FatalEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			c.logger.Error("fatal_decode_failed", zap.Error(err))
			return
		}
		c.logger.Error("realtime_fatal", zap.String("error", ev.Error))
		c.display.SetGameStatus(c.cat.RenderOr("status.fatal", map[string]any{"Error": ev.Error}, ev.Error))

	case tscproto.EventMatchState:
		c.handleSnapshot(msg.Data)
	}
}

func (c *Controller) handleSnapshot(data json.RawMessage) {
	var s tscproto.MatchSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		c.malformed(fmt.Errorf("%w: %v", tscproto.ErrMalformedSnapshot, err))
		return
	}
	if err := tscproto.ValidateSnapshot(&s); err != nil {
		c.malformed(err)
		return
	}

	if current := c.cache.Current(); c.matchID != "" && s.MatchID != c.matchID && current != nil && !current.Ended() {
		c.logger.Warn("snapshot_discarded",
			zap.String("tracked_match", c.matchID),
			zap.String("match", s.MatchID),
		)
		return
	}

	c.cache.Replace(&s)
	c.matchID = s.MatchID
	c.assignment = match.Resolve(&s, c.sess.Identity())
	frame := c.view.Render(&s, c.assignment)

	c.display.RenderMatch(frame)
	c.display.SetGameStatus(frame.Status)
	if c.screen != ScreenGame {
		c.setScreen(ScreenGame)
	}
}

func (c *Controller) malformed(err error) {
	if c.strict {
		c.logger.WithOptions(zap.Development()).DPanic("snapshot_malformed", zap.Error(err))
		return
	}
	c.logger.Error("snapshot_malformed", zap.Error(err))
}

func (c *Controller) handleState(s realtime.State) {
	c.logger.Debug("realtime_state", zap.String("state", string(s)))
	if s == realtime.StateDisconnected && c.screen != ScreenAuth && !c.loggingOut {
		c.display.SetGameStatus(c.cat.RenderOr("status.disconnected", nil, "Disconnected"))
	}
}

func (c *Controller) setScreen(s Screen) {
	c.screen = s
	c.display.ShowScreen(s)
}

func (c *Controller) meText(id *tscproto.Identity) string {
	return c.cat.RenderOr("me", map[string]any{"Username": id.Username, "Rating": id.Rating}, id.Username)
}

// Boot resumes a stored session: fetch-self, lobby, connect. Any failure
// logs out. Without a stored credential the auth screen is shown.
func (c *Controller) Boot(ctx context.Context) error {
	cred, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Warn("credential_load_failed", zap.Error(err))
	}
	if strings.TrimSpace(cred) == "" {
		c.call(func() { c.setScreen(ScreenAuth) })
		return nil
	}

	me, err := c.api.Me(ctx, cred)
	if err != nil {
		c.logger.Info("boot_me_failed", zap.Error(err))
		c.Logout(ctx)
		return err
	}
	c.sess.SetCredential(cred)
	c.sess.SetIdentity(me)
	c.call(func() {
		c.display.SetMe(c.meText(me))
		c.setScreen(ScreenLobby)
	})

	if err := c.channel.Connect(ctx, cred); err != nil {
		c.logger.Warn("boot_connect_failed", zap.Error(err))
		c.Logout(ctx)
		return err
	}
	return nil
}

func (c *Controller) Register(ctx context.Context, username, password string) error {
	token, err := c.api.Register(ctx, username, password)
	if err != nil {
		c.authError(err, "auth.register_failed", "Registration failed")
		return err
	}
	if err := c.adopt(ctx, token); err != nil {
		text := c.cat.RenderOr("auth.realtime_failed", map[string]any{"Error": err.Error()}, err.Error())
		c.call(func() { c.display.SetAuthError(text) })
		return err
	}
	return nil
}

func (c *Controller) Login(ctx context.Context, username, password string) error {
	token, err := c.api.Login(ctx, username, password)
	if err != nil {
		c.authError(err, "auth.login_failed", "Login failed")
		return err
	}
	if err := c.adopt(ctx, token); err != nil {
		c.authError(err, "auth.login_failed", "Login failed")
		return err
	}
	return nil
}

// adopt stores a fresh credential and opens the realtime channel with it.
func (c *Controller) adopt(ctx context.Context, token string) error {
	if err := c.store.Save(ctx, token); err != nil {
		c.logger.Warn("credential_save_failed", zap.Error(err))
	}
	c.sess.SetCredential(token)
	c.call(func() { c.display.SetAuthError("") })
	return c.channel.Connect(ctx, token)
}

func (c *Controller) authError(err error, key, fallback string) {
	text := apiclient.ServerMessage(err)
	if text == "" {
		text = c.cat.RenderOr(key, nil, fallback)
	}
	c.logger.Info("auth_failed", zap.String("reason", text), zap.Error(err))
	c.call(func() { c.display.SetAuthError(text) })
}

// Logout disconnects and forgets the credential, identity and match state
// before returning.
func (c *Controller) Logout(ctx context.Context) {
	c.call(func() { c.loggingOut = true })
	if err := c.channel.Close(ctx); err != nil {
		c.logger.Warn("realtime_close_failed", zap.Error(err))
	}
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Warn("credential_clear_failed", zap.Error(err))
	}
	c.sess.Clear()
	c.call(func() {
		c.discardMatch()
		c.queue.Reset()
		c.display.SetMe("")
		c.display.SetQueueStatus("")
		c.display.SetGameStatus("")
		c.setScreen(ScreenAuth)
		c.loggingOut = false
	})
}

// BackToLobby hides the game and discards the current snapshot.
func (c *Controller) BackToLobby() {
	c.call(func() {
		c.discardMatch()
		c.display.SetGameStatus("")
		c.setScreen(ScreenLobby)
	})
}

func (c *Controller) discardMatch() {
	c.cache.Clear()
	c.view.Reset()
	c.assignment = nil
	c.matchID = ""
}

// JoinQueue clears the queue text and emits queue_join. No-op when offline.
func (c *Controller) JoinQueue(ctx context.Context, mode tscproto.Mode, timeControl string) error {
	if !c.channel.Connected() {
		return nil
	}
	c.call(func() { c.display.SetQueueStatus("") })
	return c.queue.Join(ctx, c.channel, mode, timeControl)
}

func (c *Controller) LeaveQueue(ctx context.Context) error {
	if !c.channel.Connected() {
		return nil
	}
	return c.queue.Leave(ctx, c.channel)
}

// Resign emits resign for the current match. No-op without a match or channel.
func (c *Controller) Resign(ctx context.Context) error {
	matchID := c.MatchID()
	if matchID == "" || !c.channel.Connected() {
		return nil
	}
	return c.channel.Send(ctx, tscproto.IntentResign, tscproto.ResignIntent{MatchID: matchID})
}

// DragStart reports whether the local user may pick up piece ("wP") on board.
func (c *Controller) DragStart(board int, piece string) bool {
	var ok bool
	c.call(func() {
		color, valid := match.PieceColor(piece)
		ok = valid && match.CanAttempt(board, color, c.cache.Current(), c.assignment)
	})
	return ok
}

// Drop emits a move attempt and always asks the widget to snap back.
func (c *Controller) Drop(ctx context.Context, board int, from, to, promotion string) DropResult {
	matchID := c.MatchID()
	if matchID == "" || !c.channel.Connected() {
		return DropSnapback
	}
	if strings.TrimSpace(promotion) == "" {
		promotion = defaultPromotion
	}
	intent := tscproto.MoveIntent{
		MatchID:    matchID,
		BoardIndex: board,
		From:       from,
		To:         to,
		Promotion:  strings.ToLower(promotion),
	}
	if err := c.channel.Send(ctx, tscproto.IntentMoveAttempt, intent); err != nil {
		c.logger.Warn("move_attempt_send_failed", zap.Error(err))
	}
	return DropSnapback
}

func (c *Controller) MatchID() string {
	var id string
	c.call(func() { id = c.matchID })
	return id
}

func (c *Controller) Screen() Screen {
	var s Screen
	c.call(func() { s = c.screen })
	return s
}

// Frame returns the last rendered frame, or nil.
func (c *Controller) Frame() *view.Frame {
	var f *view.Frame
	c.call(func() { f = c.view.Current() })
	return f
}

func (c *Controller) Assignment() *match.Assignment {
	var a *match.Assignment
	c.call(func() {
		if c.assignment != nil {
			cp := *c.assignment
			a = &cp
		}
	})
	return a
}

func (c *Controller) QueueText() string { return c.queue.Text() }

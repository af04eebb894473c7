// Package queue tracks matchmaking status text and emits join/leave intents.
package queue

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/tsc-client/internal/msgcat"
	"github.com/park285/tsc-client/pkg/tscproto"
)

// IntentSender is the outbound half of the realtime channel.
type IntentSender interface {
	Send(ctx context.Context, kind tscproto.IntentKind, payload any) error
}

// Controller keeps only the last rendered queue text.
type Controller struct {
	cat    *msgcat.Catalog
	logger *zap.Logger

	mu   sync.RWMutex
	text string
}

func NewController(cat *msgcat.Catalog, logger *zap.Logger) *Controller {
	if cat == nil {
		cat = msgcat.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{cat: cat, logger: logger}
}

// Apply maps a queue_status event to display text and returns it.
func (c *Controller) Apply(ev tscproto.QueueStatusEvent) string {
	var text string
	switch ev.Status {
	case tscproto.QueueQueued:
		mode := strings.TrimSpace(string(ev.Mode))
		text = c.cat.RenderOr("queue.queued", map[string]any{"Mode": mode}, "Queued for "+mode+"…")
	case tscproto.QueueMatched:
		text = c.cat.RenderOr("queue.matched", nil, "Match found. Joining…")
	case tscproto.QueueIdle:
	default:
		c.logger.Warn("queue_unknown_status", zap.String("status", string(ev.Status)))
		return c.Text()
	}

	c.mu.Lock()
	c.text = text
	c.mu.Unlock()
	return text
}

func (c *Controller) Text() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.text
}

// Reset clears the text without emitting anything.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.text = ""
	c.mu.Unlock()
}

// Join clears the current text and emits queue_join. It does not wait for
// the server's acknowledgement.
func (c *Controller) Join(ctx context.Context, s IntentSender, mode tscproto.Mode, timeControl string) error {
	c.Reset()
	if s == nil {
		return nil
	}
	err := s.Send(ctx, tscproto.IntentQueueJoin, tscproto.QueueJoinIntent{Mode: mode, TimeControl: timeControl})
	if err != nil {
		c.logger.Warn("queue_join_failed", zap.String("mode", string(mode)), zap.Error(err))
	}
	return err
}

func (c *Controller) Leave(ctx context.Context, s IntentSender) error {
	if s == nil {
		return nil
	}
	err := s.Send(ctx, tscproto.IntentQueueLeave, tscproto.QueueLeaveIntent{})
	if err != nil {
		c.logger.Warn("queue_leave_failed", zap.Error(err))
	}
	return err
}

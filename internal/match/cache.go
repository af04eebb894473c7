package match

import (
	"sync"

	"github.com/park285/tsc-client/pkg/tscproto"
)

// Cache holds the latest full match snapshot. Every Replace swaps the whole
// snapshot; nothing from the previous one survives.
type Cache struct {
	mu   sync.RWMutex
	snap *tscproto.MatchSnapshot
}

func NewCache() *Cache { return &Cache{} }

func (c *Cache) Replace(s *tscproto.MatchSnapshot) {
	c.mu.Lock()
	c.snap = s
	c.mu.Unlock()
}

// Current returns the latest snapshot or nil. Callers must treat it as read-only.
func (c *Cache) Current() *tscproto.MatchSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

func (c *Cache) MatchID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		return ""
	}
	return c.snap.MatchID
}

func (c *Cache) Clear() {
	c.mu.Lock()
	c.snap = nil
	c.mu.Unlock()
}

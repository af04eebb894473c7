// Package session holds the authenticated identity and the opaque
// credential, and persists the credential between runs.
package session

import (
	"sync"

	"github.com/park285/tsc-client/pkg/tscproto"
)

// Context is the identity and credential of the current user. It is read by
// header providers on transport goroutines.
type Context struct {
	mu         sync.RWMutex
	identity   *tscproto.Identity
	credential string
}

func NewContext() *Context { return &Context{} }

func (c *Context) SetIdentity(id *tscproto.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == nil {
		c.identity = nil
		return
	}
	cp := *id
	c.identity = &cp
}

// Identity returns a copy of the current identity, or nil.
func (c *Context) Identity() *tscproto.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.identity == nil {
		return nil
	}
	cp := *c.identity
	return &cp
}

func (c *Context) SetCredential(credential string) {
	c.mu.Lock()
	c.credential = credential
	c.mu.Unlock()
}

func (c *Context) Credential() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.credential
}

// Clear forgets identity and credential.
func (c *Context) Clear() {
	c.mu.Lock()
	c.identity = nil
	c.credential = ""
	c.mu.Unlock()
}

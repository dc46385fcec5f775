package toolkit

import (
	"sync"

	"github.com/firebase/genkit/go/ai"

	"github.com/richardwu/ai-chatbot/internal/log"
)

// Catalog is the merged set of tools available for one turn. It owns the
// remote tool-server connection and must be closed when the turn ends, in
// every terminal state. Close is idempotent.
//
// Name collisions resolve to the last registration, so adding local tools
// after remote ones lets local implementations shadow same-named remote
// tools deliberately.
type Catalog struct {
	logger log.Logger

	order  []string // unique names in effective registration order
	byName map[string]ai.Tool

	closeFn   func() error
	closeOnce sync.Once
	closeErr  error
}

// NewCatalog creates an empty catalog. closeFn releases the remote
// connection and may be nil for purely local catalogs.
func NewCatalog(logger log.Logger, closeFn func() error) *Catalog {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Catalog{
		logger:  logger,
		byName:  make(map[string]ai.Tool),
		closeFn: closeFn,
	}
}

// Add registers tools. A tool with an already-registered name replaces the
// earlier one; the shadowing is logged because it is usually intentional
// (local over remote) but worth seeing.
func (c *Catalog) Add(tools ...ai.Tool) {
	for _, t := range tools {
		if t == nil {
			continue
		}
		name := t.Name()
		if _, exists := c.byName[name]; exists {
			c.logger.Info("tool shadowed by later registration", "tool", name)
		} else {
			c.order = append(c.order, name)
		}
		c.byName[name] = t
	}
}

// Refs returns the tools as references for ai.WithTools, in registration
// order.
func (c *Catalog) Refs() []ai.ToolRef {
	refs := make([]ai.ToolRef, 0, len(c.order))
	for _, name := range c.order {
		refs = append(refs, c.byName[name])
	}
	return refs
}

// Lookup returns the effective tool for a name.
func (c *Catalog) Lookup(name string) (ai.Tool, bool) {
	t, ok := c.byName[name]
	return t, ok
}

// Names returns tool names in registration order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.order))
	copy(names, c.order)
	return names
}

// Len returns the number of distinct tools.
func (c *Catalog) Len() int {
	return len(c.order)
}

// Close releases the remote connection. Safe to call multiple times; the
// first call's result is returned on every call.
func (c *Catalog) Close() error {
	c.closeOnce.Do(func() {
		if c.closeFn != nil {
			c.closeErr = c.closeFn()
		}
	})
	return c.closeErr
}

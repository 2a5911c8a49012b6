package session

import (
	"sync"

	"repairmind/printagent/internal/printer"
)

// printerCache is the registered-printer cache from §3: ordered by
// insertion, keyed by systemName, holding the last descriptor
// successfully registered with the backend. It exists solely to
// replay registration after a reconnect and is owned by the Session.
type printerCache struct {
	mu    sync.Mutex
	order []string
	byKey map[string]printer.Descriptor
}

func newPrinterCache() *printerCache {
	return &printerCache{byKey: make(map[string]printer.Descriptor)}
}

func (c *printerCache) put(desc printer.Descriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.byKey[desc.SystemName]; !exists {
		c.order = append(c.order, desc.SystemName)
	}
	c.byKey[desc.SystemName] = desc
}

// all returns every cached descriptor in insertion order.
func (c *printerCache) all() []printer.Descriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]printer.Descriptor, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.byKey[key])
	}
	return out
}

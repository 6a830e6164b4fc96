package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vox/log"
	"vox/model"
)

// FallbackOrder is tried in order when the preferred model is unset or
// not a catalog entry. Only already-downloaded entries are considered.
var FallbackOrder = []string{"whisper-base", "whisper-tiny"}

// Cache keeps at most one loaded engine, keyed by model name. It loads
// lazily on first use, swaps when the wanted model changes, and lets the
// service drop the model after idle periods. Safe for concurrent use.
type Cache struct {
	store   *model.Manager
	factory Factory

	mu       sync.Mutex
	engine   Engine
	name     string
	path     string
	lastUsed time.Time

	now func() time.Time
}

func NewCache(store *model.Manager, factory Factory) *Cache {
	return &Cache{store: store, factory: factory, now: time.Now}
}

// EnsureLoaded returns an engine with the named model resident, loading
// or swapping as needed. Every call refreshes the idle clock.
func (c *Cache) EnsureLoaded(ctx context.Context, name string) (Engine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine != nil && c.name == name {
		c.lastUsed = c.now()
		return c.engine, nil
	}

	info, err := c.store.Resolve(name)
	if err != nil {
		info, err = c.fallbackInfo(name, err)
		if err != nil {
			return nil, err
		}
	}
	if c.engine != nil && c.name == info.Name {
		c.lastUsed = c.now()
		return c.engine, nil
	}
	if !info.Downloaded {
		return nil, fmt.Errorf("%w: %q", model.ErrNotDownloaded, info.Name)
	}

	if c.engine != nil {
		c.engine.Unload()
		c.engine = nil
	}

	eng, err := c.factory(info.Engine)
	if err != nil {
		return nil, err
	}

	start := c.now()
	if err := eng.Load(ctx, info.Path); err != nil {
		return nil, err
	}
	log.EngineLoad(info.Name, float64(c.now().Sub(start).Milliseconds()))

	c.engine = eng
	c.name = info.Name
	c.path = info.Path
	c.lastUsed = c.now()
	return eng, nil
}

// fallbackInfo walks FallbackOrder when the preferred model is not in
// the catalog. Nothing usable keeps the original resolve error.
func (c *Cache) fallbackInfo(name string, cause error) (model.Info, error) {
	for _, alt := range FallbackOrder {
		info, err := c.store.Resolve(alt)
		if err != nil || !info.Downloaded {
			continue
		}
		log.Warnf("model %q unavailable, falling back to %q", name, alt)
		return info, nil
	}
	return model.Info{}, cause
}

// Unload drops the resident model, if any.
func (c *Cache) Unload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.engine == nil {
		return
	}
	idle := c.now().Sub(c.lastUsed)
	c.engine.Unload()
	log.EngineUnload(c.name, idle.Seconds())
	c.engine = nil
	c.name = ""
	c.path = ""
}

// Current reports the resident model, or ok=false when cold.
func (c *Cache) Current() (name, path string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name, c.path, c.engine != nil
}

// IdleFor reports how long the resident model has gone unused.
func (c *Cache) IdleFor() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.engine == nil {
		return 0, false
	}
	return c.now().Sub(c.lastUsed), true
}

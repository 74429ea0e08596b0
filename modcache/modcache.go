// Package modcache is the host's load-once module cache. A module is
// initialized the first time it is imported and the value is shared by
// every later import for the life of the process.
package modcache

import (
	"sort"
	"sync"

	"go.starlark.net/starlark"
	"golang.org/x/sync/singleflight"
)

// Loader initializes a module.
type Loader func() (starlark.Value, error)

// Cache maps module names to initialized modules. Concurrent first
// imports of the same name share a single initialization.
type Cache struct {
	mu    sync.Mutex
	mods  map[string]starlark.Value
	loads map[string]int
	group singleflight.Group
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{
		mods:  make(map[string]starlark.Value),
		loads: make(map[string]int),
	}
}

// Default is the process-wide cache. It is populated on first use and
// never torn down.
var Default = New()

func (c *Cache) get(name string) (starlark.Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.mods[name]
	return v, ok
}

// LoadOrFetch returns the cached module called name, running load to
// initialize it if needed. A failed load is not cached; the next import
// tries again.
func (c *Cache) LoadOrFetch(name string, load Loader) (starlark.Value, error) {
	if v, ok := c.get(name); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(name, func() (any, error) {
		if v, ok := c.get(name); ok {
			return v, nil
		}
		v, err := load()
		c.mu.Lock()
		defer c.mu.Unlock()
		c.loads[name]++
		if err != nil {
			return nil, err
		}
		c.mods[name] = v
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(starlark.Value), nil
}

// Loads reports how many times the module called name was initialized.
func (c *Cache) Loads(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads[name]
}

// Names returns the sorted names of the loaded modules.
func (c *Cache) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.mods))
	for name := range c.mods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package wfconfig

import (
	"sync"
	"time"
)

// DefaultTTL is how long a cached snapshot is served before the next
// caller triggers a reload (§4.4: "no longer than the configured TTL,
// default 60s").
const DefaultTTL = 60 * time.Second

// Snapshot is an immutable, consistent view of both config files as of
// a point in time. Services receive the snapshot as an argument rather
// than reading module-level globals (§9 "Configuration mutability").
type Snapshot struct {
	Workflow  *Workflow
	Schemas   *Schemas
	LoadedAt  time.Time
}

// Cache loads config on demand and serves a cached Snapshot for up to
// TTL. There is no background refresh goroutine — reload happens
// lazily on the next Get/Reload call, consistent with the "no
// server-side scheduling or background workers" Non-goal. On a reload
// failure the previously cached snapshot is kept (§7).
type Cache struct {
	dir string
	ttl time.Duration

	mu       sync.Mutex
	snapshot *Snapshot
}

// NewCache creates a config cache rooted at dir with the given TTL.
func NewCache(dir string, ttl time.Duration) *Cache {
	return &Cache{dir: dir, ttl: ttl}
}

// Get returns the current snapshot, reloading it first if it is absent
// or older than the TTL. A reload failure, once a prior snapshot
// exists, is swallowed in favor of the last-good snapshot.
func (c *Cache) Get() (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snapshot != nil && time.Since(c.snapshot.LoadedAt) < c.ttl {
		return c.snapshot, nil
	}

	snap, err := c.load()
	if err != nil {
		if c.snapshot != nil {
			return c.snapshot, nil
		}
		return nil, err
	}
	c.snapshot = snap
	return c.snapshot, nil
}

// Reload forces an immediate reload regardless of TTL, for the
// operational "force reload" tool path (§4.4). On failure the previous
// snapshot is kept and the error is returned to the caller.
func (c *Cache) Reload() (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.load()
	if err != nil {
		return nil, err
	}
	c.snapshot = snap
	return c.snapshot, nil
}

func (c *Cache) load() (*Snapshot, error) {
	wf, schemas, err := Load(c.dir)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Workflow: wf, Schemas: schemas, LoadedAt: time.Now()}, nil
}

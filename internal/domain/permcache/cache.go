// Package permcache is the Thread-Local Cache (C4): a per-goroutine LRU
// plus four specialized maps that amortize repeated decision queries on hot
// paths.
//
// Go has no language-level thread_local. The idiomatic translation adopted
// here (see DESIGN.md) is: Cache is a plain struct with no internal
// locking, constructed once per worker goroutine via New and held by the
// caller — e.g. stashed in a per-connection handler, or drawn from a
// sync.Pool for a worker pool. It must never be shared across goroutines or
// guarded by a mutex; doing so would reintroduce exactly the contention
// thread-local caching exists to avoid.
package permcache

import (
	"github.com/cespare/xxhash/v2"
)

// ActionKind distinguishes the four cacheable query categories.
type ActionKind uint8

const (
	ActionTool ActionKind = iota
	ActionNetwork
	ActionStorage
	ActionEnvironment
)

// Action identifies a single cacheable decision query. Storage actions
// additionally carry the access mode, since read/write/execute on the same
// path can have different verdicts.
type Action struct {
	Kind ActionKind
	Key  string // tool name, host, path, or env var name
	Op   string // access mode, storage actions only
}

func (a Action) hash() uint64 {
	h := xxhash.New()
	var kindByte [1]byte
	kindByte[0] = byte(a.Kind)
	_, _ = h.Write(kindByte[:])
	_, _ = h.Write([]byte(a.Key))
	if a.Kind == ActionStorage {
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(a.Op))
	}
	return h.Sum64()
}

// Cache is the per-worker permission cache. Zero value is not usable; use
// New.
type Cache struct {
	generic *lru

	toolCache    map[string]bool
	networkCache map[string]bool
	envCache     map[string]bool
	storageCache map[storageKey]bool

	hits, misses uint64
}

type storageKey struct {
	path string
	op   string
}

// New constructs a cache with the given generic-LRU size. Specialized maps
// start empty and grow unbounded until Clear (matching the documented
// memory-for-latency tradeoff); size<=0 uses the published default of
// 1024.
func New(size int) *Cache {
	return &Cache{
		generic:      newLRU(size),
		toolCache:    map[string]bool{},
		networkCache: map[string]bool{},
		envCache:     map[string]bool{},
		storageCache: map[storageKey]bool{},
	}
}

// Check is a pure lookup against the generic LRU; it increments hit/miss
// counters and never blocks.
func (c *Cache) Check(action Action) (verdict bool, ok bool) {
	verdict, ok = c.generic.get(action.hash())
	c.record(ok)
	return verdict, ok
}

// Insert writes to both the generic LRU and the relevant specialized map.
func (c *Cache) Insert(action Action, verdict bool) {
	c.generic.put(action.hash(), verdict)
	switch action.Kind {
	case ActionTool:
		c.toolCache[action.Key] = verdict
	case ActionNetwork:
		c.networkCache[action.Key] = verdict
	case ActionEnvironment:
		c.envCache[action.Key] = verdict
	case ActionStorage:
		c.storageCache[storageKey{path: action.Key, op: action.Op}] = verdict
	}
}

// CheckTool is the inline-friendly specialized-map lookup for tool actions.
func (c *Cache) CheckTool(name string) (bool, bool) {
	v, ok := c.toolCache[name]
	c.record(ok)
	return v, ok
}

// CheckNetwork is the inline-friendly specialized-map lookup for network
// actions.
func (c *Cache) CheckNetwork(host string) (bool, bool) {
	v, ok := c.networkCache[host]
	c.record(ok)
	return v, ok
}

// CheckStorage is the inline-friendly specialized-map lookup for storage
// actions.
func (c *Cache) CheckStorage(path, op string) (bool, bool) {
	v, ok := c.storageCache[storageKey{path: path, op: op}]
	c.record(ok)
	return v, ok
}

// CheckEnv is the inline-friendly specialized-map lookup for environment
// actions.
func (c *Cache) CheckEnv(key string) (bool, bool) {
	v, ok := c.envCache[key]
	c.record(ok)
	return v, ok
}

func (c *Cache) record(hit bool) {
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}

// Clear wipes every cached verdict and resets hit/miss counters. MUST be
// called on every live Cache instance whenever a new compiled policy is
// installed — a cached verdict is a pure function of the policy that was
// active at insertion time, and the cache has no way to detect staleness on
// its own.
func (c *Cache) Clear() {
	c.generic.clear()
	c.toolCache = map[string]bool{}
	c.networkCache = map[string]bool{}
	c.envCache = map[string]bool{}
	c.storageCache = map[storageKey]bool{}
	c.hits, c.misses = 0, 0
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits       uint64
	Misses     uint64
	HitRate    float64
	TotalItems int
}

func (c *Cache) Stats() Stats {
	total := c.hits + c.misses
	var rate float64
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	items := c.generic.len() + len(c.toolCache) + len(c.networkCache) + len(c.envCache) + len(c.storageCache)
	return Stats{Hits: c.hits, Misses: c.misses, HitRate: rate, TotalItems: items}
}

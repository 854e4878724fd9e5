// Package cache provides a content-addressed result cache with TTL expiry and
// LRU eviction, plus an optional SQLite persistence layer.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/crewhq/crew/pkg/models"
)

// Default cache bounds.
const (
	DefaultCapacity = 100
	DefaultTTL      = time.Hour
)

// entry is one cached result with its bookkeeping timestamps.
type entry struct {
	result     models.TaskResult
	storedAt   time.Time
	lastAccess time.Time
}

// ResultCache maps a task's semantic identity to a previously computed result.
// Identical tasks by (category, description, sorted dependencies) share a key
// regardless of ID. A single mutex guards the map and the access-time index.
type ResultCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[string]*entry

	hits      int
	misses    int
	evictions int

	// now is the clock source, replaceable in tests.
	now func() time.Time
}

// New creates a ResultCache with the given capacity and TTL.
// Non-positive values fall back to defaults.
func New(capacity int, ttl time.Duration) *ResultCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ResultCache{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*entry),
		now:      time.Now,
	}
}

// Key derives the stable cache key for a task from its semantic identity.
// The task ID is deliberately excluded so identical work shares an entry.
func Key(task *models.Task) string {
	deps := make([]string, len(task.DependsOn))
	copy(deps, task.DependsOn)
	sort.Strings(deps)

	var b strings.Builder
	b.WriteString(string(task.Category))
	b.WriteByte('|')
	b.WriteString(task.Description)
	b.WriteByte('|')
	b.WriteString(strings.Join(deps, ","))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached result for a task, if present and unexpired.
// Reading an expired entry deletes it and reports a miss.
func (c *ResultCache) Get(task *models.Task) (models.TaskResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key(task)
	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return models.TaskResult{}, false
	}

	if c.now().Sub(e.storedAt) > c.ttl {
		delete(c.entries, key)
		c.misses++
		return models.TaskResult{}, false
	}

	e.lastAccess = c.now()
	c.hits++
	return e.result, true
}

// Put stores a result under the task's semantic key. At capacity, the entry
// with the oldest last-access time is evicted first.
func (c *ResultCache) Put(task *models.Task, result models.TaskResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key(task)
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.evictOldestLocked()
	}

	now := c.now()
	c.entries[key] = &entry{result: result, storedAt: now, lastAccess: now}
}

// evictOldestLocked removes the least recently used entry.
// Caller must hold c.mu.
func (c *ResultCache) evictOldestLocked() {
	var oldestKey string
	var oldestAccess time.Time
	for key, e := range c.entries {
		if oldestKey == "" || e.lastAccess.Before(oldestAccess) {
			oldestKey = key
			oldestAccess = e.lastAccess
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.evictions++
	}
}

// Len returns the number of live entries, counting expired-but-unread ones.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats describes cache effectiveness over the cache's lifetime.
type Stats struct {
	Hits      int `json:"hits"`
	Misses    int `json:"misses"`
	Evictions int `json:"evictions"`
}

// HitRate returns hits / (hits + misses), or zero with no lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Stats returns a snapshot of the cache counters.
func (c *ResultCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Evictions: c.evictions}
}

// Entry is an exported view of one cache entry, used by the persistence store.
type Entry struct {
	Key        string
	Result     models.TaskResult
	StoredAt   time.Time
	LastAccess time.Time
}

// Export returns all unexpired entries for persistence.
func (c *ResultCache) Export() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry, 0, len(c.entries))
	for key, e := range c.entries {
		if c.now().Sub(e.storedAt) > c.ttl {
			continue
		}
		out = append(out, Entry{Key: key, Result: e.result, StoredAt: e.storedAt, LastAccess: e.lastAccess})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Import seeds the cache from persisted entries, skipping expired ones and
// stopping at capacity. Most recently used entries load first.
func (c *ResultCache) Import(entries []Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LastAccess.After(sorted[j].LastAccess) })

	for _, e := range sorted {
		if len(c.entries) >= c.capacity {
			break
		}
		if c.now().Sub(e.StoredAt) > c.ttl {
			continue
		}
		c.entries[e.Key] = &entry{result: e.Result, storedAt: e.StoredAt, lastAccess: e.LastAccess}
	}
}

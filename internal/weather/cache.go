package weather

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/disaster-scenario-service/internal/domain"
)

// DefaultCacheSize is the TTLCache capacity used when none is configured.
const DefaultCacheSize = 100

// Cache stores weather snapshots for a bounded time.
type Cache interface {
	Get(key string) (domain.WeatherSnapshot, bool)
	Put(key string, snap domain.WeatherSnapshot, ttl time.Duration)
}

// NoopCache never stores anything.
type NoopCache struct{}

func (NoopCache) Get(string) (domain.WeatherSnapshot, bool) { return domain.WeatherSnapshot{}, false }
func (NoopCache) Put(string, domain.WeatherSnapshot, time.Duration) {}

// TTLCache is a thread-safe, capacity-bounded cache with per-entry expiry.
// When full it first purges expired entries, then drops the oldest-inserted
// one. Reads do not refresh an entry's position.
type TTLCache struct {
	capacity int
	clock    clockwork.Clock

	mu      sync.Mutex
	entries map[string]*cacheEntry
	head    *cacheEntry // oldest
	tail    *cacheEntry // newest
}

type cacheEntry struct {
	key       string
	value     domain.WeatherSnapshot
	expiresAt time.Time
	prev      *cacheEntry
	next      *cacheEntry
}

// NewTTLCache creates a cache holding at most capacity entries. A nil clock
// uses real time.
func NewTTLCache(capacity int, clock clockwork.Clock) *TTLCache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TTLCache{
		capacity: capacity,
		clock:    clock,
		entries:  make(map[string]*cacheEntry),
	}
}

// Get returns a copy of an unexpired entry. Expired entries are dropped on read.
func (c *TTLCache) Get(key string) (domain.WeatherSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.WeatherSnapshot{}, false
	}
	if !c.clock.Now().Before(e.expiresAt) {
		c.remove(e)
		return domain.WeatherSnapshot{}, false
	}
	return e.value.Clone(), true
}

// Put stores a copy of snap. Overwriting a key keeps its insertion position.
func (c *TTLCache) Put(key string, snap domain.WeatherSnapshot, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.clock.Now().Add(ttl)
	if e, ok := c.entries[key]; ok {
		e.value = snap.Clone()
		e.expiresAt = expiresAt
		return
	}

	if len(c.entries) >= c.capacity {
		c.purgeExpired()
	}
	if len(c.entries) >= c.capacity && c.head != nil {
		c.remove(c.head)
	}

	e := &cacheEntry{key: key, value: snap.Clone(), expiresAt: expiresAt}
	c.entries[key] = e
	c.append(e)
}

// Len reports the number of stored entries, expired or not.
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *TTLCache) purgeExpired() {
	now := c.clock.Now()
	for e := c.head; e != nil; {
		next := e.next
		if !now.Before(e.expiresAt) {
			c.remove(e)
		}
		e = next
	}
}

func (c *TTLCache) append(e *cacheEntry) {
	e.prev = c.tail
	e.next = nil
	if c.tail != nil {
		c.tail.next = e
	}
	c.tail = e
	if c.head == nil {
		c.head = e
	}
}

func (c *TTLCache) remove(e *cacheEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev, e.next = nil, nil
	delete(c.entries, e.key)
}

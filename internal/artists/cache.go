package artists

import (
	"sync"
	"time"

	"freakfest/pkg/models"
)

const DefaultTTL = 15 * time.Minute

// Cache holds the last loaded lineup for a fixed TTL. The clock is injected
// so expiry can be tested without sleeping.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu        sync.RWMutex
	data      []models.Artist
	fetchedAt time.Time
	valid     bool
}

func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{ttl: ttl, now: now}
}

// Get returns the cached lineup while it is younger than the TTL.
func (c *Cache) Get() ([]models.Artist, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.valid || c.now().Sub(c.fetchedAt) >= c.ttl {
		return nil, false
	}
	out := make([]models.Artist, len(c.data))
	copy(out, c.data)
	return out, true
}

func (c *Cache) Set(artists []models.Artist) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = append([]models.Artist(nil), artists...)
	c.fetchedAt = c.now()
	c.valid = true
}

func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
	c.valid = false
}

// Age reports how long ago the cache was filled; ok is false when empty.
func (c *Cache) Age() (time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.valid {
		return 0, false
	}
	return c.now().Sub(c.fetchedAt), true
}

package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"
)

var errTenantRequired = errors.New("tenantID is required")

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// MemoryCache is a process-local Cache for single-instance deployments and
// tests.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memoryEntry
	now   func() time.Time
	// earliest expiry among stored entries; zero when none expire
	nextExpiry time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, tenantID, key string) ([]byte, error) {
	if tenantID == "" {
		return nil, errTenantRequired
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	fullKey := makeKey(tenantID, key)
	e, ok := c.items[fullKey]
	if !ok {
		return nil, nil
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		delete(c.items, fullKey)
		return nil, nil
	}
	return append([]byte(nil), e.value...), nil
}

func (c *MemoryCache) Set(_ context.Context, tenantID, key string, value []byte, ttl time.Duration) error {
	if tenantID == "" {
		return errTenantRequired
	}
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.sweepLocked()
	c.items[makeKey(tenantID, key)] = e
	c.trackLocked(e.expiresAt)
	c.mu.Unlock()
	return nil
}

// Incr follows Redis INCR semantics: a missing key counts from zero.
func (c *MemoryCache) Incr(_ context.Context, tenantID, key string) (int64, error) {
	if tenantID == "" {
		return 0, errTenantRequired
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()

	fullKey := makeKey(tenantID, key)
	var n int64
	if e, ok := c.items[fullKey]; ok {
		parsed, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, errors.New("value is not an integer or out of range")
		}
		n = parsed
	}
	n++
	c.items[fullKey] = memoryEntry{value: []byte(strconv.FormatInt(n, 10))}
	return n, nil
}

// sweepLocked drops expired entries once the earliest tracked expiry has
// passed. Superseded rule generations are never read again and go here.
func (c *MemoryCache) sweepLocked() {
	if c.nextExpiry.IsZero() {
		return
	}
	now := c.now()
	if !now.After(c.nextExpiry) {
		return
	}
	c.nextExpiry = time.Time{}
	for k, e := range c.items {
		if e.expiresAt.IsZero() {
			continue
		}
		if now.After(e.expiresAt) {
			delete(c.items, k)
			continue
		}
		c.trackLocked(e.expiresAt)
	}
}

func (c *MemoryCache) trackLocked(expiresAt time.Time) {
	if expiresAt.IsZero() {
		return
	}
	if c.nextExpiry.IsZero() || expiresAt.Before(c.nextExpiry) {
		c.nextExpiry = expiresAt
	}
}

// Len reports the number of stored entries, expired ones included until swept.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *MemoryCache) Close() error {
	return nil
}

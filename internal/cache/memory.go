// Package cache provides a thread-safe in-memory TTL cache
package cache

import (
	"context"
	"sync"
	"time"

	"pricewatch/internal/types"
)

const defaultCleanupInterval = 10 * time.Minute

type entry[V any] struct {
	value      V
	expiration time.Time
}

// Memory is an in-memory cache with per-entry TTL. Expired entries are
// swept periodically until Close is called.
type Memory[V any] struct {
	data  map[string]entry[V]
	mutex sync.RWMutex
	now   func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemory creates a cache and starts its cleanup goroutine
func NewMemory[V any](cleanupInterval time.Duration) *Memory[V] {
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	}
	c := &Memory[V]{
		data: make(map[string]entry[V]),
		now:  time.Now,
		stop: make(chan struct{}),
	}
	go c.cleanupExpired(cleanupInterval)
	return c
}

// Get returns the value stored under key, or types.ErrCacheMiss
func (c *Memory[V]) Get(_ context.Context, key string) (V, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var zero V
	item, exists := c.data[key]
	if !exists || c.now().After(item.expiration) {
		return zero, types.ErrCacheMiss
	}
	return item.value, nil
}

// Set stores value under key for ttl
func (c *Memory[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = entry[V]{
		value:      value,
		expiration: c.now().Add(ttl),
	}
	return nil
}

// Delete removes key
func (c *Memory[V]) Delete(_ context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
	return nil
}

// Size returns the number of stored entries, expired or not
func (c *Memory[V]) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Clear removes all entries
func (c *Memory[V]) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]entry[V])
}

// Close stops the cleanup goroutine
func (c *Memory[V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Memory[V]) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Memory[V]) sweep() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	for key, item := range c.data {
		if now.After(item.expiration) {
			delete(c.data, key)
		}
	}
}

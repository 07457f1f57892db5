package cache

import (
	"context"
	"strings"
	"time"

	"github.com/cuongbtq/mediajobs/internal/domain"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultLocalSize = 10000

// StatusCache holds status views of finished jobs in process memory with a TTL.
// Views of active jobs are never cached; a terminal view cannot go stale.
type StatusCache struct {
	lru *expirable.LRU[string, domain.JobView]
}

// NewStatusCache creates a new StatusCache instance
func NewStatusCache(size int, ttl time.Duration) *StatusCache {
	if size <= 0 {
		size = defaultLocalSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &StatusCache{
		lru: expirable.NewLRU[string, domain.JobView](size, nil, ttl),
	}
}

// Get returns the cached view of a job
func (c *StatusCache) Get(jobID string) (domain.JobView, bool) {
	return c.lru.Get(JobStatusKey(jobID))
}

// Put caches a terminal job's view and reports whether it was cached
func (c *StatusCache) Put(view domain.JobView) bool {
	if !view.State.Terminal() {
		return false
	}
	c.lru.Add(JobStatusKey(view.ID), view)
	return true
}

// Len reports the number of cached views
func (c *StatusCache) Len() int {
	return c.lru.Len()
}

// Invalidate implements domain.Cache. Keys this cache does not hold are ignored.
func (c *StatusCache) Invalidate(_ context.Context, keys []string) error {
	for _, key := range keys {
		if strings.HasPrefix(key, JobStatusKey("")) {
			c.lru.Remove(key)
		}
	}
	return nil
}

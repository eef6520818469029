package commentcard

import (
	"context"
	"sync"
	"time"

	"github.com/eringen/commentcard/youtube"
)

// CommentCache is an in-memory cache of fetched comments with TTL. Only
// responses that carry at least one comment are cached, so errors and empty
// lookups always reach the upstream service.
type CommentCache struct {
	mu      sync.RWMutex
	entries map[string]cachedComment
	ttl     time.Duration
	fetcher CommentFetcher
	now     func() time.Time
}

type cachedComment struct {
	resp    *youtube.ListResponse
	fetched time.Time
}

// NewCommentCache creates a CommentCache in front of f. A ttl of zero or
// less disables caching.
func NewCommentCache(f CommentFetcher, ttl time.Duration) *CommentCache {
	return &CommentCache{
		entries: make(map[string]cachedComment),
		ttl:     ttl,
		fetcher: f,
		now:     time.Now,
	}
}

func (c *CommentCache) valid(e cachedComment, now time.Time) bool {
	return e.resp != nil && now.Sub(e.fetched) < c.ttl
}

// FetchComment returns the cached response for id or fetches it.
func (c *CommentCache) FetchComment(ctx context.Context, id string) (*youtube.ListResponse, error) {
	if c.ttl <= 0 {
		return c.fetcher.FetchComment(ctx, id)
	}

	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if ok && c.valid(e, c.now()) {
		return e.resp, nil
	}

	resp, err := c.fetcher.FetchComment(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, found := resp.First(); !found {
		return resp, nil
	}

	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = cachedComment{resp: resp, fetched: now}
	for k, old := range c.entries {
		if !c.valid(old, now) {
			delete(c.entries, k)
		}
	}
	return resp, nil
}

// Invalidate clears the cache so the next read triggers a fresh fetch.
func (c *CommentCache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]cachedComment)
	c.mu.Unlock()
}

// Len reports how many comments are cached.
func (c *CommentCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

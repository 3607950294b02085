package prompts

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// fetchTimeout bounds a shared upstream fetch, which no single caller owns.
const fetchTimeout = time.Minute

// Cache keeps fetched prompts in memory. Concurrent fetches of the same
// prompt share one request to the underlying source.
type Cache struct {
	src   Source
	group singleflight.Group

	mu    sync.RWMutex
	clips map[int]*Clip
}

func NewCache(src Source) *Cache {
	return &Cache{src: src, clips: make(map[int]*Clip)}
}

func (c *Cache) Fetch(ctx context.Context, n int) (*Clip, error) {
	c.mu.RLock()
	clip, ok := c.clips[n]
	c.mu.RUnlock()
	if ok {
		return clip, nil
	}

	// The shared fetch outlives any single caller's context.
	ch := c.group.DoChan(strconv.Itoa(n), func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		clip, err := c.src.Fetch(fctx, n)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.clips[n] = clip
		c.mu.Unlock()
		return clip, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Clip), nil
	}
}

// FetchRange returns prompts 1..n in order.
func FetchRange(ctx context.Context, src Source, n int) ([]*Clip, error) {
	out := make([]*Clip, 0, n)
	for i := 1; i <= n; i++ {
		clip, err := src.Fetch(ctx, i)
		if err != nil {
			return nil, err
		}
		out = append(out, clip)
	}
	return out, nil
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.clips)
}

// Purge drops every cached prompt.
func (c *Cache) Purge() {
	c.mu.Lock()
	clear(c.clips)
	c.mu.Unlock()
}

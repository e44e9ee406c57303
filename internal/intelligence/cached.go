package intelligence

import (
	"context"
	"time"

	"github.com/deusflow/lankanews/internal/cache"
	"github.com/deusflow/lankanews/internal/news"
	"github.com/deusflow/lankanews/internal/ratelimit"
)

// Cached memoizes classification and summaries by content hash so a story
// scraped again within the TTL is not paid for twice. Clustering and
// feature articles depend on the whole batch and are passed through.
type Cached struct {
	Service
	cache  *cache.Cache[string]
	ttl    time.Duration
	budget *ratelimit.Budget
}

// NewCached wraps inner. budget may be nil; when set, hits are counted on it.
func NewCached(inner Service, c *cache.Cache[string], ttl time.Duration, budget *ratelimit.Budget) *Cached {
	return &Cached{Service: inner, cache: c, ttl: ttl, budget: budget}
}

func (c *Cached) Classify(ctx context.Context, text string) (news.Category, error) {
	key := cache.Key("classify", text)
	if v, ok := c.cache.Get(key); ok {
		c.hit()
		return news.Category(v), nil
	}

	cat, err := c.Service.Classify(ctx, text)
	if err != nil {
		return "", err
	}
	c.cache.Set(key, string(cat), c.ttl)
	return cat, nil
}

func (c *Cached) Summarize(ctx context.Context, text string, mode Mode) (string, error) {
	key := cache.Key("summarize", string(mode), text)
	if v, ok := c.cache.Get(key); ok {
		c.hit()
		return v, nil
	}

	out, err := c.Service.Summarize(ctx, text, mode)
	if err != nil {
		return "", err
	}
	c.cache.Set(key, out, c.ttl)
	return out, nil
}

func (c *Cached) hit() {
	if c.budget != nil {
		c.budget.RecordCacheHit()
	}
}

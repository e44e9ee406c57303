package news

import (
	"strings"
	"sync"
	"time"
)

// Batch accumulates articles from every source during one run. URLs identify
// raw articles, so a URL already collected is rejected. A Batch is created at
// the start of a run and discarded once the pipeline has consumed it.
type Batch struct {
	StartedAt time.Time

	mu       sync.Mutex
	articles []Article
	seenURLs map[string]struct{}
}

func NewBatch(startedAt time.Time) *Batch {
	return &Batch{
		StartedAt: startedAt,
		seenURLs:  make(map[string]struct{}),
	}
}

// Add appends a, reporting false when its URL was already collected or a
// required field is missing.
func (b *Batch) Add(a Article) bool {
	if a.Validate() != nil {
		return false
	}
	key := strings.TrimSpace(a.URL)

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, seen := b.seenURLs[key]; seen {
		return false
	}
	b.seenURLs[key] = struct{}{}
	b.articles = append(b.articles, a)
	return true
}

// AddAll adds every article and returns how many were accepted.
func (b *Batch) AddAll(articles []Article) int {
	added := 0
	for _, a := range articles {
		if b.Add(a) {
			added++
		}
	}
	return added
}

// Seen reports whether url was already collected.
func (b *Batch) Seen(url string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.seenURLs[strings.TrimSpace(url)]
	return ok
}

func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.articles)
}

// Articles returns a copy of the collected articles in insertion order.
func (b *Batch) Articles() []Article {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Article, len(b.articles))
	copy(out, b.articles)
	return out
}

package intelligence

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/deusflow/lankanews/internal/news"
)

// Stub is a deterministic Service for tests. Unset funcs fall back to:
// General for every text, every title unique, a prefixed copy of the input
// as summary, and the joined texts as feature article.
type Stub struct {
	ClassifyFunc  func(text string) (news.Category, error)
	ClusterFunc   func(titles []string) ([]TitleTag, error)
	SummarizeFunc func(text string, mode Mode) (string, error)
	FeatureFunc   func(category news.Category, texts []string) (string, error)

	mu    sync.Mutex
	calls map[string]int
}

var _ Service = (*Stub)(nil)

func (s *Stub) record(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[op]++
}

// Calls returns how many times op ("classify", "cluster", "summarize",
// "feature") was invoked.
func (s *Stub) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *Stub) Classify(ctx context.Context, text string) (news.Category, error) {
	s.record("classify")
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.ClassifyFunc != nil {
		return s.ClassifyFunc(text)
	}
	return news.General, nil
}

func (s *Stub) Cluster(ctx context.Context, titles []string) ([]TitleTag, error) {
	s.record("cluster")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.ClusterFunc != nil {
		return s.ClusterFunc(titles)
	}
	tags := make([]TitleTag, len(titles))
	for i, t := range titles {
		tags[i] = TitleTag{Title: t, Group: Unique}
	}
	return tags, nil
}

func (s *Stub) Summarize(ctx context.Context, text string, mode Mode) (string, error) {
	s.record("summarize")
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.SummarizeFunc != nil {
		return s.SummarizeFunc(text, mode)
	}
	return fmt.Sprintf("%s: %s", mode, strings.TrimSpace(text)), nil
}

func (s *Stub) FeatureArticle(ctx context.Context, category news.Category, texts []string) (string, error) {
	s.record("feature")
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.FeatureFunc != nil {
		return s.FeatureFunc(category, texts)
	}
	return strings.Join(texts, "\n\n"), nil
}

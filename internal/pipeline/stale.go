package pipeline

import (
	"time"

	"github.com/deusflow/lankanews/internal/news"
)

// FilterStale drops articles published more than maxAge before now.
// Undated articles and articles with an unparsable date are kept, and a
// non-positive maxAge disables the filter.
func FilterStale(articles []news.Article, now time.Time, maxAge time.Duration) ([]news.Article, int) {
	if maxAge <= 0 {
		return articles, 0
	}

	cutoff := now.Add(-maxAge)
	kept := make([]news.Article, 0, len(articles))
	for _, a := range articles {
		t, err := news.ParseTimestamp(a.DatePublished)
		if err == nil && t.Before(cutoff) {
			continue
		}
		kept = append(kept, a)
	}
	return kept, len(articles) - len(kept)
}

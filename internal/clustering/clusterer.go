// Package clustering groups near-duplicate articles about the same story.
package clustering

import (
	"context"
	"log/slog"

	"github.com/deusflow/lankanews/internal/intelligence"
	"github.com/deusflow/lankanews/internal/logger"
	"github.com/deusflow/lankanews/internal/news"
)

// Assignment maps a normalized title to a group id or intelligence.Unique.
type Assignment map[string]string

// Tag returns the tag of a raw title, Unique when it has none.
func (a Assignment) Tag(title string) string {
	if tag, ok := a[news.NormalizeTitle(title)]; ok {
		return tag
	}
	return intelligence.Unique
}

// Result is the outcome of one clustering call.
type Result struct {
	Tags Assignment
	// Fallback is set when the backend failed and every title is unique.
	Fallback bool
	// Unmatched counts titles the backend answer did not cover.
	Unmatched int
}

// TitleClusterer asks a backend which titles describe the same story and
// guarantees every input title exactly one tag whatever the backend answers.
type TitleClusterer struct {
	backend intelligence.Clusterer
	log     *slog.Logger
}

func NewTitleClusterer(backend intelligence.Clusterer, log *slog.Logger) *TitleClusterer {
	return &TitleClusterer{backend: backend, log: logger.OrDefault(log)}
}

// Cluster never fails: a backend error or an unparsable answer leaves the
// affected titles unique.
func (c *TitleClusterer) Cluster(ctx context.Context, articles []news.Article) Result {
	keys := make([]string, 0, len(articles))
	tags := make(Assignment, len(articles))
	for _, a := range articles {
		key := news.NormalizeTitle(a.Title)
		if _, seen := tags[key]; seen {
			continue
		}
		tags[key] = ""
		keys = append(keys, key)
	}

	res := Result{Tags: tags}
	if len(keys) == 0 {
		return res
	}

	answer, err := c.backend.Cluster(ctx, keys)
	if err != nil {
		c.log.Warn("clustering failed, treating all titles as unique", "titles", len(keys), "error", err)
		for _, k := range keys {
			tags[k] = intelligence.Unique
		}
		res.Fallback = true
		return res
	}

	for _, tt := range answer {
		key := news.NormalizeTitle(tt.Title)
		current, known := tags[key]
		if !known {
			c.log.Debug("cluster answer names an unknown title", "title", tt.Title)
			continue
		}
		if current != "" {
			continue
		}
		tags[key] = tt.Group
	}

	for _, k := range keys {
		if tags[k] == "" {
			tags[k] = intelligence.Unique
			res.Unmatched++
		}
	}
	if res.Unmatched > 0 {
		c.log.Warn("cluster answer left titles untagged", "count", res.Unmatched)
	}
	return res
}

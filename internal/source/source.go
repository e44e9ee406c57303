// Package source yields raw articles from configured news sites and RSS
// feeds.
package source

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/deusflow/lankanews/internal/logger"
	"github.com/deusflow/lankanews/internal/metrics"
	"github.com/deusflow/lankanews/internal/news"
)

const userAgent = "Mozilla/5.0 (compatible; lankanews/1.0)"

// Source yields Article-shaped records. Title, content, url and source are
// always set; date and cover image may be empty.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]news.Article, error)
}

// Options is shared by every source.
type Options struct {
	Timeout     time.Duration
	Concurrency int
	// MaxLinks caps how many pages one site may fetch at each crawl level.
	MaxLinks      int
	UnwantedWords []string
	Client        *http.Client
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.Concurrency < 1 {
		o.Concurrency = 4
	}
	if o.MaxLinks < 1 {
		o.MaxLinks = 200
	}
	if o.Client == nil {
		o.Client = &http.Client{Timeout: o.Timeout}
	}
	return o
}

// Collect fetches every source into b. A failing source is logged and
// skipped. It returns how many articles the batch accepted.
func Collect(ctx context.Context, sources []Source, b *news.Batch, m *metrics.Metrics, log *slog.Logger) int {
	log = logger.OrDefault(log)
	if m == nil {
		m = metrics.Global
	}

	total := 0
	for _, s := range sources {
		if ctx.Err() != nil {
			log.Warn("collection cancelled", "reason", ctx.Err())
			break
		}

		articles, err := s.Fetch(ctx)
		if err != nil {
			log.Error("❌ Source failed", "source", s.Name(), "error", err)
			continue
		}

		added := b.AddAll(articles)
		total += added
		log.Info("📥 Source fetched", "source", s.Name(), "articles", len(articles), "accepted", added)
	}

	m.AddScraped(total)
	return total
}

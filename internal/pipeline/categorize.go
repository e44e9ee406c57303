package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/deusflow/lankanews/internal/intelligence"
	"github.com/deusflow/lankanews/internal/logger"
	"github.com/deusflow/lankanews/internal/metrics"
	"github.com/deusflow/lankanews/internal/news"
)

// CategoryAssigner tags articles with one enumerated category. A failed call
// or an answer outside the enum falls back to General.
type CategoryAssigner struct {
	classifier intelligence.Classifier
	workers    int
	metrics    *metrics.Metrics
	log        *slog.Logger
}

func NewCategoryAssigner(c intelligence.Classifier, workers int, m *metrics.Metrics, log *slog.Logger) *CategoryAssigner {
	if workers < 1 {
		workers = 1
	}
	if m == nil {
		m = metrics.Global
	}
	return &CategoryAssigner{classifier: c, workers: workers, metrics: m, log: logger.OrDefault(log)}
}

// Assign sets Category on every article in place and returns the number of
// fallbacks. Each worker writes only its own slice element. Once ctx is
// done the remaining articles are left as they are.
func (a *CategoryAssigner) Assign(ctx context.Context, articles []news.Article) int {
	fallbacks := make([]bool, len(articles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i := range articles {
		i := i
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			article := &articles[i]
			c, err := a.classifier.Classify(gctx, article.Body())
			if err != nil && gctx.Err() != nil {
				return nil
			}
			if err != nil || !c.Valid() {
				a.log.Warn("category assignment failed, using General",
					"title", article.Title, "url", article.URL, "category", c, "error", err)
				c = news.General
				fallbacks[i] = true
				a.metrics.IncrementCategoryFallbacks()
			}
			article.Category = c
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, f := range fallbacks {
		if f {
			n++
		}
	}
	return n
}

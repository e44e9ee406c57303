// Package feature generates the weekly long-form feature articles.
package feature

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/deusflow/lankanews/internal/intelligence"
	"github.com/deusflow/lankanews/internal/logger"
	"github.com/deusflow/lankanews/internal/metrics"
	"github.com/deusflow/lankanews/internal/news"
	"github.com/deusflow/lankanews/internal/storage"
)

// ErrNothingGenerated is returned when a week had summaries but every
// generation call failed. The previously stored set is left untouched.
var ErrNothingGenerated = errors.New("no feature article generated")

// Aggregator writes one feature article per category from a week's stored
// long summaries and replaces that week's feature set.
type Aggregator struct {
	writer  intelligence.FeatureWriter
	store   storage.Store
	metrics *metrics.Metrics
	log     *slog.Logger
}

func NewAggregator(w intelligence.FeatureWriter, store storage.Store, m *metrics.Metrics, log *slog.Logger) *Aggregator {
	if m == nil {
		m = metrics.Global
	}
	return &Aggregator{writer: w, store: store, metrics: m, log: logger.OrDefault(log)}
}

// GenerateForWeek returns the generated articles keyed by category. A week
// with no summaries yields an empty map and stores nothing. A category whose
// generation fails is left out of the set.
func (a *Aggregator) GenerateForWeek(ctx context.Context, week string) (map[string]string, error) {
	if !news.ValidWeekKey(week) {
		return nil, fmt.Errorf("invalid week key %q", week)
	}

	digest, err := a.store.GetWeek(ctx, week)
	if err != nil {
		return nil, fmt.Errorf("failed to read week %s: %w", week, err)
	}

	articles := make(map[string]string)
	attempted := 0
	for _, p := range news.Partitions() {
		summaries := digest.Summaries[p]
		if len(summaries) == 0 {
			continue
		}
		attempted++

		text, err := a.writer.FeatureArticle(ctx, news.Category(p), summaries)
		if err != nil {
			a.log.Warn("feature article generation failed", "week", week, "category", p, "error", err)
			continue
		}
		articles[p] = text
	}

	if attempted == 0 {
		a.log.Info("No summaries stored for week", "week", week)
		return articles, nil
	}
	if len(articles) == 0 {
		return articles, fmt.Errorf("%w for week %s", ErrNothingGenerated, week)
	}

	set := storage.FeatureSet{
		Week:            week,
		FeatureArticles: articles,
		ImageURLs:       digest.ImageURLs,
	}
	if err := a.store.ReplaceFeatureSet(ctx, set); err != nil {
		return nil, fmt.Errorf("failed to store feature set for %s: %w", week, err)
	}

	a.metrics.AddFeatureArticles(len(articles))
	a.log.Info("📰 Feature articles stored", "week", week, "categories", len(articles), "images", len(digest.ImageURLs))
	return articles, nil
}

// GenerateAll regenerates every week present in storage. It keeps going past
// a failing week and returns the joined errors.
func (a *Aggregator) GenerateAll(ctx context.Context) (map[string]map[string]string, error) {
	weeks, err := a.store.Weeks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list weeks: %w", err)
	}

	out := make(map[string]map[string]string, len(weeks))
	var errs []error
	for _, w := range weeks {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		articles, err := a.GenerateForWeek(ctx, w)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[w] = articles
	}
	return out, errors.Join(errs...)
}

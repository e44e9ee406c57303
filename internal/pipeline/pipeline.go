// Package pipeline turns a scraped batch into stored records: stale filter,
// deduplication, week labels, categories, clustering, group materialization,
// summaries and the idempotent insert.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/deusflow/lankanews/internal/clustering"
	"github.com/deusflow/lankanews/internal/intelligence"
	"github.com/deusflow/lankanews/internal/logger"
	"github.com/deusflow/lankanews/internal/metrics"
	"github.com/deusflow/lankanews/internal/news"
	"github.com/deusflow/lankanews/internal/storage"
)

// Options tunes one Pipeline.
type Options struct {
	// MaxAge drops articles published earlier than now-MaxAge. Zero keeps all.
	MaxAge time.Duration
	// Workers bounds concurrent Text Intelligence calls.
	Workers int
	// Clusterer overrides the service's own clustering, e.g. the TF-IDF backend.
	Clusterer intelligence.Clusterer
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

// Report summarizes one run.
type Report struct {
	Input             int           `json:"input"`
	Stale             int           `json:"stale"`
	Duplicates        int           `json:"duplicates"`
	Unlabeled         int           `json:"unlabeled"`
	CategoryFallbacks int           `json:"category_fallbacks"`
	ClusterFallback   bool          `json:"cluster_fallback"`
	Records           int           `json:"records"`
	Groups            int           `json:"groups"`
	SummaryFailures   int           `json:"summary_failures"`
	Inserted          int           `json:"inserted"`
	Skipped           int           `json:"skipped"`
	Duration          time.Duration `json:"duration"`
}

type Pipeline struct {
	store      storage.Store
	categories *CategoryAssigner
	clusterer  *clustering.TitleClusterer
	summarizer *Summarizer
	metrics    *metrics.Metrics
	opts       Options
	log        *slog.Logger
}

func New(ai intelligence.Service, store storage.Store, opts Options, log *slog.Logger) *Pipeline {
	log = logger.OrDefault(log)
	if opts.Metrics == nil {
		opts.Metrics = metrics.Global
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	var backend intelligence.Clusterer = ai
	if opts.Clusterer != nil {
		backend = opts.Clusterer
	}

	return &Pipeline{
		store:      store,
		categories: NewCategoryAssigner(ai, opts.Workers, opts.Metrics, log),
		clusterer:  clustering.NewTitleClusterer(backend, log),
		summarizer: NewSummarizer(ai, opts.Workers, opts.Metrics, log),
		metrics:    opts.Metrics,
		opts:       opts,
		log:        log,
	}
}

// RunBatch processes everything a batch accumulated.
func (p *Pipeline) RunBatch(ctx context.Context, b *news.Batch) (Report, error) {
	return p.Run(ctx, b.Articles())
}

// Run processes one batch. Text Intelligence failures fall back per stage
// and never fail the run; a storage failure or cancellation does. Nothing
// is written once ctx is done.
func (p *Pipeline) Run(ctx context.Context, articles []news.Article) (Report, error) {
	start := p.opts.Now()
	rep := Report{Input: len(articles)}

	working := make([]news.Article, len(articles))
	copy(working, articles)

	working, rep.Stale = FilterStale(working, start, p.opts.MaxAge)
	p.metrics.AddStaleFiltered(rep.Stale)

	before := len(working)
	working = news.Dedupe(working)
	rep.Duplicates = before - len(working)
	p.metrics.AddDuplicatesFiltered(rep.Duplicates)

	for i := range working {
		if !news.LabelWeek(&working[i]) {
			rep.Unlabeled++
		}
	}

	p.log.Info("🔄 Processing batch",
		"input", rep.Input, "stale", rep.Stale, "duplicates", rep.Duplicates, "kept", len(working))

	if len(working) == 0 {
		rep.Duration = p.opts.Now().Sub(start)
		return rep, nil
	}

	rep.CategoryFallbacks = p.categories.Assign(ctx, working)

	clusters := p.clusterer.Cluster(ctx, working)
	if clusters.Fallback {
		rep.ClusterFallback = true
		p.metrics.IncrementClusterFallbacks()
	}

	records := clustering.Materialize(working, clusters.Tags)
	rep.Records = len(records)
	for _, r := range records {
		if _, ok := r.(*news.Group); ok {
			rep.Groups++
		}
	}

	rep.SummaryFailures = p.summarizer.Summarize(ctx, records)

	if err := ctx.Err(); err != nil {
		return rep, fmt.Errorf("batch cancelled before storing: %w", err)
	}

	res, err := p.store.InsertBatch(ctx, records)
	rep.Inserted, rep.Skipped = res.Inserted, res.Skipped
	p.metrics.AddInserted(res.Inserted)
	p.metrics.AddSkipped(res.Skipped)
	if err != nil {
		return rep, fmt.Errorf("failed to store batch: %w", err)
	}

	if err := p.store.RebuildIndex(ctx); err != nil {
		p.log.Warn("search index rebuild failed", "error", err)
	}

	rep.Duration = p.opts.Now().Sub(start)
	p.metrics.RecordProcessingTime(rep.Duration)
	p.log.Info("✅ Batch stored",
		"records", rep.Records, "groups", rep.Groups,
		"inserted", rep.Inserted, "skipped", rep.Skipped,
		"category_fallbacks", rep.CategoryFallbacks, "summary_failures", rep.SummaryFailures)
	return rep, nil
}

// Package app wires configuration into the running system: store, Text
// Intelligence, sources, pipeline, feature aggregator and read API.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/deusflow/lankanews/internal/api"
	"github.com/deusflow/lankanews/internal/cache"
	"github.com/deusflow/lankanews/internal/clustering"
	"github.com/deusflow/lankanews/internal/config"
	"github.com/deusflow/lankanews/internal/feature"
	"github.com/deusflow/lankanews/internal/intelligence"
	"github.com/deusflow/lankanews/internal/logger"
	"github.com/deusflow/lankanews/internal/metrics"
	"github.com/deusflow/lankanews/internal/news"
	"github.com/deusflow/lankanews/internal/pipeline"
	"github.com/deusflow/lankanews/internal/ratelimit"
	"github.com/deusflow/lankanews/internal/retry"
	"github.com/deusflow/lankanews/internal/source"
	"github.com/deusflow/lankanews/internal/storage"
)

type App struct {
	cfg      *config.Config
	store    storage.Store
	ai       intelligence.Service
	budget   *ratelimit.Budget
	aiCache  *cache.Cache[string]
	pipeline *pipeline.Pipeline
	importer *pipeline.Pipeline
	features *feature.Aggregator
	archive  *storage.Archive
	metrics  *metrics.Metrics
	log      *slog.Logger
	closers  []func() error
	now      func() time.Time
}

// New builds every component from cfg. Close releases them.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	log = logger.OrDefault(log)

	store, err := NewStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:     cfg,
		store:   store,
		archive: storage.NewArchive(cfg.RawArchiveDir, log),
		metrics: metrics.Global,
		log:     log,
		now:     time.Now,
	}

	if err := a.buildIntelligence(ctx); err != nil {
		_ = store.Close(ctx)
		return nil, err
	}

	opts := pipeline.Options{
		MaxAge:  cfg.NewsMaxAge,
		Workers: cfg.AIWorkers,
		Metrics: a.metrics,
	}
	if cfg.ClusterBackend == config.ClusterTFIDF {
		opts.Clusterer = clustering.NewTFIDF(cfg.ClusterSimilarity)
	}
	a.pipeline = pipeline.New(a.ai, store, opts, log)

	// archived batches are re-processed whatever their age
	opts.MaxAge = 0
	a.importer = pipeline.New(a.ai, store, opts, log)

	a.features = feature.NewAggregator(a.ai, store, a.metrics, log)
	return a, nil
}

// NewStore opens the configured backend.
func NewStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.Store, error) {
	switch cfg.DatabaseDriver {
	case config.DriverMongo:
		return storage.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, log)
	case config.DriverPostgres:
		return storage.NewPostgresStore(ctx, cfg.DatabaseURL, log)
	case config.DriverMemory:
		log.Warn("⚠️ Using in-memory store, nothing survives this process")
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
	}
}

// buildIntelligence stacks the provider behind the budget/retry layer and
// the response cache.
func (a *App) buildIntelligence(ctx context.Context) error {
	var base intelligence.Service
	switch a.cfg.AIProvider {
	case config.ProviderGemini:
		gen, err := intelligence.NewGeminiGenerator(ctx, a.cfg.GeminiAPIKey, a.cfg.GeminiModel)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, gen.Close)
		base = intelligence.NewLLM(gen, a.log)
	case config.ProviderOpenAI:
		gen := intelligence.NewOpenAIGenerator(a.cfg.OpenAIAPIKey, a.cfg.OpenAIBaseURL, a.cfg.OpenAIModel)
		base = intelligence.NewLLM(gen, a.log)
	case config.ProviderLocal:
		a.log.Info("Using offline text intelligence")
		base = intelligence.NewLocal(clustering.NewTFIDF(a.cfg.ClusterSimilarity))
	default:
		return fmt.Errorf("unknown AI provider %q", a.cfg.AIProvider)
	}

	a.budget = ratelimit.NewBudget(a.cfg.MaxAIRequests, a.log)
	limited := intelligence.NewLimited(base, a.budget, retry.RetryConfig{
		MaxAttempts: a.cfg.RetryAttempts,
		Delay:       a.cfg.RetryDelay,
		Backoff:     true,
	}, a.cfg.RequestTimeout)

	a.aiCache = cache.New[string](10 * time.Minute)
	a.ai = intelligence.NewCached(limited, a.aiCache, a.cfg.AICacheTTL, a.budget)
	return nil
}

// Store exposes the opened store, for the read API.
func (a *App) Store() storage.Store { return a.store }

// Server builds the read API over the app's store.
func (a *App) Server() *api.Server {
	return api.New(a.store, a.cfg, a.metrics, a.log)
}

// Sources loads the site configuration and builds one source per site
// rule and feed.
func (a *App) Sources() ([]source.Source, error) {
	sites, err := config.LoadSites(a.cfg.SitesConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load sites config: %w", err)
	}

	opts := source.Options{
		Timeout:       a.cfg.RequestTimeout,
		Concurrency:   a.cfg.ScrapeConcurrency,
		MaxLinks:      a.cfg.ScrapeMaxLinks,
		UnwantedWords: sites.UnwantedWords,
	}

	var out []source.Source
	for _, rule := range sites.Sites {
		s, err := source.NewSiteScraper(rule, opts, a.log)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	for _, feedURL := range sites.Feeds {
		out = append(out, source.NewFeedSource(feedURL, opts, a.log))
	}
	return out, nil
}

// RunOnce scrapes every source, archives the raw batch, processes and
// stores it, then regenerates the current week's feature set.
func (a *App) RunOnce(ctx context.Context) (pipeline.Report, error) {
	start := a.now()
	a.budget.Reset()

	sources, err := a.Sources()
	if err != nil {
		a.metrics.SetError(err.Error())
		return pipeline.Report{}, err
	}

	batch := news.NewBatch(start)
	source.Collect(ctx, sources, batch, a.metrics, a.log)

	if _, err := a.archive.Save(batch.Articles(), start); err != nil {
		a.log.Warn("failed to archive raw batch", "error", err)
	}

	rep, err := a.pipeline.RunBatch(ctx, batch)
	if err != nil {
		a.metrics.SetError(err.Error())
		return rep, err
	}

	if rep.Inserted > 0 {
		week := news.WeekOf(a.now())
		if _, err := a.features.GenerateForWeek(ctx, week); err != nil {
			a.log.Warn("feature article generation failed", "week", week, "error", err)
		}
	}

	a.budget.LogStats()
	a.metrics.SetLastRun()
	a.log.Info("🏁 Run finished", "scraped", batch.Len(), "inserted", rep.Inserted, "skipped", rep.Skipped,
		"duration", a.now().Sub(start).Round(time.Millisecond))
	return rep, nil
}

// Import processes archived batch files. A path may be a file or a
// directory of batch files. Unreadable files are logged and skipped.
func (a *App) Import(ctx context.Context, paths []string) (pipeline.Report, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			a.log.Error("❌ Cannot read batch path", "path", p, "error", err)
			continue
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		listed, err := storage.ListBatchFiles(p)
		if err != nil {
			a.log.Error("❌ Cannot list batch directory", "path", p, "error", err)
			continue
		}
		files = append(files, listed...)
	}

	var total pipeline.Report
	var errs []error
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		articles, skipped, err := storage.LoadBatchFile(f, a.log)
		if err != nil {
			a.log.Error("❌ Skipping batch file", "file", f, "error", err)
			continue
		}
		if skipped > 0 {
			a.log.Warn("Batch file had invalid records", "file", f, "skipped", skipped)
		}

		rep, err := a.importer.Run(ctx, articles)
		total = addReports(total, rep)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f, err))
			continue
		}
		a.log.Info("📦 Batch file imported", "file", f, "inserted", rep.Inserted, "skipped", rep.Skipped)
	}
	return total, errors.Join(errs...)
}

// GenerateFeatures regenerates one week, or every stored week when all is set.
func (a *App) GenerateFeatures(ctx context.Context, week string, all bool) error {
	if all {
		_, err := a.features.GenerateAll(ctx)
		return err
	}
	if week == "" {
		week = news.WeekOf(a.now())
	}
	_, err := a.features.GenerateForWeek(ctx, week)
	return err
}

func (a *App) Close(ctx context.Context) error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	if a.aiCache != nil {
		a.aiCache.Close()
	}
	errs = append(errs, a.store.Close(ctx))
	return errors.Join(errs...)
}

func addReports(a, b pipeline.Report) pipeline.Report {
	a.Input += b.Input
	a.Stale += b.Stale
	a.Duplicates += b.Duplicates
	a.Unlabeled += b.Unlabeled
	a.CategoryFallbacks += b.CategoryFallbacks
	a.ClusterFallback = a.ClusterFallback || b.ClusterFallback
	a.Records += b.Records
	a.Groups += b.Groups
	a.SummaryFailures += b.SummaryFailures
	a.Inserted += b.Inserted
	a.Skipped += b.Skipped
	a.Duration += b.Duration
	return a
}

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

// Summarizer attaches short and long summaries to records.
type Summarizer struct {
	summarizer intelligence.Summarizer
	workers    int
	metrics    *metrics.Metrics
	log        *slog.Logger
}

func NewSummarizer(s intelligence.Summarizer, workers int, m *metrics.Metrics, log *slog.Logger) *Summarizer {
	if workers < 1 {
		workers = 1
	}
	if m == nil {
		m = metrics.Global
	}
	return &Summarizer{summarizer: s, workers: workers, metrics: m, log: logger.OrDefault(log)}
}

// Summarize fills both summaries of every record and returns how many
// summary calls failed. A record's summaries are set together once both
// calls have returned. Records not reached before ctx is done are left
// untouched and not counted.
func (s *Summarizer) Summarize(ctx context.Context, records []news.Record) int {
	failures := make([]int, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, r := range records {
		i, r := i, r
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			text := r.Body()
			short, okShort := s.one(gctx, r, text, intelligence.Short)
			long, okLong := s.one(gctx, r, text, intelligence.Long)
			if gctx.Err() != nil {
				// the run is aborted and this record will not be stored
				return nil
			}
			if !okShort {
				failures[i]++
			}
			if !okLong {
				failures[i]++
			}
			r.SetSummaries(short, long)
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, f := range failures {
		n += f
	}
	return n
}

func (s *Summarizer) one(ctx context.Context, r news.Record, text string, mode intelligence.Mode) (string, bool) {
	out, err := s.summarizer.Summarize(ctx, text, mode)
	if err != nil || out == "" {
		if ctx.Err() != nil {
			return news.SummaryUnavailable, false
		}
		s.log.Warn("summarization failed", "title", r.Headline(), "mode", mode, "error", err)
		s.metrics.IncrementSummaryFailures()
		return news.SummaryUnavailable, false
	}
	return out, true
}

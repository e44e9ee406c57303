package ratelimit

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/deusflow/lankanews/internal/logger"
)

// ErrLimitExceeded is returned by Use once a budget is spent.
var ErrLimitExceeded = errors.New("rate limit exceeded")

// Budget caps the number of calls made to each Text Intelligence provider
// during one run. Zero limits mean unlimited.
type Budget struct {
	mu        sync.Mutex
	perOp     map[string]int
	total     int
	maxTotal  int
	cacheHits int
	log       *slog.Logger
}

func NewBudget(maxTotal int, log *slog.Logger) *Budget {
	return &Budget{
		perOp:    make(map[string]int),
		maxTotal: maxTotal,
		log:      logger.OrDefault(log),
	}
}

// Use records one call for op, or returns ErrLimitExceeded when the budget
// is already spent.
func (b *Budget) Use(op string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.maxTotal > 0 && b.total >= b.maxTotal {
		return fmt.Errorf("%w: %s (%d/%d)", ErrLimitExceeded, op, b.total, b.maxTotal)
	}

	b.perOp[op]++
	b.total++

	b.log.Debug("AI usage", "op", op, "op_used", b.perOp[op], "total", b.total, "limit", b.maxTotal)
	return nil
}

// Remaining returns how many calls are left, or -1 when unlimited.
func (b *Budget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.maxTotal <= 0 {
		return -1
	}
	return max(b.maxTotal-b.total, 0)
}

// RecordCacheHit counts a call that was answered from cache.
func (b *Budget) RecordCacheHit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cacheHits++
}

// Reset zeroes every counter, starting a fresh run.
func (b *Budget) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.perOp = make(map[string]int)
	b.total = 0
	b.cacheHits = 0
}

func (b *Budget) GetStats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	perOp := make(map[string]int, len(b.perOp))
	for k, v := range b.perOp {
		perOp[k] = v
	}
	return map[string]interface{}{
		"total_used":  b.total,
		"total_limit": b.maxTotal,
		"per_op":      perOp,
		"cache_hits":  b.cacheHits,
	}
}

// LogStats writes the current counters at info level.
func (b *Budget) LogStats() {
	stats := b.GetStats()
	b.log.Info("AI budget",
		"used", stats["total_used"],
		"limit", stats["total_limit"],
		"cache_hits", stats["cache_hits"],
	)
}

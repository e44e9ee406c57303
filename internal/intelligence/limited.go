package intelligence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deusflow/lankanews/internal/news"
	"github.com/deusflow/lankanews/internal/ratelimit"
	"github.com/deusflow/lankanews/internal/retry"
)

// Limited spends one unit of the run budget per attempt, retries failed
// calls, and bounds each attempt with a timeout.
type Limited struct {
	inner   Service
	budget  *ratelimit.Budget
	retry   retry.RetryConfig
	timeout time.Duration
}

var _ Service = (*Limited)(nil)

func NewLimited(inner Service, budget *ratelimit.Budget, rc retry.RetryConfig, timeout time.Duration) *Limited {
	return &Limited{inner: inner, budget: budget, retry: rc, timeout: timeout}
}

func (l *Limited) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return retry.WithRetry(ctx, l.retry, func(ctx context.Context) error {
		if l.budget != nil {
			if err := l.budget.Use(op); err != nil {
				return retry.Permanent(fmt.Errorf("%w: %w", ErrBudgetExceeded, err))
			}
		}

		if l.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, l.timeout)
			defer cancel()
		}

		err := fn(ctx)
		if errors.Is(err, ErrMalformedResponse) {
			return retry.Permanent(err)
		}
		return err
	})
}

func (l *Limited) Classify(ctx context.Context, text string) (news.Category, error) {
	var out news.Category
	err := l.do(ctx, "classify", func(ctx context.Context) error {
		var err error
		out, err = l.inner.Classify(ctx, text)
		return err
	})
	return out, err
}

func (l *Limited) Cluster(ctx context.Context, titles []string) ([]TitleTag, error) {
	var out []TitleTag
	err := l.do(ctx, "cluster", func(ctx context.Context) error {
		var err error
		out, err = l.inner.Cluster(ctx, titles)
		return err
	})
	return out, err
}

func (l *Limited) Summarize(ctx context.Context, text string, mode Mode) (string, error) {
	var out string
	err := l.do(ctx, "summarize", func(ctx context.Context) error {
		var err error
		out, err = l.inner.Summarize(ctx, text, mode)
		return err
	})
	return out, err
}

func (l *Limited) FeatureArticle(ctx context.Context, category news.Category, texts []string) (string, error) {
	var out string
	err := l.do(ctx, "feature", func(ctx context.Context) error {
		var err error
		out, err = l.inner.FeatureArticle(ctx, category, texts)
		return err
	})
	return out, err
}

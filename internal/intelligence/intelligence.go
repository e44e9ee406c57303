// Package intelligence defines the Text Intelligence collaborator the news
// pipeline depends on and its implementations: an LLM-backed service
// (Gemini or any OpenAI-compatible endpoint), an offline service, caching
// and budget decorators, and a deterministic stub for tests.
package intelligence

import (
	"context"
	"errors"

	"github.com/deusflow/lankanews/internal/news"
)

// Unique is the cluster tag for a title that belongs to no group.
const Unique = "unique"

var (
	// ErrMalformedResponse is returned when a model answer cannot be read
	// into the expected shape.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrBudgetExceeded is returned once the per-run call budget is spent.
	ErrBudgetExceeded = errors.New("AI call budget exceeded")
)

// TitleTag assigns one title to a group id or to Unique.
type TitleTag struct {
	Title string `json:"title"`
	Group string `json:"group"`
}

// Mode selects the summary length.
type Mode string

const (
	Short Mode = "short"
	Long  Mode = "long"
)

type Classifier interface {
	// Classify returns exactly one enumerated category for text.
	Classify(ctx context.Context, text string) (news.Category, error)
}

type Clusterer interface {
	// Cluster tags every title with a group id or Unique.
	Cluster(ctx context.Context, titles []string) ([]TitleTag, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, text string, mode Mode) (string, error)
}

type FeatureWriter interface {
	// FeatureArticle writes one long-form narrative from a week's summaries
	// of a single category.
	FeatureArticle(ctx context.Context, category news.Category, texts []string) (string, error)
}

// Service is the full Text Intelligence capability set.
type Service interface {
	Classifier
	Clusterer
	Summarizer
	FeatureWriter
}

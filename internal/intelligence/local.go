package intelligence

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/deusflow/lankanews/internal/news"
)

// Local is an offline Service for development: every record is General,
// summaries are extractive and feature articles are the joined summaries.
// Clustering is delegated to the injected Clusterer; without one every
// title is unique.
type Local struct {
	clusterer Clusterer
}

var _ Service = (*Local)(nil)

func NewLocal(clusterer Clusterer) *Local {
	return &Local{clusterer: clusterer}
}

func (l *Local) Classify(context.Context, string) (news.Category, error) {
	return news.General, nil
}

func (l *Local) Cluster(ctx context.Context, titles []string) ([]TitleTag, error) {
	if l.clusterer != nil {
		return l.clusterer.Cluster(ctx, titles)
	}
	tags := make([]TitleTag, len(titles))
	for i, t := range titles {
		tags[i] = TitleTag{Title: t, Group: Unique}
	}
	return tags, nil
}

func (l *Local) Summarize(_ context.Context, text string, mode Mode) (string, error) {
	n := 2
	if mode == Long {
		n = 5
	}
	return ExtractiveSummary(text, n), nil
}

func (l *Local) FeatureArticle(_ context.Context, _ news.Category, texts []string) (string, error) {
	return strings.Join(texts, "\n\n"), nil
}

// ExtractiveSummary picks the first n meaningful sentences of text. Text
// without such sentences is cut to 160 runes.
func ExtractiveSummary(text string, n int) string {
	c := strings.TrimSpace(text)
	if c == "" {
		return ""
	}

	sentences := strings.FieldsFunc(c, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n' || r == '।'
	})
	var picked []string
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if utf8.RuneCountInString(s) < 12 {
			continue
		}
		picked = append(picked, s)
		if len(picked) >= n {
			break
		}
	}

	if len(picked) == 0 {
		if utf8.RuneCountInString(c) > 160 {
			return string([]rune(c)[:160]) + "..."
		}
		return c
	}
	return strings.Join(picked, ". ") + "."
}

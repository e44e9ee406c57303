// Package storage persists processed news records into per-category
// partitions and answers the read queries of the API.
package storage

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/deusflow/lankanews/internal/news"
)

// ErrNotFound is returned when a requested record or feature set does not exist.
var ErrNotFound = errors.New("not found")

// InsertResult counts the outcome of one InsertBatch call. A skipped record
// is either a duplicate of an already stored title or an empty group.
type InsertResult struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// WeekDigest is everything stored for one week: long summaries per
// category and the cover images of every record and group member.
type WeekDigest struct {
	Week      string              `json:"week"`
	Summaries map[string][]string `json:"summaries"`
	ImageURLs []string            `json:"image_urls"`
}

// Empty reports whether the week has no stored records.
func (d *WeekDigest) Empty() bool {
	return d == nil || (len(d.Summaries) == 0 && len(d.ImageURLs) == 0)
}

// FeatureSet is the generated feature articles of one week, keyed by category.
type FeatureSet struct {
	Week            string            `json:"week" bson:"week"`
	FeatureArticles map[string]string `json:"feature_articles" bson:"feature_articles"`
	ImageURLs       []string          `json:"image_urls" bson:"image_urls"`
	GeneratedAt     time.Time         `json:"generated_at" bson:"generated_at"`
}

// Store is the document store behind the pipeline and the read API.
// Partitions are the category enum plus news.Uncategorized.
type Store interface {
	// InsertBatch stores records at most once per normalized title and
	// partition. Empty groups are skipped.
	InsertBatch(ctx context.Context, records []news.Record) (InsertResult, error)
	// RebuildIndex (re)creates the full-text index over long summaries.
	RebuildIndex(ctx context.Context) error

	GetByCategory(ctx context.Context, category string) ([]news.Record, error)
	// GetByID looks in one partition, or in all of them when category is empty.
	GetByID(ctx context.Context, category, id string) (news.Record, error)
	// TextSearch matches long summaries across partitions; results are
	// deduplicated by normalized title.
	TextSearch(ctx context.Context, query string) ([]news.Record, error)
	// GetRecent returns up to limit records per partition, newest first,
	// concatenated in partition order.
	GetRecent(ctx context.Context, limitPerPartition int) ([]news.Record, error)
	GetWeek(ctx context.Context, week string) (*WeekDigest, error)
	// Weeks lists every week key present in storage, ascending.
	Weeks(ctx context.Context) ([]string, error)

	// ReplaceFeatureSet deletes any stored set for the week and inserts set.
	ReplaceFeatureSet(ctx context.Context, set FeatureSet) error
	GetFeatureSet(ctx context.Context, week string) (*FeatureSet, error)

	Close(ctx context.Context) error
}

func partitionOf(r news.Record) string {
	return r.RecordCategory().Partition()
}

// insertable reports whether r may be written at all.
func insertable(r news.Record) bool {
	switch rec := r.(type) {
	case *news.Group:
		return rec != nil && len(rec.Articles) > 0
	case *news.Article:
		return rec != nil
	default:
		return false
	}
}

func dedupeByTitle(records []news.Record) []news.Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]news.Record, 0, len(records))
	for _, r := range records {
		key := news.TitleKey(r)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

func newWeekDigest(week string) *WeekDigest {
	return &WeekDigest{Week: week, Summaries: make(map[string][]string), ImageURLs: []string{}}
}

// add folds one record into the digest. Failed summaries are left out.
func (d *WeekDigest) add(r news.Record) {
	if _, long := r.Summaries(); news.HasSummary(long) {
		p := partitionOf(r)
		d.Summaries[p] = append(d.Summaries[p], long)
	}
	d.ImageURLs = append(d.ImageURLs, r.CoverImages()...)
}

// sortNewestFirst orders documents by publication date, undated last.
func sortNewestFirst(docs []document) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := docs[i].DatePublished, docs[j].DatePublished
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}

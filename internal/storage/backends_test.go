package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/deusflow/lankanews/internal/news"
)

// exerciseStore runs the behavior every backend shares. Titles carry a
// random suffix so repeated runs against a live database do not collide.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	suffix := uuid.NewString()

	a := article(uuid.NewString(), "store test "+suffix, "2025-03-04T08:00:00Z", news.Technology)
	a.Week = "2025_03_WEEK1"
	a.LongSummary = "zxqtoken" + suffix[:8]

	res, err := s.InsertBatch(ctx, []news.Record{a})
	if err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	if res.Inserted != 1 {
		t.Fatalf("first insert = %+v", res)
	}
	res, err = s.InsertBatch(ctx, []news.Record{a})
	if err != nil {
		t.Fatalf("InsertBatch again: %v", err)
	}
	if res.Inserted != 0 || res.Skipped != 1 {
		t.Errorf("second insert = %+v, want skip", res)
	}

	if err := s.RebuildIndex(ctx); err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}

	got, err := s.GetByID(ctx, "", a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Headline() != a.Title {
		t.Errorf("headline = %q", got.Headline())
	}
	if _, err := s.GetByID(ctx, "", uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing id: err = %v", err)
	}

	found, err := s.TextSearch(ctx, a.LongSummary)
	if err != nil {
		t.Fatalf("TextSearch: %v", err)
	}
	if len(found) != 1 {
		t.Errorf("TextSearch returned %d records, want 1", len(found))
	}

	week := "2099_01_WEEK1"
	if err := s.ReplaceFeatureSet(ctx, FeatureSet{Week: week, FeatureArticles: map[string]string{"Sports": "v1"}}); err != nil {
		t.Fatalf("ReplaceFeatureSet: %v", err)
	}
	if err := s.ReplaceFeatureSet(ctx, FeatureSet{Week: week, FeatureArticles: map[string]string{"Health": "v2"}}); err != nil {
		t.Fatalf("ReplaceFeatureSet: %v", err)
	}
	set, err := s.GetFeatureSet(ctx, week)
	if err != nil {
		t.Fatalf("GetFeatureSet: %v", err)
	}
	if _, stale := set.FeatureArticles["Sports"]; stale || set.FeatureArticles["Health"] != "v2" {
		t.Errorf("feature articles = %v", set.FeatureArticles)
	}
}

func TestMemoryStore_Conformance(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := NewPostgresStore(ctx, dsn, nil)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	defer s.Close(ctx)
	exerciseStore(t, s)
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set, skipping integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := NewMongoStore(ctx, uri, "lankanews_test", nil)
	if err != nil {
		t.Fatalf("NewMongoStore: %v", err)
	}
	defer s.Close(ctx)
	exerciseStore(t, s)
}

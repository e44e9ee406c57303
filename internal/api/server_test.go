package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/deusflow/lankanews/internal/config"
	"github.com/deusflow/lankanews/internal/metrics"
	"github.com/deusflow/lankanews/internal/news"
	"github.com/deusflow/lankanews/internal/storage"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func testConfig() *config.Config {
	return &config.Config{
		HTTPHost:       "127.0.0.1",
		HTTPPort:       0,
		CORSOrigins:    []string{"http://localhost:5173"},
		RecentLimit:    3,
		RequestTimeout: 5 * time.Second,
	}
}

func seededStore(t *testing.T) *storage.MemoryStore {
	t.Helper()
	s := storage.NewMemoryStore()
	_, err := s.InsertBatch(context.Background(), []news.Record{
		&news.Article{ID: "a1", Title: "Rain floods Colombo", Content: "c", URL: "u1", Source: "s",
			Category: news.General, Week: "2025_03_WEEK1", LongSummary: "heavy rain", DatePublished: "2025-03-04T08:00:00Z"},
		&news.Article{ID: "a2", Title: "Cricket final", Content: "c", URL: "u2", Source: "s",
			Category: news.Sports, Week: "2025_03_WEEK1", LongSummary: "cricket final won", CoverImage: "https://img/2.jpg"},
	})
	if err != nil {
		t.Fatal(err)
	}
	_ = s.ReplaceFeatureSet(context.Background(), storage.FeatureSet{
		Week:            "2025_03_WEEK1",
		FeatureArticles: map[string]string{"Sports": "weekly sports"},
		ImageURLs:       []string{"https://img/2.jpg"},
	})
	return s
}

func newTestServer(store storage.Store) *Server {
	s := New(store, testConfig(), metrics.New(), nil)
	s.now = func() time.Time { return time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC) }
	return s
}

func get(t *testing.T, s *Server, target string) (int, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s: invalid JSON %q: %v", target, rec.Body.String(), err)
	}
	return rec.Code, env
}

func TestNews(t *testing.T) {
	s := newTestServer(seededStore(t))

	tests := []struct {
		name    string
		target  string
		status  int
		success bool
	}{
		{"missing params", "/news", http.StatusBadRequest, false},
		{"by category", "/news?category=Sports", http.StatusOK, true},
		{"empty category", "/news?category=Health", http.StatusNotFound, false},
		{"unknown category", "/news?category=Weather", http.StatusBadRequest, false},
		{"by id any partition", "/news?id=a1", http.StatusOK, true},
		{"by id in partition", "/news?category=General&id=a1", http.StatusOK, true},
		{"id in wrong partition", "/news?category=Sports&id=a1", http.StatusNotFound, false},
		{"missing id", "/news?id=nope", http.StatusNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := get(t, s, tt.target)
			if code != tt.status || env.Success != tt.success {
				t.Errorf("got %d success=%v (%s), want %d success=%v", code, env.Success, env.Message, tt.status, tt.success)
			}
			if !tt.success && env.Message == "" {
				t.Error("failure without message")
			}
		})
	}
}

func TestNews_RecordPayload(t *testing.T) {
	s := newTestServer(seededStore(t))
	_, env := get(t, s, "/news?id=a2")

	var a news.Article
	if err := json.Unmarshal(env.Data, &a); err != nil {
		t.Fatal(err)
	}
	if a.Title != "Cricket final" || a.Category != news.Sports || a.Week != "2025_03_WEEK1" {
		t.Errorf("payload = %+v", a)
	}
}

func TestSearch(t *testing.T) {
	s := newTestServer(seededStore(t))

	code, env := get(t, s, "/search")
	if code != http.StatusBadRequest {
		t.Errorf("empty query: %d", code)
	}

	code, env = get(t, s, "/search?query=cricket")
	if code != http.StatusOK || !env.Success {
		t.Fatalf("search: %d %+v", code, env)
	}
	var results []json.RawMessage
	_ = json.Unmarshal(env.Data, &results)
	if len(results) != 1 {
		t.Errorf("got %d results", len(results))
	}

	code, env = get(t, s, "/search?query=elephant")
	if code != http.StatusOK || !env.Success || string(env.Data) != "[]" {
		t.Errorf("no match: %d %+v data=%s", code, env, env.Data)
	}
}

func TestLatestNews(t *testing.T) {
	s := newTestServer(seededStore(t))

	code, env := get(t, s, "/latest-news?limit=1")
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	var results []json.RawMessage
	_ = json.Unmarshal(env.Data, &results)
	if len(results) != 2 {
		t.Errorf("got %d records, want one per non-empty partition", len(results))
	}

	if code, _ := get(t, s, "/latest-news?limit=zero"); code != http.StatusBadRequest {
		t.Errorf("bad limit: %d", code)
	}

	empty := newTestServer(storage.NewMemoryStore())
	_, env = get(t, empty, "/latest-news")
	if string(env.Data) != "[]" {
		t.Errorf("empty store data = %s", env.Data)
	}
}

func TestFeatureArticle(t *testing.T) {
	s := newTestServer(seededStore(t))

	code, env := get(t, s, "/feature-article")
	if code != http.StatusOK {
		t.Fatalf("current week: %d %s", code, env.Message)
	}
	var set storage.FeatureSet
	_ = json.Unmarshal(env.Data, &set)
	if set.FeatureArticles["Sports"] != "weekly sports" {
		t.Errorf("set = %+v", set)
	}

	code, env = get(t, s, "/feature_article?week=2025_03_WEEK1&category=Sports")
	if code != http.StatusOK || !strings.Contains(string(env.Data), "weekly sports") {
		t.Errorf("by category: %d %s", code, env.Data)
	}

	if code, _ := get(t, s, "/feature-article?week=2025_03_WEEK1&category=Health"); code != http.StatusNotFound {
		t.Errorf("missing category: %d", code)
	}
	if code, _ := get(t, s, "/feature-article?week=2024_01_WEEK1"); code != http.StatusNotFound {
		t.Errorf("missing week: %d", code)
	}
	if code, _ := get(t, s, "/feature-article?week=bogus"); code != http.StatusBadRequest {
		t.Errorf("bad week: %d", code)
	}
}

func TestWeek(t *testing.T) {
	s := newTestServer(seededStore(t))

	code, env := get(t, s, "/week?week=2025_03_WEEK1")
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	var digest storage.WeekDigest
	_ = json.Unmarshal(env.Data, &digest)
	if len(digest.Summaries["General"]) != 1 || len(digest.Summaries["Sports"]) != 1 {
		t.Errorf("summaries = %v", digest.Summaries)
	}
	if len(digest.ImageURLs) != 1 {
		t.Errorf("images = %v", digest.ImageURLs)
	}

	if code, _ := get(t, s, "/week?week=2025_13_WEEK1"); code != http.StatusBadRequest {
		t.Errorf("bad week: %d", code)
	}
}

type brokenStore struct {
	storage.Store
}

var errBackend = errors.New("connection refused to 10.0.0.7:27017")

func (brokenStore) GetRecent(context.Context, int) ([]news.Record, error) { return nil, errBackend }
func (brokenStore) TextSearch(context.Context, string) ([]news.Record, error) {
	return nil, errBackend
}

func TestInternalErrorsAreGeneric(t *testing.T) {
	s := newTestServer(brokenStore{})

	for _, target := range []string{"/latest-news", "/search?query=x"} {
		code, env := get(t, s, target)
		if code != http.StatusInternalServerError {
			t.Errorf("%s: status %d", target, code)
		}
		if env.Message != internalErrorMessage || strings.Contains(env.Message, "10.0.0.7") {
			t.Errorf("%s: message %q", target, env.Message)
		}
	}
}

func TestHealthAndMetrics(t *testing.T) {
	m := metrics.New()
	s := New(storage.NewMemoryStore(), testConfig(), m, nil)

	code, env := get(t, s, "/health")
	if code != http.StatusOK || !env.Success {
		t.Errorf("health before any run: %d", code)
	}

	m.SetError("scrape failed")
	if code, _ := get(t, s, "/health"); code != http.StatusServiceUnavailable {
		t.Errorf("health after error: %d", code)
	}

	m.AddInserted(4)
	_, env = get(t, s, "/metrics")
	var stats map[string]interface{}
	_ = json.Unmarshal(env.Data, &stats)
	if stats["records_inserted"].(float64) != 4 {
		t.Errorf("metrics = %v", stats)
	}
}

func TestCORS(t *testing.T) {
	s := newTestServer(storage.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/latest-news", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

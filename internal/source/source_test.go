package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/deusflow/lankanews/internal/config"
	"github.com/deusflow/lankanews/internal/metrics"
	"github.com/deusflow/lankanews/internal/news"
)

var longParagraph = strings.Repeat("The district secretariat announced relief measures for families affected by the floods. ", 10)

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	pages := map[string]string{
		"/": `<html><body>
			<a href="/section">Local</a>
			<a href="/news/1">Story one</a>
			<a href="https://www.facebook.com/share">Share</a>
			<a href="/webgossip/9">Gossip</a>
			<a href="mailto:desk@example.lk">Mail</a>
		</body></html>`,
		"/section": `<html><body>
			<a href="/news/2#comments">Story two</a>
			<a href="/news/3">Not an article</a>
			<a href="/photo.jpg">Photo</a>
			<a href="/news/1">Story one again</a>
		</body></html>`,
		"/news/1": `<html><body><article>
			<h1 class="headline">  Fuel prices reduced </h1>
			<time datetime="2025-03-04T13:30:00+05:30">4 March</time>
			<div class="body"><p>Prices fall.</p><p>Effective today.</p></div>
			<img class="cover" src="/img/1.jpg">
		</article></body></html>`,
		"/news/2": `<html><head><title>Floods</title></head><body><article>
			<h1 class="headline">Floods in the south</h1>
			<section><p>` + longParagraph + `</p><p>` + longParagraph + `</p></section>
		</article></body></html>`,
		"/news/3": `<html><body><p>No headline here.</p></body></html>`,
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
}

func testRule(startURL string) config.SiteRule {
	return config.SiteRule{
		Name:            "example",
		StartURL:        startURL + "/",
		TitleSelector:   "h1.headline",
		ContentSelector: "div.body p",
		DateSelector:    "time",
		DateAttr:        "datetime",
		DateLayout:      time.RFC3339,
		CoverSelector:   "img.cover",
		CoverAttr:       "src",
	}
}

func TestSiteScraper_Fetch(t *testing.T) {
	srv := newSite(t)
	defer srv.Close()

	s, err := NewSiteScraper(testRule(srv.URL), Options{UnwantedWords: []string{"webgossip"}, Concurrency: 2}, nil)
	if err != nil {
		t.Fatal(err)
	}

	articles, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	byURL := make(map[string]news.Article)
	for _, a := range articles {
		byURL[strings.TrimPrefix(a.URL, srv.URL)] = a
	}
	if len(byURL) != 2 {
		t.Fatalf("scraped %v, want /news/1 and /news/2", keys(byURL))
	}

	one, ok := byURL["/news/1"]
	if !ok {
		t.Fatal("missing /news/1")
	}
	if one.Title != "Fuel prices reduced" {
		t.Errorf("title = %q", one.Title)
	}
	if one.Content != "Prices fall. Effective today." {
		t.Errorf("content = %q", one.Content)
	}
	if one.DatePublished != "2025-03-04T08:00:00Z" {
		t.Errorf("date = %q", one.DatePublished)
	}
	if one.CoverImage != srv.URL+"/img/1.jpg" {
		t.Errorf("cover = %q", one.CoverImage)
	}
	if one.Source != "example" || one.ID == "" {
		t.Errorf("source/id = %q/%q", one.Source, one.ID)
	}

	two, ok := byURL["/news/2"]
	if !ok {
		t.Fatal("missing /news/2 (fragment should be dropped)")
	}
	if !strings.Contains(two.Content, "relief measures") {
		t.Errorf("readable fallback content = %q", two.Content)
	}
	if two.DatePublished != "" {
		t.Errorf("undated article got %q", two.DatePublished)
	}
}

func TestSiteScraper_StartPageFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	s, _ := NewSiteScraper(testRule(srv.URL), Options{}, nil)
	if _, err := s.Fetch(context.Background()); err == nil {
		t.Error("expected error for failing start page")
	}
}

func TestNewSiteScraper_Validation(t *testing.T) {
	rule := testRule("http://example.lk")
	rule.TimeZone = "Nowhere/Land"
	if _, err := NewSiteScraper(rule, Options{}, nil); err == nil {
		t.Error("expected error for unknown time zone")
	}

	rule = testRule("http://example.lk")
	rule.DatePrefix = "("
	if _, err := NewSiteScraper(rule, Options{}, nil); err == nil {
		t.Error("expected error for bad prefix pattern")
	}
}

func TestParseDate(t *testing.T) {
	colombo, err := time.LoadLocation("Asia/Colombo")
	if err != nil {
		t.Skip("tzdata unavailable")
	}

	tests := []struct {
		name   string
		raw    string
		layout string
		prefix *regexp.Regexp
		loc    *time.Location
		want   string
	}{
		{"adaderana", "March 4, 2025   10:30 am", "January 2, 2006 03:04 PM", nil, time.UTC, "2025-03-04T10:30:00Z"},
		{"offset", "2025-03-04T13:30:00+05:30", time.RFC3339, nil, time.UTC, "2025-03-04T08:00:00Z"},
		{"weekday prefix", "Tuesday, 04 March 2025 - 13:30", "02 January 2006 - 15:04", regexp.MustCompile(`^[A-Za-z]+, `), colombo, "2025-03-04T08:00:00Z"},
		{"no layout", "2025-03-04 08:00:00", "", nil, time.UTC, "2025-03-04T08:00:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.raw, tt.layout, tt.prefix, tt.loc)
			if err != nil {
				t.Fatal(err)
			}
			if s := news.FormatTimestamp(got); s != tt.want {
				t.Errorf("got %s, want %s", s, tt.want)
			}
		})
	}

	if _, err := ParseDate("   ", time.RFC3339, nil, time.UTC); err == nil {
		t.Error("expected error for empty date")
	}
}

func TestLinkFilter(t *testing.T) {
	f := NewLinkFilter([]string{"/tamil/", " "})
	tests := map[string]bool{
		"https://news.lk/a":             true,
		"http://news.lk/a":              true,
		"ftp://news.lk/a":               false,
		"/relative":                     false,
		"https://news.lk/pic.jpg":       false,
		"https://m.facebook.com/x":      false,
		"https://youtu.be/abc":          false,
		"https://news.lk/tamil/story":   false,
		"https://news.lk/sinhala/story": true,
	}
	for link, want := range tests {
		if got := f.Allow(link); got != want {
			t.Errorf("Allow(%q) = %v, want %v", link, got, want)
		}
	}
}

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Feed</title>
<item>
  <title>Budget passed</title>
  <link>https://news.lk/budget</link>
  <description><![CDATA[<p>The budget was <b>passed</b>.</p>]]></description>
  <pubDate>Tue, 04 Mar 2025 08:00:00 GMT</pubDate>
  <enclosure url="https://news.lk/budget.jpg" type="image/jpeg" length="1"/>
</item>
<item>
  <title>No body</title>
  <link>https://news.lk/empty</link>
</item>
<item>
  <title>Video</title>
  <link>https://www.youtube.com/watch?v=1</link>
  <description>clip</description>
</item>
</channel></rss>`

func TestFeedSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssBody)
	}))
	defer srv.Close()

	f := NewFeedSource(srv.URL, Options{}, nil)
	articles, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(articles) != 1 {
		t.Fatalf("got %d articles, want 1", len(articles))
	}
	a := articles[0]
	if a.Content != "The budget was passed." {
		t.Errorf("content = %q", a.Content)
	}
	if a.DatePublished != "2025-03-04T08:00:00Z" {
		t.Errorf("date = %q", a.DatePublished)
	}
	if a.CoverImage != "https://news.lk/budget.jpg" {
		t.Errorf("cover = %q", a.CoverImage)
	}
	if a.Source != srv.URL {
		t.Errorf("source = %q", a.Source)
	}
}

type fakeSource struct {
	name     string
	articles []news.Article
	err      error
}

func (f fakeSource) Name() string { return f.name }
func (f fakeSource) Fetch(context.Context) ([]news.Article, error) {
	return f.articles, f.err
}

func TestCollect(t *testing.T) {
	a := news.Article{Title: "t", Content: "c", URL: "https://x/1", Source: "s"}
	b := news.Article{Title: "u", Content: "c", URL: "https://x/2", Source: "s"}

	batch := news.NewBatch(time.Now())
	m := metrics.New()
	n := Collect(context.Background(), []Source{
		fakeSource{name: "one", articles: []news.Article{a, b}},
		fakeSource{name: "broken", err: errors.New("down")},
		fakeSource{name: "mirror", articles: []news.Article{a}},
	}, batch, m, nil)

	if n != 2 || batch.Len() != 2 {
		t.Errorf("collected %d, batch holds %d; want 2", n, batch.Len())
	}
	if m.GetStats()["articles_scraped"].(int64) != 2 {
		t.Error("scraped metric not counted")
	}
}

func keys(m map[string]news.Article) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

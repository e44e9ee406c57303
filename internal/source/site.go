package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/deusflow/lankanews/internal/config"
	"github.com/deusflow/lankanews/internal/logger"
	"github.com/deusflow/lankanews/internal/news"
)

const maxPageBytes = 5 << 20

// SiteScraper crawls one news site two levels deep from its start URL and
// extracts articles with the site's CSS rules. When the content selector
// matches nothing on a page that has a title, the readable text of the page
// is used instead.
type SiteScraper struct {
	rule   config.SiteRule
	start  *url.URL
	loc    *time.Location
	prefix *regexp.Regexp
	filter *LinkFilter
	opts   Options
	log    *slog.Logger
}

var _ Source = (*SiteScraper)(nil)

func NewSiteScraper(rule config.SiteRule, opts Options, log *slog.Logger) (*SiteScraper, error) {
	start, err := url.Parse(rule.StartURL)
	if err != nil || start.Host == "" {
		return nil, fmt.Errorf("invalid start_url %q", rule.StartURL)
	}

	loc := time.UTC
	if rule.TimeZone != "" {
		if loc, err = time.LoadLocation(rule.TimeZone); err != nil {
			return nil, fmt.Errorf("site %s: %w", rule.Source(), err)
		}
	}

	var prefix *regexp.Regexp
	if rule.DatePrefix != "" {
		if prefix, err = regexp.Compile(rule.DatePrefix); err != nil {
			return nil, fmt.Errorf("site %s: date_strip_prefix: %w", rule.Source(), err)
		}
	}

	return &SiteScraper{
		rule:   rule,
		start:  start,
		loc:    loc,
		prefix: prefix,
		filter: NewLinkFilter(opts.UnwantedWords),
		opts:   opts.withDefaults(),
		log:    logger.OrDefault(log),
	}, nil
}

func (s *SiteScraper) Name() string { return s.rule.Source() }

func (s *SiteScraper) Fetch(ctx context.Context) ([]news.Article, error) {
	s.log.Info("🔍 Scraping site", "site", s.Name())

	home, err := s.get(ctx, s.start.String())
	if err != nil {
		return nil, fmt.Errorf("failed to load start page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(home))
	if err != nil {
		return nil, fmt.Errorf("failed to parse start page: %w", err)
	}

	sections := s.links(doc, s.start)
	s.log.Debug("section links found", "site", s.Name(), "count", len(sections))

	candidates := newLinkSet(s.opts.MaxLinks)
	for _, l := range sections {
		candidates.add(l)
	}
	s.each(ctx, sections, func(link string) {
		page, err := s.get(ctx, link)
		if err != nil {
			s.log.Debug("section page failed", "url", link, "error", err)
			return
		}
		base, _ := url.Parse(link)
		pdoc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
		if err != nil {
			return
		}
		for _, l := range s.links(pdoc, base) {
			candidates.add(l)
		}
	})

	var (
		mu       sync.Mutex
		articles []news.Article
	)
	s.each(ctx, candidates.list(), func(link string) {
		a, ok := s.scrapeArticle(ctx, link)
		if !ok {
			return
		}
		mu.Lock()
		articles = append(articles, a)
		mu.Unlock()
	})

	if err := ctx.Err(); err != nil {
		return articles, err
	}
	s.log.Info("✅ Site scraped", "site", s.Name(), "pages", candidates.len(), "articles", len(articles))
	return articles, nil
}

// each runs fn over links with bounded concurrency.
func (s *SiteScraper) each(ctx context.Context, links []string, fn func(link string)) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for _, l := range links {
		if gctx.Err() != nil {
			break
		}
		l := l
		g.Go(func() error {
			fn(l)
			return nil
		})
	}
	_ = g.Wait()
}

// links returns the followable same-site links of a page, first seen first,
// at most MaxLinks of them.
func (s *SiteScraper) links(doc *goquery.Document, base *url.URL) []string {
	set := newLinkSet(s.opts.MaxLinks)
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		link := resolve(base, href)
		if link == "" || !s.filter.Allow(link) || !s.sameSite(link) {
			return true
		}
		return set.add(link) || !set.full()
	})
	return set.list()
}

func (s *SiteScraper) sameSite(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return strings.TrimPrefix(u.Host, "www.") == strings.TrimPrefix(s.start.Host, "www.")
}

func (s *SiteScraper) scrapeArticle(ctx context.Context, link string) (news.Article, bool) {
	page, err := s.get(ctx, link)
	if err != nil {
		s.log.Debug("article page failed", "url", link, "error", err)
		return news.Article{}, false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return news.Article{}, false
	}

	title := strings.TrimSpace(doc.Find(s.rule.TitleSelector).First().Text())
	if title == "" {
		return news.Article{}, false
	}

	content := s.content(doc)
	if content == "" {
		content = s.readable(page, link)
	}
	if content == "" {
		s.log.Debug("no content extracted", "url", link)
		return news.Article{}, false
	}

	base, _ := url.Parse(link)
	a := news.Article{
		ID:            uuid.NewString(),
		Title:         title,
		Content:       content,
		URL:           link,
		CoverImage:    s.cover(doc, base),
		DatePublished: s.date(doc, link),
		Source:        s.Name(),
	}
	return a, a.Validate() == nil
}

func (s *SiteScraper) content(doc *goquery.Document) string {
	var parts []string
	doc.Find(s.rule.ContentSelector).Each(func(_ int, sel *goquery.Selection) {
		if t := strings.TrimSpace(sel.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.TrimSpace(strings.Join(parts, " "))
}

func (s *SiteScraper) readable(page []byte, link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(bytes.NewReader(page), u)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(article.TextContent)
}

func (s *SiteScraper) cover(doc *goquery.Document, base *url.URL) string {
	if s.rule.CoverSelector == "" {
		return ""
	}
	src, ok := doc.Find(s.rule.CoverSelector).First().Attr(s.rule.CoverAttr)
	if !ok {
		return ""
	}
	return resolve(base, src)
}

// date reads the publication date and formats it as a UTC timestamp. An
// absent or unparsable date yields "".
func (s *SiteScraper) date(doc *goquery.Document, link string) string {
	if s.rule.DateSelector == "" {
		return ""
	}
	sel := doc.Find(s.rule.DateSelector).First()
	raw := sel.Text()
	if s.rule.DateAttr != "" {
		raw, _ = sel.Attr(s.rule.DateAttr)
	}

	t, err := ParseDate(raw, s.rule.DateLayout, s.prefix, s.loc)
	if err != nil {
		if strings.TrimSpace(raw) != "" {
			s.log.Debug("unparsable date", "url", link, "raw", raw, "error", err)
		}
		return ""
	}
	return news.FormatTimestamp(t)
}

// ParseDate cleans a scraped date and parses it with layout in loc. Without
// a layout the canonical timestamp formats are tried.
func ParseDate(raw, layout string, prefix *regexp.Regexp, loc *time.Location) (time.Time, error) {
	cleaned := strings.Join(strings.Fields(raw), " ")
	if prefix != nil {
		cleaned = strings.TrimSpace(prefix.ReplaceAllString(cleaned, ""))
	}
	if cleaned == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if layout == "" {
		return news.ParseTimestamp(cleaned)
	}
	if strings.Contains(layout, "PM") {
		cleaned = strings.ToUpper(cleaned)
	}
	t, err := time.ParseInLocation(layout, cleaned, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func (s *SiteScraper) get(ctx context.Context, link string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.opts.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
}

// linkSet keeps unique links in discovery order up to a cap.
type linkSet struct {
	mu    sync.Mutex
	limit int
	seen  map[string]struct{}
	links []string
}

func newLinkSet(limit int) *linkSet {
	return &linkSet{limit: limit, seen: make(map[string]struct{})}
}

// add reports whether link was new and accepted.
func (l *linkSet) add(link string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[link]; ok || len(l.links) >= l.limit {
		return false
	}
	l.seen[link] = struct{}{}
	l.links = append(l.links, link)
	return true
}

func (l *linkSet) full() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.links) >= l.limit
}

func (l *linkSet) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.links)
}

func (l *linkSet) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.links...)
}

package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"github.com/deusflow/lankanews/internal/logger"
	"github.com/deusflow/lankanews/internal/news"
)

// FeedSource reads articles from one RSS or Atom feed. Item HTML is reduced
// to text.
type FeedSource struct {
	url    string
	parser *gofeed.Parser
	filter *LinkFilter
	opts   Options
	log    *slog.Logger
}

var _ Source = (*FeedSource)(nil)

func NewFeedSource(feedURL string, opts Options, log *slog.Logger) *FeedSource {
	opts = opts.withDefaults()
	parser := gofeed.NewParser()
	parser.Client = opts.Client
	parser.UserAgent = userAgent

	return &FeedSource{
		url:    feedURL,
		parser: parser,
		filter: NewLinkFilter(opts.UnwantedWords),
		opts:   opts,
		log:    logger.OrDefault(log),
	}
}

func (f *FeedSource) Name() string { return f.url }

func (f *FeedSource) Fetch(ctx context.Context) ([]news.Article, error) {
	feed, err := f.parser.ParseURLWithContext(f.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("error parsing RSS %s: %w", f.url, err)
	}

	var out []news.Article
	for _, item := range feed.Items {
		if len(out) >= f.opts.MaxLinks {
			break
		}
		a, ok := f.article(item)
		if !ok {
			continue
		}
		out = append(out, a)
	}

	f.log.Info("Loaded feed", "url", f.url, "items", len(feed.Items), "articles", len(out))
	return out, nil
}

func (f *FeedSource) article(item *gofeed.Item) (news.Article, bool) {
	link := strings.TrimSpace(item.Link)
	if link == "" || !f.filter.Allow(link) {
		return news.Article{}, false
	}

	content := htmlText(item.Content)
	if content == "" {
		content = htmlText(item.Description)
	}

	a := news.Article{
		ID:      uuid.NewString(),
		Title:   strings.TrimSpace(item.Title),
		Content: content,
		URL:     link,
		Source:  f.url,
	}
	if item.PublishedParsed != nil {
		a.DatePublished = news.FormatTimestamp(*item.PublishedParsed)
	} else if item.UpdatedParsed != nil {
		a.DatePublished = news.FormatTimestamp(*item.UpdatedParsed)
	}
	if item.Image != nil {
		a.CoverImage = item.Image.URL
	} else {
		for _, enc := range item.Enclosures {
			if strings.HasPrefix(enc.Type, "image/") {
				a.CoverImage = enc.URL
				break
			}
		}
	}

	return a, a.Validate() == nil
}

// htmlText returns the visible text of an HTML fragment.
func htmlText(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

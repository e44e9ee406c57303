package news

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMissingField is returned by Validate when a required article field is empty.
var ErrMissingField = errors.New("missing required field")

// SummaryUnavailable is stored in place of a summary the service could not
// produce. It is never treated as summary text.
const SummaryUnavailable = "Summary not available due to an error."

// HasSummary reports whether s is real summary text.
func HasSummary(s string) bool {
	return strings.TrimSpace(s) != "" && s != SummaryUnavailable
}

// Article is a single scraped news item.
type Article struct {
	ID            string   `json:"id,omitempty"`
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	URL           string   `json:"url"`
	CoverImage    string   `json:"cover_image,omitempty"`
	DatePublished string   `json:"date_published,omitempty"`
	Source        string   `json:"source"`
	Category      Category `json:"category,omitempty"`
	Week          string   `json:"week,omitempty"`
	ShortSummary  string   `json:"short_summary,omitempty"`
	LongSummary   string   `json:"long_summary,omitempty"`
}

// Validate checks the fields every Article Source must provide. Publication
// date is optional.
func (a Article) Validate() error {
	required := []struct{ name, value string }{
		{"title", a.Title},
		{"content", a.Content},
		{"url", a.URL},
		{"source", a.Source},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}
	return nil
}

// Group is a set of articles about the same story from different outlets.
// ID, Category, DatePublished and Week mirror the first member.
type Group struct {
	GroupID             string    `json:"group_id"`
	RepresentativeTitle string    `json:"representative_title"`
	Articles            []Article `json:"articles"`

	ID            string   `json:"id,omitempty"`
	Category      Category `json:"category,omitempty"`
	DatePublished string   `json:"date_published,omitempty"`
	Week          string   `json:"week,omitempty"`
	ShortSummary  string   `json:"short_summary,omitempty"`
	LongSummary   string   `json:"long_summary,omitempty"`
}

// Add appends a member, copying the derived scalar fields when it is the first.
func (g *Group) Add(a Article) {
	if len(g.Articles) == 0 {
		g.ID = a.ID
		g.Category = a.Category
		g.DatePublished = a.DatePublished
		g.Week = a.Week
	}
	g.Articles = append(g.Articles, a)
}

// Record is either a standalone *Article or a *Group. The set is closed;
// switch on the concrete type to handle each case.
type Record interface {
	// Headline is the title, or the representative title for a group.
	Headline() string
	// Body is the text handed to summarization.
	Body() string
	RecordID() string
	RecordCategory() Category
	Published() string
	WeekKey() string
	Summaries() (short, long string)
	SetSummaries(short, long string)
	SetCategory(c Category)
	SetWeek(w string)
	// CoverImages lists every non-empty cover image carried by the record.
	CoverImages() []string

	record()
}

func (a *Article) Headline() string                { return a.Title }
func (a *Article) Body() string                    { return a.Title + "\n\n" + a.Content }
func (a *Article) RecordID() string                { return a.ID }
func (a *Article) RecordCategory() Category        { return a.Category }
func (a *Article) Published() string               { return a.DatePublished }
func (a *Article) WeekKey() string                 { return a.Week }
func (a *Article) Summaries() (string, string)     { return a.ShortSummary, a.LongSummary }
func (a *Article) SetCategory(c Category)          { a.Category = c }
func (a *Article) SetWeek(w string)                { a.Week = w }
func (a *Article) SetSummaries(short, long string) { a.ShortSummary, a.LongSummary = short, long }
func (a *Article) record()                         {}

func (a *Article) CoverImages() []string {
	if a.CoverImage == "" {
		return nil
	}
	return []string{a.CoverImage}
}

func (g *Group) Headline() string                { return g.RepresentativeTitle }
func (g *Group) RecordID() string                { return g.ID }
func (g *Group) RecordCategory() Category        { return g.Category }
func (g *Group) Published() string               { return g.DatePublished }
func (g *Group) WeekKey() string                 { return g.Week }
func (g *Group) Summaries() (string, string)     { return g.ShortSummary, g.LongSummary }
func (g *Group) SetSummaries(short, long string) { g.ShortSummary, g.LongSummary = short, long }
func (g *Group) record()                         {}

// Body joins the members' contents in member order.
func (g *Group) Body() string {
	parts := make([]string, 0, len(g.Articles))
	for _, a := range g.Articles {
		if c := strings.TrimSpace(a.Content); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, "\n\n")
}

func (g *Group) SetCategory(c Category) {
	g.Category = c
	for i := range g.Articles {
		g.Articles[i].Category = c
	}
}

func (g *Group) SetWeek(w string) {
	g.Week = w
}

func (g *Group) CoverImages() []string {
	var out []string
	for _, a := range g.Articles {
		if a.CoverImage != "" {
			out = append(out, a.CoverImage)
		}
	}
	return out
}

// TitleKey returns the normalized identity key of a record.
func TitleKey(r Record) string {
	return NormalizeTitle(r.Headline())
}

// PublishedAt parses the record's publication date. The zero time and false
// are returned when it is missing or unparsable.
func PublishedAt(r Record) (time.Time, bool) {
	t, err := ParseTimestamp(r.Published())
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

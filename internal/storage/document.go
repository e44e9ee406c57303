package storage

import (
	"time"

	"github.com/deusflow/lankanews/internal/news"
)

const (
	kindArticle = "article"
	kindGroup   = "group"
)

type memberDocument struct {
	ID               string     `bson:"id,omitempty" json:"id,omitempty"`
	Title            string     `bson:"title" json:"title"`
	Content          string     `bson:"content" json:"content"`
	URL              string     `bson:"url" json:"url"`
	CoverImage       string     `bson:"cover_image,omitempty" json:"cover_image,omitempty"`
	Source           string     `bson:"source" json:"source"`
	Category         string     `bson:"category,omitempty" json:"category,omitempty"`
	Week             string     `bson:"week,omitempty" json:"week,omitempty"`
	DatePublished    *time.Time `bson:"date_published,omitempty" json:"date_published,omitempty"`
	DatePublishedRaw string     `bson:"date_published_raw,omitempty" json:"date_published_raw,omitempty"`
}

// document is the stored form of a record, shared by every backend.
// Publication dates are structured timestamps; an unparsable source value
// is kept verbatim in DatePublishedRaw.
type document struct {
	Kind     string `bson:"kind" json:"kind"`
	TitleKey string `bson:"title_key" json:"title_key"`
	RecordID string `bson:"id,omitempty" json:"id,omitempty"`

	Title      string `bson:"title,omitempty" json:"title,omitempty"`
	Content    string `bson:"content,omitempty" json:"content,omitempty"`
	URL        string `bson:"url,omitempty" json:"url,omitempty"`
	CoverImage string `bson:"cover_image,omitempty" json:"cover_image,omitempty"`
	Source     string `bson:"source,omitempty" json:"source,omitempty"`

	GroupID             string           `bson:"group_id,omitempty" json:"group_id,omitempty"`
	RepresentativeTitle string           `bson:"representative_title,omitempty" json:"representative_title,omitempty"`
	Articles            []memberDocument `bson:"articles,omitempty" json:"articles,omitempty"`

	Category         string     `bson:"category" json:"category"`
	Week             string     `bson:"week,omitempty" json:"week,omitempty"`
	DatePublished    *time.Time `bson:"date_published,omitempty" json:"date_published,omitempty"`
	DatePublishedRaw string     `bson:"date_published_raw,omitempty" json:"date_published_raw,omitempty"`
	ShortSummary     string     `bson:"short_summary,omitempty" json:"short_summary,omitempty"`
	LongSummary      string     `bson:"long_summary,omitempty" json:"long_summary,omitempty"`

	InsertedAt time.Time `bson:"inserted_at" json:"inserted_at"`
}

func parseDate(raw string) (*time.Time, string) {
	if raw == "" {
		return nil, ""
	}
	t, err := news.ParseTimestamp(raw)
	if err != nil {
		return nil, raw
	}
	return &t, ""
}

func formatDate(t *time.Time, raw string) string {
	if t == nil {
		return raw
	}
	return news.FormatTimestamp(*t)
}

func encodeMember(a news.Article) memberDocument {
	date, raw := parseDate(a.DatePublished)
	return memberDocument{
		ID:               a.ID,
		Title:            a.Title,
		Content:          a.Content,
		URL:              a.URL,
		CoverImage:       a.CoverImage,
		Source:           a.Source,
		Category:         string(a.Category),
		Week:             a.Week,
		DatePublished:    date,
		DatePublishedRaw: raw,
	}
}

func (m memberDocument) decode() news.Article {
	return news.Article{
		ID:            m.ID,
		Title:         m.Title,
		Content:       m.Content,
		URL:           m.URL,
		CoverImage:    m.CoverImage,
		DatePublished: formatDate(m.DatePublished, m.DatePublishedRaw),
		Source:        m.Source,
		Category:      news.Category(m.Category),
		Week:          m.Week,
	}
}

func encode(r news.Record, now time.Time) document {
	date, raw := parseDate(r.Published())
	short, long := r.Summaries()

	doc := document{
		TitleKey:         news.TitleKey(r),
		RecordID:         r.RecordID(),
		Category:         string(r.RecordCategory()),
		Week:             r.WeekKey(),
		DatePublished:    date,
		DatePublishedRaw: raw,
		ShortSummary:     short,
		LongSummary:      long,
		InsertedAt:       now.UTC(),
	}

	switch rec := r.(type) {
	case *news.Article:
		doc.Kind = kindArticle
		doc.Title = rec.Title
		doc.Content = rec.Content
		doc.URL = rec.URL
		doc.CoverImage = rec.CoverImage
		doc.Source = rec.Source
	case *news.Group:
		doc.Kind = kindGroup
		doc.GroupID = rec.GroupID
		doc.RepresentativeTitle = rec.RepresentativeTitle
		doc.Articles = make([]memberDocument, len(rec.Articles))
		for i, a := range rec.Articles {
			doc.Articles[i] = encodeMember(a)
		}
	}
	return doc
}

func (d document) decode() news.Record {
	published := formatDate(d.DatePublished, d.DatePublishedRaw)

	if d.Kind == kindGroup {
		g := &news.Group{
			GroupID:             d.GroupID,
			RepresentativeTitle: d.RepresentativeTitle,
			Articles:            make([]news.Article, len(d.Articles)),
			ID:                  d.RecordID,
			Category:            news.Category(d.Category),
			DatePublished:       published,
			Week:                d.Week,
			ShortSummary:        d.ShortSummary,
			LongSummary:         d.LongSummary,
		}
		for i, m := range d.Articles {
			g.Articles[i] = m.decode()
		}
		return g
	}

	return &news.Article{
		ID:            d.RecordID,
		Title:         d.Title,
		Content:       d.Content,
		URL:           d.URL,
		CoverImage:    d.CoverImage,
		DatePublished: published,
		Source:        d.Source,
		Category:      news.Category(d.Category),
		Week:          d.Week,
		ShortSummary:  d.ShortSummary,
		LongSummary:   d.LongSummary,
	}
}

func decodeAll(docs []document) []news.Record {
	out := make([]news.Record, len(docs))
	for i, d := range docs {
		out[i] = d.decode()
	}
	return out
}

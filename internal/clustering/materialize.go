package clustering

import (
	"github.com/deusflow/lankanews/internal/intelligence"
	"github.com/deusflow/lankanews/internal/news"
)

// Materialize turns a cluster assignment into records. A group is created
// the first time one of its members is met, takes that member's normalized
// title as representative title, and sits at that member's position in the
// output. Untagged and unique articles pass through as standalone records.
// Every input article ends up in exactly one record.
func Materialize(articles []news.Article, tags Assignment) []news.Record {
	out := make([]news.Record, 0, len(articles))
	groups := make(map[string]*news.Group)

	for _, a := range articles {
		key := news.NormalizeTitle(a.Title)
		tag, ok := tags[key]
		if !ok || tag == "" || tag == intelligence.Unique {
			article := a
			out = append(out, &article)
			continue
		}

		g, exists := groups[tag]
		if !exists {
			g = &news.Group{GroupID: tag, RepresentativeTitle: key}
			groups[tag] = g
			out = append(out, g)
		}
		g.Add(a)
	}

	return out
}

// Count returns how many articles the records hold.
func Count(records []news.Record) int {
	n := 0
	for _, r := range records {
		switch rec := r.(type) {
		case *news.Article:
			n++
		case *news.Group:
			n += len(rec.Articles)
		}
	}
	return n
}

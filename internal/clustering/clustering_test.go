package clustering

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/deusflow/lankanews/internal/intelligence"
	"github.com/deusflow/lankanews/internal/news"
)

func articles(titles ...string) []news.Article {
	out := make([]news.Article, len(titles))
	for i, t := range titles {
		out[i] = news.Article{
			ID:      fmt.Sprintf("id-%d", i),
			Title:   t,
			Content: "content " + t,
			URL:     fmt.Sprintf("https://example.lk/%d", i),
			Source:  "example",
		}
	}
	return out
}

func TestTitleClustererTagsEveryTitle(t *testing.T) {
	stub := &intelligence.Stub{ClusterFunc: func(titles []string) ([]intelligence.TitleTag, error) {
		return []intelligence.TitleTag{
			{Title: "budget passed", Group: "group_1"},
			{Title: "  budget   passed\u200b", Group: "group_9"}, // conflicting repeat, first wins
			{Title: "budget approved", Group: "group_1"},
			{Title: "invented title", Group: "group_2"},
		}, nil
	}}
	c := NewTitleClusterer(stub, nil)

	res := c.Cluster(context.Background(), articles("budget passed", "budget approved", "cricket win", "budget passed\u200b"))
	if res.Fallback {
		t.Fatal("Fallback = true")
	}

	want := Assignment{
		"budget passed":   "group_1",
		"budget approved": "group_1",
		"cricket win":     intelligence.Unique,
	}
	if len(res.Tags) != len(want) {
		t.Fatalf("Tags = %v, want %v", res.Tags, want)
	}
	for k, v := range want {
		if res.Tags[k] != v {
			t.Errorf("Tags[%q] = %q, want %q", k, res.Tags[k], v)
		}
	}
	if res.Unmatched != 1 {
		t.Errorf("Unmatched = %d, want 1", res.Unmatched)
	}
	if got := stub.Calls("cluster"); got != 1 {
		t.Errorf("backend calls = %d, want 1", got)
	}
}

func TestTitleClustererSendsNormalizedUniqueTitles(t *testing.T) {
	var sent []string
	stub := &intelligence.Stub{ClusterFunc: func(titles []string) ([]intelligence.TitleTag, error) {
		sent = titles
		return nil, nil
	}}
	NewTitleClusterer(stub, nil).Cluster(context.Background(), articles("a  b", "a b\u200b", "c"))

	if len(sent) != 2 || sent[0] != "a b" || sent[1] != "c" {
		t.Errorf("sent titles = %q", sent)
	}
}

func TestTitleClustererFallsBackOnError(t *testing.T) {
	stub := &intelligence.Stub{ClusterFunc: func([]string) ([]intelligence.TitleTag, error) {
		return nil, fmt.Errorf("cluster: %w", intelligence.ErrMalformedResponse)
	}}
	res := NewTitleClusterer(stub, nil).Cluster(context.Background(), articles("a", "b"))

	if !res.Fallback {
		t.Error("Fallback = false")
	}
	for k, v := range res.Tags {
		if v != intelligence.Unique {
			t.Errorf("Tags[%q] = %q, want unique", k, v)
		}
	}
}

func TestTitleClustererEmptyInput(t *testing.T) {
	stub := &intelligence.Stub{}
	res := NewTitleClusterer(stub, nil).Cluster(context.Background(), nil)
	if len(res.Tags) != 0 || stub.Calls("cluster") != 0 {
		t.Errorf("empty input produced %v with %d calls", res.Tags, stub.Calls("cluster"))
	}
}

func TestMaterialize(t *testing.T) {
	in := articles("A story", "B story", "A story, other outlet", "C story")
	in[0].CoverImage = "a.jpg"
	tags := Assignment{
		"A story":               "group_1",
		"B story":               intelligence.Unique,
		"A story, other outlet": "group_1",
	}

	out := Materialize(in, tags)
	if len(out) != 3 {
		t.Fatalf("got %d records, want 3", len(out))
	}

	g, ok := out[0].(*news.Group)
	if !ok {
		t.Fatalf("out[0] is %T, want *news.Group", out[0])
	}
	if g.GroupID != "group_1" || g.RepresentativeTitle != "A story" || len(g.Articles) != 2 {
		t.Errorf("group = %+v", g)
	}
	if g.Articles[1].URL != in[2].URL {
		t.Errorf("group member order not preserved")
	}
	if g.ID != "id-0" {
		t.Errorf("group ID = %q, want first member's", g.ID)
	}
	if a, ok := out[1].(*news.Article); !ok || a.Title != "B story" {
		t.Errorf("out[1] = %#v", out[1])
	}
	if a, ok := out[2].(*news.Article); !ok || a.Title != "C story" {
		t.Errorf("out[2] = %#v", out[2])
	}
}

func TestMaterializeRepresentativeTitleIsNormalized(t *testing.T) {
	in := articles("  Fuel\u200b price   up ")
	out := Materialize(in, Assignment{"Fuel price up": "group_1"})
	if g := out[0].(*news.Group); g.RepresentativeTitle != "Fuel price up" {
		t.Errorf("RepresentativeTitle = %q", g.RepresentativeTitle)
	}
}

func TestMaterializeCompleteness(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	choices := []string{intelligence.Unique, "group_1", "group_2", "group_3", ""}

	for round := 0; round < 200; round++ {
		n := rng.Intn(12)
		titles := make([]string, n)
		for i := range titles {
			titles[i] = fmt.Sprintf("title %d", rng.Intn(8))
		}
		in := articles(titles...)

		tags := Assignment{}
		for _, a := range in {
			if tag := choices[rng.Intn(len(choices))]; tag != "" {
				tags[news.NormalizeTitle(a.Title)] = tag
			}
		}

		out := Materialize(in, tags)
		if got := Count(out); got != len(in) {
			t.Fatalf("round %d: %d articles in output, want %d", round, got, len(in))
		}

		seen := map[string]int{}
		for _, r := range out {
			switch rec := r.(type) {
			case *news.Article:
				seen[rec.URL]++
			case *news.Group:
				if len(rec.Articles) == 0 {
					t.Fatalf("round %d: empty group %q", round, rec.GroupID)
				}
				for _, a := range rec.Articles {
					seen[a.URL]++
				}
			}
		}
		for _, a := range in {
			if seen[a.URL] != 1 {
				t.Fatalf("round %d: article %s appears %d times", round, a.URL, seen[a.URL])
			}
		}
	}
}

func TestTFIDFGroupsSimilarTitles(t *testing.T) {
	titles := []string{
		"ජනාධිපති අද පාර්ලිමේන්තුවේ කතා කරයි",
		"ක්‍රිකට් කණ්ඩායම ජය ගනී",
		"ජනාධිපති පාර්ලිමේන්තුවේ කතා කළේය",
		"ඉන්ධන මිල ඉහළ යයි",
	}

	tags, err := NewTFIDF(0.5).Cluster(context.Background(), titles)
	if err != nil {
		t.Fatalf("Cluster() error: %v", err)
	}
	if len(tags) != len(titles) {
		t.Fatalf("got %d tags, want %d", len(tags), len(titles))
	}

	want := []string{"group_1", intelligence.Unique, "group_1", intelligence.Unique}
	for i, w := range want {
		if tags[i].Title != titles[i] || tags[i].Group != w {
			t.Errorf("tags[%d] = %+v, want group %q", i, tags[i], w)
		}
	}
}

func TestTFIDFStopwordsOnlyStayUnique(t *testing.T) {
	tags, err := NewTFIDF(0.5).Cluster(context.Background(), []string{"සහ ද", "සහ ද", ""})
	if err != nil {
		t.Fatal(err)
	}
	for _, tag := range tags {
		if tag.Group != intelligence.Unique {
			t.Errorf("tag = %+v, want unique", tag)
		}
	}
}

func TestTFIDFHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewTFIDF(0.5).Cluster(ctx, []string{"a"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Cluster() error = %v, want context.Canceled", err)
	}
}

func TestTFIDFThroughTitleClusterer(t *testing.T) {
	c := NewTitleClusterer(intelligence.NewLocal(NewTFIDF(0.5)), nil)
	in := articles("fuel price rises again", "fuel price rises today", "team wins final")

	res := c.Cluster(context.Background(), in)
	out := Materialize(in, res.Tags)
	if len(out) != 2 {
		t.Fatalf("got %d records, want 2", len(out))
	}
	if g, ok := out[0].(*news.Group); !ok || len(g.Articles) != 2 {
		t.Errorf("out[0] = %#v, want two-member group", out[0])
	}
}

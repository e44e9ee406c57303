package clustering

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/deusflow/lankanews/internal/intelligence"
	"github.com/deusflow/lankanews/internal/news"
)

var sinhalaStopwords = []string{
	"ඔබ", "ඉතා", "එය", "ද", "එක", "ම", "නමුත්", "සහ", "අප", "මට", "නැහැ", "ය",
	"ඇත", "එහි", "සඳහා", "හෝ", "නමුදු", "එක්", "මෙම", "ඔහු", "විසින්", "ඉන්", "අද",
}

// TFIDF clusters titles offline. Titles are vectorized with TF-IDF over
// unigrams and bigrams, any pair with cosine similarity at or above the
// threshold is linked, and every connected component of two or more titles
// becomes a group. Isolated titles are unique.
type TFIDF struct {
	threshold float64
	stopwords map[string]struct{}
}

var _ intelligence.Clusterer = (*TFIDF)(nil)

func NewTFIDF(threshold float64) *TFIDF {
	stop := make(map[string]struct{}, len(sinhalaStopwords))
	for _, w := range sinhalaStopwords {
		stop[news.NormalizeTitle(w)] = struct{}{}
	}
	return &TFIDF{threshold: threshold, stopwords: stop}
}

func (t *TFIDF) Cluster(ctx context.Context, titles []string) ([]intelligence.TitleTag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vectors := t.vectorize(titles)

	g := simple.NewUndirectedGraph()
	for i := range titles {
		g.AddNode(simple.Node(i))
	}
	for i := 0; i < len(vectors); i++ {
		for j := i + 1; j < len(vectors); j++ {
			if cosine(vectors[i], vectors[j]) >= t.threshold {
				g.SetEdge(g.NewEdge(simple.Node(i), simple.Node(j)))
			}
		}
	}

	tags := make([]intelligence.TitleTag, len(titles))
	for i, title := range titles {
		tags[i] = intelligence.TitleTag{Title: title, Group: intelligence.Unique}
	}

	components := topo.ConnectedComponents(g)
	var groups [][]int
	for _, comp := range components {
		if len(comp) < 2 {
			continue
		}
		ids := make([]int, len(comp))
		for k, n := range comp {
			ids[k] = int(n.ID())
		}
		sort.Ints(ids)
		groups = append(groups, ids)
	}
	// Number groups by their first title so ids follow input order.
	sort.Slice(groups, func(a, b int) bool { return groups[a][0] < groups[b][0] })

	for gi, ids := range groups {
		name := fmt.Sprintf("group_%d", gi+1)
		for _, id := range ids {
			tags[id].Group = name
		}
	}
	return tags, nil
}

func (t *TFIDF) tokenize(title string) []string {
	fields := strings.FieldsFunc(strings.ToLower(news.NormalizeTitle(title)), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})

	words := fields[:0]
	for _, f := range fields {
		if _, stop := t.stopwords[f]; stop {
			continue
		}
		words = append(words, f)
	}

	terms := make([]string, 0, 2*len(words))
	terms = append(terms, words...)
	for i := 0; i+1 < len(words); i++ {
		terms = append(terms, words[i]+" "+words[i+1])
	}
	return terms
}

// vectorize builds L2-normalized TF-IDF vectors with smoothed idf.
func (t *TFIDF) vectorize(titles []string) [][]float64 {
	docs := make([][]string, len(titles))
	vocab := make(map[string]int)
	df := make(map[string]int)

	for i, title := range titles {
		docs[i] = t.tokenize(title)
		seen := make(map[string]bool)
		for _, term := range docs[i] {
			if _, ok := vocab[term]; !ok {
				vocab[term] = len(vocab)
			}
			if !seen[term] {
				seen[term] = true
				df[term]++
			}
		}
	}

	n := float64(len(titles))
	vectors := make([][]float64, len(titles))
	for i, doc := range docs {
		v := make([]float64, len(vocab))
		for _, term := range doc {
			v[vocab[term]]++
		}
		for term, col := range vocab {
			if v[col] == 0 {
				continue
			}
			idf := math.Log((1+n)/(1+float64(df[term]))) + 1
			v[col] *= idf
		}
		if norm := floats.Norm(v, 2); norm > 0 {
			floats.Scale(1/norm, v)
		}
		vectors[i] = v
	}
	return vectors
}

func cosine(a, b []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	return floats.Dot(a, b)
}

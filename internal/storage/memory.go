package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/deusflow/lankanews/internal/news"
)

// MemoryStore keeps everything in process memory. It backs tests and
// DATABASE_DRIVER=memory runs.
type MemoryStore struct {
	mu         sync.RWMutex
	partitions map[string][]document
	features   map[string]FeatureSet
	indexed    bool
	now        func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		partitions: make(map[string][]document),
		features:   make(map[string]FeatureSet),
		now:        time.Now,
	}
}

func (m *MemoryStore) InsertBatch(ctx context.Context, records []news.Record) (InsertResult, error) {
	var res InsertResult

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !insertable(r) {
			res.Skipped++
			continue
		}

		p := partitionOf(r)
		doc := encode(r, m.now())
		if m.hasTitle(p, doc.TitleKey) {
			res.Skipped++
			continue
		}
		m.partitions[p] = append(m.partitions[p], doc)
		res.Inserted++
	}
	return res, nil
}

func (m *MemoryStore) hasTitle(partition, key string) bool {
	for _, d := range m.partitions[partition] {
		if d.TitleKey == key {
			return true
		}
	}
	return false
}

func (m *MemoryStore) RebuildIndex(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexed = true
	return nil
}

func (m *MemoryStore) GetByCategory(_ context.Context, category string) ([]news.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return decodeAll(m.partitions[category]), nil
}

func (m *MemoryStore) GetByID(_ context.Context, category, id string) (news.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	partitions := []string{category}
	if category == "" {
		partitions = news.Partitions()
	}
	for _, p := range partitions {
		for _, d := range m.partitions[p] {
			if d.RecordID == id {
				return d.decode(), nil
			}
		}
	}
	return nil, ErrNotFound
}

// TextSearch matches documents whose long summary contains any query term
// as a whole word, as a MongoDB text query does. Failed summaries never match.
func (m *MemoryStore) TextSearch(_ context.Context, query string) ([]news.Record, error) {
	terms := searchTokens(query)
	if len(terms) == 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []news.Record
	for _, p := range news.Partitions() {
		for _, d := range m.partitions[p] {
			if !news.HasSummary(d.LongSummary) {
				continue
			}
			words := make(map[string]struct{})
			for _, w := range searchTokens(d.LongSummary) {
				words[w] = struct{}{}
			}
			for _, term := range terms {
				if _, ok := words[term]; ok {
					out = append(out, d.decode())
					break
				}
			}
		}
	}
	return dedupeByTitle(out), nil
}

func (m *MemoryStore) GetRecent(_ context.Context, limitPerPartition int) ([]news.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []news.Record
	for _, p := range news.Partitions() {
		docs := append([]document(nil), m.partitions[p]...)
		sortNewestFirst(docs)
		if limitPerPartition > 0 && len(docs) > limitPerPartition {
			docs = docs[:limitPerPartition]
		}
		out = append(out, decodeAll(docs)...)
	}
	return out, nil
}

func (m *MemoryStore) GetWeek(_ context.Context, week string) (*WeekDigest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	digest := newWeekDigest(week)
	for _, p := range news.Partitions() {
		for _, d := range m.partitions[p] {
			if d.Week == week {
				digest.add(d.decode())
			}
		}
	}
	return digest, nil
}

func (m *MemoryStore) Weeks(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, docs := range m.partitions {
		for _, d := range docs {
			if d.Week != "" {
				seen[d.Week] = struct{}{}
			}
		}
	}
	weeks := make([]string, 0, len(seen))
	for w := range seen {
		weeks = append(weeks, w)
	}
	sort.Strings(weeks)
	return weeks, nil
}

func (m *MemoryStore) ReplaceFeatureSet(ctx context.Context, set FeatureSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.features, set.Week)
	if set.GeneratedAt.IsZero() {
		set.GeneratedAt = m.now().UTC()
	}
	m.features[set.Week] = set
	return nil
}

func (m *MemoryStore) GetFeatureSet(_ context.Context, week string) (*FeatureSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set, ok := m.features[week]
	if !ok {
		return nil, ErrNotFound
	}
	return &set, nil
}

// Indexed reports whether RebuildIndex has run.
func (m *MemoryStore) Indexed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.indexed
}

// Len returns the number of stored records across partitions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, docs := range m.partitions {
		n += len(docs)
	}
	return n
}

func (m *MemoryStore) Close(context.Context) error { return nil }

// searchTokens splits s into lower-cased words. Combining marks stay part of
// the word so Sinhala vowel signs do not break tokens.
func searchTokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(news.NormalizeTitle(s)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && !unicode.IsMark(r)
	})
}

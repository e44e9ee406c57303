package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	ArticlesScraped    int64
	DuplicatesFiltered int64
	StaleFiltered      int64
	CategoryFallbacks  int64
	ClusterFallbacks   int64
	SummaryFailures    int64
	RecordsInserted    int64
	RecordsSkipped     int64
	FeatureArticles    int64

	// Timings
	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration
	ProcessingCount       int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = New()

func New() *Metrics {
	return &Metrics{IsHealthy: true}
}

func (m *Metrics) add(field *int64, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*field += int64(n)
}

func (m *Metrics) AddScraped(n int)            { m.add(&m.ArticlesScraped, n) }
func (m *Metrics) AddDuplicatesFiltered(n int) { m.add(&m.DuplicatesFiltered, n) }
func (m *Metrics) AddStaleFiltered(n int)      { m.add(&m.StaleFiltered, n) }
func (m *Metrics) IncrementCategoryFallbacks() { m.add(&m.CategoryFallbacks, 1) }
func (m *Metrics) IncrementClusterFallbacks()  { m.add(&m.ClusterFallbacks, 1) }
func (m *Metrics) IncrementSummaryFailures()   { m.add(&m.SummaryFailures, 1) }
func (m *Metrics) AddInserted(n int)           { m.add(&m.RecordsInserted, n) }
func (m *Metrics) AddSkipped(n int)            { m.add(&m.RecordsSkipped, n) }
func (m *Metrics) AddFeatureArticles(n int)    { m.add(&m.FeatureArticles, n) }

func (m *Metrics) RecordProcessingTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastProcessingTime = duration
	m.TotalProcessingTime += duration
	m.ProcessingCount++

	if m.ProcessingCount > 0 {
		m.AverageProcessingTime = m.TotalProcessingTime / time.Duration(m.ProcessingCount)
	}
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"articles_scraped":           m.ArticlesScraped,
		"duplicates_filtered":        m.DuplicatesFiltered,
		"stale_filtered":             m.StaleFiltered,
		"category_fallbacks":         m.CategoryFallbacks,
		"cluster_fallbacks":          m.ClusterFallbacks,
		"summary_failures":           m.SummaryFailures,
		"records_inserted":           m.RecordsInserted,
		"records_skipped":            m.RecordsSkipped,
		"feature_articles":           m.FeatureArticles,
		"last_processing_time_ms":    m.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": m.AverageProcessingTime.Milliseconds(),
		"last_run_time":              m.LastRunTime.Format(time.RFC3339),
		"last_error_time":            m.LastErrorTime.Format(time.RFC3339),
		"last_error":                 m.LastError,
		"is_healthy":                 m.IsHealthy,
	}
}

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/deusflow/lankanews/internal/logger"
	"github.com/deusflow/lankanews/internal/news"
)

const (
	archivePrefix = "scraped_results_"
	archiveLayout = "20060102_150405"
)

// ErrInvalidBatchFile marks a batch file that cannot be read as a JSON list.
var ErrInvalidBatchFile = errors.New("invalid batch file")

// Archive writes every scraped batch to disk as a JSON array so a run can
// be re-imported later.
type Archive struct {
	dir string
	log *slog.Logger
}

func NewArchive(dir string, log *slog.Logger) *Archive {
	return &Archive{dir: dir, log: logger.OrDefault(log)}
}

// Save writes articles to <dir>/scraped_results_<timestamp>_<suffix>.json
// and returns the file path. The random suffix keeps two saves within the
// same second apart.
func (a *Archive) Save(articles []news.Article, at time.Time) (string, error) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive dir: %w", err)
	}

	if articles == nil {
		articles = []news.Article{}
	}
	data, err := json.MarshalIndent(articles, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal batch: %w", err)
	}

	name := archivePrefix + at.UTC().Format(archiveLayout) + "_" + uuid.NewString()[:8] + ".json"
	path := filepath.Join(a.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write batch file: %w", err)
	}

	a.log.Info("💾 Batch archived", "path", path, "articles", len(articles))
	return path, nil
}

// LoadBatchFile reads one archived batch. A missing file or a document that
// is not a JSON list fails the whole file; records that do not decode or miss
// a required field are skipped and counted. Articles without an id get one.
func LoadBatchFile(path string, log *slog.Logger) ([]news.Article, int, error) {
	log = logger.OrDefault(log)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %v", ErrInvalidBatchFile, path, err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("%w: %s: expected a JSON list: %v", ErrInvalidBatchFile, path, err)
	}

	articles := make([]news.Article, 0, len(raw))
	skipped := 0
	for i, msg := range raw {
		var a news.Article
		if err := json.Unmarshal(msg, &a); err != nil {
			log.Warn("Skipping undecodable record", "file", path, "index", i, "error", err)
			skipped++
			continue
		}
		if err := a.Validate(); err != nil {
			log.Warn("Skipping incomplete record", "file", path, "index", i, "error", err)
			skipped++
			continue
		}
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		articles = append(articles, a)
	}
	return articles, skipped, nil
}

// ListBatchFiles returns the archived batch files in dir, oldest first.
func ListBatchFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/deusflow/lankanews/internal/news"
	"github.com/deusflow/lankanews/internal/storage"
)

// internalErrorMessage is the only text a client sees for a 500.
const internalErrorMessage = "Internal server error."

// Response is the envelope of every reply.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message,omitempty"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body Response) {
	if body.Data == nil {
		body.Data = []interface{}{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("Failed to encode JSON response", "error", err)
	}
}

// list keeps empty results encoding as [] rather than null.
func list(records []news.Record) []news.Record {
	if records == nil {
		return []news.Record{}
	}
	return records
}

func (s *Server) ok(w http.ResponseWriter, data interface{}) {
	s.respondJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

func (s *Server) fail(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, Response{Success: false, Message: message})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error("request failed", "path", r.URL.Path, "error", err)
	s.fail(w, http.StatusInternalServerError, internalErrorMessage)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.metrics.GetStats()

	status := "ok"
	code := http.StatusOK
	if errText, _ := stats["last_error"].(string); errText != "" && !s.metrics.Healthy() {
		status = "error"
		code = http.StatusServiceUnavailable
	}

	s.respondJSON(w, code, Response{Success: code == http.StatusOK, Data: map[string]interface{}{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	}})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.ok(w, s.metrics.GetStats())
}

func (s *Server) handleLatestNews(w http.ResponseWriter, r *http.Request) {
	limit := s.recentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.fail(w, http.StatusBadRequest, "'limit' must be a positive integer.")
			return
		}
		limit = n
	}

	records, err := s.store.GetRecent(r.Context(), limit)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.ok(w, list(records))
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category := strings.TrimSpace(q.Get("category"))
	id := strings.TrimSpace(q.Get("id"))

	if category == "" && id == "" {
		s.fail(w, http.StatusBadRequest, "Missing required parameters. Provide 'category' or 'id'.")
		return
	}
	if category != "" && !news.IsPartition(category) {
		s.fail(w, http.StatusBadRequest, fmt.Sprintf("Unknown category '%s'.", category))
		return
	}

	if id != "" {
		record, err := s.store.GetByID(r.Context(), category, id)
		if errors.Is(err, storage.ErrNotFound) {
			s.fail(w, http.StatusNotFound, "Article not found.")
			return
		}
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		s.ok(w, record)
		return
	}

	records, err := s.store.GetByCategory(r.Context(), category)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if len(records) == 0 {
		s.fail(w, http.StatusNotFound, fmt.Sprintf("No data found for category '%s'.", category))
		return
	}
	s.ok(w, records)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		s.fail(w, http.StatusBadRequest, "Missing required 'query' parameter.")
		return
	}

	records, err := s.store.TextSearch(r.Context(), query)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if len(records) == 0 {
		s.respondJSON(w, http.StatusOK, Response{Success: true, Message: "No results found."})
		return
	}
	s.ok(w, records)
}

// weekParam returns the requested week key, the current week when absent.
func (s *Server) weekParam(r *http.Request) (string, bool) {
	week := strings.TrimSpace(r.URL.Query().Get("week"))
	if week == "" {
		return news.WeekOf(s.now()), true
	}
	return week, news.ValidWeekKey(week)
}

func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	week, ok := s.weekParam(r)
	if !ok {
		s.fail(w, http.StatusBadRequest, "Malformed 'week' parameter, expected YYYY_MM_WEEKn.")
		return
	}

	digest, err := s.store.GetWeek(r.Context(), week)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.ok(w, digest)
}

func (s *Server) handleFeatureArticle(w http.ResponseWriter, r *http.Request) {
	week, ok := s.weekParam(r)
	if !ok {
		s.fail(w, http.StatusBadRequest, "Malformed 'week' parameter, expected YYYY_MM_WEEKn.")
		return
	}

	set, err := s.store.GetFeatureSet(r.Context(), week)
	if errors.Is(err, storage.ErrNotFound) {
		s.fail(w, http.StatusNotFound, fmt.Sprintf("No feature articles for week '%s'.", week))
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	category := strings.TrimSpace(r.URL.Query().Get("category"))
	if category == "" {
		s.ok(w, set)
		return
	}
	text, found := set.FeatureArticles[category]
	if !found {
		s.fail(w, http.StatusNotFound, fmt.Sprintf("Category '%s' not found.", category))
		return
	}
	s.ok(w, map[string]interface{}{
		"week":       set.Week,
		"category":   category,
		"article":    text,
		"image_urls": set.ImageURLs,
	})
}

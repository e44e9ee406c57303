package intelligence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deusflow/lankanews/internal/news"
)

// ParseClusterResponse reads a model's clustering answer. The accepted shape
// is a JSON array whose entries are either {"title": ..., "group": ...}
// objects or two-element [title, group] arrays, optionally wrapped in a
// markdown code fence. Entries that do not fit are dropped, so their titles
// end up unique. An answer that is not a JSON array at all yields
// ErrMalformedResponse.
func ParseClusterResponse(raw string) ([]TitleTag, error) {
	body := stripCodeFence(raw)

	if i := strings.Index(body, "["); i > 0 {
		body = body[i:]
	}
	if j := strings.LastIndex(body, "]"); j >= 0 && j < len(body)-1 {
		body = body[:j+1]
	}

	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(body), &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	tags := make([]TitleTag, 0, len(entries))
	for _, entry := range entries {
		tag, ok := parseClusterEntry(entry)
		if !ok {
			continue
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func parseClusterEntry(entry json.RawMessage) (TitleTag, bool) {
	entry = bytes.TrimSpace(entry)
	if len(entry) == 0 {
		return TitleTag{}, false
	}

	var tag TitleTag
	switch entry[0] {
	case '{':
		var obj struct {
			Title *string `json:"title"`
			Group *string `json:"group"`
		}
		dec := json.NewDecoder(bytes.NewReader(entry))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&obj); err != nil || obj.Title == nil || obj.Group == nil {
			return TitleTag{}, false
		}
		tag = TitleTag{Title: *obj.Title, Group: *obj.Group}
	case '[':
		var pair []string
		if err := json.Unmarshal(entry, &pair); err != nil || len(pair) != 2 {
			return TitleTag{}, false
		}
		tag = TitleTag{Title: pair[0], Group: pair[1]}
	default:
		return TitleTag{}, false
	}

	tag.Title = strings.TrimSpace(tag.Title)
	tag.Group = strings.TrimSpace(tag.Group)
	if tag.Title == "" || tag.Group == "" {
		return TitleTag{}, false
	}
	if strings.EqualFold(tag.Group, Unique) {
		tag.Group = Unique
	}
	return tag, true
}

// ParseCategoryResponse maps a classifier answer onto the category enum.
func ParseCategoryResponse(raw string) (news.Category, error) {
	answer := strings.TrimSpace(stripCodeFence(raw))
	if c, ok := news.ParseCategory(answer); ok {
		return c, nil
	}
	// Models sometimes answer "Category: Sports".
	if i := strings.LastIndex(answer, ":"); i >= 0 {
		if c, ok := news.ParseCategory(answer[i+1:]); ok {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: category %q", ErrMalformedResponse, answer)
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

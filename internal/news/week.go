package news

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the canonical UTC form dates are normalized to.
const TimestampLayout = "2006-01-02T15:04:05Z"

var timestampLayouts = []string{
	TimestampLayout,
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

var errEmptyTimestamp = errors.New("empty timestamp")

// ParseTimestamp parses a publication date and returns it in UTC. Layouts
// without a zone are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errEmptyTimestamp
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FormatTimestamp renders t in the canonical layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// WeekOf returns the week key of t: {year}_{month:02}_WEEK{n}, where n counts
// seven-day blocks from the first of the month.
func WeekOf(t time.Time) string {
	t = t.UTC()
	n := 1 + (t.Day()-1)/7
	return fmt.Sprintf("%d_%02d_WEEK%d", t.Year(), int(t.Month()), n)
}

// LabelWeek sets the record's week from its publication date. Undated or
// unparsable records are left unlabeled and false is returned.
func LabelWeek(r Record) bool {
	t, ok := PublishedAt(r)
	if !ok {
		return false
	}
	r.SetWeek(WeekOf(t))
	return true
}

var weekKeyPattern = regexp.MustCompile(`^(\d{4})_(\d{2})_WEEK([1-5])$`)

// ValidWeekKey reports whether key has the week key shape with a real month.
func ValidWeekKey(key string) bool {
	m := weekKeyPattern.FindStringSubmatch(key)
	if m == nil {
		return false
	}
	month, _ := strconv.Atoi(m[2])
	return month >= 1 && month <= 12
}

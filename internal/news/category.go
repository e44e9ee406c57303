package news

import (
	"strings"
	"unicode"
)

// Category is the fixed topic enumeration every stored record carries.
type Category string

const (
	Business      Category = "Business"
	Entertainment Category = "Entertainment"
	General       Category = "General"
	Health        Category = "Health"
	Science       Category = "Science"
	Sports        Category = "Sports"
	Technology    Category = "Technology"
	Politics      Category = "Politics"
)

// Uncategorized names the partition for records whose category is not in the enum.
const Uncategorized = "Uncategorized"

var categories = []Category{Business, Entertainment, General, Health, Science, Sports, Technology, Politics}

// Categories returns the enumeration in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Partitions returns every storage partition name: the enum plus Uncategorized.
func Partitions() []string {
	out := make([]string, 0, len(categories)+1)
	for _, c := range categories {
		out = append(out, string(c))
	}
	return append(out, Uncategorized)
}

// ParseCategory maps a classifier answer onto the enum. It tolerates case,
// surrounding quotes and trailing punctuation ("politics." -> Politics).
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	for _, c := range categories {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}

// Valid reports whether c is exactly one of the enumerated categories.
func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

// Partition returns the storage partition for c.
func (c Category) Partition() string {
	if c.Valid() {
		return string(c)
	}
	return Uncategorized
}

// IsPartition reports whether name is a known partition.
func IsPartition(name string) bool {
	for _, p := range Partitions() {
		if p == name {
			return true
		}
	}
	return false
}

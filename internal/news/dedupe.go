package news

// Dedupe drops articles whose exact title was already seen in the call,
// keeping the first occurrence and the original order. Normalization-aware
// duplicate detection happens later, at storage time.
func Dedupe(articles []Article) []Article {
	seen := make(map[string]struct{}, len(articles))
	out := make([]Article, 0, len(articles))
	for _, a := range articles {
		if _, dup := seen[a.Title]; dup {
			continue
		}
		seen[a.Title] = struct{}{}
		out = append(out, a)
	}
	return out
}

package source

import (
	"net/url"
	"strings"
)

var socialMedia = []string{
	"facebook.com",
	"twitter.com",
	"youtube.com",
	"youtu.be",
	"instagram.com",
	"linkedin.com",
	"tiktok.com",
	"whatsapp.com",
}

// LinkFilter decides which discovered links are worth following.
type LinkFilter struct {
	unwanted []string
}

func NewLinkFilter(unwanted []string) *LinkFilter {
	words := make([]string, 0, len(unwanted))
	for _, w := range unwanted {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	return &LinkFilter{unwanted: words}
}

// Allow rejects non-http links, social media, images and links containing
// an unwanted word.
func (f *LinkFilter) Allow(link string) bool {
	lower := strings.ToLower(link)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}
	if strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg") || strings.HasSuffix(lower, ".png") {
		return false
	}
	for _, sm := range socialMedia {
		if strings.Contains(lower, sm) {
			return false
		}
	}
	for _, w := range f.unwanted {
		if strings.Contains(link, w) {
			return false
		}
	}
	return true
}

// resolve makes href absolute against base and drops the fragment.
func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
		return ""
	}
	u, err := base.Parse(href)
	if err != nil {
		return ""
	}
	u.Fragment = ""
	return u.String()
}

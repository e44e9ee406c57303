package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SiteRule describes how to scrape one news site. Selectors are CSS; when
// an *Attr field is set the value is read from that attribute instead of
// the element text.
type SiteRule struct {
	Name            string `yaml:"name"`
	StartURL        string `yaml:"start_url"`
	TitleSelector   string `yaml:"title"`
	ContentSelector string `yaml:"content"`
	DateSelector    string `yaml:"date"`
	DateAttr        string `yaml:"date_attr"`
	DateLayout      string `yaml:"date_layout"`
	DatePrefix      string `yaml:"date_strip_prefix"` // regexp removed before parsing
	TimeZone        string `yaml:"time_zone"`         // IANA name; UTC when empty
	CoverSelector   string `yaml:"cover_image"`
	CoverAttr       string `yaml:"cover_image_attr"`
}

// Source returns the identifier stored on scraped articles.
func (r SiteRule) Source() string {
	if r.Name != "" {
		return r.Name
	}
	return r.StartURL
}

// SitesConfig is the YAML file listing scrape targets and RSS feeds.
//
//	sites:
//	  - start_url: https://...
//	    title: h1.headline
//	feeds:
//	  - https://...
type SitesConfig struct {
	Sites         []SiteRule `yaml:"sites"`
	Feeds         []string   `yaml:"feeds"`
	UnwantedWords []string   `yaml:"unwanted_link_words"`
}

// LoadSites reads and validates the site configuration file.
func LoadSites(path string) (*SitesConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg SitesConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	for i, s := range cfg.Sites {
		if s.StartURL == "" || s.TitleSelector == "" || s.ContentSelector == "" {
			return nil, fmt.Errorf("site %d: start_url, title and content are required", i)
		}
		if s.CoverAttr == "" {
			cfg.Sites[i].CoverAttr = "src"
		}
	}
	return &cfg, nil
}

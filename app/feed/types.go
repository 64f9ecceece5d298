package feed

import (
	"time"
)

// Feed processing types

type Metadata struct {
	Title           string
	Link            string
	Description     string
	ImageURL        string
	Language        string
	FeedPublishedAt *time.Time
	FeedUpdatedAt   *time.Time
}

// Plan types

// Plan describes what one import run should pull and how embeds are rewritten.
type Plan struct {
	Include        []string  `yaml:"include"` // posts, pages, theme
	Tag            string    `yaml:"tag"`     // only posts carrying this tag
	EmbedStyle     string    `yaml:"embed_style"`
	StripSelectors []string  `yaml:"strip_selectors"`
	Feeds          []*Config `yaml:"feeds"`
}

func (p *Plan) Includes(kind string) bool {
	for _, k := range p.Include {
		if k == kind {
			return true
		}
	}
	return false
}

type Config struct {
	Name     string         `yaml:"name"`
	URL      string         `yaml:"url"`
	Settings ConfigSettings `yaml:"settings"`
	Filters  []ConfigFilter `yaml:"filters"`
}

type ConfigSettings struct {
	Enabled        *bool `yaml:"enabled"`
	MaxItems       int   `yaml:"max_items"`
	Timeout        int   `yaml:"timeout"`         // seconds
	ExtractContent bool  `yaml:"extract_content"` // fetch the article page when an entry has no content
}

func (s ConfigSettings) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

type ConfigFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

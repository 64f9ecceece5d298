package feed

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/blog-porter/app/record"
)

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run returns the records that pass the feed's filters, in input order.
func (f *Filterer) Run(records []*record.Raw, feedConfig *Config) []*record.Raw {
	if len(feedConfig.Filters) == 0 {
		return records
	}

	kept := make([]*record.Raw, 0, len(records))
	for _, raw := range records {
		isFiltered, filterReason := f.applyFilters(raw, feedConfig.Filters)
		if isFiltered {
			slog.Debug("Entry filtered", "feed", feedConfig.Name, "title", raw.String("title"), "reason", filterReason)
			continue
		}
		kept = append(kept, raw)
	}

	return kept
}

func (f *Filterer) applyFilters(raw *record.Raw, filters []ConfigFilter) (bool, string) {
	for _, filter := range filters {
		value := f.getFieldValue(raw, filter.Field)

		for _, exclude := range filter.Excludes {
			if f.matchesFilter(value, exclude) {
				return true, fmt.Sprintf("Excluded by %s filter: contains '%s'", filter.Field, exclude)
			}
		}

		if len(filter.Includes) > 0 {
			matched := false
			for _, include := range filter.Includes {
				if f.matchesFilter(value, include) {
					matched = true
					break
				}
			}
			if !matched {
				return true, fmt.Sprintf("Excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes)
			}
		}
	}

	return false, ""
}

func (f *Filterer) matchesFilter(value, pattern string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

func (f *Filterer) getFieldValue(raw *record.Raw, field string) string {
	switch field {
	case "title":
		return raw.String("title")
	case "description":
		return raw.String("body")
	case "content":
		return raw.String("body_full")
	case "authors":
		return raw.String("author")
	case "link":
		return raw.String("full_url")
	case "categories":
		names := make([]string, 0)
		for _, tag := range raw.Objects("tags") {
			names = append(names, tag.String("name"))
		}
		return strings.Join(names, " ")
	default:
		return ""
	}
}

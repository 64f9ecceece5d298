package resources

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/blog-porter/app/attrs"
	"github.com/lysyi3m/blog-porter/app/record"
	"github.com/lysyi3m/blog-porter/app/slug"
)

var themeFields = attrs.Map{
	{Source: "name", Target: "title"},
	{Source: "id", Target: "posterous_theme_id"},
}

// Theme wraps a site's raw theme markup. It carries no media.
type Theme struct {
	document
}

func NewTheme(raw *record.Raw) *Theme {
	id := slug.Normalize(raw.String("name"))
	if id == "" || id == "-" {
		id = "theme"
	}
	return &Theme{document{
		kind:       KindTheme,
		raw:        raw,
		fields:     themeFields,
		content:    raw.String("raw_theme"),
		identifier: id,
	}}
}

// CSS joins the contents of the theme's head style elements.
func (t *Theme) CSS() (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(t.content))
	if err != nil {
		return "", fmt.Errorf("failed to parse theme: %w", err)
	}

	var parts []string
	doc.Find("head > style").Each(func(_ int, s *goquery.Selection) {
		parts = append(parts, s.Text())
	})
	return strings.Join(parts, "\r\n"), nil
}

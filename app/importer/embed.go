package importer

import (
	"fmt"
	"strings"

	"github.com/lysyi3m/blog-porter/app/media"
	"github.com/lysyi3m/blog-porter/app/rewrite"
)

// EmbedStyle selects how a stored media item's embed is rewritten.
type EmbedStyle string

const (
	// EmbedShortcode replaces the embed with the text [[identifier]].
	EmbedShortcode EmbedStyle = "shortcode"
	// EmbedSource points the embed's src at the stored item.
	EmbedSource EmbedStyle = "src"
	// EmbedAnnotate keeps the embed and adds a data-identifier attribute.
	EmbedAnnotate EmbedStyle = "annotate"
)

func ParseEmbedStyle(s string) (EmbedStyle, error) {
	switch style := EmbedStyle(strings.ToLower(strings.TrimSpace(s))); style {
	case EmbedShortcode, EmbedSource, EmbedAnnotate:
		return style, nil
	case "":
		return EmbedShortcode, nil
	default:
		return "", fmt.Errorf("unknown embed style %q", s)
	}
}

func (s EmbedStyle) Visit() rewrite.ItemVisit {
	switch s {
	case EmbedSource:
		return rewrite.SetAttr("src", itemPath)
	case EmbedAnnotate:
		return rewrite.SetAttr("data-identifier", (*media.Item).Identifier)
	default:
		return rewrite.ReplaceWithText(func(item *media.Item) string {
			return "[[" + item.Identifier() + "]]"
		})
	}
}

// itemPath is the path a stored item is published under: /images/x/ with
// extension .jpg becomes /images/x.jpg.
func itemPath(item *media.Item) string {
	return strings.TrimSuffix(item.Identifier(), "/") + item.Extension()
}

package rewrite

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/lysyi3m/blog-porter/app/media"
)

// Visit is called once for every element a pass matches.
type Visit func(sel *goquery.Selection)

// ItemVisit is called for every element embedding a media item.
type ItemVisit func(sel *goquery.Selection, item *media.Item)

// RewriteMatches calls visit for each element of body matching selector,
// in document order, and returns the rewritten markup together with the
// number of matches. A body without matches is returned as is.
func RewriteMatches(body, selector string, visit Visit) (string, int, error) {
	f, err := Parse(body)
	if err != nil {
		return "", 0, err
	}

	matches, err := f.Select(selector)
	if err != nil {
		return "", 0, err
	}
	if len(matches) == 0 {
		return body, 0, nil
	}

	for _, sel := range matches {
		visit(sel)
	}

	out, err := f.Render()
	if err != nil {
		return "", 0, fmt.Errorf("failed to render body: %w", err)
	}
	return out, len(matches), nil
}

// RewriteEachItem runs one RewriteMatches pass per item using the item's own
// selector, handing the item to visit along with each embedding element.
func RewriteEachItem(body string, items []*media.Item, visit ItemVisit) (string, int, error) {
	total := 0
	for _, item := range items {
		updated, n, err := RewriteMatches(body, item.Selector(), func(sel *goquery.Selection) {
			visit(sel, item)
		})
		if err != nil {
			return "", total, fmt.Errorf("failed to rewrite embeds of %s: %w", item.URL(), err)
		}
		body = updated
		total += n
	}
	return body, total, nil
}

// ReplaceWithText swaps the embed for a plain text node.
func ReplaceWithText(text func(item *media.Item) string) ItemVisit {
	return func(sel *goquery.Selection, item *media.Item) {
		sel.ReplaceWithNodes(&html.Node{Type: html.TextNode, Data: text(item)})
	}
}

// ReplaceWithMarkup swaps the embed for the given markup, parsed in the
// context of the embed's parent.
func ReplaceWithMarkup(markup func(item *media.Item) string) ItemVisit {
	return func(sel *goquery.Selection, item *media.Item) {
		sel.ReplaceWithHtml(markup(item))
	}
}

// SetAttr sets one attribute on the embed and keeps everything else.
func SetAttr(name string, value func(item *media.Item) string) ItemVisit {
	return func(sel *goquery.Selection, item *media.Item) {
		sel.SetAttr(name, value(item))
	}
}

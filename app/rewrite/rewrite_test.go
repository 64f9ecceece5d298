package rewrite

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/blog-porter/app/media"
	"github.com/lysyi3m/blog-porter/app/record"
)

func TestParseRenderIdentity(t *testing.T) {
	bodies := []string{
		"",
		"plain text only",
		"<p>Hello <b>world</b></p>",
		"<P CLASS=lead>Upper  case</P>\r\n<br/><br>",
		"<p>unclosed <b>bold</p> trailing",
		"</i> stray end tags </span>",
		"<!-- comment --><!DOCTYPE html>",
		"<script>if (a < b && c > d) { x = '<img src=\"u\">'; }</script>",
		"<div><ul><li>one<li>two</ul>",
		"entities &amp; &lt;b&gt; &nbsp; &#169; stay as written",
		"<img src='single.jpg' alt=unquoted data-x = \"spaced\">",
		"<svg><path d=\"M0 0\"/></svg>",
		"<a href=\"x",
	}

	for _, body := range bodies {
		f, err := Parse(body)
		require.NoError(t, err, body)

		out, err := f.Render()
		require.NoError(t, err, body)
		assert.Equal(t, body, out)
	}
}

func TestRewriteMatchesNoMatch(t *testing.T) {
	body := "<div>\n  <IMG SRC=\"other.jpg\">\n</div>"

	visits := 0
	out, n, err := RewriteMatches(body, `img[src="photo.jpg"]`, func(*goquery.Selection) { visits++ })
	require.NoError(t, err)

	assert.Equal(t, body, out)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, visits)
}

func TestRewriteMatchesDocumentOrder(t *testing.T) {
	body := `<p><img src="a.jpg" alt="1"></p><img src="b.jpg"><div><img src="a.jpg" alt="2"></div>`

	var seen []string
	_, n, err := RewriteMatches(body, `img[src="a.jpg"]`, func(sel *goquery.Selection) {
		alt, _ := sel.Attr("alt")
		seen = append(seen, alt)
	})
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"1", "2"}, seen)
}

func TestRewriteMatchesOnlyTouchesMatches(t *testing.T) {
	prefix := "<div class=post>\r\n  <p>Intro &amp; <em>more</p>\n  <!-- keep -->\n  "
	suffix := "\n  <IMG SRC='other.jpg' alt=\"x\" />\n</div><script>var a = 1 < 2;</script>"
	body := prefix + `<IMG SRC='photo.jpg' alt="foo" />` + suffix

	out, n, err := RewriteMatches(body, `img[src="photo.jpg"]`, func(sel *goquery.Selection) {
		sel.SetAttr("data-id", "photo-full")
	})
	require.NoError(t, err)

	assert.Equal(t, 1, n)
	assert.Equal(t, prefix+`<img src="photo.jpg" alt="foo" data-id="photo-full" />`+suffix, out)
}

func TestRewriteMatchesReplaceAndRemove(t *testing.T) {
	body := "<div class=\"p\">\n<p>caption</p><img src=\"u.jpg\"></div>\n<p>after</p>"

	out, _, err := RewriteMatches(body, `img[src="u.jpg"]`, func(sel *goquery.Selection) {
		sel.Parent().AppendHtml("<foo>photo-full</foo>")
		sel.Remove()
	})
	require.NoError(t, err)

	assert.Equal(t, "<div class=\"p\">\n<p>caption</p><foo>photo-full</foo></div>\n<p>after</p>", out)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find("foo").Length())
	assert.Equal(t, 0, doc.Find("img").Length())
}

func TestRewriteMatchesIgnoresScriptText(t *testing.T) {
	body := `<script>document.write('<img src="u.jpg">')</script>`

	out, n, err := RewriteMatches(body, `img[src="u.jpg"]`, func(sel *goquery.Selection) { sel.Remove() })
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, body, out)
}

func TestRewriteMatchesInvalidSelector(t *testing.T) {
	_, _, err := RewriteMatches("<p>x</p>", "img[src=", func(*goquery.Selection) {})
	assert.Error(t, err)
}

func TestRewriteMatchesTextEscaping(t *testing.T) {
	body := `<p><img src="u.jpg"></p><style>p > a { color: red }</style>`

	out, _, err := RewriteMatches(body, "p", func(sel *goquery.Selection) {
		sel.SetText("a < b")
	})
	require.NoError(t, err)
	assert.Equal(t, `<p>a &lt; b</p><style>p > a { color: red }</style>`, out)
}

func item(scale, url string) *media.Item {
	return media.NewItem(media.Image, scale, record.New().With("url", url))
}

func TestRewriteEachItem(t *testing.T) {
	body := `<p><img src="http://x/one.jpg"> and <img src="http://x/two.jpg"></p>`
	items := []*media.Item{item("full", "http://x/one.jpg"), item("full", "http://x/two.jpg")}

	var visited []*media.Item
	out, n, err := RewriteEachItem(body, items, func(sel *goquery.Selection, it *media.Item) {
		src, _ := sel.Attr("src")
		assert.Equal(t, it.URL(), src)
		it.SetIdentifier("/images/" + it.Identifier() + "/")
		visited = append(visited, it)
		ReplaceWithText(func(it *media.Item) string { return "[[" + it.Identifier() + "]]" })(sel, it)
	})
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, items, visited)
	assert.Equal(t, `<p>[[/images/one-full/]] and [[/images/two-full/]]</p>`, out)
}

func TestRewriteEachItemSharedSelector(t *testing.T) {
	body := `<img src="http://x/p.jpg"><img src="http://x/p.jpg">`
	items := []*media.Item{item("full", "http://x/p.jpg"), item("original", "http://x/p.jpg")}

	out, n, err := RewriteEachItem(body, items, SetAttr("data-id", (*media.Item).Identifier))
	require.NoError(t, err)

	assert.Equal(t, 4, n)
	assert.Equal(t, `<img src="http://x/p.jpg" data-id="p-original"><img src="http://x/p.jpg" data-id="p-original">`, out)
}

func TestReplaceWithMarkup(t *testing.T) {
	body := "<p>Look:\n<img src=\"http://x/p.jpg\" width=\"10\"></p>"
	items := []*media.Item{item("full", "http://x/p.jpg")}

	out, _, err := RewriteEachItem(body, items, ReplaceWithMarkup(func(it *media.Item) string {
		return `<a href="/images/` + it.Identifier() + `/">` + it.Identifier() + `</a>`
	}))
	require.NoError(t, err)
	assert.Equal(t, "<p>Look:\n<a href=\"/images/p-full/\">p-full</a></p>", out)
}

func FuzzParseRender(f *testing.F) {
	for _, seed := range []string{
		"",
		"<p>Hello <b>world</b></p>",
		"<p>unclosed <b>bold</p> trailing",
		"<script>if (a < b) { x = '<img src=\"u\">'; }</script>",
		"<div><ul><li>one<li>two</ul>",
		"<img src='a.jpg'><img src=\"b.jpg\" />",
		"<a href=\"x",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, body string) {
		frag, err := Parse(body)
		if err != nil {
			return
		}
		out, err := frag.Render()
		if err != nil {
			t.Fatalf("Render failed for %q: %v", body, err)
		}
		if out != body {
			t.Fatalf("Render changed body:\n in: %q\nout: %q", body, out)
		}

		if strings.Contains(body, "data-fuzz-target") {
			return
		}
		rewritten, n, err := RewriteMatches(`<img data-fuzz-target>`+body, "img[data-fuzz-target]", func(sel *goquery.Selection) {
			sel.Remove()
		})
		if err != nil {
			t.Fatalf("RewriteMatches failed for %q: %v", body, err)
		}
		if n != 1 || rewritten != body {
			t.Fatalf("removing a neighbouring element changed %q into %q", body, rewritten)
		}
	})
}

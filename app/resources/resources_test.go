package resources

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/blog-porter/app/media"
	"github.com/lysyi3m/blog-porter/app/record"
	"github.com/lysyi3m/blog-porter/app/rewrite"
)

func loadFixture(t *testing.T, name string) *record.Raw {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name+".json"))
	require.NoError(t, err)
	raw, err := record.Decode(data)
	require.NoError(t, err)
	return raw
}

func TestPostWithoutMedia(t *testing.T) {
	post := NewPost(loadFixture(t, "no-image"))

	assert.Equal(t, KindPost, post.Kind())
	assert.Equal(t, "dangerous-virus-lol-", post.Identifier())

	values, err := post.Attributes()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"title", "tags", "created_at", "posterous_url", "posterous_post_id",
		"is_private", "posterous_slug", "audio", "video", "images",
	}, values.Keys())
	assert.Equal(t, "Dangerous virus! LOL!", values.Get("title"))
	assert.Equal(t, []string{"haha"}, values.Get("tags"))
	assert.Equal(t, "http://ericgj.posterous.com/", values.Get("posterous_url"))
	assert.Equal(t, json.Number("10553656"), values.Get("posterous_post_id"))
	assert.Equal(t, false, values.Get("is_private"))
	assert.Nil(t, values.Get("posterous_slug"))
	assert.Equal(t, []string{}, values.Get("audio"))
	assert.Equal(t, []string{}, values.Get("video"))
	assert.Equal(t, []string{}, values.Get("images"))

	created, ok := values.Get("created_at").(time.Time)
	require.True(t, ok)
	assert.Equal(t, "2010-01-25T17:39:00Z", created.UTC().Format(time.RFC3339))

	visits := 0
	n, err := post.RewriteMediaKind(media.Image, func(sel *goquery.Selection, _ *media.Item) {
		visits++
		sel.SetAttr("foo", "Hi")
	})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, visits)
	assert.Equal(t, post.Content(), post.UpdatedContent())
}

func TestPostWithOneImage(t *testing.T) {
	post := NewPost(loadFixture(t, "one-image"))
	assert.Equal(t, "rare-bird-s-breeding-ground-found-in-afghanistan", post.Identifier())
	assert.Equal(t, []string{"afghanistan", "birds"}, post.Tags())

	images := post.Media().Items(media.Image)
	require.Len(t, images, 1)
	img := images[0]
	assert.Equal(t, "afghanistan_bird_of_hope-full", img.Identifier())

	img.SetIdentifier("/images/afghanistan_bird_of_hope-full/")

	n, err := post.RewriteMediaKind(media.Image, func(sel *goquery.Selection, item *media.Item) {
		src, _ := sel.Attr("src")
		itemAttrs, err := item.Attributes()
		require.NoError(t, err)
		assert.Equal(t, itemAttrs.Get("posterous_url"), src)
		rewrite.ReplaceWithText(func(it *media.Item) string { return "[[" + it.Identifier() + "]]" })(sel, item)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	expected := strings.Replace(post.Content(),
		`<img alt="Afghanistan_bird_of_hope" height="279" src="`+img.URL()+`" width="399" />`,
		"[[/images/afghanistan_bird_of_hope-full/]]", 1)
	assert.NotEqual(t, post.Content(), expected)
	assert.Equal(t, expected, post.UpdatedContent())

	values, err := post.Attributes()
	require.NoError(t, err)
	assert.Equal(t, []string{"/images/afghanistan_bird_of_hope-full/"}, values.Get("images"))
}

func TestPostWithManyImages(t *testing.T) {
	post := NewPost(loadFixture(t, "multi-image"))

	images := post.Media().Items(media.Image)
	require.Len(t, images, 4)

	visits := map[*media.Item]int{}
	n, err := post.RewriteMediaKind(media.Image, func(sel *goquery.Selection, item *media.Item) {
		visits[item]++
		sel.SetAttr("data-id", item.Identifier())
	})
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	for _, item := range images {
		assert.Equal(t, 2, visits[item], item.URL())
	}

	values, err := post.Attributes()
	require.NoError(t, err)
	assert.Equal(t, []string{"harbour-full", "harbour-scaled-", "lighthouse-full", "lighthouse-scaled-"}, values.Get("images"))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(post.UpdatedContent()))
	require.NoError(t, err)
	assert.Equal(t, 8, doc.Find("img[data-id]").Length())
	assert.Equal(t, 2, doc.Find("div.gallery a").Length())
}

func TestRewriteMediaKindOncePerKind(t *testing.T) {
	post := NewPost(loadFixture(t, "one-image"))
	noop := func(*goquery.Selection, *media.Item) {}

	_, err := post.RewriteMediaKind(media.Image, noop)
	require.NoError(t, err)

	_, err = post.RewriteMediaKind(media.Image, noop)
	assert.True(t, errors.Is(err, ErrAlreadyRewritten))

	_, err = post.RewriteMediaKind(media.Audio, noop)
	assert.NoError(t, err)
}

func TestAttributesReflectIdentifierChanges(t *testing.T) {
	post := NewPost(loadFixture(t, "one-image"))

	before, err := post.Attributes()
	require.NoError(t, err)
	assert.Equal(t, []string{"afghanistan_bird_of_hope-full"}, before.Get("images"))

	post.Media().Items(media.Image)[0].SetIdentifier("/images/moved/")

	after, err := post.Attributes()
	require.NoError(t, err)
	assert.Equal(t, []string{"/images/moved/"}, after.Get("images"))
}

func TestPostBadDate(t *testing.T) {
	raw := record.New().With("title", "x").With("display_date", "not a date")

	_, err := NewPost(raw).Attributes()
	require.Error(t, err)
}

func TestPostFallsBackToBody(t *testing.T) {
	post := NewPost(record.New().With("title", "Short").With("body", "<p>short</p>"))
	assert.Equal(t, "<p>short</p>", post.Content())
}

func TestPage(t *testing.T) {
	raw, err := record.Decode([]byte(`{
		"id": 7, "title": "About me", "slug": "about", "full_url": "http://ericgj.posterous.com/pages/about",
		"body": "<p>Hello</p>", "body_full": "ignored", "media": []
	}`))
	require.NoError(t, err)

	page := NewPage(raw)
	assert.Equal(t, "about-me", page.Identifier())
	assert.Equal(t, "<p>Hello</p>", page.Content())

	values, err := page.Attributes()
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "posterous_url", "posterous_post_id", "posterous_slug", "audio", "video", "images"}, values.Keys())
	assert.Equal(t, "about", values.Get("posterous_slug"))
}

func TestUntitledIdentifierUsesKind(t *testing.T) {
	raw, err := record.Decode([]byte(`{"id": 7, "title": "", "slug": null, "body": "<p>Hello</p>"}`))
	require.NoError(t, err)

	assert.Equal(t, "page-7", NewPage(raw).Identifier())
	assert.Equal(t, "post-7", NewPost(raw).Identifier())
	assert.Equal(t, "untitled", NewPage(record.New()).Identifier())
}

func TestTheme(t *testing.T) {
	theme := NewTheme(loadFixture(t, "theme"))

	assert.Equal(t, "journal", theme.Identifier())
	assert.True(t, strings.HasPrefix(theme.Content(), "<!DOCTYPE html>"))

	css, err := theme.CSS()
	require.NoError(t, err)
	assert.Equal(t, "body { margin: 0 }\r\nh1 { color: #333 }", css)

	values, err := theme.Attributes()
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "posterous_theme_id"}, values.Keys())
	assert.Empty(t, theme.Media().All())
}

func TestRegistry(t *testing.T) {
	reg := DefaultRegistry()
	raw := record.New().With("title", "Hello")

	post, ok := reg.Wrap(KindPost, raw).(*Post)
	require.True(t, ok)
	assert.Equal(t, "hello", post.Identifier())
	assert.Same(t, raw, post.Record())

	site := reg.Wrap(KindSite, raw)
	assert.Same(t, raw, site)
	assert.Same(t, raw, site.Record())

	var empty *Registry
	assert.Same(t, raw, empty.Wrap(KindPost, raw))
}

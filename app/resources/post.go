package resources

import (
	"time"

	"github.com/lysyi3m/blog-porter/app/attrs"
	"github.com/lysyi3m/blog-porter/app/record"
	"github.com/lysyi3m/blog-porter/app/slug"
)

// DateLayout is the display_date format of the blog API.
const DateLayout = "2006/01/02 15:04:05 -0700"

var postFields = attrs.Map{
	{Source: "title", Target: "title"},
	{Source: "tags", Target: "tags", Transform: attrs.Names("name")},
	{Source: "display_date", Target: "created_at", Transform: attrs.Time(DateLayout, time.RFC3339, time.RFC1123Z)},
	{Source: "full_url", Target: "posterous_url"},
	{Source: "id", Target: "posterous_post_id"},
	{Source: "is_private", Target: "is_private"},
	{Source: "slug", Target: "posterous_slug"},
}

var pageFields = attrs.Map{
	{Source: "title", Target: "title"},
	{Source: "full_url", Target: "posterous_url"},
	{Source: "id", Target: "posterous_post_id"},
	{Source: "slug", Target: "posterous_slug"},
}

type Post struct {
	document
}

func NewPost(raw *record.Raw) *Post {
	body := raw.String("body_full")
	if body == "" {
		body = raw.String("body")
	}
	return &Post{document{
		kind:       KindPost,
		raw:        raw,
		fields:     postFields,
		content:    body,
		identifier: titleIdentifier(KindPost, raw),
		withMedia:  true,
	}}
}

// Tags returns the names of the post's tags.
func (p *Post) Tags() []string {
	v, _ := attrs.Names("name")(p.raw.Value("tags"))
	return v.([]string)
}

type Page struct {
	document
}

func NewPage(raw *record.Raw) *Page {
	return &Page{document{
		kind:       KindPage,
		raw:        raw,
		fields:     pageFields,
		content:    raw.String("body"),
		identifier: titleIdentifier(KindPage, raw),
		withMedia:  true,
	}}
}

// titleIdentifier derives a document identifier from its title, falling
// back to the slug and then the kind and record id.
func titleIdentifier(kind Kind, raw *record.Raw) string {
	for _, key := range []string{"title", "slug"} {
		if id := slug.Normalize(raw.String(key)); id != "" && id != "-" {
			return id
		}
	}
	if id := raw.String("id"); id != "" {
		return string(kind) + "-" + id
	}
	return "untitled"
}

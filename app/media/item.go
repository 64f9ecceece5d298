package media

import (
	"context"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/lysyi3m/blog-porter/app/attrs"
	"github.com/lysyi3m/blog-porter/app/record"
	"github.com/lysyi3m/blog-porter/app/slug"
)

var itemAttributes = attrs.Map{
	{Source: "height", Target: "height"},
	{Source: "width", Target: "width"},
	{Source: "size", Target: "size"},
	{Source: "caption", Target: "caption"},
	{Source: "url", Target: "posterous_url"},
	{Source: "username", Target: "posterous_user"},
	{Source: "post_id", Target: "posterous_post_id"},
}

// Item is one embedded media file at one rendition.
type Item struct {
	kind       Kind
	scale      string
	raw        *record.Raw
	identifier string
	content    *os.File
	ownsFile   bool
}

func NewItem(kind Kind, scale string, raw *record.Raw) *Item {
	return &Item{kind: kind, scale: scale, raw: raw}
}

func (i *Item) Kind() Kind { return i.kind }

func (i *Item) Scale() string { return i.scale }

func (i *Item) Raw() *record.Raw { return i.raw }

func (i *Item) URL() string { return i.raw.String("url") }

// Identifier defaults to the normalized "<basename>-<scale>".
func (i *Item) Identifier() string {
	if i.identifier == "" {
		i.identifier = slug.Normalize(i.Basename() + "-" + i.scale)
	}
	return i.identifier
}

// SetIdentifier overrides the identifier once the item has been placed in
// the destination store.
func (i *Item) SetIdentifier(id string) {
	i.identifier = id
}

// Basename is the file name of the source URL with the scale infix and the
// extension removed: ".../photo.scaled500.jpg" gives "photo".
func (i *Item) Basename() string {
	name := i.filename()
	return strings.TrimSuffix(name, extension(name))
}

// Extension of the source file, including the leading dot.
func (i *Item) Extension() string {
	return extension(i.filename())
}

func (i *Item) filename() string {
	raw := i.URL()
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}

	name := path.Base(p)
	if name == "." || name == "/" {
		return ""
	}
	if i.scale != "" {
		name = strings.ReplaceAll(name, "."+i.scale, "")
	}
	return name
}

func extension(name string) string {
	ext := path.Ext(name)
	if ext == name {
		return ""
	}
	return ext
}

func (i *Item) Attributes() (*attrs.Values, error) {
	return itemAttributes.Apply(i.raw)
}

// Selector matches the image elements embedding this item's source URL.
func (i *Item) Selector() string {
	return `img[src="` + escapeSelectorString(i.URL()) + `"]`
}

func escapeSelectorString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\a `)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Content downloads the item once and returns the seekable file holding it.
// dst may be nil, in which case the downloader picks a temporary file.
func (i *Item) Content(ctx context.Context, d Downloader, dst *os.File) (*os.File, error) {
	if i.content != nil {
		if _, err := i.content.Seek(0, 0); err != nil {
			return nil, err
		}
		return i.content, nil
	}

	f, err := d.Download(ctx, i.URL(), dst)
	if err != nil {
		return nil, err
	}
	i.content = f
	i.ownsFile = dst == nil
	return f, nil
}

// Release closes and removes the file the downloader created. A destination
// passed to Content belongs to the caller and is left alone.
func (i *Item) Release() error {
	if i.content == nil {
		return nil
	}
	f := i.content
	i.content = nil
	if !i.ownsFile {
		return nil
	}
	i.ownsFile = false
	closeErr := f.Close()
	if err := os.Remove(f.Name()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return closeErr
}

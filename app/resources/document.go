package resources

import (
	"errors"
	"fmt"

	"github.com/lysyi3m/blog-porter/app/attrs"
	"github.com/lysyi3m/blog-porter/app/media"
	"github.com/lysyi3m/blog-porter/app/record"
	"github.com/lysyi3m/blog-porter/app/rewrite"
)

var ErrAlreadyRewritten = errors.New("media kind already rewritten for this document")

// Resource is whatever a transport hands back: a Document, or the bare
// record when no Document type is registered for its kind.
type Resource interface {
	Record() *record.Raw
}

type Document interface {
	Resource
	Kind() Kind
	Identifier() string
	SetIdentifier(id string)
	Content() string
	UpdatedContent() string
	Media() media.Collection
	Attributes() (*attrs.Values, error)
	RewriteMatches(selector string, visit rewrite.Visit) (int, error)
	RewriteMediaKind(kind media.Kind, visit rewrite.ItemVisit) (int, error)
}

// document holds the behaviour shared by posts and pages.
type document struct {
	kind       Kind
	raw        *record.Raw
	fields     attrs.Map
	content    string
	updated    *string
	identifier string
	media      media.Collection
	withMedia  bool
	rewritten  map[media.Kind]bool
}

func (d *document) Record() *record.Raw { return d.raw }

func (d *document) Kind() Kind { return d.kind }

func (d *document) Identifier() string {
	return d.identifier
}

func (d *document) SetIdentifier(id string) {
	d.identifier = id
}

func (d *document) Content() string {
	return d.content
}

func (d *document) UpdatedContent() string {
	if d.updated == nil {
		return d.content
	}
	return *d.updated
}

func (d *document) setUpdated(body string) {
	d.updated = &body
}

func (d *document) Media() media.Collection {
	if d.media == nil {
		if d.withMedia {
			d.media = media.Extract(d.raw)
		} else {
			d.media = media.Extract(nil)
		}
	}
	return d.media
}

// Attributes maps the record and appends the identifiers of every media
// kind. The result is rebuilt on each call since item identifiers change
// once items are stored.
func (d *document) Attributes() (*attrs.Values, error) {
	values, err := d.fields.Apply(d.raw)
	if err != nil {
		return nil, fmt.Errorf("failed to map %s attributes: %w", d.kind, err)
	}
	if !d.withMedia {
		return values, nil
	}

	c := d.Media()
	for _, k := range media.Kinds {
		values.Set(k.AttributeKey(), c.Identifiers(k))
	}
	return values, nil
}

func (d *document) RewriteMatches(selector string, visit rewrite.Visit) (int, error) {
	out, n, err := rewrite.RewriteMatches(d.UpdatedContent(), selector, visit)
	if err != nil {
		return 0, err
	}
	d.setUpdated(out)
	return n, nil
}

// RewriteMediaKind rewrites the embeds of every item of the kind. Each kind
// can be rewritten once per document.
func (d *document) RewriteMediaKind(kind media.Kind, visit rewrite.ItemVisit) (int, error) {
	if d.rewritten[kind] {
		return 0, fmt.Errorf("%s %q, %s: %w", d.kind, d.identifier, kind, ErrAlreadyRewritten)
	}

	out, n, err := rewrite.RewriteEachItem(d.UpdatedContent(), d.Media().Items(kind), visit)
	if err != nil {
		return 0, err
	}
	d.setUpdated(out)

	if d.rewritten == nil {
		d.rewritten = make(map[media.Kind]bool)
	}
	d.rewritten[kind] = true
	return n, nil
}

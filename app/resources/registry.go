package resources

import (
	"github.com/lysyi3m/blog-porter/app/record"
)

// Kind labels the records a blog transport returns.
type Kind string

const (
	KindPost  Kind = "post"
	KindPage  Kind = "page"
	KindTheme Kind = "theme"
	KindUser  Kind = "user"
	KindSite  Kind = "site"
)

type Constructor func(raw *record.Raw) Document

// Registry maps record kinds to the Document type wrapping them.
type Registry struct {
	constructors map[Kind]Constructor
}

func NewRegistry() *Registry {
	return &Registry{constructors: make(map[Kind]Constructor)}
}

// DefaultRegistry wraps posts, pages and themes.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(KindPost, func(raw *record.Raw) Document { return NewPost(raw) })
	r.Register(KindPage, func(raw *record.Raw) Document { return NewPage(raw) })
	r.Register(KindTheme, func(raw *record.Raw) Document { return NewTheme(raw) })
	return r
}

func (r *Registry) Register(kind Kind, c Constructor) {
	r.constructors[kind] = c
}

func (r *Registry) Lookup(kind Kind) (Constructor, bool) {
	if r == nil {
		return nil, false
	}
	c, ok := r.constructors[kind]
	return c, ok
}

// Wrap returns the registered Document for the record, or the record itself
// when nothing is registered for kind.
func (r *Registry) Wrap(kind Kind, raw *record.Raw) Resource {
	if c, ok := r.Lookup(kind); ok {
		return c(raw)
	}
	return raw
}

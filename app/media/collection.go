package media

import "github.com/lysyi3m/blog-porter/app/record"

// Collection groups a record's media items by kind, in listing order.
type Collection map[Kind][]*Item

func (c Collection) Items(kind Kind) []*Item {
	return c[kind]
}

// All returns every item of every kind.
func (c Collection) All() []*Item {
	var out []*Item
	for _, k := range Kinds {
		out = append(out, c[k]...)
	}
	return out
}

// Identifiers returns the current identifiers of the kind's items.
func (c Collection) Identifiers(kind Kind) []string {
	items := c[kind]
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.Identifier())
	}
	return ids
}

// Extract builds the media collection from the record's "media" listing.
// Image groups are flattened rendition by rendition; audio and video
// listings are recognised but yield no items.
func Extract(raw *record.Raw) Collection {
	c := Collection{
		Image: []*Item{},
		Audio: []*Item{},
		Video: []*Item{},
	}

	for _, entry := range raw.Objects("media") {
		for _, key := range entry.Keys() {
			if key != Image.ListingKey() {
				continue
			}
			for _, group := range entry.Objects(key) {
				for _, scale := range group.Keys() {
					attrs := group.Object(scale)
					if attrs == nil {
						continue
					}
					c[Image] = append(c[Image], NewItem(Image, scale, attrs))
				}
			}
		}
	}

	return c
}

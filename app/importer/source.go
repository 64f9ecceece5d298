package importer

import (
	"context"
	"net/url"

	"github.com/lysyi3m/blog-porter/app/feed"
	"github.com/lysyi3m/blog-porter/app/record"
	"github.com/lysyi3m/blog-porter/app/resources"
)

// BlogSource lists a blog's resources. *client.Client implements it.
type BlogSource interface {
	EachPost(ctx context.Context, query url.Values, fn func(resources.Resource) error) error
	Pages(ctx context.Context, query url.Values) ([]resources.Resource, error)
	Theme(ctx context.Context, query url.Values) (resources.Resource, error)
}

// FeedSource fetches feed entries as post records. *feed.Source implements it.
type FeedSource interface {
	Fetch(ctx context.Context, feedConfig *feed.Config) (*feed.Metadata, []*record.Raw, error)
}

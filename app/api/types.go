package api

import (
	"github.com/lysyi3m/blog-porter/app/database"
	"github.com/lysyi3m/blog-porter/app/feed"
	"github.com/lysyi3m/blog-porter/app/store"
)

type GeneratorInterface interface {
	Run(channel feed.Channel, docs []database.Document) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

// ItemReader reads created items back from the content store.
type ItemReader interface {
	ReadItem(identifier, ext string) (*store.StoredItem, error)
}

var _ ItemReader = (*store.FileStore)(nil)

// SiteInfo describes the imported site in the generated feed.
type SiteInfo struct {
	Title   string
	Link    string
	BaseURL string
	Version string
}

type Handler struct {
	documents database.DocumentRepository
	media     database.MediaRepository
	stats     database.StatsRepository
	items     ItemReader
	generator GeneratorInterface
	site      SiteInfo
}

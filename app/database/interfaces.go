package database

type DocumentRepository interface {
	GetDocument(kind, sourceID string) (*Document, error)
	GetDocumentByIdentifier(identifier string) (*Document, error)
	ListDocuments(kind string, limit int) ([]Document, error)

	UpsertDocument(doc Document) (int64, error)
	IsImported(kind, sourceID, contentHash string) (bool, error)
}

type MediaRepository interface {
	ListMedia(documentID int64) ([]Media, error)
	ListAllMedia(status string, limit int) ([]Media, error)
	IsIdentifierClaimed(identifier, url string) (bool, error)

	UpsertMedia(m Media) error
}

type StatsRepository interface {
	GetStats() (*Stats, error)
}

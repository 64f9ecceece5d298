package database

import (
	"time"
)

const (
	StatusImported = "imported"
	StatusFailed   = "failed"
	StatusSkipped  = "skipped"
)

type Document struct {
	ID          int64
	Kind        string // post, page, theme
	SourceID    string // id of the record at the source
	Identifier  string // store identifier, e.g. /posts/hello/
	Title       string
	SourceURL   string
	ContentHash string
	Status      string
	Error       string
	Attributes  string // JSON
	ImportedAt  time.Time
	UpdatedAt   time.Time
}

type Media struct {
	ID         int64
	DocumentID int64
	Kind       string
	URL        string
	Scale      string
	Identifier string
	Extension  string
	Size       int64
	Status     string
	Error      string
	Attempts   int
	CreatedAt  time.Time
}

type Stats struct {
	Documents map[string]int // by status
	Media     map[string]int // by status
	Kinds     map[string]int // imported documents by kind
}

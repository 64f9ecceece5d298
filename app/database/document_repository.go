package database

import (
	"database/sql"
	"errors"
	"fmt"
)

// DocumentRepo handles ledger rows for imported documents
type DocumentRepo struct {
	db *DB
}

func NewDocumentRepository(db *DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

const documentColumns = `id, kind, source_id, identifier, title, source_url, content_hash,
	status, error, attributes, imported_at, updated_at`

func scanDocument(row interface{ Scan(...any) error }) (*Document, error) {
	var doc Document
	var importedAt, updatedAt string
	err := row.Scan(&doc.ID, &doc.Kind, &doc.SourceID, &doc.Identifier, &doc.Title,
		&doc.SourceURL, &doc.ContentHash, &doc.Status, &doc.Error, &doc.Attributes,
		&importedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	doc.ImportedAt = parseTime(importedAt)
	doc.UpdatedAt = parseTime(updatedAt)
	return &doc, nil
}

// GetDocument returns nil when the record has never been seen
func (r *DocumentRepo) GetDocument(kind, sourceID string) (*Document, error) {
	row := r.db.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE kind = ? AND source_id = ?`, kind, sourceID)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepo) GetDocumentByIdentifier(identifier string) (*Document, error) {
	row := r.db.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE identifier = ? ORDER BY id LIMIT 1`, identifier)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document by identifier: %w", err)
	}
	return doc, nil
}

// ListDocuments returns documents newest first. An empty kind lists all kinds.
func (r *DocumentRepo) ListDocuments(kind string, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(`
		SELECT `+documentColumns+`
		FROM documents
		WHERE (? = '' OR kind = ?)
		ORDER BY updated_at DESC, id DESC
		LIMIT ?
	`, kind, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}

	return docs, nil
}

// UpsertDocument records the outcome of importing a record and returns its row id
func (r *DocumentRepo) UpsertDocument(doc Document) (int64, error) {
	if doc.Attributes == "" {
		doc.Attributes = "{}"
	}
	ts := now()

	var id int64
	err := r.db.QueryRow(`
		INSERT INTO documents (
			kind, source_id, identifier, title, source_url, content_hash,
			status, error, attributes, imported_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (kind, source_id) DO UPDATE SET
			identifier = excluded.identifier,
			title = excluded.title,
			source_url = excluded.source_url,
			content_hash = excluded.content_hash,
			status = excluded.status,
			error = excluded.error,
			attributes = excluded.attributes,
			updated_at = excluded.updated_at
		RETURNING id
	`, doc.Kind, doc.SourceID, doc.Identifier, doc.Title, doc.SourceURL, doc.ContentHash,
		doc.Status, doc.Error, doc.Attributes, ts, ts).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert document: %w", err)
	}

	return id, nil
}

// IsImported reports whether the record was imported successfully with the
// same content hash. An empty hash matches any previous import.
func (r *DocumentRepo) IsImported(kind, sourceID, contentHash string) (bool, error) {
	var status, hash string
	err := r.db.QueryRow(`SELECT status, content_hash FROM documents WHERE kind = ? AND source_id = ?`,
		kind, sourceID).Scan(&status, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check document: %w", err)
	}

	if status != StatusImported {
		return false, nil
	}
	return contentHash == "" || contentHash == hash, nil
}

func (r *DocumentRepo) GetStats() (*Stats, error) {
	stats := &Stats{
		Documents: make(map[string]int),
		Media:     make(map[string]int),
		Kinds:     make(map[string]int),
	}

	queries := []struct {
		query string
		into  map[string]int
	}{
		{`SELECT status, COUNT(*) FROM documents GROUP BY status`, stats.Documents},
		{`SELECT status, COUNT(*) FROM media GROUP BY status`, stats.Media},
		{`SELECT kind, COUNT(*) FROM documents WHERE status = 'imported' GROUP BY kind`, stats.Kinds},
	}

	for _, q := range queries {
		if err := r.countInto(q.query, q.into); err != nil {
			return nil, err
		}
	}

	return stats, nil
}

func (r *DocumentRepo) countInto(query string, into map[string]int) error {
	rows, err := r.db.Query(query)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("failed to scan stats row: %w", err)
		}
		into[key] = count
	}
	return rows.Err()
}

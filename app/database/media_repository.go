package database

import (
	"fmt"
)

// MediaRepo handles ledger rows for downloaded media items
type MediaRepo struct {
	db *DB
}

func NewMediaRepository(db *DB) *MediaRepo {
	return &MediaRepo{db: db}
}

const mediaColumns = `id, document_id, kind, url, scale, identifier, extension, size,
	status, error, attempts, created_at`

func (r *MediaRepo) UpsertMedia(m Media) error {
	_, err := r.db.Exec(`
		INSERT INTO media (
			document_id, kind, url, scale, identifier, extension, size,
			status, error, attempts, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (document_id, url, scale) DO UPDATE SET
			identifier = excluded.identifier,
			extension = excluded.extension,
			size = excluded.size,
			status = excluded.status,
			error = excluded.error,
			attempts = excluded.attempts
	`, m.DocumentID, m.Kind, m.URL, m.Scale, m.Identifier, m.Extension, m.Size,
		m.Status, m.Error, m.Attempts, now())
	if err != nil {
		return fmt.Errorf("failed to upsert media: %w", err)
	}
	return nil
}

// IsIdentifierClaimed reports whether a stored media item from another URL
// already uses identifier.
func (r *MediaRepo) IsIdentifierClaimed(identifier, url string) (bool, error) {
	var claimed bool
	err := r.db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM media
			WHERE identifier = ? AND url != ? AND status = ?
		)
	`, identifier, url, StatusImported).Scan(&claimed)
	if err != nil {
		return false, fmt.Errorf("failed to check media identifier: %w", err)
	}
	return claimed, nil
}

func (r *MediaRepo) ListMedia(documentID int64) ([]Media, error) {
	return r.query(`SELECT `+mediaColumns+` FROM media WHERE document_id = ? ORDER BY id`, documentID)
}

// ListAllMedia lists media across documents. An empty status lists all.
func (r *MediaRepo) ListAllMedia(status string, limit int) ([]Media, error) {
	if limit <= 0 {
		limit = -1
	}
	return r.query(`
		SELECT `+mediaColumns+`
		FROM media
		WHERE (? = '' OR status = ?)
		ORDER BY id DESC
		LIMIT ?
	`, status, status, limit)
}

func (r *MediaRepo) query(query string, args ...any) ([]Media, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}
	defer rows.Close()

	var out []Media
	for rows.Next() {
		var m Media
		var createdAt string
		err := rows.Scan(&m.ID, &m.DocumentID, &m.Kind, &m.URL, &m.Scale, &m.Identifier,
			&m.Extension, &m.Size, &m.Status, &m.Error, &m.Attempts, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media row: %w", err)
		}
		m.CreatedAt = parseTime(createdAt)
		out = append(out, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating media rows: %w", err)
	}

	return out, nil
}

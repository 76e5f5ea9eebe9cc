package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"docintake/internal/model"
	"docintake/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

// Insert stores a new document row in an explicitly scoped transaction.
// The id is assigned by the database; the returned record carries it.
func (r *DocumentPostgres) Insert(ctx context.Context, doc *model.Document) (*model.Document, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}

	const q = `
		INSERT INTO documents (original_filename, stored_path, uploaded_at)
		VALUES ($1, $2, $3)
		RETURNING id, original_filename, stored_path, uploaded_at
	`
	var out model.Document
	err = tx.QueryRowContext(ctx, q,
		doc.OriginalFilename,
		doc.StoredPath,
		doc.UploadedAt,
	).Scan(
		&out.ID,
		&out.OriginalFilename,
		&out.StoredPath,
		&out.UploadedAt,
	)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &out, nil
}

// FindByID fetches a single document by its id. sql.ErrNoRows passes
// through for the caller to translate.
func (r *DocumentPostgres) FindByID(ctx context.Context, id int64) (*model.Document, error) {
	const q = `
		SELECT id, original_filename, stored_path, uploaded_at
		FROM documents
		WHERE id = $1
	`
	var d model.Document
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID,
		&d.OriginalFilename,
		&d.StoredPath,
		&d.UploadedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// List returns every document ordered by id, i.e. insertion order.
func (r *DocumentPostgres) List(ctx context.Context) ([]model.Document, error) {
	const q = `
		SELECT id, original_filename, stored_path, uploaded_at
		FROM documents
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(
			&d.ID,
			&d.OriginalFilename,
			&d.StoredPath,
			&d.UploadedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

package repository

import (
	"context"
	"errors"

	"clausewise-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no row matches
var ErrNotFound = errors.New("record not found")

// DocumentRepository handles database operations for registered documents
type DocumentRepository struct {
	db *pgxpool.Pool
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, session_id, filename, mime_type, size, storage_path, last_analysis, created_at, analyzed_at`

func scanDocument(row pgx.Row) (*models.Document, error) {
	doc := &models.Document{}
	var analysis []byte
	err := row.Scan(
		&doc.ID,
		&doc.SessionID,
		&doc.Filename,
		&doc.MimeType,
		&doc.Size,
		&doc.StoragePath,
		&analysis,
		&doc.CreatedAt,
		&doc.AnalyzedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(analysis) > 0 {
		doc.LastAnalysis = &models.DocumentAnalysis{}
		if err := doc.LastAnalysis.Scan(analysis); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// Create inserts a document record, assigning an ID when none is set.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	query := `
		INSERT INTO documents (
			id, session_id, filename, mime_type, size, storage_path
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	return r.db.QueryRow(
		ctx, query,
		doc.ID,
		doc.SessionID,
		doc.Filename,
		doc.MimeType,
		doc.Size,
		doc.StoragePath,
	).Scan(&doc.CreatedAt)
}

// GetByID retrieves a document by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.db.QueryRow(ctx, query, id))
}

// ListBySession retrieves the documents registered in a session, newest first
func (r *DocumentRepository) ListBySession(ctx context.Context, sessionID string) ([]*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE session_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []*models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// UpdateAnalysis stores the latest analysis of a document
func (r *DocumentRepository) UpdateAnalysis(ctx context.Context, id uuid.UUID, analysis *models.DocumentAnalysis) error {
	query := `UPDATE documents SET last_analysis = $2, analyzed_at = $3 WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, analysis, analysis.AnalyzedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete deletes a document record
func (r *DocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM documents WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

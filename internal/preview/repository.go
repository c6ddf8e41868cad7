package preview

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"headless/internal/apperr"
	"headless/internal/database"
	"headless/internal/models"
)

// MaxAge is how long a stored preview stays retrievable.
const MaxAge = 24 * time.Hour

// Repository stores unsaved page snapshots shared by token.
type Repository struct {
	DB  *sql.DB
	Now func() time.Time
}

// NewRepository creates a new preview repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db, Now: time.Now}
}

func (r *Repository) now() time.Time {
	if r.Now == nil {
		return time.Now().UTC()
	}
	return r.Now().UTC()
}

// Create stores a snapshot under a fresh token and drops expired ones.
func (r *Repository) Create(ctx context.Context, pageType string, content models.RevisionContent) (models.PagePreview, error) {
	if _, err := r.collectGarbage(ctx); err != nil {
		return models.PagePreview{}, err
	}

	raw, err := content.Marshal()
	if err != nil {
		return models.PagePreview{}, err
	}
	p := models.PagePreview{
		Token:     uuid.NewString(),
		PageType:  pageType,
		Content:   content,
		CreatedAt: r.now(),
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO page_previews (token, page_type, content, created_at) VALUES (?, ?, ?, ?)",
		p.Token, p.PageType, raw, database.Timestamp(p.CreatedAt))
	if err != nil {
		return models.PagePreview{}, fmt.Errorf("error creating preview: %w", err)
	}
	return p, nil
}

// Get finds an unexpired preview by page type and token.
func (r *Repository) Get(ctx context.Context, pageType, token string) (models.PagePreview, error) {
	var p models.PagePreview
	var raw string
	err := r.DB.QueryRowContext(ctx, `
		SELECT token, page_type, content, created_at FROM page_previews
		WHERE token = ? AND page_type = ? AND created_at > ?`,
		token, pageType, database.Timestamp(r.now().Add(-MaxAge))).Scan(&p.Token, &p.PageType, &raw, &p.CreatedAt)
	if err != nil {
		return models.PagePreview{}, apperr.FromNoRows(err, "preview not found")
	}
	p.Content, err = models.UnmarshalRevisionContent(raw)
	if err != nil {
		return models.PagePreview{}, fmt.Errorf("decoding preview %s: %w", token, err)
	}
	return p, nil
}

func (r *Repository) collectGarbage(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM page_previews WHERE created_at <= ?", database.Timestamp(r.now().Add(-MaxAge)))
	if err != nil {
		return 0, fmt.Errorf("error deleting expired previews: %w", err)
	}
	return res.RowsAffected()
}

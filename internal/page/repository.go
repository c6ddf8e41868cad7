package page

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"headless/internal/apperr"
	"headless/internal/database"
	"headless/internal/models"
	"headless/internal/pagetype"
)

const pageColumns = `p.id, p.parent_id, p.slug, p.title, p.page_type, p.body, p.live,
	p.has_unpublished_changes, p.first_published_at, p.last_published_at,
	p.live_revision_id, p.latest_revision_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanPage(s scanner) (models.Page, error) {
	var p models.Page
	err := s.Scan(&p.ID, &p.ParentID, &p.Slug, &p.Title, &p.PageType, &p.Body, &p.Live,
		&p.HasUnpublishedChanges, &p.FirstPublishedAt, &p.LastPublishedAt,
		&p.LiveRevisionID, &p.LatestRevisionID)
	return p, err
}

// Repository provides access to the page tree and its revisions.
type Repository struct {
	DB  *sql.DB
	Now func() time.Time
}

// NewRepository creates a new page repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db, Now: time.Now}
}

func (r *Repository) now() time.Time {
	if r.Now == nil {
		return time.Now().UTC()
	}
	return r.Now().UTC()
}

// queryOne runs a single-row page query and reports whether a row existed.
func (r *Repository) queryOne(ctx context.Context, query string, args ...any) (models.Page, bool, error) {
	p, err := scanPage(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Page{}, false, nil
	}
	if err != nil {
		return models.Page{}, false, err
	}
	return p, true, nil
}

// Get finds a page by id regardless of its live state.
func (r *Repository) Get(ctx context.Context, id int) (models.Page, error) {
	p, ok, err := r.queryOne(ctx, "SELECT "+pageColumns+" FROM pages p WHERE p.id = ?", id)
	if err != nil {
		return models.Page{}, err
	}
	if !ok {
		return models.Page{}, apperr.NotFound("page not found")
	}
	return p, nil
}

// ChildBySlug finds a direct child of parentID, live or not, by its current
// slug. A live child wins over a draft twin.
func (r *Repository) ChildBySlug(ctx context.Context, parentID int, slug string) (models.Page, bool, error) {
	return r.queryOne(ctx, "SELECT "+pageColumns+` FROM pages p
		WHERE p.parent_id = ? AND p.slug = ?
		ORDER BY p.live DESC, p.id ASC LIMIT 1`, parentID, slug)
}

// LiveChildBySlug finds a live direct child of parentID by its current slug.
func (r *Repository) LiveChildBySlug(ctx context.Context, parentID int, slug string) (models.Page, bool, error) {
	return r.queryOne(ctx, "SELECT "+pageColumns+` FROM pages p
		WHERE p.parent_id = ? AND p.slug = ? AND p.live = 1`, parentID, slug)
}

// MostRecentHistoricalMatch finds the owner of the newest revision, among
// all descendants of ancestorID, that recorded slug.
func (r *Repository) MostRecentHistoricalMatch(ctx context.Context, ancestorID int, slug string) (models.Page, bool, error) {
	return r.queryOne(ctx, `
		WITH RECURSIVE descendants(id) AS (
			SELECT id FROM pages WHERE parent_id = ?
			UNION ALL
			SELECT c.id FROM pages c JOIN descendants d ON c.parent_id = d.id
		)
		SELECT `+pageColumns+` FROM revisions r
		JOIN pages p ON p.id = r.page_id
		WHERE r.slug = ? AND r.page_id IN (SELECT id FROM descendants)
		ORDER BY r.created_at DESC, r.id DESC LIMIT 1`, ancestorID, slug)
}

func (r *Repository) scanRevision(s scanner) (models.Revision, error) {
	var rev models.Revision
	var content string
	if err := s.Scan(&rev.ID, &rev.PageID, &rev.Slug, &content, &rev.CreatedAt); err != nil {
		return models.Revision{}, err
	}
	c, err := models.UnmarshalRevisionContent(content)
	if err != nil {
		return models.Revision{}, fmt.Errorf("decoding revision %d: %w", rev.ID, err)
	}
	rev.Content = c
	return rev, nil
}

// LatestRevision returns the newest revision of a page.
func (r *Repository) LatestRevision(ctx context.Context, pageID int) (models.Revision, bool, error) {
	rev, err := r.scanRevision(r.DB.QueryRowContext(ctx, `
		SELECT id, page_id, slug, content, created_at FROM revisions
		WHERE page_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`, pageID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Revision{}, false, nil
	}
	if err != nil {
		return models.Revision{}, false, err
	}
	return rev, true, nil
}

// LatestRevisionSlug returns the slug recorded by the newest revision.
func (r *Repository) LatestRevisionSlug(ctx context.Context, pageID int) (string, bool, error) {
	rev, ok, err := r.LatestRevision(ctx, pageID)
	if err != nil || !ok {
		return "", ok, err
	}
	return rev.Slug, true, nil
}

// GetRevision finds a revision by id.
func (r *Repository) GetRevision(ctx context.Context, id int) (models.Revision, error) {
	rev, err := r.scanRevision(r.DB.QueryRowContext(ctx,
		"SELECT id, page_id, slug, content, created_at FROM revisions WHERE id = ?", id))
	if err != nil {
		return models.Revision{}, apperr.FromNoRows(err, "revision not found")
	}
	return rev, nil
}

// ListRevisions lists a page's revisions, newest first.
func (r *Repository) ListRevisions(ctx context.Context, pageID int) ([]models.Revision, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, page_id, slug, content, created_at FROM revisions
		WHERE page_id = ? ORDER BY created_at DESC, id DESC`, pageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var revisions []models.Revision
	for rows.Next() {
		rev, err := r.scanRevision(rows)
		if err != nil {
			return nil, err
		}
		revisions = append(revisions, rev)
	}
	return revisions, rows.Err()
}

// PathFrom returns the slugs leading from rootID down to pageID, and false
// when pageID is not rootID or one of its descendants.
func (r *Repository) PathFrom(ctx context.Context, rootID, pageID int) ([]string, bool, error) {
	var slugs []string
	id := pageID
	for id != rootID {
		var slug string
		var parentID sql.NullInt64
		err := r.DB.QueryRowContext(ctx, "SELECT slug, parent_id FROM pages WHERE id = ?", id).Scan(&slug, &parentID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		if !parentID.Valid {
			return nil, false, nil
		}
		slugs = append([]string{slug}, slugs...)
		id = int(parentID.Int64)
	}
	return slugs, true, nil
}

// URLPath renders PathFrom as "/a/b/", the form html_path is given in.
func URLPath(slugs []string) string {
	if len(slugs) == 0 {
		return "/"
	}
	return "/" + strings.Join(slugs, "/") + "/"
}

// ListFilter narrows List. SiteRootID is required.
// NoLimit lists every matching page.
const NoLimit = -1

// ListFilter selects pages for List. Limit 0 returns no pages; use NoLimit
// for all of them.
type ListFilter struct {
	SiteRootID   int
	LiveOnly     bool
	ChildOf      *int
	DescendantOf *int
	Slug         string
	Types        pagetype.Filter
	Limit        int
	Offset       int
}

// List returns the pages of a site matching f, plus the total count before
// limit and offset are applied.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]models.Page, int, error) {
	ctes := []string{`site_tree(id) AS (
			SELECT id FROM pages WHERE id = ?
			UNION ALL
			SELECT c.id FROM pages c JOIN site_tree t ON c.parent_id = t.id
		)`}
	args := []any{f.SiteRootID}
	where := []string{"p.id IN (SELECT id FROM site_tree)"}

	if f.DescendantOf != nil {
		ctes = append(ctes, `under(id) AS (
			SELECT id FROM pages WHERE parent_id = ?
			UNION ALL
			SELECT c.id FROM pages c JOIN under u ON c.parent_id = u.id
		)`)
		args = append(args, *f.DescendantOf)
		where = append(where, "p.id IN (SELECT id FROM under)")
	}
	if f.LiveOnly {
		where = append(where, "p.live = 1")
	}
	if f.ChildOf != nil {
		where = append(where, "p.parent_id = ?")
		args = append(args, *f.ChildOf)
	}
	if f.Slug != "" {
		where = append(where, "p.slug = ?")
		args = append(args, f.Slug)
	}
	if clause, typeArgs := f.Types.SQL("p.page_type"); clause != "" {
		where = append(where, clause)
		args = append(args, typeArgs...)
	}

	base := "WITH RECURSIVE " + strings.Join(ctes, ", ") + " SELECT %s FROM pages p WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRowContext(ctx, fmt.Sprintf(base, "COUNT(*)"), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit < 0 {
		limit = NoLimit
	}
	query := fmt.Sprintf(base, pageColumns) + " ORDER BY p.id LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var pages []models.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, 0, err
		}
		pages = append(pages, p)
	}
	return pages, total, rows.Err()
}

// Create inserts a draft page under parentID together with its initial
// revision, in a transaction.
func (r *Repository) Create(ctx context.Context, parentID int, pageType string, content models.RevisionContent) (models.Page, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.Page{}, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if pageType == "" {
		pageType = pagetype.Base
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO pages (parent_id, slug, title, page_type, body, live) VALUES (?, ?, ?, ?, ?, 0)",
		parentID, content.Slug, content.Title, pageType, content.Body)
	if err != nil {
		return models.Page{}, fmt.Errorf("error creating page: %w", err)
	}
	pageID, err := res.LastInsertId()
	if err != nil {
		return models.Page{}, err
	}

	if _, err := r.appendRevision(ctx, tx, int(pageID), content); err != nil {
		return models.Page{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Page{}, fmt.Errorf("error committing transaction: %w", err)
	}
	return r.Get(ctx, int(pageID))
}

// CreateRevision appends a revision to a page without touching its live
// fields.
func (r *Repository) CreateRevision(ctx context.Context, pageID int, content models.RevisionContent) (models.Revision, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.Revision{}, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	rev, err := r.appendRevision(ctx, tx, pageID, content)
	if err != nil {
		return models.Revision{}, err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE pages SET has_unpublished_changes = 1 WHERE id = ?", pageID); err != nil {
		return models.Revision{}, fmt.Errorf("error flagging unpublished changes: %w", err)
	}
	return rev, tx.Commit()
}

func (r *Repository) appendRevision(ctx context.Context, tx *sql.Tx, pageID int, content models.RevisionContent) (models.Revision, error) {
	raw, err := content.Marshal()
	if err != nil {
		return models.Revision{}, err
	}
	createdAt := r.now()
	res, err := tx.ExecContext(ctx,
		"INSERT INTO revisions (page_id, slug, content, created_at) VALUES (?, ?, ?, ?)",
		pageID, content.Slug, raw, database.Timestamp(createdAt))
	if err != nil {
		return models.Revision{}, fmt.Errorf("error creating revision: %w", err)
	}
	revisionID, err := res.LastInsertId()
	if err != nil {
		return models.Revision{}, err
	}

	_, err = tx.ExecContext(ctx, "UPDATE pages SET latest_revision_id = ? WHERE id = ?", revisionID, pageID)
	if err != nil {
		return models.Revision{}, fmt.Errorf("error updating page with revision ID: %w", err)
	}
	return models.Revision{ID: int(revisionID), PageID: pageID, Slug: content.Slug, Content: content, CreatedAt: createdAt}, nil
}

// Publish copies the page's latest revision into its live fields.
func (r *Repository) Publish(ctx context.Context, pageID int) error {
	rev, ok, err := r.LatestRevision(ctx, pageID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("page has no revisions")
	}

	now := database.Timestamp(r.now())
	_, err = r.DB.ExecContext(ctx, `
		UPDATE pages SET slug = ?, title = ?, body = ?, live = 1,
			has_unpublished_changes = 0, live_revision_id = ?,
			first_published_at = COALESCE(first_published_at, ?), last_published_at = ?
		WHERE id = ?`,
		rev.Content.Slug, rev.Content.Title, rev.Content.Body, rev.ID, now, now, pageID)
	if err != nil {
		return fmt.Errorf("error publishing page %d: %w", pageID, err)
	}
	return nil
}

// Unpublish takes a page out of the live tree, keeping its fields.
func (r *Repository) Unpublish(ctx context.Context, pageID int) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE pages SET live = 0, has_unpublished_changes = 1 WHERE id = ?", pageID)
	return err
}

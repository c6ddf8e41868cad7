package redirect

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"headless/internal/models"
)

// Repository provides read access to redirects, plus Create for fixtures.
type Repository struct {
	DB *sql.DB
}

// NewRepository creates a new redirect repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

// NormalisePath puts an old path in the stored form: leading slash, no
// trailing slash (except for "/"), no fragment, query parameters sorted.
func NormalisePath(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	p := u.Path
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	if u.RawQuery == "" {
		return p
	}
	params := strings.Split(u.RawQuery, "&")
	sort.Strings(params)
	return p + "?" + strings.Join(params, "&")
}

// Filter holds the exact-match filters of the listing. Empty fields do not
// filter.
type Filter struct {
	OldPath      string
	SiteHostname string
}

// List lists redirects matching f, oldest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]models.Redirect, error) {
	query := `SELECT r.id, r.site_id, s.hostname, r.old_path, r.is_permanent, r.redirect_page_id, r.redirect_link
		FROM redirects r LEFT JOIN sites s ON s.id = r.site_id WHERE 1 = 1`
	var args []any
	if f.OldPath != "" {
		query += " AND r.old_path = ?"
		args = append(args, NormalisePath(f.OldPath))
	}
	if f.SiteHostname != "" {
		query += " AND s.hostname = ?"
		args = append(args, f.SiteHostname)
	}
	query += " ORDER BY r.id"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var redirects []models.Redirect
	for rows.Next() {
		var rd models.Redirect
		if err := rows.Scan(&rd.ID, &rd.SiteID, &rd.SiteHostname, &rd.OldPath, &rd.IsPermanent,
			&rd.RedirectPageID, &rd.RedirectLink); err != nil {
			return nil, err
		}
		redirects = append(redirects, rd)
	}
	return redirects, rows.Err()
}

// Create stores a redirect with a normalised old path.
func (r *Repository) Create(ctx context.Context, rd models.Redirect) (models.Redirect, error) {
	rd.OldPath = NormalisePath(rd.OldPath)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO redirects (site_id, old_path, is_permanent, redirect_page_id, redirect_link) VALUES (?, ?, ?, ?, ?)",
		rd.SiteID, rd.OldPath, rd.IsPermanent, rd.RedirectPageID, rd.RedirectLink)
	if err != nil {
		return models.Redirect{}, fmt.Errorf("error creating redirect: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Redirect{}, err
	}
	rd.ID = int(id)
	return rd, nil
}

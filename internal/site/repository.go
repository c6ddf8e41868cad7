package site

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"headless/internal/apperr"
	"headless/internal/models"
)

const siteColumns = "id, hostname, port, site_name, root_page_id, is_default_site"

// Repository provides access to the site storage.
type Repository struct {
	DB *sql.DB
}

// NewRepository creates a new site repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

func scanSite(row interface{ Scan(...any) error }) (models.Site, error) {
	var s models.Site
	err := row.Scan(&s.ID, &s.Hostname, &s.Port, &s.SiteName, &s.RootPageID, &s.IsDefaultSite)
	return s, err
}

// SplitHost splits "host[:port]" into its parts. A missing or malformed
// port is reported as 0.
func SplitHost(hostport string) (string, int) {
	if strings.Contains(hostport, "://") {
		return hostport, 0
	}
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return hostport, 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return hostport, 0
	}
	return host, port
}

// FindByHostname finds a site by "hostname" or "hostname:port". Without a
// port, the default site for that hostname wins, then the lowest port.
func (r *Repository) FindByHostname(ctx context.Context, hostname string) (models.Site, error) {
	var row *sql.Row
	if host, port := SplitHost(hostname); port != 0 {
		row = r.DB.QueryRowContext(ctx, "SELECT "+siteColumns+" FROM sites WHERE hostname = ? AND port = ?", host, port)
	} else {
		row = r.DB.QueryRowContext(ctx, "SELECT "+siteColumns+` FROM sites WHERE hostname = ?
			ORDER BY is_default_site DESC, port ASC LIMIT 1`, hostname)
	}
	s, err := scanSite(row)
	if err != nil {
		return models.Site{}, apperr.FromNoRows(err, "Site not found")
	}
	return s, nil
}

// Default returns the site flagged as default.
func (r *Repository) Default(ctx context.Context) (models.Site, error) {
	s, err := scanSite(r.DB.QueryRowContext(ctx, "SELECT "+siteColumns+" FROM sites WHERE is_default_site = 1 LIMIT 1"))
	if err != nil {
		return models.Site{}, apperr.FromNoRows(err, "Site not found")
	}
	return s, nil
}

// FindForRequest picks the site a request is for. A non-empty override
// (the "site" query parameter) must name an existing site; otherwise the
// Host header is matched by hostname and port, then by hostname alone, then
// the default site is used.
func (r *Repository) FindForRequest(ctx context.Context, req *http.Request, override string) (models.Site, error) {
	if override != "" {
		s, err := r.FindByHostname(ctx, override)
		if apperr.Is(err, apperr.CodeNotFound) {
			return models.Site{}, apperr.BadRequest("Site not found")
		}
		return s, err
	}

	host, port := SplitHost(req.Host)
	if port == 0 {
		port = 80
		if req.TLS != nil {
			port = 443
		}
	}
	s, err := scanSite(r.DB.QueryRowContext(ctx,
		"SELECT "+siteColumns+" FROM sites WHERE hostname = ? AND port = ?", strings.ToLower(host), port))
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Site{}, err
	}

	s, err = r.FindByHostname(ctx, strings.ToLower(host))
	if err == nil {
		return s, nil
	}
	if !apperr.Is(err, apperr.CodeNotFound) {
		return models.Site{}, err
	}

	s, err = r.Default(ctx)
	if apperr.Is(err, apperr.CodeNotFound) {
		return models.Site{}, apperr.BadRequest("Site not found")
	}
	return s, err
}

// List lists all sites.
func (r *Repository) List(ctx context.Context) ([]models.Site, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+siteColumns+" FROM sites ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sites []models.Site
	for rows.Next() {
		s, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, s)
	}
	return sites, rows.Err()
}

// Create creates a site. Marking it default clears the flag on every other
// site, in a transaction.
func (r *Repository) Create(ctx context.Context, s models.Site) (models.Site, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.Site{}, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if s.Port == 0 {
		s.Port = 80
	}
	if s.IsDefaultSite {
		if _, err := tx.ExecContext(ctx, "UPDATE sites SET is_default_site = 0"); err != nil {
			return models.Site{}, fmt.Errorf("error clearing default site: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO sites (hostname, port, site_name, root_page_id, is_default_site) VALUES (?, ?, ?, ?, ?)",
		s.Hostname, s.Port, s.SiteName, s.RootPageID, s.IsDefaultSite)
	if err != nil {
		return models.Site{}, fmt.Errorf("error creating site: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Site{}, err
	}
	s.ID = int(id)

	return s, tx.Commit()
}

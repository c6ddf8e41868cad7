package controller

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"headless/internal/models"
	"headless/internal/page"
	"headless/internal/redirect"
	"headless/internal/site"
	"headless/internal/web/viewmodels"
)

// Redirects lists redirects so a frontend can apply them.
type Redirects struct {
	RedirectRepo *redirect.Repository
	PageRepo     *page.Repository
	SiteRepo     *site.Repository
	Logger       *zap.Logger
}

// Register registers the redirect routes
func (c *Redirects) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v2/redirects/{$}", c.list)
}

func (c *Redirects) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	redirects, err := c.RedirectRepo.List(r.Context(), redirect.Filter{
		OldPath:      q.Get("old_path"),
		SiteHostname: q.Get("site"),
	})
	if err != nil {
		writeError(w, r, c.Logger, err)
		return
	}

	var sites []models.Site
	items := make([]viewmodels.Redirect, 0, len(redirects))
	for _, rd := range redirects {
		link := rd.RedirectLink
		if rd.RedirectPageID != nil {
			if sites == nil {
				if sites, err = c.SiteRepo.List(r.Context()); err != nil {
					writeError(w, r, c.Logger, err)
					return
				}
			}
			if link, err = c.pageLink(r.Context(), sites, rd); err != nil {
				writeError(w, r, c.Logger, err)
				return
			}
		}
		items = append(items, viewmodels.Redirect{
			OldPath:     rd.OldPath,
			IsPermanent: rd.IsPermanent,
			Site:        rd.SiteHostname,
			Link:        link,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

// pageLink is the URL of a redirect's target page: a path when only one
// site exists, an absolute URL otherwise. The redirect's own site is
// preferred when it contains the page.
func (c *Redirects) pageLink(ctx context.Context, sites []models.Site, rd models.Redirect) (string, error) {
	ordered := sites
	if rd.SiteID != nil {
		ordered = make([]models.Site, 0, len(sites))
		for _, s := range sites {
			if s.ID == *rd.SiteID {
				ordered = append([]models.Site{s}, ordered...)
			} else {
				ordered = append(ordered, s)
			}
		}
	}

	for _, s := range ordered {
		slugs, ok, err := c.PageRepo.PathFrom(ctx, s.RootPageID, *rd.RedirectPageID)
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}
		if len(sites) == 1 {
			return page.URLPath(slugs), nil
		}
		return s.RootURL() + page.URLPath(slugs), nil
	}
	return rd.RedirectLink, nil
}

package controller

import (
	"encoding/xml"
	"net/http"

	"go.uber.org/zap"

	"headless/internal/page"
	"headless/internal/site"
	"headless/internal/web/viewmodels"
)

const sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// Sitemap serves the XML sitemap of a site's live pages.
type Sitemap struct {
	PageRepo *page.Repository
	SiteRepo *site.Repository
	Logger   *zap.Logger
}

// Register registers the sitemap route
func (c *Sitemap) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /sitemap.xml", c.view)
}

func (c *Sitemap) view(w http.ResponseWriter, r *http.Request) {
	s, err := c.SiteRepo.FindForRequest(r.Context(), r, r.URL.Query().Get("site"))
	if err != nil {
		writeError(w, r, c.Logger, err)
		return
	}
	pages, _, err := c.PageRepo.List(r.Context(), page.ListFilter{SiteRootID: s.RootPageID, LiveOnly: true, Limit: page.NoLimit})
	if err != nil {
		writeError(w, r, c.Logger, err)
		return
	}

	set := viewmodels.URLSet{Xmlns: sitemapNamespace}
	for _, p := range pages {
		slugs, ok, err := c.PageRepo.PathFrom(r.Context(), s.RootPageID, p.ID)
		if err != nil {
			writeError(w, r, c.Logger, err)
			return
		}
		if !ok {
			continue
		}
		entry := viewmodels.SitemapURL{Location: s.RootURL() + page.URLPath(slugs)}
		if p.LastPublishedAt != nil {
			entry.LastModified = p.LastPublishedAt.Format("2006-01-02")
		}
		set.URLs = append(set.URLs, entry)
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		writeError(w, r, c.Logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Write([]byte(xml.Header))
	w.Write(out)
}

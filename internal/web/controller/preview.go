package controller

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"headless/internal/apperr"
	"headless/internal/pagetype"
	"headless/internal/preview"
	"headless/internal/web/renderer"
	"headless/internal/web/viewmodels"
)

// Preview serves stored page previews to headless frontends.
type Preview struct {
	PreviewRepo *preview.Repository
	Types       *pagetype.Registry
	Logger      *zap.Logger
}

// Register registers the preview routes
func (c *Preview) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v2/page_preview/{$}", c.view)
	mux.HandleFunc("GET /api/v2/page_preview/{id}/{$}", c.view)
}

func (c *Preview) view(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	contentType, token := q.Get("content_type"), q.Get("token")
	if contentType == "" || token == "" {
		writeError(w, r, c.Logger, apperr.BadRequest("content_type and token are required"))
		return
	}
	pageType, ok := c.Types.Lookup(contentType)
	if !ok {
		writeError(w, r, c.Logger, apperr.BadRequest("type doesn't exist"))
		return
	}

	p, err := c.PreviewRepo.Get(r.Context(), pageType, token)
	if err != nil {
		writeError(w, r, c.Logger, err)
		return
	}
	bodyHTML, err := renderer.Body(p.Content.Body)
	if err != nil {
		writeError(w, r, c.Logger, fmt.Errorf("rendering preview %s: %w", token, err))
		return
	}

	// Previews are never saved as pages, so they carry id 0.
	writeJSON(w, http.StatusOK, viewmodels.PageDetail{
		ID: 0,
		Meta: viewmodels.PageMeta{
			Type:      p.PageType,
			DetailURL: fmt.Sprintf("%s%s0/", baseURL(r), detailPrefix),
			Slug:      p.Content.Slug,
			Draft:     true,
		},
		Title:    p.Content.Title,
		Body:     p.Content.Body,
		BodyHTML: bodyHTML,
	})
}

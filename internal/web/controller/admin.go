package controller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"headless/internal/apperr"
	"headless/internal/auth"
	"headless/internal/draft"
	"headless/internal/models"
	"headless/internal/page"
	"headless/internal/pagetype"
	"headless/internal/preview"
	"headless/internal/web/viewmodels"
)

// Admin provides the editor tools for sharing drafts and previews.
type Admin struct {
	PageRepo    *page.Repository
	PreviewRepo *preview.Repository
	Verifier    *draft.Verifier
	Types       *pagetype.Registry
	Logger      *zap.Logger
}

type previewRequest struct {
	ContentType string `json:"content_type"`
	models.RevisionContent
}

// Register registers the admin routes. They must be mounted behind a login
// check.
func (c *Admin) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin/pages/{id}/draft-code", c.draftCode)
	mux.HandleFunc("GET /admin/pages/{id}/revisions", c.revisions)
	mux.HandleFunc("GET /admin/page-types", c.pageTypes)
	mux.HandleFunc("POST /admin/previews", c.createPreview)
}

func (c *Admin) draftCode(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, c.Logger, err)
		return
	}
	if _, err := c.PageRepo.Get(r.Context(), id); err != nil {
		writeError(w, r, c.Logger, err)
		return
	}
	token, ok := c.Verifier.TokenFor(id)
	if !ok {
		writeError(w, r, c.Logger, apperr.BadRequest("draft mode is disabled"))
		return
	}

	c.Logger.Info("draft code issued",
		zap.Int("page_id", id),
		zap.Int("user_id", auth.UserFrom(r.Context()).ID))
	writeJSON(w, http.StatusOK, viewmodels.DraftCode{
		Draft: token,
		URL:   fmt.Sprintf("%s%s%d/?%s", baseURL(r), detailPrefix, id, url.Values{"draft": {token}}.Encode()),
	})
}

func (c *Admin) revisions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, c.Logger, err)
		return
	}
	p, err := c.PageRepo.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, c.Logger, err)
		return
	}
	revisions, err := c.PageRepo.ListRevisions(r.Context(), id)
	if err != nil {
		writeError(w, r, c.Logger, err)
		return
	}

	items := make([]viewmodels.Revision, 0, len(revisions))
	for _, rev := range revisions {
		items = append(items, viewmodels.Revision{
			ID:        rev.ID,
			Slug:      rev.Slug,
			Title:     rev.Content.Title,
			CreatedAt: rev.CreatedAt,
			Live:      p.Live && p.LiveRevisionID != nil && *p.LiveRevisionID == rev.ID,
			Latest:    p.LatestRevisionID != nil && *p.LatestRevisionID == rev.ID,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (c *Admin) pageTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.Types.Names())
}

func (c *Admin) createPreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, c.Logger, apperr.BadRequest("invalid JSON body"))
		return
	}
	pageType, ok := c.Types.Lookup(req.ContentType)
	if !ok {
		writeError(w, r, c.Logger, apperr.BadRequest("type doesn't exist"))
		return
	}

	p, err := c.PreviewRepo.Create(r.Context(), pageType, req.RevisionContent)
	if err != nil {
		writeError(w, r, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewmodels.PreviewToken{Token: p.Token})
}

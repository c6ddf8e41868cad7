package controller

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"headless/internal/apperr"
	"headless/internal/draft"
	"headless/internal/models"
	"headless/internal/page"
	"headless/internal/pagetype"
	"headless/internal/resolve"
	"headless/internal/serve"
	"headless/internal/site"
	"headless/internal/web/renderer"
	"headless/internal/web/viewmodels"
)

const (
	defaultLimit = 20
	maxLimit     = 100
	detailPrefix = "/api/v2/pages/"
)

var listingParams = map[string]bool{
	"type":          true,
	"exclude_type":  true,
	"child_of":      true,
	"descendant_of": true,
	"slug":          true,
	"limit":         true,
	"offset":        true,
	"site":          true,
}

// Pages provides the page API handlers.
type Pages struct {
	PageRepo *page.Repository
	SiteRepo *site.Repository
	Resolver *resolve.Resolver
	Verifier *draft.Verifier
	Types    *pagetype.Registry
	Logger   *zap.Logger
}

// Register registers the page routes
func (c *Pages) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v2/pages/{$}", c.listing)
	mux.HandleFunc("GET /api/v2/pages/find/{$}", c.find)
	mux.HandleFunc("GET /api/v2/pages/detail_by_path/{$}", c.detailByPath)
	mux.HandleFunc("GET /api/v2/pages/{id}/{$}", c.detail)
	mux.HandleFunc("GET /api/v2/pages/{id}/diff/{$}", c.diff)
}

func (c *Pages) listing(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	for name := range q {
		if !listingParams[name] {
			writeError(w, r, c.Logger, apperr.BadRequest(
				"query parameter is not an operation or a recognised field: "+name))
			return
		}
	}

	s, err := c.SiteRepo.FindForRequest(r.Context(), r, q.Get("site"))
	if err != nil {
		writeError(w, r, c.Logger, err)
		return
	}

	filter, err := c.listFilter(r.Context(), q)
	if err != nil {
		writeError(w, r, c.Logger, err)
		return
	}
	filter.SiteRootID = s.RootPageID
	filter.LiveOnly = true

	pages, total, err := c.PageRepo.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, c.Logger, err)
		return
	}

	resp := viewmodels.PageListing{Meta: viewmodels.ListingMeta{TotalCount: total}, Items: []viewmodels.PageListItem{}}
	for _, p := range pages {
		meta, err := c.meta(r, s, p)
		if err != nil {
			writeError(w, r, c.Logger, err)
			return
		}
		resp.Items = append(resp.Items, viewmodels.PageListItem{ID: p.ID, Meta: meta, Title: p.Title})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (c *Pages) listFilter(ctx context.Context, q url.Values) (page.ListFilter, error) {
	f := page.ListFilter{Limit: defaultLimit, Slug: q.Get("slug")}

	if v := q.Get("type"); v != "" {
		types, err := c.Types.Parse(v)
		if err != nil {
			return f, err
		}
		f.Types = f.Types.Include(types...)
	}
	if v := q.Get("exclude_type"); v != "" {
		types, err := c.Types.Parse(v)
		if err != nil {
			return f, err
		}
		f.Types = f.Types.Exclude(types...)
	}

	var err error
	if f.ChildOf, err = c.pageParam(ctx, q, "child_of", "parent page doesn't exist"); err != nil {
		return f, err
	}
	if f.DescendantOf, err = c.pageParam(ctx, q, "descendant_of", "ancestor page doesn't exist"); err != nil {
		return f, err
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, apperr.BadRequest("limit must be a non-negative integer")
		}
		if n > maxLimit {
			return f, apperr.BadRequest(fmt.Sprintf("limit cannot be higher than %d", maxLimit))
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, apperr.BadRequest("offset must be a non-negative integer")
		}
		f.Offset = n
	}
	return f, nil
}

func (c *Pages) pageParam(ctx context.Context, q url.Values, name, missing string) (*int, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	id, err := strconv.Atoi(v)
	if err != nil || id <= 0 {
		return nil, apperr.BadRequest(name + " must be a positive integer")
	}
	if _, err := c.PageRepo.Get(ctx, id); apperr.Is(err, apperr.CodeNotFound) {
		return nil, apperr.BadRequest(missing)
	} else if err != nil {
		return nil, err
	}
	return &id, nil
}

func (c *Pages) detail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, c.Logger, err)
		return
	}
	s, err := c.SiteRepo.FindForRequest(r.Context(), r, r.URL.Query().Get("site"))
	if err != nil {
		writeError(w, r, c.Logger, err)
		return
	}
	p, err := c.PageRepo.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, c.Logger, err)
		return
	}
	if p.IsRoot() {
		writeError(w, r, c.Logger, apperr.NotFound("No Page matches the given query."))
		return
	}
	types, err := c.excludeFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, c.Logger, err)
		return
	}
	c.serveDetail(w, r, s, p, types, r.URL.Query().Get("draft"))
}

// excludeFilter parses exclude_type for the detail views.
func (c *Pages) excludeFilter(q url.Values) (pagetype.Filter, error) {
	var f pagetype.Filter
	if v := q.Get("exclude_type"); v != "" {
		types, err := c.Types.Parse(v)
		if err != nil {
			return f, err
		}
		f = f.Exclude(types...)
	}
	return f, nil
}

// serveDetail renders p either as published or, when token grants draft
// access, from its latest revision. A rejected token behaves like no token.
// Pages of an excluded type are not found either way.
func (c *Pages) serveDetail(w http.ResponseWriter, r *http.Request, s models.Site, p models.Page, types pagetype.Matcher, token string) {
	if !types.Matches(p.PageType) {
		writeError(w, r, c.Logger, apperr.NotFound("No Page matches the given query."))
		return
	}
	valid := token != "" && c.Verifier.Verify(p.ID, token)
	if token != "" && !valid {
		c.Logger.Debug("draft token rejected", zap.Int("page_id", p.ID))
	}

	state := serve.Decide(p.Live, c.Verifier.Enabled(), valid)
	switch state {
	case serve.DraftView:
		rev, ok, err := c.PageRepo.LatestRevision(r.Context(), p.ID)
		if err != nil {
			writeError(w, r, c.Logger, err)
			return
		}
		if ok {
			p = rev.Content.Apply(p)
		}
	case serve.PublishedView:
		if _, inSite, err := c.PageRepo.PathFrom(r.Context(), s.RootPageID, p.ID); err != nil {
			writeError(w, r, c.Logger, err)
			return
		} else if !inSite {
			writeError(w, r, c.Logger, apperr.NotFound("No Page matches the given query."))
			return
		}
	default:
		writeError(w, r, c.Logger, apperr.NotFound("No Page matches the given query."))
		return
	}

	resp, err := c.pageDetail(r, s, p, state == serve.DraftView)
	if err != nil {
		writeError(w, r, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (c *Pages) pageDetail(r *http.Request, s models.Site, p models.Page, isDraft bool) (viewmodels.PageDetail, error) {
	meta, err := c.meta(r, s, p)
	if err != nil {
		return viewmodels.PageDetail{}, err
	}
	meta.Draft = isDraft
	bodyHTML, err := renderer.Body(p.Body)
	if err != nil {
		return viewmodels.PageDetail{}, fmt.Errorf("rendering page %d: %w", p.ID, err)
	}
	return viewmodels.PageDetail{ID: p.ID, Meta: meta, Title: p.Title, Body: p.Body, BodyHTML: bodyHTML}, nil
}

func (c *Pages) meta(r *http.Request, s models.Site, p models.Page) (viewmodels.PageMeta, error) {
	meta := viewmodels.PageMeta{
		Type:             p.PageType,
		DetailURL:        fmt.Sprintf("%s%s%d/", baseURL(r), detailPrefix, p.ID),
		Slug:             p.Slug,
		FirstPublishedAt: p.FirstPublishedAt,
	}
	slugs, ok, err := c.PageRepo.PathFrom(r.Context(), s.RootPageID, p.ID)
	if err != nil {
		return meta, err
	}
	if ok {
		// A draft view carries the latest revision's slug.
		if len(slugs) > 0 {
			slugs[len(slugs)-1] = p.Slug
		}
		htmlURL := s.RootURL() + page.URLPath(slugs)
		meta.HTMLURL = &htmlURL
	}
	return meta, nil
}

// resolvePath finds the page at htmlPath below the site root. With a token
// the draft-aware resolver is tried first and the token is returned only
// if it grants access to the page found; otherwise live routing applies.
func (c *Pages) resolvePath(ctx context.Context, s models.Site, htmlPath, token string) (models.Page, string, error) {
	root, err := c.PageRepo.Get(ctx, s.RootPageID)
	if err != nil {
		return models.Page{}, "", err
	}
	segments := resolve.Segments(htmlPath)

	if token != "" && c.Verifier.Enabled() {
		match, err := c.Resolver.Resolve(ctx, root, segments)
		switch {
		case err == nil && c.Verifier.Verify(match.Page.ID, token):
			return match.Page, token, nil
		case err != nil && !apperr.Is(err, apperr.CodeNotFound):
			return models.Page{}, "", err
		}
		c.Logger.Debug("draft resolution fell back to live routing", zap.String("html_path", htmlPath))
	}

	p, err := resolve.ResolveLive(ctx, c.PageRepo, root, segments)
	return p, "", err
}

func (c *Pages) find(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("html_path") == "" {
		writeError(w, r, c.Logger, apperr.NotFound("not found"))
		return
	}
	s, err := c.SiteRepo.FindForRequest(r.Context(), r, q.Get("site"))
	if err != nil {
		writeError(w, r, c.Logger, err)
		return
	}
	p, token, err := c.resolvePath(r.Context(), s, q.Get("html_path"), q.Get("draft"))
	if err != nil {
		writeError(w, r, c.Logger, err)
		return
	}

	target := fmt.Sprintf("%s%d/", detailPrefix, p.ID)
	if token != "" {
		target += "?" + url.Values{"draft": {token}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (c *Pages) detailByPath(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("html_path") == "" {
		writeError(w, r, c.Logger, apperr.NotFound("not found"))
		return
	}
	s, err := c.SiteRepo.FindForRequest(r.Context(), r, q.Get("site"))
	if err != nil {
		writeError(w, r, c.Logger, err)
		return
	}
	types, err := c.excludeFilter(q)
	if err != nil {
		writeError(w, r, c.Logger, err)
		return
	}
	p, token, err := c.resolvePath(r.Context(), s, q.Get("html_path"), q.Get("draft"))
	if err != nil {
		writeError(w, r, c.Logger, err)
		return
	}
	c.serveDetail(w, r, s, p, types, token)
}

func (c *Pages) diff(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, c.Logger, err)
		return
	}
	q := r.URL.Query()
	if !c.Verifier.Verify(id, q.Get("draft")) {
		writeError(w, r, c.Logger, apperr.NotFound("No Page matches the given query."))
		return
	}
	p, err := c.PageRepo.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, c.Logger, err)
		return
	}

	// Without "from" the published body is the base; drafts never
	// published diff against nothing.
	var base string
	if p.Live {
		base = p.Body
	}
	if v := q.Get("from"); v != "" {
		fromID, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, c.Logger, apperr.BadRequest("invalid 'from' revision"))
			return
		}
		from, err := c.PageRepo.GetRevision(r.Context(), fromID)
		if err != nil || from.PageID != id {
			if err == nil || apperr.Is(err, apperr.CodeNotFound) {
				err = apperr.BadRequest("could not find 'from' revision")
			}
			writeError(w, r, c.Logger, err)
			return
		}
		base = from.Content.Body
	}

	latest := base
	rev, ok, err := c.PageRepo.LatestRevision(r.Context(), id)
	if err != nil {
		writeError(w, r, c.Logger, err)
		return
	}
	if ok {
		latest = rev.Content.Body
	}
	writeJSON(w, http.StatusOK, viewmodels.Diff{ID: id, DiffHTML: renderer.Diff(base, latest)})
}

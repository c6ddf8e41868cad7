// Package resolve maps a slash-delimited path below a site root to a page,
// following renamed pages through their revision history.
package resolve

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"headless/internal/apperr"
	"headless/internal/models"
)

// Lookup is the storage the draft-aware walk needs.
type Lookup interface {
	// ChildBySlug finds a direct child of parentID, live or not, whose
	// current slug is slug.
	ChildBySlug(ctx context.Context, parentID int, slug string) (models.Page, bool, error)
	// MostRecentHistoricalMatch finds the page owning the most recently
	// created revision with the given slug among all descendants of
	// ancestorID.
	MostRecentHistoricalMatch(ctx context.Context, ancestorID int, slug string) (models.Page, bool, error)
	// LatestRevisionSlug returns the slug recorded by the page's newest revision.
	LatestRevisionSlug(ctx context.Context, pageID int) (string, bool, error)
}

// LiveLookup is the storage ordinary published routing needs.
type LiveLookup interface {
	LiveChildBySlug(ctx context.Context, parentID int, slug string) (models.Page, bool, error)
}

// Via records how a segment was matched.
type Via string

const (
	ViaChild   Via = "child"
	ViaHistory Via = "history"
)

// Step is one matched path segment.
type Step struct {
	Segment string
	PageID  int
	Via     Via
}

// Match is the outcome of a successful walk.
type Match struct {
	Page  models.Page
	Steps []Step
}

// Resolver walks the page tree segment by segment.
type Resolver struct {
	Lookup Lookup
	Logger *zap.Logger
}

// New returns a Resolver over lookup.
func New(lookup Lookup, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{Lookup: lookup, Logger: logger}
}

// Segments splits a URL path into its non-empty components.
func Segments(path string) []string {
	var out []string
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Resolve finds the page that segments denote below root. A segment is
// matched first against the current slugs of the node's children, then
// against slugs recorded in the revisions of any descendant, newest first.
// A historical candidate is only accepted while its latest revision still
// carries the segment. The walk never backtracks: the first failing segment
// returns a NotFound error.
//
// When two pages have both used the same slug the newest revision wins and
// the other page cannot be reached through that slug.
func (r *Resolver) Resolve(ctx context.Context, root models.Page, segments []string) (Match, error) {
	match := Match{Page: root}
	for _, segment := range segments {
		next, via, err := r.step(ctx, match.Page, segment)
		if err != nil {
			r.Logger.Debug("path resolution stopped",
				zap.Int("at_page", match.Page.ID),
				zap.String("segment", segment),
				zap.Error(err))
			return Match{}, err
		}
		match.Page = next
		match.Steps = append(match.Steps, Step{Segment: segment, PageID: next.ID, Via: via})
	}
	return match, nil
}

func (r *Resolver) step(ctx context.Context, parent models.Page, segment string) (models.Page, Via, error) {
	child, ok, err := r.Lookup.ChildBySlug(ctx, parent.ID, segment)
	if err != nil {
		return models.Page{}, "", fmt.Errorf("child lookup %q under %d: %w", segment, parent.ID, err)
	}
	if ok {
		return child, ViaChild, nil
	}

	candidate, ok, err := r.Lookup.MostRecentHistoricalMatch(ctx, parent.ID, segment)
	if err != nil {
		return models.Page{}, "", fmt.Errorf("revision lookup %q under %d: %w", segment, parent.ID, err)
	}
	if !ok {
		return models.Page{}, "", apperr.NotFound("page not found")
	}

	latest, ok, err := r.Lookup.LatestRevisionSlug(ctx, candidate.ID)
	if err != nil {
		return models.Page{}, "", fmt.Errorf("latest revision of %d: %w", candidate.ID, err)
	}
	if !ok || latest != segment {
		return models.Page{}, "", apperr.NotFound("page not found")
	}
	return candidate, ViaHistory, nil
}

// ResolveLive follows only live children by their current slug, the way
// published pages are routed.
func ResolveLive(ctx context.Context, lookup LiveLookup, root models.Page, segments []string) (models.Page, error) {
	if !root.Live {
		return models.Page{}, apperr.NotFound("page not found")
	}
	page := root
	for _, segment := range segments {
		child, ok, err := lookup.LiveChildBySlug(ctx, page.ID, segment)
		if err != nil {
			return models.Page{}, fmt.Errorf("live child lookup %q under %d: %w", segment, page.ID, err)
		}
		if !ok {
			return models.Page{}, apperr.NotFound("page not found")
		}
		page = child
	}
	return page, nil
}

// Package fixtures loads sites, page trees and redirects from YAML.
package fixtures

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"headless/internal/database"
	"headless/internal/models"
	"headless/internal/page"
	"headless/internal/pagetype"
	"headless/internal/redirect"
	"headless/internal/site"
)

// File is the top-level fixture document.
type File struct {
	Pages     []Page     `yaml:"pages"`
	Sites     []Site     `yaml:"sites"`
	Redirects []Redirect `yaml:"redirects"`
}

// Page is a page with its initial content. Revisions are appended after the
// page is (optionally) published, so they show up as unpublished drafts.
// Unpublished takes a published page out of the live tree afterwards.
type Page struct {
	Ref         string                   `yaml:"ref"`
	Type        string                   `yaml:"type"`
	Title       string                   `yaml:"title"`
	Slug        string                   `yaml:"slug"`
	Body        string                   `yaml:"body"`
	Live        bool                     `yaml:"live"`
	Unpublished bool                     `yaml:"unpublished"`
	Revisions   []models.RevisionContent `yaml:"revisions"`
	Children    []Page                   `yaml:"children"`
}

// Site points a hostname at a page, referenced by ref.
type Site struct {
	Hostname string `yaml:"hostname"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	Root     string `yaml:"root"`
	Default  bool   `yaml:"default"`
}

// Redirect targets either a page ref or an external link. An empty site
// applies to all sites.
type Redirect struct {
	OldPath   string `yaml:"old_path"`
	Site      string `yaml:"site"`
	Permanent *bool  `yaml:"permanent"`
	Page      string `yaml:"page"`
	Link      string `yaml:"link"`
}

// Result maps refs to the ids that were created.
type Result struct {
	Pages map[string]int
	Sites map[string]int
}

// Loader writes fixtures through the repositories.
type Loader struct {
	Pages     *page.Repository
	Sites     *site.Repository
	Redirects *redirect.Repository
	Types     *pagetype.Registry
	Logger    *zap.Logger
}

// LoadFile loads the fixture file at path.
func (l *Loader) LoadFile(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	return l.Load(ctx, f)
}

// Load decodes a fixture document from r and stores it.
func (l *Loader) Load(ctx context.Context, r io.Reader) (Result, error) {
	var doc File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return Result{}, fmt.Errorf("decoding fixtures: %w", err)
	}
	return l.Apply(ctx, doc)
}

// Apply validates and then stores an already decoded document. Nothing is
// written when validation fails.
func (l *Loader) Apply(ctx context.Context, doc File) (Result, error) {
	res := Result{Pages: map[string]int{}, Sites: map[string]int{}}
	if err := l.Validate(ctx, doc); err != nil {
		return res, err
	}

	for _, p := range doc.Pages {
		if err := l.createPage(ctx, res, database.RootPageID, "", p); err != nil {
			return res, err
		}
	}

	for _, s := range doc.Sites {
		rootID, ok := res.Pages[s.Root]
		if !ok {
			return res, fmt.Errorf("site %s: unknown root page %q", s.Hostname, s.Root)
		}
		created, err := l.Sites.Create(ctx, models.Site{
			Hostname:      strings.ToLower(s.Hostname),
			Port:          s.Port,
			SiteName:      s.Name,
			RootPageID:    rootID,
			IsDefaultSite: s.Default,
		})
		if err != nil {
			return res, err
		}
		res.Sites[siteKey(created)] = created.ID
		if _, exists := res.Sites[created.Hostname]; !exists {
			res.Sites[created.Hostname] = created.ID
		}
	}

	for _, rd := range doc.Redirects {
		if err := l.createRedirect(ctx, res, rd); err != nil {
			return res, err
		}
	}

	l.logger().Info("fixtures loaded",
		zap.Int("pages", len(res.Pages)),
		zap.Int("sites", len(doc.Sites)),
		zap.Int("redirects", len(doc.Redirects)))
	return res, nil
}

// Validate checks doc against itself and the stored tree without writing.
// Every problem found is reported.
func (l *Loader) Validate(ctx context.Context, doc File) error {
	v := validation{refs: map[string]bool{}, sites: map[string]bool{}}

	existing := map[string]bool{}
	for _, p := range doc.Pages {
		if !p.Live || p.Slug == "" {
			continue
		}
		_, found, err := l.Pages.LiveChildBySlug(ctx, database.RootPageID, p.Slug)
		if err != nil {
			return err
		}
		existing[p.Slug] = found
	}
	v.pages(l.Types, "", doc.Pages, existing)

	stored, err := l.Sites.List(ctx)
	if err != nil {
		return err
	}
	taken := map[string]bool{}
	for _, s := range stored {
		taken[siteKey(s)] = true
	}
	for _, s := range doc.Sites {
		host := strings.ToLower(s.Hostname)
		port := s.Port
		if port == 0 {
			port = 80
		}
		key := fmt.Sprintf("%s:%d", host, port)
		if host == "" {
			v.fail(errors.New("site without hostname"))
		} else if taken[key] {
			v.fail(fmt.Errorf("site %s already exists", key))
		}
		taken[key] = true
		v.sites[key] = true
		v.sites[host] = true
		if !v.refs[s.Root] {
			v.fail(fmt.Errorf("site %s: unknown root page %q", s.Hostname, s.Root))
		}
	}

	for _, rd := range doc.Redirects {
		if rd.Site != "" && !v.sites[strings.ToLower(rd.Site)] {
			v.fail(fmt.Errorf("redirect %s: unknown site %q", rd.OldPath, rd.Site))
		}
		if rd.Page != "" && !v.refs[rd.Page] {
			v.fail(fmt.Errorf("redirect %s: unknown page %q", rd.OldPath, rd.Page))
		}
		if rd.Page == "" && rd.Link == "" {
			v.fail(fmt.Errorf("redirect %s has no target", rd.OldPath))
		}
	}
	return v.err
}

type validation struct {
	refs  map[string]bool
	sites map[string]bool
	err   error
}

func (v *validation) fail(err error) {
	v.err = multierr.Append(v.err, err)
}

// pages checks one level of siblings. liveTaken marks slugs already used by
// live pages stored under the same parent.
func (v *validation) pages(types *pagetype.Registry, parentRef string, pages []Page, liveTaken map[string]bool) {
	live := map[string]bool{}
	for slug, taken := range liveTaken {
		live[slug] = taken
	}
	for _, p := range pages {
		if p.Slug == "" {
			v.fail(fmt.Errorf("page under %q has no slug", parentRef))
			continue
		}
		ref := pageRef(parentRef, p)
		if v.refs[ref] {
			v.fail(fmt.Errorf("duplicate page ref %q", ref))
		}
		v.refs[ref] = true
		if types != nil && p.Type != "" {
			if _, ok := types.Lookup(p.Type); !ok {
				v.fail(fmt.Errorf("page %q: unknown type %q", ref, p.Type))
			}
		}
		if p.Live {
			if live[p.Slug] {
				v.fail(fmt.Errorf("page %q: a live sibling already uses slug %q", ref, p.Slug))
			}
			live[p.Slug] = true
		}
		v.pages(types, ref, p.Children, nil)
	}
}

func pageRef(parentRef string, p Page) string {
	if p.Ref != "" {
		return p.Ref
	}
	if parentRef == "" {
		return p.Slug
	}
	return parentRef + "/" + p.Slug
}

func (l *Loader) createPage(ctx context.Context, res Result, parentID int, parentRef string, p Page) error {
	if p.Slug == "" {
		return fmt.Errorf("page under %q has no slug", parentRef)
	}
	ref := pageRef(parentRef, p)
	if _, dup := res.Pages[ref]; dup {
		return fmt.Errorf("duplicate page ref %q", ref)
	}

	pageType := p.Type
	if l.Types != nil && pageType != "" {
		canonical, ok := l.Types.Lookup(pageType)
		if !ok {
			return fmt.Errorf("page %q: unknown type %q", ref, pageType)
		}
		pageType = canonical
	}
	title := p.Title
	if title == "" {
		title = p.Slug
	}

	created, err := l.Pages.Create(ctx, parentID, pageType, models.RevisionContent{Title: title, Slug: p.Slug, Body: p.Body})
	if err != nil {
		return fmt.Errorf("page %q: %w", ref, err)
	}
	if p.Live {
		if err := l.Pages.Publish(ctx, created.ID); err != nil {
			return fmt.Errorf("publishing %q: %w", ref, err)
		}
	}
	for _, rev := range p.Revisions {
		if _, err := l.Pages.CreateRevision(ctx, created.ID, rev); err != nil {
			return fmt.Errorf("revision of %q: %w", ref, err)
		}
	}
	if p.Unpublished {
		if err := l.Pages.Unpublish(ctx, created.ID); err != nil {
			return fmt.Errorf("unpublishing %q: %w", ref, err)
		}
	}
	res.Pages[ref] = created.ID
	l.logger().Debug("page created", zap.String("ref", ref), zap.Int("id", created.ID))

	// Children hang off the page's original ref even when later revisions
	// rename it.
	for _, child := range p.Children {
		if err := l.createPage(ctx, res, created.ID, ref, child); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) createRedirect(ctx context.Context, res Result, rd Redirect) error {
	out := models.Redirect{OldPath: rd.OldPath, IsPermanent: true, RedirectLink: rd.Link}
	if rd.Permanent != nil {
		out.IsPermanent = *rd.Permanent
	}
	if rd.Site != "" {
		id, ok := res.Sites[strings.ToLower(rd.Site)]
		if !ok {
			return fmt.Errorf("redirect %s: unknown site %q", rd.OldPath, rd.Site)
		}
		out.SiteID = &id
	}
	if rd.Page != "" {
		id, ok := res.Pages[rd.Page]
		if !ok {
			return fmt.Errorf("redirect %s: unknown page %q", rd.OldPath, rd.Page)
		}
		out.RedirectPageID = &id
	}
	if out.RedirectPageID == nil && out.RedirectLink == "" {
		return fmt.Errorf("redirect %s has no target", rd.OldPath)
	}
	_, err := l.Redirects.Create(ctx, out)
	return err
}

func (l *Loader) logger() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}

func siteKey(s models.Site) string {
	return fmt.Sprintf("%s:%d", s.Hostname, s.Port)
}

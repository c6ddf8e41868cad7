package resolve

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"headless/internal/apperr"
	"headless/internal/models"
)

type fakeRevision struct {
	pageID int
	slug   string
}

// fakeTree keeps revisions in creation order.
type fakeTree struct {
	pages     map[int]models.Page
	revisions []fakeRevision
	err       error
}

func newFakeTree() *fakeTree {
	root := models.Page{ID: 1, Slug: "root", Live: true}
	home := models.Page{ID: 2, ParentID: intPtr(1), Slug: "home", Live: true}
	return &fakeTree{pages: map[int]models.Page{1: root, 2: home}}
}

func intPtr(v int) *int { return &v }

func (f *fakeTree) add(id, parent int, slug string, live bool) {
	f.pages[id] = models.Page{ID: id, ParentID: intPtr(parent), Slug: slug, Live: live}
	f.revise(id, slug)
}

func (f *fakeTree) revise(id int, slug string) {
	f.revisions = append(f.revisions, fakeRevision{pageID: id, slug: slug})
}

func (f *fakeTree) sortedIDs() []int {
	ids := make([]int, 0, len(f.pages))
	for id := range f.pages {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (f *fakeTree) children(parentID int) []models.Page {
	var out []models.Page
	for _, id := range f.sortedIDs() {
		p := f.pages[id]
		if p.ParentID != nil && *p.ParentID == parentID {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakeTree) isDescendant(id, ancestorID int) bool {
	for p := f.pages[id]; p.ParentID != nil; p = f.pages[*p.ParentID] {
		if *p.ParentID == ancestorID {
			return true
		}
	}
	return false
}

func (f *fakeTree) ChildBySlug(_ context.Context, parentID int, slug string) (models.Page, bool, error) {
	if f.err != nil {
		return models.Page{}, false, f.err
	}
	for _, c := range f.children(parentID) {
		if c.Slug == slug {
			return c, true, nil
		}
	}
	return models.Page{}, false, nil
}

func (f *fakeTree) LiveChildBySlug(_ context.Context, parentID int, slug string) (models.Page, bool, error) {
	for _, c := range f.children(parentID) {
		if c.Slug == slug && c.Live {
			return c, true, nil
		}
	}
	return models.Page{}, false, nil
}

func (f *fakeTree) MostRecentHistoricalMatch(_ context.Context, ancestorID int, slug string) (models.Page, bool, error) {
	for i := len(f.revisions) - 1; i >= 0; i-- {
		rev := f.revisions[i]
		if rev.slug == slug && f.isDescendant(rev.pageID, ancestorID) {
			return f.pages[rev.pageID], true, nil
		}
	}
	return models.Page{}, false, nil
}

func (f *fakeTree) LatestRevisionSlug(_ context.Context, pageID int) (string, bool, error) {
	for i := len(f.revisions) - 1; i >= 0; i-- {
		if f.revisions[i].pageID == pageID {
			return f.revisions[i].slug, true, nil
		}
	}
	return "", false, nil
}

func TestSegments(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"/", nil},
		{"", nil},
		{"/a/b/", []string{"a", "b"}},
		{"a//b", []string{"a", "b"}},
		{"/foo-edit/", []string{"foo-edit"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Segments(tt.path))
		})
	}
}

func TestResolveLiveSlugs(t *testing.T) {
	tree := newFakeTree()
	tree.add(3, 2, "a", true)
	tree.add(4, 3, "b", true)
	tree.add(5, 3, "c", true)

	match, err := New(tree, nil).Resolve(context.Background(), tree.pages[2], Segments("/a/b/"))
	require.NoError(t, err)
	assert.Equal(t, 4, match.Page.ID)

	want := []Step{{Segment: "a", PageID: 3, Via: ViaChild}, {Segment: "b", PageID: 4, Via: ViaChild}}
	if diff := cmp.Diff(want, match.Steps); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveEmptyPathReturnsRoot(t *testing.T) {
	tree := newFakeTree()
	match, err := New(tree, nil).Resolve(context.Background(), tree.pages[2], nil)
	require.NoError(t, err)
	assert.Equal(t, 2, match.Page.ID)
	assert.Empty(t, match.Steps)
}

func TestResolveRenamedDraft(t *testing.T) {
	tree := newFakeTree()
	tree.add(3, 2, "foo", false)
	tree.revise(3, "foo-edit")

	r := New(tree, nil)
	ctx := context.Background()

	match, err := r.Resolve(ctx, tree.pages[2], Segments("/foo-edit/"))
	require.NoError(t, err)
	assert.Equal(t, 3, match.Page.ID)
	assert.Equal(t, []Step{{Segment: "foo-edit", PageID: 3, Via: ViaHistory}}, match.Steps)

	// The current slug still routes directly.
	match, err = r.Resolve(ctx, tree.pages[2], Segments("/foo/"))
	require.NoError(t, err)
	assert.Equal(t, 3, match.Page.ID)

	_, err = r.Resolve(ctx, tree.pages[2], Segments("/no/"))
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestResolveNestedRenameFromAncestor(t *testing.T) {
	tree := newFakeTree()
	tree.add(3, 2, "sub", true)
	tree.add(4, 3, "foo", false)
	tree.revise(4, "foo-edit")

	match, err := New(tree, nil).Resolve(context.Background(), tree.pages[2], Segments("/foo-edit/"))
	require.NoError(t, err)
	assert.Equal(t, 4, match.Page.ID)
}

func TestResolveRenamedAncestor(t *testing.T) {
	tree := newFakeTree()
	tree.add(3, 2, "blog", true)
	tree.add(4, 3, "post", true)
	tree.revise(3, "news")

	match, err := New(tree, nil).Resolve(context.Background(), tree.pages[2], Segments("/news/post/"))
	require.NoError(t, err)
	assert.Equal(t, 4, match.Page.ID)
	assert.Equal(t, ViaHistory, match.Steps[0].Via)
	assert.Equal(t, ViaChild, match.Steps[1].Via)
}

func TestResolveRejectsStaleHistoricalSlug(t *testing.T) {
	tree := newFakeTree()
	tree.add(3, 2, "foo", false)
	tree.revise(3, "bar")
	tree.revise(3, "baz")

	_, err := New(tree, nil).Resolve(context.Background(), tree.pages[2], Segments("/bar/"))
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestResolveAmbiguousSlugPicksNewestRevision(t *testing.T) {
	tree := newFakeTree()
	tree.add(3, 2, "foo", false)
	tree.add(4, 2, "foo2", false)
	tree.revise(3, "foo-edit")
	tree.revise(4, "foo-edit")

	match, err := New(tree, nil).Resolve(context.Background(), tree.pages[2], Segments("/foo-edit/"))
	require.NoError(t, err)
	assert.Equal(t, 4, match.Page.ID)
}

func TestResolveDoesNotBacktrack(t *testing.T) {
	tree := newFakeTree()
	tree.add(3, 2, "a", true)
	tree.add(4, 2, "b", true)
	tree.add(5, 4, "c", true)
	tree.revise(4, "a")
	tree.revise(4, "b")

	// "a" matches page 3 directly; page 4 is never tried for "/a/c/".
	_, err := New(tree, nil).Resolve(context.Background(), tree.pages[2], Segments("/a/c/"))
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestResolvePropagatesStorageErrors(t *testing.T) {
	tree := newFakeTree()
	tree.err = errors.New("database is locked")

	_, err := New(tree, nil).Resolve(context.Background(), tree.pages[2], Segments("/a/"))
	require.Error(t, err)
	assert.False(t, apperr.Is(err, apperr.CodeNotFound))
	assert.ErrorIs(t, err, tree.err)
}

func TestResolveLiveIgnoresDrafts(t *testing.T) {
	tree := newFakeTree()
	tree.add(3, 2, "a", true)
	tree.add(4, 3, "draft", false)
	ctx := context.Background()

	page, err := ResolveLive(ctx, tree, tree.pages[2], Segments("/a/"))
	require.NoError(t, err)
	assert.Equal(t, 3, page.ID)

	_, err = ResolveLive(ctx, tree, tree.pages[2], Segments("/a/draft/"))
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	unpublishedRoot := tree.pages[2]
	unpublishedRoot.Live = false
	_, err = ResolveLive(ctx, tree, unpublishedRoot, nil)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

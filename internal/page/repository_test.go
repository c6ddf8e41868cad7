package page

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"headless/internal/apperr"
	"headless/internal/database"
	"headless/internal/models"
	"headless/internal/pagetype"
	"headless/internal/resolve"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "pages.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	repo := NewRepository(db)
	clock := time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)
	repo.Now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return repo
}

func create(t *testing.T, repo *Repository, parentID int, pageType, slug string, publish bool) models.Page {
	t.Helper()
	ctx := context.Background()
	p, err := repo.Create(ctx, parentID, pageType, models.RevisionContent{Title: slug, Slug: slug, Body: "* " + slug})
	require.NoError(t, err)
	if publish {
		require.NoError(t, repo.Publish(ctx, p.ID))
		p, err = repo.Get(ctx, p.ID)
		require.NoError(t, err)
	}
	return p
}

func rename(t *testing.T, repo *Repository, p models.Page, slug string) {
	t.Helper()
	_, err := repo.CreateRevision(context.Background(), p.ID,
		models.RevisionContent{Title: p.Title, Slug: slug, Body: p.Body})
	require.NoError(t, err)
}

func TestCreateAndPublish(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	home := create(t, repo, database.RootPageID, "home.HomePage", "home", false)
	assert.False(t, home.Live)
	require.NotNil(t, home.LatestRevisionID)
	assert.Nil(t, home.LiveRevisionID)

	require.NoError(t, repo.Publish(ctx, home.ID))
	home, err := repo.Get(ctx, home.ID)
	require.NoError(t, err)
	assert.True(t, home.Live)
	assert.False(t, home.HasUnpublishedChanges)
	require.NotNil(t, home.FirstPublishedAt)
	assert.Equal(t, *home.LatestRevisionID, *home.LiveRevisionID)

	rev, err := repo.CreateRevision(ctx, home.ID, models.RevisionContent{Title: "edit it", Slug: "home", Body: "new"})
	require.NoError(t, err)
	home, err = repo.Get(ctx, home.ID)
	require.NoError(t, err)
	assert.Equal(t, "home", home.Title, "live fields untouched by a revision")
	assert.True(t, home.HasUnpublishedChanges)
	assert.Equal(t, rev.ID, *home.LatestRevisionID)

	latest, ok, err := repo.LatestRevision(ctx, home.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "edit it", latest.Content.Title)

	revisions, err := repo.ListRevisions(ctx, home.ID)
	require.NoError(t, err)
	require.Len(t, revisions, 2)
	assert.Equal(t, rev.ID, revisions[0].ID)
}

func TestGetMissing(t *testing.T) {
	repo := newTestRepository(t)
	_, err := repo.Get(context.Background(), 999)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestChildLookups(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	home := create(t, repo, database.RootPageID, "home.HomePage", "home", true)
	draft := create(t, repo, home.ID, "sandbox.FooPage", "foo", false)

	got, ok, err := repo.ChildBySlug(ctx, home.ID, "foo")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, draft.ID, got.ID)

	_, ok, err = repo.LiveChildBySlug(ctx, home.ID, "foo")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMostRecentHistoricalMatch(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	home := create(t, repo, database.RootPageID, "home.HomePage", "home", true)
	sub := create(t, repo, home.ID, "sandbox.FooPage", "sub", true)
	foo := create(t, repo, sub.ID, "sandbox.FooPage", "foo", false)
	foo2 := create(t, repo, home.ID, "sandbox.FooPage", "foo2", false)
	other := create(t, repo, database.RootPageID, "home.HomePage", "other", true)

	rename(t, repo, foo, "foo-edit")
	got, ok, err := repo.MostRecentHistoricalMatch(ctx, home.ID, "foo-edit")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, foo.ID, got.ID, "nested descendants are searched")

	rename(t, repo, foo2, "foo-edit")
	got, ok, err = repo.MostRecentHistoricalMatch(ctx, home.ID, "foo-edit")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, foo2.ID, got.ID, "newest revision wins")

	_, ok, err = repo.MostRecentHistoricalMatch(ctx, other.ID, "foo-edit")
	require.NoError(t, err)
	assert.False(t, ok, "other trees are not searched")

	slug, ok, err := repo.LatestRevisionSlug(ctx, foo.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "foo-edit", slug)
}

func TestHistoricalMatchWithZonedClock(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	home := create(t, repo, database.RootPageID, "home.HomePage", "home", true)
	first := create(t, repo, home.ID, "sandbox.FooPage", "first", false)
	second := create(t, repo, home.ID, "sandbox.FooPage", "second", false)

	repo.Now = func() time.Time { return time.Date(2024, time.March, 6, 9, 0, 0, 0, time.FixedZone("JST", 9*60*60)) }
	rename(t, repo, first, "shared")
	repo.Now = func() time.Time { return time.Date(2024, time.March, 6, 1, 0, 0, 0, time.UTC) }
	rename(t, repo, second, "shared")

	got, ok, err := repo.MostRecentHistoricalMatch(ctx, home.ID, "shared")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second.ID, got.ID, "later instant wins although its wall clock reads earlier")
}

func TestRepositoryDrivesResolver(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	home := create(t, repo, database.RootPageID, "home.HomePage", "home", true)
	blog := create(t, repo, home.ID, "sandbox.FooPage", "blog", true)
	post := create(t, repo, blog.ID, "sandbox.FooPage", "post", false)
	rename(t, repo, blog, "news")

	match, err := resolve.New(repo, nil).Resolve(ctx, home, resolve.Segments("/news/post/"))
	require.NoError(t, err)
	assert.Equal(t, post.ID, match.Page.ID)

	_, err = resolve.ResolveLive(ctx, repo, home, resolve.Segments("/blog/post/"))
	assert.True(t, apperr.Is(err, apperr.CodeNotFound), "draft post is not routed live")

	live, err := resolve.ResolveLive(ctx, repo, home, resolve.Segments("/blog/"))
	require.NoError(t, err)
	assert.Equal(t, blog.ID, live.ID)
}

func TestPathFrom(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	home := create(t, repo, database.RootPageID, "home.HomePage", "home", true)
	a := create(t, repo, home.ID, "sandbox.FooPage", "a", true)
	b := create(t, repo, a.ID, "sandbox.FooPage", "b", true)
	other := create(t, repo, database.RootPageID, "home.HomePage", "other", true)

	slugs, ok, err := repo.PathFrom(ctx, home.ID, b.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/a/b/", URLPath(slugs))

	slugs, ok, err = repo.PathFrom(ctx, home.ID, home.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/", URLPath(slugs))

	_, ok, err = repo.PathFrom(ctx, home.ID, other.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestList(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	home := create(t, repo, database.RootPageID, "home.HomePage", "home", true)
	foo := create(t, repo, home.ID, "sandbox.FooPage", "foo", true)
	bar := create(t, repo, foo.ID, "sandbox.BarPage", "bar", true)
	create(t, repo, home.ID, "sandbox.FooPage", "draft", false)
	create(t, repo, database.RootPageID, "home.HomePage", "elsewhere", true)

	ids := func(pages []models.Page) []int {
		var out []int
		for _, p := range pages {
			out = append(out, p.ID)
		}
		return out
	}

	tests := []struct {
		name      string
		filter    ListFilter
		wantIDs   []int
		wantTotal int
	}{
		{"site live", ListFilter{SiteRootID: home.ID, Limit: NoLimit, LiveOnly: true}, []int{home.ID, foo.ID, bar.ID}, 3},
		{"with drafts", ListFilter{SiteRootID: home.ID, Limit: NoLimit}, nil, 4},
		{"exclude foo", ListFilter{SiteRootID: home.ID, Limit: NoLimit, LiveOnly: true, Types: pagetype.Filter{}.Exclude("sandbox.FooPage")}, []int{home.ID, bar.ID}, 2},
		{"exclude two", ListFilter{SiteRootID: home.ID, Limit: NoLimit, LiveOnly: true, Types: pagetype.Filter{}.Exclude("sandbox.FooPage", "sandbox.BarPage")}, []int{home.ID}, 1},
		{"type", ListFilter{SiteRootID: home.ID, Limit: NoLimit, LiveOnly: true, Types: pagetype.Filter{}.Include("sandbox.BarPage")}, []int{bar.ID}, 1},
		{"child of", ListFilter{SiteRootID: home.ID, Limit: NoLimit, LiveOnly: true, ChildOf: &home.ID}, []int{foo.ID}, 1},
		{"descendant of", ListFilter{SiteRootID: home.ID, Limit: NoLimit, LiveOnly: true, DescendantOf: &home.ID}, []int{foo.ID, bar.ID}, 2},
		{"slug", ListFilter{SiteRootID: home.ID, Limit: NoLimit, LiveOnly: true, Slug: "bar"}, []int{bar.ID}, 1},
		{"paged", ListFilter{SiteRootID: home.ID, LiveOnly: true, Limit: 1, Offset: 1}, []int{foo.ID}, 3},
		{"zero limit", ListFilter{SiteRootID: home.ID, LiveOnly: true, Offset: 1}, []int{}, 3},
		{"offset without limit", ListFilter{SiteRootID: home.ID, LiveOnly: true, Limit: NoLimit, Offset: 1}, []int{foo.ID, bar.ID}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages, total, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)
			if tt.wantIDs != nil {
				assert.ElementsMatch(t, tt.wantIDs, ids(pages))
			}
		})
	}
}

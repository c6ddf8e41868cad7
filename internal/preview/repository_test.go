package preview

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
)

func TestCreateAndGet(t *testing.T) {
	db, err := database.New(filepath.Join(t.TempDir(), "previews.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, database.Migrate(db))

	now := time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)
	repo := NewRepository(db)
	repo.Now = func() time.Time { return now }
	ctx := context.Background()

	p, err := repo.Create(ctx, "sandbox.FooPage", models.RevisionContent{Title: "preview me", Slug: "p"})
	require.NoError(t, err)
	assert.Len(t, p.Token, 36)

	got, err := repo.Get(ctx, "sandbox.FooPage", p.Token)
	require.NoError(t, err)
	assert.Equal(t, "preview me", got.Content.Title)

	_, err = repo.Get(ctx, "sandbox.BarPage", p.Token)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound), "token is bound to its type")

	now = now.Add(MaxAge + time.Minute)
	_, err = repo.Get(ctx, "sandbox.FooPage", p.Token)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound), "expired")

	_, err = repo.Create(ctx, "sandbox.FooPage", models.RevisionContent{Title: "fresh"})
	require.NoError(t, err)
	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM page_previews").Scan(&count))
	assert.Equal(t, 1, count, "expired preview collected")
}

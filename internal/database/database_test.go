package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateIsRepeatable(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM pages WHERE parent_id IS NULL").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestLiveSiblingSlugsAreUnique(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(db))

	insert := "INSERT INTO pages (parent_id, slug, title, live) VALUES (?, ?, ?, ?)"
	_, err = db.Exec(insert, RootPageID, "foo", "a", true)
	require.NoError(t, err)
	_, err = db.Exec(insert, RootPageID, "foo", "draft twin", false)
	require.NoError(t, err, "non-live pages may reuse a live sibling's slug")
	_, err = db.Exec(insert, RootPageID, "foo", "b", true)
	assert.Error(t, err)
}

func TestTimestampSortsAcrossZones(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(db))

	tokyo := time.FixedZone("JST", 9*60*60)
	earlier := time.Date(2024, time.March, 5, 9, 0, 0, 0, tokyo)
	later := time.Date(2024, time.March, 5, 1, 0, 0, 500, time.UTC)
	require.True(t, later.After(earlier))
	assert.Len(t, Timestamp(later), len(TimestampLayout))
	assert.Greater(t, Timestamp(later), Timestamp(earlier))

	insert := "INSERT INTO page_previews (token, page_type, content, created_at) VALUES (?, 'home.HomePage', '{}', ?)"
	_, err = db.Exec(insert, "earlier", Timestamp(earlier))
	require.NoError(t, err)
	_, err = db.Exec(insert, "later", Timestamp(later))
	require.NoError(t, err)

	var token string
	var createdAt time.Time
	require.NoError(t, db.QueryRow(
		"SELECT token, created_at FROM page_previews ORDER BY created_at DESC LIMIT 1").Scan(&token, &createdAt))
	assert.Equal(t, "later", token)
	assert.True(t, later.Equal(createdAt), "read back %s", createdAt)
}

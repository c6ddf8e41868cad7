package site

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"headless/internal/apperr"
	"headless/internal/database"
	"headless/internal/models"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "sites.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return NewRepository(db)
}

func TestSplitHost(t *testing.T) {
	tests := []struct {
		in       string
		wantHost string
		wantPort int
	}{
		{"example.com", "example.com", 0},
		{"example.com:8000", "example.com", 8000},
		{"http://example.com", "http://example.com", 0},
		{"[::1]:8080", "::1", 8080},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			host, port := SplitHost(tt.in)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPort, port)
		})
	}
}

func TestFindForRequest(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	def, err := repo.Create(ctx, models.Site{Hostname: "localhost", RootPageID: database.RootPageID, IsDefaultSite: true})
	require.NoError(t, err)
	alt, err := repo.Create(ctx, models.Site{Hostname: "www.example.com", Port: 8000, RootPageID: database.RootPageID})
	require.NoError(t, err)

	tests := []struct {
		name     string
		host     string
		override string
		wantID   int
		wantCode apperr.Code
	}{
		{"exact host and port", "www.example.com:8000", "", alt.ID, ""},
		{"hostname only", "www.example.com", "", alt.ID, ""},
		{"unknown host falls back to default", "nope.test", "", def.ID, ""},
		{"override", "localhost", "www.example.com:8000", alt.ID, ""},
		{"override without port", "localhost", "www.example.com", alt.ID, ""},
		{"unknown override", "localhost", "nope.test", 0, apperr.CodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v2/pages/", nil)
			req.Host = tt.host
			got, err := repo.FindForRequest(ctx, req, tt.override)
			if tt.wantCode != "" {
				assert.True(t, apperr.Is(err, tt.wantCode), "err = %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestFindForRequestWithoutSites(t *testing.T) {
	repo := newTestRepository(t)
	req := httptest.NewRequest("GET", "/", nil)
	_, err := repo.FindForRequest(context.Background(), req, "")
	assert.True(t, apperr.Is(err, apperr.CodeBadRequest))
}

func TestCreateMovesDefaultFlag(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	_, err := repo.Create(ctx, models.Site{Hostname: "a.test", RootPageID: database.RootPageID, IsDefaultSite: true})
	require.NoError(t, err)
	b, err := repo.Create(ctx, models.Site{Hostname: "b.test", RootPageID: database.RootPageID, IsDefaultSite: true})
	require.NoError(t, err)

	def, err := repo.Default(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, def.ID)

	sites, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, sites, 2)
}

func TestRootURL(t *testing.T) {
	assert.Equal(t, "http://example.com", models.Site{Hostname: "example.com", Port: 80}.RootURL())
	assert.Equal(t, "https://example.com", models.Site{Hostname: "example.com", Port: 443}.RootURL())
	assert.Equal(t, "http://example.com:8000", models.Site{Hostname: "example.com", Port: 8000}.RootURL())
	assert.Equal(t, "http://example.com", models.Site{Hostname: "http://example.com/", Port: 80}.RootURL())
}

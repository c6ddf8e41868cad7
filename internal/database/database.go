package database

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// RootPageID is the id of the tree root every site root hangs under.
const RootPageID = 1

// TimestampLayout is how times are written: UTC with a fixed-width
// fraction, so text order is time order. The driver reads it back as UTC.
const TimestampLayout = "2006-01-02 15:04:05.000000000"

// Timestamp formats t for storage and for comparisons against stored times.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// New opens and pings the SQLite database at dsn with foreign keys enforced.
func New(dsn string) (*sql.DB, error) {
	if !strings.Contains(dsn, "_foreign_keys") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate creates the schema and the tree root if they do not exist.
func Migrate(db *sql.DB) error {
	_, err := db.Exec(`
-- Pages form a single tree; sites point at subtrees of it.
CREATE TABLE IF NOT EXISTS pages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    parent_id INTEGER,
    slug TEXT NOT NULL,
    title TEXT NOT NULL,
    page_type TEXT NOT NULL DEFAULT 'wagtailcore.Page',
    body TEXT NOT NULL DEFAULT '',
    live BOOLEAN NOT NULL DEFAULT 0,
    has_unpublished_changes BOOLEAN NOT NULL DEFAULT 0,
    first_published_at TIMESTAMP,
    last_published_at TIMESTAMP,
    live_revision_id INTEGER,
    latest_revision_id INTEGER,
    FOREIGN KEY(parent_id) REFERENCES pages(id)
);

-- Slugs are unique among live siblings only.
CREATE UNIQUE INDEX IF NOT EXISTS pages_live_sibling_slug
    ON pages (parent_id, slug) WHERE live = 1;

CREATE INDEX IF NOT EXISTS pages_parent ON pages (parent_id);

-- Revisions are append-only snapshots; slug is copied out of content so it
-- can be searched.
CREATE TABLE IF NOT EXISTS revisions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    page_id INTEGER NOT NULL,
    slug TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY(page_id) REFERENCES pages(id)
);

CREATE INDEX IF NOT EXISTS revisions_slug ON revisions (slug, created_at);
CREATE INDEX IF NOT EXISTS revisions_page ON revisions (page_id, created_at);

CREATE TABLE IF NOT EXISTS sites (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    hostname TEXT NOT NULL,
    port INTEGER NOT NULL DEFAULT 80,
    site_name TEXT NOT NULL DEFAULT '',
    root_page_id INTEGER NOT NULL,
    is_default_site BOOLEAN NOT NULL DEFAULT 0,
    FOREIGN KEY(root_page_id) REFERENCES pages(id),
    UNIQUE (hostname, port)
);

CREATE TABLE IF NOT EXISTS redirects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    site_id INTEGER,
    old_path TEXT NOT NULL,
    is_permanent BOOLEAN NOT NULL DEFAULT 1,
    redirect_page_id INTEGER,
    redirect_link TEXT NOT NULL DEFAULT '',
    FOREIGN KEY(site_id) REFERENCES sites(id),
    FOREIGN KEY(redirect_page_id) REFERENCES pages(id)
);

CREATE INDEX IF NOT EXISTS redirects_old_path ON redirects (old_path);

CREATE TABLE IF NOT EXISTS page_previews (
    token TEXT PRIMARY KEY,
    page_type TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

-- Users are the editors allowed to mint draft codes and previews.
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    display_name TEXT NOT NULL
);

-- Identities provide a way for users to authenticate.
CREATE TABLE IF NOT EXISTS identities (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL,
    provider TEXT NOT NULL,
    provider_user_id TEXT NOT NULL,
    password_hash TEXT,
    FOREIGN KEY(user_id) REFERENCES users(id),
    UNIQUE (provider, provider_user_id)
);

INSERT OR IGNORE INTO pages (id, parent_id, slug, title, page_type, live)
    VALUES (1, NULL, 'root', 'Root', 'wagtailcore.Page', 1);
`)
	return err
}

package models

import "time"

// Page represents a single node of the page tree.
type Page struct {
	ID                    int
	ParentID              *int
	Slug                  string
	Title                 string
	PageType              string
	Body                  string
	Live                  bool
	HasUnpublishedChanges bool
	FirstPublishedAt      *time.Time
	LastPublishedAt       *time.Time
	LiveRevisionID        *int
	LatestRevisionID      *int
}

// IsRoot reports whether the page is the root of the whole tree.
func (p Page) IsRoot() bool {
	return p.ParentID == nil
}

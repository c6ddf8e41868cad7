package models

import "time"

// PagePreview is an unsaved page snapshot shared with a front-end by token.
type PagePreview struct {
	Token     string
	PageType  string
	Content   RevisionContent
	CreatedAt time.Time
}

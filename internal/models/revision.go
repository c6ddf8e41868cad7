package models

import (
	"encoding/json"
	"time"
)

// Revision is an immutable snapshot of a page's editable fields.
type Revision struct {
	ID        int
	PageID    int
	Slug      string
	Content   RevisionContent
	CreatedAt time.Time
}

// RevisionContent holds the field values captured by a revision.
type RevisionContent struct {
	Title string `json:"title" yaml:"title"`
	Slug  string `json:"slug" yaml:"slug"`
	Body  string `json:"body" yaml:"body"`
}

// Marshal encodes the snapshot for storage.
func (c RevisionContent) Marshal() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalRevisionContent decodes a stored snapshot.
func UnmarshalRevisionContent(raw string) (RevisionContent, error) {
	var c RevisionContent
	err := json.Unmarshal([]byte(raw), &c)
	return c, err
}

// Apply returns a copy of p carrying the snapshot's field values.
func (c RevisionContent) Apply(p Page) Page {
	p.Title = c.Title
	p.Slug = c.Slug
	p.Body = c.Body
	return p
}

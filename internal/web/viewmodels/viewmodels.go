// Package viewmodels holds the JSON and XML shapes returned by the API.
package viewmodels

import (
	"encoding/xml"
	"time"
)

// PageMeta is the "meta" object of a page payload.
type PageMeta struct {
	Type             string     `json:"type"`
	DetailURL        string     `json:"detail_url"`
	HTMLURL          *string    `json:"html_url"`
	Slug             string     `json:"slug"`
	FirstPublishedAt *time.Time `json:"first_published_at"`
	// Draft is set when the fields come from an unpublished revision.
	Draft bool `json:"draft"`
}

// PageDetail is the detail representation of a page.
type PageDetail struct {
	ID       int      `json:"id"`
	Meta     PageMeta `json:"meta"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	BodyHTML string   `json:"body_html"`
}

// PageListItem is a page as it appears in a listing.
type PageListItem struct {
	ID    int      `json:"id"`
	Meta  PageMeta `json:"meta"`
	Title string   `json:"title"`
}

// ListingMeta carries listing totals.
type ListingMeta struct {
	TotalCount int `json:"total_count"`
}

// PageListing is the response of the pages listing.
type PageListing struct {
	Meta  ListingMeta    `json:"meta"`
	Items []PageListItem `json:"items"`
}

// Redirect is a redirect as exposed to the frontend.
type Redirect struct {
	OldPath     string  `json:"old_path"`
	IsPermanent bool    `json:"is_permanent"`
	Site        *string `json:"site"`
	Link        string  `json:"link"`
}

// Diff is the draft diff response.
type Diff struct {
	ID       int    `json:"id"`
	DiffHTML string `json:"diff_html"`
}

// DraftCode is returned to editors sharing a draft.
type DraftCode struct {
	Draft string `json:"draft"`
	URL   string `json:"url"`
}

// Revision is an entry of a page's revision history.
type Revision struct {
	ID        int       `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Live      bool      `json:"live"`
	Latest    bool      `json:"latest"`
}

// PreviewToken is returned after storing a preview.
type PreviewToken struct {
	Token string `json:"token"`
}

// User is the logged in editor.
type User struct {
	ID          int    `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// Error is the body of every error response.
type Error struct {
	Message string `json:"message"`
}

// URLSet is the sitemap root element.
type URLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []SitemapURL `xml:"url"`
}

// SitemapURL is one sitemap entry.
type SitemapURL struct {
	Location     string `xml:"loc"`
	LastModified string `xml:"lastmod,omitempty"`
}

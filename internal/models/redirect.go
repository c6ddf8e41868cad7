package models

// Redirect maps an old path to a page or an external link.
type Redirect struct {
	ID             int
	SiteID         *int
	SiteHostname   *string
	OldPath        string
	IsPermanent    bool
	RedirectPageID *int
	RedirectLink   string
}

package models

import (
	"fmt"
	"strings"
)

// Site maps a hostname to the root page of one tree.
type Site struct {
	ID            int
	Hostname      string
	Port          int
	SiteName      string
	RootPageID    int
	IsDefaultSite bool
}

// RootURL returns the base URL pages of this site are served under.
func (s Site) RootURL() string {
	if strings.Contains(s.Hostname, "://") {
		return strings.TrimRight(s.Hostname, "/")
	}
	switch s.Port {
	case 80, 0:
		return "http://" + s.Hostname
	case 443:
		return "https://" + s.Hostname
	default:
		return fmt.Sprintf("http://%s:%d", s.Hostname, s.Port)
	}
}

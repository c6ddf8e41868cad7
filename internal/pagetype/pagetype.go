// Package pagetype knows the registered page types and filters pages by them.
package pagetype

import (
	"sort"
	"strings"

	"headless/internal/apperr"
)

// Base is the type every page ultimately is. Excluding it excludes everything.
const Base = "wagtailcore.Page"

// Registry holds the page type names accepted by the API, spelled
// "app_label.ModelName".
type Registry struct {
	byKey map[string]string
}

// NewRegistry registers names. Base is always registered.
func NewRegistry(names ...string) *Registry {
	r := &Registry{byKey: make(map[string]string)}
	r.byKey[strings.ToLower(Base)] = Base
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			r.byKey[strings.ToLower(n)] = n
		}
	}
	return r
}

// Lookup returns the canonical spelling of name.
func (r *Registry) Lookup(name string) (string, bool) {
	canonical, ok := r.byKey[strings.ToLower(strings.TrimSpace(name))]
	return canonical, ok
}

// Names lists the registered types in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.byKey))
	for _, n := range r.byKey {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Parse splits a comma separated list of type names. A malformed or
// unregistered name fails the whole list with a BadRequest error.
func (r *Registry) Parse(csv string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		app, model, ok := strings.Cut(strings.TrimSpace(part), ".")
		if !ok || app == "" || model == "" || strings.Contains(model, ".") {
			return nil, apperr.BadRequest("type doesn't exist")
		}
		canonical, ok := r.Lookup(app + "." + model)
		if !ok {
			return nil, apperr.BadRequest("type doesn't exist")
		}
		out = append(out, canonical)
	}
	return out, nil
}

// Matcher is a predicate over page types.
type Matcher interface {
	Matches(pageType string) bool
}

// Filter keeps pages of any Included type (all types when empty) that are
// of none of the Excluded types.
type Filter struct {
	Included []string
	Excluded []string
}

// Exclude returns f additionally excluding types. Excluding a type that is
// already excluded leaves the filter unchanged.
func (f Filter) Exclude(types ...string) Filter {
	return Filter{Included: f.Included, Excluded: union(f.Excluded, types)}
}

// Include returns f additionally accepting types.
func (f Filter) Include(types ...string) Filter {
	return Filter{Included: union(f.Included, types), Excluded: f.Excluded}
}

// Matches implements Matcher.
func (f Filter) Matches(pageType string) bool {
	if contains(f.Excluded, Base) || contains(f.Excluded, pageType) {
		return false
	}
	return len(f.Included) == 0 || contains(f.Included, Base) || contains(f.Included, pageType)
}

// SQL renders the filter as a WHERE fragment over column, or "" when the
// filter accepts everything.
func (f Filter) SQL(column string) (string, []any) {
	var clauses []string
	var args []any
	if len(f.Included) > 0 {
		if !contains(f.Included, Base) {
			clauses = append(clauses, column+" IN ("+placeholders(len(f.Included))+")")
			args = appendStrings(args, f.Included)
		}
	}
	if len(f.Excluded) > 0 {
		if contains(f.Excluded, Base) {
			return "1 = 0", nil
		}
		clauses = append(clauses, column+" NOT IN ("+placeholders(len(f.Excluded))+")")
		args = appendStrings(args, f.Excluded)
	}
	return strings.Join(clauses, " AND "), args
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == Base || s == v {
			return true
		}
	}
	return false
}

func union(a, b []string) []string {
	out := append([]string(nil), a...)
	for _, v := range b {
		seen := false
		for _, s := range out {
			if s == v {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, v)
		}
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func appendStrings(args []any, values []string) []any {
	for _, v := range values {
		args = append(args, v)
	}
	return args
}

// Package serve decides whether a request sees a page's published fields,
// its latest draft, or nothing.
package serve

// State is the outcome of the serving decision.
type State int

const (
	NotFound State = iota
	PublishedView
	DraftView
)

func (s State) String() string {
	switch s {
	case PublishedView:
		return "PUBLISHED_VIEW"
	case DraftView:
		return "DRAFT_VIEW"
	default:
		return "NOT_FOUND"
	}
}

// Decide picks the view for a resolved page. draftEnabled is false when no
// draft secret is configured; tokenValid is only meaningful when it is true.
// An invalid token never produces a distinct outcome: it behaves exactly as
// if no token had been sent.
func Decide(pageLive, draftEnabled, tokenValid bool) State {
	switch {
	case draftEnabled && tokenValid:
		return DraftView
	case pageLive:
		return PublishedView
	default:
		return NotFound
	}
}

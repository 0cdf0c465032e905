// Package model defines the domain types used across the application.
package model

import "time"

// Post is a single post returned by a feed source.
type Post struct {
	ID   string
	Text string
	// Link is the canonical URL of the post. Empty for search API results,
	// where the permalink is derived from ID.
	Link  string
	Media []MediaRef
}

// MediaRef is an attachment resolved to a fetchable image URL.
type MediaRef struct {
	Key  string
	Type string
	URL  string
}

// MatchResult is the outcome of analyzing one post against the name list.
type MatchResult struct {
	Matched bool
	Names   []string
}

// Notification is a single alert ready for delivery.
type Notification struct {
	Subject    string
	Body       string
	Recipients []string
}

// WindowState is the scheduler state for a point in time.
type WindowState string

// Scheduler states.
const (
	StateActive WindowState = "active"
	StateIdle   WindowState = "idle"
)

// PollWindow is a daily active interval [StartHour, EndHour) evaluated in Location.
// A window with StartHour > EndHour wraps around midnight.
type PollWindow struct {
	StartHour int
	EndHour   int
	Location  *time.Location
}

// Contains reports whether t falls inside the window.
func (w PollWindow) Contains(t time.Time) bool {
	if w.Location != nil {
		t = t.In(w.Location)
	}
	h := t.Hour()
	if w.StartHour <= w.EndHour {
		return h >= w.StartHour && h < w.EndHour
	}
	return h >= w.StartHour || h < w.EndHour
}

// State classifies t as active or idle.
func (w PollWindow) State(t time.Time) WindowState {
	if w.Contains(t) {
		return StateActive
	}
	return StateIdle
}

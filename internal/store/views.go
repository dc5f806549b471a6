package store

import (
	"slices"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// Filter keeps the events whose title, description, location or category
// contains query, ignoring case. A blank query returns events unchanged.
func Filter(events []model.Event, query string) []model.Event {
	if strings.TrimSpace(query) == "" {
		return events
	}
	q := strings.ToLower(query)
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if matches(e, q) {
			out = append(out, e)
		}
	}
	return out
}

func matches(e model.Event, lowerQuery string) bool {
	for _, field := range []string{e.Title, e.Description, e.Location, e.Category} {
		if strings.Contains(strings.ToLower(field), lowerQuery) {
			return true
		}
	}
	return false
}

// Upcoming returns events dated at or after now, earliest first.
func Upcoming(events []model.Event, now time.Time) []model.Event {
	out := selectEvents(events, func(e *model.Event) bool { return !e.StartsAt().Before(now) })
	slices.SortStableFunc(out, func(a, b model.Event) int { return a.StartsAt().Compare(b.StartsAt()) })
	return out
}

// Past returns events dated before now, latest first.
func Past(events []model.Event, now time.Time) []model.Event {
	out := selectEvents(events, func(e *model.Event) bool { return e.StartsAt().Before(now) })
	slices.SortStableFunc(out, func(a, b model.Event) int { return b.StartsAt().Compare(a.StartsAt()) })
	return out
}

// HostedBy returns the events userID created.
func HostedBy(events []model.Event, userID string) []model.Event {
	return selectEvents(events, func(e *model.Event) bool { return e.HostedBy(userID) })
}

// BookedBy returns the events holding at least one ticket for userID.
func BookedBy(events []model.Event, userID string) []model.Event {
	return selectEvents(events, func(e *model.Event) bool { return e.TicketsHeldBy(userID) > 0 })
}

// Public returns the events flagged public.
func Public(events []model.Event) []model.Event {
	return selectEvents(events, func(e *model.Event) bool { return e.IsPublic })
}

func selectEvents(events []model.Event, keep func(*model.Event) bool) []model.Event {
	out := make([]model.Event, 0, len(events))
	for i := range events {
		if keep(&events[i]) {
			out = append(out, events[i].Clone())
		}
	}
	return out
}

// Package model defines the core domain types shared by the EventHub client:
// users, events, their create/update payloads and the AI advisory payloads.
package model

import (
	"strings"
	"time"
)

// MaxTicketsPerUserPerEvent is the default per-user booking limit.
const MaxTicketsPerUserPerEvent = 2

// TokenKey is the well-known key the session token is persisted under.
const TokenKey = "eventhub_token"

// DefaultEventCategories are offered by the create form.
var DefaultEventCategories = []string{
	"Birthday Party", "Wedding Reception", "Corporate Conference", "Music Festival",
	"Workshop", "Charity Gala", "Anniversary Celebration", "Baby Shower",
	"Art Exhibition", "Product Launch", "Networking Event", "Holiday Party",
}

// User is the authenticated actor.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AttendeeInfo is a single booking record on an event.
type AttendeeInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Event is a bookable event as served by the backend.
type Event struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Date        string         `json:"date"`
	Time        string         `json:"time"`
	Location    string         `json:"location"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	ImageURL    string         `json:"imageUrl,omitempty"`
	HostID      string         `json:"hostId,omitempty"`
	Attendees   int            `json:"attendees"`
	Capacity    int            `json:"capacity"`
	IsPublic    bool           `json:"isPublic"`
	Price       *float64       `json:"price,omitempty"`
	BookedBy    []AttendeeInfo `json:"bookedBy,omitempty"`
}

var dateLayouts = []string{time.DateOnly, time.RFC3339, "2006-01-02T15:04"}

// ParseDate parses an event date in any accepted layout.
func ParseDate(s string) (time.Time, bool) {
	d := strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, d); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// StartsAt parses Date. A date that matches no known layout yields the zero
// time, which places the event among past events.
func (e *Event) StartsAt() time.Time {
	t, _ := ParseDate(e.Date)
	return t
}

// IsSoldOut reports whether the locally known attendee count has reached capacity.
func (e *Event) IsSoldOut() bool {
	return e.Attendees >= e.Capacity
}

// TicketsHeldBy counts the bookedBy entries belonging to userID.
func (e *Event) TicketsHeldBy(userID string) int {
	n := 0
	for _, a := range e.BookedBy {
		if a.ID == userID {
			n++
		}
	}
	return n
}

// AttendeeMismatch reports whether the attendee list disagrees with the
// attendee count. It is only meaningful when BookedBy was populated.
func (e *Event) AttendeeMismatch() bool {
	return e.BookedBy != nil && len(e.BookedBy) != e.Attendees
}

// HostedBy reports whether userID created the event.
func (e *Event) HostedBy(userID string) bool {
	return e.HostID != "" && e.HostID == userID
}

// Clone returns a deep copy so callers can never alias a stored snapshot.
func (e Event) Clone() Event {
	if e.Price != nil {
		p := *e.Price
		e.Price = &p
	}
	if e.BookedBy != nil {
		e.BookedBy = append([]AttendeeInfo(nil), e.BookedBy...)
	}
	return e
}

// EventDraft is the payload for creating a new event.
// Server-assigned fields (id, attendees, hostId, bookedBy) are absent.
type EventDraft struct {
	Title       string   `json:"title" validate:"required"`
	Date        string   `json:"date" validate:"required,event_date"`
	Time        string   `json:"time" validate:"required"`
	Location    string   `json:"location" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Category    string   `json:"category" validate:"required"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Capacity    int      `json:"capacity" validate:"min=1"`
	IsPublic    bool     `json:"isPublic"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
}

// EventPatch is the payload for a partial update. Nil fields are left alone.
type EventPatch struct {
	Title       *string  `json:"title,omitempty" validate:"omitempty,min=1"`
	Date        *string  `json:"date,omitempty" validate:"omitempty,event_date"`
	Time        *string  `json:"time,omitempty"`
	Location    *string  `json:"location,omitempty"`
	Description *string  `json:"description,omitempty"`
	Category    *string  `json:"category,omitempty"`
	ImageURL    *string  `json:"imageUrl,omitempty"`
	Capacity    *int     `json:"capacity,omitempty" validate:"omitempty,min=1"`
	IsPublic    *bool    `json:"isPublic,omitempty"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
}

// PartialEvent is an update response whose fields may be missing.
type PartialEvent struct {
	ID          *string         `json:"id"`
	Title       *string         `json:"title"`
	Date        *string         `json:"date"`
	Time        *string         `json:"time"`
	Location    *string         `json:"location"`
	Description *string         `json:"description"`
	Category    *string         `json:"category"`
	ImageURL    *string         `json:"imageUrl"`
	HostID      *string         `json:"hostId"`
	Attendees   *int            `json:"attendees"`
	Capacity    *int            `json:"capacity"`
	IsPublic    *bool           `json:"isPublic"`
	Price       *float64        `json:"price"`
	BookedBy    *[]AttendeeInfo `json:"bookedBy"`
}

// MergeInto overlays the present fields onto base and returns the result.
// ID and HostID are immutable and never taken from the response.
func (p PartialEvent) MergeInto(base Event) Event {
	out := base.Clone()
	setString(&out.Title, p.Title)
	setString(&out.Date, p.Date)
	setString(&out.Time, p.Time)
	setString(&out.Location, p.Location)
	setString(&out.Description, p.Description)
	setString(&out.Category, p.Category)
	setString(&out.ImageURL, p.ImageURL)
	if p.Attendees != nil {
		out.Attendees = *p.Attendees
	}
	if p.Capacity != nil {
		out.Capacity = *p.Capacity
	}
	if p.IsPublic != nil {
		out.IsPublic = *p.IsPublic
	}
	if p.Price != nil {
		v := *p.Price
		out.Price = &v
	}
	if p.BookedBy != nil {
		out.BookedBy = append([]AttendeeInfo(nil), (*p.BookedBy)...)
	}
	return out
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
}

// SignupRequest is the signup payload.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
}

// AuthResponse is returned by login and signup.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// MessageResponse is the backend's {message} envelope, used for deletes and errors.
type MessageResponse struct {
	Message string `json:"message"`
}

// Page names a shell view.
type Page string

const (
	PageDashboard         Page = "dashboard"
	PageCreateEvent       Page = "createEvent"
	PageAIRecommendations Page = "aiRecommendations"
	PagePublicEvents      Page = "publicEvents"
	PageProfile           Page = "profile"
	PageLogin             Page = "login"
	PageSignup            Page = "signup"
	PageEventDetails      Page = "eventDetails"
)

// Valid reports whether p is a known page.
func (p Page) Valid() bool {
	switch p {
	case PageDashboard, PageCreateEvent, PageAIRecommendations, PagePublicEvents,
		PageProfile, PageLogin, PageSignup, PageEventDetails:
		return true
	}
	return false
}

// RecommendationType distinguishes venues from vendors.
type RecommendationType string

const (
	RecommendationVenue  RecommendationType = "venue"
	RecommendationVendor RecommendationType = "vendor"
)

// Recommendation is a single AI suggestion.
type Recommendation struct {
	Name        string             `json:"name"`
	Type        RecommendationType `json:"type"`
	Description string             `json:"description"`
	Pros        []string           `json:"pros,omitempty"`
	Cons        []string           `json:"cons,omitempty"`
}

// Recommendations is the AI recommendation payload.
type Recommendations struct {
	Recommendations []Recommendation `json:"recommendations"`
	Summary         string           `json:"summary,omitempty"`
	RawResponse     string           `json:"rawResponse,omitempty"`
}

// NewsSource is a web source that grounded a news answer.
type NewsSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// News is the AI news payload.
type News struct {
	Text    string       `json:"text"`
	Sources []NewsSource `json:"sources,omitempty"`
}

// GeneratedImage holds a banner image usable directly as an image source.
type GeneratedImage struct {
	ImageURL string `json:"imageUrl"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

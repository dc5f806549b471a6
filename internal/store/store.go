// Package store is the Event Store and View Engine: the client's single
// authoritative copy of the event collection and the current session, the
// operations that change them, and the derived views read from them.
//
// The collection is published as an immutable slice. Writers build a new
// slice and swap it in under the lock, so a reader never sees a half-applied
// change.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/eventhub/internal/apperr"
	"github.com/Shivanand-hulikatti/eventhub/internal/gateway"
	"github.com/Shivanand-hulikatti/eventhub/internal/guard"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/notify"
	"github.com/Shivanand-hulikatti/eventhub/internal/session"
)

const msgSessionExpired = "Session expired. Please log in again."

// Backend is the part of the REST gateway the store drives.
type Backend interface {
	Login(ctx context.Context, creds model.Credentials) (*model.AuthResponse, error)
	Signup(ctx context.Context, req model.SignupRequest) (*model.AuthResponse, error)
	CurrentUser(ctx context.Context) (*model.User, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	CreateEvent(ctx context.Context, draft model.EventDraft) (*model.Event, error)
	UpdateEvent(ctx context.Context, id string, patch model.EventPatch) (*model.PartialEvent, error)
	DeleteEvent(ctx context.Context, id string) (string, error)
}

// TokenStore persists the session token.
type TokenStore interface {
	Load(ctx context.Context) (string, bool, error)
	Save(ctx context.Context, tok string) error
	Clear(ctx context.Context) error
}

// ImageGenerator produces banner images for new events.
type ImageGenerator interface {
	Configured() bool
	GenerateImage(ctx context.Context, title, category string) (*model.GeneratedImage, error)
}

// Store holds the event collection and session.
type Store struct {
	backend  Backend
	tokens   TokenStore
	images   ImageGenerator
	guard    *guard.Guard
	notifier notify.Notifier
	validate *validator.Validate
	log      *zap.Logger
	now      func() time.Time

	bootstrapping atomic.Bool

	mu       sync.RWMutex
	events   []model.Event
	user     *model.User
	query    string
	apiError string
}

// Option customizes a Store.
type Option func(*Store)

// WithImages enables AI banners for events created without an image.
func WithImages(g ImageGenerator) Option { return func(s *Store) { s.images = g } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(s *Store) { s.log = l } }

// WithClock replaces time.Now for the date-based views.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// New builds an empty Store. g is shared with every other mutating workflow.
func New(backend Backend, tokens TokenStore, g *guard.Guard, n notify.Notifier, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		tokens:   tokens,
		guard:    g,
		notifier: n,
		validate: newValidator(),
		log:      zap.NewNop(),
		now:      time.Now,
		events:   []model.Event{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ─── Reads ───────────────────────────────────────────────────────────────────

func (s *Store) snapshot() ([]model.Event, *model.User, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events, s.user, s.query
}

// Events returns a copy of the whole collection in stored order.
func (s *Store) Events() []model.Event {
	events, _, _ := s.snapshot()
	return selectEvents(events, func(*model.Event) bool { return true })
}

// Event returns a copy of the event with id.
func (s *Store) Event(id string) (model.Event, bool) {
	events, _, _ := s.snapshot()
	for i := range events {
		if events[i].ID == id {
			return events[i].Clone(), true
		}
	}
	return model.Event{}, false
}

// CurrentUser returns the signed-in user, or nil.
func (s *Store) CurrentUser() *model.User {
	_, u, _ := s.snapshot()
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

// TicketCount is how many tickets the current user holds for eventID.
func (s *Store) TicketCount(eventID string) int {
	e, ok := s.Event(eventID)
	u := s.CurrentUser()
	if !ok || u == nil {
		return 0
	}
	return e.TicketsHeldBy(u.ID)
}

// SearchQuery returns the active search text.
func (s *Store) SearchQuery() string {
	_, _, q := s.snapshot()
	return q
}

// SetSearchQuery changes the search text. The collection is untouched.
func (s *Store) SetSearchQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = q
}

// LoadError is the last failure message shown page-wide, or "".
func (s *Store) LoadError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiError
}

// ClearError drops the page-wide failure message.
func (s *Store) ClearError() { s.setError("") }

// RecordError sets the page-wide failure message for a failure reported
// by another workflow.
func (s *Store) RecordError(msg string) { s.setError(msg) }

// Loading reports whether Bootstrap is running.
func (s *Store) Loading() bool { return s.bootstrapping.Load() }

// Upcoming is the search-filtered events dated at or after now, earliest first.
func (s *Store) Upcoming() []model.Event {
	events, _, q := s.snapshot()
	return Filter(Upcoming(events, s.now()), q)
}

// Past is the search-filtered events dated before now, latest first.
func (s *Store) Past() []model.Event {
	events, _, q := s.snapshot()
	return Filter(Past(events, s.now()), q)
}

// HostedByCurrentUser ignores the search query.
func (s *Store) HostedByCurrentUser() []model.Event {
	events, u, _ := s.snapshot()
	if u == nil {
		return []model.Event{}
	}
	return HostedBy(events, u.ID)
}

// BookedByCurrentUser ignores the search query.
func (s *Store) BookedByCurrentUser() []model.Event {
	events, u, _ := s.snapshot()
	if u == nil {
		return []model.Event{}
	}
	return BookedBy(events, u.ID)
}

// PublicEvents is the search-filtered public events.
func (s *Store) PublicEvents() []model.Event {
	events, _, q := s.snapshot()
	return Filter(Public(events), q)
}

// ─── Writes ──────────────────────────────────────────────────────────────────

func (s *Store) setError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiError = msg
}

// fail records err page-wide and tells the user.
func (s *Store) fail(err error) error {
	s.setError(err.Error())
	s.notifier.Notify(err.Error(), notify.ToneError)
	return err
}

func (s *Store) replaceEvents(events []model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = events
}

// patchEvents publishes fn's result computed from the current collection.
func (s *Store) patchEvents(fn func(old []model.Event) []model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = fn(s.events)
}

// RefreshAll replaces the collection with the backend's listing. Concurrent
// refreshes are allowed; whichever response lands last is kept.
func (s *Store) RefreshAll(ctx context.Context) ([]model.Event, error) {
	s.setError("")
	events, err := s.backend.ListEvents(ctx)
	if err != nil {
		s.log.Warn("refresh failed", zap.Error(err))
		return nil, s.fail(err)
	}
	for i := range events {
		if events[i].AttendeeMismatch() {
			s.log.Debug("attendee list disagrees with count",
				zap.String("event_id", events[i].ID),
				zap.Int("attendees", events[i].Attendees),
				zap.Int("booked_by", len(events[i].BookedBy)))
		}
	}
	s.replaceEvents(events)
	return selectEvents(events, func(*model.Event) bool { return true }), nil
}

// Bootstrap restores a persisted session, then loads the collection.
func (s *Store) Bootstrap(ctx context.Context) error {
	s.bootstrapping.Store(true)
	defer s.bootstrapping.Store(false)
	s.setError("")

	tok, ok, err := s.tokens.Load(ctx)
	switch {
	case errors.Is(err, session.ErrTokenExpired):
		s.log.Info("persisted token expired")
		s.endSession(ctx)
	case err != nil:
		s.log.Warn("could not read persisted token", zap.Error(err))
	case ok && tok != "":
		u, err := s.backend.CurrentUser(ctx)
		if err != nil {
			s.log.Info("persisted token rejected", zap.Error(err))
			s.endSession(ctx)
			break
		}
		s.mu.Lock()
		s.user = u
		s.mu.Unlock()
	}

	_, err = s.RefreshAll(ctx)
	return err
}

// endSession drops the token and user after expiry or a 401.
func (s *Store) endSession(ctx context.Context) {
	if err := s.tokens.Clear(ctx); err != nil {
		s.log.Warn("could not clear token", zap.Error(err))
	}
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
	s.notifier.Notify(msgSessionExpired, notify.ToneError)
}

// ExpireSession ends the session after the backend rejected its token.
func (s *Store) ExpireSession(ctx context.Context) { s.endSession(ctx) }

// backendFailure classifies a failed mutating call. A 401 forces a logout
// and a 404 becomes NotFound; everything else is reported as is.
func (s *Store) backendFailure(ctx context.Context, err error) error {
	switch {
	case gateway.IsUnauthorized(err):
		s.endSession(ctx)
		e := apperr.Wrap(apperr.KindAuthentication, err, msgSessionExpired)
		s.setError(e.Message)
		return e
	case gateway.IsNotFound(err):
		return s.fail(apperr.Wrap(apperr.KindNotFound, err, err.Error()))
	default:
		return s.fail(err)
	}
}

// Login signs in and reloads the collection.
func (s *Store) Login(ctx context.Context, email, password string) (*model.User, error) {
	s.setError("")
	resp, err := s.backend.Login(ctx, model.Credentials{Email: email, Password: password})
	if err != nil {
		return nil, s.fail(err)
	}
	if err := s.startSession(ctx, resp); err != nil {
		return nil, s.fail(err)
	}
	s.notifier.Notify(fmt.Sprintf("Welcome back, %s!", resp.User.Name), notify.ToneSuccess)
	_, _ = s.RefreshAll(ctx)
	return s.CurrentUser(), nil
}

// Signup creates an account, signs in and reloads the collection.
func (s *Store) Signup(ctx context.Context, name, email, password string) (*model.User, error) {
	s.setError("")
	resp, err := s.backend.Signup(ctx, model.SignupRequest{Name: name, Email: email, Password: password})
	if err != nil {
		return nil, s.fail(err)
	}
	if err := s.startSession(ctx, resp); err != nil {
		return nil, s.fail(err)
	}
	s.notifier.Notify(fmt.Sprintf("Welcome, %s! Your account has been created.", resp.User.Name), notify.ToneSuccess)
	_, _ = s.RefreshAll(ctx)
	return s.CurrentUser(), nil
}

func (s *Store) startSession(ctx context.Context, resp *model.AuthResponse) error {
	if err := s.tokens.Save(ctx, resp.Token); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	u := resp.User
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
	return nil
}

// Logout drops the session, the collection and the search query.
func (s *Store) Logout(ctx context.Context) {
	if err := s.tokens.Clear(ctx); err != nil {
		s.log.Warn("could not clear token", zap.Error(err))
	}
	s.mu.Lock()
	s.user = nil
	s.events = []model.Event{}
	s.query = ""
	s.mu.Unlock()
	s.notifier.Notify("You have been logged out.", notify.ToneInfo)
}

// CreateEvent validates draft, optionally asks for an AI banner, creates
// the event and prepends it to the collection.
func (s *Store) CreateEvent(ctx context.Context, draft model.EventDraft) (*model.Event, error) {
	release, ok := s.guard.TryAcquire()
	if !ok {
		return nil, apperr.ErrBusy
	}
	defer release()

	if s.CurrentUser() == nil {
		s.notifier.Notify("Please log in to create an event.", notify.ToneInfo)
		return nil, apperr.New(apperr.KindAuthentication, "Please log in to create an event.")
	}
	if err := s.validate.Struct(draft); err != nil {
		return nil, s.fail(validationError(err))
	}
	s.setError("")

	if draft.ImageURL == "" && s.images != nil && s.images.Configured() {
		draft.ImageURL = s.banner(ctx, draft)
	}

	created, err := s.backend.CreateEvent(ctx, draft)
	if err != nil {
		return nil, s.backendFailure(ctx, err)
	}

	e := created.Clone()
	s.patchEvents(func(old []model.Event) []model.Event {
		next := make([]model.Event, 0, len(old)+1)
		next = append(next, e)
		return append(next, old...)
	})
	s.notifier.Notify(fmt.Sprintf(`Event "%s" created successfully!`, e.Title), notify.ToneSuccess)
	s.log.Info("event created", zap.String("event_id", e.ID))
	return created, nil
}

func (s *Store) banner(ctx context.Context, draft model.EventDraft) string {
	s.notifier.Notify("Generating event image with AI...", notify.ToneInfo)
	img, err := s.images.GenerateImage(ctx, draft.Title, draft.Category)
	if err != nil {
		s.notifier.Notify(fmt.Sprintf("AI image generation failed: %s. Proceeding without AI image.", err), notify.ToneError)
		return ""
	}
	s.notifier.Notify("AI image generated successfully!", notify.ToneSuccess)
	return img.ImageURL
}

// UpdateEvent sends patch for a locally known event the current user hosts
// and merges the response into the stored entity.
func (s *Store) UpdateEvent(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error) {
	release, ok := s.guard.TryAcquire()
	if !ok {
		return nil, apperr.ErrBusy
	}
	defer release()

	u := s.CurrentUser()
	if u == nil {
		s.notifier.Notify("Please log in to edit events.", notify.ToneInfo)
		return nil, apperr.New(apperr.KindAuthentication, "Please log in to edit events.")
	}
	existing, found := s.Event(id)
	if !found {
		return nil, s.fail(apperr.New(apperr.KindNotFound, "Event not found"))
	}
	if existing.HostID != "" && existing.HostID != u.ID {
		return nil, s.fail(apperr.New(apperr.KindAuthorization, "You can only edit events you hosted."))
	}
	if err := s.validate.Struct(patch); err != nil {
		return nil, s.fail(validationError(err))
	}
	s.setError("")

	partial, err := s.backend.UpdateEvent(ctx, id, patch)
	if err != nil {
		return nil, s.backendFailure(ctx, err)
	}

	var merged model.Event
	s.patchEvents(func(old []model.Event) []model.Event {
		next := make([]model.Event, len(old))
		copy(next, old)
		base := existing
		for i := range next {
			if next[i].ID == id {
				base = next[i]
				merged = partial.MergeInto(base)
				next[i] = merged
				return next
			}
		}
		merged = partial.MergeInto(base)
		return next
	})
	s.notifier.Notify(fmt.Sprintf(`Event "%s" updated successfully!`, merged.Title), notify.ToneSuccess)
	s.log.Info("event updated", zap.String("event_id", id))
	out := merged.Clone()
	return &out, nil
}

// DeleteEvent removes an event the current user hosts.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	release, ok := s.guard.TryAcquire()
	if !ok {
		return apperr.ErrBusy
	}
	defer release()

	u := s.CurrentUser()
	if u == nil {
		s.notifier.Notify("Please log in to delete events.", notify.ToneInfo)
		return apperr.New(apperr.KindAuthentication, "Please log in to delete events.")
	}
	title := "this event"
	if existing, found := s.Event(id); found {
		if existing.HostID != "" && existing.HostID != u.ID {
			return s.fail(apperr.New(apperr.KindAuthorization, "You can only delete events you hosted."))
		}
		title = existing.Title
	}
	s.setError("")

	if _, err := s.backend.DeleteEvent(ctx, id); err != nil {
		return s.backendFailure(ctx, err)
	}

	s.patchEvents(func(old []model.Event) []model.Event {
		next := make([]model.Event, 0, len(old))
		for _, e := range old {
			if e.ID != id {
				next = append(next, e)
			}
		}
		return next
	})
	s.notifier.Notify(fmt.Sprintf(`Event "%s" deleted.`, title), notify.ToneSuccess)
	s.log.Info("event deleted", zap.String("event_id", id))
	return nil
}

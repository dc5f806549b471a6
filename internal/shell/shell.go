// Package shell holds the presentation state that sits on top of the event
// store: the current page, the open event detail and the event being edited.
// It reads the store and never changes the collection itself.
package shell

import (
	"sync"

	"github.com/Shivanand-hulikatti/eventhub/internal/apperr"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/notify"
)

// Session is what the shell reads from the event store.
type Session interface {
	CurrentUser() *model.User
	Event(id string) (model.Event, bool)
	ClearError()
}

// State is the mutex-guarded presentation state.
type State struct {
	session  Session
	notifier notify.Notifier

	mu      sync.Mutex
	page    model.Page
	detail  *model.Event
	editing *model.Event
}

// New starts on the dashboard.
func New(session Session, n notify.Notifier) *State {
	return &State{session: session, notifier: n, page: model.PageDashboard}
}

// Page is the current page.
func (s *State) Page() model.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Navigate moves straight to p. Workflows use it for redirects.
func (s *State) Navigate(p model.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = p
}

// Visit is a user's request to open p. Pages that need a user redirect to
// login, login and signup redirect a signed-in user to the dashboard, and
// any other move drops the edit target and the page-wide error. It returns
// the page actually shown.
func (s *State) Visit(p model.Page) model.Page {
	signedIn := s.session.CurrentUser() != nil
	switch {
	case p == model.PageCreateEvent && !signedIn:
		s.notifier.Notify("Please log in to create an event.", notify.ToneInfo)
		s.Navigate(model.PageLogin)
		return model.PageLogin
	case (p == model.PageLogin || p == model.PageSignup) && signedIn:
		s.Navigate(model.PageDashboard)
		return model.PageDashboard
	case p == model.PageProfile && !signedIn:
		s.Navigate(model.PageLogin)
		return model.PageLogin
	}

	s.mu.Lock()
	s.editing = nil
	s.page = p
	s.mu.Unlock()
	s.session.ClearError()
	return p
}

// OpenDetail shows a copy of the event with id.
func (s *State) OpenDetail(id string) (model.Event, error) {
	e, ok := s.session.Event(id)
	if !ok {
		return model.Event{}, apperr.New(apperr.KindNotFound, "Event not found")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := e.Clone()
	s.detail = &cp
	return e, nil
}

// CloseDetail hides the detail view.
func (s *State) CloseDetail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detail = nil
}

// Detail returns the event on display, if any.
func (s *State) Detail() (model.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detail == nil {
		return model.Event{}, false
	}
	return s.detail.Clone(), true
}

// ReplaceIfShowing swaps in e when the detail view shows the same event.
func (s *State) ReplaceIfShowing(e model.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detail == nil || s.detail.ID != e.ID {
		return false
	}
	cp := e.Clone()
	s.detail = &cp
	return true
}

// StartEdit opens the form for an event the current user may change.
func (s *State) StartEdit(id string) (model.Event, error) {
	e, ok := s.session.Event(id)
	if !ok {
		return model.Event{}, apperr.New(apperr.KindNotFound, "Event not found")
	}
	if u := s.session.CurrentUser(); e.HostID != "" && u != nil && e.HostID != u.ID {
		s.notifier.Notify("You can only edit events you hosted.", notify.ToneError)
		return model.Event{}, apperr.New(apperr.KindAuthorization, "You can only edit events you hosted.")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := e.Clone()
	s.editing = &cp
	s.page = model.PageCreateEvent
	return e, nil
}

// Editing returns the event the form is editing, if any.
func (s *State) Editing() (model.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editing == nil {
		return model.Event{}, false
	}
	return s.editing.Clone(), true
}

// FinishEdit drops the edit target and returns to the dashboard. It runs
// after a successful save and when the form is cancelled.
func (s *State) FinishEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editing = nil
	s.page = model.PageDashboard
}

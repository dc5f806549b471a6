// Package backendtest is an in-memory implementation of the EventHub REST
// backend served through httptest. Tests drive the real gateway against it
// and count calls per route to prove which guards never reach the network.
package backendtest

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("Event not found")

// ErrEventFull is returned when an event has no remaining capacity.
var ErrEventFull = errors.New("Event is sold out")

// ErrTicketLimit is returned when a user already holds the maximum tickets.
var ErrTicketLimit = errors.New("Maximum ticket limit reached for this event")

// ErrNotHost is returned when a non-host tries to change an event.
var ErrNotHost = errors.New("Only the host can modify this event")

type account struct {
	user     model.User
	password string
}

// repository is the mutex-guarded state behind the fake backend.
type repository struct {
	mu         sync.Mutex
	accounts   map[string]*account // by email
	tokens     map[string]string   // token -> user id
	events     []model.Event       // newest first
	maxPerUser int
}

func newRepository(maxPerUser int) *repository {
	return &repository{
		accounts:   make(map[string]*account),
		tokens:     make(map[string]string),
		maxPerUser: maxPerUser,
	}
}

func (r *repository) signup(name, email, password string) (model.AuthResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[email]; ok {
		return model.AuthResponse{}, errors.New("Email already registered")
	}
	u := model.User{ID: uuid.NewString(), Name: name, Email: email}
	r.accounts[email] = &account{user: u, password: password}
	return r.issueLocked(u), nil
}

func (r *repository) login(email, password string) (model.AuthResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[email]
	if !ok || acc.password != password {
		return model.AuthResponse{}, errors.New("Invalid email or password")
	}
	return r.issueLocked(acc.user), nil
}

func (r *repository) issueLocked(u model.User) model.AuthResponse {
	tok := uuid.NewString()
	r.tokens[tok] = u.ID
	return model.AuthResponse{Token: tok, User: u}
}

func (r *repository) userByToken(tok string) (model.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.tokens[tok]
	if !ok {
		return model.User{}, false
	}
	for _, acc := range r.accounts {
		if acc.user.ID == id {
			return acc.user, true
		}
	}
	return model.User{}, false
}

func (r *repository) list() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Event, len(r.events))
	for i, e := range r.events {
		out[i] = e.Clone()
	}
	return out
}

func (r *repository) indexLocked(id string) int {
	for i := range r.events {
		if r.events[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *repository) get(id string) (model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(id)
	if i < 0 {
		return model.Event{}, ErrNotFound
	}
	return r.events[i].Clone(), nil
}

func (r *repository) create(host model.User, d model.EventDraft) model.Event {
	e := model.Event{
		ID:          uuid.NewString(),
		Title:       d.Title,
		Date:        d.Date,
		Time:        d.Time,
		Location:    d.Location,
		Description: d.Description,
		Category:    d.Category,
		ImageURL:    d.ImageURL,
		HostID:      host.ID,
		Capacity:    d.Capacity,
		IsPublic:    d.IsPublic,
		Price:       d.Price,
		BookedBy:    []model.AttendeeInfo{},
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append([]model.Event{e}, r.events...)
	return e.Clone()
}

func (r *repository) update(actor model.User, id string, p model.EventPatch) (model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(id)
	if i < 0 {
		return model.Event{}, ErrNotFound
	}
	e := &r.events[i]
	if e.HostID != "" && e.HostID != actor.ID {
		return model.Event{}, ErrNotHost
	}
	apply := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	apply(&e.Title, p.Title)
	apply(&e.Date, p.Date)
	apply(&e.Time, p.Time)
	apply(&e.Location, p.Location)
	apply(&e.Description, p.Description)
	apply(&e.Category, p.Category)
	apply(&e.ImageURL, p.ImageURL)
	if p.Capacity != nil {
		e.Capacity = *p.Capacity
	}
	if p.IsPublic != nil {
		e.IsPublic = *p.IsPublic
	}
	if p.Price != nil {
		v := *p.Price
		e.Price = &v
	}
	return e.Clone(), nil
}

func (r *repository) delete(actor model.User, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(id)
	if i < 0 {
		return ErrNotFound
	}
	if h := r.events[i].HostID; h != "" && h != actor.ID {
		return ErrNotHost
	}
	r.events = append(r.events[:i], r.events[i+1:]...)
	return nil
}

// book mirrors a locked read-check-write on the server: capacity and the
// per-user limit are checked and the counters bumped under one lock.
func (r *repository) book(actor model.User, id string) (model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(id)
	if i < 0 {
		return model.Event{}, ErrNotFound
	}
	e := &r.events[i]
	if e.Attendees >= e.Capacity {
		return model.Event{}, ErrEventFull
	}
	if e.TicketsHeldBy(actor.ID) >= r.maxPerUser {
		return model.Event{}, ErrTicketLimit
	}
	e.Attendees++
	e.BookedBy = append(e.BookedBy, model.AttendeeInfo{ID: actor.ID, Name: actor.Name})
	return e.Clone(), nil
}

package backendtest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// Route keys accepted by Calls and FailNext.
const (
	RouteLogin       = "POST /auth/login"
	RouteSignup      = "POST /auth/signup"
	RouteCurrentUser = "GET /users/me"
	RouteListEvents  = "GET /events"
	RouteGetEvent    = "GET /events/{id}"
	RouteCreateEvent = "POST /events"
	RouteUpdateEvent = "PUT /events/{id}"
	RouteDeleteEvent = "DELETE /events/{id}"
	RouteBookTicket  = "POST /events/{id}/book"
)

type failure struct {
	status  int
	message string
	raw     bool
}

// Server is the fake backend. Its API lives under BaseURL().
type Server struct {
	*httptest.Server
	repo *repository

	mu             sync.Mutex
	calls          map[string]int
	failures       map[string][]failure
	partialUpdates bool
	bookGate       chan struct{}
	bookStarted    chan struct{}
}

// New starts a fake backend enforcing maxPerUser tickets per user per event.
func New(maxPerUser int) *Server {
	s := &Server{
		repo:     newRepository(maxPerUser),
		calls:    make(map[string]int),
		failures: make(map[string][]failure),
	}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.login)
		r.Post("/auth/signup", s.signup)
		r.Get("/users/me", s.currentUser)
		r.Route("/events", func(r chi.Router) {
			r.Get("/", s.listEvents)
			r.Post("/", s.createEvent)
			r.Get("/{id}", s.getEvent)
			r.Put("/{id}", s.updateEvent)
			r.Delete("/{id}", s.deleteEvent)
			r.Post("/{id}/book", s.bookTicket)
		})
	})

	s.Server = httptest.NewServer(r)
	return s
}

// BaseURL is the root the gateway should be pointed at.
func (s *Server) BaseURL() string { return s.URL + "/api" }

// ─── Test controls ───────────────────────────────────────────────────────────

// Seed appends events as they are, keeping their ids and counters.
func (s *Server) Seed(events ...model.Event) {
	s.repo.mu.Lock()
	defer s.repo.mu.Unlock()
	for _, e := range events {
		s.repo.events = append(s.repo.events, e.Clone())
	}
}

// AddUser registers an account and returns a valid token for it.
func (s *Server) AddUser(id, name, email, password string) string {
	s.repo.mu.Lock()
	defer s.repo.mu.Unlock()
	u := model.User{ID: id, Name: name, Email: email}
	s.repo.accounts[email] = &account{user: u, password: password}
	return s.repo.issueLocked(u).Token
}

// Events returns the backend's current events.
func (s *Server) Events() []model.Event { return s.repo.list() }

// Calls returns how many times route was hit.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// FailNext makes the next call to route answer status with a {message} body.
func (s *Server) FailNext(route string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], failure{status: status, message: message})
}

// FailNextRaw makes the next call to route answer status with a non-JSON body.
func (s *Server) FailNextRaw(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], failure{status: status, raw: true})
}

// SetPartialUpdates makes PUT /events/{id} answer only the patched fields
// plus the id.
func (s *Server) SetPartialUpdates(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partialUpdates = on
}

// HoldBookings blocks every booking until release is called. started
// receives once per booking that reached the handler.
func (s *Server) HoldBookings() (started <-chan struct{}, release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookGate = make(chan struct{})
	s.bookStarted = make(chan struct{}, 16)
	gate := s.bookGate
	var once sync.Once
	return s.bookStarted, func() { once.Do(func() { close(gate) }) }
}

// hit counts the call and reports whether an injected failure was written.
func (s *Server) hit(w http.ResponseWriter, route string) bool {
	s.mu.Lock()
	s.calls[route]++
	queue := s.failures[route]
	var f *failure
	if len(queue) > 0 {
		f = &queue[0]
		s.failures[route] = queue[1:]
	}
	s.mu.Unlock()

	if f == nil {
		return false
	}
	if f.raw {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte("<html>gateway error</html>"))
		return true
	}
	writeError(w, f.status, f.message)
	return true
}

// ─── Helper utilities ────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.MessageResponse{Message: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (model.User, bool) {
	tok, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found || tok == "" {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return model.User{}, false
	}
	u, ok := s.repo.userByToken(tok)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid or expired token")
		return model.User{}, false
	}
	return u, true
}

func writeRepoError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotHost):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrEventFull), errors.Is(err, ErrTicketLimit):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

// ─── Handlers ────────────────────────────────────────────────────────────────

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if s.hit(w, RouteLogin) {
		return
	}
	var req model.Credentials
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	resp, err := s.repo.login(req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	if s.hit(w, RouteSignup) {
		return
	}
	var req model.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	resp, err := s.repo.signup(req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) {
	if s.hit(w, RouteCurrentUser) {
		return
	}
	u, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	if s.hit(w, RouteListEvents) {
		return
	}
	writeJSON(w, http.StatusOK, s.repo.list())
}

func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	if s.hit(w, RouteGetEvent) {
		return
	}
	e, err := s.repo.get(chi.URLParam(r, "id"))
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	if s.hit(w, RouteCreateEvent) {
		return
	}
	u, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req model.EventDraft
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, s.repo.create(u, req))
}

func (s *Server) updateEvent(w http.ResponseWriter, r *http.Request) {
	if s.hit(w, RouteUpdateEvent) {
		return
	}
	u, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req model.EventPatch
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	e, err := s.repo.update(u, id, req)
	if err != nil {
		writeRepoError(w, err)
		return
	}

	s.mu.Lock()
	partial := s.partialUpdates
	s.mu.Unlock()
	if !partial {
		writeJSON(w, http.StatusOK, e)
		return
	}

	// Echo the patch back with the id, the way a PATCH-style backend would.
	body := map[string]any{"id": e.ID}
	raw, _ := json.Marshal(req)
	_ = json.Unmarshal(raw, &body)
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) deleteEvent(w http.ResponseWriter, r *http.Request) {
	if s.hit(w, RouteDeleteEvent) {
		return
	}
	u, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	if err := s.repo.delete(u, chi.URLParam(r, "id")); err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Event deleted successfully"})
}

func (s *Server) bookTicket(w http.ResponseWriter, r *http.Request) {
	if s.hit(w, RouteBookTicket) {
		return
	}
	u, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	gate, started := s.bookGate, s.bookStarted
	s.mu.Unlock()
	if gate != nil {
		started <- struct{}{}
		<-gate
	}

	e, err := s.repo.book(u, chi.URLParam(r, "id"))
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// Package handler contains the chi HTTP handlers of the presentation shell.
// Each handler turns a JSON request into one intent on the event store, the
// booking workflow, the shell state or the AI advisor, and renders the
// outcome as JSON.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/eventhub/internal/advisor"
	"github.com/Shivanand-hulikatti/eventhub/internal/apperr"
	"github.com/Shivanand-hulikatti/eventhub/internal/booking"
	"github.com/Shivanand-hulikatti/eventhub/internal/guard"
	"github.com/Shivanand-hulikatti/eventhub/internal/metrics"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/notify"
	"github.com/Shivanand-hulikatti/eventhub/internal/shell"
	"github.com/Shivanand-hulikatti/eventhub/internal/store"
)

// Deps are the components the handlers drive.
type Deps struct {
	Store      *store.Store
	Booking    *booking.Workflow
	Shell      *shell.State
	Advisor    *advisor.Advisor
	Notes      *notify.Center
	Guard      *guard.Guard
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
	MaxTickets int
}

// Handler holds all HTTP handlers of the shell.
type Handler struct {
	Deps
}

// New builds a Handler.
func New(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.MaxTickets == 0 {
		d.MaxTickets = model.MaxTicketsPerUserPerEvent
	}
	return &Handler{Deps: d}
}

// Register mounts every route on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", HealthCheck)
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics.Handler())
	}

	r.Get("/state", h.State)
	r.Post("/reload", h.Reload)
	r.Post("/navigate", h.Navigate)
	r.Put("/search", h.Search)
	r.Delete("/notification", h.DismissNotification)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/signup", h.Signup)
		r.Post("/logout", h.Logout)
	})

	r.Get("/views/{view}", h.View)

	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.Post("/", h.CreateEvent)
		r.Put("/{id}", h.UpdateEvent)
		r.Delete("/{id}", h.DeleteEvent)
		r.Post("/{id}/book", h.BookTicket)
	})

	r.Post("/edit/{id}", h.StartEdit)
	r.Delete("/edit", h.CancelEdit)

	r.Get("/detail", h.Detail)
	r.Post("/detail/{id}", h.OpenDetail)
	r.Delete("/detail", h.CloseDetail)

	r.Route("/ai", func(r chi.Router) {
		r.Get("/recommendations", h.Recommendations)
		r.Get("/news", h.News)
		r.Post("/image", h.Image)
	})
}

// ─── Helper utilities ────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeFailure renders err with the status its kind maps to.
func (h *Handler) writeFailure(w http.ResponseWriter, err error) {
	if errors.Is(err, apperr.ErrBusy) {
		writeJSON(w, http.StatusConflict, model.ErrorResponse{Error: err.Error(), Kind: "busy"})
		return
	}
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		h.Logger.Warn("request failed", zap.String("kind", string(kind)), zap.Error(err))
	}
	writeJSON(w, status, model.ErrorResponse{Error: err.Error(), Kind: string(kind)})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuthentication:
		return http.StatusUnauthorized
	case apperr.KindAuthorization:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindSoldOut, apperr.KindLimitReached:
		return http.StatusConflict
	case apperr.KindNotConfigured:
		return http.StatusServiceUnavailable
	case apperr.KindNetwork, apperr.KindBooking, apperr.KindParse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ─── Session and navigation ──────────────────────────────────────────────────

type stateResponse struct {
	Page         model.Page           `json:"page"`
	User         *model.User          `json:"user"`
	Search       string               `json:"search"`
	Loading      bool                 `json:"loading"`
	Busy         bool                 `json:"busy"`
	LoadError    string               `json:"loadError,omitempty"`
	CanRetry     bool                 `json:"canRetry"`
	Notification *notify.Notification `json:"notification,omitempty"`
	Editing      *model.Event         `json:"editing,omitempty"`
	AIEnabled    bool                 `json:"aiEnabled"`
	Categories   []string             `json:"categories"`
}

// State handles GET /state.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	page := h.Shell.Page()
	resp := stateResponse{
		Page:       page,
		User:       h.Store.CurrentUser(),
		Search:     h.Store.SearchQuery(),
		Loading:    h.Store.Loading(),
		Busy:       h.Guard.Held(),
		LoadError:  h.Store.LoadError(),
		AIEnabled:  h.Advisor != nil && h.Advisor.Configured(),
		Categories: model.DefaultEventCategories,
	}
	resp.CanRetry = resp.LoadError != "" && (page == model.PageDashboard || page == model.PagePublicEvents)
	if n, ok := h.Notes.Current(); ok {
		resp.Notification = &n
	}
	if e, ok := h.Shell.Editing(); ok {
		resp.Editing = &e
	}
	writeJSON(w, http.StatusOK, resp)
}

// DismissNotification handles DELETE /notification.
func (h *Handler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	h.Notes.Dismiss()
	w.WriteHeader(http.StatusNoContent)
}

// Reload handles POST /reload, the manual retry after a load failure.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Bootstrap(r.Context()); err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Store.Events())
}

type navigateRequest struct {
	Page model.Page `json:"page"`
}

// Navigate handles POST /navigate.
func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if !req.Page.Valid() {
		writeError(w, http.StatusBadRequest, "unknown page "+string(req.Page))
		return
	}
	writeJSON(w, http.StatusOK, navigateRequest{Page: h.Shell.Visit(req.Page)})
}

type searchRequest struct {
	Query string `json:"query"`
}

// Search handles PUT /search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	h.Store.SetSearchQuery(req.Query)
	writeJSON(w, http.StatusOK, req)
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.Credentials
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	u, err := h.Store.Login(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.Shell.Navigate(model.PageDashboard)
	writeJSON(w, http.StatusOK, u)
}

// Signup handles POST /auth/signup.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	u, err := h.Store.Signup(r.Context(), strings.TrimSpace(req.Name), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.Shell.Navigate(model.PageDashboard)
	writeJSON(w, http.StatusCreated, u)
}

// Logout handles POST /auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Store.Logout(r.Context())
	h.Shell.CloseDetail()
	h.Shell.FinishEdit()
	h.Shell.Navigate(model.PageLogin)
	writeJSON(w, http.StatusOK, navigateRequest{Page: model.PageLogin})
}

// ─── Views ───────────────────────────────────────────────────────────────────

// View handles GET /views/{view}.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	var events []model.Event
	switch chi.URLParam(r, "view") {
	case "upcoming":
		events = h.Store.Upcoming()
	case "past":
		events = h.Store.Past()
	case "hosted":
		events = h.Store.HostedByCurrentUser()
	case "booked":
		events = h.Store.BookedByCurrentUser()
	case "public":
		events = h.Store.PublicEvents()
	default:
		writeError(w, http.StatusNotFound, "unknown view")
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// ListEvents handles GET /events, the unfiltered collection.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Store.Events())
}

// ─── Event mutations ─────────────────────────────────────────────────────────

// CreateEvent handles POST /events.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.EventDraft
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	event, err := h.Store.CreateEvent(r.Context(), req)
	if err != nil {
		h.redirectOnAuth(err)
		h.writeFailure(w, err)
		return
	}
	h.Shell.FinishEdit()
	writeJSON(w, http.StatusCreated, event)
}

// UpdateEvent handles PUT /events/{id}.
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.EventPatch
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	event, err := h.Store.UpdateEvent(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.redirectOnAuth(err)
		h.writeFailure(w, err)
		return
	}
	h.Shell.FinishEdit()
	writeJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /events/{id}.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteEvent(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.redirectOnAuth(err)
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Event deleted"})
}

// BookTicket handles POST /events/{id}/book.
func (h *Handler) BookTicket(w http.ResponseWriter, r *http.Request) {
	event, err := h.Booking.Book(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// redirectOnAuth sends the shell to login after an authentication failure.
func (h *Handler) redirectOnAuth(err error) {
	if errors.Is(err, apperr.ErrAuthentication) {
		h.Shell.Navigate(model.PageLogin)
	}
}

// StartEdit handles POST /edit/{id}.
func (h *Handler) StartEdit(w http.ResponseWriter, r *http.Request) {
	event, err := h.Shell.StartEdit(chi.URLParam(r, "id"))
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// CancelEdit handles DELETE /edit.
func (h *Handler) CancelEdit(w http.ResponseWriter, r *http.Request) {
	h.Shell.FinishEdit()
	w.WriteHeader(http.StatusNoContent)
}

// ─── Detail view ─────────────────────────────────────────────────────────────

type detailResponse struct {
	Event            model.Event `json:"event"`
	TicketCount      int         `json:"ticketCount"`
	MaxTickets       int         `json:"maxTickets"`
	SoldOut          bool        `json:"soldOut"`
	IsHost           bool        `json:"isHost"`
	AttendeeMismatch bool        `json:"attendeeMismatch"`
}

func (h *Handler) detail(e model.Event) detailResponse {
	resp := detailResponse{
		Event:            e,
		MaxTickets:       h.MaxTickets,
		SoldOut:          e.IsSoldOut(),
		AttendeeMismatch: e.AttendeeMismatch(),
	}
	if u := h.Store.CurrentUser(); u != nil {
		resp.TicketCount = e.TicketsHeldBy(u.ID)
		resp.IsHost = e.HostedBy(u.ID)
	}
	return resp
}

// Detail handles GET /detail.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	e, ok := h.Shell.Detail()
	if !ok {
		writeError(w, http.StatusNotFound, "no event is open")
		return
	}
	writeJSON(w, http.StatusOK, h.detail(e))
}

// OpenDetail handles POST /detail/{id}.
func (h *Handler) OpenDetail(w http.ResponseWriter, r *http.Request) {
	e, err := h.Shell.OpenDetail(chi.URLParam(r, "id"))
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.detail(e))
}

// CloseDetail handles DELETE /detail.
func (h *Handler) CloseDetail(w http.ResponseWriter, r *http.Request) {
	h.Shell.CloseDetail()
	w.WriteHeader(http.StatusNoContent)
}

// ─── AI advisor ──────────────────────────────────────────────────────────────

// Recommendations handles GET /ai/recommendations?eventType=&location=.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	eventType := strings.TrimSpace(r.URL.Query().Get("eventType"))
	location := strings.TrimSpace(r.URL.Query().Get("location"))
	if eventType == "" || location == "" {
		writeError(w, http.StatusBadRequest, "eventType and location are required")
		return
	}
	recs, err := h.Advisor.Recommend(r.Context(), eventType, location)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// News handles GET /ai/news?topic=.
func (h *Handler) News(w http.ResponseWriter, r *http.Request) {
	topic := strings.TrimSpace(r.URL.Query().Get("topic"))
	if topic == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}
	news, err := h.Advisor.News(r.Context(), topic)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, news)
}

type imageRequest struct {
	Title    string `json:"title"`
	Category string `json:"category"`
}

// Image handles POST /ai/image.
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Category) == "" {
		writeError(w, http.StatusBadRequest, "title and category are required")
		return
	}
	img, err := h.Advisor.GenerateImage(r.Context(), req.Title, req.Category)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}

// ─── Health check ────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

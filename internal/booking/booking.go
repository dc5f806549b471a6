// Package booking runs the ticket-booking workflow: the local preconditions,
// the backend call, and the full re-fetch that reconciles attendee counts.
//
// Every attempt walks Idle → Validating → InFlight → Success | Failed and
// holds the process-wide single-flight guard from the first check to the
// last notification.
package booking

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/eventhub/internal/apperr"
	"github.com/Shivanand-hulikatti/eventhub/internal/gateway"
	"github.com/Shivanand-hulikatti/eventhub/internal/guard"
	"github.com/Shivanand-hulikatti/eventhub/internal/metrics"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/notify"
)

// Phase is a state of one booking attempt.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseValidating Phase = "validating"
	PhaseInFlight   Phase = "in_flight"
	PhaseSuccess    Phase = "success"
	PhaseFailed     Phase = "failed"
)

// Events is the read side of the event store plus its refresh.
type Events interface {
	CurrentUser() *model.User
	Event(id string) (model.Event, bool)
	RefreshAll(ctx context.Context) ([]model.Event, error)
	RecordError(msg string)
	ExpireSession(ctx context.Context)
}

// Backend books one ticket.
type Backend interface {
	BookTicket(ctx context.Context, id string) (*model.Event, error)
}

// Navigator moves the shell to another page.
type Navigator interface {
	Navigate(page model.Page)
}

// DetailView is the open event detail, if any.
type DetailView interface {
	// ReplaceIfShowing swaps in e when the detail view shows e.ID.
	ReplaceIfShowing(e model.Event) bool
}

// Workflow books tickets.
type Workflow struct {
	events     Events
	backend    Backend
	guard      *guard.Guard
	notifier   notify.Notifier
	nav        Navigator
	detail     DetailView
	maxPerUser int
	log        *zap.Logger
	metrics    *metrics.Metrics
	onPhase    func(eventID string, p Phase)
}

// Option customizes a Workflow.
type Option func(*Workflow)

// WithNavigator redirects to login when nobody is signed in.
func WithNavigator(n Navigator) Option { return func(w *Workflow) { w.nav = n } }

// WithDetailView keeps an open detail view in sync after a booking.
func WithDetailView(d DetailView) Option { return func(w *Workflow) { w.detail = d } }

// WithMaxTickets sets the per-user, per-event ticket limit.
func WithMaxTickets(n int) Option { return func(w *Workflow) { w.maxPerUser = n } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(w *Workflow) { w.log = l } }

// WithMetrics counts outcomes.
func WithMetrics(m *metrics.Metrics) Option { return func(w *Workflow) { w.metrics = m } }

// WithPhaseHook observes every phase an attempt enters.
func WithPhaseHook(fn func(eventID string, p Phase)) Option {
	return func(w *Workflow) { w.onPhase = fn }
}

// New builds a Workflow sharing g with the event store's mutations.
func New(events Events, backend Backend, g *guard.Guard, n notify.Notifier, opts ...Option) *Workflow {
	w := &Workflow{
		events:     events,
		backend:    backend,
		guard:      g,
		notifier:   n,
		maxPerUser: model.MaxTicketsPerUserPerEvent,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Workflow) enter(eventID string, p Phase) {
	w.log.Debug("booking phase", zap.String("event_id", eventID), zap.String("phase", string(p)))
	if w.onPhase != nil {
		w.onPhase(eventID, p)
	}
}

func (w *Workflow) finish(eventID string, r Result) {
	if w.metrics != nil {
		w.metrics.BookingOutcomes.WithLabelValues(string(r)).Inc()
	}
	switch r {
	case ResultSuccess:
		w.enter(eventID, PhaseSuccess)
	case ResultBusy:
	default:
		w.enter(eventID, PhaseFailed)
	}
	w.enter(eventID, PhaseIdle)
}

// failed notifies and returns the error for a non-success result.
func (w *Workflow) failed(eventID string, r Result, message string, cause error) error {
	w.notifier.Notify(message, r.Tone())
	w.finish(eventID, r)
	w.log.Info("booking failed", zap.String("event_id", eventID), zap.String("result", string(r)), zap.Error(cause))
	return &apperr.Error{Kind: r.kind(), Message: message, Status: apperr.StatusOf(cause), Err: cause}
}

// Book reserves one ticket for the current user. A nil error means the
// backend accepted the booking; the returned event is the refreshed copy.
func (w *Workflow) Book(ctx context.Context, eventID string) (*model.Event, error) {
	w.enter(eventID, PhaseValidating)

	release, ok := w.guard.TryAcquire()
	if !ok {
		w.log.Warn("booking ignored, another action is in progress", zap.String("event_id", eventID))
		w.finish(eventID, ResultBusy)
		return nil, apperr.ErrBusy
	}
	defer release()

	user := w.events.CurrentUser()
	if user == nil {
		if w.nav != nil {
			w.nav.Navigate(model.PageLogin)
		}
		return nil, w.failed(eventID, ResultUnauthenticated, "Please log in to book tickets.", nil)
	}

	title := "this event"
	local, known := w.events.Event(eventID)
	if known {
		title = local.Title
		if local.IsSoldOut() {
			return nil, w.failed(eventID, ResultSoldOut, soldOutMessage(title), nil)
		}
		if local.TicketsHeldBy(user.ID) >= w.maxPerUser {
			msg := fmt.Sprintf("Maximum ticket limit reached for this event (%d per person).", w.maxPerUser)
			return nil, w.failed(eventID, ResultLimitReached, msg, nil)
		}
	}

	w.enter(eventID, PhaseInFlight)
	booked, err := w.backend.BookTicket(ctx, eventID)
	if err != nil {
		if gateway.IsUnauthorized(err) {
			w.log.Info("booking rejected the session token", zap.String("event_id", eventID))
			w.events.ExpireSession(ctx)
			if w.nav != nil {
				w.nav.Navigate(model.PageLogin)
			}
		}
		switch r := Classify(err.Error()); r {
		case ResultSoldOut:
			return nil, w.failed(eventID, r, soldOutMessage(title), err)
		case ResultLimitReached:
			return nil, w.failed(eventID, r, err.Error(), err)
		default:
			w.events.RecordError(err.Error())
			return nil, w.failed(eventID, r, err.Error(), err)
		}
	}

	if !known && booked != nil && booked.Title != "" {
		title = booked.Title
	}
	result := booked
	fresh, err := w.events.RefreshAll(ctx)
	if err != nil {
		w.log.Warn("refresh after booking failed", zap.String("event_id", eventID), zap.Error(err))
	}
	for i := range fresh {
		if fresh[i].ID != eventID {
			continue
		}
		e := fresh[i]
		result = &e
		title = e.Title
		if w.detail != nil {
			w.detail.ReplaceIfShowing(e.Clone())
		}
		break
	}

	w.notifier.Notify(fmt.Sprintf(`Ticket booked for "%s"!`, title), notify.ToneSuccess)
	w.finish(eventID, ResultSuccess)
	w.log.Info("ticket booked", zap.String("event_id", eventID), zap.String("user_id", user.ID))
	return result, nil
}

func soldOutMessage(title string) string {
	return fmt.Sprintf(`Sorry, "%s" is sold out!`, title)
}

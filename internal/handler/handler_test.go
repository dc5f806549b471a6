package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/eventhub/internal/advisor"
	"github.com/Shivanand-hulikatti/eventhub/internal/apperr"
	"github.com/Shivanand-hulikatti/eventhub/internal/backendtest"
	"github.com/Shivanand-hulikatti/eventhub/internal/booking"
	"github.com/Shivanand-hulikatti/eventhub/internal/gateway"
	"github.com/Shivanand-hulikatti/eventhub/internal/guard"
	"github.com/Shivanand-hulikatti/eventhub/internal/metrics"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/notify"
	"github.com/Shivanand-hulikatti/eventhub/internal/session"
	"github.com/Shivanand-hulikatti/eventhub/internal/shell"
	"github.com/Shivanand-hulikatti/eventhub/internal/store"
)

type jpegGenerator struct{}

func (jpegGenerator) GenerateText(context.Context, advisor.TextRequest) (advisor.TextResult, error) {
	return advisor.TextResult{Text: `{"recommendations":[],"summary":"none"}`}, nil
}

func (jpegGenerator) GenerateImage(context.Context, string) ([]byte, error) {
	return []byte{0xff, 0xd8, 0xff}, nil
}

type fixture struct {
	backend *backendtest.Server
	guard   *guard.Guard
	shell   *shell.State
	router  chi.Router
}

func newFixture(t *testing.T, gen advisor.Generator, seed ...model.Event) *fixture {
	t.Helper()
	b := backendtest.New(model.MaxTicketsPerUserPerEvent)
	t.Cleanup(b.Close)
	b.Seed(seed...)

	tokens := session.NewTokens(session.NewMemoryStore(), nil)
	notes := notify.NewCenter(time.Hour, nil, nil)
	g := &guard.Guard{}
	m := metrics.New()
	client := gateway.New(b.BaseURL(), tokens)
	adv := advisor.New(gen)
	st := store.New(client, tokens, g, notes, store.WithImages(adv))
	ui := shell.New(st, notes)
	wf := booking.New(st, client, g, notes, booking.WithNavigator(ui), booking.WithDetailView(ui))

	h := New(Deps{Store: st, Booking: wf, Shell: ui, Advisor: adv, Notes: notes, Guard: g, Metrics: m})
	r := chi.NewRouter()
	h.Register(r)
	require.NoError(t, st.Bootstrap(context.Background()))
	return &fixture{backend: b, guard: g, shell: ui, router: r}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) login(t *testing.T, id, name string) {
	t.Helper()
	f.backend.AddUser(id, name, id+"@example.com", "pw")
	rec := f.do(t, http.MethodPost, "/auth/login", model.Credentials{Email: id + "@example.com", Password: "pw"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func draft() model.EventDraft {
	return model.EventDraft{
		Title: "Jazz Night", Date: "2099-01-01", Time: "20:00", Location: "Blue Room",
		Description: "Live jazz", Category: "Music Festival", Capacity: 5, IsPublic: true,
		ImageURL: "https://example.com/jazz.jpg",
	}
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStateForAnonymousVisitor(t *testing.T) {
	f := newFixture(t, nil)
	st := decode[stateResponse](t, f.do(t, http.MethodGet, "/state", nil))
	assert.Equal(t, model.PageDashboard, st.Page)
	assert.Nil(t, st.User)
	assert.False(t, st.Busy)
	assert.False(t, st.AIEnabled)
	assert.Equal(t, model.DefaultEventCategories, st.Categories)
}

func TestNavigate(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/navigate", navigateRequest{Page: model.PageCreateEvent})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.PageLogin, decode[navigateRequest](t, rec).Page)

	st := decode[stateResponse](t, f.do(t, http.MethodGet, "/state", nil))
	require.NotNil(t, st.Notification)
	assert.Equal(t, "Please log in to create an event.", st.Notification.Message)

	rec = f.do(t, http.MethodPost, "/navigate", navigateRequest{Page: "nowhere"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginCreateBookFlow(t *testing.T) {
	f := newFixture(t, nil)
	f.login(t, "u1", "Ada")
	assert.Equal(t, model.PageDashboard, f.shell.Page())

	rec := f.do(t, http.MethodPost, "/events", draft())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[model.Event](t, rec)
	assert.Equal(t, "u1", created.HostID)

	up := decode[[]model.Event](t, f.do(t, http.MethodGet, "/views/upcoming", nil))
	require.Len(t, up, 1)
	hosted := decode[[]model.Event](t, f.do(t, http.MethodGet, "/views/hosted", nil))
	require.Len(t, hosted, 1)

	rec = f.do(t, http.MethodPost, "/detail/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/events/"+created.ID+"/book", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	d := decode[detailResponse](t, f.do(t, http.MethodGet, "/detail", nil))
	assert.Equal(t, 1, d.Event.Attendees)
	assert.Equal(t, 1, d.TicketCount)
	assert.Equal(t, model.MaxTicketsPerUserPerEvent, d.MaxTickets)
	assert.True(t, d.IsHost)

	booked := decode[[]model.Event](t, f.do(t, http.MethodGet, "/views/booked", nil))
	assert.Len(t, booked, 1)
}

func TestCreateValidationIsBadRequest(t *testing.T) {
	f := newFixture(t, nil)
	f.login(t, "u1", "Ada")
	d := draft()
	d.Title = ""

	rec := f.do(t, http.MethodPost, "/events", d)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(apperr.KindValidation), decode[model.ErrorResponse](t, rec).Kind)
	assert.Equal(t, 0, f.backend.Calls(backendtest.RouteCreateEvent))
}

func TestBookWithoutLoginRedirects(t *testing.T) {
	f := newFixture(t, nil, model.Event{ID: "e1", Title: "Jazz", Date: "2099-01-01", Capacity: 5})

	rec := f.do(t, http.MethodPost, "/events/e1/book", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, model.PageLogin, f.shell.Page())
}

func TestBookSoldOutIsConflict(t *testing.T) {
	f := newFixture(t, nil, model.Event{ID: "e1", Title: "Jazz", Date: "2099-01-01", Attendees: 5, Capacity: 5})
	f.login(t, "u2", "Bob")

	rec := f.do(t, http.MethodPost, "/events/e1/book", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(apperr.KindSoldOut), decode[model.ErrorResponse](t, rec).Kind)
}

func TestMutationWhileBusy(t *testing.T) {
	f := newFixture(t, nil)
	f.login(t, "u1", "Ada")
	release, ok := f.guard.TryAcquire()
	require.True(t, ok)
	defer release()

	rec := f.do(t, http.MethodPost, "/events", draft())
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "busy", decode[model.ErrorResponse](t, rec).Kind)

	st := decode[stateResponse](t, f.do(t, http.MethodGet, "/state", nil))
	assert.True(t, st.Busy)
}

func TestEditAndDeleteAsNonHost(t *testing.T) {
	f := newFixture(t, nil, model.Event{ID: "e1", Title: "Jazz", Date: "2099-01-01", Capacity: 5, HostID: "u1"})
	f.login(t, "u2", "Bob")

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPost, "/edit/e1", nil).Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodDelete, "/events/e1", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/edit/missing", nil).Code)
}

func TestEditThenUpdate(t *testing.T) {
	f := newFixture(t, nil, model.Event{ID: "e1", Title: "Jazz", Date: "2099-01-01", Capacity: 5, HostID: "u1"})
	f.login(t, "u1", "Ada")

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/edit/e1", nil).Code)
	st := decode[stateResponse](t, f.do(t, http.MethodGet, "/state", nil))
	require.NotNil(t, st.Editing)
	assert.Equal(t, model.PageCreateEvent, st.Page)

	title := "Late Jazz"
	rec := f.do(t, http.MethodPut, "/events/e1", model.EventPatch{Title: &title})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Late Jazz", decode[model.Event](t, rec).Title)

	st = decode[stateResponse](t, f.do(t, http.MethodGet, "/state", nil))
	assert.Nil(t, st.Editing)
	assert.Equal(t, model.PageDashboard, st.Page)
}

func TestLogoutDropsShellState(t *testing.T) {
	f := newFixture(t, nil, model.Event{ID: "e1", Title: "Jazz", Date: "2099-01-01", Capacity: 5, HostID: "u1"})
	f.login(t, "u1", "Ada")
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/edit/e1", nil).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/detail/e1", nil).Code)

	rec := f.do(t, http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[stateResponse](t, f.do(t, http.MethodGet, "/state", nil))
	assert.Nil(t, st.User)
	assert.Nil(t, st.Editing)
	assert.Equal(t, model.PageLogin, st.Page)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/detail", nil).Code)
}

func TestDismissNotification(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodPost, "/navigate", navigateRequest{Page: model.PageCreateEvent})
	st := decode[stateResponse](t, f.do(t, http.MethodGet, "/state", nil))
	require.NotNil(t, st.Notification)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/notification", nil).Code)
	st = decode[stateResponse](t, f.do(t, http.MethodGet, "/state", nil))
	assert.Nil(t, st.Notification)
}

func TestSearchFiltersBrowsingViews(t *testing.T) {
	f := newFixture(t, nil,
		model.Event{ID: "e1", Title: "Jazz Night", Date: "2099-01-01", IsPublic: true},
		model.Event{ID: "e2", Title: "Book Club", Date: "2099-01-02", IsPublic: true},
	)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/search", searchRequest{Query: "jazz"}).Code)

	public := decode[[]model.Event](t, f.do(t, http.MethodGet, "/views/public", nil))
	require.Len(t, public, 1)
	assert.Equal(t, "e1", public[0].ID)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/views/nope", nil).Code)
}

func TestAIRoutes(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		f := newFixture(t, nil)
		rec := f.do(t, http.MethodGet, "/ai/news?topic=weddings", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
	t.Run("missing params", func(t *testing.T) {
		f := newFixture(t, jpegGenerator{})
		assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/ai/recommendations?eventType=wedding", nil).Code)
		assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/ai/news", nil).Code)
	})
	t.Run("image", func(t *testing.T) {
		f := newFixture(t, jpegGenerator{})
		rec := f.do(t, http.MethodPost, "/ai/image", imageRequest{Title: "Jazz", Category: "Music Festival"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		img := decode[model.GeneratedImage](t, rec)
		assert.True(t, strings.HasPrefix(img.ImageURL, "data:image/jpeg;base64,"))
	})
}

func TestReloadAfterBackendFailure(t *testing.T) {
	f := newFixture(t, nil, model.Event{ID: "e1", Title: "Jazz", Date: "2099-01-01"})
	f.backend.FailNextRaw(backendtest.RouteListEvents, http.StatusBadGateway)

	rec := f.do(t, http.MethodPost, "/reload", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	st := decode[stateResponse](t, f.do(t, http.MethodGet, "/state", nil))
	assert.NotEmpty(t, st.LoadError)
	assert.True(t, st.CanRetry)

	rec = f.do(t, http.MethodPost, "/reload", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Event](t, rec), 1)
}

func TestCORS(t *testing.T) {
	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	preflight := httptest.NewRequest(http.MethodOptions, "/events", nil)
	preflight.Header.Set("Origin", "http://localhost:3000")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, preflight)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind apperr.Kind
		want int
	}{
		{apperr.KindValidation, http.StatusBadRequest},
		{apperr.KindAuthentication, http.StatusUnauthorized},
		{apperr.KindAuthorization, http.StatusForbidden},
		{apperr.KindNotFound, http.StatusNotFound},
		{apperr.KindSoldOut, http.StatusConflict},
		{apperr.KindLimitReached, http.StatusConflict},
		{apperr.KindNotConfigured, http.StatusServiceUnavailable},
		{apperr.KindNetwork, http.StatusBadGateway},
		{apperr.KindBooking, http.StatusBadGateway},
		{apperr.KindParse, http.StatusBadGateway},
		{"", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.kind))
		})
	}
}

package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/eventhub/internal/apperr"
	"github.com/Shivanand-hulikatti/eventhub/internal/backendtest"
	"github.com/Shivanand-hulikatti/eventhub/internal/metrics"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

type staticToken string

func (s staticToken) Token(context.Context) string { return string(s) }

func TestAuthHeaderOnlyOnAuthRoutes(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path+" auth="+r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		switch r.URL.Path {
		case "/api/events":
			_, _ = w.Write([]byte(`[]`))
		case "/api/users/me":
			_, _ = w.Write([]byte(`{"id":"u1","name":"Ada","email":"ada@example.com"}`))
		}
	}))
	defer srv.Close()

	c := New(srv.URL+"/api/", staticToken("tok"))
	ctx := context.Background()

	events, err := c.ListEvents(ctx)
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)

	u, err := c.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)

	assert.Equal(t, []string{
		"GET /api/events auth=",
		"GET /api/users/me auth=Bearer tok",
	}, seen)
}

func TestMissingTokenStillSendsRequest(t *testing.T) {
	backend := backendtest.New(model.MaxTicketsPerUserPerEvent)
	defer backend.Close()

	c := New(backend.BaseURL(), staticToken(""))
	_, err := c.CurrentUser(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNetwork)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, "Authentication required", err.Error())
	assert.Equal(t, 1, backend.Calls(backendtest.RouteCurrentUser))
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"message field", http.StatusConflict, `{"message":"Event is sold out"}`, "Event is sold out"},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`, "HTTP error 502: Bad Gateway"},
		{"empty body", http.StatusInternalServerError, ``, "HTTP error 500: Internal Server Error"},
		{"json without message", http.StatusTeapot, `{"error":"x"}`, "An unexpected error occurred (Status: 418)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, staticToken("")).ListEvents(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
			assert.Equal(t, tt.status, apperr.StatusOf(err))
			assert.Equal(t, apperr.KindNetwork, apperr.KindOf(err))
		})
	}
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, staticToken("")).ListEvents(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNetwork)
	assert.Equal(t, 0, apperr.StatusOf(err))
	assert.NotNil(t, errors.Unwrap(err))
}

func TestUndecodableSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": 5`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, staticToken("")).GetEvent(context.Background(), "e1")
	require.Error(t, err)
	assert.Equal(t, "failed to decode response", err.Error())
}

func TestEventLifecycleAgainstBackend(t *testing.T) {
	backend := backendtest.New(model.MaxTicketsPerUserPerEvent)
	defer backend.Close()
	tok := backend.AddUser("u1", "Ada", "ada@example.com", "pw")

	m := metrics.New()
	c := New(backend.BaseURL(), staticToken(tok), WithMetrics(m))
	ctx := context.Background()

	created, err := c.CreateEvent(ctx, model.EventDraft{
		Title: "Jazz Night", Date: "2099-01-01", Time: "20:00", Location: "Blue Room",
		Description: "Live jazz", Category: "Music Festival", Capacity: 120, IsPublic: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", created.HostID)
	assert.Equal(t, 0, created.Attendees)

	got, err := c.GetEvent(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, *created, *got)

	title := "Late Jazz Night"
	updated, err := c.UpdateEvent(ctx, created.ID, model.EventPatch{Title: &title})
	require.NoError(t, err)
	require.NotNil(t, updated.Title)
	assert.Equal(t, title, *updated.Title)

	booked, err := c.BookTicket(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, booked.Attendees)
	assert.Equal(t, []model.AttendeeInfo{{ID: "u1", Name: "Ada"}}, booked.BookedBy)

	msg, err := c.DeleteEvent(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Event deleted successfully", msg)

	_, err = c.GetEvent(ctx, created.ID)
	assert.True(t, IsNotFound(err))
}

func TestLoginAndSignup(t *testing.T) {
	backend := backendtest.New(model.MaxTicketsPerUserPerEvent)
	defer backend.Close()
	c := New(backend.BaseURL(), staticToken(""))
	ctx := context.Background()

	signed, err := c.Signup(ctx, model.SignupRequest{Name: "Ada", Email: "ada@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.NotEmpty(t, signed.Token)
	assert.Equal(t, "Ada", signed.User.Name)

	logged, err := c.Login(ctx, model.Credentials{Email: "ada@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, signed.User.ID, logged.User.ID)

	_, err = c.Login(ctx, model.Credentials{Email: "ada@example.com", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", err.Error())
}

package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// ─── Authentication ──────────────────────────────────────────────────────────

// Login handles POST /auth/login.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (*model.AuthResponse, error) {
	var out model.AuthResponse
	err := c.do(ctx, request{op: "login", method: http.MethodPost, path: "/auth/login", body: creds}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Signup handles POST /auth/signup.
func (c *Client) Signup(ctx context.Context, req model.SignupRequest) (*model.AuthResponse, error) {
	var out model.AuthResponse
	err := c.do(ctx, request{op: "signup", method: http.MethodPost, path: "/auth/signup", body: req}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CurrentUser handles GET /users/me.
func (c *Client) CurrentUser(ctx context.Context) (*model.User, error) {
	var out model.User
	err := c.do(ctx, request{op: "current_user", method: http.MethodGet, path: "/users/me", auth: true}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ─── Events ──────────────────────────────────────────────────────────────────

// ListEvents handles GET /events. The listing is public-read.
func (c *Client) ListEvents(ctx context.Context) ([]model.Event, error) {
	var out []model.Event
	if err := c.do(ctx, request{op: "list_events", method: http.MethodGet, path: "/events"}, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Event{}
	}
	return out, nil
}

// GetEvent handles GET /events/{id}.
func (c *Client) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	var out model.Event
	err := c.do(ctx, request{op: "get_event", method: http.MethodGet, path: eventPath(id)}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateEvent handles POST /events.
func (c *Client) CreateEvent(ctx context.Context, draft model.EventDraft) (*model.Event, error) {
	var out model.Event
	err := c.do(ctx, request{op: "create_event", method: http.MethodPost, path: "/events", body: draft, auth: true}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateEvent handles PUT /events/{id}. The response may be partial.
func (c *Client) UpdateEvent(ctx context.Context, id string, patch model.EventPatch) (*model.PartialEvent, error) {
	var out model.PartialEvent
	err := c.do(ctx, request{op: "update_event", method: http.MethodPut, path: eventPath(id), body: patch, auth: true}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteEvent handles DELETE /events/{id} and returns the backend's message.
func (c *Client) DeleteEvent(ctx context.Context, id string) (string, error) {
	var out model.MessageResponse
	err := c.do(ctx, request{op: "delete_event", method: http.MethodDelete, path: eventPath(id), auth: true}, &out)
	if err != nil {
		return "", err
	}
	return out.Message, nil
}

// BookTicket handles POST /events/{id}/book.
func (c *Client) BookTicket(ctx context.Context, id string) (*model.Event, error) {
	var out model.Event
	err := c.do(ctx, request{op: "book_ticket", method: http.MethodPost, path: eventPath(id) + "/book", auth: true}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func eventPath(id string) string {
	return "/events/" + url.PathEscape(id)
}

// Package notify holds the single transient user notification. A new
// notification replaces the current one; each one dismisses itself after
// the configured TTL.
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Tone selects how a notification is presented.
type Tone string

const (
	ToneSuccess Tone = "success"
	ToneInfo    Tone = "info"
	ToneWarning Tone = "warning"
	ToneNotice  Tone = "notice"
	ToneError   Tone = "error"
)

// IsError reports whether the tone is presented as a failure.
func (t Tone) IsError() bool {
	return t == ToneError || t == ToneWarning || t == ToneNotice
}

// Notification is one user-facing message.
type Notification struct {
	Message   string    `json:"message"`
	Tone      Tone      `json:"tone"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Notifier is what the store and workflow need to tell the user something.
type Notifier interface {
	Notify(message string, tone Tone)
}

// Center is the mutex-guarded current notification.
type Center struct {
	mu      sync.Mutex
	current *Notification
	ttl     time.Duration
	now     func() time.Time
	log     *zap.Logger
}

// NewCenter builds a Center. now may be nil.
func NewCenter(ttl time.Duration, now func() time.Time, log *zap.Logger) *Center {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Center{ttl: ttl, now: now, log: log}
}

// Notify replaces the current notification.
func (c *Center) Notify(message string, tone Tone) {
	if tone.IsError() {
		c.log.Error("notification", zap.String("message", message), zap.String("tone", string(tone)))
	} else {
		c.log.Info("notification", zap.String("message", message), zap.String("tone", string(tone)))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = &Notification{Message: message, Tone: tone, ExpiresAt: c.now().Add(c.ttl)}
}

// Current returns the live notification, if any.
func (c *Center) Current() (Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Notification{}, false
	}
	if !c.now().Before(c.current.ExpiresAt) {
		c.current = nil
		return Notification{}, false
	}
	return *c.current, true
}

// Dismiss clears the current notification early.
func (c *Center) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = nil
}

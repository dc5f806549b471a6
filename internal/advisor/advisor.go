// Package advisor is the AI advisory gateway: venue and vendor
// recommendations, event-industry news and banner image generation.
//
// The provider sits behind Generator. An Advisor built without a Generator
// answers every call with a NotConfigured error before doing any work.
package advisor

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/eventhub/internal/apperr"
	"github.com/Shivanand-hulikatti/eventhub/internal/metrics"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

const (
	msgNotConfigured = "AI service is not configured. API key is missing."
	msgInvalidKey    = "The AI service API key is invalid. Please check the configuration."
	msgNoImage       = "AI failed to generate an image. No image data was returned."
)

// TextRequest is one text generation call.
type TextRequest struct {
	Prompt      string
	JSON        bool
	Temperature *float32
	// Grounded enables web search grounding; the result then carries sources.
	Grounded bool
}

// TextResult is the provider's answer.
type TextResult struct {
	Text    string
	Sources []model.NewsSource
}

// Generator is the generative-AI provider.
type Generator interface {
	GenerateText(ctx context.Context, req TextRequest) (TextResult, error)
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// ImageHost uploads generated banners and returns a public URL.
type ImageHost interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Advisor implements the three advisory operations.
type Advisor struct {
	gen     Generator
	host    ImageHost
	log     *zap.Logger
	metrics *metrics.Metrics
}

// Option customizes an Advisor.
type Option func(*Advisor)

// WithImageHost uploads generated images instead of returning data URIs.
func WithImageHost(h ImageHost) Option { return func(a *Advisor) { a.host = h } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(a *Advisor) { a.log = l } }

// WithMetrics counts calls by outcome.
func WithMetrics(m *metrics.Metrics) Option { return func(a *Advisor) { a.metrics = m } }

// New builds an Advisor. gen may be nil when no API key is configured.
func New(gen Generator, opts ...Option) *Advisor {
	a := &Advisor{gen: gen, log: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Configured reports whether a provider is available.
func (a *Advisor) Configured() bool { return a.gen != nil }

func (a *Advisor) count(op string, err error) {
	if a.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(apperr.KindOf(err))
	}
	a.metrics.AIRequests.WithLabelValues(op, outcome).Inc()
}

func notConfigured() error {
	return &apperr.Error{Kind: apperr.KindNotConfigured, Message: msgNotConfigured}
}

// Recommend suggests venues and vendors for an event type and location.
func (a *Advisor) Recommend(ctx context.Context, eventType, location string) (res *model.Recommendations, err error) {
	defer func() { a.count("recommend", err) }()
	if !a.Configured() {
		return nil, notConfigured()
	}

	temp := float32(0.7)
	out, err := a.gen.GenerateText(ctx, TextRequest{
		Prompt:      recommendPrompt(eventType, location),
		JSON:        true,
		Temperature: &temp,
	})
	if err != nil {
		a.log.Error("venue recommendations failed", zap.Error(err))
		return nil, recommendFailure(apperr.Wrap(apperr.KindNetwork, err, describe(err)))
	}

	recs, err := parseRecommendations(out.Text)
	if err != nil {
		a.log.Error("venue recommendations unparseable", zap.Error(err))
		return nil, recommendFailure(err)
	}
	recs.RawResponse = out.Text
	return recs, nil
}

// placeholderRecommendMessage is the message every recommendation failure
// shows the user. The real cause is kept as the wrapped error.
const placeholderRecommendMessage = "unAvailable"

// recommendFailure is the only place the placeholder is applied.
func recommendFailure(cause error) error {
	kind := apperr.KindOf(cause)
	if kind == "" {
		kind = apperr.KindNetwork
	}
	return &apperr.Error{Kind: kind, Message: placeholderRecommendMessage, Err: cause}
}

// News returns a short grounded update on topic.
func (a *Advisor) News(ctx context.Context, topic string) (res *model.News, err error) {
	defer func() { a.count("news", err) }()
	if !a.Configured() {
		return nil, notConfigured()
	}

	out, err := a.gen.GenerateText(ctx, TextRequest{
		Prompt:   newsPrompt(topic),
		Grounded: true,
	})
	if err != nil {
		a.log.Error("event news failed", zap.Error(err))
		return nil, apperr.Wrap(apperr.KindNetwork, err, describe(err))
	}
	return &model.News{Text: out.Text, Sources: webSources(out.Sources)}, nil
}

// GenerateImage produces a banner for an event. The URL is a JPEG data URI,
// or a hosted URL when an ImageHost is configured and the upload succeeds.
func (a *Advisor) GenerateImage(ctx context.Context, title, category string) (res *model.GeneratedImage, err error) {
	defer func() { a.count("image", err) }()
	if !a.Configured() {
		return nil, notConfigured()
	}

	data, err := a.gen.GenerateImage(ctx, imagePrompt(title, category))
	if err != nil {
		a.log.Error("event image failed", zap.Error(err))
		return nil, apperr.Wrap(apperr.KindNetwork, err, describe(err))
	}
	if len(data) == 0 {
		return nil, &apperr.Error{Kind: apperr.KindParse, Message: msgNoImage}
	}

	if a.host != nil {
		key := fmt.Sprintf("banners/%s.jpg", uuid.NewString())
		url, err := a.host.Upload(ctx, key, data, "image/jpeg")
		if err == nil {
			return &model.GeneratedImage{ImageURL: url}, nil
		}
		a.log.Warn("banner upload failed, falling back to data URI", zap.String("key", key), zap.Error(err))
	}
	return &model.GeneratedImage{ImageURL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)}, nil
}

// describe turns a provider error into the user-facing message.
func describe(err error) string {
	if err == nil {
		return ""
	}
	if strings.Contains(strings.ToLower(err.Error()), "api key not valid") {
		return msgInvalidKey
	}
	return err.Error()
}

func webSources(in []model.NewsSource) []model.NewsSource {
	var out []model.NewsSource
	for _, s := range in {
		if s.URI != "" {
			out = append(out, s)
		}
	}
	return out
}

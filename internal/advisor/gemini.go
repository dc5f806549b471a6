package advisor

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// Gemini is the Generator backed by the Gemini API.
type Gemini struct {
	client     *genai.Client
	textModel  string
	imageModel string
}

// NewGemini connects to the Gemini API with apiKey.
func NewGemini(ctx context.Context, apiKey, textModel, imageModel string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, textModel: textModel, imageModel: imageModel}, nil
}

// GenerateText runs one text generation.
func (g *Gemini) GenerateText(ctx context.Context, req TextRequest) (TextResult, error) {
	cfg := &genai.GenerateContentConfig{Temperature: req.Temperature}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	if req.Grounded {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.textModel, genai.Text(req.Prompt), cfg)
	if err != nil {
		return TextResult{}, err
	}

	out := TextResult{Text: resp.Text()}
	if len(resp.Candidates) > 0 && resp.Candidates[0].GroundingMetadata != nil {
		for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
			if chunk == nil || chunk.Web == nil {
				continue
			}
			out.Sources = append(out.Sources, model.NewsSource{URI: chunk.Web.URI, Title: chunk.Web.Title})
		}
	}
	return out, nil
}

// GenerateImage renders one JPEG and returns its bytes, or nil when the
// provider returned no image.
func (g *Gemini) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := g.client.Models.GenerateImages(ctx, g.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: "image/jpeg",
	})
	if err != nil {
		return nil, err
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, nil
	}
	return resp.GeneratedImages[0].Image.ImageBytes, nil
}

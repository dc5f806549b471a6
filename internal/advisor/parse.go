package advisor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Shivanand-hulikatti/eventhub/internal/apperr"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// fence matches a whole response wrapped in ```lang ... ``` fencing.
var fence = regexp.MustCompile("(?s)^```(\\w*)?\\s*\\n?(.*?)\\n?\\s*```$")

// stripFence returns the fenced body, or text unchanged when unfenced.
func stripFence(text string) string {
	s := strings.TrimSpace(text)
	if m := fence.FindStringSubmatch(s); m != nil && m[2] != "" {
		return strings.TrimSpace(m[2])
	}
	return s
}

// parseRecommendations decodes the model's JSON answer and insists on a
// recommendations array.
func parseRecommendations(text string) (*model.Recommendations, error) {
	body := stripFence(text)

	var envelope struct {
		Recommendations json.RawMessage `json:"recommendations"`
		Summary         string          `json:"summary"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return nil, apperr.Wrap(apperr.KindParse, err, fmt.Sprintf("AI response is not valid JSON: %v", err))
	}

	raw := bytes.TrimSpace(envelope.Recommendations)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, apperr.New(apperr.KindParse, "AI response did not contain valid 'recommendations' array.")
	}

	var recs []model.Recommendation
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, apperr.Wrap(apperr.KindParse, err, fmt.Sprintf("AI recommendations are malformed: %v", err))
	}
	return &model.Recommendations{Recommendations: recs, Summary: envelope.Summary}, nil
}

func recommendPrompt(eventType, location string) string {
	return fmt.Sprintf(`You are an expert event planning assistant.
For an event of type %q to be held in %q, please suggest:
1. Up to 3 suitable venues.
2. Up to 2-3 relevant vendors (e.g., caterers, decorators, photographers, entertainment) appropriate for this event type.

For each suggestion (venue or vendor), provide:
- Name
- Type (venue or vendor)
- A brief description (1-2 sentences)
- 1-2 potential pros
- 1-2 potential cons or considerations

Format your response as a JSON object with a key "recommendations".
The "recommendations" value should be an array of objects, where each object has "name", "type", "description", "pros" (array of strings), and "cons" (array of strings).
Example of a recommendation object:
{ "name": "The Grand Ballroom", "type": "venue", "description": "A spacious and elegant ballroom.", "pros": ["Large capacity", "Beautiful decor"], "cons": ["Can be expensive", "Limited parking"] }

Provide a brief overall summary (1-2 sentences) under a "summary" key in the JSON object.`, eventType, location)
}

func newsPrompt(topic string) string {
	return fmt.Sprintf("Provide a brief update or news related to %q in the event industry. Focus on recent developments or trends.", topic)
}

func imagePrompt(title, category string) string {
	return fmt.Sprintf("Generate a visually appealing and relevant event banner image for a %q event titled %q. "+
		"The image should be suitable for an event listing and capture the essence of a %s. "+
		"Avoid including any text in the image.", category, title, category)
}

package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ashureev/honeypot/internal/detection"
)

var errInvalidClassification = errors.New("invalid classification")

// classificationPayload tolerates loosely typed model output.
type classificationPayload struct {
	Scam       *bool           `json:"scam"`
	Confidence json.Number     `json:"confidence"`
	ScamType   string          `json:"scam_type"`
	Signals    json.RawMessage `json:"signals"`
}

// parseClassification decodes a classifier reply. Replies that are not a JSON
// object with a boolean "scam" field are rejected.
func parseClassification(raw string) (*detection.Classification, error) {
	body := extractJSONFromText(raw)
	if body == "" {
		return nil, fmt.Errorf("%w: empty reply", errInvalidClassification)
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var p classificationPayload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidClassification, err)
	}
	if p.Scam == nil {
		return nil, fmt.Errorf("%w: missing scam flag", errInvalidClassification)
	}

	c := &detection.Classification{
		IsScam:   *p.Scam,
		ScamType: strings.TrimSpace(p.ScamType),
	}
	if p.Confidence != "" {
		v, err := p.Confidence.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: confidence: %v", errInvalidClassification, err)
		}
		c.Confidence = v
	}
	if len(p.Signals) > 0 && string(p.Signals) != "null" {
		var signals []any
		if err := json.Unmarshal(p.Signals, &signals); err != nil {
			return nil, fmt.Errorf("%w: signals: %v", errInvalidClassification, err)
		}
		for _, s := range signals {
			if str := strings.TrimSpace(fmt.Sprint(s)); str != "" {
				c.Signals = append(c.Signals, str)
			}
		}
	}
	return c, nil
}

// extractJSONFromText strips code fences and surrounding prose from a model
// reply that should contain a single JSON object.
func extractJSONFromText(s string) string {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "```") {
		rest := strings.TrimSpace(strings.TrimPrefix(raw, "```"))
		if i := strings.Index(rest, "\n"); i >= 0 {
			rest = rest[i+1:]
		}
		if j := strings.LastIndex(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		raw = strings.TrimSpace(rest)
	}
	if !strings.HasPrefix(raw, "{") {
		if i := strings.Index(raw, "{"); i >= 0 {
			if j := strings.LastIndex(raw, "}"); j > i {
				return strings.TrimSpace(raw[i : j+1])
			}
		}
	}
	return raw
}

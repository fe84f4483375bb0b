// Package lexicon loads the keyword, persona and reply tables that drive
// scoring, extraction and the persona agent.
//
// The tables ship embedded in the binary and can be replaced at startup with
// a YAML file of the same shape. A loaded *Tables is treated as read-only.
package lexicon

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed lexicons.yaml
var embedded []byte

// ScamType is one entry of the ordered category priority list.
type ScamType struct {
	Name    string   `yaml:"name"`
	Signals []string `yaml:"signals"`
}

// Persona is a fictitious identity adopted by the honeypot.
type Persona struct {
	Label      string `yaml:"label"`
	Name       string `yaml:"name"`
	Age        int    `yaml:"age"`
	Style      string `yaml:"style"`
	Background string `yaml:"background"`
}

// Tables holds every fixed list used by the core.
type Tables struct {
	Urgency            []string            `yaml:"urgency"`
	Threat             []string            `yaml:"threat"`
	SensitiveRequests  []string            `yaml:"sensitive_requests"`
	Reward             []string            `yaml:"reward"`
	ScamTypes          []ScamType          `yaml:"scam_types"`
	SuspiciousKeywords []string            `yaml:"suspicious_keywords"`
	RequestCues        []string            `yaml:"request_cues"`
	ChannelHints       []string            `yaml:"channel_hints"`
	ClaimMarkers       []string            `yaml:"claim_markers"`
	Personas           map[string]Persona  `yaml:"personas"`
	PersonaByScamType  map[string]string   `yaml:"persona_by_scam_type"`
	DefaultPersona     string              `yaml:"default_persona"`
	FallbackReplies    map[string][]string `yaml:"fallback_replies"`
}

var defaultTables = sync.OnceValues(func() (*Tables, error) {
	return parse(embedded, nil)
})

// Default returns the embedded tables. They are parsed once per process.
func Default() *Tables {
	t, err := defaultTables()
	if err != nil {
		panic(fmt.Sprintf("lexicon: embedded tables are invalid: %v", err))
	}
	return t
}

// Load reads tables from a YAML file. An empty path returns Default().
func Load(path string) (*Tables, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates tables. All terms are lowercased. Term lists
// that are omitted or empty are taken from the embedded tables.
func Parse(data []byte) (*Tables, error) {
	return parse(data, Default())
}

func parse(data []byte, base *Tables) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode lexicon: %w", err)
	}
	if base != nil {
		t.fillFrom(base)
	}
	t.normalize()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Tables) termLists() []*[]string {
	return []*[]string{
		&t.Urgency, &t.Threat, &t.SensitiveRequests, &t.Reward,
		&t.SuspiciousKeywords, &t.RequestCues, &t.ChannelHints, &t.ClaimMarkers,
	}
}

func (t *Tables) fillFrom(base *Tables) {
	from := base.termLists()
	for i, list := range t.termLists() {
		if len(*list) == 0 {
			*list = slices.Clone(*from[i])
		}
	}
}

func (t *Tables) normalize() {
	for _, list := range t.termLists() {
		*list = lowerAll(*list)
	}
	for i := range t.ScamTypes {
		t.ScamTypes[i].Signals = lowerAll(t.ScamTypes[i].Signals)
	}
}

// Validate checks that every term list is populated and that the persona
// and reply tables are self-consistent.
func (t *Tables) Validate() error {
	lists := []struct {
		key   string
		terms []string
	}{
		{"urgency", t.Urgency},
		{"threat", t.Threat},
		{"sensitive_requests", t.SensitiveRequests},
		{"reward", t.Reward},
		{"suspicious_keywords", t.SuspiciousKeywords},
		{"request_cues", t.RequestCues},
		{"channel_hints", t.ChannelHints},
		{"claim_markers", t.ClaimMarkers},
	}
	for _, l := range lists {
		if len(l.terms) == 0 {
			return fmt.Errorf("lexicon: %s cannot be empty", l.key)
		}
	}
	if len(t.ScamTypes) == 0 {
		return errors.New("lexicon: scam_types cannot be empty")
	}
	if _, ok := t.Personas[t.DefaultPersona]; !ok {
		return fmt.Errorf("lexicon: default_persona %q is not defined", t.DefaultPersona)
	}
	for scamType, key := range t.PersonaByScamType {
		if _, ok := t.Personas[key]; !ok {
			return fmt.Errorf("lexicon: persona %q for %s is not defined", key, scamType)
		}
	}
	for _, phase := range []string{"trust", "elicit", "extract", "exit"} {
		if len(t.FallbackReplies[phase]) == 0 {
			return fmt.Errorf("lexicon: fallback_replies.%s cannot be empty", phase)
		}
	}
	return nil
}

// Hits returns the terms of list that occur in text, in list order.
// text must already be lowercase.
func Hits(lowerText string, list []string) []string {
	var hits []string
	for _, term := range list {
		if term != "" && strings.Contains(lowerText, term) {
			hits = append(hits, term)
		}
	}
	return hits
}

// ContainsAny reports whether any term of list occurs in lowerText.
func ContainsAny(lowerText string, list []string) bool {
	for _, term := range list {
		if term != "" && strings.Contains(lowerText, term) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

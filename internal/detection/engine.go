// Package detection scores inbound messages for scam likelihood.
package detection

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/ashureev/honeypot/internal/domain"
	"github.com/ashureev/honeypot/internal/lexicon"
)

const maxScore = 100

// Per-hit and flat weights.
const (
	urgencyWeight       = 10
	threatWeight        = 15
	sensitiveWeight     = 20
	rewardWeight        = 10
	linkWeight          = 25
	paymentHandleWeight = 15
)

// Signal markers recorded for pattern matches.
const (
	SignalPhishingLink  = "phishing link"
	SignalPaymentHandle = "upi id"
	SignalPhoneNumber   = "phone number"
)

// DefaultClassifierWeight caps how many points a classifier can add.
const DefaultClassifierWeight = 40

// Result is the outcome of scoring a single message.
type Result struct {
	Score              int
	ScamType           string
	SuspiciousKeywords []string
	// LLMConfidence is set only when the classifier returned a usable reply.
	LLMConfidence *int
}

// Engine scores individual messages. It holds no per-session state.
type Engine struct {
	tables     *lexicon.Tables
	classifier Classifier
	weight     int
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClassifier fuses the opinion of an external classifier into the score.
// weight caps the points it may add.
func WithClassifier(c Classifier, weight int) Option {
	return func(e *Engine) {
		e.classifier = c
		if weight >= 0 {
			e.weight = weight
		}
	}
}

// WithLogger sets the logger used for classifier failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates a score engine. A nil tables argument selects the
// embedded lexicon.
func NewEngine(tables *lexicon.Tables, opts ...Option) *Engine {
	if tables == nil {
		tables = lexicon.Default()
	}
	e := &Engine{
		tables: tables,
		weight: DefaultClassifierWeight,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Score evaluates one message. It never fails: classifier problems leave the
// heuristic result untouched.
func (e *Engine) Score(ctx context.Context, text string) Result {
	lower := strings.ToLower(text)

	urgency := lexicon.Hits(lower, e.tables.Urgency)
	threat := lexicon.Hits(lower, e.tables.Threat)
	sensitive := lexicon.Hits(lower, e.tables.SensitiveRequests)
	reward := lexicon.Hits(lower, e.tables.Reward)

	hasLink := lexicon.URLPattern.MatchString(text)
	hasHandle := lexicon.PaymentHandle.MatchString(text)
	hasPhone := lexicon.PhonePattern.MatchString(text)

	signals := make([]string, 0, len(urgency)+len(threat)+len(sensitive)+len(reward)+3)
	signals = append(signals, urgency...)
	signals = append(signals, threat...)
	signals = append(signals, sensitive...)
	signals = append(signals, reward...)
	if hasLink {
		signals = append(signals, SignalPhishingLink)
	}
	if hasHandle {
		signals = append(signals, SignalPaymentHandle)
	}
	if hasPhone {
		signals = append(signals, SignalPhoneNumber)
	}

	score := len(urgency)*urgencyWeight +
		len(threat)*threatWeight +
		len(sensitive)*sensitiveWeight +
		len(reward)*rewardWeight
	if hasLink {
		score += linkWeight
	}
	if hasHandle {
		score += paymentHandleWeight
	}

	scamType := e.categorize(lower)

	var confidence *int
	if c := e.classify(ctx, text); c != nil {
		conf := clampConfidence(c.Confidence)
		confidence = &conf
		if c.IsScam {
			score += min(e.weight, conf)
			if scamType == "" && c.ScamType != "" && c.ScamType != "unknown" {
				scamType = c.ScamType
			}
			signals = append(signals, c.Signals...)
		}
	}

	return Result{
		Score:              min(score, maxScore),
		ScamType:           scamType,
		SuspiciousKeywords: domain.Union(signals),
		LLMConfidence:      confidence,
	}
}

func (e *Engine) categorize(lower string) string {
	for _, st := range e.tables.ScamTypes {
		if lexicon.ContainsAny(lower, st.Signals) {
			return st.Name
		}
	}
	return ""
}

func (e *Engine) classify(ctx context.Context, text string) *Classification {
	if e.classifier == nil {
		return nil
	}
	c, err := e.classifier.Classify(ctx, text)
	if err != nil {
		e.logger.Warn("Scam classifier unavailable, using heuristics only", "error", err)
		return nil
	}
	return c
}

func clampConfidence(v float64) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 100 {
		return 100
	}
	return int(v)
}

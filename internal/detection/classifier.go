package detection

import "context"

// Classification is the opinion of an external text classifier.
type Classification struct {
	IsScam     bool     `json:"scam"`
	Confidence float64  `json:"confidence"`
	ScamType   string   `json:"scam_type"`
	Signals    []string `json:"signals"`
}

// Classifier is an optional text-classification capability. Implementations
// return an error for transport failures and for replies that cannot be
// parsed; the engine treats both as "no opinion".
type Classifier interface {
	Classify(ctx context.Context, text string) (*Classification, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, text string) (*Classification, error)

// Classify calls f.
func (f ClassifierFunc) Classify(ctx context.Context, text string) (*Classification, error) {
	return f(ctx, text)
}

package detection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticClassifier(c *Classification, err error) Classifier {
	return ClassifierFunc(func(context.Context, string) (*Classification, error) {
		return c, err
	})
}

func TestScorePaymentHandleMessage(t *testing.T) {
	e := NewEngine(nil)

	res := e.Score(context.Background(), "Send 500 to rahul@upi now, call 9876543210 or visit http://bit.ly/x")

	// "now" (+10), link (+25), payment handle (+15); phone adds nothing.
	assert.Equal(t, 50, res.Score)
	assert.Equal(t, "upi_scam", res.ScamType)
	assert.Equal(t, []string{"now", SignalPhishingLink, SignalPaymentHandle, SignalPhoneNumber}, res.SuspiciousKeywords)
	assert.Nil(t, res.LLMConfidence)
}

func TestScoreIsCappedAt100(t *testing.T) {
	e := NewEngine(nil)

	res := e.Score(context.Background(),
		"URGENT: your bank account will be blocked today. Share OTP and PIN immediately to verify KYC")

	assert.Equal(t, 100, res.Score)
	assert.Equal(t, "bank_fraud", res.ScamType)
	assert.Contains(t, res.SuspiciousKeywords, "otp")
	assert.Contains(t, res.SuspiciousKeywords, "account will be")
}

func TestScoreBenignMessage(t *testing.T) {
	e := NewEngine(nil)

	res := e.Score(context.Background(), "Hello, hope you are doing well.")

	assert.Equal(t, 0, res.Score)
	assert.Empty(t, res.ScamType)
	assert.Empty(t, res.SuspiciousKeywords)
}

func TestPhoneNumberIsSignalOnly(t *testing.T) {
	e := NewEngine(nil)

	res := e.Score(context.Background(), "ring me on +91 9876543210")

	assert.Equal(t, 0, res.Score)
	assert.Equal(t, []string{SignalPhoneNumber}, res.SuspiciousKeywords)
}

func TestCategoryPriorityOrder(t *testing.T) {
	e := NewEngine(nil)

	// Matches both bank_fraud ("account") and phishing ("link"); bank_fraud wins.
	res := e.Score(context.Background(), "open this link to restore your account")
	assert.Equal(t, "bank_fraud", res.ScamType)

	res = e.Score(context.Background(), "claim your gift voucher")
	assert.Equal(t, "fake_offer", res.ScamType)
}

func TestClassifierFusion(t *testing.T) {
	e := NewEngine(nil, WithClassifier(staticClassifier(&Classification{
		IsScam:     true,
		Confidence: 90,
		ScamType:   "impersonation",
		Signals:    []string{"impersonation", "pressure"},
	}, nil), 40))

	res := e.Score(context.Background(), "Hello, hope you are doing well.")

	assert.Equal(t, 40, res.Score)
	assert.Equal(t, "impersonation", res.ScamType)
	assert.Equal(t, []string{"impersonation", "pressure"}, res.SuspiciousKeywords)
	require.NotNil(t, res.LLMConfidence)
	assert.Equal(t, 90, *res.LLMConfidence)
}

func TestClassifierWeightBoundedByConfidence(t *testing.T) {
	e := NewEngine(nil, WithClassifier(staticClassifier(&Classification{IsScam: true, Confidence: 25}, nil), 40))

	res := e.Score(context.Background(), "Hello")
	assert.Equal(t, 25, res.Score)
}

func TestClassifierKeepsLocalCategory(t *testing.T) {
	e := NewEngine(nil, WithClassifier(staticClassifier(&Classification{
		IsScam: true, Confidence: 80, ScamType: "phishing",
	}, nil), 40))

	res := e.Score(context.Background(), "your bank needs attention")
	assert.Equal(t, "bank_fraud", res.ScamType)
}

func TestClassifierUnknownTypeIgnored(t *testing.T) {
	e := NewEngine(nil, WithClassifier(staticClassifier(&Classification{
		IsScam: true, Confidence: 80, ScamType: "unknown",
	}, nil), 40))

	res := e.Score(context.Background(), "Hello")
	assert.Empty(t, res.ScamType)
}

func TestClassifierNotScamRecordsConfidenceOnly(t *testing.T) {
	e := NewEngine(nil, WithClassifier(staticClassifier(&Classification{
		IsScam: false, Confidence: 140, Signals: []string{"greeting"},
	}, nil), 40))

	res := e.Score(context.Background(), "Hello")
	assert.Equal(t, 0, res.Score)
	assert.Empty(t, res.SuspiciousKeywords)
	require.NotNil(t, res.LLMConfidence)
	assert.Equal(t, 100, *res.LLMConfidence)
}

func TestClassifierFailureIsNoOpinion(t *testing.T) {
	base := NewEngine(nil)
	failing := NewEngine(nil, WithClassifier(staticClassifier(nil, errors.New("malformed reply")), 40))
	absent := NewEngine(nil, WithClassifier(staticClassifier(nil, nil), 40))

	text := "URGENT verify your account"
	want := base.Score(context.Background(), text)

	assert.Equal(t, want, failing.Score(context.Background(), text))
	assert.Equal(t, want, absent.Score(context.Background(), text))
}

func TestScoreAlwaysInRange(t *testing.T) {
	e := NewEngine(nil, WithClassifier(staticClassifier(&Classification{IsScam: true, Confidence: 100}, nil), 100))
	inputs := []string{
		"",
		"now now now",
		"urgent immediately today now within hours expire deadline blocked suspended legal action penalty freeze otp pin password prize refund http://x.y a.b@upi",
	}
	for _, in := range inputs {
		res := e.Score(context.Background(), in)
		assert.GreaterOrEqual(t, res.Score, 0)
		assert.LessOrEqual(t, res.Score, 100)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	e := NewEngine(nil)
	text := "Your KYC expires today, click http://kyc.example now"
	assert.Equal(t, e.Score(context.Background(), text), e.Score(context.Background(), text))
}

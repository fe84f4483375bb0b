package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassification(t *testing.T) {
	c, err := parseClassification(`{"scam": true, "confidence": 87.5, "scam_type": "phishing", "signals": ["fake link", 3]}`)
	require.NoError(t, err)
	assert.True(t, c.IsScam)
	assert.Equal(t, 87.5, c.Confidence)
	assert.Equal(t, "phishing", c.ScamType)
	assert.Equal(t, []string{"fake link", "3"}, c.Signals)
}

func TestParseClassificationCodeFence(t *testing.T) {
	c, err := parseClassification("```json\n{\"scam\": false, \"confidence\": \"12\"}\n```")
	require.NoError(t, err)
	assert.False(t, c.IsScam)
	assert.Equal(t, 12.0, c.Confidence)
	assert.Empty(t, c.Signals)
}

func TestParseClassificationWithProse(t *testing.T) {
	c, err := parseClassification(`Sure! Here is the verdict: {"scam": true, "confidence": 70} Hope it helps.`)
	require.NoError(t, err)
	assert.True(t, c.IsScam)
}

func TestParseClassificationRejectsMalformed(t *testing.T) {
	for _, raw := range []string{
		"",
		"not json at all",
		`{"confidence": 90}`,
		`{"scam": "yes"}`,
		`{"scam": true, "confidence": true}`,
		`{"scam": true, "signals": "one"}`,
	} {
		_, err := parseClassification(raw)
		require.Error(t, err, raw)
		assert.True(t, errors.Is(err, errInvalidClassification), raw)
	}
}

package textkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeSentimentEmpty(t *testing.T) {
	res := AnalyzeSentiment("")
	assert.Zero(t, res.Score)
	assert.Equal(t, "neutral", res.Category)
	assert.Zero(t, res.Confidence)
	require.NotNil(t, res.PositiveKeywords)
	require.NotNil(t, res.NegativeKeywords)
	assert.Empty(t, res.PositiveKeywords)
	assert.Empty(t, res.NegativeKeywords)
}

func TestAnalyzeSentimentPositive(t *testing.T) {
	res := AnalyzeSentiment("The launch went great, the team was happy")
	// Two keywords in eight words saturate the scale.
	assert.InDelta(t, 1.0, res.Score, 1e-9)
	assert.Equal(t, "positive", res.Category)
	assert.InDelta(t, 1.0, res.Confidence, 1e-9)
	assert.Equal(t, []string{"great", "happy"}, res.PositiveKeywords)
	assert.Empty(t, res.NegativeKeywords)
}

func TestAnalyzeSentimentDiluted(t *testing.T) {
	// One keyword across thirteen scoring words stays below the clamp.
	res := AnalyzeSentiment("overall the build pipeline looked good after another long and boring afternoon of cleanup")
	assert.InDelta(t, 10.0/13.0, res.Score, 1e-9)
	assert.Equal(t, "positive", res.Category)
	assert.Equal(t, []string{"good"}, res.PositiveKeywords)
}

func TestAnalyzeSentimentNegationFlipsScoreOnly(t *testing.T) {
	res := AnalyzeSentiment("not happy with the delay")
	assert.InDelta(t, -1.0, res.Score, 1e-9)
	assert.Equal(t, "negative", res.Category)
	// The keyword stays on the side of its lexicon; only the score flips.
	assert.Equal(t, []string{"happy"}, res.PositiveKeywords)
	assert.Empty(t, res.NegativeKeywords)
}

func TestAnalyzeSentimentIntensifier(t *testing.T) {
	plain := AnalyzeSentiment("the team felt rather tired after the long and painful deploy last night and nobody slept")
	boosted := AnalyzeSentiment("the team felt very tired after the long and painful deploy last night and nobody slept")
	assert.InDelta(t, -10.0/16.0, plain.Score, 1e-9)
	assert.InDelta(t, -15.0/16.0, boosted.Score, 1e-9)
	assert.Equal(t, []string{"tired"}, boosted.NegativeKeywords)
}

func TestAnalyzeSentimentFrench(t *testing.T) {
	res := AnalyzeSentiment("très content du résultat, merci")
	// "du" is too short to count as a word; the intensified keyword and
	// "merci" push the dense text to the positive clamp.
	assert.InDelta(t, 1.0, res.Score, 1e-9)
	assert.Equal(t, []string{"content", "merci"}, res.PositiveKeywords)
}

func TestSentimentScore(t *testing.T) {
	assert.InDelta(t, -1.0, SentimentScore("stressed and overwhelmed"), 1e-9)
	assert.Zero(t, SentimentScore("the meeting covered the roadmap"))
}

func TestSentimentCategoryBands(t *testing.T) {
	assert.Equal(t, "positive", SentimentCategory(0.3))
	assert.Equal(t, "neutral", SentimentCategory(0.29))
	assert.Equal(t, "neutral", SentimentCategory(0))
	assert.Equal(t, "neutral", SentimentCategory(-0.29))
	assert.Equal(t, "negative", SentimentCategory(-0.3))
}

package textkit

import (
	"math"
	"strings"
	"unicode"
)

var positiveWords = wordSet(
	"excellent", "super", "génial", "parfait", "merci", "bien",
	"content", "heureux", "satisfait", "efficace", "réussi",
	"great", "good", "thanks", "happy", "pleased",
	"successful", "effective", "awesome", "perfect",
)

var negativeWords = wordSet(
	"difficile", "problème", "inquiet", "stressé", "fatigué",
	"débordé", "compliqué", "impossible", "frustré", "désolé",
	"difficult", "problem", "worried", "stressed", "tired",
	"overwhelmed", "complicated", "frustrated", "sorry",
)

var intensifiers = wordSet("très", "vraiment", "extremely", "very", "really")

// The one- and two-letter negations ("ne", "no") never survive
// tokenization, so only the longer forms actually flip a score.
var negations = wordSet("pas", "non", "ne", "not", "no", "never")

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// Sentiment is the detailed result of a lexicon pass over one text.
type Sentiment struct {
	Score            float64  `json:"score"`
	Category         string   `json:"category"`
	Confidence       float64  `json:"confidence"`
	PositiveKeywords []string `json:"positive_keywords"`
	NegativeKeywords []string `json:"negative_keywords"`
}

// SentimentScore rates text between -1 (very negative) and 1 (very
// positive). Empty or unscorable text rates 0.
func SentimentScore(text string) float64 {
	return AnalyzeSentiment(text).Score
}

// AnalyzeSentiment runs the lexicon pass and reports the score, its
// category band and the keywords that contributed. A keyword counts 1,
// counts 1.5 after an intensifier, and flips sign after a negation.
func AnalyzeSentiment(text string) Sentiment {
	res := Sentiment{Category: "neutral", PositiveKeywords: []string{}, NegativeKeywords: []string{}}
	words := tokenize(text)
	if len(words) == 0 {
		return res
	}
	var total float64
	for i, w := range words {
		var score float64
		switch {
		case positiveWords[w]:
			score = 1
			res.PositiveKeywords = append(res.PositiveKeywords, w)
		case negativeWords[w]:
			score = -1
			res.NegativeKeywords = append(res.NegativeKeywords, w)
		default:
			continue
		}
		if i > 0 && intensifiers[words[i-1]] {
			score *= 1.5
		}
		if i > 0 && negations[words[i-1]] {
			score = -score
		}
		total += score
	}
	res.Score = math.Max(-1, math.Min(1, total/float64(len(words))*10))
	res.Confidence = math.Abs(res.Score)
	res.Category = SentimentCategory(res.Score)
	return res
}

// SentimentCategory maps a score onto positive, negative or neutral.
func SentimentCategory(score float64) string {
	switch {
	case score >= 0.3:
		return "positive"
	case score <= -0.3:
		return "negative"
	}
	return "neutral"
}

// tokenize lowercases text and splits it into word tokens. Letters, digits
// and underscores make up a word; tokens of one or two runes are dropped.
func tokenize(text string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 2 {
			words = append(words, string(cur))
		}
		cur = cur[:0]
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			cur = append(cur, r)
			continue
		}
		flush()
	}
	flush()
	return words
}

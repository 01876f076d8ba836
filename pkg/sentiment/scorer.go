package sentiment

import (
	"math"
	"strings"

	"xpulse/pkg/models"
)

// Label is the sentiment classification of a post.
type Label string

const (
	LabelPositive Label = "positivo"
	LabelNegative Label = "negativo"
	LabelNeutral  Label = "neutro"
)

// Component weights of the combined score.
const (
	wordWeight     = 0.30
	emojiWeight    = 0.25
	polarityWeight = 0.20

	// Decision threshold for the continuous score.
	threshold = 0.05
)

// Scorer converts raw post text into a deterministic signed sentiment score.
type Scorer struct {
	estimator Estimator
}

// NewScorer creates a Scorer backed by the given polarity estimator. A nil
// estimator falls back to the built-in lexical one.
func NewScorer(estimator Estimator) *Scorer {
	if estimator == nil {
		estimator = NewLexicalEstimator()
	}
	return &Scorer{estimator: estimator}
}

// CountEmoji counts weighted positive and negative emoji occurrences in text.
// It is order-independent and additive across concatenated texts.
func CountEmoji(text string) (pos, neg float64, occurrences []models.EmojiOccurrence) {
	for emoji, weight := range positiveEmojis {
		if count := strings.Count(text, emoji); count > 0 {
			pos += weight * float64(count)
			occurrences = append(occurrences, models.EmojiOccurrence{
				Emoji: emoji,
				Kind:  string(LabelPositive),
				Count: count,
			})
		}
	}

	for emoji, weight := range negativeEmojis {
		if count := strings.Count(text, emoji); count > 0 {
			neg += weight * float64(count)
			occurrences = append(occurrences, models.EmojiOccurrence{
				Emoji: emoji,
				Kind:  string(LabelNegative),
				Count: count,
			})
		}
	}

	return pos, neg, occurrences
}

// Score combines the word lexicons, the weighted emoji tables and the
// polarity estimator into a label and a signed score rounded to 3 decimals.
func (s *Scorer) Score(text string) (Label, float64, []models.EmojiOccurrence) {
	textLower := strings.ToLower(text)

	var posWords, negWords int
	for _, w := range negativeWords {
		if strings.Contains(textLower, w) {
			negWords++
		}
	}
	for _, w := range positiveWords {
		if strings.Contains(textLower, w) {
			posWords++
		}
	}

	emojiPos, emojiNeg, occurrences := CountEmoji(text)

	// Estimator failure degrades to a neutral polarity, never to an error.
	polarity, err := s.estimator.Polarity(text)
	if err != nil {
		polarity = 0
	}

	wordScore := float64(posWords-negWords) * wordWeight
	emojiScore := (emojiPos - emojiNeg) * emojiWeight
	polarityScore := polarity * polarityWeight

	combined := round3(wordScore + emojiScore + polarityScore)

	// Raw totals let one-sided word or emoji evidence override a near-zero
	// combined score.
	totalPos := float64(posWords) + emojiPos
	totalNeg := float64(negWords) + emojiNeg

	var label Label
	switch {
	case combined > threshold || totalPos > totalNeg:
		label = LabelPositive
	case combined < -threshold || totalNeg > totalPos:
		label = LabelNegative
	default:
		label = LabelNeutral
	}

	return label, combined, occurrences
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

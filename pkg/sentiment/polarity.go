package sentiment

import "strings"

// Estimator produces a generic polarity value in [-1, 1] for a text. It is
// the pluggable complement to the domain lexicons; Score treats an estimator
// error as polarity 0.
type Estimator interface {
	Polarity(text string) (float64, error)
}

// LexicalEstimator is a deterministic token-lookup estimator. It averages
// the polarity of known tokens and returns 0 when no token matches.
type LexicalEstimator struct {
	tokens map[string]float64
}

// NewLexicalEstimator builds the default estimator with a small bilingual
// polarity table.
func NewLexicalEstimator() *LexicalEstimator {
	return &LexicalEstimator{
		tokens: map[string]float64{
			// English
			"good": 0.6, "great": 0.8, "excellent": 1.0, "love": 0.7,
			"nice": 0.5, "best": 0.9, "works": 0.4, "fast": 0.4,
			"bad": -0.6, "terrible": -0.9, "awful": -0.9, "hate": -0.8,
			"worst": -1.0, "broken": -0.6, "slow": -0.4, "useless": -0.7,
			// Spanish
			"bien": 0.5, "buena": 0.5, "buenos": 0.5, "gracias": 0.4,
			"excelente": 1.0, "genial": 0.8, "perfecto": 0.9, "mejor": 0.5,
			"malo": -0.6, "mala": -0.6, "horrible": -0.9, "pesimo": -0.9,
			"desastre": -0.8, "imposible": -0.5, "nunca": -0.3, "peor": -0.7,
		},
	}
}

// Polarity averages the polarity of recognized tokens in text.
func (e *LexicalEstimator) Polarity(text string) (float64, error) {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	})

	var sum float64
	var matched int
	for _, f := range fields {
		if v, ok := e.tokens[f]; ok {
			sum += v
			matched++
		}
	}

	if matched == 0 {
		return 0, nil
	}

	polarity := sum / float64(matched)
	if polarity > 1 {
		polarity = 1
	}
	if polarity < -1 {
		polarity = -1
	}
	return polarity, nil
}

func isWordRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == 'á', r == 'é', r == 'í', r == 'ó', r == 'ú', r == 'ñ', r == 'ü':
		return true
	}
	return false
}

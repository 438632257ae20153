// Package sentiment scores financial news text without a network call.
package sentiment

import (
	"context"

	"github.com/jonreiter/govader"

	"github.com/bobmcallan/playground/internal/interfaces"
)

// Vader scores text with the VADER lexicon, returning the compound
// polarity in [-1, 1]. The analyzer is read-only after construction, so one
// Vader is safe for concurrent use.
type Vader struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVader loads the VADER lexicon and emoji tables.
func NewVader() *Vader {
	return &Vader{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// ScoreSentiment never fails; text with no scored words is 0.
func (v *Vader) ScoreSentiment(_ context.Context, text string) (float64, error) {
	return v.Compound(text), nil
}

// Compound returns the normalised VADER compound score of text.
func (v *Vader) Compound(text string) float64 {
	return v.analyzer.PolarityScores(text).Compound
}

var _ interfaces.SentimentScorer = (*Vader)(nil)

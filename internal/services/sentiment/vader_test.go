package sentiment

import (
	"context"
	"math"
	"testing"
)

// Reference compound scores from the VADER distribution, rounded to 4 places.
const compoundTolerance = 0.5e-3

func TestCompound_ReferenceScores(t *testing.T) {
	v := NewVader()
	tests := []struct {
		text string
		want float64
	}{
		{"The book was good.", 0.4404},
		{"The book was bad.", -0.5423},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := v.Compound(tt.text); math.Abs(got-tt.want) > compoundTolerance {
				t.Errorf("Compound(%q) = %.4f, want %.4f", tt.text, got, tt.want)
			}
		})
	}
}

func TestCompound_FinancialHeadlines(t *testing.T) {
	v := NewVader()
	tests := []struct {
		text string
		sign int
	}{
		{"Stock tumbles after terrible quarterly results", -1},
		{"Company posts disappointing earnings, stock sinks", -1},
		{"Analysts are thrilled by an amazing product launch", 1},
		{"The company held its annual meeting on Tuesday", 0},
		{"Results were not good this quarter", -1},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := v.Compound(tt.text)
			switch {
			case tt.sign > 0 && got <= 0:
				t.Errorf("Compound(%q) = %v, want positive", tt.text, got)
			case tt.sign < 0 && got >= 0:
				t.Errorf("Compound(%q) = %v, want negative", tt.text, got)
			case tt.sign == 0 && got != 0:
				t.Errorf("Compound(%q) = %v, want 0", tt.text, got)
			}
			if got < -1 || got > 1 {
				t.Errorf("Compound(%q) = %v out of range", tt.text, got)
			}
		})
	}
}

func TestVader_ScoreSentiment(t *testing.T) {
	v := NewVader()
	score, err := v.ScoreSentiment(context.Background(), "The book was good.")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(score-0.4404) > compoundTolerance {
		t.Errorf("ScoreSentiment = %.4f, want 0.4404", score)
	}

	empty, err := v.ScoreSentiment(context.Background(), "")
	if err != nil || empty != 0 {
		t.Errorf("empty text: score=%v err=%v", empty, err)
	}
}

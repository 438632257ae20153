package health

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/bobmcallan/playground/internal/models"
)

// SectorAllocation sums market value per sector. Tickers without a known
// sector are grouped under models.SectorOther.
func SectorAllocation(rows []models.ValuationRow, sectors map[string]string) map[string]float64 {
	alloc := make(map[string]float64)
	for _, row := range rows {
		sector := sectors[row.Ticker]
		if sector == "" {
			sector = models.SectorOther
		}
		alloc[sector] += row.MarketValue
	}
	return alloc
}

// SectorWeights normalises an allocation by total stock value. A zero total
// yields an empty map rather than NaN weights.
func SectorWeights(alloc map[string]float64) map[string]float64 {
	weights := make(map[string]float64, len(alloc))
	values := make([]float64, 0, len(alloc))
	for _, v := range alloc {
		values = append(values, v)
	}
	total := floats.Sum(values)
	if total <= 0 {
		return weights
	}
	for sector, v := range alloc {
		weights[sector] = v / total
	}
	return weights
}

// DiversificationScore is (1 - HHI) * 100 over sector weights, where HHI is
// the sum of squared weights. One sector scores 0; N equal sectors score
// (1 - 1/N) * 100.
func DiversificationScore(weights map[string]float64) float64 {
	if len(weights) == 0 {
		return 0
	}
	w := make([]float64, 0, len(weights))
	for _, v := range weights {
		w = append(w, v)
	}
	hhi := floats.Dot(w, w)
	return math.Max(0, (1-hhi)*100)
}

// HighestConcentration returns the holding with the largest share of total
// portfolio value (cash included), or nil when there is nothing to weigh.
func HighestConcentration(v *models.Valuation) *models.Concentration {
	if v == nil || v.TotalValue <= 0 || len(v.Rows) == 0 {
		return nil
	}
	var top *models.Concentration
	for _, row := range v.Rows {
		w := row.MarketValue / v.TotalValue
		if top == nil || w > top.Weight {
			top = &models.Concentration{Ticker: row.Ticker, Weight: w}
		}
	}
	return top
}

// MeanSentiment averages scores, clamped to [-1, 1]. No scores means neutral.
func MeanSentiment(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	return clamp(stat.Mean(scores, nil), -1, 1)
}

// SentimentText builds the scoring input for a news item. Items without both
// a title and a description are skipped.
func SentimentText(item models.NewsItem) (string, bool) {
	if item.Title == "" || item.Description == "" {
		return "", false
	}
	return item.Title + ". " + item.Description, true
}

// UniqueNews returns the union of items, keeping the first occurrence of each
// article. Articles are identified by URL, or by title and description when
// the URL is empty, so one story tagged with several held tickers counts once.
func UniqueNews(items []models.NewsItem) []models.NewsItem {
	seen := make(map[string]bool, len(items))
	out := make([]models.NewsItem, 0, len(items))
	for _, item := range items {
		key := newsKey(item)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

func newsKey(item models.NewsItem) string {
	if url := strings.TrimSpace(item.URL); url != "" {
		return "url:" + url
	}
	return "text:" + item.Title + "\x00" + item.Description
}

// sortedSectors orders sectors by descending weight, then name.
func sortedSectors(weights map[string]float64) []string {
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if weights[names[i]] != weights[names[j]] {
			return weights[names[i]] > weights[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(hi, math.Max(lo, v))
}

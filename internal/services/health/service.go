// Package health scores portfolio diversification, concentration and news
// sentiment, and asks a narrative generator to write it up.
package health

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/playground/internal/cache"
	"github.com/bobmcallan/playground/internal/common"
	"github.com/bobmcallan/playground/internal/interfaces"
	"github.com/bobmcallan/playground/internal/models"
)

// DefaultMaxConcurrent bounds per-ticker sector/news lookups and per-article
// sentiment scoring.
const DefaultMaxConcurrent = 5

// Service implements HealthService
type Service struct {
	store     interfaces.PortfolioStore
	valuation interfaces.ValuationService
	sectors   interfaces.SectorProvider
	news      interfaces.NewsProvider
	sentiment interfaces.SentimentScorer
	narrative interfaces.NarrativeGenerator
	reports   *cache.Cache[string, *models.HealthReport]
	logger    *common.Logger

	maxConcurrent int
	now           func() time.Time // injectable clock for testing
}

// Option configures a health Service
type Option func(*Service)

// WithSectorProvider sets the sector metadata source
func WithSectorProvider(p interfaces.SectorProvider) Option {
	return func(s *Service) { s.sectors = p }
}

// WithNewsProvider sets the news source
func WithNewsProvider(p interfaces.NewsProvider) Option {
	return func(s *Service) { s.news = p }
}

// WithSentimentScorer sets the article sentiment scorer
func WithSentimentScorer(p interfaces.SentimentScorer) Option {
	return func(s *Service) { s.sentiment = p }
}

// WithNarrativeGenerator sets the LLM narrative writer
func WithNarrativeGenerator(p interfaces.NarrativeGenerator) Option {
	return func(s *Service) { s.narrative = p }
}

// WithReportTTL sets how long a report stays cached for an unchanged portfolio
func WithReportTTL(ttl time.Duration) Option {
	return func(s *Service) { s.reports = cache.New[string, *models.HealthReport](ttl) }
}

// WithMaxConcurrent bounds the external lookup fan-out
func WithMaxConcurrent(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxConcurrent = n
		}
	}
}

// WithClock overrides time.Now for generated_at and cache expiry
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a health service. Any collaborator left unset degrades
// its part of the report: sectors become "Other", sentiment is neutral and
// the narrative is a placeholder.
func NewService(store interfaces.PortfolioStore, valuation interfaces.ValuationService, logger *common.Logger, opts ...Option) *Service {
	s := &Service{
		store:         store,
		valuation:     valuation,
		logger:        logger,
		maxConcurrent: DefaultMaxConcurrent,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reports == nil {
		s.reports = cache.New[string, *models.HealthReport](common.FreshnessHealthReport)
	}
	s.reports.WithClock(func() time.Time { return s.now() })
	return s
}

func cacheKey(userID, fingerprint string) string {
	return userID + ":" + fingerprint
}

// GetHealthReport returns the cached report for the user's current holdings
// or builds a new one. Collaborator failures degrade the report, they never
// fail it; only loading the portfolio itself can return an error.
func (s *Service) GetHealthReport(ctx context.Context, userID string, opts interfaces.HealthOptions) (*models.HealthReport, error) {
	p, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := cacheKey(p.UserID, p.Fingerprint())
	if !opts.ForceRefresh {
		if cached, ok := s.reports.Get(key); ok {
			s.logger.Debug().Str("user_id", p.UserID).Msg("Serving cached health report")
			return cached, nil
		}
	}

	report, err := s.build(ctx, p)
	if err != nil {
		return nil, err
	}

	// A failed narrative is retried on the next request rather than cached.
	if !report.NarrativeError {
		s.reports.Set(key, report)
	}
	return report, nil
}

// PurgeExpired drops stale cached reports
func (s *Service) PurgeExpired() int {
	return s.reports.PurgeExpired()
}

func (s *Service) build(ctx context.Context, p *models.Portfolio) (*models.HealthReport, error) {
	report := &models.HealthReport{
		UserID:           p.UserID,
		SectorAllocation: map[string]float64{},
		SectorWeights:    map[string]float64{},
		GeneratedAt:      s.now().UTC(),
		Fingerprint:      p.Fingerprint(),
	}

	if len(p.Holdings) == 0 {
		cash := p.Cash.InexactFloat64()
		report.Empty = true
		report.TotalValue = cash
		if cash > 0 {
			report.CashRatio = 1
		}
		report.Narrative = models.NothingToAnalyze
		return report, nil
	}

	v, err := s.valuation.Value(ctx, p)
	if err != nil {
		return nil, err
	}

	lookups := s.lookupTickers(ctx, p.Tickers())
	sectors := make(map[string]string, len(lookups))
	var items []models.NewsItem
	for _, ticker := range p.Tickers() {
		l := lookups[ticker]
		sectors[ticker] = l.sector
		items = append(items, l.news...)
	}

	scores := s.scoreItems(ctx, UniqueNews(items))

	report.TotalValue = v.TotalValue
	report.CashRatio = v.CashRatio
	report.SectorAllocation = SectorAllocation(v.Rows, sectors)
	report.SectorWeights = SectorWeights(report.SectorAllocation)
	report.DiversificationScore = DiversificationScore(report.SectorWeights)
	report.HighestConcentration = HighestConcentration(v)
	report.PortfolioSentiment = MeanSentiment(scores)
	report.SentimentSamples = len(scores)
	report.Summary = BuildSummary(v, report)

	report.Narrative, report.NarrativeError = s.writeNarrative(ctx, p.UserID, report.Summary)

	s.logger.Info().
		Str("user_id", p.UserID).
		Int("holdings", len(p.Holdings)).
		Float64("diversification_score", report.DiversificationScore).
		Float64("sentiment", report.PortfolioSentiment).
		Int("articles", report.SentimentSamples).
		Bool("narrative_error", report.NarrativeError).
		Msg("Health report generated")

	return report, nil
}

type tickerLookup struct {
	sector string
	news   []models.NewsItem
}

// lookupTickers fetches sector and news per ticker with bounded concurrency.
// Cancellation stops launching new lookups; tickers not reached keep the
// "Other" sector and no news.
func (s *Service) lookupTickers(ctx context.Context, tickers []string) map[string]tickerLookup {
	results := make(map[string]tickerLookup, len(tickers))
	for _, t := range tickers {
		results[t] = tickerLookup{sector: models.SectorOther}
	}
	if s.sectors == nil && s.news == nil {
		return results
	}

	sem := make(chan struct{}, s.maxConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, ticker := range tickers {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()
			defer func() { <-sem }()

			l := tickerLookup{sector: s.lookupSector(ctx, ticker), news: s.lookupNews(ctx, ticker)}

			mu.Lock()
			results[ticker] = l
			mu.Unlock()
		}(ticker)
	}

	wg.Wait()

	if ctx.Err() != nil {
		s.logger.Warn().Err(ctx.Err()).Msg("Health report lookups cut short")
	}
	return results
}

func (s *Service) lookupSector(ctx context.Context, ticker string) string {
	if s.sectors == nil {
		return models.SectorOther
	}
	sector, err := s.sectors.GetSector(ctx, ticker)
	if err != nil {
		s.logger.Warn().Err(err).Str("ticker", ticker).Msg("Sector lookup failed")
		return models.SectorOther
	}
	sector = strings.TrimSpace(sector)
	if sector == "" {
		return models.SectorOther
	}
	return sector
}

func (s *Service) lookupNews(ctx context.Context, ticker string) []models.NewsItem {
	if s.news == nil {
		return nil
	}
	items, err := s.news.GetRecentNews(ctx, ticker)
	if err != nil {
		s.logger.Warn().Err(err).Str("ticker", ticker).Msg("News lookup failed")
		return nil
	}
	return items
}

// scoreItems scores each usable article concurrently. Failed scores are dropped.
func (s *Service) scoreItems(ctx context.Context, items []models.NewsItem) []float64 {
	if s.sentiment == nil || len(items) == 0 {
		return nil
	}

	texts := make([]string, 0, len(items))
	for _, item := range items {
		if text, ok := SentimentText(item); ok {
			texts = append(texts, text)
		}
	}

	sem := make(chan struct{}, s.maxConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var scores []float64
	failed := 0

	for _, text := range texts {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			defer func() { <-sem }()

			score, err := s.sentiment.ScoreSentiment(ctx, text)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				return
			}
			scores = append(scores, clamp(score, -1, 1))
		}(text)
	}

	wg.Wait()

	if failed > 0 {
		s.logger.Warn().Int("failed", failed).Int("scored", len(scores)).Msg("Some sentiment scores failed")
	}
	return scores
}

func (s *Service) writeNarrative(ctx context.Context, userID, summary string) (string, bool) {
	if s.narrative == nil {
		return narrativeFailure("no narrative generator is configured"), true
	}
	text, err := s.narrative.GenerateNarrative(ctx, summary)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty response")
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Narrative generation failed")
		return narrativeFailure(err.Error()), true
	}
	return text, false
}

// narrativeFailure appends the cause to the standard unavailable message.
func narrativeFailure(reason string) string {
	return models.NarrativeUnavailable + " Error generating AI analysis: " + reason
}

// Compile-time check
var _ interfaces.HealthService = (*Service)(nil)

// Package app wires configuration, storage, market data clients and the
// trading, valuation and health services. It is the shared core of
// cmd/playground-server and cmd/playground.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/playground/internal/clients/eodhd"
	"github.com/bobmcallan/playground/internal/clients/gemini"
	"github.com/bobmcallan/playground/internal/clients/yahoo"
	"github.com/bobmcallan/playground/internal/common"
	"github.com/bobmcallan/playground/internal/interfaces"
	"github.com/bobmcallan/playground/internal/services/health"
	"github.com/bobmcallan/playground/internal/services/quote"
	"github.com/bobmcallan/playground/internal/services/sentiment"
	"github.com/bobmcallan/playground/internal/services/trade"
	"github.com/bobmcallan/playground/internal/services/valuation"
	"github.com/bobmcallan/playground/internal/storage"
)

// App holds all initialized services and clients.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Storage          interfaces.StorageManager
	Prices           interfaces.PriceProvider // nil when no quote source is configured
	TradeService     interfaces.TradeService
	ValuationService *valuation.Service
	HealthService    interfaces.HealthService
	StartupTime      time.Time

	janitor *Janitor
}

// Collaborators overrides the external clients NewAppWithConfig would build.
// Nil fields fall back to the configured clients.
type Collaborators struct {
	Prices    interfaces.PriceProvider
	Sectors   interfaces.SectorProvider
	News      interfaces.NewsProvider
	Sentiment interfaces.SentimentScorer
	Narrative interfaces.NarrativeGenerator
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath picks the config file: the given path, PLAYGROUND_CONFIG,
// playground.toml next to the binary, then config/playground.toml.
func ResolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("PLAYGROUND_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "playground.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/playground.toml" // fallback for development
		}
	}
	return configPath
}

// NewApp loads configuration and initializes everything.
// configPath may be empty, in which case ResolveConfigPath decides.
func NewApp(configPath string) (*App, error) {
	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative storage path to binary directory
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(getBinaryDir(), config.Storage.Path)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	if missing := config.ValidateRequired(); len(missing) > 0 {
		if config.IsProduction() {
			return nil, fmt.Errorf("missing required settings: %v", missing)
		}
		logger.Warn().Strs("missing", missing).Msg("Running with incomplete configuration")
	}

	return NewAppWithConfig(config, logger, Collaborators{})
}

// NewAppWithConfig initializes storage and services from an already-loaded
// config. Tests pass a memory backend and mock collaborators.
func NewAppWithConfig(config *common.Config, logger *common.Logger, c Collaborators) (*App, error) {
	startupStart := time.Now()

	if config.Storage.Backend == common.BackendSQLite || config.Storage.Backend == common.BackendBolt {
		if dir := filepath.Dir(config.Storage.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create storage directory: %w", err)
			}
		}
	}

	storageManager, err := storage.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	clients := buildClients(context.Background(), config, logger)
	if c.Prices == nil {
		c.Prices = clients.Prices
	}
	if c.Sectors == nil {
		c.Sectors = clients.Sectors
	}
	if c.News == nil {
		c.News = clients.News
	}
	if c.Sentiment == nil {
		c.Sentiment = clients.Sentiment
	}
	if c.Narrative == nil {
		c.Narrative = clients.Narrative
	}

	store := storageManager.PortfolioStore()
	valuationService := valuation.NewService(c.Prices, config.Cache.GetPriceTTL(), logger)
	tradeService := trade.NewService(store, c.Prices, logger)

	var healthOpts []health.Option
	healthOpts = append(healthOpts, health.WithReportTTL(config.Cache.GetReportTTL()))
	if c.Sectors != nil {
		healthOpts = append(healthOpts, health.WithSectorProvider(c.Sectors))
	}
	if c.News != nil {
		healthOpts = append(healthOpts, health.WithNewsProvider(c.News))
	}
	if c.Sentiment != nil {
		healthOpts = append(healthOpts, health.WithSentimentScorer(c.Sentiment))
	}
	if c.Narrative != nil {
		healthOpts = append(healthOpts, health.WithNarrativeGenerator(c.Narrative))
	}
	healthService := health.NewService(store, valuationService, logger, healthOpts...)

	a := &App{
		Config:           config,
		Logger:           logger,
		Storage:          storageManager,
		Prices:           c.Prices,
		TradeService:     tradeService,
		ValuationService: valuationService,
		HealthService:    healthService,
		StartupTime:      startupStart,
	}

	logger.Info().
		Str("backend", storageManager.Backend()).
		Bool("live_prices", c.Prices != nil).
		Bool("narrative", c.Narrative != nil).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// buildClients constructs the external clients the config enables. Fields
// stay nil interfaces when a client is unavailable.
func buildClients(ctx context.Context, config *common.Config, logger *common.Logger) Collaborators {
	var c Collaborators

	var primary, fallback interfaces.PriceProvider
	if key := config.Clients.EODHD.APIKey; key != "" {
		eodhdClient := eodhd.NewClient(key,
			eodhd.WithBaseURL(config.Clients.EODHD.BaseURL),
			eodhd.WithLogger(logger),
			eodhd.WithRateLimit(config.Clients.EODHD.RateLimit),
			eodhd.WithTimeout(config.Clients.EODHD.GetTimeout()),
			eodhd.WithDefaultExchange(config.Clients.EODHD.DefaultExchange),
			eodhd.WithNewsLimit(config.Clients.EODHD.NewsLimit),
		)
		primary = eodhdClient
		c.Sectors = eodhdClient
		c.News = eodhdClient
	} else {
		logger.Warn().Msg("EODHD API key not configured - sectors and news will be unavailable")
	}

	if config.Clients.Yahoo.Enabled {
		fallback = yahoo.NewClient(yahoo.WithLogger(logger))
	}

	switch {
	case primary != nil && fallback != nil:
		c.Prices = quote.NewService(primary, fallback, logger)
	case primary != nil:
		c.Prices = primary
	case fallback != nil:
		c.Prices = fallback
	default:
		logger.Warn().Msg("No quote source configured - holdings will be valued at average cost")
	}

	c.Sentiment = sentiment.NewVader()

	if key := config.Clients.Gemini.APIKey; key != "" {
		geminiClient, err := gemini.NewClient(ctx, key,
			gemini.WithLogger(logger),
			gemini.WithModel(config.Clients.Gemini.Model),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Gemini client")
		} else {
			c.Narrative = geminiClient
			if config.Clients.Gemini.Sentiment {
				c.Sentiment = geminiClient
			}
		}
	} else {
		logger.Warn().Msg("Gemini API key not configured - AI narrative will be unavailable")
	}

	return c
}

// Close releases all resources held by the App.
// Shutdown order: stop janitor, close storage.
func (a *App) Close() {
	if a.janitor != nil {
		a.janitor.Stop()
		a.janitor = nil
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Storage close failed")
		}
		a.Storage = nil
	}
}

// StartJanitor schedules the cache purge jobs.
func (a *App) StartJanitor() error {
	j := NewJanitor(a.Logger)
	if err := j.AddJob(a.Config.Cache.JanitorSchedule, purgeJob{name: "purge-price-cache", purge: a.ValuationService.PurgeExpired}); err != nil {
		return fmt.Errorf("failed to schedule price cache purge: %w", err)
	}
	if err := j.AddJob(a.Config.Cache.JanitorSchedule, purgeJob{name: "purge-report-cache", purge: a.HealthService.PurgeExpired}); err != nil {
		return fmt.Errorf("failed to schedule report cache purge: %w", err)
	}
	j.Start()
	a.janitor = j
	return nil
}

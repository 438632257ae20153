// Package eodhd provides a client for the EODHD API
package eodhd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/playground/internal/common"
	"github.com/bobmcallan/playground/internal/interfaces"
	"github.com/bobmcallan/playground/internal/models"
)

// flexFloat64 handles JSON values that may be either a number or a string.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "N/A" || s == "NA" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

const (
	DefaultBaseURL   = "https://eodhd.com/api"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second
	DefaultExchange  = "US"
	DefaultNewsLimit = 20

	// sectorPath locates the sector in a fundamentals document
	sectorPath = "$.General.Sector"
)

// Client serves live prices, sector metadata and news from EODHD
type Client struct {
	baseURL    string
	apiKey     string
	exchange   string
	newsLimit  int
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithDefaultExchange sets the exchange suffix appended to bare tickers
func WithDefaultExchange(exchange string) ClientOption {
	return func(c *Client) {
		c.exchange = strings.ToUpper(strings.TrimSpace(exchange))
	}
}

// WithNewsLimit caps the articles fetched per ticker
func WithNewsLimit(limit int) ClientOption {
	return func(c *Client) {
		if limit > 0 {
			c.newsLimit = limit
		}
	}
}

// NewClient creates a new EODHD client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		apiKey:    apiKey,
		exchange:  DefaultExchange,
		newsLimit: DefaultNewsLimit,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("EODHD API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Unwrap lets callers match API failures with models.ErrCollaboratorUnavailable.
func (e *APIError) Unwrap() error {
	return models.ErrCollaboratorUnavailable
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	// Add API key
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("EODHD API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to execute request: %w", models.ErrCollaboratorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", models.ErrCollaboratorUnavailable, err)
	}

	return nil
}

// symbol maps a portfolio ticker to an EODHD code. Tickers that already
// carry an exchange suffix (BHP.AU) pass through.
func (c *Client) symbol(ticker string) string {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if strings.Contains(t, ".") || c.exchange == "" {
		return t
	}
	return t + "." + c.exchange
}

type realTimeResponse struct {
	Code          string      `json:"code"`
	Timestamp     flexFloat64 `json:"timestamp"`
	Close         flexFloat64 `json:"close"`
	PreviousClose flexFloat64 `json:"previousClose"`
}

// GetCurrentPrice returns the latest traded price. An unknown ticker comes
// back with close "NA", which is reported as not found.
func (c *Client) GetCurrentPrice(ctx context.Context, ticker string) (float64, bool, error) {
	var resp realTimeResponse
	if err := c.get(ctx, "/real-time/"+c.symbol(ticker), nil, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return 0, false, nil
		}
		return 0, false, err
	}
	price := float64(resp.Close)
	if price <= 0 {
		return 0, false, nil
	}
	return price, true, nil
}

// GetCurrentPrices fetches all tickers in one request. EODHD answers a
// single object for one symbol and an array when extra symbols are given.
func (c *Client) GetCurrentPrices(ctx context.Context, tickers []string) (map[string]float64, error) {
	out := make(map[string]float64, len(tickers))
	if len(tickers) == 0 {
		return out, nil
	}

	byCode := make(map[string]string, len(tickers))
	codes := make([]string, 0, len(tickers))
	for _, t := range tickers {
		code := c.symbol(t)
		if _, dup := byCode[code]; dup {
			continue
		}
		byCode[code] = t
		codes = append(codes, code)
	}

	params := url.Values{}
	if len(codes) > 1 {
		params.Set("s", strings.Join(codes[1:], ","))
	}

	var raw json.RawMessage
	if err := c.get(ctx, "/real-time/"+codes[0], params, &raw); err != nil {
		return nil, err
	}

	var quotes []realTimeResponse
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(raw, &quotes); err != nil {
			return nil, fmt.Errorf("failed to decode real-time batch: %w", err)
		}
	} else {
		var single realTimeResponse
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, fmt.Errorf("failed to decode real-time quote: %w", err)
		}
		quotes = []realTimeResponse{single}
	}

	for _, q := range quotes {
		ticker, ok := byCode[strings.ToUpper(q.Code)]
		if !ok || q.Close <= 0 {
			continue
		}
		out[ticker] = float64(q.Close)
	}

	if len(out) < len(byCode) {
		c.logger.Debug().
			Int("requested", len(byCode)).
			Int("priced", len(out)).
			Msg("EODHD batch returned partial prices")
	}
	return out, nil
}

// GetSector reads General.Sector from the fundamentals document. Funds and
// ETFs usually carry no sector and map to models.SectorOther.
func (c *Client) GetSector(ctx context.Context, ticker string) (string, error) {
	var doc interface{}
	if err := c.get(ctx, "/fundamentals/"+c.symbol(ticker), nil, &doc); err != nil {
		return "", err
	}

	v, err := jsonpath.Get(sectorPath, doc)
	if err != nil {
		return models.SectorOther, nil
	}
	// jsonpath may wrap a single match in a list
	if list, ok := v.([]interface{}); ok && len(list) > 0 {
		v = list[0]
	}
	sector, _ := v.(string)
	sector = strings.TrimSpace(sector)
	if sector == "" {
		return models.SectorOther, nil
	}
	return sector, nil
}

type newsResponse struct {
	Date    string `json:"date"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Link    string `json:"link"`
}

// GetRecentNews retrieves the latest articles for a ticker
func (c *Client) GetRecentNews(ctx context.Context, ticker string) ([]models.NewsItem, error) {
	params := url.Values{}
	params.Set("s", c.symbol(ticker))
	params.Set("limit", strconv.Itoa(c.newsLimit))

	var newsResp []newsResponse
	if err := c.get(ctx, "/news", params, &newsResp); err != nil {
		return nil, err
	}

	news := make([]models.NewsItem, 0, len(newsResp))
	for _, item := range newsResp {
		publishedAt, _ := time.Parse(time.RFC3339, item.Date)
		news = append(news, models.NewsItem{
			Ticker:      strings.ToUpper(ticker),
			Title:       strings.TrimSpace(item.Title),
			Description: strings.TrimSpace(item.Content),
			URL:         item.Link,
			PublishedAt: publishedAt,
		})
	}

	return news, nil
}

var (
	_ interfaces.PriceProvider  = (*Client)(nil)
	_ interfaces.SectorProvider = (*Client)(nil)
	_ interfaces.NewsProvider   = (*Client)(nil)
)

// Package gemini provides a client for the Google Gemini API
package gemini

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/bobmcallan/playground/internal/common"
	"github.com/bobmcallan/playground/internal/interfaces"
	"github.com/bobmcallan/playground/internal/models"
)

const (
	DefaultModel = "gemini-2.0-flash"

	narrativeTemperature = 0.2
	sentimentTemperature = 0.0
)

// contentGenerator is the subset of genai.Models the client calls
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client writes health narratives and scores news sentiment with Gemini
type Client struct {
	models contentGenerator
	model  string
	logger *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithModel sets the model to use
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return newClient(genaiClient.Models, opts...), nil
}

func newClient(models contentGenerator, opts ...ClientOption) *Client {
	c := &Client{
		models: models,
		model:  DefaultModel,
		logger: common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temperature),
	}
	result, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("%w: failed to generate content: %w", models.ErrCollaboratorUnavailable, err)
	}
	return extractTextFromResponse(result)
}

// extractTextFromResponse extracts text from a generate content response
func extractTextFromResponse(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no content generated", models.ErrCollaboratorUnavailable)
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: no content generated", models.ErrCollaboratorUnavailable)
	}
	return text, nil
}

// GenerateNarrative writes the three-section portfolio health report
func (c *Client) GenerateNarrative(ctx context.Context, summary string) (string, error) {
	c.logger.Debug().Str("model", c.model).Msg("Generating portfolio narrative")
	return c.generate(ctx, buildNarrativePrompt(summary), narrativeTemperature)
}

// ScoreSentiment asks the model for a single polarity number in [-1, 1]
func (c *Client) ScoreSentiment(ctx context.Context, text string) (float64, error) {
	out, err := c.generate(ctx, buildSentimentPrompt(text), sentimentTemperature)
	if err != nil {
		return 0, err
	}
	return parseScore(out)
}

// parseScore reads the first token of the reply as a float and clamps it.
func parseScore(reply string) (float64, error) {
	fields := strings.Fields(reply)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty sentiment reply")
	}
	v, err := strconv.ParseFloat(strings.Trim(fields[0], "*`\"'.,"), 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable sentiment reply %q: %w", reply, err)
	}
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return v, nil
}

func buildNarrativePrompt(summary string) string {
	var sb strings.Builder
	sb.WriteString("You are an encouraging and insightful financial analyst reviewing a user's virtual stock portfolio.\n")
	sb.WriteString("Your tone should be positive and educational.\n")
	sb.WriteString("Based on the following data, provide a concise \"Portfolio Health Report\".\n\n")
	sb.WriteString("The report should have three sections in markdown format:\n")
	sb.WriteString("1. **Overall Summary:** A brief, 2-3 sentence summary of the portfolio's current state.\n")
	sb.WriteString("2. **Key Observations:** 2-3 bullet points highlighting the most important findings (e.g., strong diversification, high risk in one stock, positive news sentiment).\n")
	sb.WriteString("3. **Actionable Recommendations:** 2 bullet points with suggestions for the user to consider. Frame these as educational tips, not direct financial advice.\n\n")
	sb.WriteString("Here is the data:\n")
	sb.WriteString(summary)
	sb.WriteString("\n")
	return sb.String()
}

func buildSentimentPrompt(text string) string {
	return "Rate the sentiment of this financial news item for investors on a scale from -1 (very negative) " +
		"to 1 (very positive), with 0 as neutral. Reply with the number only.\n\n" + text
}

var (
	_ interfaces.NarrativeGenerator = (*Client)(nil)
	_ interfaces.SentimentScorer    = (*Client)(nil)
)

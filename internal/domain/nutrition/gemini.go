package nutrition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// FinishReasonMaxTokens is reported when generation stopped at the output limit.
const FinishReasonMaxTokens = "MAX_TOKENS"

// Generation is the text produced by a Generator.
type Generation struct {
	Text         string
	FinishReason string
}

// Generator produces free text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*Generation, error)
}

// GeminiConfig configures the generateContent client.
type GeminiConfig struct {
	BaseURL         string
	APIKey          string
	Model           string
	MaxOutputTokens int
	Temperature     *float64 // nil uses the default; 0 is a valid setting
	Timeout         time.Duration
	RetryCount      int
}

// DefaultGeminiConfig returns the settings used when nothing is configured.
func DefaultGeminiConfig() GeminiConfig {
	return GeminiConfig{
		BaseURL:         "https://generativelanguage.googleapis.com",
		Model:           "gemini-2.5-flash",
		MaxOutputTokens: 2048,
		Temperature:     Float(0.2),
		Timeout:         30 * time.Second,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// GeminiClient calls the Gemini generateContent endpoint.
type GeminiClient struct {
	httpClient *resty.Client
	cfg        GeminiConfig
	logger     zerolog.Logger
}

// Float returns a pointer to v, for GeminiConfig.Temperature.
func Float(v float64) *float64 { return &v }

// NewGeminiClient builds a client. Zero-valued fields, and a nil
// Temperature, fall back to DefaultGeminiConfig.
func NewGeminiClient(cfg GeminiConfig, logger zerolog.Logger) *GeminiClient {
	def := DefaultGeminiConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = def.MaxOutputTokens
	}
	if cfg.Temperature == nil {
		cfg.Temperature = def.Temperature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && (r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() == http.StatusServiceUnavailable)
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &GeminiClient{httpClient: client, cfg: cfg, logger: logger}
}

// Generate sends the prompt with a low temperature, a bounded output length
// and a JSON response hint.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (*Generation, error) {
	if g.cfg.APIKey == "" {
		return nil, newError(KindUpstream, "GEMINI_API_KEY is not configured")
	}

	body := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:      *g.cfg.Temperature,
			MaxOutputTokens:  g.cfg.MaxOutputTokens,
			ResponseMimeType: "application/json",
		},
	}

	resp, err := g.httpClient.R().
		SetContext(ctx).
		SetQueryParam("key", g.cfg.APIKey).
		SetBody(body).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", g.cfg.Model))
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, &Error{Kind: KindTimeout, Err: err}
		}
		return nil, &Error{Kind: KindUpstream, Err: err}
	}
	if resp.IsError() {
		g.logger.Error().
			Int("status", resp.StatusCode()).
			Str("body", truncate(resp.String(), 1000)).
			Msg("gemini returned an error status")
		return nil, newError(KindUpstream, "generateContent returned status %d", resp.StatusCode())
	}

	var out geminiResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, newError(KindUpstream, "decode generateContent envelope: %w", err)
	}

	gen := &Generation{}
	if len(out.Candidates) > 0 {
		c := out.Candidates[0]
		gen.FinishReason = c.FinishReason
		if len(c.Content.Parts) > 0 {
			gen.Text = c.Content.Parts[0].Text
		}
	}
	if gen.Text == "" && gen.FinishReason != FinishReasonMaxTokens {
		g.logger.Error().
			Str("body", truncate(resp.String(), 1500)).
			Msg("gemini response has no text")
	}
	return gen, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

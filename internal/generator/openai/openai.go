// Package openai provides a grammar generator backed by an OpenAI compatible
// chat completion API. The model is instructed to return only the corrected
// text.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"gramfix/internal/generator"
)

// SystemPrompt instructs chat models to behave like a correction model.
const SystemPrompt = "You correct English text. Fix grammar, agreement and spelling errors while keeping the meaning and wording that is already correct. Reply with the corrected text only, without quotes or explanations."

// Provider implements generator.Generator using the OpenAI API.
type Provider struct {
	client oai.Client
	model  string
	system string
}

type config struct {
	baseURL string
	timeout time.Duration
	system  string
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option { return func(c *config) { c.baseURL = url } }

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option { return func(c *config) { c.timeout = d } }

// WithSystemPrompt replaces SystemPrompt.
func WithSystemPrompt(s string) Option { return func(c *config) { c.system = s } }

// New constructs a new Provider.
func New(apiKey, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := &config{system: SystemPrompt}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// generation is single attempt
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	return &Provider{client: oai.NewClient(reqOpts...), model: model, system: cfg.system}, nil
}

// Generate implements generator.Generator.
func (p *Provider) Generate(ctx context.Context, prompt string, cfg generator.DecodingConfig) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, p.buildParams(prompt, cfg))
	if err != nil {
		var apiErr *oai.Error
		if errors.As(err, &apiErr) && unavailable(apiErr.StatusCode) {
			return "", fmt.Errorf("openai: chat completion: %w: %w", generator.ErrUnavailable, err)
		}
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// buildParams maps the decoding policy onto chat parameters. Chat APIs have no
// beam search, so beam search becomes greedy decoding at temperature 0.
func (p *Provider) buildParams(prompt string, cfg generator.DecodingConfig) oai.ChatCompletionNewParams {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(p.system),
			oai.UserMessage(prompt),
		},
	}
	if cfg.MaxNewTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(cfg.MaxNewTokens))
	}
	switch cfg.Strategy {
	case generator.Sampling:
		params.Temperature = param.NewOpt(1.0)
		if cfg.TopP > 0 {
			params.TopP = param.NewOpt(cfg.TopP)
		}
	default:
		params.Temperature = param.NewOpt(0.0)
	}
	if fp := frequencyPenalty(cfg.RepetitionPenalty); fp > 0 {
		params.FrequencyPenalty = param.NewOpt(fp)
	}
	return params
}

// frequencyPenalty converts a multiplicative repetition penalty (1 = none)
// into the additive [0, 2] frequency penalty of chat APIs.
func frequencyPenalty(rp float64) float64 {
	if rp <= 1 {
		return 0
	}
	return min(rp-1, 2)
}

func unavailable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

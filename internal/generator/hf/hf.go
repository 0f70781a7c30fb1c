// Package hf provides a generator backed by a Hugging Face style
// text2text-generation HTTP endpoint (the hosted Inference API, a Text
// Generation Inference server or any server speaking the same JSON).
package hf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gramfix/internal/generator"
)

// DefaultBaseURL is the hosted Inference API model root.
const DefaultBaseURL = "https://api-inference.huggingface.co/models"

// Client implements generator.Generator over HTTP.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

type config struct {
	baseURL string
	token   string
	timeout time.Duration
	client  *http.Client
}

// Option is a functional option for Client.
type Option func(*config)

// WithBaseURL overrides DefaultBaseURL. The model name is appended as a path segment.
func WithBaseURL(url string) Option { return func(c *config) { c.baseURL = url } }

// WithToken sets the bearer token.
func WithToken(token string) Option { return func(c *config) { c.token = token } }

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option { return func(c *config) { c.timeout = d } }

// WithHTTPClient replaces the HTTP client; WithTimeout is ignored then.
func WithHTTPClient(hc *http.Client) Option { return func(c *config) { c.client = hc } }

// New constructs a Client for model.
func New(model string, opts ...Option) (*Client, error) {
	if model == "" {
		return nil, fmt.Errorf("hf: model must not be empty")
	}
	cfg := &config{baseURL: DefaultBaseURL, timeout: 60 * time.Second}
	for _, o := range opts {
		o(cfg)
	}
	hc := cfg.client
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.baseURL, "/") + "/" + strings.TrimLeft(model, "/"),
		token:    cfg.token,
		http:     hc,
	}, nil
}

type parameters struct {
	MaxNewTokens      int      `json:"max_new_tokens"`
	DoSample          bool     `json:"do_sample"`
	NumBeams          int      `json:"num_beams,omitempty"`
	EarlyStopping     bool     `json:"early_stopping,omitempty"`
	TopK              int      `json:"top_k,omitempty"`
	TopP              float64  `json:"top_p,omitempty"`
	RepetitionPenalty *float64 `json:"repetition_penalty,omitempty"`
}

type request struct {
	Inputs     string     `json:"inputs"`
	Parameters parameters `json:"parameters"`
	Options    struct {
		WaitForModel bool `json:"wait_for_model"`
	} `json:"options"`
}

type output struct {
	GeneratedText string `json:"generated_text"`
}

type apiError struct {
	Error string `json:"error"`
}

func buildRequest(prompt string, cfg generator.DecodingConfig) request {
	p := parameters{MaxNewTokens: cfg.MaxNewTokens}
	switch cfg.Strategy {
	case generator.Sampling:
		p.DoSample = true
		p.TopK = cfg.TopK
		p.TopP = cfg.TopP
	default:
		p.NumBeams = cfg.NumBeams
		p.EarlyStopping = cfg.EarlyStopping
	}
	if cfg.RepetitionPenalty > 0 {
		rp := cfg.RepetitionPenalty
		p.RepetitionPenalty = &rp
	}
	r := request{Inputs: prompt, Parameters: p}
	r.Options.WaitForModel = true
	return r
}

// Generate implements generator.Generator.
func (c *Client) Generate(ctx context.Context, prompt string, cfg generator.DecodingConfig) (string, error) {
	body, err := json.Marshal(buildRequest(prompt, cfg))
	if err != nil {
		return "", fmt.Errorf("hf: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("hf: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("hf: request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("hf: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		var ae apiError
		if json.Unmarshal(raw, &ae) == nil && ae.Error != "" {
			msg = ae.Error
		}
		if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("hf: status %d: %s: %w", resp.StatusCode, msg, generator.ErrUnavailable)
		}
		return "", fmt.Errorf("hf: status %d: %s", resp.StatusCode, msg)
	}
	return decodeOutput(raw)
}

// decodeOutput accepts both the list form of the Inference API and the
// single object returned by some self-hosted servers.
func decodeOutput(raw []byte) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var outs []output
		if err := json.Unmarshal(raw, &outs); err != nil {
			return "", fmt.Errorf("hf: decode response: %w", err)
		}
		if len(outs) == 0 {
			return "", nil
		}
		return outs[0].GeneratedText, nil
	}
	var out output
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("hf: decode response: %w", err)
	}
	return out.GeneratedText, nil
}

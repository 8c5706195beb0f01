// Package httpgen calls a standalone text-generation service exposing
// POST /generate {prompt, system_prompt, max_tokens, temperature} -> {response}.
package httpgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kailas-cloud/poisearch/internal/domain"
)

// maxErrorBody caps how much of an error response is read into the message.
const maxErrorBody = 4 << 10

// Generator is a domain.Generator backed by a /generate endpoint.
type Generator struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// Option configures a Generator.
type Option func(*Generator)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Generator) { g.client = c }
}

// WithAPIKey sends the key as a bearer token.
func WithAPIKey(key string) Option {
	return func(g *Generator) { g.apiKey = key }
}

// New creates a generator for the service rooted at baseURL.
// Timeouts are left to the caller's context.
func New(baseURL string, opts ...Option) *Generator {
	g := &Generator{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

type generateRequest struct {
	Prompt       string  `json:"prompt"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	Temperature  float64 `json:"temperature"`
}

// Generate implements domain.Generator.
func (g *Generator) Generate(ctx context.Context, p domain.Prompt) (string, error) {
	body, err := json.Marshal(generateRequest{
		Prompt:       p.User,
		SystemPrompt: p.System,
		MaxTokens:    p.MaxTokens,
		Temperature:  p.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	g.authorize(req)

	data, status, err := g.do(req)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", statusError(status, data)
	}

	res := gjson.GetBytes(data, "response")
	if !res.Exists() {
		return "", fmt.Errorf("generate response has no \"response\" field: %w", domain.ErrGenerationFailed)
	}
	return strings.TrimSpace(res.String()), nil
}

// HealthCheck probes GET /health.
func (g *Generator) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	g.authorize(req)

	data, status, err := g.do(req)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return statusError(status, data)
	}
	return nil
}

func (g *Generator) authorize(req *http.Request) {
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
}

func (g *Generator) do(req *http.Request) ([]byte, int, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w: %w", req.Method, req.URL.Path, err, domain.ErrGenerationFailed)
	}
	defer resp.Body.Close()

	limit := int64(maxErrorBody)
	if resp.StatusCode == http.StatusOK {
		limit = 1 << 20
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read %s response: %w: %w", req.URL.Path, err, domain.ErrGenerationFailed)
	}
	return data, resp.StatusCode, nil
}

func statusError(status int, body []byte) error {
	detail := gjson.GetBytes(body, "detail").String()
	if detail == "" {
		detail = strings.TrimSpace(string(body))
	}
	return fmt.Errorf("generation service error %d: %s: %w", status, detail, domain.ErrGenerationFailed)
}

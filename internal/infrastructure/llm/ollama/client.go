package ollama

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/msanchezp/lexrag/internal/core/ports"
	"github.com/msanchezp/lexrag/internal/infrastructure/resilience"
)

// Config holds the Ollama connection settings.
type Config struct {
	BaseURL        string
	EmbedModel     string
	GenerateModel  string
	Timeout        time.Duration
	EmbedRateLimit float64 // requests per second, 0 disables limiting
}

// Client implements ports.Embedder and ports.Generator against a local
// Ollama server. Embedding requests, the hottest outbound path, go through
// a rate limiter so batch runs do not starve interactive traffic.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	embedModel    string
	generateModel string
	limiter       *rate.Limiter
	executor      *resilience.Executor
}

func NewClient(cfg Config, executor *resilience.Executor) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	var limiter *rate.Limiter
	if cfg.EmbedRateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.EmbedRateLimit), 1)
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		embedModel:    cfg.EmbedModel,
		generateModel: cfg.GenerateModel,
		limiter:       limiter,
		executor:      executor,
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed returns one unit-norm vector per input text.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req := embedRequest{Model: c.embedModel, Input: texts}
	var resp embedResponse
	if err := c.call(ctx, "embed", "/api/embed", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d vectors for %d inputs", len(resp.Embeddings), len(texts))
	}
	for i := range resp.Embeddings {
		normalize(resp.Embeddings[i])
	}
	return resp.Embeddings, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate runs a non-streaming completion. The system prompt travels
// inside the prompt in <<SYS>> markers.
func (c *Client) Generate(ctx context.Context, system, prompt string, opts ports.GenerateOptions) (string, error) {
	full := prompt
	if strings.TrimSpace(system) != "" {
		full = fmt.Sprintf("<<SYS>>\n%s\n<</SYS>>\n%s", system, prompt)
	}
	req := generateRequest{
		Model:  c.generateModel,
		Prompt: full,
		Stream: false,
		Options: generateOptions{
			Temperature: opts.Temperature,
			TopP:        opts.TopP,
			NumPredict:  opts.MaxTokens,
		},
	}
	var resp generateResponse
	if err := c.call(ctx, "generate", "/api/generate", req, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

func (c *Client) call(ctx context.Context, operation, path string, payload, out any) error {
	run := func(ctx context.Context) error {
		return c.postJSON(ctx, path, payload, out, operation)
	}
	if c.executor == nil {
		return wrapTemporaryIfNeeded(operation, run(ctx))
	}
	err := c.executor.Execute(ctx, operation, run, classifyOllamaError)
	return wrapTemporaryIfNeeded(operation, err)
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}

package mcqbank

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Generator is the only thing the pipeline needs from a language model:
// a prompt goes in, response text comes out.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// ErrEmptyResponse is returned when the model answers with no text
var ErrEmptyResponse = errors.New("empty response from model")

// OpenAIGenerator talks to the OpenAI chat completions API
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAIGenerator creates a generator backed by go-openai. An empty
// baseURL uses the public endpoint.
func NewOpenAIGenerator(apiKey, model, baseURL string, temperature float32) *OpenAIGenerator {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
	}
}

// Generate sends the prompt as a single user message
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       g.model,
			Temperature: g.temperature,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: "You are a careful assistant that prepares medical licensing exam questions.",
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices from %s: %w", g.model, ErrEmptyResponse)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// GeminiGenerator talks to the Gemini API
type GeminiGenerator struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

// NewGeminiGenerator creates a generator backed by generative-ai-go
func NewGeminiGenerator(ctx context.Context, apiKey, model string, temperature float32) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if model == "" {
		model = "gemini-2.0-flash-001"
	}
	gm := client.GenerativeModel(model)
	gm.SetTemperature(temperature)

	return &GeminiGenerator{client: client, model: gm, name: model}, nil
}

// Generate sends the prompt as a single text part
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		// first candidate with content wins
		if sb.Len() > 0 {
			break
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("no text from %s: %w", g.name, ErrEmptyResponse)
	}
	return text, nil
}

// Close releases the Gemini client
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

// NewGenerator builds the provider generator named in cfg. The returned
// closer is never nil.
func NewGenerator(ctx context.Context, cfg LLMConfig) (Generator, io.Closer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		if cfg.APIKey == "" {
			return nil, nil, errors.New("llm api key is required for provider openai (set OPENAI_API_KEY)")
		}
		return NewOpenAIGenerator(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Temperature), nopCloser{}, nil
	case "gemini", "":
		if cfg.APIKey == "" {
			return nil, nil, errors.New("llm api key is required for provider gemini (set GEMINI_API_KEY)")
		}
		g, err := NewGeminiGenerator(ctx, cfg.APIKey, cfg.Model, cfg.Temperature)
		if err != nil {
			return nil, nil, err
		}
		return g, g, nil
	default:
		return nil, nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// isRateLimited reports whether err is the provider telling us to slow down
func isRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429 {
		return true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == 429 {
		return true
	}
	if status.Code(err) == codes.ResourceExhausted {
		return true
	}
	return strings.Contains(err.Error(), "429")
}

// BuildGenerator assembles the generator a run uses: the provider client
// wrapped in retry and pacing, and in the Redis response cache when a
// Redis URL is configured.
func BuildGenerator(ctx context.Context, cfg *Config) (Generator, io.Closer, error) {
	provider, closer, err := NewGenerator(ctx, cfg.LLM)
	if err != nil {
		return nil, nil, err
	}
	closers := multiCloser{closer}

	policy := DefaultRetryPolicy()
	if cfg.LLM.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.LLM.MaxAttempts
	}
	var gen Generator = NewRetryingGenerator(provider, policy)
	gen = NewPacedGenerator(gen, cfg.LLM.MinInterval)

	if cfg.Redis.URL != "" {
		cache, err := NewRedisResponseCache(ctx, cfg.Redis.URL, cfg.LLM.CacheTTL)
		if err != nil {
			log.Printf("%s LLM cache disabled: %v", markWarn, err)
		} else {
			closers = append(closers, cache)
			gen = NewCachingGenerator(gen, cache, cfg.LLM.Provider+"/"+cfg.LLM.Model)
		}
	}
	return gen, closers, nil
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var errs []error
	for i := len(m) - 1; i >= 0; i-- {
		if err := m[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package interpretation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"AstroAI/internal/domain/models"
	xhttp "AstroAI/pkg/http"
)

const (
	systemPrompt  = "You are a professional astrology interpreter."
	contextPrefix = "Use the following reference passages as anchors.\n" +
		"Do NOT copy sentences verbatim; paraphrase and produce original text.\n\n"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("llm api key not configured")

type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	MaxPassages int
	Timeout     time.Duration
	Retries     int
}

// OpenAIClient calls an OpenAI compatible chat completions endpoint.
type OpenAIClient struct {
	cfg    OpenAIConfig
	client *xhttp.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func NewOpenAIClient(cfg OpenAIConfig, opts ...xhttp.ClientOption) *OpenAIClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.MaxPassages <= 0 {
		cfg.MaxPassages = 10
	}
	opts = append([]xhttp.ClientOption{xhttp.WithTimeout(cfg.Timeout)}, opts...)
	return &OpenAIClient{cfg: cfg, client: xhttp.NewClient(opts...)}
}

func (c *OpenAIClient) Name() string { return ModeLLM }

func (c *OpenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrNotConfigured
	}
	chartJSON, err := json.Marshal(req.Chart)
	if err != nil {
		return "", fmt.Errorf("marshal chart: %w", err)
	}

	messages := []chatMessage{{Role: "system", Content: systemPrompt}}
	if passages := ContextBlock(req.Passages, c.cfg.MaxPassages); passages != "" {
		messages = append(messages, chatMessage{Role: "system", Content: contextPrefix + passages})
	}
	messages = append(messages, chatMessage{Role: "user", Content: "Chart data:\n" + string(chartJSON)})

	body := chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}
	var resp chatResponse
	if err := c.postWithRetry(ctx, "/chat/completions", body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *OpenAIClient) post(ctx context.Context, path string, payload, dest interface{}) error {
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    strings.TrimRight(c.cfg.BaseURL, "/") + path,
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer " + c.cfg.APIKey,
		},
		Body: payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

// postWithRetry retries rate limited and 5xx responses with a linear backoff.
func (c *OpenAIClient) postWithRetry(ctx context.Context, path string, payload, dest interface{}) error {
	attempts := c.cfg.Retries + 1
	var err error
	for i := 1; i <= attempts; i++ {
		err = c.post(ctx, path, payload, dest)
		var status *xhttp.StatusError
		if err == nil || !errors.As(err, &status) || !status.Temporary() || i == attempts {
			return err
		}
		select {
		case <-time.After(time.Duration(i) * 200 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// ContextBlock renders the first max passages as "[source: src] text" paragraphs, skipping empty texts.
func ContextBlock(passages []models.Passage, max int) string {
	if len(passages) > max {
		passages = passages[:max]
	}
	parts := make([]string, 0, len(passages))
	for _, p := range passages {
		if p.Text == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("[source: %s] %s", p.Source, p.Text))
	}
	return strings.Join(parts, "\n\n")
}

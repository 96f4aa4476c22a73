package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/docindex/internal/llm"
)

const DefaultModel = "gemini-1.5-flash-latest"

var ErrEmptyResponse = errors.New("gemini returned no candidates")

type Config struct {
	APIKey      string // if empty, falls back to env GEMINI_API_KEY
	Model       string
	Temperature float32
}

// Client is a llm.Generator backed by the Gemini API.
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
	logger *slog.Logger
}

var _ llm.Generator = (*Client)(nil)

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not found")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(cfg.Temperature)

	return &Client{client: client, model: model, name: cfg.Model, logger: logger}, nil
}

func (c *Client) Model() string { return c.name }

// Generate sends prompt and concatenates the text parts of the first candidate.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	c.logger.Debug("llm.gemini.ok", "model", c.name, "chars", sb.Len(), "elapsed_ms", time.Since(start).Milliseconds())
	return sb.String(), nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

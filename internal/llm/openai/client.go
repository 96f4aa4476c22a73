package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/docindex/internal/llm"
)

var _ llm.Generator = (*Client)(nil)

func (c *Client) Model() string { return c.cfg.Model }

// Generate implements llm.Generator with a single-turn chat/completions call.
// JSON mode is requested, but the answer still goes through the tolerant parser.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": "You extract document metadata. Return ONLY a JSON object."},
			{"role": "user", "content": prompt},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, status, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		return "", fmt.Errorf("openai request (status %d): %w", status, err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response")
	}

	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	c.logger.Debug("llm.openai.ok", "model", c.cfg.Model, "chars", len(content), "elapsed_ms", time.Since(start).Milliseconds())
	return content, nil
}

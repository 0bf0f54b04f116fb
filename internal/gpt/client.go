// Package gpt wraps the external text-generation API. The Client interface
// is the seam for swapping the real call for a canned one at composition
// time.
package gpt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/promptforge/backend/internal/apperr"
	"github.com/promptforge/backend/internal/logging"
)

type Client interface {
	// Complete sends one user prompt and returns the model's text response.
	Complete(ctx context.Context, prompt string) (string, error)
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type OpenAI struct {
	log        *logging.Logger
	cfg        OpenAIConfig
	httpClient *http.Client
}

func NewOpenAI(cfg OpenAIConfig, log *logging.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	return &OpenAI{
		log:        log.With("service", "gpt"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    c.cfg.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("generation request failed", "err", err)
		return "", apperr.Wrap(apperr.GatewayUnavailable, "generation service is unavailable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Error("generation request rejected", "status", resp.StatusCode)
		return "", apperr.New(apperr.GatewayUnavailable, "generation service is unavailable")
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apperr.Wrap(apperr.GatewayUnavailable, "generation service is unavailable", err)
	}
	if len(out.Choices) == 0 {
		return "", apperr.New(apperr.GatewayUnavailable, "generation service is unavailable")
	}
	return out.Choices[0].Message.Content, nil
}

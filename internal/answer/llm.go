package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultLLMModel = "gpt-4o-mini"

// LLMConfig configures the chat-completion answerer.
type LLMConfig struct {
	APIBase string // OpenAI-compatible base, e.g. "https://api.openai.com/v1"
	APIKey  string
	Model   string
	Client  *http.Client
	Logger  *slog.Logger
}

// LLM answers text messages through an OpenAI-compatible chat endpoint.
// One-shot: the ingestion pipeline keeps no conversation state.
type LLM struct {
	apiBase string
	apiKey  string
	model   string
	client  *http.Client
	logger  *slog.Logger
}

func NewLLM(cfg LLMConfig) *LLM {
	if cfg.Model == "" {
		cfg.Model = defaultLLMModel
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 60 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &LLM{
		apiBase: cfg.APIBase,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  cfg.Client,
		logger:  cfg.Logger,
	}
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []chatMsg `json:"messages"`
}

type chatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMsg `json:"message"`
	} `json:"choices"`
}

func (l *LLM) Answer(ctx context.Context, text string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:    l.model,
		Messages: []chatMsg{{Role: "user", Content: text}},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.apiBase+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if l.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+l.apiKey)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("chat API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("chat API returned no choices")
	}

	l.logger.Info("answer generated", "response_len", len(result.Choices[0].Message.Content))
	return result.Choices[0].Message.Content, nil
}

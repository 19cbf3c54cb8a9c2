package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// WhisperConfig configures the Whisper speech-to-text processor.
type WhisperConfig struct {
	APIBase  string // e.g. "https://api.openai.com/v1"
	APIKey   string
	Model    string // e.g. "whisper-1"
	Language string // optional ISO-639-1 code
	Client   *http.Client
	Logger   *slog.Logger
}

// Whisper transcribes stored audio files through an OpenAI-compatible
// transcription endpoint.
type Whisper struct {
	apiBase  string
	apiKey   string
	model    string
	language string
	client   *http.Client
	logger   *slog.Logger
}

func NewWhisper(cfg WhisperConfig) *Whisper {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 120 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Whisper{
		apiBase:  cfg.APIBase,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		language: cfg.Language,
		client:   cfg.Client,
		logger:   cfg.Logger,
	}
}

type transcription struct {
	Text     string  `json:"text"`
	Language string  `json:"language,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// Process uploads the stored file and returns its transcription text.
func (w *Whisper) Process(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open stored file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("copy audio data: %w", err)
	}
	writer.WriteField("model", w.model)
	writer.WriteField("response_format", "json")
	if w.language != "" {
		writer.WriteField("language", w.language)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.apiBase+"/audio/transcriptions", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if w.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+w.apiKey)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("transcription API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result transcription
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}

	w.logger.Info("transcription complete",
		"text_len", len(result.Text),
		"language", result.Language,
		"duration", result.Duration,
	)
	return result.Text, nil
}

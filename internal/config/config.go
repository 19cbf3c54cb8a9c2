package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Config is the root configuration for mediagate. All values are static
// for the process lifetime; nothing here is mutated after Load.
type Config struct {
	General   GeneralConfig   `json:"general"`
	Telegram  TelegramConfig  `json:"telegram"`
	Ingest    IngestConfig    `json:"ingest"`
	Processor ProcessorConfig `json:"processor"`
	Answerer  AnswererConfig  `json:"answerer"`
	Audit     AuditConfig     `json:"audit"`
	Metrics   MetricsConfig   `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel"`
}

type TelegramConfig struct {
	Token              string         `json:"token"`
	AllowFrom          FlexStringList `json:"allowFrom"` // sender IDs; empty = allow all
	PollTimeoutSeconds int            `json:"pollTimeoutSeconds"`
}

// IngestConfig is the security surface of the pipeline: whitelists, the
// size ceiling, the upload root, and the worker pool bound.
type IngestConfig struct {
	UploadDir           string   `json:"uploadDir"`
	MaxFileSizeBytes    int64    `json:"maxFileSizeBytes"`
	Workers             int      `json:"workers"`
	AllowedAudioMIME    []string `json:"allowedAudioMime"`
	AllowedDocumentMIME []string `json:"allowedDocumentMime"`
	PolicyFile          string   `json:"policyFile,omitempty"` // optional YAML override
}

type ProcessorConfig struct {
	Enabled bool          `json:"enabled"`
	Mode    string        `json:"mode"` // "sizeack" | "whisper"
	Whisper WhisperConfig `json:"whisper,omitempty"`
}

type WhisperConfig struct {
	APIBase  string `json:"apiBase,omitempty"`
	APIKey   string `json:"apiKey,omitempty"`
	Model    string `json:"model,omitempty"`
	Language string `json:"language,omitempty"`
}

type AnswererConfig struct {
	Mode    string `json:"mode"` // "echo" | "llm"
	APIBase string `json:"apiBase,omitempty"`
	APIKey  string `json:"apiKey,omitempty"`
	Model   string `json:"model,omitempty"`
}

type AuditConfig struct {
	Enabled bool   `json:"enabled"`
	DBPath  string `json:"dbPath"`
}

type MetricsConfig struct {
	Enabled  bool   `json:"enabled"`
	Addr     string `json:"addr"`
	Endpoint string `json:"endpoint"`
}

// AudioMIMESet returns the audio/voice whitelist as a membership set.
func (c IngestConfig) AudioMIMESet() map[string]struct{} {
	return toSet(c.AllowedAudioMIME)
}

// DocumentMIMESet returns the document whitelist as a membership set.
func (c IngestConfig) DocumentMIMESet() map[string]struct{} {
	return toSet(c.AllowedDocumentMIME)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// FlexStringList is a []string that can unmarshal from JSON arrays
// containing both strings and numbers (e.g. ["123", 456]).
type FlexStringList []string

func (f *FlexStringList) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			result = append(result, s)
			continue
		}
		var n float64
		if err := json.Unmarshal(item, &n); err == nil {
			result = append(result, strconv.FormatInt(int64(n), 10))
			continue
		}
		result = append(result, string(item))
	}
	*f = result
	return nil
}

// DefaultConfigDir returns the default config directory (~/.mediagate).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mediagate"
	}
	return filepath.Join(home, ".mediagate")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Ingest.UploadDir = ExpandPath(cfg.Ingest.UploadDir)
	cfg.Ingest.PolicyFile = ExpandPath(cfg.Ingest.PolicyFile)
	cfg.Audit.DBPath = ExpandPath(cfg.Audit.DBPath)

	if cfg.Ingest.PolicyFile != "" {
		if err := ApplyPolicyFile(cfg, cfg.Ingest.PolicyFile); err != nil {
			return nil, fmt.Errorf("policy file: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is
// unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Ingest.UploadDir == "" {
		errs = append(errs, "ingest.uploadDir must be set")
	}
	if cfg.Ingest.MaxFileSizeBytes < 1 {
		errs = append(errs, "ingest.maxFileSizeBytes must be >= 1")
	}
	if cfg.Ingest.Workers < 1 || cfg.Ingest.Workers > 100 {
		errs = append(errs, "ingest.workers must be between 1 and 100")
	}
	if len(cfg.Ingest.AllowedAudioMIME) == 0 {
		errs = append(errs, "ingest.allowedAudioMime must not be empty")
	}
	if len(cfg.Ingest.AllowedDocumentMIME) == 0 {
		errs = append(errs, "ingest.allowedDocumentMime must not be empty")
	}
	if cfg.Telegram.PollTimeoutSeconds < 1 || cfg.Telegram.PollTimeoutSeconds > 300 {
		errs = append(errs, "telegram.pollTimeoutSeconds must be between 1 and 300")
	}
	switch cfg.Processor.Mode {
	case "sizeack", "whisper":
	default:
		errs = append(errs, "processor.mode must be one of: sizeack, whisper")
	}
	if cfg.Processor.Mode == "whisper" && cfg.Processor.Whisper.APIKey == "" {
		errs = append(errs, "processor.whisper.apiKey is required for whisper mode")
	}
	switch cfg.Answerer.Mode {
	case "echo", "llm":
	default:
		errs = append(errs, "answerer.mode must be one of: echo, llm")
	}
	if cfg.Answerer.Mode == "llm" && cfg.Answerer.APIBase == "" {
		errs = append(errs, "answerer.apiBase is required for llm mode")
	}
	if cfg.Audit.Enabled && cfg.Audit.DBPath == "" {
		errs = append(errs, "audit.dbPath must be set when audit is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

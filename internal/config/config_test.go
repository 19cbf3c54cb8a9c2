package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults_Valid(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Ingest.MaxFileSizeBytes != 10*1024*1024 {
		t.Errorf("default ceiling = %d", cfg.Ingest.MaxFileSizeBytes)
	}
	if cfg.Ingest.Workers != 10 {
		t.Errorf("default workers = %d", cfg.Ingest.Workers)
	}
}

func TestMIMESets(t *testing.T) {
	cfg := Defaults()
	audio := cfg.Ingest.AudioMIMESet()
	if _, ok := audio["audio/mpeg"]; !ok {
		t.Error("audio/mpeg missing from default audio set")
	}
	if _, ok := audio["application/pdf"]; ok {
		t.Error("document type leaked into audio set")
	}
	docs := cfg.Ingest.DocumentMIMESet()
	if _, ok := docs["application/pdf"]; !ok {
		t.Error("application/pdf missing from default document set")
	}
	if _, ok := docs["application/zip"]; ok {
		t.Error("application/zip should not be whitelisted")
	}
}

func TestLoad_FileAndEnvExpansion(t *testing.T) {
	t.Setenv("MG_TEST_TOKEN", "tok-123")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	raw := `{
		"telegram": {"token": "${MG_TEST_TOKEN}", "allowFrom": ["42", 77]},
		"ingest": {"uploadDir": "` + dir + `", "maxFileSizeBytes": 2048}
	}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "tok-123" {
		t.Errorf("env not expanded: %q", cfg.Telegram.Token)
	}
	if cfg.Ingest.MaxFileSizeBytes != 2048 {
		t.Errorf("override ignored: %d", cfg.Ingest.MaxFileSizeBytes)
	}
	// Defaults survive for fields the file does not set.
	if len(cfg.Ingest.AllowedAudioMIME) == 0 {
		t.Error("default audio whitelist lost")
	}
	if len(cfg.Telegram.AllowFrom) != 2 || cfg.Telegram.AllowFrom[1] != "77" {
		t.Errorf("mixed allowFrom list: %v", cfg.Telegram.AllowFrom)
	}
}

func TestExpandEnvVars_Default(t *testing.T) {
	os.Unsetenv("MG_UNSET_VAR")
	got := ExpandEnvVars("${MG_UNSET_VAR:-fallback}")
	if got != "fallback" {
		t.Errorf("got %q", got)
	}
	got = ExpandEnvVars("${MG_UNSET_VAR}")
	if got != "${MG_UNSET_VAR}" {
		t.Errorf("unset var without default should stay verbatim, got %q", got)
	}
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max size", func(c *Config) { c.Ingest.MaxFileSizeBytes = 0 }},
		{"no upload dir", func(c *Config) { c.Ingest.UploadDir = "" }},
		{"zero workers", func(c *Config) { c.Ingest.Workers = 0 }},
		{"too many workers", func(c *Config) { c.Ingest.Workers = 1000 }},
		{"empty audio whitelist", func(c *Config) { c.Ingest.AllowedAudioMIME = nil }},
		{"empty document whitelist", func(c *Config) { c.Ingest.AllowedDocumentMIME = nil }},
		{"bad processor mode", func(c *Config) { c.Processor.Mode = "ocr" }},
		{"whisper without key", func(c *Config) { c.Processor.Mode = "whisper" }},
		{"bad answerer mode", func(c *Config) { c.Answerer.Mode = "gpt" }},
		{"llm without base", func(c *Config) { c.Answerer.Mode = "llm" }},
		{"audit without path", func(c *Config) { c.Audit.DBPath = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestApplyPolicyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	raw := `
allowedAudioMime:
  - audio/flac
maxFileSizeBytes: 4096
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := ApplyPolicyFile(cfg, path); err != nil {
		t.Fatalf("ApplyPolicyFile: %v", err)
	}
	if len(cfg.Ingest.AllowedAudioMIME) != 1 || cfg.Ingest.AllowedAudioMIME[0] != "audio/flac" {
		t.Errorf("audio whitelist not overridden: %v", cfg.Ingest.AllowedAudioMIME)
	}
	if cfg.Ingest.MaxFileSizeBytes != 4096 {
		t.Errorf("ceiling not overridden: %d", cfg.Ingest.MaxFileSizeBytes)
	}
	// Fields absent in the policy file keep their config values.
	if len(cfg.Ingest.AllowedDocumentMIME) == 0 {
		t.Error("document whitelist should be untouched")
	}
}

func TestApplyPolicyFile_BadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	if err := os.WriteFile(path, []byte("allowedAudioMime: {not a list"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ApplyPolicyFile(Defaults(), path); err == nil {
		t.Error("expected parse error")
	}
}

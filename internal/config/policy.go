package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PolicyFile is an optional YAML override for the ingestion security
// policy. Operators can rotate whitelists or tighten the size ceiling
// without touching the main config file.
type PolicyFile struct {
	AllowedAudioMIME    []string `yaml:"allowedAudioMime"`
	AllowedDocumentMIME []string `yaml:"allowedDocumentMime"`
	MaxFileSizeBytes    int64    `yaml:"maxFileSizeBytes"`
}

// ApplyPolicyFile overlays the policy file onto cfg. Absent fields keep
// the config's values.
func ApplyPolicyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read policy file %s: %w", path, err)
	}

	var pf PolicyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("parse policy file %s: %w", path, err)
	}

	if len(pf.AllowedAudioMIME) > 0 {
		cfg.Ingest.AllowedAudioMIME = pf.AllowedAudioMIME
	}
	if len(pf.AllowedDocumentMIME) > 0 {
		cfg.Ingest.AllowedDocumentMIME = pf.AllowedDocumentMIME
	}
	if pf.MaxFileSizeBytes > 0 {
		cfg.Ingest.MaxFileSizeBytes = pf.MaxFileSizeBytes
	}
	return nil
}

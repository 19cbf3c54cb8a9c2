package config

// DefaultMaxFileSizeBytes is the default download ceiling (10 MiB).
const DefaultMaxFileSizeBytes = 10 * 1024 * 1024

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Telegram: TelegramConfig{
			PollTimeoutSeconds: 30,
		},
		Ingest: IngestConfig{
			UploadDir:        "~/.mediagate/uploads",
			MaxFileSizeBytes: DefaultMaxFileSizeBytes,
			Workers:          10,
			AllowedAudioMIME: []string{
				"audio/mpeg",
				"audio/mp4",
				"audio/ogg",
				"audio/wav",
				"audio/x-wav",
			},
			AllowedDocumentMIME: []string{
				"application/pdf",
				"text/plain",
				"application/msword",
				"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			},
		},
		Processor: ProcessorConfig{
			Enabled: true,
			Mode:    "sizeack",
		},
		Answerer: AnswererConfig{
			Mode: "echo",
		},
		Audit: AuditConfig{
			Enabled: true,
			DBPath:  "~/.mediagate/audit.db",
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Addr:     "127.0.0.1:9090",
			Endpoint: "/metrics",
		},
	}
}

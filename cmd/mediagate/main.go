package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"mediagate/internal/answer"
	"mediagate/internal/audit"
	"mediagate/internal/bot"
	"mediagate/internal/config"
	"mediagate/internal/dispatch"
	"mediagate/internal/domain"
	"mediagate/internal/metrics"
	"mediagate/internal/processor"
	"mediagate/internal/storage"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "mediagate",
		Short: "mediagate: secure inbound media gateway for Telegram",
		Long:  "mediagate receives untrusted file-bearing Telegram messages, validates them against a whitelist policy, and stores accepted files under collision-resistant names.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.mediagate/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(runCmd())
	root.AddCommand(doctorCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config and provision the upload root",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := resolveConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}

			// The upload root is provisioned here, at startup time;
			// the storage layer itself never creates it.
			uploadDir := config.ExpandPath(cfg.Ingest.UploadDir)
			if err := os.MkdirAll(uploadDir, 0o700); err != nil {
				return err
			}

			logger.Info("initialized", "config", cfgPath, "uploads", uploadDir)
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot gateway",
		RunE:  runGateway,
	}
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w (run 'mediagate init' first)", err)
	}

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.General.LogLevel),
	}))

	// The upload root must exist and be writable before any download.
	if err := ensureUploadRoot(cfg.Ingest.UploadDir); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := bot.New(bot.Config{
		Token:              cfg.Telegram.Token,
		AllowFrom:          cfg.Telegram.AllowFrom,
		PollTimeoutSeconds: cfg.Telegram.PollTimeoutSeconds,
		Workers:            cfg.Ingest.Workers,
		Logger:             logger,
	})
	if err != nil {
		return err
	}

	store := storage.New(storage.Config{
		Root:     cfg.Ingest.UploadDir,
		MaxBytes: cfg.Ingest.MaxFileSizeBytes,
		Token:    session.Token(),
		Logger:   logger,
	})

	var recorder dispatch.Recorder
	if cfg.Audit.Enabled {
		auditStore, err := audit.NewStore(cfg.Audit.DBPath, logger)
		if err != nil {
			return err
		}
		defer auditStore.Close()
		recorder = auditStore
	}

	dispatcher := dispatch.New(dispatch.Config{
		Session:   session,
		Store:     store,
		Processor: buildProcessor(cfg),
		Answerer:  buildAnswerer(cfg),
		Audit:     recorder,
		AudioMIME: cfg.Ingest.AudioMIMESet(),
		DocMIME:   cfg.Ingest.DocumentMIMESet(),
		MaxBytes:  cfg.Ingest.MaxFileSizeBytes,
		Logger:    logger,
	})

	if cfg.Metrics.Enabled {
		go serveMetrics(ctx, cfg.Metrics)
	}

	logger.Info("gateway starting",
		"bot", session.Username(),
		"upload_dir", cfg.Ingest.UploadDir,
		"max_file_bytes", cfg.Ingest.MaxFileSizeBytes,
		"workers", cfg.Ingest.Workers,
	)

	return session.Run(ctx, func(ctx context.Context, msg *domain.Message) {
		dispatcher.Handle(ctx, msg)
	})
}

func buildProcessor(cfg *config.Config) domain.Processor {
	if cfg.Processor.Mode == "whisper" {
		return processor.NewWhisper(processor.WhisperConfig{
			APIBase:  cfg.Processor.Whisper.APIBase,
			APIKey:   cfg.Processor.Whisper.APIKey,
			Model:    cfg.Processor.Whisper.Model,
			Language: cfg.Processor.Whisper.Language,
			Logger:   logger,
		})
	}
	return processor.NewSizeAck(cfg.Processor.Enabled, logger)
}

func buildAnswerer(cfg *config.Config) domain.Answerer {
	if cfg.Answerer.Mode == "llm" {
		return answer.NewLLM(answer.LLMConfig{
			APIBase: cfg.Answerer.APIBase,
			APIKey:  cfg.Answerer.APIKey,
			Model:   cfg.Answerer.Model,
			Logger:  logger,
		})
	}
	return answer.NewEcho()
}

func ensureUploadRoot(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("upload root %s: %w (run 'mediagate init' first)", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("upload root %s is not a directory", dir)
	}
	return nil
}

func serveMetrics(ctx context.Context, cfg config.MetricsConfig) {
	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Endpoint, metrics.Collector.Handler())
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	logger.Info("metrics endpoint listening", "addr", cfg.Addr, "endpoint", cfg.Endpoint)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server failed", "err", err)
	}
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"mediagate/internal/config"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your mediagate installation",
		Long: `Verifies that mediagate's configuration, upload root, audit database,
and Telegram credentials are correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("mediagate Doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0
			warned := 0

			// 1. Config file exists
			if _, err := os.Stat(cfgPath); err != nil {
				printFail("Config file", fmt.Sprintf("not found at %s", cfgPath))
				failed++
				fmt.Printf("\nRun 'mediagate init' to create a default configuration.\n")
				return nil
			}
			printPass("Config file", cfgPath)
			passed++

			// 2. Config loads and validates
			cfg, err := config.Load(cfgPath)
			if err != nil {
				printFail("Config validation", err.Error())
				failed++
			} else {
				printPass("Config validation", "valid")
				passed++
			}

			if cfg == nil {
				fmt.Printf("\n%d passed, %d failed\n", passed, failed)
				return nil
			}

			// 3. Telegram token present
			if cfg.Telegram.Token == "" {
				printFail("Telegram token", "not configured (set telegram.token or TELEGRAM_BOT_TOKEN)")
				failed++
			} else {
				printPass("Telegram token", "configured")
				passed++
			}

			// 4. Upload root exists and is writable
			if err := checkUploadRoot(cfg.Ingest.UploadDir); err != nil {
				printFail("Upload root", err.Error())
				failed++
			} else {
				printPass("Upload root", cfg.Ingest.UploadDir)
				passed++
			}

			// 5. Policy file parses, when configured
			if cfg.Ingest.PolicyFile != "" {
				if _, err := os.Stat(cfg.Ingest.PolicyFile); err != nil {
					printFail("Policy file", fmt.Sprintf("not found: %s", cfg.Ingest.PolicyFile))
					failed++
				} else {
					printPass("Policy file", cfg.Ingest.PolicyFile)
					passed++
				}
			}

			// 6. Audit database writable
			if cfg.Audit.Enabled {
				if err := checkDatabase(cfg.Audit.DBPath); err != nil {
					printFail("Audit database", err.Error())
					failed++
				} else {
					printPass("Audit database", cfg.Audit.DBPath)
					passed++
				}
			} else {
				printWarn("Audit database", "disabled (no ingest trail will be kept)")
				warned++
			}

			// 7. Processor / answerer credentials
			if cfg.Processor.Mode == "whisper" && cfg.Processor.Whisper.APIBase == "" {
				printWarn("Processor", "whisper mode without apiBase (will use api.openai.com)")
				warned++
			} else {
				printPass("Processor", cfg.Processor.Mode)
				passed++
			}
			if cfg.Answerer.Mode == "llm" && cfg.Answerer.APIKey == "" {
				printWarn("Answerer", "llm mode without an API key")
				warned++
			} else {
				printPass("Answerer", cfg.Answerer.Mode)
				passed++
			}

			// 8. Metrics port
			if cfg.Metrics.Enabled {
				if err := checkAddr(cfg.Metrics.Addr); err != nil {
					printWarn("Metrics addr", fmt.Sprintf("%s may be in use: %v", cfg.Metrics.Addr, err))
					warned++
				} else {
					printPass("Metrics addr", cfg.Metrics.Addr)
					passed++
				}
			}

			// Summary
			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running mediagate.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nmediagate should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! mediagate is ready to run.\n")
			}
			return nil
		},
	}
}

func checkUploadRoot(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("not found: %s (run 'mediagate init')", dir)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}

	// Try a write.
	probe := filepath.Join(dir, ".doctor_probe")
	if err := os.WriteFile(probe, nil, 0o600); err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	os.Remove(probe)
	return nil
}

func checkDatabase(dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("cannot create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("cannot open: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("cannot ping: %w", err)
	}

	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS _doctor_test (id INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	db.ExecContext(ctx, "DROP TABLE IF EXISTS _doctor_test")

	return nil
}

func checkAddr(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}

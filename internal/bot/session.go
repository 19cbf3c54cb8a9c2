// Package bot owns the long-lived Telegram connection: the polling loop,
// the bounded worker pool that dispatches updates, and reply delivery.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"mediagate/internal/domain"
	"mediagate/internal/metrics"
	"mediagate/internal/policy"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	defaultPollTimeout = 30
	defaultWorkers     = 10
	maxSendRetries     = 3
)

// Config configures the Telegram session.
type Config struct {
	Token              string
	AllowFrom          []string // sender IDs as strings; empty = allow all
	PollTimeoutSeconds int
	Workers            int
	Logger             *slog.Logger
}

// Handler processes one classified update. It must contain its own
// failures; the session does not guard it beyond the worker boundary.
type Handler func(ctx context.Context, msg *domain.Message)

// Session is the long-lived bot connection. It implements the
// dispatcher's Session port (ResolveFile, SendReply).
type Session struct {
	bot         *tgbotapi.BotAPI
	allowFrom   []int64
	pollTimeout int
	workers     int
	logger      *slog.Logger
}

func New(cfg Config) (*Session, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}

	var allowed []int64
	for _, s := range cfg.AllowFrom {
		if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			allowed = append(allowed, id)
		}
	}
	if cfg.PollTimeoutSeconds <= 0 {
		cfg.PollTimeoutSeconds = defaultPollTimeout
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	cfg.Logger.Info("telegram bot connected",
		"username", api.Self.UserName,
		"id", api.Self.ID,
	)

	return &Session{
		bot:         api,
		allowFrom:   allowed,
		pollTimeout: cfg.PollTimeoutSeconds,
		workers:     cfg.Workers,
		logger:      cfg.Logger,
	}, nil
}

// Username returns the bot's own username.
func (s *Session) Username() string {
	return s.bot.Self.UserName
}

// Token returns the bot token for the authenticated file endpoint.
func (s *Session) Token() string {
	return s.bot.Token
}

// Run polls for updates and dispatches each through the handler on a
// worker drawn from a bounded pool. Updates from different chats may be
// handled concurrently; ordering across chats is not guaranteed.
func (s *Session) Run(ctx context.Context, handler Handler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = s.pollTimeout
	updates := s.bot.GetUpdatesChan(u)

	s.logger.Info("telegram polling started", "workers", s.workers)

	sem := make(chan struct{}, s.workers)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("telegram session stopping")
			s.bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}

			msg := Classify(update)
			if msg == nil {
				s.logger.Debug("update carries no message")
				continue
			}
			if !s.isAllowed(msg.SenderID) {
				s.logger.Warn("unauthorized sender",
					"user", policy.UserIdentifier(msg.SenderID),
				)
				continue
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				s.bot.StopReceivingUpdates()
				return nil
			}
			metrics.InflightWorkers.Inc()
			go func(m *domain.Message) {
				defer func() {
					metrics.InflightWorkers.Dec()
					<-sem
				}()
				handler(ctx, m)
			}(msg)
		}
	}
}

// ResolveFile exchanges a file ID for the remote path on the file
// endpoint.
func (s *Session) ResolveFile(ctx context.Context, fileID string) (string, error) {
	file, err := s.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("get file: %w", err)
	}
	return file.FilePath, nil
}

// SendReply sends text as a threaded reply. HTML parse mode is tried
// first; on a parse error the message is resent as plain text. Rate
// limiting backs off and retries.
func (s *Session) SendReply(chatID int64, replyTo int, text string) error {
	var lastErr error
	for attempt := 0; attempt <= maxSendRetries; attempt++ {
		msg := tgbotapi.NewMessage(chatID, text)
		if replyTo != 0 {
			msg.ReplyToMessageID = replyTo
		}
		if attempt == 0 {
			msg.ParseMode = tgbotapi.ModeHTML
		}

		_, err := s.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		errStr := err.Error()

		if strings.Contains(errStr, "Too Many Requests") || strings.Contains(errStr, "429") {
			backoff := time.Duration(attempt+1) * 3 * time.Second
			s.logger.Warn("telegram rate limited, backing off",
				"retry_after", backoff, "attempt", attempt+1,
			)
			time.Sleep(backoff)
			continue
		}
		if attempt == 0 && strings.Contains(errStr, "can't parse entities") {
			// Retry as plain text on the next iteration.
			continue
		}
		if attempt < maxSendRetries {
			backoff := time.Duration(attempt+1) * time.Second
			s.logger.Warn("telegram send error, retrying", "err", err, "backoff", backoff)
			time.Sleep(backoff)
			continue
		}
	}
	return fmt.Errorf("send reply after %d attempts: %w", maxSendRetries+1, lastErr)
}

func (s *Session) isAllowed(senderID int64) bool {
	if len(s.allowFrom) == 0 {
		return true
	}
	for _, id := range s.allowFrom {
		if id == senderID {
			return true
		}
	}
	return false
}

// Package dispatch routes each classified inbound message to exactly one
// handler branch and owns all reply construction. Every branch runs under
// a single outer guard: no failure, panic included, ever propagates back
// to the protocol session.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"mediagate/internal/audit"
	"mediagate/internal/domain"
	"mediagate/internal/metrics"
	"mediagate/internal/policy"
	"mediagate/internal/storage"
)

// Recorder appends ingestion decisions to the audit trail.
type Recorder interface {
	Record(ctx context.Context, e audit.Entry) error
}

// Config holds the dispatcher's collaborators and policy surface. All
// fields are immutable after New.
type Config struct {
	Session   domain.Session
	Store     domain.FileStore
	Processor domain.Processor
	Answerer  domain.Answerer
	Audit     Recorder // optional

	AudioMIME map[string]struct{} // shared by audio and voice branches
	DocMIME   map[string]struct{}
	MaxBytes  int64

	Logger *slog.Logger
}

// Dispatcher is a terminal state machine per update; it keeps no state
// across updates.
type Dispatcher struct {
	session   domain.Session
	store     domain.FileStore
	processor domain.Processor
	answerer  domain.Answerer
	audit     Recorder

	audioMIME map[string]struct{}
	docMIME   map[string]struct{}
	maxBytes  int64

	logger *slog.Logger
}

func New(cfg Config) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Dispatcher{
		session:   cfg.Session,
		store:     cfg.Store,
		processor: cfg.Processor,
		answerer:  cfg.Answerer,
		audit:     cfg.Audit,
		audioMIME: cfg.AudioMIME,
		docMIME:   cfg.DocMIME,
		maxBytes:  cfg.MaxBytes,
		logger:    cfg.Logger,
	}
}

// Handle processes one classified update. An update with no message is a
// no-op. All failures terminate here: logged with PII masked, answered
// with at most one best-effort reply, and swallowed.
func (d *Dispatcher) Handle(ctx context.Context, msg *domain.Message) {
	if msg == nil {
		d.logger.Debug("update carries no message")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			metrics.DispatchPanics.Inc()
			d.logger.Error("panic while processing update",
				"user", policy.UserIdentifier(msg.SenderID),
				"panic", r,
			)
			d.reply(msg, replyUnexpected)
		}
	}()

	user := policy.UserIdentifier(msg.SenderID)
	metrics.UpdateCounter(msg.Kind.String()).Inc()
	d.logger.Info("received message",
		"user", user,
		"chat_id", msg.ChatID,
		"kind", msg.Kind.String(),
	)

	var err error
	switch msg.Kind {
	case domain.KindText:
		err = d.handleText(ctx, msg, user)
	case domain.KindAudio:
		err = d.handleFile(ctx, msg, user, d.audioMIME)
	case domain.KindVoice:
		err = d.handleFile(ctx, msg, user, d.audioMIME)
	case domain.KindDocument:
		err = d.handleFile(ctx, msg, user, d.docMIME)
	default:
		d.logger.Info("unsupported message type", "user", user)
		d.reply(msg, replyUnsupported)
	}

	if err != nil {
		d.logger.Error("error processing update",
			"user", user,
			"kind", msg.Kind.String(),
			"err", err,
		)
		d.reply(msg, replyUnexpected)
	}
}

// handleText recognizes the two built-in commands by exact prefix and
// forwards everything else to the answerer. Message content is never
// logged, only its length.
func (d *Dispatcher) handleText(ctx context.Context, msg *domain.Message, user string) error {
	d.logger.Info("text message",
		"user", user,
		"length", len(msg.Text),
	)

	text := msg.Text
	switch {
	case text == "":
		d.reply(msg, replyEmptyText)
	case strings.HasPrefix(text, "/start"):
		d.reply(msg, replyGreeting)
	case strings.HasPrefix(text, "/help"):
		d.reply(msg, replyHelp)
	default:
		answerText, err := d.answerer.Answer(ctx, text)
		if err != nil {
			return err
		}
		d.reply(msg, answerText)
	}
	return nil
}

// handleFile is the shared audio/voice/document pipeline: validate
// against the whitelist and ceiling, download, store, then hand the
// stored path to the processor (documents stop at a receipt).
//
// Validation rejections are terminal: no download is attempted.
func (d *Dispatcher) handleFile(ctx context.Context, msg *domain.Message, user string, allowed map[string]struct{}) error {
	fileName := policy.SanitizeFileName(msg.FileName)
	if msg.Kind == domain.KindVoice {
		// Voice messages carry no filename; synthesize one.
		fileName = "voice_" + policy.NewUniqueID() + ".ogg"
	}

	d.logger.Info("processing file",
		"kind", msg.Kind.String(),
		"id", policy.MaskPII(msg.FileID),
		"name", policy.MaskPII(fileName),
		"type", msg.MimeType,
		"size", msg.FileSize,
	)

	if v := policy.ValidateMIME(msg.MimeType, allowed); !v.OK() {
		d.logger.Warn("disallowed MIME type",
			"user", user,
			"kind", msg.Kind.String(),
			"type", msg.MimeType,
		)
		metrics.RejectedType.Inc()
		d.record(ctx, msg, fileName, "rejected_type", nil)
		d.reply(msg, rejectTypeReply(msg.Kind))
		return nil
	}

	if v := policy.ValidateSize(msg.FileSize, d.maxBytes); !v.OK() {
		d.logger.Warn("oversized upload attempt",
			"user", user,
			"kind", msg.Kind.String(),
			"declared_size", msg.FileSize,
		)
		metrics.RejectedSize.Inc()
		d.record(ctx, msg, fileName, "rejected_size", nil)
		d.reply(msg, rejectSizeReply(msg.Kind, d.maxBytes))
		return nil
	}

	remotePath, err := d.session.ResolveFile(ctx, msg.FileID)
	if err != nil {
		d.logger.Error("cannot resolve remote file",
			"user", user,
			"id", policy.MaskPII(msg.FileID),
			"err", err,
		)
		metrics.DownloadFailures.Inc()
		d.record(ctx, msg, fileName, "failed", nil)
		d.reply(msg, downloadFailedReply(msg.Kind))
		return nil
	}

	stored, err := d.store.Save(ctx, remotePath, fileName)
	if err != nil {
		metrics.DownloadFailures.Inc()
		d.record(ctx, msg, fileName, "failed", nil)
		switch {
		case errors.Is(err, storage.ErrFileTooLarge):
			// Declared size passed but the stream overran the ceiling.
			d.logger.Warn("transferred size exceeded ceiling", "user", user)
			d.reply(msg, rejectSizeReply(msg.Kind, d.maxBytes))
		case errors.Is(err, storage.ErrFileNotFound), errors.Is(err, storage.ErrTransport):
			d.logger.Error("download failed", "user", user, "err", err)
			d.reply(msg, downloadFailedReply(msg.Kind))
		default:
			d.logger.Error("storage failed", "user", user, "err", err)
			d.reply(msg, processingFailedReply(msg.Kind))
		}
		return nil
	}

	metrics.FilesStored.Inc()
	d.record(ctx, msg, fileName, "accepted", stored)

	if msg.Kind == domain.KindDocument {
		// Documents are stored and acknowledged; no content processing.
		d.reply(msg, replyDocReceived)
		return nil
	}

	result, err := d.processor.Process(ctx, stored.Path)
	if err != nil {
		d.logger.Error("content processing failed", "user", user, "err", err)
		metrics.ProcessingFailures.Inc()
		d.reply(msg, processingFailedReply(msg.Kind))
		return nil
	}
	d.reply(msg, result)
	return nil
}

// reply sends at most one best-effort reply; send failures are logged
// and swallowed so they can never crash the session.
func (d *Dispatcher) reply(msg *domain.Message, text string) {
	if err := d.session.SendReply(msg.ChatID, msg.MessageID, text); err != nil {
		d.logger.Error("failed to send reply",
			"chat_id", msg.ChatID,
			"message_id", msg.MessageID,
			"err", err,
		)
	}
}

// record appends to the audit trail; failures are logged only.
func (d *Dispatcher) record(ctx context.Context, msg *domain.Message, fileName, verdict string, stored *domain.StoredFile) {
	if d.audit == nil {
		return
	}
	e := audit.Entry{
		ChatID:       msg.ChatID,
		Kind:         msg.Kind.String(),
		Verdict:      verdict,
		FileName:     fileName,
		MimeType:     msg.MimeType,
		DeclaredSize: msg.FileSize,
	}
	if stored != nil {
		e.StoredPath = stored.Path
		e.StoredSize = stored.Size
		e.Digest = stored.Digest
	}
	if err := d.audit.Record(ctx, e); err != nil {
		d.logger.Warn("failed to record audit entry", "err", err)
	}
}

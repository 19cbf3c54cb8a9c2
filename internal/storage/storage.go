// Package storage downloads remote files through the authenticated bot
// file endpoint and persists them under the upload root with
// collision-resistant names.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mediagate/internal/domain"
	"mediagate/internal/policy"
)

// DefaultEndpoint is the Telegram Bot API file endpoint template:
// the first argument is the bot token, the second the remote file path.
const DefaultEndpoint = "https://api.telegram.org/file/bot%s/%s"

const defaultTransferTimeout = 120 * time.Second

// Config configures a Store.
type Config struct {
	Root     string // pre-existing upload root; the store never creates it
	MaxBytes int64
	Token    string
	Endpoint string // endpoint template, DefaultEndpoint if empty
	Client   *http.Client
	Logger   *slog.Logger
}

// Store streams remote files to disk. The declared filename contributes
// only its extension to the destination path; the path component itself
// is always a freshly generated unique ID, so attacker-supplied names
// can neither traverse nor collide.
type Store struct {
	root     string
	maxBytes int64
	token    string
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

func New(cfg Config) *Store {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: defaultTransferTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Store{
		root:     cfg.Root,
		maxBytes: cfg.MaxBytes,
		token:    cfg.Token,
		endpoint: cfg.Endpoint,
		client:   cfg.Client,
		logger:   cfg.Logger,
	}
}

// Save fetches remotePath from the authenticated endpoint and writes it
// under the upload root. On any failure the destination is removed before
// the error returns: a partial file is never left addressable.
func (s *Store) Save(ctx context.Context, remotePath, declaredName string) (*domain.StoredFile, error) {
	// Only the extension of the declared name survives, and only from its
	// base component, so separators in a hostile name never reach the path.
	ext := ""
	if base := filepath.Base(declaredName); base != "." {
		if idx := strings.LastIndex(base, "."); idx >= 0 {
			ext = base[idx:]
		}
	}
	destName := policy.NewUniqueID() + ext
	destPath := filepath.Join(s.root, destName)

	fileURL := fmt.Sprintf(s.endpoint, s.token, remotePath)
	s.logger.Debug("downloading remote file",
		"remote", policy.MaskPII(remotePath),
		"dest", destName,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrFileNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", ErrTransport, resp.StatusCode)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("create destination: %w", err)
	}

	// Limit the copy to one byte past the ceiling: a peer may declare an
	// acceptable size and stream more, so the declared size is never
	// trusted as a transfer bound.
	written, err := io.Copy(out, io.LimitReader(resp.Body, s.maxBytes+1))
	closeErr := out.Close()
	if err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if closeErr != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("close destination: %w", closeErr)
	}
	if written > s.maxBytes {
		os.Remove(destPath)
		s.logger.Warn("downloaded file exceeds size limit", "bytes", written, "limit", s.maxBytes)
		return nil, ErrFileTooLarge
	}

	info, err := os.Stat(destPath)
	if err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("verify destination: %w", err)
	}

	stored := &domain.StoredFile{
		Path:   destPath,
		Size:   info.Size(),
		Digest: policy.FileDigest(destPath),
	}

	s.logger.Info("file saved",
		"path", policy.MaskPII(stored.Path),
		"size", stored.Size,
		"digest", stored.Digest,
	)
	return stored, nil
}

package storage

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediagate/internal/policy"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// newTestStore points a Store at an httptest server that serves the given
// payload for every path, using the endpoint template contract
// {endpoint}/{token}/{remote path}.
func newTestStore(t *testing.T, handler http.HandlerFunc, maxBytes int64) (*Store, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	root := t.TempDir()
	store := New(Config{
		Root:     root,
		MaxBytes: maxBytes,
		Token:    "test-token",
		Endpoint: srv.URL + "/file/bot%s/%s",
		Client:   srv.Client(),
		Logger:   testLogger(),
	})
	return store, root
}

func serveBytes(payload []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	payload := []byte("fake ogg audio content")
	store, root := newTestStore(t, serveBytes(payload), 1024)

	stored, err := store.Save(context.Background(), "voice/file_1.oga", "recording.oga")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if stored.Size != int64(len(payload)) {
		t.Errorf("size = %d, want %d", stored.Size, len(payload))
	}
	if filepath.Dir(stored.Path) != root {
		t.Errorf("stored outside root: %s", stored.Path)
	}
	if filepath.Ext(stored.Path) != ".oga" {
		t.Errorf("extension not preserved: %s", stored.Path)
	}
	if stored.Digest == policy.HashFailedSentinel || stored.Digest == "" {
		t.Errorf("digest missing: %q", stored.Digest)
	}

	data, err := os.ReadFile(stored.Path)
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(data) != string(payload) {
		t.Error("stored content differs from served payload")
	}
}

func TestSave_OversizedStreamDeleted(t *testing.T) {
	// Peer streams more than the ceiling regardless of what it declared.
	payload := []byte(strings.Repeat("x", 300))
	store, root := newTestStore(t, serveBytes(payload), 256)

	_, err := store.Save(context.Background(), "audio/big.mp3", "big.mp3")
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("got %v, want ErrFileTooLarge", err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("partial file left behind: %v", entries)
	}
}

func TestSave_ExactCeilingAccepted(t *testing.T) {
	payload := []byte(strings.Repeat("y", 256))
	store, _ := newTestStore(t, serveBytes(payload), 256)

	stored, err := store.Save(context.Background(), "audio/edge.mp3", "edge.mp3")
	if err != nil {
		t.Fatalf("size exactly at ceiling should be accepted: %v", err)
	}
	if stored.Size != 256 {
		t.Errorf("size = %d, want 256", stored.Size)
	}
}

func TestSave_NotFound(t *testing.T) {
	store, root := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}, 1024)

	_, err := store.Save(context.Background(), "gone/file", "file.mp3")
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("got %v, want ErrFileNotFound", err)
	}
	entries, _ := os.ReadDir(root)
	if len(entries) != 0 {
		t.Errorf("file created for 404 response: %v", entries)
	}
}

func TestSave_ServerErrorWrapsTransport(t *testing.T) {
	store, _ := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, 1024)

	_, err := store.Save(context.Background(), "audio/x", "x.mp3")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("got %v, want ErrTransport", err)
	}
}

func TestSave_TraversalNameStaysUnderRoot(t *testing.T) {
	store, root := newTestStore(t, serveBytes([]byte("data")), 1024)

	stored, err := store.Save(context.Background(), "docs/file", "../../etc/passwd")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	abs, err := filepath.Abs(stored.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		t.Errorf("stored path escaped root: %s", abs)
	}
	// The generated name carries only the extension of the declared name.
	base := filepath.Base(stored.Path)
	if strings.Contains(base, "etc") {
		t.Errorf("declared name leaked into path component: %s", base)
	}
}

func TestSave_UniqueDestinations(t *testing.T) {
	store, _ := newTestStore(t, serveBytes([]byte("data")), 1024)

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		stored, err := store.Save(context.Background(), "audio/same", "same.mp3")
		if err != nil {
			t.Fatal(err)
		}
		if seen[stored.Path] {
			t.Fatalf("destination reused: %s", stored.Path)
		}
		seen[stored.Path] = true
	}
}

func TestSave_NoExtension(t *testing.T) {
	store, _ := newTestStore(t, serveBytes([]byte("data")), 1024)

	stored, err := store.Save(context.Background(), "docs/raw", "README")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(stored.Path) != "" {
		t.Errorf("unexpected extension on %s", stored.Path)
	}
}

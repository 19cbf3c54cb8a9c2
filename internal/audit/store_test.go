package audit

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	store, err := NewStore(filepath.Join(t.TempDir(), "audit.db"), logger)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entries := []Entry{
		{ChatID: 1, Kind: "audio", Verdict: "accepted", FileName: "song.mp3", MimeType: "audio/mpeg", DeclaredSize: 1000, StoredPath: "/tmp/x.mp3", StoredSize: 1000, Digest: "abc"},
		{ChatID: 2, Kind: "document", Verdict: "rejected_type", FileName: "a.zip", MimeType: "application/zip", DeclaredSize: 5000},
		{ChatID: 1, Kind: "voice", Verdict: "rejected_size", MimeType: "audio/ogg", DeclaredSize: 99999999},
	}
	for _, e := range entries {
		if err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	// Most recent first.
	if got[0].Kind != "voice" || got[0].Verdict != "rejected_size" {
		t.Errorf("unexpected newest entry: %+v", got[0])
	}
	if got[2].FileName != "song.mp3" || got[2].Digest != "abc" {
		t.Errorf("oldest entry fields lost: %+v", got[2])
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("created_at not populated")
	}
}

func TestRecent_Limit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := store.Record(ctx, Entry{ChatID: int64(i), Kind: "audio", Verdict: "accepted"}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("limit ignored: got %d", len(got))
	}
}

func TestCountByVerdict(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	verdicts := []string{"accepted", "accepted", "rejected_type"}
	for _, v := range verdicts {
		if err := store.Record(ctx, Entry{ChatID: 1, Kind: "audio", Verdict: v}); err != nil {
			t.Fatal(err)
		}
	}
	n, err := store.CountByVerdict(ctx, "accepted")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("accepted count = %d, want 2", n)
	}
	n, err = store.CountByVerdict(ctx, "failed")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("failed count = %d, want 0", n)
	}
}

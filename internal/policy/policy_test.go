package policy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var audioWhitelist = map[string]struct{}{
	"audio/mpeg": {},
	"audio/ogg":  {},
	"audio/wav":  {},
}

func TestValidateMIME_Whitelisted(t *testing.T) {
	v := ValidateMIME("audio/mpeg", audioWhitelist)
	if !v.OK() {
		t.Errorf("audio/mpeg should be accepted, got %+v", v)
	}
}

func TestValidateMIME_Rejections(t *testing.T) {
	cases := []struct {
		name string
		mime string
	}{
		{"not whitelisted", "application/zip"},
		{"case variant", "Audio/Mpeg"},
		{"upper case", "AUDIO/MPEG"},
		{"empty", ""},
		{"whitespace padded", " audio/mpeg"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := ValidateMIME(tc.mime, audioWhitelist)
			if v.Code != RejectedType {
				t.Errorf("ValidateMIME(%q): got code %d, want RejectedType", tc.mime, v.Code)
			}
			if v.OK() {
				t.Errorf("ValidateMIME(%q) should not be OK", tc.mime)
			}
		})
	}
}

func TestValidateSize_InclusiveCeiling(t *testing.T) {
	const max = 10 * 1024 * 1024
	cases := []struct {
		declared int64
		accepted bool
	}{
		{0, true},
		{1, true},
		{max - 1, true},
		{max, true}, // exactly at ceiling is accepted
		{max + 1, false},
		{max * 2, false},
	}
	for _, tc := range cases {
		v := ValidateSize(tc.declared, max)
		if v.OK() != tc.accepted {
			t.Errorf("ValidateSize(%d, %d): accepted=%v, want %v", tc.declared, max, v.OK(), tc.accepted)
		}
		if !tc.accepted && v.Code != RejectedSize {
			t.Errorf("ValidateSize(%d): got code %d, want RejectedSize", tc.declared, v.Code)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "unknown_file"},
		{"song.mp3", "song.mp3"},
		{"../../etc/passwd", ".._.._etc_passwd"},
		{`a\b/c:d*e?f"g<h>i|j`, "a_b_c_d_e_f_g_h_i_j"},
		{"normal name with spaces.ogg", "normal name with spaces.ogg"},
	}
	for _, tc := range cases {
		if got := SanitizeFileName(tc.in); got != tc.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeFileName_TruncatesLongNames(t *testing.T) {
	long := strings.Repeat("a", 500) + ".mp3"
	got := SanitizeFileName(long)
	if len(got) != 100 {
		t.Errorf("length = %d, want 100", len(got))
	}
}

func TestSanitizeFileName_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"song.mp3",
		"../../etc/passwd",
		strings.Repeat("x/y", 200),
		`weird:"name"|here`,
	}
	for _, in := range inputs {
		once := SanitizeFileName(in)
		twice := SanitizeFileName(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNewUniqueID_Distinct(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewUniqueID()
		if id == "" {
			t.Fatal("empty unique ID")
		}
		if seen[id] {
			t.Fatalf("duplicate unique ID: %s", id)
		}
		seen[id] = true
	}
}

func TestUserIdentifier(t *testing.T) {
	if got := UserIdentifier(12345); got != "ID:12345" {
		t.Errorf("got %q", got)
	}
	if got := UserIdentifier(0); got != "unknown-user" {
		t.Errorf("got %q", got)
	}
}

func TestMaskPII_Deterministic(t *testing.T) {
	a := MaskPII("some-telegram-file-id-abcdef")
	b := MaskPII("some-telegram-file-id-abcdef")
	if a != b {
		t.Errorf("not deterministic: %q != %q", a, b)
	}
}

func TestMaskPII_NeverVerbatim(t *testing.T) {
	in := "sensitive-value"
	got := MaskPII(in)
	if got == in {
		t.Errorf("masked output equals raw input: %q", got)
	}
	if !strings.HasPrefix(got, "sens...") {
		t.Errorf("expected first 4 chars visible, got %q", got)
	}
	// 4 visible + "..." + 8 digest chars
	if len(got) != 4+3+8 {
		t.Errorf("unexpected masked length %d: %q", len(got), got)
	}
}

func TestMaskPII_ShortAndEmpty(t *testing.T) {
	if got := MaskPII(""); got != "null" {
		t.Errorf("empty input: got %q, want null", got)
	}
	got := MaskPII("ab")
	if !strings.HasPrefix(got, "ab...") {
		t.Errorf("short input should keep all chars visible: %q", got)
	}
}

func TestMaskPII_DistinctInputsDistinctMasks(t *testing.T) {
	// Same visible prefix, different content: digest must differ.
	a := MaskPII("file-one")
	b := MaskPII("file-two")
	if a == b {
		t.Errorf("distinct inputs produced identical masks: %q", a)
	}
}

func TestFileDigest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "content.bin")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}

	d1 := FileDigest(path)
	d2 := FileDigest(path)
	if d1 == HashFailedSentinel {
		t.Fatalf("digest failed for readable file")
	}
	if d1 != d2 {
		t.Errorf("digest not deterministic: %q != %q", d1, d2)
	}
}

func TestFileDigest_MissingFileSentinel(t *testing.T) {
	got := FileDigest(filepath.Join(t.TempDir(), "does-not-exist"))
	if got != HashFailedSentinel {
		t.Errorf("got %q, want sentinel", got)
	}
}

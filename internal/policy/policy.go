// Package policy holds the pure validation and sanitization rules for
// inbound files: MIME whitelisting, size ceilings, filename sanitization,
// unique-id naming, content hashing, and PII masking for logs.
package policy

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"os"
	"regexp"

	"github.com/google/uuid"
)

// HashFailedSentinel is returned by FileDigest when hashing fails.
// Hashing is diagnostic, not a correctness gate, so failures never
// propagate as errors.
const HashFailedSentinel = "hash_computation_failed"

// UnknownFileName replaces empty or missing declared filenames.
const UnknownFileName = "unknown_file"

const maxFileNameLen = 100

// VerdictCode is the outcome of a validation check.
type VerdictCode int

const (
	Accepted VerdictCode = iota
	RejectedType
	RejectedSize
)

// Verdict is terminal: once a message is rejected, no download is attempted.
type Verdict struct {
	Code   VerdictCode
	Reason string
}

// OK reports whether the verdict allows the pipeline to continue.
func (v Verdict) OK() bool { return v.Code == Accepted }

// ValidateMIME checks the declared MIME type against a whitelist.
// The comparison is exact and case-sensitive: a case-variant of a
// whitelisted entry is a non-match. This strictness is deliberate.
// An empty or unknown MIME type is rejected, never accepted best-effort.
func ValidateMIME(mime string, allowed map[string]struct{}) Verdict {
	if mime == "" {
		return Verdict{Code: RejectedType, Reason: "missing MIME type"}
	}
	if _, ok := allowed[mime]; !ok {
		return Verdict{Code: RejectedType, Reason: "MIME type not whitelisted: " + mime}
	}
	return Verdict{Code: Accepted}
}

// ValidateSize checks the declared size against the ceiling. The ceiling
// is inclusive: declared == max is accepted. The declared size is
// advisory only; the actual size is re-checked after download.
func ValidateSize(declared, max int64) Verdict {
	if declared > max {
		return Verdict{
			Code:   RejectedSize,
			Reason: fmt.Sprintf("declared size %d exceeds limit %d", declared, max),
		}
	}
	return Verdict{Code: Accepted}
}

var unsafeFileNameChars = regexp.MustCompile(`[\\/:*?"<>|]`)

// SanitizeFileName strips path traversal and shell-unsafe characters from
// a declared filename and caps its length. Idempotent: sanitizing an
// already-sanitized name yields the same name.
func SanitizeFileName(name string) string {
	if name == "" {
		return UnknownFileName
	}
	sanitized := unsafeFileNameChars.ReplaceAllString(name, "_")
	if len(sanitized) > maxFileNameLen {
		sanitized = sanitized[:maxFileNameLen]
	}
	return sanitized
}

// NewUniqueID returns a random 128-bit token used to name stored files.
// Attacker-supplied names never become path components, so uniqueness of
// these IDs is what prevents collision and enumeration.
func NewUniqueID() string {
	return uuid.NewString()
}

// UserIdentifier derives a privacy-safe token for log output. Usernames
// and message content never appear in logs; only this identifier does.
func UserIdentifier(senderID int64) string {
	if senderID == 0 {
		return "unknown-user"
	}
	return fmt.Sprintf("ID:%d", senderID)
}

// MaskPII masks a sensitive value for logging: the first four characters
// stay visible, the rest is replaced by an 8-character digest prefix.
// Deterministic, so log lines for the same value still correlate.
func MaskPII(value string) string {
	if value == "" {
		return "null"
	}
	visible := value
	if len(visible) > 4 {
		visible = visible[:4]
	}
	sum := sha256.Sum256([]byte(value))
	digest := base64.StdEncoding.EncodeToString(sum[:])
	return visible + "..." + digest[:8]
}

// FileDigest returns the base64 SHA-256 digest of a file's content, or
// HashFailedSentinel if the file cannot be read.
func FileDigest(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return HashFailedSentinel
	}
	sum := sha256.Sum256(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}

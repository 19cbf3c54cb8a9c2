package domain

import "context"

// Session is the long-lived connection to the chat protocol as seen by
// the dispatcher: resolving a file ID to a remote path and sending
// threaded replies.
type Session interface {
	// ResolveFile exchanges a file ID for the remote file path used by
	// the download endpoint.
	ResolveFile(ctx context.Context, fileID string) (string, error)
	// SendReply sends text as a reply to a specific message. replyTo of 0
	// sends a plain message.
	SendReply(chatID int64, replyTo int, text string) error
}

// FileStore persists a remote file under the upload root and returns an
// opaque handle to the stored copy.
type FileStore interface {
	Save(ctx context.Context, remotePath, declaredName string) (*StoredFile, error)
}

// Processor turns a stored file into a human-readable outcome.
// Its internals are opaque to the ingestion pipeline.
type Processor interface {
	Process(ctx context.Context, path string) (string, error)
}

// Answerer produces a reply for free-form text messages.
type Answerer interface {
	Answer(ctx context.Context, text string) (string, error)
}

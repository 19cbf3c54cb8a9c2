package domain

// StoredFile describes a file persisted by the storage layer.
// It exists only after a successful download: failed downloads are
// cleaned up before the error propagates, so no partial file is ever
// addressable through a StoredFile.
type StoredFile struct {
	Path   string // absolute path under the upload root
	Size   int64  // re-measured on disk, not the declared size
	Digest string // base64 SHA-256 of the content; diagnostic only
}

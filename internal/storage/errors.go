package storage

import "errors"

var (
	// ErrFileTooLarge indicates the downloaded content exceeded the size
	// ceiling. The partial file is deleted before this error is returned.
	ErrFileTooLarge = errors.New("downloaded file exceeds size limit")
	// ErrFileNotFound indicates the remote endpoint has no such file.
	ErrFileNotFound = errors.New("remote file not found")
	// ErrTransport indicates the remote fetch failed; the underlying
	// cause is wrapped.
	ErrTransport = errors.New("remote fetch failed")
)

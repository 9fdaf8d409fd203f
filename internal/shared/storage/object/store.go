// Package object abstracts where uploaded videos live. Storage keys returned
// by Save are opaque to callers and only valid for the store that minted them.
package object

import (
	"context"
	"io"
)

// ObjectStore saves and retrieves uploaded videos. Save namespaces the key
// by job ID and sniffs the MIME type from content rather than trusting the
// client's header.
type ObjectStore interface {
	Save(ctx context.Context, jobID string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
}

// Package objectstore persists book cover images in an S3-compatible
// object store and hands out presigned download URLs.
package objectstore

import "context"

// Store is the object storage surface the book service depends on.
type Store interface {
	// Put uploads an object under key.
	Put(ctx context.Context, key, contentType string, data []byte) error
	// PresignGet returns a time-limited download URL for key.
	PresignGet(key string) (string, error)
	// Delete removes the object under key. Deleting a missing key is not
	// an error.
	Delete(ctx context.Context, key string) error
}

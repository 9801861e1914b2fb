package s3multipart

import (
	"context"
	"io"

	"crate/internal/s3xml"
)

// ExistingPart is one row reported by the server for an in-progress
// upload's part list. ETag is the part's hex MD5 — unlike a completed
// object's ETag, a part ETag is always a plain hex MD5 with no suffix, so
// it doubles as the value the orchestrator compares against a freshly
// computed digest when deciding whether a part can be reused unchanged.
type ExistingPart struct {
	PartNumber int
	Size       int64
	ETag       string
}

// PendingUpload is what findUploadId reports: the upload chosen (latest
// Initiated timestamp among any in-progress uploads for the key) and its
// already-uploaded parts, or found=false if no upload exists yet.
type PendingUpload struct {
	UploadID string
	Parts    []ExistingPart
}

// Backend is every network operation the orchestrator needs, supplied by
// the caller (pkg/crate) so this package stays free of any HTTP, signing,
// or region dependency — the same separation s3region.Fetcher draws
// between the resolver and its transport.
type Backend interface {
	// FindUpload lists in-progress multipart uploads for key and selects
	// the one with the latest Initiated timestamp, along with its parts.
	// ok is false if no upload exists.
	FindUpload(ctx context.Context, bucket, key string) (upload PendingUpload, ok bool, err error)

	// InitiateUpload starts a new multipart upload and returns its ID.
	InitiateUpload(ctx context.Context, bucket, key, contentType string) (uploadID string, err error)

	// UploadPart uploads one part's body (exactly size bytes, read from
	// body) and returns the server ETag.
	UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int, body io.Reader, size int64) (etag string, err error)

	// CompleteUpload finalizes the upload with the given ascending part
	// list and returns the resulting object ETag.
	CompleteUpload(ctx context.Context, bucket, key, uploadID string, parts []s3xml.CompletedPart) (etag string, err error)

	// AbortUpload deletes an in-progress upload.
	AbortUpload(ctx context.Context, bucket, key, uploadID string) error

	// PutObject issues a single, non-multipart PUT and returns the
	// resulting ETag.
	PutObject(ctx context.Context, bucket, key, contentType string, body io.Reader, size int64) (etag string, err error)
}

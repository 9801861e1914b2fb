// Package s3multipart implements the multipart upload orchestrator:
// strategy selection, upload-ID discovery and resumption, chunking,
// at-most-one-in-flight-per-part uploads, size verification, and
// completion.
package s3multipart

import "crate/internal/s3errors"

const (
	// MinPartSize is the smallest a non-final part may be.
	MinPartSize = 5 * 1024 * 1024

	// MaxPartSize is the largest a single part may be: 5 GiB.
	MaxPartSize = 5 * 1024 * 1024 * 1024

	// MaxPartCount bounds the number of parts a single multipart upload
	// may have.
	MaxPartCount = 10000

	// SinglePutThreshold is the largest object size still eligible for a
	// single, unpaginated PUT instead of the multipart path.
	SinglePutThreshold = 5 * 1024 * 1024
)

// PartSize computes the per-part size for an object of the given total
// size: clamp(floor(size/9999), 5 MiB, 5 GiB). When size itself is smaller
// than the resulting partSize, the only part produced is simply shorter
// than partSize.
func PartSize(size int64) int64 {
	if size <= 0 {
		return MinPartSize
	}
	partSize := size / (MaxPartCount - 1)
	switch {
	case partSize < MinPartSize:
		return MinPartSize
	case partSize > MaxPartSize:
		return MaxPartSize
	default:
		return partSize
	}
}

// ValidateUploadSize rejects sizes that can never be represented as a
// multipart upload even at the maximum part size.
func ValidateUploadSize(size int64) error {
	if size < 0 {
		return s3errors.InvalidArgument("object size must be non-negative, got %d", size)
	}
	if size > MaxPartCount*MaxPartSize {
		return s3errors.InvalidArgument("object size %d exceeds the maximum representable multipart upload size", size)
	}
	return nil
}

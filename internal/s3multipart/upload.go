package s3multipart

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"

	"crate/internal/s3errors"
	"crate/internal/s3xml"

	md5simd "github.com/minio/md5-simd"
	"golang.org/x/sync/errgroup"
)

// Options configures a single Upload call.
type Options struct {
	ContentType string
	// Concurrency bounds how many parts may be in flight at once. Reading
	// from Body is always sequential regardless of this value; only the
	// network upload of already-read parts runs concurrently. <= 1 means
	// fully sequential.
	Concurrency int
}

// Result is what a successful Upload returns.
type Result struct {
	ETag     string
	UploadID string // empty for the single-PUT strategy
}

// Orchestrator drives the multipart upload state machine, using Backend
// for every network operation and md5simd.Server for part-reuse hashing.
type Orchestrator struct {
	backend Backend
	hasher  md5simd.Server
}

// NewOrchestrator builds an Orchestrator. hasher is shared across uploads;
// callers should call hasher.Close() once at process shutdown, the way
// minio-go shares one md5simd.Server across a client's lifetime.
func NewOrchestrator(backend Backend, hasher md5simd.Server) *Orchestrator {
	return &Orchestrator{backend: backend, hasher: hasher}
}

// Upload runs the full strategy-selection and multipart state machine for
// one object. size is the declared total length of body; a SizeVerifier
// wrapped around body, before the chunker reads it, enforces that body
// produces exactly that many bytes.
func (o *Orchestrator) Upload(ctx context.Context, bucket, key string, body io.Reader, size int64, opts Options) (Result, error) {
	if err := ValidateUploadSize(size); err != nil {
		return Result{}, err
	}

	verified := s3xml.SizeVerifier(body, size)

	if size <= SinglePutThreshold {
		etag, err := o.backend.PutObject(ctx, bucket, key, opts.ContentType, verified, size)
		if err != nil {
			if verified.Err() != nil {
				return Result{}, verified.Err()
			}
			return Result{}, err
		}
		if err := verified.Err(); err != nil {
			return Result{}, err
		}
		return Result{ETag: etag}, nil
	}

	return o.uploadMultipart(ctx, bucket, key, verified, size, opts)
}

func (o *Orchestrator) uploadMultipart(ctx context.Context, bucket, key string, body io.Reader, size int64, opts Options) (Result, error) {
	pending, found, err := o.backend.FindUpload(ctx, bucket, key)
	if err != nil {
		return Result{}, err
	}

	var uploadID string
	existing := make(map[int]ExistingPart)
	if found {
		uploadID = pending.UploadID
		for _, p := range pending.Parts {
			existing[p.PartNumber] = p
		}
	} else {
		uploadID, err = o.backend.InitiateUpload(ctx, bucket, key, opts.ContentType)
		if err != nil {
			return Result{}, err
		}
	}

	partSize := PartSize(size)

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)

	var mu sync.Mutex
	completed := make([]s3xml.CompletedPart, 0, MaxPartCount)

	for partNumber := 1; ; partNumber++ {
		if gctx.Err() != nil {
			break
		}

		buf, readErr := readPart(body, partSize)
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			_ = group.Wait()
			if s3errors.KindOf(readErr) == s3errors.KindSizeMismatch {
				return Result{}, readErr
			}
			return Result{}, s3errors.Wrap(s3errors.KindNetwork, readErr, "reading part %d", partNumber)
		}

		if reused, etag := reusablePart(o.hasher, existing[partNumber], buf); reused {
			mu.Lock()
			completed = append(completed, s3xml.CompletedPart{PartNumber: partNumber, ETag: etag})
			mu.Unlock()
			continue
		}

		group.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			etag, err := o.backend.UploadPart(gctx, bucket, key, uploadID, partNumber, bytes.NewReader(buf), int64(len(buf)))
			if err != nil {
				return err
			}
			mu.Lock()
			completed = append(completed, s3xml.CompletedPart{PartNumber: partNumber, ETag: etag})
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return Result{}, err
	}

	if sv, ok := body.(*s3xml.SizeVerifyingReader); ok {
		if err := sv.Err(); err != nil {
			return Result{}, err
		}
	}

	sort.Slice(completed, func(i, j int) bool { return completed[i].PartNumber < completed[j].PartNumber })

	etag, err := o.backend.CompleteUpload(ctx, bucket, key, uploadID, completed)
	if err != nil {
		return Result{}, err
	}

	return Result{ETag: etag, UploadID: uploadID}, nil
}

// reusablePart reports whether an already-uploaded part can stand in for
// buf unchanged: same size and same MD5.
func reusablePart(hasher md5simd.Server, existing ExistingPart, buf []byte) (bool, string) {
	if existing.ETag == "" || existing.Size != int64(len(buf)) {
		return false, ""
	}
	if hexMD5(hasher, buf) != existing.ETag {
		return false, ""
	}
	return true, existing.ETag
}

// Abort removes an in-progress upload for (bucket, key). A missing upload
// is a no-op success.
func (o *Orchestrator) Abort(ctx context.Context, bucket, key string) error {
	pending, found, err := o.backend.FindUpload(ctx, bucket, key)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	return o.backend.AbortUpload(ctx, bucket, key, pending.UploadID)
}

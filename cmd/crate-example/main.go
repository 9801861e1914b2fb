package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"crate/pkg/crate"
)

// getenv returns the value of the environment variable named by key or
// fallback if the variable is not present.
func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

const (
	BucketName      = "example-bucket"
	ObjectName      = "example.txt"
	ObjectContent   = "Hello from crate!\n"
	MultipartBucket = "crate-multipart-bucket"
	MultipartObject = "crate-multipart-object.bin"
)

// EnsureBucket checks if a bucket exists, and creates it if it does not.
func EnsureBucket(ctx context.Context, client *crate.Client, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, ""); err != nil {
			return fmt.Errorf("failed to create bucket %q: %w", bucket, err)
		}
	}
	return nil
}

// UploadFile uploads an object to the specified bucket.
func UploadFile(ctx context.Context, client *crate.Client, bucket, key string, content []byte) error {
	reader := bytes.NewReader(content)
	info, err := client.PutObject(ctx, bucket, key, reader, int64(len(content)), crate.PutOptions{
		ContentType:     "text/plain",
		ComputeChecksum: true,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %q to bucket %q: %w", key, bucket, err)
	}
	slog.Info("uploaded object", "object", key, "bucket", bucket, "size", humanize.Bytes(uint64(len(content))), "etag", info.ETag, "crc64nvme", info.ChecksumCRC64NVME)
	return nil
}

// ListBucketObjects lists every object in the specified bucket.
func ListBucketObjects(ctx context.Context, client *crate.Client, bucket string) error {
	slog.Info("listing objects", "bucket", bucket)
	for obj, err := range client.ListObjects(ctx, bucket, crate.ListObjectsOptions{}) {
		if err != nil {
			return fmt.Errorf("failed to list objects in bucket %q: %w", bucket, err)
		}
		slog.Info("object", "key", obj.Key, "size", obj.Size, "etag", obj.ETag)
	}
	return nil
}

// DownloadFile fetches an object's body and prints its length.
func DownloadFile(ctx context.Context, client *crate.Client, bucket, key string) error {
	body, info, err := client.GetObject(ctx, bucket, key, crate.GetOptions{})
	if err != nil {
		return fmt.Errorf("failed to download object %q from bucket %q: %w", key, bucket, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read object body: %w", err)
	}
	slog.Info("downloaded object", "object", key, "size", humanize.Bytes(uint64(len(data))), "content_type", info.ContentType)
	return nil
}

// MultipartUploadExample drives the multipart lifecycle by hand, rather
// than through the transparent size-based dispatch PutObject performs, to
// exercise NewMultipartUpload/PutObjectPart/CompleteMultipartUpload
// directly.
func MultipartUploadExample(ctx context.Context, client *crate.Client) error {
	if err := EnsureBucket(ctx, client, MultipartBucket); err != nil {
		return err
	}

	uploadID, err := client.NewMultipartUpload(ctx, MultipartBucket, MultipartObject, "application/octet-stream")
	if err != nil {
		return fmt.Errorf("failed to initiate multipart upload: %w", err)
	}

	log := slog.With("bucket", MultipartBucket, "object", MultipartObject, "upload_id", uploadID)
	log.Info("started multipart upload")

	partData := [][]byte{
		bytes.Repeat([]byte("AAAA"), 1536*1024), // ~6 MiB, above the 5 MiB part floor
		bytes.Repeat([]byte("BBBB"), 1536*1024),
		bytes.Repeat([]byte("CCCC"), 128*1024), // short final part
	}

	var parts []crate.CompletedPart
	totalLength := 0
	for i, data := range partData {
		partNumber := i + 1
		etag, err := client.PutObjectPart(ctx, MultipartBucket, MultipartObject, uploadID, partNumber, bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return fmt.Errorf("failed to upload part %d: %w", partNumber, err)
		}
		parts = append(parts, crate.CompletedPart{PartNumber: partNumber, ETag: etag})
		totalLength += len(data)
	}

	etag, err := client.CompleteMultipartUpload(ctx, MultipartBucket, MultipartObject, uploadID, parts)
	if err != nil {
		return fmt.Errorf("failed to complete multipart upload: %w", err)
	}

	log.Info("completed multipart upload", "total_size", totalLength, "etag", etag)
	return nil
}

// PresignExample mints a pre-signed GET URL and a POST-policy form for
// browser uploads.
func PresignExample(ctx context.Context, client *crate.Client, bucket, key string) error {
	getURL, err := client.PresignedGetObject(ctx, bucket, key, 24*time.Hour)
	if err != nil {
		return fmt.Errorf("failed to presign GET: %w", err)
	}
	slog.Info("presigned GET URL", "url", getURL)

	policy := crate.NewPostPolicy()
	if err := policy.SetExpires(time.Now().Add(15 * time.Minute)); err != nil {
		return fmt.Errorf("failed to set policy expiry: %w", err)
	}
	if err := policy.SetBucket(bucket); err != nil {
		return fmt.Errorf("failed to set policy bucket: %w", err)
	}
	if err := policy.SetKeyStartsWith("uploads/"); err != nil {
		return fmt.Errorf("failed to set policy key prefix: %w", err)
	}
	if err := policy.SetContentLengthRange(1, 10*1024*1024); err != nil {
		return fmt.Errorf("failed to set policy content-length range: %w", err)
	}

	postURL, formData, err := client.PresignedPostPolicy(ctx, policy)
	if err != nil {
		return fmt.Errorf("failed to sign POST policy: %w", err)
	}
	slog.Info("presigned POST policy", "url", postURL, "fields", len(formData))
	return nil
}

func Run(ctx context.Context, client *crate.Client) error {
	if err := EnsureBucket(ctx, client, BucketName); err != nil {
		return fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	if err := UploadFile(ctx, client, BucketName, ObjectName, []byte(ObjectContent)); err != nil {
		return fmt.Errorf("failed to upload example file: %w", err)
	}

	if err := ListBucketObjects(ctx, client, BucketName); err != nil {
		return fmt.Errorf("failed to list bucket objects: %w", err)
	}

	if err := DownloadFile(ctx, client, BucketName, ObjectName); err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}

	if err := PresignExample(ctx, client, BucketName, ObjectName); err != nil {
		return fmt.Errorf("failed to run presign example: %w", err)
	}

	if err := MultipartUploadExample(ctx, client); err != nil {
		return fmt.Errorf("failed to run multipart upload example: %w", err)
	}

	return nil
}

func main() {
	handler := log.NewWithOptions(os.Stdout, log.Options{
		Level:           log.InfoLevel,
		TimeFormat:      time.RFC3339,
		ReportTimestamp: true,
		TimeFunction:    log.NowUTC,
	})
	slog.SetDefault(slog.New(handler))

	endpoint := getenv("CRATE_ENDPOINT", "http://localhost:9000")
	accessKey := getenv("CRATE_ACCESS_KEY", "minioadmin")
	secretKey := getenv("CRATE_SECRET_KEY", "minioadmin")

	cfg, err := crate.NewConfig(endpoint, accessKey, secretKey)
	if err != nil {
		slog.Error("failed to build client config", "err", err)
		os.Exit(1)
	}

	client, err := crate.New(cfg)
	if err != nil {
		slog.Error("failed to create client", "err", err)
		os.Exit(1)
	}
	defer client.Close()

	if err := Run(context.Background(), client); err != nil {
		slog.Error("error running example", "err", err)
		os.Exit(1)
	}
}

package crate

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"hash"
	"io"
	"iter"
	"net/http"
	"strconv"
	"time"

	"crate/internal/s3multipart"
	"crate/internal/s3url"
	"crate/internal/s3xml"

	"github.com/minio/crc64nvme"
)

// ObjectInfo describes an object's metadata, returned by StatObject and
// ListObjects.
type ObjectInfo struct {
	Key          string
	ETag         string
	Size         int64
	LastModified time.Time
	ContentType  string

	// ChecksumCRC64NVME is the base64 CRC-64/NVME checksum of the uploaded
	// body, populated only when PutOptions.ComputeChecksum was set. This is
	// a façade-level convenience alongside the server-assigned ETag, not a
	// value S3 itself returns for every object.
	ChecksumCRC64NVME string
}

// StatObject returns an object's metadata without fetching its body.
func (c *Client) StatObject(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	if err := validateBucketName(bucket); err != nil {
		return ObjectInfo{}, err
	}
	if err := validateObjectKey(key); err != nil {
		return ObjectInfo{}, err
	}

	d := s3url.NewDescriptor(http.MethodHead, bucket, s3url.EscapeObjectKey(key))
	resp, err := c.call(ctx, d, nil)
	if err != nil {
		return ObjectInfo{}, err
	}
	defer resp.Body.Close()

	return objectInfoFromHeader(key, resp), nil
}

// GetOptions configures GetObject.
type GetOptions struct {
	// Offset and Length select a byte range; Length 0 means "to the end".
	Offset int64
	Length int64
}

// GetObject returns a reader over the object's body. The caller must
// Close the returned reader. Size is the object's declared Content-Length
// for this response (the full object, or the range length if a range was
// requested).
func (c *Client) GetObject(ctx context.Context, bucket, key string, opts GetOptions) (io.ReadCloser, ObjectInfo, error) {
	if err := validateBucketName(bucket); err != nil {
		return nil, ObjectInfo{}, err
	}
	if err := validateObjectKey(key); err != nil {
		return nil, ObjectInfo{}, err
	}

	d := s3url.NewDescriptor(http.MethodGet, bucket, s3url.EscapeObjectKey(key))
	if opts.Offset > 0 || opts.Length > 0 {
		d.Header.Set("Range", rangeHeader(opts))
	}

	resp, err := c.call(ctx, d, []int{http.StatusOK, http.StatusPartialContent})
	if err != nil {
		return nil, ObjectInfo{}, err
	}

	info := objectInfoFromHeader(key, resp)
	return resp.Body, info, nil
}

func rangeHeader(opts GetOptions) string {
	if opts.Length <= 0 {
		return fmt.Sprintf("bytes=%d-", opts.Offset)
	}
	return fmt.Sprintf("bytes=%d-%d", opts.Offset, opts.Offset+opts.Length-1)
}

// PutOptions configures PutObject.
type PutOptions struct {
	ContentType string
	CannedACL   string
	Concurrency int

	// ComputeChecksum, when set, has PutObject compute a CRC-64/NVME
	// checksum of body as it streams to the server and return it via
	// ObjectInfo.ChecksumCRC64NVME. The checksum is computed locally for
	// caller-side verification; it is not sent to or validated by the
	// server.
	ComputeChecksum bool
}

// PutObject uploads size bytes read from body as bucket/key, transparently
// choosing between a single PUT and the multipart orchestrator depending
// on size.
func (c *Client) PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, opts PutOptions) (ObjectInfo, error) {
	if err := validateBucketName(bucket); err != nil {
		return ObjectInfo{}, err
	}
	if err := validateObjectKey(key); err != nil {
		return ObjectInfo{}, err
	}
	if opts.CannedACL != "" {
		if err := validateCannedACL(opts.CannedACL); err != nil {
			return ObjectInfo{}, err
		}
	}

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = c.cfg.concurrency
	}

	var checksum hash.Hash64
	if opts.ComputeChecksum {
		checksum = crc64nvme.New()
		body = io.TeeReader(body, checksum)
	}

	result, err := c.orch.Upload(ctx, bucket, key, body, size, s3multipart.Options{
		ContentType: opts.ContentType,
		Concurrency: concurrency,
	})
	if err != nil {
		return ObjectInfo{}, err
	}

	info := ObjectInfo{Key: key, ETag: result.ETag, Size: size, ContentType: opts.ContentType}
	if checksum != nil {
		var sum [8]byte
		binary.BigEndian.PutUint64(sum[:], checksum.Sum64())
		info.ChecksumCRC64NVME = base64.StdEncoding.EncodeToString(sum[:])
	}
	return info, nil
}

// RemoveObject deletes an object.
func (c *Client) RemoveObject(ctx context.Context, bucket, key string) error {
	if err := validateBucketName(bucket); err != nil {
		return err
	}
	if err := validateObjectKey(key); err != nil {
		return err
	}

	d := s3url.NewDescriptor(http.MethodDelete, bucket, s3url.EscapeObjectKey(key))
	resp, err := c.call(ctx, d, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// ListObjectsOptions configures ListObjects.
type ListObjectsOptions struct {
	Prefix    string
	Delimiter string
}

// ListObjects returns a lazy sequence over every object (and, if Delimiter
// is set, common prefix, as an ObjectInfo whose Key is the prefix) in
// bucket matching opts, paginating internally.
func (c *Client) ListObjects(ctx context.Context, bucket string, opts ListObjectsOptions) iter.Seq2[ObjectInfo, error] {
	fetch := func(marker string) ([]ObjectInfo, bool, string, error) {
		d := s3url.NewDescriptor(http.MethodGet, bucket, "")
		query := []string{"max-keys=1000"}
		if opts.Prefix != "" {
			query = append(query, "prefix="+s3url.EscapeQueryValue(opts.Prefix))
		}
		if opts.Delimiter != "" {
			query = append(query, "delimiter="+s3url.EscapeQueryValue(opts.Delimiter))
		}
		if marker != "" {
			query = append(query, "marker="+s3url.EscapeQueryValue(marker))
		}
		d.Query = query

		resp, err := c.call(ctx, d, nil)
		if err != nil {
			return nil, false, "", err
		}
		defer resp.Body.Close()

		page, err := s3xml.ListObjectsParser(resp.Body)
		if err != nil {
			return nil, false, "", err
		}

		rows := make([]ObjectInfo, 0, len(page.Objects)+len(page.Prefixes))
		for _, o := range page.Objects {
			rows = append(rows, ObjectInfo{Key: o.Key, ETag: o.ETag, Size: o.Size, LastModified: o.LastModified})
		}
		for _, p := range page.Prefixes {
			rows = append(rows, ObjectInfo{Key: p})
		}
		return rows, page.IsTruncated, page.NextMarker, nil
	}

	return s3xml.Paginate(fetch)
}

func objectInfoFromHeader(key string, resp *http.Response) ObjectInfo {
	size, _ := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	lastModified, _ := http.ParseTime(resp.Header.Get("Last-Modified"))
	return ObjectInfo{
		Key:          key,
		ETag:         trimETagQuotes(resp.Header.Get("ETag")),
		Size:         size,
		ContentType:  resp.Header.Get("Content-Type"),
		LastModified: lastModified,
	}
}

func trimETagQuotes(etag string) string {
	if len(etag) >= 2 && etag[0] == '"' && etag[len(etag)-1] == '"' {
		return etag[1 : len(etag)-1]
	}
	return etag
}

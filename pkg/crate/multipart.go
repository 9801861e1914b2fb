package crate

import (
	"context"
	"io"
	"iter"
	"net/http"
	"sort"
	"strconv"
	"time"

	"crate/internal/s3errors"
	"crate/internal/s3multipart"
	"crate/internal/s3url"
	"crate/internal/s3xml"
)

// multipartBackend adapts *Client to s3multipart.Backend. It is defined as
// a distinct named type over Client, rather than methods on Client
// directly, so the orchestrator's dependency is visibly an interface
// satisfied by adapter methods, not an accidental coupling to the whole
// façade's method set.
type multipartBackend Client

func (b *multipartBackend) client() *Client { return (*Client)(b) }

func (b *multipartBackend) FindUpload(ctx context.Context, bucket, key string) (s3multipart.PendingUpload, bool, error) {
	c := b.client()

	uploadID, err := latestUploadForKey(ctx, c, bucket, key)
	if err != nil {
		return s3multipart.PendingUpload{}, false, err
	}
	if uploadID == "" {
		return s3multipart.PendingUpload{}, false, nil
	}

	var parts []s3multipart.ExistingPart
	for part, err := range c.listParts(ctx, bucket, key, uploadID) {
		if err != nil {
			return s3multipart.PendingUpload{}, false, err
		}
		parts = append(parts, part)
	}

	return s3multipart.PendingUpload{UploadID: uploadID, Parts: parts}, true, nil
}

// latestUploadForKey lists in-progress uploads scoped to key and returns
// the UploadID with the latest Initiated timestamp, or "" if none exist.
func latestUploadForKey(ctx context.Context, c *Client, bucket, key string) (string, error) {
	var (
		latestID   string
		latestTime int64
	)
	for upload, err := range c.listMultipartUploads(ctx, bucket, multipartUploadsQuery{Prefix: key}) {
		if err != nil {
			return "", err
		}
		if upload.Key != key {
			continue
		}
		if t := upload.Initiated.Unix(); latestID == "" || t > latestTime {
			latestID, latestTime = upload.UploadID, t
		}
	}
	return latestID, nil
}

func (b *multipartBackend) InitiateUpload(ctx context.Context, bucket, key, contentType string) (string, error) {
	c := b.client()

	d := s3url.NewDescriptor(http.MethodPost, bucket, s3url.EscapeObjectKey(key))
	d.Query = []string{"uploads"}
	if contentType != "" {
		d.Header.Set("Content-Type", contentType)
	}

	resp, err := c.call(ctx, d, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	return s3xml.InitiateMultipartUploadParser(resp.Body)
}

func (b *multipartBackend) UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int, body io.Reader, size int64) (string, error) {
	c := b.client()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", s3errors.Wrap(s3errors.KindNetwork, err, "buffering part %d", partNumber)
	}

	d := s3url.NewDescriptor(http.MethodPut, bucket, s3url.EscapeObjectKey(key))
	d.Query = partQuery(uploadID, partNumber)
	d.Body = data

	resp, err := c.call(ctx, d, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	return trimETagQuotes(resp.Header.Get("ETag")), nil
}

func (b *multipartBackend) CompleteUpload(ctx context.Context, bucket, key, uploadID string, parts []s3xml.CompletedPart) (string, error) {
	c := b.client()

	sorted := make([]s3xml.CompletedPart, len(parts))
	copy(sorted, parts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PartNumber < sorted[j].PartNumber })

	body, err := s3xml.EncodeCompleteMultipartUpload(sorted)
	if err != nil {
		return "", err
	}

	d := s3url.NewDescriptor(http.MethodPost, bucket, s3url.EscapeObjectKey(key))
	d.Query = []string{"uploadId=" + s3url.EscapeQueryValue(uploadID)}
	d.Body = body

	resp, err := c.call(ctx, d, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	result, err := s3xml.CompleteMultipartUploadParser(resp.Body)
	if err != nil {
		return "", err
	}
	return trimETagQuotes(result.ETag), nil
}

func (b *multipartBackend) AbortUpload(ctx context.Context, bucket, key, uploadID string) error {
	c := b.client()

	d := s3url.NewDescriptor(http.MethodDelete, bucket, s3url.EscapeObjectKey(key))
	d.Query = []string{"uploadId=" + s3url.EscapeQueryValue(uploadID)}

	resp, err := c.call(ctx, d, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

func (b *multipartBackend) PutObject(ctx context.Context, bucket, key, contentType string, body io.Reader, size int64) (string, error) {
	c := b.client()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", s3errors.Wrap(s3errors.KindNetwork, err, "buffering object body")
	}

	d := s3url.NewDescriptor(http.MethodPut, bucket, s3url.EscapeObjectKey(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	d.Header.Set("Content-Type", contentType)
	d.Body = data

	resp, err := c.call(ctx, d, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	return trimETagQuotes(resp.Header.Get("ETag")), nil
}

func partQuery(uploadID string, partNumber int) []string {
	return []string{
		"partNumber=" + strconv.Itoa(partNumber),
		"uploadId=" + s3url.EscapeQueryValue(uploadID),
	}
}

// NewMultipartUpload is a thin public entry point to InitiateUpload: it
// always starts a new upload and does not look for an existing one for
// the same key. It is exposed for callers that want to manage an upload's
// lifecycle manually instead of going through PutObject.
func (c *Client) NewMultipartUpload(ctx context.Context, bucket, key, contentType string) (string, error) {
	if err := validateBucketName(bucket); err != nil {
		return "", err
	}
	if err := validateObjectKey(key); err != nil {
		return "", err
	}
	return (*multipartBackend)(c).InitiateUpload(ctx, bucket, key, contentType)
}

// PutObjectPart uploads one part of a manually managed multipart upload.
func (c *Client) PutObjectPart(ctx context.Context, bucket, key, uploadID string, partNumber int, body io.Reader, size int64) (string, error) {
	if err := validateBucketName(bucket); err != nil {
		return "", err
	}
	if err := validateObjectKey(key); err != nil {
		return "", err
	}
	if partNumber < 1 || partNumber > s3multipart.MaxPartCount {
		return "", s3errors.InvalidArgument("part number %d out of range [1, %d]", partNumber, s3multipart.MaxPartCount)
	}
	return (*multipartBackend)(c).UploadPart(ctx, bucket, key, uploadID, partNumber, body, size)
}

// CompletedPart is one (partNumber, etag) row passed to
// CompleteMultipartUpload, keeping internal/s3xml out of the façade's
// public surface.
type CompletedPart struct {
	PartNumber int
	ETag       string
}

// CompleteMultipartUpload finalizes a manually managed multipart upload.
func (c *Client) CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, parts []CompletedPart) (string, error) {
	if err := validateBucketName(bucket); err != nil {
		return "", err
	}
	if err := validateObjectKey(key); err != nil {
		return "", err
	}

	rows := make([]s3xml.CompletedPart, len(parts))
	for i, p := range parts {
		rows[i] = s3xml.CompletedPart{PartNumber: p.PartNumber, ETag: p.ETag}
	}
	return (*multipartBackend)(c).CompleteUpload(ctx, bucket, key, uploadID, rows)
}

// AbortMultipartUpload aborts a manually managed multipart upload.
func (c *Client) AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error {
	if err := validateBucketName(bucket); err != nil {
		return err
	}
	if err := validateObjectKey(key); err != nil {
		return err
	}
	return (*multipartBackend)(c).AbortUpload(ctx, bucket, key, uploadID)
}

// RemoveIncompleteUpload finds and aborts any in-progress multipart
// upload for bucket/key, succeeding as a no-op if none exists.
func (c *Client) RemoveIncompleteUpload(ctx context.Context, bucket, key string) error {
	if err := validateBucketName(bucket); err != nil {
		return err
	}
	if err := validateObjectKey(key); err != nil {
		return err
	}
	return c.orch.Abort(ctx, bucket, key)
}

// UploadInfo is one row of ListMultipartUploads.
type UploadInfo struct {
	Key       string
	UploadID  string
	Initiated time.Time
}

type multipartUploadsQuery struct {
	Prefix string
}

// ListMultipartUploads returns a lazy sequence over every in-progress
// multipart upload in bucket.
func (c *Client) ListMultipartUploads(ctx context.Context, bucket string, opts ListObjectsOptions) iter.Seq2[UploadInfo, error] {
	return func(yield func(UploadInfo, error) bool) {
		for upload, err := range c.listMultipartUploads(ctx, bucket, multipartUploadsQuery{Prefix: opts.Prefix}) {
			if err != nil {
				yield(UploadInfo{}, err)
				return
			}
			if !yield(UploadInfo{Key: upload.Key, UploadID: upload.UploadID, Initiated: upload.Initiated}, nil) {
				return
			}
		}
	}
}

func (c *Client) listMultipartUploads(ctx context.Context, bucket string, q multipartUploadsQuery) iter.Seq2[s3xml.UploadEntry, error] {
	fetch := func(marker string) ([]s3xml.UploadEntry, bool, string, error) {
		d := s3url.NewDescriptor(http.MethodGet, bucket, "")
		query := []string{"uploads"}
		if q.Prefix != "" {
			query = append(query, "prefix="+s3url.EscapeQueryValue(q.Prefix))
		}
		if marker != "" {
			query = append(query, "key-marker="+s3url.EscapeQueryValue(marker))
		}
		d.Query = query

		resp, err := c.call(ctx, d, nil)
		if err != nil {
			return nil, false, "", err
		}
		defer resp.Body.Close()

		page, err := s3xml.ListMultipartUploadsParser(resp.Body)
		if err != nil {
			return nil, false, "", err
		}
		return page.Uploads, page.IsTruncated, page.NextKeyMarker, nil
	}
	return s3xml.Paginate(fetch)
}

// PartInfo is one row of ListParts.
type PartInfo struct {
	PartNumber int
	ETag       string
	Size       int64
}

// ListParts returns a lazy sequence over every part already uploaded for
// an in-progress multipart upload.
func (c *Client) ListParts(ctx context.Context, bucket, key, uploadID string) iter.Seq2[PartInfo, error] {
	return func(yield func(PartInfo, error) bool) {
		for part, err := range c.listParts(ctx, bucket, key, uploadID) {
			if err != nil {
				yield(PartInfo{}, err)
				return
			}
			if !yield(PartInfo{PartNumber: part.PartNumber, ETag: part.ETag, Size: part.Size}, nil) {
				return
			}
		}
	}
}

func (c *Client) listParts(ctx context.Context, bucket, key, uploadID string) iter.Seq2[s3multipart.ExistingPart, error] {
	fetch := func(marker string) ([]s3multipart.ExistingPart, bool, string, error) {
		d := s3url.NewDescriptor(http.MethodGet, bucket, s3url.EscapeObjectKey(key))
		query := []string{"uploadId=" + s3url.EscapeQueryValue(uploadID)}
		if marker != "" {
			query = append(query, "part-number-marker="+s3url.EscapeQueryValue(marker))
		}
		d.Query = query

		resp, err := c.call(ctx, d, nil)
		if err != nil {
			return nil, false, "", err
		}
		defer resp.Body.Close()

		page, err := s3xml.ListPartsParser(resp.Body)
		if err != nil {
			return nil, false, "", err
		}

		rows := make([]s3multipart.ExistingPart, 0, len(page.Parts))
		for _, p := range page.Parts {
			rows = append(rows, s3multipart.ExistingPart{PartNumber: p.PartNumber, Size: p.Size, ETag: trimETagQuotes(p.ETag)})
		}
		return rows, page.IsTruncated, strconv.Itoa(page.NextPartNumberMarker), nil
	}
	return s3xml.Paginate(fetch)
}

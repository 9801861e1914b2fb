package crate

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"crate/internal/s3errors"
	"crate/internal/s3sign"
	"crate/internal/s3url"
	"crate/internal/s3xml"

	"github.com/google/uuid"
)

// call is one full trip through the pipeline: s3url builds the request
// line, s3region supplies the region, s3sign signs, and the transport issues
// the request. A successful response is returned unread; the caller decodes
// and closes its body. On the error path the body is read into the error
// envelope and closed before call returns.
func (c *Client) call(ctx context.Context, d *s3url.Descriptor, accept []int) (*http.Response, error) {
	region := c.cfg.region
	if d.Bucket != "" {
		var err error
		region, err = c.regionFor(ctx, d.Bucket)
		if err != nil {
			return nil, err
		}
	}
	if region == "" {
		region = "us-east-1"
	}
	return c.signedCall(ctx, d, accept, region)
}

// signedCall signs and issues d against a caller-supplied region,
// bypassing the region resolver. The region resolver's own bootstrap
// lookup uses this directly, against the default region, to avoid
// recursing back into itself.
func (c *Client) signedCall(ctx context.Context, d *s3url.Descriptor, accept []int, region string) (*http.Response, error) {
	d.Header.Set("User-Agent", c.cfg.userAgent())
	if d.Body != nil {
		d.Header.Set("Content-Length", strconv.Itoa(len(d.Body)))
	}

	line := s3url.Build(d, c.endpoint)
	payloadHash := s3sign.PayloadHash(d.Body)
	s3sign.SignRequest(d.Method, line, c.cfg.credentials(), region, payloadHash, time.Now())

	req, err := http.NewRequestWithContext(ctx, d.Method, line.URL(), bodyReader(d.Body))
	if err != nil {
		return nil, s3errors.Wrap(s3errors.KindInvalidArgument, err, "building http request")
	}
	req.Header = line.Header
	req.ContentLength = int64(len(d.Body))

	// requestID is a purely local correlation id for the paired start/end
	// log lines below; the internal packages never log — this is
	// façade-layer diagnostics only.
	requestID := uuid.NewString()
	logger := c.cfg.logger.With("request_id", requestID, "method", d.Method, "bucket", d.Bucket, "key", d.Key)
	start := time.Now()
	logger.Debug("s3 request")

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Debug("s3 request failed", "elapsed", time.Since(start), "err", err)
		return nil, s3errors.Wrap(s3errors.KindNetwork, err, "%s %s", d.Method, line.Path)
	}

	if !s3xml.IsSuccess(resp.StatusCode, accept...) {
		defer resp.Body.Close()
		parseErr := s3xml.ParseError(resp.StatusCode, resp.Body)
		parseErr.Bucket = d.Bucket
		parseErr.Object = d.Key
		logger.Debug("s3 response", "status", resp.StatusCode, "elapsed", time.Since(start), "code", parseErr.Code)
		return nil, rewriteListBucketsAccessDenied(d, parseErr)
	}

	logger.Debug("s3 response", "status", resp.StatusCode, "elapsed", time.Since(start))
	return resp, nil
}

// rewriteListBucketsAccessDenied: a ListBuckets call answered with a
// redirect-shaped denial is rewritten to AccessDenied rather than
// surfacing as a generic ServerError/UnexpectedStatus.
func rewriteListBucketsAccessDenied(d *s3url.Descriptor, err *s3errors.Error) *s3errors.Error {
	if d.Bucket == "" && d.Key == "" && d.Method == http.MethodGet && err.Code == "TemporaryRedirect" {
		err.Kind = s3errors.KindAccessDenied
	}
	return err
}

func bodyReader(body []byte) io.Reader {
	if body == nil {
		return nil
	}
	return &byteReader{b: body}
}

// byteReader is a minimal io.Reader over a byte slice, used instead of
// bytes.NewReader's exported *bytes.Reader type so callers can't
// accidentally depend on extra methods (Seek, ReadAt) the signer's
// contract doesn't promise.
type byteReader struct {
	b   []byte
	pos int
}

func (r *byteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.pos:])
	r.pos += n
	return n, nil
}

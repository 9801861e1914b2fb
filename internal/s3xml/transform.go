package s3xml

import (
	"io"

	"crate/internal/s3errors"
)

// Concat reads r to completion into a single byte slice, the building block
// every non-streaming parser in this package is written against. limit
// caps how many bytes are read; exceeding it is an error rather than a
// silent truncation, since a truncated XML document would otherwise fail
// later with a confusing parse error.
func Concat(r io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(r, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, s3errors.Wrap(s3errors.KindNetwork, err, "reading response body")
	}
	if int64(len(data)) > limit {
		return nil, s3errors.New(s3errors.KindUnexpectedStatus, "response body exceeds %d byte limit", limit)
	}
	return data, nil
}

// Passthrough returns r unchanged. It is the identity transformer for
// operations like GetObject where the caller wants the raw body stream
// rather than a parsed record.
func Passthrough(r io.Reader) io.Reader {
	return r
}

// SizeVerifyingReader wraps a reader and records an error, observable after
// the stream is fully drained, if the number of bytes read doesn't match
// expected.
type SizeVerifyingReader struct {
	r        io.Reader
	expected int64
	read     int64
	err      error
}

func (s *SizeVerifyingReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	s.read += int64(n)
	if err == io.EOF {
		if s.read != s.expected {
			s.err = s3errors.New(s3errors.KindSizeMismatch, "expected %d bytes, got %d", s.expected, s.read)
			return n, s.err
		}
	}
	return n, err
}

// Err reports the size mismatch observed at EOF, if any. Callers must fully
// drain the reader (read to io.EOF) before calling Err.
func (s *SizeVerifyingReader) Err() error {
	return s.err
}

// SizeVerifier wraps r so that draining it to EOF fails with
// KindSizeMismatch if the total byte count read differs from expected.
// The multipart orchestrator wraps every upload body with it; GetObject
// does not use it.
func SizeVerifier(r io.Reader, expected int64) *SizeVerifyingReader {
	return &SizeVerifyingReader{r: r, expected: expected}
}

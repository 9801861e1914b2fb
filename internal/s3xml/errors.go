package s3xml

import (
	"encoding/xml"
	"io"

	"crate/internal/s3errors"
)

// errorDocument mirrors the <Error> body S3 writes alongside every non-2xx
// response.
type errorDocument struct {
	XMLName   xml.Name `xml:"Error"`
	Code      string   `xml:"Code"`
	Message   string   `xml:"Message"`
	Resource  string   `xml:"Resource"`
	RequestID string   `xml:"RequestId"`
}

// maxErrorBody bounds how much of an error body Concat will buffer before
// giving up; S3 error documents are always tiny, a misbehaving endpoint
// streaming gigabytes of "error" should not be read to completion.
const maxErrorBody = 64 * 1024

// ParseError turns a non-success response into a *s3errors.Error. If body
// doesn't parse as an <Error> document — a proxy's HTML error page, a
// truncated body — the result is KindUnexpectedStatus instead of
// KindServerError.
func ParseError(statusCode int, body io.Reader) *s3errors.Error {
	raw, err := Concat(body, maxErrorBody)
	if err != nil {
		return s3errors.Wrap(s3errors.KindUnexpectedStatus, err, "reading error body (status %d)", statusCode)
	}

	var doc errorDocument
	if err := xml.Unmarshal(raw, &doc); err != nil || doc.Code == "" {
		return &s3errors.Error{
			Kind:       s3errors.KindUnexpectedStatus,
			StatusCode: statusCode,
			Message:    string(raw),
		}
	}

	switch doc.Code {
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return &s3errors.Error{
			Kind:       s3errors.KindAccessDenied,
			StatusCode: statusCode,
			Code:       doc.Code,
			Message:    doc.Message,
			Resource:   doc.Resource,
			RequestID:  doc.RequestID,
		}
	default:
		return &s3errors.Error{
			Kind:       s3errors.KindServerError,
			StatusCode: statusCode,
			Code:       doc.Code,
			Message:    doc.Message,
			Resource:   doc.Resource,
			RequestID:  doc.RequestID,
		}
	}
}

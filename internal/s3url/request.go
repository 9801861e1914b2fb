// Package s3url builds the host/path/query/header quadruple for a logical
// S3 operation under both addressing conventions S3 supports, and escapes
// object keys and query values the way AWS's canonicalization rules
// require.
package s3url

import (
	"net/http"
	"strconv"
	"strings"
)

// Descriptor is the logical request a higher layer wants to make: method,
// bucket, key, query, headers, body. It is built fresh per call. The signer
// leaves it unchanged, except that PresignURL appends its X-Amz-* query
// parameters to Query.
type Descriptor struct {
	Method string
	Bucket string

	// Key is the object key, already escaped via EscapeObjectKey. Empty for
	// bucket- and service-level operations.
	Key string

	// Query is an already-escaped list of "k=v" or "k" tokens (see
	// EscapeQueryValue), in any order; Build sorts them with
	// CanonicalQueryString.
	Query []string

	Header http.Header

	// Body is the fully materialized payload. Header signing requires the
	// payload be fully materialized before signing, so this is always
	// []byte, never a stream, by the time it reaches the signer.
	Body []byte
}

// NewDescriptor returns a Descriptor with an initialized header map, ready
// for a caller to fill in.
func NewDescriptor(method, bucket, key string) *Descriptor {
	return &Descriptor{
		Method: method,
		Bucket: bucket,
		Key:    key,
		Header: make(http.Header),
	}
}

// Line is the resolved host/port/scheme/path/header quadruple a Descriptor
// compiles to for one Endpoint.
type Line struct {
	Scheme string
	Host   string // host name without port, "bucket.host" for virtual-host-style; the Host header adds a non-default port
	Port   int
	Path   string
	Query  string // already "&"-joined, ready to append after '?'
	Header http.Header
}

// Build resolves a Descriptor against an Endpoint into a Line, applying
// the path-style vs virtual-host-style addressing rule.
func Build(d *Descriptor, ep Endpoint) Line {
	line := Line{
		Scheme: ep.Scheme(),
		Port:   ep.Port,
		Header: cloneHeader(d.Header),
	}

	var path strings.Builder
	path.WriteByte('/')

	if ep.PathStyle {
		line.Host = ep.Host
		if d.Bucket != "" {
			path.WriteString(d.Bucket)
			if d.Key != "" {
				path.WriteByte('/')
			}
		}
	} else {
		if d.Bucket != "" {
			line.Host = d.Bucket + "." + ep.Host
		} else {
			line.Host = ep.Host
		}
	}

	path.WriteString(d.Key)
	line.Path = path.String()

	line.Query = CanonicalQueryString(d.Query)

	line.Header.Set("Host", line.hostWithPort())

	return line
}

func cloneHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, v := range h {
		cp := make([]string, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// URL renders the full request URL for a Line, suitable for http.NewRequest
// or for embedding in a presigned URL.
func (l Line) URL() string {
	var b strings.Builder
	b.WriteString(l.Scheme)
	b.WriteString("://")
	b.WriteString(l.hostWithPort())
	b.WriteString(l.Path)
	if l.Query != "" {
		b.WriteByte('?')
		b.WriteString(l.Query)
	}
	return b.String()
}

func (l Line) hostWithPort() string {
	if (l.Scheme == "https" && l.Port == 443) || (l.Scheme == "http" && l.Port == 80) {
		return l.Host
	}
	return l.Host + ":" + strconv.Itoa(l.Port)
}

package s3url

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"crate/internal/s3errors"
)

// Endpoint describes a parsed client endpoint.
type Endpoint struct {
	Host      string
	Port      int
	Secure    bool
	PathStyle bool
}

// ParseEndpoint validates and decomposes a caller-supplied endpoint string.
// Recognized schemes are http (default port 80) and https (default port
// 443); anything else fails construction. When raw has no scheme, it is
// treated as a bare host[:port] the way minio-go's endpoint argument
// works, defaulting to insecure.
func ParseEndpoint(raw string) (Endpoint, error) {
	if raw == "" {
		return Endpoint{}, s3errors.New(s3errors.KindInvalidEndpoint, "endpoint must not be empty")
	}

	withScheme := raw
	if !strings.Contains(raw, "://") {
		withScheme = "http://" + raw
	}

	u, err := url.Parse(withScheme)
	if err != nil {
		return Endpoint{}, s3errors.Wrap(s3errors.KindInvalidEndpoint, err, "parse endpoint %q", raw)
	}

	var secure bool
	switch u.Scheme {
	case "http":
		secure = false
	case "https":
		secure = true
	default:
		return Endpoint{}, s3errors.New(s3errors.KindInvalidProtocol, "unsupported endpoint scheme %q", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return Endpoint{}, s3errors.New(s3errors.KindInvalidEndpoint, "endpoint %q has no host", raw)
	}

	port := 80
	if secure {
		port = 443
	}
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Endpoint{}, s3errors.Wrap(s3errors.KindInvalidEndpoint, err, "invalid port in endpoint %q", raw)
		}
		port = n
	}

	return Endpoint{
		Host:      host,
		Port:      port,
		Secure:    secure,
		PathStyle: !IsAmazonHost(host),
	}, nil
}

// IsAmazonHost decides the addressing mode: any host ending in
// amazonaws.com is Amazon and must equal s3.amazonaws.com exactly; any
// other amazonaws.com subdomain, including region-qualified endpoints
// (s3.<region>.amazonaws.com), is rejected as ambiguous by treating it
// as non-Amazon (path-style).
func IsAmazonHost(host string) bool {
	return strings.ToLower(host) == "s3.amazonaws.com"
}

// HostAndPort renders host:port the way it should appear in the Host
// header and in canonical requests, omitting the port when it matches the
// scheme's default (net.JoinHostPort always includes it, so this is
// deliberately different from that helper).
func (e Endpoint) HostAndPort() string {
	if (e.Secure && e.Port == 443) || (!e.Secure && e.Port == 80) {
		return e.Host
	}
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e Endpoint) Scheme() string {
	if e.Secure {
		return "https"
	}
	return "http"
}

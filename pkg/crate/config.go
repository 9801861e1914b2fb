// Package crate is the public one-to-one method façade over the request
// pipeline in internal/s3url, internal/s3sign, internal/s3region,
// internal/s3xml, and internal/s3multipart — thin wiring over that
// pipeline rather than a reimplementation of it.
package crate

import (
	"log/slog"
	"net/http"

	"crate/internal/s3errors"
	"crate/internal/s3sign"
)

// Config carries every construction-time parameter a Client needs. It is
// built with functional options rather than a constructor with a long
// positional parameter list.
type Config struct {
	endpoint    string
	accessKey   string
	secretKey   string
	sessionTok  string
	region      string
	appName     string
	appVersion  string
	appInfoSet  bool
	transport   http.RoundTripper
	logger      *slog.Logger
	concurrency int
}

// ConfigOption mutates a Config under construction.
type ConfigOption func(*Config)

// WithRegion pins the client to a region instead of letting the region
// resolver bootstrap one per bucket. us-east-1 is also the default region
// and does not pin: with it, bucket regions still come from the resolver.
func WithRegion(region string) ConfigOption {
	return func(c *Config) { c.region = region }
}

// WithSessionToken attaches a temporary STS session token.
func WithSessionToken(token string) ConfigOption {
	return func(c *Config) { c.sessionTok = token }
}

// WithTransport overrides the underlying http.RoundTripper, e.g. to inject
// a test transport or connection pooling tuned for large uploads.
func WithTransport(rt http.RoundTripper) ConfigOption {
	return func(c *Config) { c.transport = rt }
}

// WithLogger overrides the *slog.Logger the client logs diagnostics
// through. The default is slog.Default(); the internal packages never
// call slog.SetDefault themselves (only cmd/crate-example does), and no
// error path logs on the caller's behalf.
func WithLogger(logger *slog.Logger) ConfigOption {
	return func(c *Config) { c.logger = logger }
}

// WithPartConcurrency bounds how many multipart parts may upload
// concurrently. Default is 4.
func WithPartConcurrency(n int) ConfigOption {
	return func(c *Config) { c.concurrency = n }
}

// NewConfig builds a Config from an endpoint URL, an access key, a secret
// key, and any number of options.
func NewConfig(endpoint, accessKey, secretKey string, opts ...ConfigOption) (Config, error) {
	if accessKey == "" || secretKey == "" {
		return Config{}, s3errors.InvalidArgument("access key and secret key must not be empty")
	}

	cfg := Config{
		endpoint:    endpoint,
		accessKey:   accessKey,
		secretKey:   secretKey,
		region:      "us-east-1",
		logger:      slog.Default(),
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg, nil
}

func (c Config) credentials() s3sign.Credentials {
	return s3sign.Credentials{
		AccessKeyID:     c.accessKey,
		SecretAccessKey: c.secretKey,
		SessionToken:    c.sessionTok,
	}
}

// userAgent renders a Minio-family User-Agent string:
// "Minio (OS; ARCH) lib/VERSION [app/VERSION]".
func (c Config) userAgent() string {
	base := "Minio (" + runtimeOS + "; " + runtimeArch + ") crate/" + libraryVersion
	if c.appName != "" {
		base += " " + c.appName + "/" + c.appVersion
	}
	return base
}

// libraryVersion is this module's reported client version.
const libraryVersion = "1.0.0"

// httpClientFor builds the *http.Client a Client uses, honoring a caller
// override. Request timeouts are left entirely to the transport, so no
// per-request deadline is imposed here.
func httpClientFor(rt http.RoundTripper) *http.Client {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return &http.Client{Transport: rt}
}

package crate

import (
	"context"
	"net/http"
	"runtime"

	"crate/internal/s3errors"
	"crate/internal/s3multipart"
	"crate/internal/s3region"
	"crate/internal/s3url"

	md5simd "github.com/minio/md5-simd"
)

const (
	runtimeOS   = runtime.GOOS
	runtimeArch = runtime.GOARCH
)

// Client is the public façade wiring internal/s3url, internal/s3sign,
// internal/s3region, internal/s3xml, and internal/s3multipart into a
// one-to-one method surface, the way minio.Client wraps minio.Core.
type Client struct {
	cfg      Config
	endpoint s3url.Endpoint
	http     *http.Client
	resolver *s3region.Resolver
	md5      md5simd.Server
	orch     *s3multipart.Orchestrator
}

// New constructs a Client from a Config.
func New(cfg Config) (*Client, error) {
	ep, err := s3url.ParseEndpoint(cfg.endpoint)
	if err != nil {
		return nil, err
	}

	httpClient := httpClientFor(cfg.transport)

	c := &Client{
		cfg:      cfg,
		endpoint: ep,
		http:     httpClient,
		md5:      md5simd.NewServer(),
	}

	c.resolver = s3region.NewResolver(s3region.NewCache(), ep.PathStyle, c.fetchBucketRegion)
	c.orch = s3multipart.NewOrchestrator((*multipartBackend)(c), c.md5)

	return c, nil
}

// Close releases the Client's shared md5-simd hashing server. It does not
// close connections held by the configured http.Client's transport.
func (c *Client) Close() {
	c.md5.Close()
}

// SetAppInfo appends an application name/version to the User-Agent string
// sent with every subsequent request. It may be called at most once.
func (c *Client) SetAppInfo(name, version string) error {
	if c.cfg.appInfoSet {
		return s3errors.InvalidArgument("app info already set")
	}
	if name == "" || version == "" {
		return s3errors.InvalidArgument("app name and version must not be empty")
	}
	c.cfg.appName, c.cfg.appVersion = name, version
	c.cfg.appInfoSet = true
	return nil
}

// regionFor resolves bucket's region, honoring a pinned Config region
// before falling through to the resolver's cache/bootstrap path.
func (c *Client) regionFor(ctx context.Context, bucket string) (string, error) {
	if c.cfg.region != "" && c.cfg.region != "us-east-1" {
		return c.cfg.region, nil
	}
	return c.resolver.RegionOf(ctx, bucket)
}

package crate

import (
	"context"
	"net/http"

	"crate/internal/s3region"
	"crate/internal/s3url"
	"crate/internal/s3xml"
)

// fetchBucketRegion implements s3region.Fetcher: GET /{bucket}?location
// against the default region.
func (c *Client) fetchBucketRegion(ctx context.Context, bucket string) (string, error) {
	d := s3url.NewDescriptor(http.MethodGet, bucket, "")
	d.Query = []string{"location"}

	resp, err := c.signedCall(ctx, d, nil, s3region.DefaultRegion)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	return s3xml.BucketRegionParser(resp.Body)
}

package crate

import (
	"context"
	"net/http"
	"time"

	"crate/internal/s3errors"
	"crate/internal/s3url"
	"crate/internal/s3xml"
)

// BucketInfo is one row of ListBuckets' result.
type BucketInfo struct {
	Name         string
	CreationDate time.Time
}

// MakeBucket creates bucket in region, or the client's default region if
// region is empty.
func (c *Client) MakeBucket(ctx context.Context, bucket, region string) error {
	if err := validateBucketName(bucket); err != nil {
		return err
	}

	if region == "" {
		region = c.cfg.region
	}

	d := s3url.NewDescriptor(http.MethodPut, bucket, "")
	body, err := s3xml.EncodeCreateBucketConfiguration(region)
	if err != nil {
		return err
	}
	d.Body = body

	resp, err := c.call(ctx, d, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// BucketExists reports whether bucket exists and is accessible.
func (c *Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	if err := validateBucketName(bucket); err != nil {
		return false, err
	}

	d := s3url.NewDescriptor(http.MethodHead, bucket, "")
	resp, err := c.call(ctx, d, nil)
	if err != nil {
		if s3errors.KindOf(err) == s3errors.KindServerError || s3errors.KindOf(err) == s3errors.KindUnexpectedStatus {
			return false, nil
		}
		return false, err
	}
	defer resp.Body.Close()
	return true, nil
}

// RemoveBucket deletes an empty bucket.
func (c *Client) RemoveBucket(ctx context.Context, bucket string) error {
	if err := validateBucketName(bucket); err != nil {
		return err
	}

	d := s3url.NewDescriptor(http.MethodDelete, bucket, "")
	resp, err := c.call(ctx, d, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// ListBuckets lists every bucket owned by the caller's credentials.
func (c *Client) ListBuckets(ctx context.Context) ([]BucketInfo, error) {
	d := s3url.NewDescriptor(http.MethodGet, "", "")
	resp, err := c.call(ctx, d, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	rows, err := s3xml.ListBucketsParser(resp.Body)
	if err != nil {
		return nil, err
	}

	buckets := make([]BucketInfo, 0, len(rows))
	for _, r := range rows {
		buckets = append(buckets, BucketInfo{Name: r.Name, CreationDate: r.CreationDate})
	}
	return buckets, nil
}

// GetBucketLocation returns bucket's region, using the same resolver and
// cache PutObject and GetObject consult.
func (c *Client) GetBucketLocation(ctx context.Context, bucket string) (string, error) {
	if err := validateBucketName(bucket); err != nil {
		return "", err
	}
	return c.regionFor(ctx, bucket)
}

// ACLGrant is one grant row of a bucket or object ACL.
type ACLGrant struct {
	GranteeURI string
	Permission string
}

// GetBucketACL returns bucket's access-control grants.
func (c *Client) GetBucketACL(ctx context.Context, bucket string) ([]ACLGrant, error) {
	if err := validateBucketName(bucket); err != nil {
		return nil, err
	}

	d := s3url.NewDescriptor(http.MethodGet, bucket, "")
	d.Query = []string{"acl"}

	resp, err := c.call(ctx, d, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	grants, err := s3xml.AclParser(resp.Body)
	if err != nil {
		return nil, err
	}
	return toACLGrants(grants), nil
}

// SetBucketACL applies a canned ACL to bucket.
func (c *Client) SetBucketACL(ctx context.Context, bucket, cannedACL string) error {
	if err := validateBucketName(bucket); err != nil {
		return err
	}
	if err := validateCannedACL(cannedACL); err != nil {
		return err
	}

	d := s3url.NewDescriptor(http.MethodPut, bucket, "")
	d.Query = []string{"acl"}
	d.Header.Set("x-amz-acl", cannedACL)

	resp, err := c.call(ctx, d, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

func toACLGrants(rows []s3xml.Grant) []ACLGrant {
	grants := make([]ACLGrant, 0, len(rows))
	for _, r := range rows {
		grants = append(grants, ACLGrant{GranteeURI: r.GranteeURI, Permission: r.Permission})
	}
	return grants
}

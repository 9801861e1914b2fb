package crate

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"crate/internal/s3errors"
	"crate/internal/s3sign"
	"crate/internal/s3url"
)

// PresignedGetObject returns a URL that grants time-limited, unauthenticated
// GET access to bucket/key (SigV4 Mode B).
func (c *Client) PresignedGetObject(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	return c.presignedURL(ctx, http.MethodGet, bucket, key, expiry)
}

// PresignedPutObject returns a URL that grants time-limited, unauthenticated
// PUT access to bucket/key.
func (c *Client) PresignedPutObject(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	return c.presignedURL(ctx, http.MethodPut, bucket, key, expiry)
}

// PresignedHeadObject returns a URL that grants time-limited, unauthenticated
// HEAD access to bucket/key.
func (c *Client) PresignedHeadObject(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	return c.presignedURL(ctx, http.MethodHead, bucket, key, expiry)
}

func (c *Client) presignedURL(ctx context.Context, method, bucket, key string, expiry time.Duration) (string, error) {
	if err := validateBucketName(bucket); err != nil {
		return "", err
	}
	if err := validateObjectKey(key); err != nil {
		return "", err
	}

	region, err := c.regionFor(ctx, bucket)
	if err != nil {
		return "", err
	}

	d := s3url.NewDescriptor(method, bucket, s3url.EscapeObjectKey(key))
	return s3sign.PresignURL(d, c.endpoint, c.cfg.credentials(), region, expiry, time.Now())
}

// policyCondition is one row of a PostPolicy's Conditions array, marshaled
// as the three-element JSON array S3 expects: ["eq", "$key", "value"] or
// ["content-length-range", min, max].
type policyCondition []any

// PostPolicy is a structured browser POST-upload policy document. Build
// one with NewPostPolicy, populate it with the Set* methods, then pass it
// to Client.PresignedPostPolicy.
type PostPolicy struct {
	expiration time.Time
	conditions []policyCondition
	formData   map[string]string
}

// NewPostPolicy returns an empty PostPolicy.
func NewPostPolicy() *PostPolicy {
	return &PostPolicy{formData: make(map[string]string)}
}

// SetExpires sets the policy's expiration timestamp.
func (p *PostPolicy) SetExpires(t time.Time) error {
	if t.IsZero() {
		return s3errors.InvalidArgument("expiration time must not be zero")
	}
	p.expiration = t
	return nil
}

// SetBucket sets the exact-match bucket condition.
func (p *PostPolicy) SetBucket(bucket string) error {
	if err := validateBucketName(bucket); err != nil {
		return err
	}
	p.conditions = append(p.conditions, policyCondition{"eq", "$bucket", bucket})
	p.formData["bucket"] = bucket
	return nil
}

// SetKey sets an exact-match key condition, allowing exactly one object key
// to be uploaded under this policy.
func (p *PostPolicy) SetKey(key string) error {
	if err := validateObjectKey(key); err != nil {
		return err
	}
	p.conditions = append(p.conditions, policyCondition{"eq", "$key", key})
	p.formData["key"] = key
	return nil
}

// SetKeyStartsWith sets a prefix-match key condition, allowing any object
// key with the given prefix to be uploaded under this policy. The form's
// key field is set to the prefix itself; the browser form is expected to
// append the filename.
func (p *PostPolicy) SetKeyStartsWith(prefix string) error {
	if prefix == "" {
		return s3errors.InvalidArgument("key prefix must not be empty")
	}
	p.conditions = append(p.conditions, policyCondition{"starts-with", "$key", prefix})
	p.formData["key"] = prefix
	return nil
}

// SetContentType sets an exact-match Content-Type condition.
func (p *PostPolicy) SetContentType(contentType string) error {
	if contentType == "" {
		return s3errors.InvalidArgument("content type must not be empty")
	}
	p.conditions = append(p.conditions, policyCondition{"eq", "$Content-Type", contentType})
	p.formData["Content-Type"] = contentType
	return nil
}

// SetContentLengthRange restricts the uploaded object's size to [min, max]
// bytes, inclusive.
func (p *PostPolicy) SetContentLengthRange(min, max int64) error {
	if min < 0 || max < min {
		return s3errors.InvalidArgument("invalid content-length range [%d, %d]", min, max)
	}
	p.conditions = append(p.conditions, policyCondition{"content-length-range", min, max})
	return nil
}

// SetCondition adds an arbitrary eq/starts-with condition and its matching
// form field, for policy elements this type has no dedicated setter for.
func (p *PostPolicy) SetCondition(matchType, key, value string) error {
	if matchType != "eq" && matchType != "starts-with" {
		return s3errors.InvalidArgument("unsupported match type %q", matchType)
	}
	p.conditions = append(p.conditions, policyCondition{matchType, "$" + key, value})
	p.formData[key] = value
	return nil
}

func (p *PostPolicy) hasCondition(key string) bool {
	for _, c := range p.conditions {
		if len(c) >= 2 && c[1] == "$"+key {
			return true
		}
	}
	return false
}

type policyDocument struct {
	Expiration string            `json:"expiration"`
	Conditions []policyCondition `json:"conditions"`
}

// PresignedPostPolicy signs policy and returns the form-post URL and the
// full set of form fields (including the signature) a browser must submit
// alongside the file, per SigV4 Mode C.
func (c *Client) PresignedPostPolicy(ctx context.Context, policy *PostPolicy) (string, map[string]string, error) {
	bucket, ok := policy.formData["bucket"]
	if !ok {
		return "", nil, s3errors.InvalidArgument("policy must have a bucket condition")
	}
	if policy.expiration.Before(time.Now()) {
		return "", nil, s3errors.InvalidArgument("policy expiration must not be in the past")
	}
	if !policy.hasCondition("key") {
		return "", nil, s3errors.InvalidArgument("policy must have a key or key-prefix condition")
	}
	if _, hasContentType := policy.formData["Content-Type"]; hasContentType && !policy.hasCondition("Content-Type") {
		return "", nil, s3errors.InvalidArgument("policy has a Content-Type form field with no matching condition")
	}

	region, err := c.regionFor(ctx, bucket)
	if err != nil {
		return "", nil, err
	}

	now := time.Now()
	credential := s3sign.CredentialValue(c.cfg.accessKey, now, region)
	amzDate := now.UTC().Format(s3sign.AmzDateLayout)

	doc := policyDocument{
		Expiration: policy.expiration.UTC().Format(time.RFC3339),
		Conditions: append(policy.conditions,
			policyCondition{"eq", "$x-amz-algorithm", s3sign.Algorithm},
			policyCondition{"eq", "$x-amz-credential", credential},
			policyCondition{"eq", "$x-amz-date", amzDate},
		),
	}
	if sessionToken := c.cfg.sessionTok; sessionToken != "" {
		doc.Conditions = append(doc.Conditions, policyCondition{"eq", "$x-amz-security-token", sessionToken})
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return "", nil, s3errors.Wrap(s3errors.KindInvalidArgument, err, "encoding POST policy document")
	}
	encoded := base64.StdEncoding.EncodeToString(raw)
	signature := s3sign.SignPolicy(encoded, c.cfg.secretKey, now, region)

	form := make(map[string]string, len(policy.formData)+5)
	for k, v := range policy.formData {
		form[k] = v
	}
	form["policy"] = encoded
	form["x-amz-algorithm"] = s3sign.Algorithm
	form["x-amz-credential"] = credential
	form["x-amz-date"] = amzDate
	form["x-amz-signature"] = signature
	if c.cfg.sessionTok != "" {
		form["x-amz-security-token"] = c.cfg.sessionTok
	}

	d := s3url.NewDescriptor(http.MethodPost, bucket, "")
	line := s3url.Build(d, c.endpoint)
	return line.URL(), form, nil
}

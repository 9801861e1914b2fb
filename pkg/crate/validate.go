package crate

import (
	"regexp"

	"crate/internal/s3errors"
)

// bucketNameRE approximates S3's DNS-compliant bucket-name grammar:
// 3-63 characters, lowercase letters, digits, dots, and hyphens, starting
// and ending with a letter or digit.
var bucketNameRE = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func validateBucketName(bucket string) error {
	if !bucketNameRE.MatchString(bucket) {
		return s3errors.InvalidArgument("invalid bucket name %q", bucket)
	}
	return nil
}

func validateObjectKey(key string) error {
	if key == "" {
		return s3errors.InvalidArgument("object key must not be empty")
	}
	return nil
}

var validCannedACLs = map[string]bool{
	"private":            true,
	"public-read":        true,
	"public-read-write":  true,
	"authenticated-read": true,
}

func validateCannedACL(acl string) error {
	if !validCannedACLs[acl] {
		return s3errors.InvalidArgument("invalid canned ACL %q", acl)
	}
	return nil
}

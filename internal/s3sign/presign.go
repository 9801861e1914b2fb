package s3sign

import (
	"strconv"
	"strings"
	"time"

	"crate/internal/s3errors"
	"crate/internal/s3url"
)

const (
	MinExpiry = 1 * time.Second
	MaxExpiry = 7 * 24 * time.Hour // 604800 seconds, AWS's own ceiling
)

// PresignURL implements Mode B (query pre-signing). The Authorization
// header is replaced by X-Amz-* query parameters; the payload hash is
// always the literal UNSIGNED-PAYLOAD.
// d must not yet carry any of the X-Amz-* signing parameters; PresignURL
// adds them.
func PresignURL(d *s3url.Descriptor, ep s3url.Endpoint, creds Credentials, region string, expiry time.Duration, now time.Time) (string, error) {
	if expiry < MinExpiry || expiry > MaxExpiry {
		return "", s3errors.InvalidArgument("presign expiry %s out of range [%s, %s]", expiry, MinExpiry, MaxExpiry)
	}

	signedHeaders := []string{"host"}

	d.Query = append(d.Query,
		"X-Amz-Algorithm="+s3url.EscapeQueryValue(Algorithm),
		"X-Amz-Credential="+s3url.EscapeQueryValue(CredentialValue(creds.AccessKeyID, now, region)),
		"X-Amz-Date="+s3url.EscapeQueryValue(now.UTC().Format(AmzDateLayout)),
		"X-Amz-Expires="+s3url.EscapeQueryValue(strconv.FormatInt(int64(expiry/time.Second), 10)),
		"X-Amz-SignedHeaders="+s3url.EscapeQueryValue(strings.Join(signedHeaders, ";")),
	)
	if creds.SessionToken != "" {
		d.Query = append(d.Query, "X-Amz-Security-Token="+s3url.EscapeQueryValue(creds.SessionToken))
	}

	line := s3url.Build(d, ep)

	canonicalRequest := CanonicalRequest(d.Method, line.Path, line.Query, line.Header, signedHeaders, UnsignedPayload)
	scope := Scope(now, region)
	stringToSign := StringToSign(now, scope, canonicalRequest)
	key := SigningKey(creds.SecretAccessKey, now, region)
	signature := Sign(key, stringToSign)

	return line.URL() + "&X-Amz-Signature=" + signature, nil
}


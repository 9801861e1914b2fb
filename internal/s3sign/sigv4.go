package s3sign

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"crate/internal/s3url"
)

// SignRequest implements Mode A (header signing for live requests). It
// mutates line.Header in place, adding x-amz-date, x-amz-content-sha256,
// x-amz-security-token (only when a session token is set), and
// Authorization, and returns the signed-headers list actually used so
// tests can assert on it. The signed-headers set is every header present
// on the line at signing time plus the x-amz-* headers this function
// adds — for a GET with a Range header and nothing else set, that's
// exactly host;range;x-amz-content-sha256;x-amz-date.
func SignRequest(method string, line s3url.Line, creds Credentials, region string, payloadHash string, now time.Time) []string {
	header := line.Header

	header.Set("X-Amz-Date", now.UTC().Format(AmzDateLayout))
	header.Set("X-Amz-Content-Sha256", payloadHash)
	if creds.SessionToken != "" {
		header.Set("X-Amz-Security-Token", creds.SessionToken)
	}

	signedHeaders := sortedLowerNames(header)

	canonicalRequest := CanonicalRequest(method, line.Path, line.Query, header, signedHeaders, payloadHash)
	scope := Scope(now, region)
	stringToSign := StringToSign(now, scope, canonicalRequest)
	key := SigningKey(creds.SecretAccessKey, now, region)
	signature := Sign(key, stringToSign)

	header.Set("Authorization", strings.Join([]string{
		Algorithm + " Credential=" + CredentialValue(creds.AccessKeyID, now, region),
		"SignedHeaders=" + strings.Join(signedHeaders, ";"),
		"Signature=" + signature,
	}, ", "))

	return signedHeaders
}

func sortedLowerNames(h http.Header) []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, strings.ToLower(name))
	}
	sort.Strings(names)
	return names
}

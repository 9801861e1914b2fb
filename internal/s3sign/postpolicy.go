package s3sign

import "time"

// SignPolicy implements Mode C (POST-policy signing). policyBase64 is the
// already base64-encoded policy document; the caller is responsible for
// the accompanying x-amz-date, x-amz-credential, and x-amz-algorithm form
// fields — this function only produces the signature string.
func SignPolicy(policyBase64 string, secret string, date time.Time, region string) string {
	key := SigningKey(secret, date, region)
	return Sign(key, policyBase64)
}

package s3xml

import (
	"encoding/xml"
	"io"

	"crate/internal/s3errors"
)

// maxListBody bounds how much of a listing page Concat will buffer. A
// single page from any of the list APIs is capped at 1000 rows by S3 itself,
// so a page nowhere near approaches this; it exists to keep a misbehaving
// endpoint from exhausting memory the way maxErrorBody does for errors.
const maxListBody = 16 * 1024 * 1024

// ListBucketsParser decodes a ListBuckets response body.
func ListBucketsParser(body io.Reader) ([]BucketEntry, error) {
	raw, err := Concat(body, maxListBody)
	if err != nil {
		return nil, err
	}

	var doc listAllMyBucketsResult
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, s3errors.Wrap(s3errors.KindUnexpectedStatus, err, "parsing ListBuckets response")
	}
	return doc.Buckets.Bucket, nil
}

// ListObjectsParser decodes one page of a ListObjects(V1 or V2) response.
func ListObjectsParser(body io.Reader) (ListObjectsPage, error) {
	raw, err := Concat(body, maxListBody)
	if err != nil {
		return ListObjectsPage{}, err
	}

	var doc listBucketResult
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return ListObjectsPage{}, s3errors.Wrap(s3errors.KindUnexpectedStatus, err, "parsing ListObjects response")
	}

	page := ListObjectsPage{
		Objects:     doc.Contents,
		IsTruncated: doc.IsTruncated,
	}
	for _, p := range doc.CommonPrefixes {
		page.Prefixes = append(page.Prefixes, p.Prefix)
	}

	switch {
	case doc.NextContinuationToken != "":
		page.NextMarker = doc.NextContinuationToken
	case doc.NextMarker != "":
		page.NextMarker = doc.NextMarker
	case page.IsTruncated && len(doc.Contents) > 0:
		// ListObjects V1 omits NextMarker unless the request used delimiter;
		// the next page continues from the last key returned.
		page.NextMarker = doc.Contents[len(doc.Contents)-1].Key
	}

	return page, nil
}

// ListMultipartUploadsParser decodes one page of a ListMultipartUploads
// response.
func ListMultipartUploadsParser(body io.Reader) (ListMultipartUploadsPage, error) {
	raw, err := Concat(body, maxListBody)
	if err != nil {
		return ListMultipartUploadsPage{}, err
	}

	var doc listMultipartUploadsResult
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return ListMultipartUploadsPage{}, s3errors.Wrap(s3errors.KindUnexpectedStatus, err, "parsing ListMultipartUploads response")
	}

	page := ListMultipartUploadsPage{
		Uploads:            doc.Upload,
		IsTruncated:        doc.IsTruncated,
		NextKeyMarker:      doc.NextKeyMarker,
		NextUploadIDMarker: doc.NextUploadIDMarker,
	}
	for _, p := range doc.CommonPrefixes {
		page.Prefixes = append(page.Prefixes, p.Prefix)
	}
	return page, nil
}

// ListPartsParser decodes one page of a ListParts response.
func ListPartsParser(body io.Reader) (ListPartsPage, error) {
	raw, err := Concat(body, maxListBody)
	if err != nil {
		return ListPartsPage{}, err
	}

	var doc listPartsResult
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return ListPartsPage{}, s3errors.Wrap(s3errors.KindUnexpectedStatus, err, "parsing ListParts response")
	}

	return ListPartsPage{
		Parts:                doc.Part,
		IsTruncated:          doc.IsTruncated,
		NextPartNumberMarker: doc.NextPartNumberMarker,
	}, nil
}

// BucketRegionParser decodes the GET /{bucket}?location response used by
// the region resolver's bootstrap lookup. An empty LocationConstraint
// element means us-east-1, the one case S3 represents its default region
// as an absent value instead of the literal string.
func BucketRegionParser(body io.Reader) (string, error) {
	raw, err := Concat(body, maxListBody)
	if err != nil {
		return "", err
	}

	var doc locationConstraint
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return "", s3errors.Wrap(s3errors.KindUnexpectedStatus, err, "parsing GetBucketLocation response")
	}
	if doc.Region == "" {
		return "us-east-1", nil
	}
	return doc.Region, nil
}

// AclParser decodes a GetBucketAcl/GetObjectAcl response into its grant
// rows.
func AclParser(body io.Reader) ([]Grant, error) {
	raw, err := Concat(body, maxListBody)
	if err != nil {
		return nil, err
	}

	var doc accessControlPolicy
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, s3errors.Wrap(s3errors.KindUnexpectedStatus, err, "parsing AccessControlPolicy response")
	}

	grants := make([]Grant, 0, len(doc.AccessControlList.Grant))
	for _, g := range doc.AccessControlList.Grant {
		grants = append(grants, Grant{GranteeURI: g.Grantee.URI, Permission: g.Permission})
	}
	return grants, nil
}

// InitiateMultipartUploadParser decodes the response to an Initiate call,
// returning the server-issued UploadID.
func InitiateMultipartUploadParser(body io.Reader) (string, error) {
	raw, err := Concat(body, maxListBody)
	if err != nil {
		return "", err
	}

	var result initiateMultipartUploadResult
	if err := xml.Unmarshal(raw, &result); err != nil {
		return "", s3errors.Wrap(s3errors.KindUnexpectedStatus, err, "parsing InitiateMultipartUpload response")
	}
	if result.UploadID == "" {
		return "", s3errors.New(s3errors.KindUnexpectedStatus, "InitiateMultipartUpload response has no UploadId")
	}
	return result.UploadID, nil
}

// CompleteMultipartUploadParser decodes the final CompleteMultipartUpload
// response.
func CompleteMultipartUploadParser(body io.Reader) (CompleteMultipartUploadResult, error) {
	raw, err := Concat(body, maxListBody)
	if err != nil {
		return CompleteMultipartUploadResult{}, err
	}

	var result CompleteMultipartUploadResult
	if err := xml.Unmarshal(raw, &result); err != nil {
		return CompleteMultipartUploadResult{}, s3errors.Wrap(s3errors.KindUnexpectedStatus, err, "parsing CompleteMultipartUpload response")
	}
	return result, nil
}

// EncodeCompleteMultipartUpload builds the XML request body for
// CompleteMultipartUpload, writing parts in the order given. Callers are
// responsible for sorting by PartNumber first.
func EncodeCompleteMultipartUpload(parts []CompletedPart) ([]byte, error) {
	body, err := xml.Marshal(completeMultipartUpload{Part: parts})
	if err != nil {
		return nil, s3errors.Wrap(s3errors.KindInvalidArgument, err, "encoding CompleteMultipartUpload request")
	}
	return append([]byte(xml.Header), body...), nil
}

// EncodeCreateBucketConfiguration builds the XML request body that pins a
// new bucket's region on creation, or nil if region is the implicit
// default and no body is needed.
func EncodeCreateBucketConfiguration(region string) ([]byte, error) {
	if region == "" || region == "us-east-1" {
		return nil, nil
	}
	body, err := xml.Marshal(createBucketConfiguration{LocationConstraint: region})
	if err != nil {
		return nil, s3errors.Wrap(s3errors.KindInvalidArgument, err, "encoding CreateBucketConfiguration request")
	}
	return append([]byte(xml.Header), body...), nil
}

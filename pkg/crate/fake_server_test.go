package crate_test

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeS3Server is a minimal, in-memory stand-in for an S3-compatible
// endpoint, just enough surface to exercise the façade end to end: bucket
// CRUD, single and multipart object upload, listing, and location lookup.
// It performs no signature verification — that contract is covered by
// internal/s3sign's own tests — so it can focus entirely on request
// shape and response bodies.
type fakeS3Server struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string]fakeObject // "bucket/key" -> object
	uploads map[string]*fakeUpload
	nextID  int
	region  string
}

type fakeObject struct {
	body        []byte
	contentType string
	etag        string
	modified    time.Time
}

type fakeUpload struct {
	bucket, key string
	contentType string
	parts       map[int][]byte
}

func newFakeS3Server(t *testing.T) (*fakeS3Server, *httptest.Server) {
	t.Helper()

	s := &fakeS3Server{
		buckets: make(map[string]bool),
		objects: make(map[string]fakeObject),
		uploads: make(map[string]*fakeUpload),
		region:  "us-east-1",
	}
	httpSrv := httptest.NewServer(s)
	t.Cleanup(httpSrv.Close)
	return s, httpSrv
}

func objectKey(bucket, key string) string { return bucket + "/" + key }

func etagOf(body []byte) string {
	sum := md5.Sum(body)
	return hex.EncodeToString(sum[:])
}

func (s *fakeS3Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
	bucket := parts[0]
	var key string
	if len(parts) == 2 {
		key = parts[1]
	}
	q := r.URL.Query()

	switch {
	case bucket == "" && r.Method == http.MethodGet:
		s.listBuckets(w)
	case key == "" && r.Method == http.MethodPut:
		s.buckets[bucket] = true
		w.WriteHeader(http.StatusOK)
	case key == "" && r.Method == http.MethodHead:
		if !s.buckets[bucket] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case key == "" && r.Method == http.MethodDelete:
		delete(s.buckets, bucket)
		w.WriteHeader(http.StatusNoContent)
	case key == "" && q.Has("location"):
		s.getBucketLocation(w)
	case key == "" && q.Has("acl") && r.Method == http.MethodGet:
		s.getBucketACL(w)
	case key == "" && q.Has("acl") && r.Method == http.MethodPut:
		w.WriteHeader(http.StatusOK)
	case key == "" && q.Has("uploads"):
		s.listMultipartUploads(w, bucket, q)
	case key == "" && r.Method == http.MethodGet:
		s.listObjects(w, bucket, q)
	case r.Method == http.MethodPost && q.Has("uploads"):
		s.initiateUpload(w, bucket, key, r)
	case r.Method == http.MethodPost && q.Has("uploadId"):
		s.completeUpload(w, bucket, key, q.Get("uploadId"), r)
	case r.Method == http.MethodPut && q.Has("uploadId") && q.Has("partNumber"):
		s.uploadPart(w, q.Get("uploadId"), q.Get("partNumber"), r)
	case r.Method == http.MethodPut:
		s.putObject(w, bucket, key, r)
	case r.Method == http.MethodGet && q.Has("uploadId"):
		s.listParts(w, q.Get("uploadId"))
	case r.Method == http.MethodGet:
		s.getObject(w, bucket, key, r)
	case r.Method == http.MethodHead:
		s.headObject(w, bucket, key)
	case r.Method == http.MethodDelete && q.Has("uploadId"):
		delete(s.uploads, q.Get("uploadId"))
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodDelete:
		delete(s.objects, objectKey(bucket, key))
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *fakeS3Server) listBuckets(w http.ResponseWriter) {
	type bucketXML struct {
		Name         string    `xml:"Name"`
		CreationDate time.Time `xml:"CreationDate"`
	}
	type result struct {
		XMLName string `xml:"ListAllMyBucketsResult"`
		Buckets struct {
			Bucket []bucketXML `xml:"Bucket"`
		} `xml:"Buckets"`
	}
	var res result
	names := make([]string, 0, len(s.buckets))
	for b := range s.buckets {
		names = append(names, b)
	}
	sort.Strings(names)
	for _, b := range names {
		res.Buckets.Bucket = append(res.Buckets.Bucket, bucketXML{Name: b, CreationDate: time.Unix(0, 0).UTC()})
	}
	writeXML(w, res)
}

func (s *fakeS3Server) getBucketLocation(w http.ResponseWriter) {
	type result struct {
		XMLName string `xml:"LocationConstraint"`
		Region  string `xml:",chardata"`
	}
	region := s.region
	if region == "us-east-1" {
		region = ""
	}
	writeXML(w, result{Region: region})
}

func (s *fakeS3Server) getBucketACL(w http.ResponseWriter) {
	type grant struct {
		Grantee struct {
			URI string `xml:"URI"`
		} `xml:"Grantee"`
		Permission string `xml:"Permission"`
	}
	type result struct {
		XMLName           string `xml:"AccessControlPolicy"`
		AccessControlList struct {
			Grant []grant `xml:"Grant"`
		} `xml:"AccessControlList"`
	}
	var res result
	g := grant{Permission: "FULL_CONTROL"}
	g.Grantee.URI = "http://acs.amazonaws.com/groups/global/AllUsers"
	res.AccessControlList.Grant = append(res.AccessControlList.Grant, g)
	writeXML(w, res)
}

func (s *fakeS3Server) putObject(w http.ResponseWriter, bucket, key string, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	etag := etagOf(body)
	s.objects[objectKey(bucket, key)] = fakeObject{
		body:        body,
		contentType: r.Header.Get("Content-Type"),
		etag:        etag,
		modified:    time.Now().UTC(),
	}
	w.Header().Set("ETag", `"`+etag+`"`)
	w.WriteHeader(http.StatusOK)
}

func (s *fakeS3Server) getObject(w http.ResponseWriter, bucket, key string, r *http.Request) {
	obj, ok := s.objects[objectKey(bucket, key)]
	if !ok {
		writeS3Error(w, http.StatusNotFound, "NoSuchKey", "key not found")
		return
	}
	body := obj.body
	status := http.StatusOK
	if rng := r.Header.Get("Range"); rng != "" {
		if off, length, ok := parseRange(rng, len(body)); ok {
			body = body[off : off+length]
			status = http.StatusPartialContent
		}
	}
	w.Header().Set("ETag", `"`+obj.etag+`"`)
	w.Header().Set("Content-Type", obj.contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("Last-Modified", obj.modified.Format(http.TimeFormat))
	w.WriteHeader(status)
	w.Write(body)
}

func parseRange(spec string, total int) (int, int, bool) {
	spec = strings.TrimPrefix(spec, "bytes=")
	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	end := total - 1
	if parts[1] != "" {
		end, err = strconv.Atoi(parts[1])
		if err != nil {
			return 0, 0, false
		}
	}
	if end >= total {
		end = total - 1
	}
	if start > end {
		return 0, 0, false
	}
	return start, end - start + 1, true
}

func (s *fakeS3Server) headObject(w http.ResponseWriter, bucket, key string) {
	obj, ok := s.objects[objectKey(bucket, key)]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("ETag", `"`+obj.etag+`"`)
	w.Header().Set("Content-Type", obj.contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.body)))
	w.Header().Set("Last-Modified", obj.modified.Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
}

func (s *fakeS3Server) listObjects(w http.ResponseWriter, bucket string, q map[string][]string) {
	prefix := first(q, "prefix")

	type contentXML struct {
		Key          string    `xml:"Key"`
		LastModified time.Time `xml:"LastModified"`
		ETag         string    `xml:"ETag"`
		Size         int64     `xml:"Size"`
	}
	type result struct {
		XMLName     string       `xml:"ListBucketResult"`
		Contents    []contentXML `xml:"Contents"`
		IsTruncated bool         `xml:"IsTruncated"`
	}

	var res result
	prefixFull := bucket + "/" + prefix
	keys := make([]string, 0)
	for k := range s.objects {
		if strings.HasPrefix(k, bucket+"/") && strings.HasPrefix(k, prefixFull) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		obj := s.objects[k]
		res.Contents = append(res.Contents, contentXML{
			Key:          strings.TrimPrefix(k, bucket+"/"),
			LastModified: obj.modified,
			ETag:         `"` + obj.etag + `"`,
			Size:         int64(len(obj.body)),
		})
	}
	writeXML(w, res)
}

func (s *fakeS3Server) initiateUpload(w http.ResponseWriter, bucket, key string, r *http.Request) {
	s.nextID++
	id := fmt.Sprintf("upload-%d", s.nextID)
	s.uploads[id] = &fakeUpload{bucket: bucket, key: key, contentType: r.Header.Get("Content-Type"), parts: make(map[int][]byte)}

	type result struct {
		XMLName  string `xml:"InitiateMultipartUploadResult"`
		Bucket   string `xml:"Bucket"`
		Key      string `xml:"Key"`
		UploadID string `xml:"UploadId"`
	}
	writeXML(w, result{Bucket: bucket, Key: key, UploadID: id})
}

func (s *fakeS3Server) uploadPart(w http.ResponseWriter, uploadID, partNumberStr string, r *http.Request) {
	up, ok := s.uploads[uploadID]
	if !ok {
		writeS3Error(w, http.StatusNotFound, "NoSuchUpload", "no such upload")
		return
	}
	partNumber, err := strconv.Atoi(partNumberStr)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	up.parts[partNumber] = body
	w.Header().Set("ETag", `"`+etagOf(body)+`"`)
	w.WriteHeader(http.StatusOK)
}

func (s *fakeS3Server) listParts(w http.ResponseWriter, uploadID string) {
	up, ok := s.uploads[uploadID]
	if !ok {
		writeS3Error(w, http.StatusNotFound, "NoSuchUpload", "no such upload")
		return
	}

	type partXML struct {
		PartNumber int    `xml:"PartNumber"`
		ETag       string `xml:"ETag"`
		Size       int64  `xml:"Size"`
	}
	type result struct {
		XMLName              string    `xml:"ListPartsResult"`
		Part                 []partXML `xml:"Part"`
		IsTruncated          bool      `xml:"IsTruncated"`
		NextPartNumberMarker int       `xml:"NextPartNumberMarker"`
	}
	var res result
	numbers := make([]int, 0, len(up.parts))
	for n := range up.parts {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	for _, n := range numbers {
		res.Part = append(res.Part, partXML{PartNumber: n, ETag: `"` + etagOf(up.parts[n]) + `"`, Size: int64(len(up.parts[n]))})
	}
	writeXML(w, res)
}

func (s *fakeS3Server) listMultipartUploads(w http.ResponseWriter, bucket string, q map[string][]string) {
	type uploadXML struct {
		Key       string    `xml:"Key"`
		UploadID  string    `xml:"UploadId"`
		Initiated time.Time `xml:"Initiated"`
	}
	type result struct {
		XMLName     string      `xml:"ListMultipartUploadsResult"`
		Upload      []uploadXML `xml:"Upload"`
		IsTruncated bool        `xml:"IsTruncated"`
	}
	var res result
	ids := make([]string, 0, len(s.uploads))
	for id := range s.uploads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		up := s.uploads[id]
		if up.bucket != bucket {
			continue
		}
		res.Upload = append(res.Upload, uploadXML{Key: up.key, UploadID: id, Initiated: time.Now().UTC()})
	}
	writeXML(w, res)
}

func (s *fakeS3Server) completeUpload(w http.ResponseWriter, bucket, key, uploadID string, r *http.Request) {
	up, ok := s.uploads[uploadID]
	if !ok {
		writeS3Error(w, http.StatusNotFound, "NoSuchUpload", "no such upload")
		return
	}
	io.ReadAll(r.Body) // the part list is trusted; the server already has every part's bytes

	numbers := make([]int, 0, len(up.parts))
	for n := range up.parts {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	var full []byte
	for _, n := range numbers {
		full = append(full, up.parts[n]...)
	}
	etag := etagOf(full)
	s.objects[objectKey(bucket, key)] = fakeObject{body: full, contentType: up.contentType, etag: etag, modified: time.Now().UTC()}
	delete(s.uploads, uploadID)

	type result struct {
		XMLName string `xml:"CompleteMultipartUploadResult"`
		Bucket  string `xml:"Bucket"`
		Key     string `xml:"Key"`
		ETag    string `xml:"ETag"`
	}
	writeXML(w, result{Bucket: bucket, Key: key, ETag: `"` + etag + `"`})
}

func writeXML(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(xml.Header))
	enc := xml.NewEncoder(w)
	_ = enc.Encode(v)
}

func writeS3Error(w http.ResponseWriter, status int, code, message string) {
	type errDoc struct {
		XMLName string `xml:"Error"`
		Code    string `xml:"Code"`
		Message string `xml:"Message"`
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	w.Write([]byte(xml.Header))
	_ = xml.NewEncoder(w).Encode(errDoc{Code: code, Message: message})
}

func first(q map[string][]string, key string) string {
	if v, ok := q[key]; ok && len(v) > 0 {
		return v[0]
	}
	return ""
}

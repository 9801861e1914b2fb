package crate_test

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"crate/pkg/crate"
)

const (
	testAccessKey = "minioadmin"
	testSecretKey = "minioadmin"
)

func newTestClient(t *testing.T, srvURL string) *crate.Client {
	t.Helper()

	cfg, err := crate.NewConfig(srvURL, testAccessKey, testSecretKey, crate.WithRegion("us-east-1"))
	require.NoError(t, err, "NewConfig error")

	client, err := crate.New(cfg)
	require.NoError(t, err, "New error")
	t.Cleanup(client.Close)

	return client
}

func TestBucketLifecycle(t *testing.T) {
	t.Parallel()

	_, httpSrv := newFakeS3Server(t)
	client := newTestClient(t, httpSrv.URL)
	ctx := t.Context()

	exists, err := client.BucketExists(ctx, "mybucket")
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, client.MakeBucket(ctx, "mybucket", ""))

	exists, err = client.BucketExists(ctx, "mybucket")
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, client.MakeBucket(ctx, "otherbucket", ""))

	buckets, err := client.ListBuckets(ctx)
	require.NoError(t, err)
	names := make([]string, len(buckets))
	for i, b := range buckets {
		names[i] = b.Name
	}
	require.ElementsMatch(t, []string{"mybucket", "otherbucket"}, names)

	require.NoError(t, client.RemoveBucket(ctx, "otherbucket"))
}

func TestPutAndGetObject_SmallObjectUsesSinglePut(t *testing.T) {
	t.Parallel()

	_, httpSrv := newFakeS3Server(t)
	client := newTestClient(t, httpSrv.URL)
	ctx := t.Context()

	require.NoError(t, client.MakeBucket(ctx, "mybucket", ""))

	content := []byte("hello, crate!")
	info, err := client.PutObject(ctx, "mybucket", "hello.txt", bytes.NewReader(content), int64(len(content)), crate.PutOptions{
		ContentType:     "text/plain",
		ComputeChecksum: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, info.ETag)
	require.NotEmpty(t, info.ChecksumCRC64NVME)

	body, getInfo, err := client.GetObject(ctx, "mybucket", "hello.txt", crate.GetOptions{})
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	require.Equal(t, content, data)
	require.Equal(t, info.ETag, getInfo.ETag)

	stat, err := client.StatObject(ctx, "mybucket", "hello.txt")
	require.NoError(t, err)
	require.Equal(t, int64(len(content)), stat.Size)

	require.NoError(t, client.RemoveObject(ctx, "mybucket", "hello.txt"))
	_, err = client.StatObject(ctx, "mybucket", "hello.txt")
	require.Error(t, err)
}

func TestGetObject_RangeRequest(t *testing.T) {
	t.Parallel()

	_, httpSrv := newFakeS3Server(t)
	client := newTestClient(t, httpSrv.URL)
	ctx := t.Context()

	require.NoError(t, client.MakeBucket(ctx, "mybucket", ""))

	content := []byte("0123456789")
	_, err := client.PutObject(ctx, "mybucket", "range.txt", bytes.NewReader(content), int64(len(content)), crate.PutOptions{})
	require.NoError(t, err)

	body, _, err := client.GetObject(ctx, "mybucket", "range.txt", crate.GetOptions{Offset: 2, Length: 3})
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	require.Equal(t, []byte("234"), data)
}

func TestPutObject_LargeObjectGoesMultipart(t *testing.T) {
	t.Parallel()

	_, httpSrv := newFakeS3Server(t)
	client := newTestClient(t, httpSrv.URL)
	ctx := t.Context()

	require.NoError(t, client.MakeBucket(ctx, "mybucket", ""))

	const size = 12 * 1024 * 1024 // above the 5 MiB single-PUT threshold
	content := bytes.Repeat([]byte("x"), size)

	info, err := client.PutObject(ctx, "mybucket", "big.bin", bytes.NewReader(content), int64(size), crate.PutOptions{
		ContentType: "application/octet-stream",
		Concurrency: 2,
	})
	require.NoError(t, err)
	require.NotEmpty(t, info.ETag)

	body, getInfo, err := client.GetObject(ctx, "mybucket", "big.bin", crate.GetOptions{})
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	require.Equal(t, size, len(data))
	require.Equal(t, content, data)
	require.Equal(t, int64(size), getInfo.Size)
}

func TestManualMultipartLifecycle(t *testing.T) {
	t.Parallel()

	_, httpSrv := newFakeS3Server(t)
	client := newTestClient(t, httpSrv.URL)
	ctx := t.Context()

	require.NoError(t, client.MakeBucket(ctx, "mybucket", ""))

	uploadID, err := client.NewMultipartUpload(ctx, "mybucket", "manual.bin", "application/octet-stream")
	require.NoError(t, err)
	require.NotEmpty(t, uploadID)

	part1 := bytes.Repeat([]byte("A"), 5*1024*1024)
	part2 := []byte("tail")

	etag1, err := client.PutObjectPart(ctx, "mybucket", "manual.bin", uploadID, 1, bytes.NewReader(part1), int64(len(part1)))
	require.NoError(t, err)
	etag2, err := client.PutObjectPart(ctx, "mybucket", "manual.bin", uploadID, 2, bytes.NewReader(part2), int64(len(part2)))
	require.NoError(t, err)

	var seen []int
	for p, err := range client.ListParts(ctx, "mybucket", "manual.bin", uploadID) {
		require.NoError(t, err)
		seen = append(seen, p.PartNumber)
	}
	require.ElementsMatch(t, []int{1, 2}, seen)

	etag, err := client.CompleteMultipartUpload(ctx, "mybucket", "manual.bin", uploadID, []crate.CompletedPart{
		{PartNumber: 1, ETag: etag1},
		{PartNumber: 2, ETag: etag2},
	})
	require.NoError(t, err)
	require.NotEmpty(t, etag)

	stat, err := client.StatObject(ctx, "mybucket", "manual.bin")
	require.NoError(t, err)
	require.Equal(t, int64(len(part1)+len(part2)), stat.Size)
}

func TestRemoveIncompleteUpload_IsNoopWhenNoneExists(t *testing.T) {
	t.Parallel()

	_, httpSrv := newFakeS3Server(t)
	client := newTestClient(t, httpSrv.URL)
	ctx := t.Context()

	require.NoError(t, client.MakeBucket(ctx, "mybucket", ""))
	require.NoError(t, client.RemoveIncompleteUpload(ctx, "mybucket", "nothing-here.bin"))
}

func TestListObjects_Pagination(t *testing.T) {
	t.Parallel()

	_, httpSrv := newFakeS3Server(t)
	client := newTestClient(t, httpSrv.URL)
	ctx := t.Context()

	require.NoError(t, client.MakeBucket(ctx, "mybucket", ""))

	for _, key := range []string{"a.txt", "b.txt", "c.txt"} {
		_, err := client.PutObject(ctx, "mybucket", key, bytes.NewReader([]byte("x")), 1, crate.PutOptions{})
		require.NoError(t, err)
	}

	var keys []string
	for obj, err := range client.ListObjects(ctx, "mybucket", crate.ListObjectsOptions{}) {
		require.NoError(t, err)
		keys = append(keys, obj.Key)
	}
	require.ElementsMatch(t, []string{"a.txt", "b.txt", "c.txt"}, keys)
}

func TestGetBucketLocation(t *testing.T) {
	t.Parallel()

	srv, httpSrv := newFakeS3Server(t)
	srv.region = "eu-west-1"
	client := newTestClient(t, httpSrv.URL)
	ctx := t.Context()

	require.NoError(t, client.MakeBucket(ctx, "mybucket", ""))

	// The fake server is a self-hosted (path-style) endpoint, so the
	// resolver answers us-east-1 without asking it for the bucket's region.
	region, err := client.GetBucketLocation(ctx, "mybucket")
	require.NoError(t, err)
	require.Equal(t, "us-east-1", region)
}

func TestGetBucketACL(t *testing.T) {
	t.Parallel()

	_, httpSrv := newFakeS3Server(t)
	client := newTestClient(t, httpSrv.URL)
	ctx := t.Context()

	require.NoError(t, client.MakeBucket(ctx, "mybucket", ""))

	grants, err := client.GetBucketACL(ctx, "mybucket")
	require.NoError(t, err)
	require.Len(t, grants, 1)
	require.Equal(t, "FULL_CONTROL", grants[0].Permission)
}

func TestPresignedGetObject_ProducesWorkingURL(t *testing.T) {
	t.Parallel()

	_, httpSrv := newFakeS3Server(t)
	client := newTestClient(t, httpSrv.URL)
	ctx := t.Context()

	require.NoError(t, client.MakeBucket(ctx, "mybucket", ""))
	content := []byte("presigned content")
	_, err := client.PutObject(ctx, "mybucket", "shared.txt", bytes.NewReader(content), int64(len(content)), crate.PutOptions{})
	require.NoError(t, err)

	url, err := client.PresignedGetObject(ctx, "mybucket", "shared.txt", 15*time.Minute)
	require.NoError(t, err)
	require.Contains(t, url, "X-Amz-Signature=")
	require.Contains(t, url, "X-Amz-Expires=900")

	resp, err := httpSrv.Client().Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, content, data)
}

package s3multipart

import (
	"encoding/hex"
	"io"

	md5simd "github.com/minio/md5-simd"
)

// readPart reads exactly partSize bytes from r into a freshly allocated
// buffer, or fewer at end of stream (the final, possibly-short part).
// io.EOF with zero bytes read signals no more parts.
func readPart(r io.Reader, partSize int64) ([]byte, error) {
	buf := make([]byte, partSize)
	n, err := io.ReadFull(r, buf)
	switch err {
	case nil, io.ErrUnexpectedEOF:
		return buf[:n], nil
	case io.EOF:
		return nil, io.EOF
	default:
		return nil, err
	}
}

// hexMD5 computes the hex MD5 digest of body using a pooled md5-simd
// hasher, the same SIMD-accelerated hashing minio-go uses for part
// checksums on uploads.
func hexMD5(server md5simd.Server, body []byte) string {
	hasher := server.NewHash()
	defer hasher.Close()
	hasher.Write(body)
	return hex.EncodeToString(hasher.Sum(nil))
}

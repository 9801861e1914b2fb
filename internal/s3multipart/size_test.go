package s3multipart_test

import (
	"testing"

	"crate/internal/s3multipart"

	"github.com/stretchr/testify/require"
)

func TestPartSize_ClampsToMinimum(t *testing.T) {
	t.Parallel()

	require.EqualValues(t, s3multipart.MinPartSize, s3multipart.PartSize(1))
	require.EqualValues(t, s3multipart.MinPartSize, s3multipart.PartSize(31_457_280)) // 30 MiB
}

func TestPartSize_ClampsToMaximum(t *testing.T) {
	t.Parallel()

	huge := int64(s3multipart.MaxPartCount) * s3multipart.MaxPartSize * 2
	require.EqualValues(t, s3multipart.MaxPartSize, s3multipart.PartSize(huge))
}

func TestPartSize_SatisfiesInvariantsAcrossSizeRange(t *testing.T) {
	t.Parallel()

	const fiveTiB = int64(5) * 1024 * 1024 * 1024 * 1024
	sizes := []int64{
		s3multipart.SinglePutThreshold + 1,
		100 * 1024 * 1024,
		1024 * 1024 * 1024,
		fiveTiB,
	}

	for _, size := range sizes {
		partSize := s3multipart.PartSize(size)
		require.GreaterOrEqual(t, partSize, int64(s3multipart.MinPartSize))
		require.LessOrEqual(t, partSize, int64(s3multipart.MaxPartSize))

		parts := (size + partSize - 1) / partSize
		require.LessOrEqual(t, parts, int64(s3multipart.MaxPartCount))
	}
}

func TestValidateUploadSize_RejectsNegative(t *testing.T) {
	t.Parallel()

	require.Error(t, s3multipart.ValidateUploadSize(-1))
	require.NoError(t, s3multipart.ValidateUploadSize(0))
}

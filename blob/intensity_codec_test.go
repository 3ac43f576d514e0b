package blob

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uimfdata/uimf/compress"
	"github.com/uimfdata/uimf/encoding"
	"github.com/uimfdata/uimf/format"
)

func newCodec(t *testing.T, width format.IntensityWidth) *IntensityCodec {
	t.Helper()
	c, err := NewIntensityCodec(width)
	require.NoError(t, err)

	return c
}

func TestIntensityCodec_InvalidWidth(t *testing.T) {
	_, err := NewIntensityCodec(format.IntensityWidth(0))
	require.Error(t, err)
}

func TestIntensityCodec_ConcreteScanVector(t *testing.T) {
	// 148000-bin array, single value 8 at bin 49693. Must encode to the
	// exact legacy-compatible compressed bytes and decode back.
	values := make([]int32, 148000)
	values[49693] = 8

	c := newCodec(t, format.Width32)
	data, sum, err := c.EncodeDense(values)
	require.NoError(t, err)
	require.Equal(t, []byte{0x07, 0xE3, 0x3D, 0xFF, 0xFF, 0x08, 0x00, 0x00, 0x00}, data)
	require.Equal(t, Summary{TIC: 8, BPI: 8, BPIBin: 49693, NonZero: 1}, sum)

	decoded, nonZero, err := c.DecodeDense(data, 148000)
	require.NoError(t, err)
	require.Equal(t, 1, nonZero)
	require.Equal(t, values, decoded)
}

func TestIntensityCodec_RoundTrip(t *testing.T) {
	for _, width := range []format.IntensityWidth{format.Width32, format.Width16} {
		t.Run(width.String(), func(t *testing.T) {
			values := make([]int32, 4000)
			values[0] = 3
			values[100] = 1200
			values[101] = 1199
			values[3999] = 1

			c := newCodec(t, width)
			data, sum, err := c.EncodeDense(values)
			require.NoError(t, err)
			require.Equal(t, int64(2403), sum.TIC)
			require.Equal(t, int64(1200), sum.BPI)
			require.Equal(t, int64(100), sum.BPIBin)
			require.Equal(t, 4, sum.NonZero)

			decoded, nonZero, err := c.DecodeDense(data, 4000)
			require.NoError(t, err)
			require.Equal(t, 4, nonZero)
			require.Equal(t, values, decoded)
		})
	}
}

func TestIntensityCodec_Width16SaturatesSummary(t *testing.T) {
	values := make([]int32, 1000)
	values[100] = 40000
	values[200] = 5

	c := newCodec(t, format.Width16)
	data, sum, err := c.EncodeDense(values)
	require.NoError(t, err)

	// Over-range counts clamp to 32767 in the token stream; the summary
	// reflects the clamped values, not the input.
	require.Equal(t, int64(32772), sum.TIC)
	require.Equal(t, int64(32767), sum.BPI)
	require.Equal(t, int64(100), sum.BPIBin)
	require.Equal(t, 2, sum.NonZero)

	decoded, nonZero, err := c.DecodeDense(data, 1000)
	require.NoError(t, err)
	require.Equal(t, 2, nonZero)
	require.Equal(t, int32(32767), decoded[100])
	require.Equal(t, int32(5), decoded[200])
}

func TestIntensityCodec_TrailingZerosReconstructed(t *testing.T) {
	values := make([]int32, 1000)
	values[10] = 7

	c := newCodec(t, format.Width32)
	data, _, err := c.EncodeDense(values)
	require.NoError(t, err)

	// Decode at the declared length: trailing zeros come back as zero fill.
	decoded, _, err := c.DecodeDense(data, 1000)
	require.NoError(t, err)
	require.Equal(t, values, decoded)
}

func TestIntensityCodec_AllZeroScan(t *testing.T) {
	c := newCodec(t, format.Width32)
	data, sum, err := c.EncodeDense(make([]int32, 500))
	require.NoError(t, err)
	require.Empty(t, data)
	require.Equal(t, Summary{BPIBin: -1}, sum)

	decoded, nonZero, err := c.DecodeDense(data, 500)
	require.NoError(t, err)
	require.Equal(t, 0, nonZero)
	require.Equal(t, make([]int32, 500), decoded)
}

func TestIntensityCodec_IdempotentReencode(t *testing.T) {
	values := make([]int32, 148000)
	values[49693] = 8
	values[50000] = 42

	c := newCodec(t, format.Width32)
	data, _, err := c.EncodeDense(values)
	require.NoError(t, err)

	out, changed, err := c.Reencode(data)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, data, out)
}

func TestIntensityCodec_LegacyVariantDecode(t *testing.T) {
	// The same token payload compressed by a historical writer must decode
	// to the same logical array, and re-encode to the canonical bytes.
	values := make([]int32, 148000)
	values[49693] = 8

	c := newCodec(t, format.Width32)
	canonical, _, err := c.EncodeDense(values)
	require.NoError(t, err)

	tokens, err := compress.NewLZFCompressor().Decompress(canonical)
	require.NoError(t, err)

	for _, variant := range []format.CompressionType{format.CompressionZlib, format.CompressionLZ4, format.CompressionZstd} {
		t.Run(variant.String(), func(t *testing.T) {
			codec, err := compress.GetCodec(variant)
			require.NoError(t, err)
			legacy, err := codec.Compress(tokens)
			require.NoError(t, err)

			decoded, nonZero, err := c.DecodeDense(legacy, 148000)
			require.NoError(t, err)
			require.Equal(t, 1, nonZero)
			require.Equal(t, values, decoded)

			out, changed, err := c.Reencode(legacy)
			require.NoError(t, err)
			require.True(t, changed)
			require.Equal(t, canonical, out)
		})
	}
}

func TestIntensityCodec_OutOfRangeBinsDropped(t *testing.T) {
	values := make([]int32, 1000)
	values[10] = 5
	values[999] = 9

	c := newCodec(t, format.Width32)
	data, _, err := c.EncodeDense(values)
	require.NoError(t, err)

	// Declare a smaller bin count than was encoded: the high bin must be
	// dropped, not panic and not error.
	decoded, nonZero, err := c.DecodeDense(data, 100)
	require.NoError(t, err)
	require.Equal(t, 1, nonZero)
	require.Equal(t, int32(5), decoded[10])
}

func TestIntensityCodec_PairsRoundTrip(t *testing.T) {
	pairs := []encoding.Pair{{Index: 0, Value: 12}, {Index: 359, Value: 3}, {Index: 40000, Value: 1}}

	c := newCodec(t, format.Width32)
	data, err := c.EncodePairs(pairs)
	require.NoError(t, err)

	back, err := c.DecodePairs(data, -1)
	require.NoError(t, err)
	require.Equal(t, pairs, back)
}

func TestIntensityCodec_Accumulate(t *testing.T) {
	c := newCodec(t, format.Width32)

	scan1 := make([]int32, 100)
	scan1[5] = 10
	scan1[20] = 1
	scan2 := make([]int32, 100)
	scan2[5] = 3
	scan2[30] = 2

	blob1, _, err := c.EncodeDense(scan1)
	require.NoError(t, err)
	blob2, _, err := c.EncodeDense(scan2)
	require.NoError(t, err)

	acc := make([]int64, 100)
	n1, err := c.Accumulate(blob1, acc)
	require.NoError(t, err)
	require.Equal(t, 2, n1)

	n2, err := c.Accumulate(blob2, acc)
	require.NoError(t, err)
	require.Equal(t, 1, n2) // bin 5 overlaps, only bin 30 is new

	require.Equal(t, int64(13), acc[5])
	require.Equal(t, int64(1), acc[20])
	require.Equal(t, int64(2), acc[30])
}

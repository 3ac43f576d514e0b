package uimf

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uimfdata/uimf/blob"
	"github.com/uimfdata/uimf/compress"
	"github.com/uimfdata/uimf/encoding"
	"github.com/uimfdata/uimf/errs"
	"github.com/uimfdata/uimf/format"
	"github.com/uimfdata/uimf/param"
	"github.com/uimfdata/uimf/spectrum"
	"github.com/uimfdata/uimf/storage"
)

const testBins = 2000

func mustCodec(t *testing.T) *blob.IntensityCodec {
	t.Helper()

	codec, err := blob.NewIntensityCodec(format.Width32)
	require.NoError(t, err)

	return codec
}

func testGlobals() *param.GlobalParams {
	return &param.GlobalParams{
		Bins:              testBins,
		BinWidth:          1.6,
		TOFCorrectionTime: 29.6,
		NumFrames:         2,
		TOFIntensityType:  format.Width32,
	}
}

func calibratedFrame() *param.FrameParams {
	p := &param.FrameParams{FrameType: format.FrameTypeMS1, Scans: 4}
	p.SetCalibration(0.35, -0.06)
	return p
}

func newTestFile(t *testing.T) (*File, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "run.uimf")
	f, err := Create(path, testGlobals())
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	return f, path
}

func TestCreateOpenRoundTrip(t *testing.T) {
	f, path := newTestFile(t)
	ctx := context.Background()

	require.NoError(t, f.WriteFrameParams(ctx, 1, calibratedFrame()))
	values := make([]int32, testBins)
	values[100] = 42
	require.NoError(t, f.WriteScan(ctx, 1, 0, values))
	require.NoError(t, f.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, testBins, reopened.Globals().Bins)

	decoded, nonZero, err := reopened.ScanIntensities(ctx, 1, 0)
	require.NoError(t, err)
	require.Equal(t, 1, nonZero)
	require.Equal(t, int32(42), decoded[100])
}

func TestOpenRejectsEmptyDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.uimf")
	store, err := storage.OpenSQLite(storage.DefaultSQLiteConfig(path))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = Open(path)
	require.Error(t, err)
}

func TestWriteScanStoresSummaries(t *testing.T) {
	f, _ := newTestFile(t)
	ctx := context.Background()

	require.NoError(t, f.WriteFrameParams(ctx, 1, calibratedFrame()))
	values := make([]int32, testBins)
	values[100] = 10
	values[200] = 30
	require.NoError(t, f.WriteScan(ctx, 1, 0, values))

	tics, err := f.Spectrum().TICByFrame(ctx, spectrum.Range{StartFrame: 1, EndFrame: 1, StartScan: 0, EndScan: 3})
	require.NoError(t, err)
	require.Equal(t, map[int]float64{1: 40}, tics)

	bpis, err := f.Spectrum().BPIByFrame(ctx, spectrum.Range{StartFrame: 1, EndFrame: 1, StartScan: 0, EndScan: 3})
	require.NoError(t, err)
	require.Equal(t, map[int]float64{1: 30}, bpis)
}

func TestWriteFrameParamsInvalidatesCache(t *testing.T) {
	f, _ := newTestFile(t)
	ctx := context.Background()

	first := calibratedFrame()
	require.NoError(t, f.WriteFrameParams(ctx, 1, first))

	got, err := f.FrameParams(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 0.35, got.Slope)

	// An updated calibration must be visible on the very next read.
	second := calibratedFrame()
	second.SetCalibration(0.36, -0.05)
	require.NoError(t, f.WriteFrameParams(ctx, 1, second))

	got, err = f.FrameParams(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 0.36, got.Slope)
}

func TestPreloadFrameParams(t *testing.T) {
	f, _ := newTestFile(t)
	ctx := context.Background()

	require.NoError(t, f.WriteFrameParams(ctx, 1, calibratedFrame()))
	require.NoError(t, f.WriteFrameParams(ctx, 2, calibratedFrame()))

	require.Equal(t, 0, f.cache.Len())
	require.NoError(t, f.PreloadFrameParams(ctx))
	require.Equal(t, 2, f.cache.Len())

	got, err := f.FrameParams(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, 0.35, got.Slope)

	require.NoError(t, f.Close())
	require.ErrorIs(t, f.PreloadFrameParams(ctx), errs.ErrClosed)
}

func TestBuildBinCentricIndex(t *testing.T) {
	f, _ := newTestFile(t)
	ctx := context.Background()

	require.NoError(t, f.WriteFrameParams(ctx, 1, calibratedFrame()))
	values := make([]int32, testBins)
	values[70] = 9
	require.NoError(t, f.WriteScan(ctx, 1, 2, values))

	built, err := f.HasBinCentricIndex(ctx)
	require.NoError(t, err)
	require.False(t, built)

	require.NoError(t, f.BuildBinCentricIndex(ctx))

	built, err = f.HasBinCentricIndex(ctx)
	require.NoError(t, err)
	require.True(t, built)
}

func TestReencodeScans(t *testing.T) {
	f, path := newTestFile(t)
	ctx := context.Background()

	require.NoError(t, f.WriteFrameParams(ctx, 1, calibratedFrame()))
	values := make([]int32, testBins)
	values[100] = 42
	require.NoError(t, f.WriteScan(ctx, 1, 0, values))
	require.NoError(t, f.WriteScan(ctx, 1, 1, values))
	require.NoError(t, f.Close())

	// Rewrite scan (1, 1) as a legacy zlib blob, bypassing the handle.
	store, err := storage.OpenSQLite(storage.DefaultSQLiteConfig(path))
	require.NoError(t, err)
	rec, err := store.Scan(ctx, 1, 1)
	require.NoError(t, err)

	lzf, err := compress.GetCodec(format.CompressionLZF)
	require.NoError(t, err)
	tokens, err := lzf.Decompress(rec.Intensities)
	require.NoError(t, err)
	zlib, err := compress.GetCodec(format.CompressionZlib)
	require.NoError(t, err)
	rec.Intensities, err = zlib.Compress(tokens)
	require.NoError(t, err)
	require.NoError(t, store.WriteScan(ctx, rec))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	changed, err := reopened.ReencodeScans(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, changed)

	// Re-running finds nothing left to rewrite, and the data survives.
	changed, err = reopened.ReencodeScans(ctx)
	require.NoError(t, err)
	require.Zero(t, changed)

	decoded, _, err := reopened.ScanIntensities(ctx, 1, 1)
	require.NoError(t, err)
	require.Equal(t, int32(42), decoded[100])
}

func TestClosedHandle(t *testing.T) {
	f, _ := newTestFile(t)
	ctx := context.Background()

	require.NoError(t, f.Close())
	require.ErrorIs(t, f.Close(), errs.ErrClosed)

	_, err := f.FrameParams(ctx, 1)
	require.ErrorIs(t, err, errs.ErrClosed)
	require.ErrorIs(t, f.WriteScan(ctx, 1, 0, nil), errs.ErrClosed)
	_, err = f.ReencodeScans(ctx)
	require.ErrorIs(t, err, errs.ErrClosed)
	require.ErrorIs(t, f.BuildBinCentricIndex(ctx), errs.ErrClosed)
}

// Reconstructing per-scan intensities from the bin-centric index must agree
// with the scan-major data.
func TestBinCentricMatchesScans(t *testing.T) {
	f, path := newTestFile(t)
	ctx := context.Background()

	for frameNum := 1; frameNum <= 2; frameNum++ {
		require.NoError(t, f.WriteFrameParams(ctx, frameNum, calibratedFrame()))
	}
	write := func(frameNum, scanNum, bin int, v int32) {
		values := make([]int32, testBins)
		values[bin] = v
		require.NoError(t, f.WriteScan(ctx, frameNum, scanNum, values))
	}
	write(1, 0, 100, 7)
	write(1, 3, 100, 11)
	write(2, 1, 100, 5)

	require.NoError(t, f.BuildBinCentricIndex(ctx))
	require.NoError(t, f.Close())

	store, err := storage.OpenSQLite(storage.DefaultSQLiteConfig(path))
	require.NoError(t, err)
	defer store.Close()

	data, err := store.BinCentric(ctx, 100)
	require.NoError(t, err)

	codec := mustCodec(t)
	pairs, err := codec.DecodePairs(data, -1)
	require.NoError(t, err)

	// scansPerFrame is 4, so the encoded scan indices are 0, 3, and 5.
	require.Equal(t, []encoding.Pair{
		{Index: 0, Value: 7},
		{Index: 3, Value: 11},
		{Index: 5, Value: 5},
	}, pairs)
}

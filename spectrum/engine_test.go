package spectrum

import (
	"context"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uimfdata/uimf/blob"
	"github.com/uimfdata/uimf/calib"
	"github.com/uimfdata/uimf/format"
	"github.com/uimfdata/uimf/param"
	"github.com/uimfdata/uimf/storage"
)

const testBins = 4000

type fixture struct {
	store   *storage.SQLite
	engine  *Engine
	globals *param.GlobalParams
	cal     calib.Params
}

// newFixture builds an in-memory file with four frames:
//
//	frame 1  MS1, calibrated      scan 0: bin 100=10, bin 200=20
//	                              scan 1: bin 100=5,  bin 300=7
//	frame 2  MS1, calibrated      scan 0: bin 200=1
//	frame 3  fragmentation, cal.  scan 0: bin 100=1000
//	frame 4  MS1, uncalibrated    scan 0: bin 100=50000
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := storage.OpenSQLite(storage.DefaultSQLiteConfig(":memory:"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	globals := &param.GlobalParams{
		Bins:              testBins,
		BinWidth:          1.6,
		TOFCorrectionTime: 29.6,
		NumFrames:         4,
		TOFIntensityType:  format.Width32,
	}
	require.NoError(t, store.WriteGlobalParams(ctx, globals))

	writeFrame := func(frameNum int, ft format.FrameType, calibrated bool) *param.FrameParams {
		p := &param.FrameParams{FrameType: ft, Scans: 4}
		if calibrated {
			p.SetCalibration(0.35, -0.06)
		}
		require.NoError(t, store.WriteFrameParams(ctx, frameNum, p))
		return p
	}
	frame1 := writeFrame(1, format.FrameTypeMS1, true)
	writeFrame(2, format.FrameTypeMS1, true)
	writeFrame(3, format.FrameTypeFragmentation, true)
	writeFrame(4, format.FrameTypeMS1, false)

	codec, err := blob.NewIntensityCodec(format.Width32)
	require.NoError(t, err)
	writeScan := func(frameNum, scanNum int, peaks map[int]int32) {
		values := make([]int32, testBins)
		for bin, v := range peaks {
			values[bin] = v
		}
		data, sum, err := codec.EncodeDense(values)
		require.NoError(t, err)
		require.NoError(t, store.WriteScan(ctx, &storage.ScanRecord{
			FrameNum:     frameNum,
			ScanNum:      scanNum,
			NonZeroCount: sum.NonZero,
			BPI:          float64(sum.BPI),
			TIC:          float64(sum.TIC),
			Intensities:  data,
		}))
	}
	writeScan(1, 0, map[int]int32{100: 10, 200: 20})
	writeScan(1, 1, map[int]int32{100: 5, 300: 7})
	writeScan(2, 0, map[int]int32{200: 1})
	writeScan(3, 0, map[int]int32{100: 1000})
	writeScan(4, 0, map[int]int32{100: 50000})

	engine, err := NewEngine(store, param.NewCache(store), globals)
	require.NoError(t, err)

	cal, err := frame1.Calibration(globals)
	require.NoError(t, err)

	return &fixture{store: store, engine: engine, globals: globals, cal: cal}
}

func TestEngine_GetSpectrumAsBins(t *testing.T) {
	f := newFixture(t)

	acc, nonZero, err := f.engine.GetSpectrumAsBins(context.Background(),
		Range{StartFrame: 1, EndFrame: 2, StartScan: 0, EndScan: 3})
	require.NoError(t, err)
	require.Len(t, acc, testBins)

	// Overlapping bins across scans merge: 100 appears in both frame 1
	// scans but counts once.
	require.Equal(t, 3, nonZero)
	require.Equal(t, int64(15), acc[100])
	require.Equal(t, int64(21), acc[200])
	require.Equal(t, int64(7), acc[300])
}

func TestEngine_GetSpectrumAsBinsIncludesUncalibrated(t *testing.T) {
	f := newFixture(t)

	acc, _, err := f.engine.GetSpectrumAsBins(context.Background(),
		Range{StartFrame: 4, EndFrame: 4, StartScan: 0, EndScan: 3})
	require.NoError(t, err)
	require.Equal(t, int64(50000), acc[100])
}

func TestEngine_GetSpectrum(t *testing.T) {
	f := newFixture(t)

	mzValues, intensities, nonZero, err := f.engine.GetSpectrum(context.Background(),
		Range{StartFrame: 1, EndFrame: 2, StartScan: 0, EndScan: 3})
	require.NoError(t, err)
	require.Equal(t, 3, nonZero)
	require.Equal(t, []int64{15, 21, 7}, intensities)
	require.Equal(t, []float64{
		f.cal.BinToMz(100),
		f.cal.BinToMz(200),
		f.cal.BinToMz(300),
	}, mzValues)
	require.True(t, sort.Float64sAreSorted(mzValues))
}

func TestEngine_WideRangePreloadsCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A narrow range resolves frames one by one and caches only what it
	// touched.
	_, _, err := f.engine.GetSpectrumAsBins(ctx,
		Range{StartFrame: 1, EndFrame: 1, StartScan: 0, EndScan: 3})
	require.NoError(t, err)
	require.Equal(t, 1, f.engine.cache.Len())

	// A wide range against a cold cache bulk-loads every stored frame
	// instead of querying frame by frame.
	f.engine.cache.InvalidateAll()
	acc, _, err := f.engine.GetSpectrumAsBins(ctx,
		Range{StartFrame: 1, EndFrame: 100, StartScan: 0, EndScan: 3})
	require.NoError(t, err)
	require.Equal(t, 4, f.engine.cache.Len())
	require.Equal(t, int64(51015), acc[100])
}

func TestEngine_GetSpectrumSkipsUncalibratedFrames(t *testing.T) {
	f := newFixture(t)

	// Frame 4 carries a huge peak but no calibration; an m/z-producing
	// call must leave it out entirely.
	_, intensities, _, err := f.engine.GetSpectrum(context.Background(),
		Range{StartFrame: 1, EndFrame: 4, StartScan: 0, EndScan: 3, FrameType: format.FrameTypeMS1})
	require.NoError(t, err)
	require.Equal(t, []int64{15, 21, 7}, intensities)
}

func TestEngine_FrameTypeFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	acc, _, err := f.engine.GetSpectrumAsBins(ctx,
		Range{StartFrame: 1, EndFrame: 3, StartScan: 0, EndScan: 3, FrameType: format.FrameTypeFragmentation})
	require.NoError(t, err)
	require.Equal(t, int64(1000), acc[100])
	require.Equal(t, int64(0), acc[200])

	acc, _, err = f.engine.GetSpectrumAsBins(ctx,
		Range{StartFrame: 1, EndFrame: 3, StartScan: 0, EndScan: 3, FrameType: format.FrameTypeMS1})
	require.NoError(t, err)
	require.Equal(t, int64(15), acc[100])
}

func TestEngine_RangeBeyondBoundsIsEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mzValues, intensities, nonZero, err := f.engine.GetSpectrum(ctx,
		Range{StartFrame: 10, EndFrame: 20, StartScan: 0, EndScan: 3})
	require.NoError(t, err)
	require.Empty(t, mzValues)
	require.Empty(t, intensities)
	require.Zero(t, nonZero)

	acc, nonZero, err := f.engine.GetSpectrumAsBins(ctx,
		Range{StartFrame: 2, EndFrame: 1, StartScan: 0, EndScan: 3})
	require.NoError(t, err)
	require.Zero(t, nonZero)
	require.Len(t, acc, testBins)
}

func TestEngine_MissingFramesContributeZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Extending the range over nonexistent frames changes nothing.
	narrow, nonZeroNarrow, err := f.engine.GetSpectrumAsBins(ctx,
		Range{StartFrame: 1, EndFrame: 2, StartScan: 0, EndScan: 3})
	require.NoError(t, err)
	wide, nonZeroWide, err := f.engine.GetSpectrumAsBins(ctx,
		Range{StartFrame: 1, EndFrame: 2, StartScan: 0, EndScan: 9, FrameType: format.FrameTypeMS1})
	require.NoError(t, err)
	require.Equal(t, narrow, wide)
	require.Equal(t, nonZeroNarrow, nonZeroWide)
}

func TestEngine_SumScansWidths(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := Range{StartFrame: 1, EndFrame: 4, StartScan: 0, EndScan: 3}

	wide, _, err := f.engine.SumScansInt32(ctx, r)
	require.NoError(t, err)
	require.Equal(t, int32(51015), wide[100])

	// bin 100 sums past the int16 ceiling and must saturate, not wrap.
	narrow, _, err := f.engine.SumScansInt16(ctx, r)
	require.NoError(t, err)
	require.Equal(t, int16(math.MaxInt16), narrow[100])
	require.Equal(t, int16(21), narrow[200])

	asFloat, _, err := f.engine.SumScansFloat64(ctx, r)
	require.NoError(t, err)
	require.Equal(t, 51015.0, asFloat[100])

	asFloat32, _, err := f.engine.SumScansFloat32(ctx, r)
	require.NoError(t, err)
	require.Equal(t, float32(7), asFloat32[300])
}

func TestEngine_TICAndBPIByFrame(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := Range{StartFrame: 1, EndFrame: 2, StartScan: 0, EndScan: 3}

	tics, err := f.engine.TICByFrame(ctx, r)
	require.NoError(t, err)
	require.Equal(t, map[int]float64{1: 42, 2: 1}, tics)

	bpis, err := f.engine.BPIByFrame(ctx, r)
	require.NoError(t, err)
	require.Equal(t, map[int]float64{1: 20, 2: 1}, bpis)
}

func TestEngine_TICByFrameHonorsTypeFilter(t *testing.T) {
	f := newFixture(t)

	tics, err := f.engine.TICByFrame(context.Background(),
		Range{StartFrame: 1, EndFrame: 3, StartScan: 0, EndScan: 3, FrameType: format.FrameTypeFragmentation})
	require.NoError(t, err)
	require.Equal(t, map[int]float64{3: 1000}, tics)
}

package spectrum

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/uimfdata/uimf/blob"
	"github.com/uimfdata/uimf/errs"
	"github.com/uimfdata/uimf/format"
	"github.com/uimfdata/uimf/internal/logutil"
	"github.com/uimfdata/uimf/internal/options"
	"github.com/uimfdata/uimf/internal/pool"
	"github.com/uimfdata/uimf/param"
	"github.com/uimfdata/uimf/storage"
)

// Range selects an inclusive frame/scan window with an optional frame-type
// filter. The zero FrameType (FrameTypeAny) accepts every frame.
//
// Frames are 1-based and scans are 0-based, matching the stored records. A
// range reaching past the file's bounds is not an error: the missing part
// simply contributes nothing.
type Range struct {
	StartFrame int
	EndFrame   int
	StartScan  int
	EndScan    int
	FrameType  format.FrameType
}

// normalize clamps the range to valid lower bounds.
func (r Range) normalize() Range {
	if r.StartFrame < 1 {
		r.StartFrame = 1
	}
	if r.StartScan < 0 {
		r.StartScan = 0
	}

	return r
}

// empty reports whether the range selects nothing.
func (r Range) empty() bool {
	return r.StartFrame > r.EndFrame || r.StartScan > r.EndScan
}

// Engine retrieves, decodes, sums, and calibrates scans over frame/scan
// ranges. One engine serves one open file; it shares the file's parameter
// cache so writer-side invalidation is visible immediately.
type Engine struct {
	scans   storage.ScanReader
	cache   *param.Cache
	globals *param.GlobalParams
	codec   *blob.IntensityCodec
	logger  zerolog.Logger

	uncalibrated *logutil.Limiter
}

// Option configures an Engine.
type Option = options.Option[*Engine]

// WithLogger sets the logger for skipped-frame and decode warnings. The
// default discards them.
func WithLogger(logger zerolog.Logger) Option {
	return options.NoError(func(e *Engine) {
		e.logger = logger
	})
}

// NewEngine creates an engine over the given scan reader and parameter
// cache. The global record fixes the bin count and intensity token width
// for every decode.
func NewEngine(scans storage.ScanReader, cache *param.Cache, globals *param.GlobalParams, opts ...Option) (*Engine, error) {
	e := &Engine{
		scans:        scans,
		cache:        cache,
		globals:      globals,
		logger:       zerolog.Nop(),
		uncalibrated: logutil.NewLimiter(5, 1000),
	}
	if err := options.Apply(e, opts...); err != nil {
		return nil, err
	}

	codec, err := blob.NewIntensityCodec(globals.TOFIntensityType, blob.WithLogger(e.logger))
	if err != nil {
		return nil, err
	}
	e.codec = codec

	return e, nil
}

// Codec returns the intensity codec matching the file's token width.
func (e *Engine) Codec() *blob.IntensityCodec {
	return e.codec
}

// preloadThreshold is the frame span above which allowedFrames bulk-loads
// the parameter cache instead of issuing one lookup per frame.
const preloadThreshold = 64

// allowedFrames resolves the parameter record of every frame in range that
// passes the type filter. Nonexistent frames are skipped. With needCalib
// set, frames lacking slope or intercept are also skipped, with a
// rate-limited warning, since they cannot contribute to any m/z-producing
// result.
func (e *Engine) allowedFrames(ctx context.Context, r Range, needCalib bool) (map[int]*param.FrameParams, error) {
	// A wide range against a cold cache would turn into one query per
	// frame, so fill the cache in a single pass first.
	if r.EndFrame-r.StartFrame+1 >= preloadThreshold && e.cache.Len() == 0 {
		if err := e.cache.Preload(ctx); err != nil {
			return nil, err
		}
	}

	allowed := make(map[int]*param.FrameParams)
	for frameNum := r.StartFrame; frameNum <= r.EndFrame; frameNum++ {
		p, err := e.cache.Get(ctx, frameNum)
		if errors.Is(err, errs.ErrFrameNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if r.FrameType != format.FrameTypeAny && p.FrameType != r.FrameType {
			continue
		}
		if needCalib && !p.HasCalibration() {
			e.uncalibrated.Warn(e.logger).
				Int("frame", frameNum).
				Msg("frame has no calibration, skipping")
			continue
		}
		allowed[frameNum] = p
	}

	return allowed, nil
}

// accumulateScans streams every stored scan in range and adds the allowed
// ones into acc, returning the number of bins that became non-zero.
func (e *Engine) accumulateScans(ctx context.Context, r Range, allowed map[int]*param.FrameParams, acc []int64) (int, error) {
	nonZero := 0
	err := e.scans.ScansInRange(ctx, r.StartFrame, r.EndFrame, r.StartScan, r.EndScan, func(rec *storage.ScanRecord) error {
		if allowed[rec.FrameNum] == nil || len(rec.Intensities) == 0 {
			return nil
		}
		n, err := e.codec.Accumulate(rec.Intensities, acc)
		nonZero += n
		return err
	})
	if err != nil {
		return 0, err
	}

	return nonZero, nil
}

// GetSpectrumAsBins sums every scan in range into a dense array indexed by
// bin. The second return value is the number of distinct non-zero bins,
// which is smaller than the sum of per-scan counts whenever scans overlap.
func (e *Engine) GetSpectrumAsBins(ctx context.Context, r Range) ([]int64, int, error) {
	acc := make([]int64, e.globals.Bins)
	r = r.normalize()
	if r.empty() {
		return acc, 0, nil
	}

	allowed, err := e.allowedFrames(ctx, r, false)
	if err != nil {
		return nil, 0, err
	}
	nonZero, err := e.accumulateScans(ctx, r, allowed, acc)
	if err != nil {
		return nil, 0, err
	}

	return acc, nonZero, nil
}

// GetSpectrum sums every scan in range and converts the non-zero bins to
// m/z, returning parallel arrays sorted by ascending bin. Conversion uses
// the calibration of the first contributing frame; frames without
// calibration are skipped. A range with no calibrated frames yields empty
// arrays.
func (e *Engine) GetSpectrum(ctx context.Context, r Range) (mzValues []float64, intensities []int64, nonZero int, err error) {
	r = r.normalize()
	if r.empty() {
		return nil, nil, 0, nil
	}

	allowed, err := e.allowedFrames(ctx, r, true)
	if err != nil {
		return nil, nil, 0, err
	}
	if len(allowed) == 0 {
		return nil, nil, 0, nil
	}

	acc, release := pool.GetInt64Slice(e.globals.Bins)
	defer release()

	nonZero, err = e.accumulateScans(ctx, r, allowed, acc)
	if err != nil {
		return nil, nil, 0, err
	}

	var calFrame *param.FrameParams
	for frameNum := r.StartFrame; frameNum <= r.EndFrame; frameNum++ {
		if p := allowed[frameNum]; p != nil {
			calFrame = p
			break
		}
	}
	cal, err := calFrame.Calibration(e.globals)
	if err != nil {
		return nil, nil, 0, err
	}

	mzValues = make([]float64, 0, nonZero)
	intensities = make([]int64, 0, nonZero)
	for bin, v := range acc {
		if v == 0 {
			continue
		}
		mzValues = append(mzValues, cal.BinToMz(float64(bin)))
		intensities = append(intensities, v)
	}

	return mzValues, intensities, nonZero, nil
}

// TICByFrame aggregates the precomputed per-scan TIC column into one total
// per frame, without decoding any blob. Frames filtered out by the range's
// frame type are omitted from the result.
func (e *Engine) TICByFrame(ctx context.Context, r Range) (map[int]float64, error) {
	r = r.normalize()
	if r.empty() {
		return map[int]float64{}, nil
	}

	allowed, err := e.allowedFrames(ctx, r, false)
	if err != nil {
		return nil, err
	}

	aggs, err := e.scans.FrameAggregates(ctx, r.StartFrame, r.EndFrame, r.StartScan, r.EndScan)
	if err != nil {
		return nil, err
	}

	tics := make(map[int]float64, len(aggs))
	for _, a := range aggs {
		if allowed[a.FrameNum] == nil {
			continue
		}
		tics[a.FrameNum] = a.TIC
	}

	return tics, nil
}

// BPIByFrame aggregates the precomputed per-scan BPI column into one
// maximum per frame, without decoding any blob.
func (e *Engine) BPIByFrame(ctx context.Context, r Range) (map[int]float64, error) {
	r = r.normalize()
	if r.empty() {
		return map[int]float64{}, nil
	}

	allowed, err := e.allowedFrames(ctx, r, false)
	if err != nil {
		return nil, err
	}

	aggs, err := e.scans.FrameAggregates(ctx, r.StartFrame, r.EndFrame, r.StartScan, r.EndScan)
	if err != nil {
		return nil, err
	}

	bpis := make(map[int]float64, len(aggs))
	for _, a := range aggs {
		if allowed[a.FrameNum] == nil {
			continue
		}
		bpis[a.FrameNum] = a.BPI
	}

	return bpis, nil
}

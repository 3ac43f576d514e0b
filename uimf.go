// Package uimf reads and writes UIMF ion-mobility mass spectrometry data
// files: SQLite databases holding per-scan intensity blobs in a run-length
// zero token encoding under an LZF-family byte compressor.
//
// A File is the top-level handle tying together the store, the frame
// parameter cache, and the spectrum engine. The model is single writer,
// multiple readers: one handle owns writes, and its cache is invalidated
// synchronously on every parameter write so later reads on the same handle
// never see stale calibration.
//
// # Basic Usage
//
// Reading a summed spectrum over a frame range:
//
//	f, _ := uimf.Open("run.uimf")
//	defer f.Close()
//
//	mz, intensities, _, _ := f.Spectrum().GetSpectrum(ctx, spectrum.Range{
//	    StartFrame: 1, EndFrame: 10,
//	    StartScan: 0, EndScan: 359,
//	})
//
// Writing acquisition data:
//
//	f, _ := uimf.Create("run.uimf", &param.GlobalParams{
//	    Bins:             148000,
//	    BinWidth:         1.6,
//	    TOFIntensityType: format.Width32,
//	})
//	f.WriteFrameParams(ctx, 1, frameParams)
//	f.WriteScan(ctx, 1, 0, intensities)
//
// For fine-grained control over individual layers, use the blob, calib,
// spectrum, bincentric, and storage packages directly.
package uimf

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/uimfdata/uimf/bincentric"
	"github.com/uimfdata/uimf/blob"
	"github.com/uimfdata/uimf/errs"
	"github.com/uimfdata/uimf/internal/options"
	"github.com/uimfdata/uimf/param"
	"github.com/uimfdata/uimf/spectrum"
	"github.com/uimfdata/uimf/storage"
)

// File is an open UIMF data file.
type File struct {
	store   *storage.SQLite
	globals *param.GlobalParams
	cache   *param.Cache
	engine  *spectrum.Engine
	codec   *blob.IntensityCodec
	logger  zerolog.Logger
	closed  bool
}

// Option configures a File handle.
type Option = options.Option[*File]

// WithLogger sets the logger shared by the handle, its codec, and its
// engine. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return options.NoError(func(f *File) {
		f.logger = logger
	})
}

// Open opens an existing file for reading and writing.
func Open(path string, opts ...Option) (*File, error) {
	f := &File{logger: zerolog.Nop()}
	if err := options.Apply(f, opts...); err != nil {
		return nil, err
	}

	store, err := storage.OpenSQLite(storage.DefaultSQLiteConfig(path))
	if err != nil {
		return nil, err
	}

	globals, err := store.LoadGlobalParams(context.Background())
	if err != nil {
		store.Close()
		return nil, err
	}
	if globals.Bins <= 0 {
		store.Close()
		return nil, fmt.Errorf("open %s: missing global parameters, not a UIMF file", path)
	}

	if err := f.init(store, globals); err != nil {
		store.Close()
		return nil, err
	}

	return f, nil
}

// Create creates a new file with the given global parameters, or opens an
// existing one and overwrites its globals.
func Create(path string, globals *param.GlobalParams, opts ...Option) (*File, error) {
	if globals == nil || globals.Bins <= 0 {
		return nil, fmt.Errorf("create %s: global parameters with a positive bin count are required", path)
	}

	f := &File{logger: zerolog.Nop()}
	if err := options.Apply(f, opts...); err != nil {
		return nil, err
	}

	store, err := storage.OpenSQLite(storage.DefaultSQLiteConfig(path))
	if err != nil {
		return nil, err
	}
	if err := store.WriteGlobalParams(context.Background(), globals); err != nil {
		store.Close()
		return nil, err
	}

	if err := f.init(store, globals); err != nil {
		store.Close()
		return nil, err
	}

	return f, nil
}

func (f *File) init(store *storage.SQLite, globals *param.GlobalParams) error {
	f.store = store
	f.globals = globals
	f.cache = param.NewCache(store)

	codec, err := blob.NewIntensityCodec(globals.TOFIntensityType, blob.WithLogger(f.logger))
	if err != nil {
		return err
	}
	f.codec = codec

	engine, err := spectrum.NewEngine(store, f.cache, globals, spectrum.WithLogger(f.logger))
	if err != nil {
		return err
	}
	f.engine = engine

	return nil
}

// Close releases the handle. Further calls on the handle fail with
// errs.ErrClosed.
func (f *File) Close() error {
	if f.closed {
		return errs.ErrClosed
	}
	f.closed = true

	return f.store.Close()
}

// Globals returns the file-level parameter record loaded at open time.
func (f *File) Globals() *param.GlobalParams {
	return f.globals
}

// Spectrum returns the engine for range queries over this file.
func (f *File) Spectrum() *spectrum.Engine {
	return f.engine
}

// FrameParams returns one frame's parameters through the cache.
func (f *File) FrameParams(ctx context.Context, frameNum int) (*param.FrameParams, error) {
	if f.closed {
		return nil, errs.ErrClosed
	}

	return f.cache.Get(ctx, frameNum)
}

// PreloadFrameParams loads every frame's parameters into the cache in one
// query. Callers that are about to touch most frames, such as a full-file
// export, avoid a per-frame lookup by preloading first.
func (f *File) PreloadFrameParams(ctx context.Context) error {
	if f.closed {
		return errs.ErrClosed
	}

	return f.cache.Preload(ctx)
}

// WriteFrameParams persists one frame's parameters and invalidates its
// cache entry before returning, so no later read on this handle observes
// the old values.
func (f *File) WriteFrameParams(ctx context.Context, frameNum int, p *param.FrameParams) error {
	if f.closed {
		return errs.ErrClosed
	}

	if err := f.store.WriteFrameParams(ctx, frameNum, p); err != nil {
		return err
	}
	f.cache.Invalidate(frameNum)

	return nil
}

// WriteScan encodes one scan's dense intensity array and persists it with
// its precomputed summaries. When the frame is calibrated, the base peak's
// m/z is stored alongside; otherwise it is zero.
func (f *File) WriteScan(ctx context.Context, frameNum, scanNum int, intensities []int32) error {
	if f.closed {
		return errs.ErrClosed
	}

	data, sum, err := f.codec.EncodeDense(intensities)
	if err != nil {
		return err
	}

	bpiMz := 0.0
	if sum.BPIBin >= 0 {
		if p, err := f.cache.Get(ctx, frameNum); err == nil && p.HasCalibration() {
			cal, err := p.Calibration(f.globals)
			if err == nil {
				bpiMz = cal.BinToMz(float64(sum.BPIBin))
			}
		}
	}

	return f.store.WriteScan(ctx, &storage.ScanRecord{
		FrameNum:     frameNum,
		ScanNum:      scanNum,
		NonZeroCount: sum.NonZero,
		BPI:          float64(sum.BPI),
		BPIMz:        bpiMz,
		TIC:          float64(sum.TIC),
		Intensities:  data,
	})
}

// ScanIntensities decodes one stored scan into a dense array of the file's
// bin count, returning the array and its non-zero count.
func (f *File) ScanIntensities(ctx context.Context, frameNum, scanNum int) ([]int32, int, error) {
	if f.closed {
		return nil, 0, errs.ErrClosed
	}

	rec, err := f.store.Scan(ctx, frameNum, scanNum)
	if err != nil {
		return nil, 0, err
	}

	return f.codec.DecodeDense(rec.Intensities, f.globals.Bins)
}

// BuildBinCentricIndex builds (or rebuilds) the transposed bin-centric
// index over every scan in the file.
func (f *File) BuildBinCentricIndex(ctx context.Context, opts ...bincentric.Option) error {
	if f.closed {
		return errs.ErrClosed
	}

	opts = append([]bincentric.Option{bincentric.WithLogger(f.logger)}, opts...)
	ix, err := bincentric.NewIndexer(f.store, f.globals, opts...)
	if err != nil {
		return err
	}

	return ix.Build(ctx)
}

// HasBinCentricIndex reports whether the bin-centric index has been built.
func (f *File) HasBinCentricIndex(ctx context.Context) (bool, error) {
	if f.closed {
		return false, errs.ErrClosed
	}

	return f.store.HasBinCentric(ctx)
}

// ReencodeScans rewrites every scan blob stored by a legacy compressor
// variant into the canonical current encoding, returning the number of
// scans rewritten. Already-canonical blobs are left untouched.
func (f *File) ReencodeScans(ctx context.Context) (int, error) {
	if f.closed {
		return 0, errs.ErrClosed
	}

	// The store runs on a single connection, so writes are collected
	// while the range query streams and applied afterwards.
	var updates []*storage.ScanRecord
	err := f.store.ScansInRange(ctx, 1, math.MaxInt32, 0, math.MaxInt32, func(rec *storage.ScanRecord) error {
		if len(rec.Intensities) == 0 {
			return nil
		}
		data, changed, err := f.codec.Reencode(rec.Intensities)
		if err != nil {
			return fmt.Errorf("reencode scan (%d, %d): %w", rec.FrameNum, rec.ScanNum, err)
		}
		if !changed {
			return nil
		}
		rec.Intensities = data
		updates = append(updates, rec)
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, rec := range updates {
		if err := f.store.WriteScan(ctx, rec); err != nil {
			return 0, err
		}
	}

	return len(updates), nil
}

package bincentric

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/rs/zerolog"

	"github.com/uimfdata/uimf/blob"
	"github.com/uimfdata/uimf/encoding"
	"github.com/uimfdata/uimf/errs"
	"github.com/uimfdata/uimf/internal/options"
	"github.com/uimfdata/uimf/param"
	"github.com/uimfdata/uimf/storage"
)

// DefaultMemoryLimit caps the in-memory grouping structure before pair
// batches spill to sorted temp-file runs.
const DefaultMemoryLimit = 512 << 20

// approximate resident cost of one grouped pair, including slice overhead
const pairMemCost = 32

// ProgressFunc receives periodic build progress: a percent in [0, 100] and
// a short status message.
type ProgressFunc func(percent int, message string)

// Indexer builds the transposed bin-centric index: one record per m/z bin
// holding every (encoded scan index, intensity) pair observed at that bin,
// re-encoded with the same codec as scan blobs.
//
// The build is drop-and-rebuild: any existing index is discarded first, and
// all inserts run in one transaction, so a failed or cancelled build never
// leaves a partial index behind.
type Indexer struct {
	store   storage.Store
	globals *param.GlobalParams
	codec   *blob.IntensityCodec
	logger  zerolog.Logger

	progress    ProgressFunc
	memoryLimit int64
	spillDir    string

	lastPercent int
	lastMessage string
}

// Option configures an Indexer.
type Option = options.Option[*Indexer]

// WithLogger sets the logger for build status and decode warnings.
func WithLogger(logger zerolog.Logger) Option {
	return options.NoError(func(ix *Indexer) {
		ix.logger = logger
	})
}

// WithProgress registers a callback invoked as the build advances. It is
// called on the building goroutine; slow callbacks slow the build.
func WithProgress(fn ProgressFunc) Option {
	return options.NoError(func(ix *Indexer) {
		ix.progress = fn
	})
}

// WithMemoryLimit caps the approximate bytes held by the in-memory grouping
// before it spills to disk. Zero or negative keeps the default.
func WithMemoryLimit(limit int64) Option {
	return options.NoError(func(ix *Indexer) {
		if limit > 0 {
			ix.memoryLimit = limit
		}
	})
}

// WithSpillDir sets the directory for spill runs. The default is the
// system temp directory.
func WithSpillDir(dir string) Option {
	return options.NoError(func(ix *Indexer) {
		ix.spillDir = dir
	})
}

// NewIndexer creates an indexer over the given store. The global record
// fixes the bin count and the codec width used for re-encoding.
func NewIndexer(store storage.Store, globals *param.GlobalParams, opts ...Option) (*Indexer, error) {
	ix := &Indexer{
		store:       store,
		globals:     globals,
		logger:      zerolog.Nop(),
		memoryLimit: DefaultMemoryLimit,
		lastPercent: -1,
	}
	if err := options.Apply(ix, opts...); err != nil {
		return nil, err
	}

	codec, err := blob.NewIntensityCodec(globals.TOFIntensityType, blob.WithLogger(ix.logger))
	if err != nil {
		return nil, err
	}
	ix.codec = codec

	return ix, nil
}

func (ix *Indexer) report(percent int, message string) {
	if ix.progress == nil {
		return
	}
	if percent == ix.lastPercent && message == ix.lastMessage {
		return
	}
	ix.lastPercent, ix.lastMessage = percent, message
	ix.progress(percent, message)
}

func buildAborted(ctx context.Context) error {
	return fmt.Errorf("%w: %w", errs.ErrAborted, ctx.Err())
}

// Build constructs the bin-centric index from every scan in the file.
//
// Scans decode in frame-major order; each non-zero (bin, intensity) lands
// in a per-bin group keyed by its encoded scan index
// (lcScanIndex*scansPerFrame + imsScanIndex, with scansPerFrame the
// maximum scan count across frames). When the resident grouping exceeds
// the memory limit it spills to a sorted compressed run; the write phase
// merges all runs with the residue and bulk-inserts one record per bin
// inside a single transaction.
func (ix *Indexer) Build(ctx context.Context) error {
	frames, err := ix.store.LoadAllFrameParams(ctx)
	if err != nil {
		return fmt.Errorf("load frame params: %w", err)
	}

	scansPerFrame := 0
	maxFrame := ix.globals.NumFrames
	for frameNum, p := range frames {
		scansPerFrame = max(scansPerFrame, p.Scans)
		maxFrame = max(maxFrame, frameNum)
	}

	ix.report(0, "discarding previous index")
	if err := ix.store.ResetBinCentric(ctx); err != nil {
		return err
	}
	if maxFrame == 0 || scansPerFrame == 0 {
		return nil
	}

	group := make(map[int32][]encoding.Pair)
	var memUse int64
	var totalPairs int64
	var runs []*spillRun
	defer func() {
		for _, run := range runs {
			run.discard()
		}
	}()

	lastFrame := 0
	err = ix.store.ScansInRange(ctx, 1, maxFrame, 0, math.MaxInt32, func(rec *storage.ScanRecord) error {
		if rec.FrameNum != lastFrame {
			if ctx.Err() != nil {
				return buildAborted(ctx)
			}
			lastFrame = rec.FrameNum
			ix.report(rec.FrameNum*50/maxFrame, "decoding scans")
		}
		if len(rec.Intensities) == 0 {
			return nil
		}

		pairs, err := ix.codec.DecodePairs(rec.Intensities, int64(ix.globals.Bins))
		if err != nil {
			return fmt.Errorf("decode scan (%d, %d): %w", rec.FrameNum, rec.ScanNum, err)
		}

		encodedBase := int64(rec.FrameNum-1) * int64(scansPerFrame)
		for _, pair := range pairs {
			bin := int32(pair.Index)
			group[bin] = append(group[bin], encoding.Pair{
				Index: encodedBase + int64(rec.ScanNum),
				Value: pair.Value,
			})
			memUse += pairMemCost
			totalPairs++
		}

		if memUse > ix.memoryLimit {
			run, err := writeRun(ix.spillDir, group)
			if err != nil {
				return fmt.Errorf("spill run: %w", err)
			}
			runs = append(runs, run)
			ix.logger.Debug().
				Int("run", len(runs)).
				Int64("pairs", run.pairs).
				Msg("grouping spilled to disk")
			group = make(map[int32][]encoding.Pair)
			memUse = 0
		}

		return nil
	})
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		return ix.writeResident(ctx, group)
	}

	// Mixed resident/spilled state: spill the residue too, then the write
	// phase is a pure merge of sorted runs.
	if len(group) > 0 {
		run, err := writeRun(ix.spillDir, group)
		if err != nil {
			return fmt.Errorf("spill final run: %w", err)
		}
		runs = append(runs, run)
	}

	return ix.writeMerged(ctx, runs, totalPairs)
}

// writeResident encodes and inserts the fully in-memory grouping.
func (ix *Indexer) writeResident(ctx context.Context, group map[int32][]encoding.Pair) error {
	bins := make([]int32, 0, len(group))
	for bin := range group {
		bins = append(bins, bin)
	}
	slices.Sort(bins)

	return ix.store.WriteAllBinCentric(ctx, func(insert func(bin int, data []byte) error) error {
		for i, bin := range bins {
			if i%1024 == 0 && ctx.Err() != nil {
				return buildAborted(ctx)
			}

			pairs := group[bin]
			slices.SortFunc(pairs, func(a, b encoding.Pair) int {
				return cmp.Compare(a.Index, b.Index)
			})
			data, err := ix.codec.EncodePairs(pairs)
			if err != nil {
				return fmt.Errorf("encode bin %d: %w", bin, err)
			}
			if err := insert(int(bin), data); err != nil {
				return fmt.Errorf("insert bin %d: %w", bin, err)
			}
			ix.report(50+(i+1)*50/len(bins), "writing bin records")
		}
		return nil
	})
}

// writeMerged streams the sorted spill runs through a heap merge, closing
// out one bin record whenever the merged stream moves to a new bin.
func (ix *Indexer) writeMerged(ctx context.Context, runs []*spillRun, totalPairs int64) error {
	merge, err := newRunMerge(runs)
	if err != nil {
		return err
	}
	defer merge.close()

	return ix.store.WriteAllBinCentric(ctx, func(insert func(bin int, data []byte) error) error {
		currentBin := int32(-1)
		var pairs []encoding.Pair
		var merged int64

		flush := func() error {
			if currentBin < 0 {
				return nil
			}
			data, err := ix.codec.EncodePairs(pairs)
			if err != nil {
				return fmt.Errorf("encode bin %d: %w", currentBin, err)
			}
			if err := insert(int(currentBin), data); err != nil {
				return fmt.Errorf("insert bin %d: %w", currentBin, err)
			}
			return nil
		}

		for {
			rec, ok, err := merge.next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			if rec.bin != currentBin {
				if err := flush(); err != nil {
					return err
				}
				currentBin = rec.bin
				pairs = pairs[:0]
				if ctx.Err() != nil {
					return buildAborted(ctx)
				}
			}
			pairs = append(pairs, encoding.Pair{Index: rec.scanIndex, Value: rec.intensity})
			merged++
			ix.report(50+int(merged*50/totalPairs), "merging spilled runs")
		}

		return flush()
	})
}

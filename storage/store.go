package storage

import (
	"context"

	"github.com/uimfdata/uimf/param"
)

// ScanRecord is one persisted scan row: the compressed intensity blob plus
// the scalar summaries computed at encode time.
type ScanRecord struct {
	FrameNum     int
	ScanNum      int
	NonZeroCount int
	BPI          float64
	BPIMz        float64
	TIC          float64
	Intensities  []byte
}

// FrameAggregate is one frame's precomputed summary totals, aggregated in
// the store without decoding any blob.
type FrameAggregate struct {
	FrameNum int
	TIC      float64
	BPI      float64
}

// ScanReader reads scan rows. Range reads stream in (frame, scan) order; a
// missing single scan returns errs.ErrScanNotFound.
type ScanReader interface {
	Scan(ctx context.Context, frameNum, scanNum int) (*ScanRecord, error)
	ScansInRange(ctx context.Context, startFrame, endFrame, startScan, endScan int, fn func(*ScanRecord) error) error
	FrameAggregates(ctx context.Context, startFrame, endFrame, startScan, endScan int) ([]FrameAggregate, error)
}

// ScanWriter persists scan rows. Writing an existing (frame, scan) replaces it.
type ScanWriter interface {
	WriteScan(ctx context.Context, rec *ScanRecord) error
}

// ParamReader loads the parameter dictionaries. It includes param.FrameLoader
// so a store can back a param.Cache directly.
type ParamReader interface {
	param.FrameLoader
	LoadGlobalParams(ctx context.Context) (*param.GlobalParams, error)
}

// ParamWriter persists the parameter dictionaries.
type ParamWriter interface {
	WriteFrameParams(ctx context.Context, frameNum int, p *param.FrameParams) error
	WriteGlobalParams(ctx context.Context, g *param.GlobalParams) error
}

// BinCentricWriter owns the derived bin-centric table. Reset drops and
// recreates it; WriteAll runs fn inside one transaction, handing it an
// insert function, and rolls the whole build back if fn fails.
type BinCentricWriter interface {
	ResetBinCentric(ctx context.Context) error
	WriteAllBinCentric(ctx context.Context, fn func(insert func(bin int, blob []byte) error) error) error
}

// BinCentricReader reads derived bin-centric records. A bin with no record
// returns errs.ErrBinNotFound; HasBinCentric reports whether the index has
// been built at all.
type BinCentricReader interface {
	BinCentric(ctx context.Context, bin int) ([]byte, error)
	HasBinCentric(ctx context.Context) (bool, error)
}

// Store is the full storage surface consumed by an open file handle.
type Store interface {
	ScanReader
	ScanWriter
	ParamReader
	ParamWriter
	BinCentricWriter
	BinCentricReader

	Close() error
}

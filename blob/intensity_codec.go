package blob

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/uimfdata/uimf/compress"
	"github.com/uimfdata/uimf/encoding"
	"github.com/uimfdata/uimf/endian"
	"github.com/uimfdata/uimf/errs"
	"github.com/uimfdata/uimf/format"
	"github.com/uimfdata/uimf/internal/logutil"
	"github.com/uimfdata/uimf/internal/options"
)

// Summary holds the scalar summaries computed while encoding one scan.
// They are persisted alongside the blob so read paths can aggregate BPI and
// TIC without decoding.
type Summary struct {
	// TIC is the total ion current: the sum of all intensities.
	TIC int64
	// BPI is the base-peak intensity: the largest single intensity.
	BPI int64
	// BPIBin is the bin holding the base peak (the first such bin on ties).
	BPIBin int64
	// NonZero is the number of bins with a positive intensity.
	NonZero int
}

// IntensityCodec converts between intensity arrays and persisted blobs.
//
// Encoding always produces the canonical current format: RLZE tokens of the
// codec's width, LZF-compressed. Decoding detects the secondary compressor
// variant from the blob bytes, so blobs written by any historical writer
// decode transparently.
//
// Decode paths degrade gracefully: truncated payloads decode up to the last
// whole token, and tokens that land past the declared bin count are dropped.
// Both conditions log rate-limited warnings rather than failing the read,
// since a partial spectrum is more useful than none.
type IntensityCodec struct {
	width      format.IntensityWidth
	engine     endian.EndianEngine
	logger     zerolog.Logger
	outOfRange *logutil.Limiter
	truncated  *logutil.Limiter
}

// Option configures an IntensityCodec.
type Option = options.Option[*IntensityCodec]

// WithLogger sets the logger used for decode-path warnings. The default
// discards them.
func WithLogger(logger zerolog.Logger) Option {
	return options.NoError(func(c *IntensityCodec) {
		c.logger = logger
	})
}

// NewIntensityCodec creates a codec for the given token width.
func NewIntensityCodec(width format.IntensityWidth, opts ...Option) (*IntensityCodec, error) {
	if width != format.Width32 && width != format.Width16 {
		return nil, errs.ErrInvalidWidth
	}

	c := &IntensityCodec{
		width:      width,
		engine:     endian.GetLittleEndianEngine(),
		logger:     zerolog.Nop(),
		outOfRange: logutil.NewLimiter(5, 10000),
		truncated:  logutil.NewLimiter(5, 1000),
	}
	if err := options.Apply(c, opts...); err != nil {
		return nil, err
	}

	return c, nil
}

// Width returns the codec's token width.
func (c *IntensityCodec) Width() format.IntensityWidth {
	return c.width
}

// EncodeDense encodes one scan's dense intensity array into a canonical
// blob, returning the blob and the scan summaries.
//
// Trailing zeros are not encoded; the array length is reconstructed at
// decode time from the global bin count. An all-zero array encodes to an
// empty blob. For 16-bit widths, intensities above 32767 saturate in the
// token stream, and the summaries are computed from the saturated values
// so they always agree with what the blob decodes to.
func (c *IntensityCodec) EncodeDense(values []int32) ([]byte, Summary, error) {
	ceiling := int32(math.MaxInt32)
	if c.width == format.Width16 {
		ceiling = math.MaxInt16
	}

	var sum Summary
	sum.BPIBin = -1
	for i, v := range values {
		if v <= 0 {
			continue
		}
		v = min(v, ceiling)
		sum.TIC += int64(v)
		sum.NonZero++
		if int64(v) > sum.BPI {
			sum.BPI = int64(v)
			sum.BPIBin = int64(i)
		}
	}

	var tokens []byte
	var finish func()
	if c.width == format.Width16 {
		enc := encoding.NewRLZEEncoder[int16](c.engine)
		enc.WriteSlice(values)
		tokens, finish = enc.Bytes(), enc.Finish
	} else {
		enc := encoding.NewRLZEEncoder[int32](c.engine)
		enc.WriteSlice(values)
		tokens, finish = enc.Bytes(), enc.Finish
	}
	defer finish()

	blob, err := compress.NewLZFCompressor().Compress(tokens)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("compress scan: %w", err)
	}

	return blob, sum, nil
}

// EncodePairs encodes an ascending sparse (index, intensity) sequence into a
// canonical blob. It is used for bin-centric records, where the index is the
// encoded scan index rather than a bin number.
func (c *IntensityCodec) EncodePairs(pairs []encoding.Pair) ([]byte, error) {
	var tokens []byte
	var finish func()
	if c.width == format.Width16 {
		enc := encoding.NewRLZEEncoder[int16](c.engine)
		enc.WritePairs(pairs)
		tokens, finish = enc.Bytes(), enc.Finish
	} else {
		enc := encoding.NewRLZEEncoder[int32](c.engine)
		enc.WritePairs(pairs)
		tokens, finish = enc.Bytes(), enc.Finish
	}
	defer finish()

	blob, err := compress.NewLZFCompressor().Compress(tokens)
	if err != nil {
		return nil, fmt.Errorf("compress pairs: %w", err)
	}

	return blob, nil
}

// DecodePairs decodes a blob into its non-zero (index, intensity) pairs in
// ascending index order. Pairs whose index is maxIndex or beyond are dropped
// with a rate-limited warning; pass a negative maxIndex to disable the
// bound.
func (c *IntensityCodec) DecodePairs(data []byte, maxIndex int64) ([]encoding.Pair, error) {
	payload, err := c.decompress(data)
	if err != nil {
		return nil, err
	}

	var pairs []encoding.Pair
	dropped := 0
	decodeTokens(c, payload, func(idx int64, v int32) {
		if maxIndex >= 0 && idx >= maxIndex {
			dropped++
			return
		}
		pairs = append(pairs, encoding.Pair{Index: idx, Value: v})
	})
	c.warnDropped(dropped, maxIndex)

	return pairs, nil
}

// DecodeDense decodes a blob into a dense intensity array of length bins,
// returning the array and the number of non-zero bins. Out-of-range tokens
// are dropped with a rate-limited warning.
func (c *IntensityCodec) DecodeDense(data []byte, bins int) ([]int32, int, error) {
	payload, err := c.decompress(data)
	if err != nil {
		return nil, 0, err
	}

	out := make([]int32, bins)
	nonZero := 0
	dropped := 0
	decodeTokens(c, payload, func(idx int64, v int32) {
		if idx >= int64(bins) {
			dropped++
			return
		}
		if out[idx] == 0 {
			nonZero++
		}
		out[idx] = v
	})
	c.warnDropped(dropped, int64(bins))

	return out, nonZero, nil
}

// Accumulate decodes a blob and adds its intensities into acc, which must
// have the declared bin count as its length. It returns the number of bins
// that went from zero to non-zero, so callers summing many scans can track
// the distinct non-zero bin count incrementally.
func (c *IntensityCodec) Accumulate(data []byte, acc []int64) (int, error) {
	payload, err := c.decompress(data)
	if err != nil {
		return 0, err
	}

	newBins := 0
	dropped := 0
	decodeTokens(c, payload, func(idx int64, v int32) {
		if idx >= int64(len(acc)) {
			dropped++
			return
		}
		if acc[idx] == 0 {
			newBins++
		}
		acc[idx] += int64(v)
	})
	c.warnDropped(dropped, int64(len(acc)))

	return newBins, nil
}

// decompress resolves the blob's compressor variant and recovers the token
// payload. A truncated payload is salvaged and logged; other decompression
// failures abort the read.
func (c *IntensityCodec) decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	variant := compress.Detect(data)
	codec, err := compress.CreateCodec(variant, "intensity")
	if err != nil {
		return nil, errs.ErrUnknownCompression
	}

	payload, err := codec.Decompress(data)
	if err != nil {
		if errors.Is(err, errs.ErrTruncatedBlob) {
			c.truncated.Warn(c.logger).
				Str("variant", variant.String()).
				Int("salvaged_bytes", len(payload)).
				Msg("truncated intensity blob, decoding partial scan")

			return payload, nil
		}

		return nil, fmt.Errorf("decompress %s blob: %w", variant, err)
	}

	return payload, nil
}

func (c *IntensityCodec) warnDropped(dropped int, bound int64) {
	if dropped == 0 {
		return
	}
	c.outOfRange.Warn(c.logger).
		Int("dropped", dropped).
		Int64("bound", bound).
		Msg("decoded indices beyond declared bound, tokens dropped")
}

// decodeTokens walks the token payload at the codec's width, invoking fn for
// every non-zero element. A trailing partial token logs a rate-limited
// warning and is ignored.
func decodeTokens(c *IntensityCodec, payload []byte, fn func(int64, int32)) {
	if c.width == format.Width16 {
		walkTokens[int16](c, payload, fn)
	} else {
		walkTokens[int32](c, payload, fn)
	}
}

func walkTokens[T encoding.Token](c *IntensityCodec, payload []byte, fn func(int64, int32)) {
	dec := encoding.NewRLZEDecoder[T](c.engine)
	if rem := dec.TruncatedBytes(payload); rem != 0 {
		c.truncated.Warn(c.logger).
			Int("trailing_bytes", rem).
			Msg("token payload ends mid-token, ignoring remainder")
	}
	for idx, v := range dec.All(payload) {
		fn(idx, v)
	}
}

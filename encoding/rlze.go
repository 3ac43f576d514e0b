package encoding

import (
	"iter"
	"math"
	"unsafe"

	"github.com/uimfdata/uimf/endian"
	"github.com/uimfdata/uimf/internal/pool"
)

// Token is the set of signed integer widths an RLZE token stream may use.
// 32-bit tokens are the norm; 16-bit tokens appear in files written by
// instruments with short intensity registers.
type Token interface {
	~int16 | ~int32
}

// RLZEEncoder tokenizes a mostly-zero integer sequence using run-length-zero
// encoding: a run of consecutive zeros becomes a single negative token whose
// magnitude is the run length, and each non-zero value becomes one positive
// token. Trailing zeros after the last non-zero value are never emitted, so
// the original sequence length must be carried out of band.
//
// A zero run longer than the largest magnitude the token width can hold
// (32767 for 16-bit tokens, MaxInt32 for 32-bit tokens) is split into
// maximal chunks when the following non-zero value flushes it. The encoder
// never emits the most-negative token value and never emits zero-valued
// tokens; both exist only in streams produced by older writers.
//
// Values are clamped into the token's positive range: negatives encode as
// zeros, values above the width's maximum saturate.
type RLZEEncoder[T Token] struct {
	buf    *pool.ByteBuffer
	engine endian.EndianEngine
	run    int64
	next   int64
	max    int64
	count  int
}

// Pair is one non-zero element of a sparse sequence.
type Pair struct {
	Index int64
	Value int32
}

// NewRLZEEncoder creates a run-length-zero encoder for the token width T
// using the given byte order. Persisted blobs always use little-endian.
func NewRLZEEncoder[T Token](engine endian.EndianEngine) *RLZEEncoder[T] {
	return &RLZEEncoder[T]{
		buf:    pool.GetScanBuffer(),
		engine: engine,
		max:    maxZeroRun[T](),
	}
}

// Write encodes the next element of the sequence.
//
// Values <= 0 extend the pending zero run; positive values flush the run and
// emit one token. For bulk input, use WriteSlice.
func (e *RLZEEncoder[T]) Write(value int32) {
	if e.buf == nil {
		panic("encoder already finished - cannot write after Finish()")
	}

	if value > 0 {
		e.flushRun()
		e.writeToken(saturate[T](value))
	} else {
		e.run++
	}
	e.next++
}

// WriteSlice encodes a full dense sequence.
func (e *RLZEEncoder[T]) WriteSlice(values []int32) {
	for _, v := range values {
		e.Write(v)
	}
}

// WriteAt encodes a sparse element at the given sequence index. Indices must
// be written in strictly ascending order; the gap to the previous index
// becomes a zero run.
func (e *RLZEEncoder[T]) WriteAt(index int64, value int32) {
	if index < e.next {
		panic("WriteAt: indices must be strictly ascending")
	}

	e.skip(index - e.next)
	e.next = index
	e.Write(value)
}

// WritePairs encodes a sparse sequence given as ascending (index, value) pairs.
func (e *RLZEEncoder[T]) WritePairs(pairs []Pair) {
	for _, p := range pairs {
		e.WriteAt(p.Index, p.Value)
	}
}

// Bytes returns the encoded token stream. Pending zero runs are not
// included; trailing zeros are dropped by design.
//
// The returned slice is valid until the next call to Write or Finish and
// must not be modified by the caller.
func (e *RLZEEncoder[T]) Bytes() []byte {
	return e.buf.Bytes()
}

// Len returns the number of tokens emitted so far.
func (e *RLZEEncoder[T]) Len() int {
	return e.count
}

// Size returns the size in bytes of the encoded token stream.
func (e *RLZEEncoder[T]) Size() int {
	return e.buf.Len()
}

// Reset clears the encoder state for a new sequence, reusing the internal
// buffer.
func (e *RLZEEncoder[T]) Reset() {
	e.buf.Reset()
	e.run = 0
	e.next = 0
	e.count = 0
}

// Finish returns buffer resources to the pool. The encoder is no longer
// usable afterwards; any subsequent Write panics.
func (e *RLZEEncoder[T]) Finish() {
	pool.PutScanBuffer(e.buf)
	e.buf = nil
}

func (e *RLZEEncoder[T]) skip(n int64) {
	e.run += n
}

// flushRun emits the pending zero run. Runs longer than the token width can
// hold are split into maximal chunks; the run is only ever flushed because a
// non-zero value follows, so trailing zeros stay unencoded.
func (e *RLZEEncoder[T]) flushRun() {
	for e.run >= e.max {
		e.writeToken(T(-e.max))
		e.run -= e.max
	}
	if e.run > 0 {
		e.writeToken(T(-e.run))
		e.run = 0
	}
}

func (e *RLZEEncoder[T]) writeToken(t T) {
	if unsafe.Sizeof(t) == 2 {
		e.buf.B = e.engine.AppendUint16(e.buf.B, uint16(t))
	} else {
		e.buf.B = e.engine.AppendUint32(e.buf.B, uint32(t))
	}
	e.count++
}

// RLZEDecoder walks an RLZE token stream and reconstructs the positions of
// its non-zero elements.
//
// The decoder is tolerant by construction: a zero-valued token (emitted by a
// buggy legacy writer after a maximal zero run) is a no-op, and a trailing
// partial token is ignored. Bounds against the declared sequence length are
// the caller's concern; the decoder only tracks the running cursor.
type RLZEDecoder[T Token] struct {
	engine endian.EndianEngine
}

// NewRLZEDecoder creates a decoder for the token width T.
func NewRLZEDecoder[T Token](engine endian.EndianEngine) RLZEDecoder[T] {
	return RLZEDecoder[T]{engine: engine}
}

// All returns an iterator yielding (index, value) for every non-zero element
// encoded in data, in ascending index order.
//
// A negative token advances the cursor by its magnitude, a positive token
// yields (cursor, value) and advances the cursor by one, and a zero token is
// skipped. Iteration stops at the last whole token; trailing bytes that do
// not form a complete token are ignored (see TruncatedBytes).
func (d RLZEDecoder[T]) All(data []byte) iter.Seq2[int64, int32] {
	tb := tokenBytes[T]()

	return func(yield func(int64, int32) bool) {
		var cursor int64
		for off := 0; off+tb <= len(data); off += tb {
			t := d.token(data, off)
			switch {
			case t < 0:
				cursor += -t
			case t > 0:
				if !yield(cursor, int32(t)) {
					return
				}
				cursor++
			}
		}
	}
}

// TruncatedBytes returns the number of trailing bytes in data that do not
// form a whole token. A non-zero result indicates a truncated or corrupt
// stream; All still decodes every whole token before the damage.
func (d RLZEDecoder[T]) TruncatedBytes(data []byte) int {
	return len(data) % tokenBytes[T]()
}

// Count returns the number of non-zero elements and the final cursor
// position (the index one past the last encoded element) without
// materializing the sequence.
func (d RLZEDecoder[T]) Count(data []byte) (nonZero int, end int64) {
	tb := tokenBytes[T]()

	var cursor int64
	for off := 0; off+tb <= len(data); off += tb {
		t := d.token(data, off)
		switch {
		case t < 0:
			cursor += -t
		case t > 0:
			nonZero++
			cursor++
		}
	}

	return nonZero, cursor
}

func (d RLZEDecoder[T]) token(data []byte, off int) int64 {
	if tokenBytes[T]() == 2 {
		return int64(int16(d.engine.Uint16(data[off:])))
	}

	return int64(int32(d.engine.Uint32(data[off:])))
}

func tokenBytes[T Token]() int {
	var t T
	return int(unsafe.Sizeof(t))
}

func maxZeroRun[T Token]() int64 {
	if tokenBytes[T]() == 2 {
		return math.MaxInt16
	}

	return math.MaxInt32
}

func saturate[T Token](v int32) T {
	var t T
	if unsafe.Sizeof(t) == 2 && v > math.MaxInt16 {
		return T(math.MaxInt16)
	}

	return T(v)
}

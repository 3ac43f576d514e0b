package compress

import (
	"fmt"

	"github.com/uimfdata/uimf/errs"
)

// LZF block format constants. The format interleaves two record kinds, each
// introduced by a control byte:
//
//   - ctrl < 0x20: literal run of ctrl+1 bytes follows
//   - ctrl >= 0x20: back-reference; length = (ctrl >> 5) + 2 (plus an
//     extension byte when the 3-bit field saturates), offset =
//     ((ctrl & 0x1f) << 8) | next byte, measured back from the output cursor
//     minus one.
const (
	lzfHashLog  = 14
	lzfHashSize = 1 << lzfHashLog
	lzfMaxLit   = 1 << 5
	lzfMaxOff   = 1 << 13
	lzfMaxRef   = (1 << 8) + (1 << 3)
)

// LZFCompressor is the current-variant secondary codec for intensity blobs.
//
// The implementation is kept deliberately self-contained: compressed scans
// must stay byte-stable across releases so that re-encoding a decoded scan
// reproduces the stored blob bit for bit, and pinning the matcher in-repo is
// the only way to guarantee that.
type LZFCompressor struct{}

var _ Codec = (*LZFCompressor)(nil)

// NewLZFCompressor creates a new LZF compressor.
func NewLZFCompressor() LZFCompressor {
	return LZFCompressor{}
}

// Compress compresses the input data into an LZF block stream.
//
// Compression is deterministic: equal input always yields equal output.
// Incompressible data expands by one control byte per 32 literals.
func (c LZFCompressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return lzfCompress(data), nil
}

// Decompress decompresses an LZF block stream.
//
// On truncated input the successfully decoded prefix is returned together
// with an error wrapping errs.ErrTruncatedBlob, so callers can salvage a
// partial scan. An out-of-range back-reference is unrecoverable and returns
// only an error.
func (c LZFCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return lzfDecompress(data)
}

func lzfCompress(in []byte) []byte {
	inLen := len(in)
	out := make([]byte, 0, inLen+inLen/32+3)

	var htab [lzfHashSize]int32
	iidx := 0
	lit := 0

	for iidx < inLen-2 {
		hval := (uint32(in[iidx])<<16 | uint32(in[iidx+1])<<8 | uint32(in[iidx+2]))
		hslot := ((hval >> (3*8 - lzfHashLog)) - hval*5) & (lzfHashSize - 1)
		ref := int(htab[hslot])
		htab[hslot] = int32(iidx)

		off := iidx - ref - 1
		if off < lzfMaxOff && iidx+4 < inLen && ref > 0 &&
			in[ref] == in[iidx] && in[ref+1] == in[iidx+1] && in[ref+2] == in[iidx+2] {
			length := 2
			maxlen := inLen - iidx - length
			if maxlen > lzfMaxRef {
				maxlen = lzfMaxRef
			}
			for length < maxlen && in[ref+length] == in[iidx+length] {
				length++
			}

			if lit != 0 {
				out[len(out)-lit-1] = byte(lit - 1)
				lit = 0
			}

			l := length - 2
			if l < 7 {
				out = append(out, byte(off>>8)|byte(l<<5), byte(off))
			} else {
				out = append(out, byte(off>>8)|(7<<5), byte(l-7), byte(off))
			}

			iidx += length
		} else {
			if lit == 0 {
				out = append(out, 0) // placeholder for the literal control byte
			}
			out = append(out, in[iidx])
			lit++
			iidx++

			if lit == lzfMaxLit {
				out[len(out)-lit-1] = byte(lit - 1)
				lit = 0
			}
		}
	}

	for iidx < inLen {
		if lit == 0 {
			out = append(out, 0)
		}
		out = append(out, in[iidx])
		lit++
		iidx++

		if lit == lzfMaxLit {
			out[len(out)-lit-1] = byte(lit - 1)
			lit = 0
		}
	}

	if lit != 0 {
		out[len(out)-lit-1] = byte(lit - 1)
	}

	return out
}

func lzfDecompress(in []byte) ([]byte, error) {
	out := make([]byte, 0, len(in)*4)

	i := 0
	for i < len(in) {
		ctrl := int(in[i])
		i++

		if ctrl < 0x20 {
			n := ctrl + 1
			if i+n > len(in) {
				// Salvage whatever literals survived.
				out = append(out, in[i:]...)
				return out, fmt.Errorf("lzf: literal run cut short: %w", errs.ErrTruncatedBlob)
			}
			out = append(out, in[i:i+n]...)
			i += n

			continue
		}

		length := ctrl >> 5
		if length == 7 {
			if i >= len(in) {
				return out, fmt.Errorf("lzf: missing length extension byte: %w", errs.ErrTruncatedBlob)
			}
			length += int(in[i])
			i++
		}
		if i >= len(in) {
			return out, fmt.Errorf("lzf: missing offset byte: %w", errs.ErrTruncatedBlob)
		}

		ref := len(out) - ((ctrl & 0x1f) << 8) - int(in[i]) - 1
		i++
		if ref < 0 {
			return nil, fmt.Errorf("lzf: back-reference before stream start at byte %d", i-1)
		}

		// Byte-wise copy: back-references may overlap their own output.
		for j := 0; j < length+2; j++ {
			out = append(out, out[ref])
			ref++
		}
	}

	return out, nil
}

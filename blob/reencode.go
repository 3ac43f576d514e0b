package blob

import (
	"github.com/uimfdata/uimf/internal/hash"
)

// Reencode decodes a blob of any supported variant and re-encodes it in the
// canonical current format (RLZE + LZF).
//
// The second return value reports whether the canonical bytes differ from
// the input, compared by fingerprint. A blob that is already canonical comes
// back byte-identical and unchanged; legacy blobs come back rewritten. The
// caller decides whether to persist the result — this function never touches
// storage, so old files are not silently rewritten in place.
func (c *IntensityCodec) Reencode(data []byte) ([]byte, bool, error) {
	pairs, err := c.DecodePairs(data, -1)
	if err != nil {
		return nil, false, err
	}

	out, err := c.EncodePairs(pairs)
	if err != nil {
		return nil, false, err
	}

	changed := len(out) != len(data) || hash.Fingerprint(out) != hash.Fingerprint(data)

	return out, changed, nil
}

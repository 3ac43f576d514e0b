package hash

import "github.com/cespare/xxhash/v2"

// Fingerprint computes the xxHash64 of a blob's bytes. It is used to detect
// whether a re-encoded blob differs from the stored one without byte-wise
// comparison of large payloads.
func Fingerprint(data []byte) uint64 {
	return xxhash.Sum64(data)
}

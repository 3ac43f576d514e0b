// Package encoding implements the run-length-zero (RLZE) token codec used
// for sparse intensity arrays.
//
// An intensity array is conceptually int[Bins] and almost entirely zero.
// RLZE walks it left to right: consecutive zeros collapse into one negative
// token whose magnitude is the run length, each non-zero value becomes one
// positive token, and trailing zeros are dropped entirely. The array length
// therefore travels out of band (the global bin count for scan blobs, the
// total scan count for bin-centric blobs).
//
// Tokens are fixed-width little-endian signed integers, either 32-bit or
// 16-bit depending on the file's intensity width. The token stream is not
// stored raw; the blob package applies a secondary byte compressor on top.
//
// The same codec serves two storage layouts:
//
//   - scan blobs: index = bin number, value = intensity
//   - bin-centric blobs: index = encoded scan index, value = intensity
//
// Decoding is deliberately forgiving. Zero-valued tokens (an artifact of a
// legacy writer's zero-run overflow bug) are skipped, and truncated streams
// decode up to the last whole token.
package encoding

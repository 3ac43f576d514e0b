// Package compress provides the secondary byte compressors applied to RLZE
// token payloads before they are persisted.
//
// Intensity blobs are compressed in two stages: the encoding package
// collapses zero runs into tokens, and this package compresses the token
// bytes with a general-purpose algorithm. The current writer always emits
// LZF; every other codec exists to read files produced by historical or
// experimental writers, or to compress transient spill data during index
// builds.
//
// # Variants
//
//   - LZF (format.CompressionLZF): current persisted variant, implemented
//     in-repo so compressed output stays byte-stable across releases.
//   - Zlib (format.CompressionZlib): deflate-era legacy files.
//   - LZ4 (format.CompressionLZ4): lz4-frame-era legacy files.
//   - Zstd (format.CompressionZstd): experimental beta-writer files; also
//     selectable for spill runs. Pure Go by default, cgo via the cgozstd
//     build tag.
//   - S2 (format.CompressionS2): bin-centric spill runs only.
//   - NoOp (format.CompressionNone): tests and debugging.
//
// Persisted blobs carry no explicit variant tag; Detect classifies a blob
// from its leading bytes. Every variant except LZF starts with a
// distinctive header, and an LZF stream always begins with a literal-run
// control byte below 0x20, so classification is unambiguous in practice.
//
// # Thread safety
//
// All codecs are stateless values, safe for concurrent use. Pooled
// encoder/decoder state (zlib, zstd) is checked out per call.
package compress

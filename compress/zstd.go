package compress

// ZstdCompressor handles Zstandard-compressed blobs.
//
// A short-lived beta writer emitted zstd scans; decode support keeps those
// files readable. The codec is also selectable for spill runs when index
// builds are disk-bound rather than CPU-bound.
//
// Two implementations exist behind the cgozstd build tag: the default pure
// Go decoder/encoder, and a cgo binding for deployments that already link
// libzstd.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd compressor with default settings.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}

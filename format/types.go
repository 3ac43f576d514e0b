package format

type (
	CompressionType uint8
	IntensityWidth  uint8
	FrameType       int
)

const (
	CompressionLZF  CompressionType = 0x1 // CompressionLZF is the current secondary compressor.
	CompressionZlib CompressionType = 0x2 // CompressionZlib is the deflate-era legacy compressor.
	CompressionLZ4  CompressionType = 0x3 // CompressionLZ4 is the lz4-frame-era legacy compressor.
	CompressionZstd CompressionType = 0x4 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x5 // CompressionS2 represents S2 compression (spill runs).
	CompressionNone CompressionType = 0x6 // CompressionNone represents no compression.

	Width32 IntensityWidth = 0x1 // Width32 stores intensity tokens as 32-bit signed integers.
	Width16 IntensityWidth = 0x2 // Width16 stores intensity tokens as 16-bit signed integers.
)

// Frame types recorded in the per-frame parameter store. The zero value is
// reserved to mean "no filter" in range queries.
const (
	FrameTypeAny           FrameType = 0
	FrameTypeMS1           FrameType = 1
	FrameTypeFragmentation FrameType = 2
	FrameTypeCalibration   FrameType = 3
	FrameTypePrescan       FrameType = 4
)

func (c CompressionType) String() string {
	switch c {
	case CompressionLZF:
		return "LZF"
	case CompressionZlib:
		return "Zlib"
	case CompressionLZ4:
		return "LZ4"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionNone:
		return "None"
	default:
		return "Unknown"
	}
}

func (w IntensityWidth) String() string {
	switch w {
	case Width32:
		return "Int32"
	case Width16:
		return "Int16"
	default:
		return "Unknown"
	}
}

// TokenBytes returns the size in bytes of one RLZE token for the width.
func (w IntensityWidth) TokenBytes() int {
	if w == Width16 {
		return 2
	}

	return 4
}

func (f FrameType) String() string {
	switch f {
	case FrameTypeAny:
		return "Any"
	case FrameTypeMS1:
		return "MS1"
	case FrameTypeFragmentation:
		return "Fragmentation"
	case FrameTypePrescan:
		return "Prescan"
	case FrameTypeCalibration:
		return "Calibration"
	default:
		return "Unknown"
	}
}

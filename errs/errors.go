// Package errs defines sentinel errors shared across uimf packages.
package errs

import "errors"

var (
	// ErrFrameNotFound indicates a frame number has no parameter record.
	ErrFrameNotFound = errors.New("frame not found")

	// ErrScanNotFound indicates a (frame, scan) pair has no stored record.
	ErrScanNotFound = errors.New("scan not found")

	// ErrBinNotFound indicates a bin has no bin-centric record.
	ErrBinNotFound = errors.New("bin not found")

	// ErrMissingCalibration indicates a frame lacks calibration slope or
	// intercept; any m/z conversion for that frame must fail.
	ErrMissingCalibration = errors.New("frame missing calibration slope/intercept")

	// ErrUnknownCompression indicates blob bytes that match no known
	// secondary compressor variant.
	ErrUnknownCompression = errors.New("unknown blob compression variant")

	// ErrTruncatedBlob indicates a blob whose decompressed payload ends in
	// the middle of a token. Decoders recover what they can; callers that
	// need strict validation check for this error.
	ErrTruncatedBlob = errors.New("truncated intensity blob")

	// ErrInvalidWidth indicates an intensity width other than Width32 or Width16.
	ErrInvalidWidth = errors.New("invalid intensity width")

	// ErrClosed indicates an operation on a closed file handle or store.
	ErrClosed = errors.New("file is closed")

	// ErrAborted indicates a long-running build observed a cancelled context.
	ErrAborted = errors.New("operation aborted")
)

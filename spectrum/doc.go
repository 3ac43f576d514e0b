// Package spectrum sums and calibrates scans over frame/scan ranges.
//
// The engine never loads a whole range into memory: scans stream out of the
// store in frame-major order and fold into a single bin-indexed
// accumulator. Summation runs over int64 regardless of the requested output
// width, so overlapping peaks cannot overflow mid-sum; narrowing happens
// once at the boundary.
//
// BPI and TIC queries read the precomputed per-scan columns and never touch
// an intensity blob.
package spectrum

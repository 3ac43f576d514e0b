// Package blob implements the intensity blob codec: the two-stage transform
// between a scan's sparse intensity array and the bytes persisted in the
// Intensities column.
//
// Stage one is the RLZE tokenization from the encoding package; stage two is
// a secondary byte compressor from the compress package. Writers always emit
// the canonical current format (RLZE + LZF). Readers accept every historical
// variant, classified from the blob's leading bytes.
//
// Scan summaries (TIC, BPI, base-peak bin, non-zero count) are computed
// during encoding and persisted next to the blob, so aggregate queries never
// need to decode.
//
// The same codec encodes bin-centric records: the sparse index is then an
// encoded scan index instead of a bin number, with gaps between consecutive
// scan indices taking the place of zero runs.
package blob

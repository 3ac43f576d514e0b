// Package storage defines the persistence surface of an instrument file and
// provides the SQLite implementation.
//
// The interfaces split by concern: ScanReader and ScanWriter cover the
// scan-centric Frame_Scans table, ParamReader and ParamWriter cover the
// frame and global parameter tables, and BinCentricReader/BinCentricWriter
// cover the derived Bin_Intensities index. Store composes all of them.
//
// SQLite stores parameter values as text keyed by ParamID and maps missing
// rows to the sentinel errors in package errs, so callers can distinguish
// absence from corruption.
package storage

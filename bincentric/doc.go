// Package bincentric builds the transposed m/z-bin index from scan-major
// data.
//
// Scan blobs store intensities per (frame, scan); queries that slice by m/z
// bin would otherwise decode the whole file. The indexer transposes once:
// every (bin, intensity) observation is regrouped under its bin, keyed by a
// flattened scan index, and stored one record per bin using the same
// run-length token encoding as scan blobs (gaps between scan indices become
// the zero runs).
//
// Files too large to regroup in memory spill sorted compressed runs to temp
// files and merge them back during the write phase.
package bincentric

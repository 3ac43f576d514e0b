// Package param models the typed key/value parameter dictionaries persisted
// per frame and per file, and the in-process cache that serves per-frame
// lookups.
//
// Parameters are stored as (ParamID, text) rows. Each known ParamID is
// enumerated here with its semantic name and declared value kind; values are
// tagged unions with explicit, fallible conversions rather than
// reflection-driven dynamic typing. Unknown ParamIDs found in a file are
// ignored on read and left untouched on write.
package param

// Package endian provides byte order utilities for binary encoding and decoding.
//
// It combines the standard library's binary.ByteOrder and
// binary.AppendByteOrder into a single EndianEngine interface so encoders can
// both read fixed-width tokens and append them without intermediate buffers.
//
// Persisted intensity blobs are always little-endian.
package endian

import "encoding/binary"

// EndianEngine combines ByteOrder and AppendByteOrder interfaces from
// encoding/binary into a single interface for convenient byte order
// operations.
//
// The interface is satisfied by binary.LittleEndian and binary.BigEndian,
// making it fully compatible with existing Go code while providing access to
// both read/write and append operations.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetLittleEndianEngine returns the little-endian engine used for all
// persisted blob payloads.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

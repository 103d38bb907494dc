// Package mlecodec provides the big/little-endian conversions and the
// fixed-layout TLV framing every MLE frame and command is built from.
package mlecodec

import "encoding/binary"

// Swap16 reverses the byte order of v.
func Swap16(v uint16) uint16 {
	return v<<8 | v>>8
}

// Swap32 reverses the byte order of v.
func Swap32(v uint32) uint32 {
	return v<<24 | (v<<8)&0x00ff0000 | (v>>8)&0x0000ff00 | v>>24
}

// Swap64 reverses the byte order of v.
func Swap64(v uint64) uint64 {
	return uint64(Swap32(uint32(v)))<<32 | uint64(Swap32(uint32(v>>32)))
}

// HostToBE16 converts a host-order value to big-endian wire order, the byte
// order of every TLV value on the wire.
func HostToBE16(v uint16) uint16 {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return binary.NativeEndian.Uint16(b[:])
}

// HostToBE32 converts a host-order value to big-endian wire order.
func HostToBE32(v uint32) uint32 {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return binary.NativeEndian.Uint32(b[:])
}

// HostToBE64 converts a host-order value to big-endian wire order.
func HostToBE64(v uint64) uint64 {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return binary.NativeEndian.Uint64(b[:])
}

// BEToHost16 converts a big-endian wire value to host order.
func BEToHost16(v uint16) uint16 { return HostToBE16(v) }

// BEToHost32 converts a big-endian wire value to host order.
func BEToHost32(v uint32) uint32 { return HostToBE32(v) }

// BEToHost64 converts a big-endian wire value to host order.
func BEToHost64(v uint64) uint64 { return HostToBE64(v) }

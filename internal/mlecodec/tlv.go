package mlecodec

import (
	"encoding/binary"

	"github.com/AdguardTeam/golibs/errors"
)

// ErrTruncated is returned when a message ends before a TLV header or its
// declared value is fully present.
const ErrTruncated errors.Error = "mlecodec: truncated tlv"

// ErrNotFound is returned by ReadTLV when the requested type is absent.
const ErrNotFound errors.Error = "mlecodec: tlv not found"

// extendedLengthMarker is the Length byte value that signals the extended,
// 16-bit-length TLV form used for payloads of 255 bytes or more.
const extendedLengthMarker = 255

// TLV is a decoded type/length/value triple together with the byte range
// its value occupies in the original message, so callers needing extended
// validation can re-slice without copying.
type TLV struct {
	Type   uint8
	Offset int
	Length int
}

// FindTLV performs a first-match linear scan for a TLV of the given type
// and returns its location in message, or ok == false if absent or the
// framing is malformed at any point during the scan.
func FindTLV(message []byte, typ uint8) (t TLV, ok bool) {
	i := 0
	for i < len(message) {
		if i+2 > len(message) {
			return TLV{}, false
		}
		curType := message[i]
		length := int(message[i+1])
		valueOff := i + 2

		if length == extendedLengthMarker {
			if valueOff+2 > len(message) {
				return TLV{}, false
			}
			length = int(binary.BigEndian.Uint16(message[valueOff : valueOff+2]))
			valueOff += 2
		}

		if valueOff+length > len(message) {
			return TLV{}, false
		}

		if curType == typ {
			return TLV{Type: curType, Offset: valueOff, Length: length}, true
		}

		i = valueOff + length
	}

	return TLV{}, false
}

// ReadTLV locates the TLV named by typ and copies its value into out.  It
// fails with [ErrTruncated] if the value's length does not exactly match
// len(out), and [ErrNotFound] if the TLV is absent.
func ReadTLV(message []byte, typ uint8, out []byte) error {
	t, ok := FindTLV(message, typ)
	if !ok {
		return ErrNotFound
	}
	if t.Length != len(out) {
		return ErrTruncated
	}

	copy(out, message[t.Offset:t.Offset+t.Length])
	return nil
}

// AppendTLV appends a type/length/value TLV to dst, using the extended
// 16-bit-length form automatically when value is 255 bytes or longer.
func AppendTLV(dst []byte, typ uint8, value []byte) []byte {
	dst = append(dst, typ)
	if len(value) < extendedLengthMarker {
		dst = append(dst, byte(len(value)))
		return append(dst, value...)
	}

	dst = append(dst, extendedLengthMarker)
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(value)))
	dst = append(dst, lenBuf[:]...)
	return append(dst, value...)
}

// AppendUint8TLV appends a single-byte-value TLV.
func AppendUint8TLV(dst []byte, typ uint8, v uint8) []byte {
	return AppendTLV(dst, typ, []byte{v})
}

// AppendUint16TLV appends a big-endian uint16-value TLV.
func AppendUint16TLV(dst []byte, typ uint8, v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return AppendTLV(dst, typ, b[:])
}

// AppendUint32TLV appends a big-endian uint32-value TLV.
func AppendUint32TLV(dst []byte, typ uint8, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return AppendTLV(dst, typ, b[:])
}

// ReadUint8TLV decodes a single-byte TLV value.
func ReadUint8TLV(message []byte, typ uint8) (v uint8, err error) {
	t, ok := FindTLV(message, typ)
	if !ok {
		return 0, ErrNotFound
	}
	if t.Length != 1 {
		return 0, ErrTruncated
	}
	return message[t.Offset], nil
}

// ReadUint16TLV decodes a big-endian uint16 TLV value.
func ReadUint16TLV(message []byte, typ uint8) (v uint16, err error) {
	t, ok := FindTLV(message, typ)
	if !ok {
		return 0, ErrNotFound
	}
	if t.Length != 2 {
		return 0, ErrTruncated
	}
	return binary.BigEndian.Uint16(message[t.Offset : t.Offset+2]), nil
}

// ReadUint32TLV decodes a big-endian uint32 TLV value.
func ReadUint32TLV(message []byte, typ uint8) (v uint32, err error) {
	t, ok := FindTLV(message, typ)
	if !ok {
		return 0, ErrNotFound
	}
	if t.Length != 4 {
		return 0, ErrTruncated
	}
	return binary.BigEndian.Uint32(message[t.Offset : t.Offset+4]), nil
}

package mlecrypto

import (
	"encoding/binary"

	"github.com/AdguardTeam/golibs/errors"
)

// KeyIDMode selects how a frame's key identifier field names its key
// sequence.
type KeyIDMode uint8

const (
	// KeyIDMode1 is the 1-byte form used for routine commands.
	KeyIDMode1 KeyIDMode = 1
	// KeyIDMode5 is the 5-byte form used for attach-phase commands.
	KeyIDMode5 KeyIDMode = 5
)

const (
	securitySuiteEnabled  byte = 0x00
	securityLevelEncMic32 byte = 5

	keyIDModeShift = 3
	keyIDModeMask  = 0x3 << keyIDModeShift
)

// ErrUnsupportedSecuritySuite is returned when the security_suite byte is
// anything other than "Enabled".
const ErrUnsupportedSecuritySuite errors.Error = "mlecrypto: unsupported security suite"

// ErrUnsupportedSecurityLevel is returned when the decoded level is not
// EncMic32, the only level this implementation supports.
const ErrUnsupportedSecurityLevel errors.Error = "mlecrypto: unsupported security level"

// ErrShortHeader is returned when the datagram ends before a complete
// security header.
const ErrShortHeader errors.Error = "mlecrypto: truncated security header"

// Header is a decoded MLE security header.
type Header struct {
	FrameCounter uint32
	KeyIDMode    KeyIDMode
	KeySequence  uint32 // full 32-bit sequence (Mode5); 0 when decoded from Mode1
	KeyIndex     uint8  // low 7 bits of the sequence, +1
}

// wireKeyIDMode encodes mode into the security_control key-id-mode bits.
func wireKeyIDMode(mode KeyIDMode) byte {
	switch mode {
	case KeyIDMode1:
		return 0x01 << keyIDModeShift
	case KeyIDMode5:
		return 0x02 << keyIDModeShift
	default:
		return 0
	}
}

// EncodeHeader writes the security header for an outbound frame and
// returns the bytes appended to dst.
func EncodeHeader(dst []byte, frameCounter uint32, mode KeyIDMode, keySequence uint32) []byte {
	dst = append(dst, securitySuiteEnabled)
	dst = append(dst, securityLevelEncMic32|wireKeyIDMode(mode))

	var fc [4]byte
	binary.LittleEndian.PutUint32(fc[:], frameCounter)
	dst = append(dst, fc[:]...)

	switch mode {
	case KeyIDMode1:
		dst = append(dst, byte(keySequence&0x7f)+1)
	case KeyIDMode5:
		var seq [4]byte
		binary.LittleEndian.PutUint32(seq[:], keySequence)
		dst = append(dst, seq[:]...)
		dst = append(dst, byte(keySequence&0x7f)+1)
	}

	return dst
}

// DecodeHeader parses the security header at the start of message and
// returns it along with the number of bytes it occupied.
func DecodeHeader(message []byte) (h Header, n int, err error) {
	if len(message) < 6 {
		return Header{}, 0, ErrShortHeader
	}
	if message[0] != securitySuiteEnabled {
		return Header{}, 0, ErrUnsupportedSecuritySuite
	}

	control := message[1]
	if control&0x7 != securityLevelEncMic32 {
		return Header{}, 0, ErrUnsupportedSecurityLevel
	}

	h.FrameCounter = binary.LittleEndian.Uint32(message[2:6])

	switch (control & keyIDModeMask) >> keyIDModeShift {
	case 1:
		if len(message) < 7 {
			return Header{}, 0, ErrShortHeader
		}
		h.KeyIDMode = KeyIDMode1
		h.KeyIndex = message[6]
		n = 7
	case 2:
		if len(message) < 11 {
			return Header{}, 0, ErrShortHeader
		}
		h.KeyIDMode = KeyIDMode5
		h.KeySequence = binary.LittleEndian.Uint32(message[6:10])
		h.KeyIndex = message[10]
		n = 11
	default:
		return Header{}, 0, ErrUnsupportedSecurityLevel
	}

	return h, n, nil
}

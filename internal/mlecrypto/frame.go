package mlecrypto

import (
	"net/netip"

	"github.com/nodecore/mle/internal/mlecodec"
)

// OutboundFrame is a fully encoded secure MLE datagram ready to hand to the
// transport capability.
type OutboundFrame struct {
	Bytes        []byte
	FrameCounter uint32
}

// EncodeFrame builds the security header, encrypts command||tlvs, and
// appends the MIC, following the associated-data and nonce construction
// rules for AES-CCM* security frames.
// selfExtAddr is this device's own extended address (the sender, and so
// the nonce source); selfAddr/peerAddr are the link-local IPv6 endpoints
// covered by the associated data.
func EncodeFrame(
	key [MleKeySize]byte,
	mode KeyIDMode,
	keySequence uint32,
	frameCounter uint32,
	selfExtAddr [8]byte,
	selfAddr, peerAddr netip.Addr,
	command mlecodec.Command,
	tlvs []byte,
) OutboundFrame {
	var header []byte
	header = EncodeHeader(header, frameCounter, mode, keySequence)

	plaintext := make([]byte, 0, 1+len(tlvs))
	plaintext = append(plaintext, byte(command))
	plaintext = append(plaintext, tlvs...)

	// The receiver sees this device as its peer, so the sender's own
	// address comes first in the associated data.
	ad := associatedData(selfAddr, peerAddr, header[1:])

	sealed, err := Seal(key, selfExtAddr, frameCounter, securityLevelEncMic32, ad, plaintext)
	if err != nil {
		// AES-128 key construction from a fixed-size array cannot
		// fail; surfacing a panic here would only hide a programming
		// error (e.g. a corrupted KeyManager).
		panic(err)
	}

	out := make([]byte, 0, len(header)+len(sealed))
	out = append(out, header...)
	out = append(out, sealed...)

	return OutboundFrame{Bytes: out, FrameCounter: frameCounter}
}

// DecodedFrame is an authenticated, decrypted inbound MLE datagram.
type DecodedFrame struct {
	Header  Header
	Command mlecodec.Command
	TLVs    []byte
}

// KeyLookup resolves a decoded security header to the AES key that should
// be tried, returning the resolved key sequence for counter bookkeeping.
// Implementations try current, then previous (if valid), then treat the
// header as future-from-current.
type KeyLookup func(h Header) (key [MleKeySize]byte, resolvedSequence uint32, ok bool)

// DecodeFrame authenticates and decrypts an inbound datagram, trying keys
// via lookup until one verifies. peerExtAddr is the sender's extended
// address, recovered by the caller from the source IPv6 address; selfAddr/peerAddr are the same link-local endpoints used on
// encode, with roles swapped to match the associated-data order (peer
// first, self second, from the receiver's point of view the "peer" is the
// sender).
func DecodeFrame(message []byte, peerExtAddr [8]byte, selfAddr, peerAddr netip.Addr, lookup KeyLookup) (DecodedFrame, uint32, error) {
	h, n, err := DecodeHeader(message)
	if err != nil {
		return DecodedFrame{}, 0, err
	}

	key, resolvedSeq, ok := lookup(h)
	if !ok {
		return DecodedFrame{}, 0, ErrMICMismatch
	}

	ad := associatedData(peerAddr, selfAddr, message[1:n])

	plaintext, err := Open(key, peerExtAddr, h.FrameCounter, securityLevelEncMic32, ad, message[n:])
	if err != nil {
		return DecodedFrame{}, 0, err
	}
	if len(plaintext) < 1 {
		return DecodedFrame{}, 0, ErrShortHeader
	}

	return DecodedFrame{
		Header:  h,
		Command: mlecodec.Command(plaintext[0]),
		TLVs:    plaintext[1:],
	}, resolvedSeq, nil
}

// associatedData assembles the CCM MIC's associated-data span: peer IPv6
// address, self IPv6 address, then security_control through the end of the
// key identifier (header bytes after security_suite, which is excluded).
func associatedData(peerAddr, selfAddr netip.Addr, securityControlThroughKeyID []byte) []byte {
	peerBytes := peerAddr.As16()
	selfBytes := selfAddr.As16()

	ad := make([]byte, 0, 32+len(securityControlThroughKeyID))
	ad = append(ad, peerBytes[:]...)
	ad = append(ad, selfBytes[:]...)
	ad = append(ad, securityControlThroughKeyID...)
	return ad
}

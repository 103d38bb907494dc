package mlecrypto_test

import (
	"net/netip"
	"testing"

	"github.com/nodecore/mle/internal/mlecodec"
	"github.com/nodecore/mle/internal/mlecrypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeader_Mode1RoundTrip(t *testing.T) {
	var buf []byte
	buf = mlecrypto.EncodeHeader(buf, 7, mlecrypto.KeyIDMode1, 130)

	h, n, err := mlecrypto.DecodeHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, 7, len(buf))
	assert.Equal(t, len(buf), n)
	assert.Equal(t, uint32(7), h.FrameCounter)
	assert.Equal(t, mlecrypto.KeyIDMode1, h.KeyIDMode)
	assert.Equal(t, uint8(130&0x7f)+1, h.KeyIndex)
}

func TestHeader_Mode5RoundTrip(t *testing.T) {
	var buf []byte
	buf = mlecrypto.EncodeHeader(buf, 99, mlecrypto.KeyIDMode5, 0xdeadbeef)

	h, n, err := mlecrypto.DecodeHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	assert.Equal(t, mlecrypto.KeyIDMode5, h.KeyIDMode)
	assert.Equal(t, uint32(0xdeadbeef), h.KeySequence)
}

func TestEncodeDecodeFrame_RoundTrip(t *testing.T) {
	km := mlecrypto.NewKeyManager([32]byte{1, 2, 3, 4})
	leaderExt := [8]byte{1, 1, 1, 1, 1, 1, 1, 1}
	childExt := [8]byte{2, 2, 2, 2, 2, 2, 2, 2}

	leaderAddr := netip.MustParseAddr("fe80::1")
	childAddr := netip.MustParseAddr("fe80::2")

	var tlvs []byte
	tlvs = mlecodec.AppendUint16TLV(tlvs, mlecodec.TypeSourceAddress, 0x0400)

	out := mlecrypto.EncodeFrame(
		km.CurrentMleKey(), mlecrypto.KeyIDMode1, km.CurrentSequence(), 0,
		leaderExt, leaderAddr, childAddr,
		mlecodec.CommandAdvertisement, tlvs,
	)

	lookup := func(h mlecrypto.Header) ([mlecrypto.MleKeySize]byte, uint32, bool) {
		return km.CurrentMleKey(), km.CurrentSequence(), true
	}

	decoded, seq, err := mlecrypto.DecodeFrame(out.Bytes, leaderExt, childAddr, leaderAddr, lookup)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), seq)
	assert.Equal(t, mlecodec.CommandAdvertisement, decoded.Command)

	got, err := mlecodec.ReadUint16TLV(decoded.TLVs, mlecodec.TypeSourceAddress)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0400), got)
}

func TestDecodeFrame_RejectsBadMIC(t *testing.T) {
	km := mlecrypto.NewKeyManager([32]byte{9})
	selfExt := [8]byte{1}
	selfAddr := netip.MustParseAddr("fe80::1")
	peerAddr := netip.MustParseAddr("fe80::2")

	out := mlecrypto.EncodeFrame(km.CurrentMleKey(), mlecrypto.KeyIDMode1, 0, 0, selfExt, selfAddr, peerAddr, mlecodec.CommandDataRequest, nil)
	out.Bytes[len(out.Bytes)-1] ^= 0xff

	lookup := func(h mlecrypto.Header) ([mlecrypto.MleKeySize]byte, uint32, bool) {
		return km.CurrentMleKey(), 0, true
	}
	_, _, err := mlecrypto.DecodeFrame(out.Bytes, selfExt, peerAddr, selfAddr, lookup)
	assert.Error(t, err)
}

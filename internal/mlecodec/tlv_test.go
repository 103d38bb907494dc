package mlecodec_test

import (
	"testing"

	"github.com/nodecore/mle/internal/mlecodec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindTLV(t *testing.T) {
	var msg []byte
	msg = mlecodec.AppendUint16TLV(msg, mlecodec.TypeSourceAddress, 0x0401)
	msg = mlecodec.AppendUint8TLV(msg, mlecodec.TypeMode, 0x0f)

	tlv, ok := mlecodec.FindTLV(msg, mlecodec.TypeMode)
	require.True(t, ok)
	assert.Equal(t, 1, tlv.Length)

	_, ok = mlecodec.FindTLV(msg, mlecodec.TypeTimeout)
	assert.False(t, ok)
}

func TestFindTLV_Truncated(t *testing.T) {
	msg := []byte{mlecodec.TypeMode, 4, 1, 2}
	_, ok := mlecodec.FindTLV(msg, mlecodec.TypeMode)
	assert.False(t, ok)
}

func TestReadTLV_RoundTrip(t *testing.T) {
	var msg []byte
	msg = mlecodec.AppendUint32TLV(msg, mlecodec.TypeTimeout, 240)

	got, err := mlecodec.ReadUint32TLV(msg, mlecodec.TypeTimeout)
	require.NoError(t, err)
	assert.Equal(t, uint32(240), got)

	_, err = mlecodec.ReadUint32TLV(msg, mlecodec.TypeRoute)
	assert.ErrorIs(t, err, mlecodec.ErrNotFound)
}

func TestAppendTLV_ExtendedLength(t *testing.T) {
	value := make([]byte, 300)
	for i := range value {
		value[i] = byte(i)
	}

	msg := mlecodec.AppendTLV(nil, mlecodec.TypeNetworkData, value)
	tlv, ok := mlecodec.FindTLV(msg, mlecodec.TypeNetworkData)
	require.True(t, ok)
	assert.Equal(t, 300, tlv.Length)
	assert.Equal(t, value, msg[tlv.Offset:tlv.Offset+tlv.Length])
}

func TestByteOrder_SwapRoundTrip(t *testing.T) {
	assert.Equal(t, uint16(0x1234), mlecodec.Swap16(mlecodec.Swap16(0x1234)))
	assert.Equal(t, uint32(0x11223344), mlecodec.Swap32(mlecodec.Swap32(0x11223344)))
	assert.Equal(t, uint64(0x1122334455667788), mlecodec.Swap64(mlecodec.Swap64(0x1122334455667788)))
}

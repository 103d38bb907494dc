package mlecrypto_test

import (
	"testing"

	"github.com/nodecore/mle/internal/mlecrypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen_RoundTrip(t *testing.T) {
	var key [mlecrypto.MleKeySize]byte
	for i := range key {
		key[i] = byte(i)
	}

	extAddr := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	ad := []byte("associated data spanning security control through command")
	plaintext := []byte("child id request tlvs go here")

	sealed, err := mlecrypto.Seal(key, extAddr, 42, 5, ad, plaintext)
	require.NoError(t, err)

	got, err := mlecrypto.Open(key, extAddr, 42, 5, ad, sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestOpen_RejectsTamperedCiphertext(t *testing.T) {
	var key [mlecrypto.MleKeySize]byte
	extAddr := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	ad := []byte("ad")
	plaintext := []byte("payload")

	sealed, err := mlecrypto.Seal(key, extAddr, 1, 5, ad, plaintext)
	require.NoError(t, err)

	sealed[0] ^= 0xff

	_, err = mlecrypto.Open(key, extAddr, 1, 5, ad, sealed)
	assert.ErrorIs(t, err, mlecrypto.ErrMICMismatch)
}

func TestOpen_RejectsWrongKey(t *testing.T) {
	var key, otherKey [mlecrypto.MleKeySize]byte
	otherKey[0] = 1
	extAddr := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}

	sealed, err := mlecrypto.Seal(key, extAddr, 1, 5, nil, []byte("x"))
	require.NoError(t, err)

	_, err = mlecrypto.Open(otherKey, extAddr, 1, 5, nil, sealed)
	assert.ErrorIs(t, err, mlecrypto.ErrMICMismatch)
}

func TestKeyManager_DerivesDistinctKeysPerSequence(t *testing.T) {
	km := mlecrypto.NewKeyManager([32]byte{1, 2, 3})

	k0 := km.CurrentMleKey()
	km.SetCurrentSequence(1)
	k1 := km.CurrentMleKey()

	assert.NotEqual(t, k0, k1)
	assert.True(t, km.HasPreviousKey())
	assert.Equal(t, k0, km.PreviousMleKey())
}

func TestKeyManager_FrameCountersIncrement(t *testing.T) {
	km := mlecrypto.NewKeyManager([32]byte{})

	assert.Equal(t, uint32(0), km.MleFrameCounter())
	assert.Equal(t, uint32(1), km.MleFrameCounter())
	assert.Equal(t, uint32(0), km.MacFrameCounter())
	assert.Equal(t, uint32(1), km.MacFrameCounter())
}

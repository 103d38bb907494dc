package mlecrypto

import (
	"crypto/sha256"
	"encoding/binary"
	"io"
	"sync/atomic"

	"golang.org/x/crypto/hkdf"
)

// MleKeySize is the length in bytes of every derived MLE/MAC key.
const MleKeySize = 16

// KeyManager derives per-key-sequence AES keys from a single injected
// master key and tracks the monotonic frame counters used to build
// nonces. Each derived key is an HKDF-SHA256 expansion of the master key
// salted by the big-endian key sequence, a stronger construction than a
// bare single HMAC application over the sequence number.
type KeyManager struct {
	masterKey [32]byte

	currentSequence atomic.Uint32
	previousValid   atomic.Bool
	macFrameCounter atomic.Uint32
	mleFrameCounter atomic.Uint32
}

// NewKeyManager builds a key manager from an injected master key. Sequence
// starts at 0 with no previous key era.
func NewKeyManager(masterKey [32]byte) *KeyManager {
	return &KeyManager{masterKey: masterKey}
}

// CurrentSequence returns the active 32-bit key sequence.
func (k *KeyManager) CurrentSequence() uint32 {
	return k.currentSequence.Load()
}

// PreviousSequence returns the key sequence immediately before the
// current one, valid only when HasPreviousKey is true.
func (k *KeyManager) PreviousSequence() uint32 {
	return k.currentSequence.Load() - 1
}

// HasPreviousKey reports whether a previous-era key is still valid, i.e.
// the current sequence has been advanced at least once.
func (k *KeyManager) HasPreviousKey() bool {
	return k.previousValid.Load()
}

// SetCurrentSequence advances the active key sequence. It is the caller's
// responsibility (the routing/MLE layers) to only call this with a
// strictly greater sequence.
func (k *KeyManager) SetCurrentSequence(seq uint32) {
	k.currentSequence.Store(seq)
	k.previousValid.Store(true)
}

func (k *KeyManager) deriveKey(seq uint32) (key [MleKeySize]byte) {
	var salt [4]byte
	binary.BigEndian.PutUint32(salt[:], seq)

	r := hkdf.New(sha256.New, k.masterKey[:], salt[:], []byte("mle-key"))
	if _, err := io.ReadFull(r, key[:]); err != nil {
		// HKDF-SHA256 can only fail to produce 16 bytes if misused
		// with an absurd output length; 16 bytes is always safe.
		panic("mlecrypto: hkdf expand failed: " + err.Error())
	}
	return key
}

// CurrentMleKey derives the AES key for the active key sequence.
func (k *KeyManager) CurrentMleKey() [MleKeySize]byte {
	return k.deriveKey(k.CurrentSequence())
}

// PreviousMleKey derives the AES key for the previous key sequence. Callers
// must check HasPreviousKey first.
func (k *KeyManager) PreviousMleKey() [MleKeySize]byte {
	return k.deriveKey(k.PreviousSequence())
}

// TemporaryMleKey derives the AES key for an arbitrary future sequence, used
// to accept a frame that is ahead of the locally known current sequence.
func (k *KeyManager) TemporaryMleKey(seq uint32) [MleKeySize]byte {
	return k.deriveKey(seq)
}

// MacFrameCounter returns the next MAC-layer frame counter and increments
// it. The sender must call this exactly once per transmitted frame.
func (k *KeyManager) MacFrameCounter() uint32 {
	return k.macFrameCounter.Add(1) - 1
}

// MleFrameCounter returns the next MLE-layer frame counter and increments
// it.
func (k *KeyManager) MleFrameCounter() uint32 {
	return k.mleFrameCounter.Add(1) - 1
}

package mlecrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"

	"github.com/AdguardTeam/golibs/errors"
)

// MicSize is the length in bytes of the CCM* message integrity code used
// for "encrypt + 32-bit MIC".
const MicSize = 4

// nonceSize is the CCM* nonce length: 8-byte source extended address, plus
// 4-byte frame counter, plus the 1-byte security level.
const nonceSize = 13

// ErrMICMismatch is returned by Open when authentication fails.
const ErrMICMismatch errors.Error = "mlecrypto: mic verification failed"

// buildNonce assembles the CCM* nonce: ext_addr(8B) || frame_counter_be(4B)
// || security_level(1B).
func buildNonce(extAddr [8]byte, frameCounter uint32, securityLevel byte) (nonce [nonceSize]byte) {
	copy(nonce[0:8], extAddr[:])
	nonce[8] = byte(frameCounter >> 24)
	nonce[9] = byte(frameCounter >> 16)
	nonce[10] = byte(frameCounter >> 8)
	nonce[11] = byte(frameCounter)
	nonce[12] = securityLevel
	return nonce
}

// Seal encrypts plaintext against associated data, appending a 4-byte MIC,
// and returns the ciphertext||mic in a new slice, leaving plaintext as it
// was. It is built directly
// on crypto/aes's block cipher rather than a packaged CCM implementation:
// no usable CCM/CCM* library exists in the Go ecosystem (x/crypto ships
// GCM and ChaCha20-Poly1305 AEADs but no CCM variant), so this is the one
// primitive in the module built on the standard library alone.
func Seal(key [MleKeySize]byte, extAddr [8]byte, frameCounter uint32, securityLevel byte, associatedData, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, errors.Annotate(err, "mlecrypto: new aes cipher: %w")
	}

	nonce := buildNonce(extAddr, frameCounter, securityLevel)

	mic := cbcMAC(block, nonce, associatedData, plaintext)

	ciphertext := ctrCrypt(block, nonce, plaintext)
	encMIC := ctrCryptBlockZero(block, nonce, mic[:])

	out := make([]byte, 0, len(ciphertext)+MicSize)
	out = append(out, ciphertext...)
	out = append(out, encMIC...)
	return out, nil
}

// Open verifies and decrypts a ciphertext||mic slice produced by Seal,
// returning the plaintext or [ErrMICMismatch].
func Open(key [MleKeySize]byte, extAddr [8]byte, frameCounter uint32, securityLevel byte, associatedData, sealed []byte) ([]byte, error) {
	if len(sealed) < MicSize {
		return nil, ErrMICMismatch
	}

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, errors.Annotate(err, "mlecrypto: new aes cipher: %w")
	}

	nonce := buildNonce(extAddr, frameCounter, securityLevel)

	ciphertext := sealed[:len(sealed)-MicSize]
	encMIC := sealed[len(sealed)-MicSize:]

	plaintext := ctrCrypt(block, nonce, ciphertext)

	wantMIC := cbcMAC(block, nonce, associatedData, plaintext)
	wantEncMIC := ctrCryptBlockZero(block, nonce, wantMIC[:])

	if subtle.ConstantTimeCompare(wantEncMIC, encMIC) != 1 {
		return nil, ErrMICMismatch
	}

	return plaintext, nil
}

// ctrBlock builds CCM*'s counter-mode initial block A_i for block index i:
// flags(1) || nonce(13) || counter_be(2).
func ctrBlock(nonce [nonceSize]byte, i uint16) (b [aes.BlockSize]byte) {
	b[0] = 1 // L' = 1 (2-byte counter field), CCM* uses flags=L-1
	copy(b[1:14], nonce[:])
	b[14] = byte(i >> 8)
	b[15] = byte(i)
	return b
}

// ctrCryptBlockZero encrypts the MIC against counter block A_0, the
// standard CCM construction for the encrypted-MIC field.
func ctrCryptBlockZero(block cipher.Block, nonce [nonceSize]byte, mic []byte) []byte {
	a0 := ctrBlock(nonce, 0)
	var s0 [aes.BlockSize]byte
	block.Encrypt(s0[:], a0[:])

	out := make([]byte, len(mic))
	for i := range out {
		out[i] = mic[i] ^ s0[i]
	}
	return out
}

// ctrCrypt XORs data against the AES-CTR keystream starting at counter
// block A_1, encrypting or decrypting symmetrically.
func ctrCrypt(block cipher.Block, nonce [nonceSize]byte, data []byte) []byte {
	out := make([]byte, len(data))
	var keystream [aes.BlockSize]byte

	for off := 0; off < len(data); off += aes.BlockSize {
		counter := uint16(off/aes.BlockSize) + 1
		ai := ctrBlock(nonce, counter)
		block.Encrypt(keystream[:], ai[:])

		end := off + aes.BlockSize
		if end > len(data) {
			end = len(data)
		}
		for i := off; i < end; i++ {
			out[i] = data[i] ^ keystream[i-off]
		}
	}

	return out
}

// cbcMAC computes the CCM* authentication tag over associatedData then
// plaintext, using the standard CBC-MAC-with-length-prefixed-AD
// construction, truncated to MicSize bytes.
func cbcMAC(block cipher.Block, nonce [nonceSize]byte, associatedData, plaintext []byte) (mic [MicSize]byte) {
	// B_0: flags || nonce || message length, big-endian 2-byte.
	var b0 [aes.BlockSize]byte
	flags := byte(0)
	if len(associatedData) > 0 {
		flags |= 1 << 6
	}
	flags |= byte((MicSize-2)/2) << 3 // M' = (Mic bytes - 2) / 2
	flags |= 1                       // L' = 1 (2-byte length field)
	b0[0] = flags
	copy(b0[1:14], nonce[:])
	b0[14] = byte(len(plaintext) >> 8)
	b0[15] = byte(len(plaintext))

	var x [aes.BlockSize]byte
	block.Encrypt(x[:], b0[:])

	feed := func(data []byte) {
		for off := 0; off < len(data); off += aes.BlockSize {
			var blk [aes.BlockSize]byte
			end := off + aes.BlockSize
			if end > len(data) {
				end = len(data)
			}
			copy(blk[:], data[off:end])
			for i := range blk {
				blk[i] ^= x[i]
			}
			block.Encrypt(x[:], blk[:])
		}
	}

	if len(associatedData) > 0 {
		var lenPrefix []byte
		switch {
		case len(associatedData) < 0xff00:
			lenPrefix = []byte{byte(len(associatedData) >> 8), byte(len(associatedData))}
		default:
			lenPrefix = []byte{0xff, 0xfe,
				byte(len(associatedData) >> 24), byte(len(associatedData) >> 16),
				byte(len(associatedData) >> 8), byte(len(associatedData))}
		}
		feed(append(lenPrefix, associatedData...))
	}

	feed(plaintext)

	copy(mic[:], x[:MicSize])
	return mic
}

package recordaead

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"

	"golang.org/x/crypto/chacha20"

	"github.com/dgramsec/go-dtls-record/suite"
)

const (
	// MaskSampleSize is how many ciphertext bytes GenerateMask consumes.
	MaskSampleSize = 16
	// MaskSize is the width of the produced mask block.
	MaskSize = 16
)

// Masker derives the short keystream used to obscure the wire sequence
// number in the compact header format. It is keyed separately from the
// record AEAD and lives exactly as long as its epoch.
type Masker struct {
	block  cipher.Block // AES-keyed maskers
	stream []byte       // ChaCha20 key for stream-keyed maskers
}

// NewMasker builds a masker from the profile's mask primitive and a
// dedicated key supplied by the key schedule.
func NewMasker(p *suite.Profile, key []byte) (*Masker, error) {
	if len(key) != p.MaskKeySize {
		return nil, ErrKeyMaterial
	}
	switch p.MaskCipherType {
	case suite.MaskChaCha20:
		return &Masker{stream: append([]byte(nil), key...)}, nil
	default:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return &Masker{block: block}, nil
	}
}

// GenerateMask computes the mask block from a ciphertext sample. ok is
// false when the sample is too short; the caller must discard the record.
//
// AES maskers encrypt the first block of the sample. ChaCha20 maskers read
// a little-endian block counter from sample[0:4] and a nonce from
// sample[4:16] and emit keystream at that position.
func (m *Masker) GenerateMask(sample []byte) (mask [MaskSize]byte, ok bool) {
	if len(sample) < MaskSampleSize {
		return mask, false
	}
	if m.block != nil {
		m.block.Encrypt(mask[:], sample[:MaskSampleSize])
		return mask, true
	}
	counter := binary.LittleEndian.Uint32(sample[0:4])
	s, err := chacha20.NewUnauthenticatedCipher(m.stream, sample[4:16])
	if err != nil {
		return mask, false
	}
	s.SetCounter(counter)
	s.XORKeyStream(mask[:], mask[:])
	return mask, true
}

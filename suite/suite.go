package suite

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/dgramsec/go-dtls-record/cbcaead"
)

// ErrSuiteNotSupported occurs when a cipher suite is not supported
// (likely because of security concerns).
var ErrSuiteNotSupported = errors.New("cipher suite not supported")

// KeySizeError is returned when key material of the wrong length is supplied.
type KeySizeError int

func (e KeySizeError) Error() string { return fmt.Sprintf("key size error: need %d bytes", int(e)) }

// MaskCipher selects the keystream primitive used for record number masking.
type MaskCipher int

const (
	MaskAES MaskCipher = iota // single-block AES-ECB over the sample
	MaskChaCha20              // ChaCha20 keystream, counter/nonce from the sample
)

// Profile describes one cipher suite: its AEAD construction, the key
// material sizes the record layer must be handed, and which nonce family
// and masking primitive apply.
type Profile struct {
	Name        string
	KeySize     int
	MACKeySize  int // nonzero only for CBC shim suites
	FixedIVSize int // pre-1.3 fixed IV prefix; 1.3 contexts use a full-nonce IV
	NonceSize   int
	Overhead    int // fixed (maximum) AEAD expansion, tag plus any padding

	// SeqDerivedNonce marks suites whose nonce is always derived from the
	// record sequence number regardless of protocol generation.
	SeqDerivedNonce bool
	// CBCShim marks legacy CBC suites driven through the cbcaead adapter.
	CBCShim bool

	MaskCipherType MaskCipher
	MaskKeySize    int

	// New builds the record-protection AEAD. For CBC shim suites the key is
	// the concatenation macKey || encKey || fixedIV.
	New func(key []byte) (cipher.AEAD, error)
}

func aesGCM(key []byte) (cipher.AEAD, error) {
	blk, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(blk)
}

// Registry of supported suites.
var suites = map[string]*Profile{
	"AES-128-GCM": {
		Name: "AES-128-GCM", KeySize: 16, FixedIVSize: 4, NonceSize: 12, Overhead: 16,
		MaskCipherType: MaskAES, MaskKeySize: 16,
		New: aesGCM,
	},
	"AES-256-GCM": {
		Name: "AES-256-GCM", KeySize: 32, FixedIVSize: 4, NonceSize: 12, Overhead: 16,
		MaskCipherType: MaskAES, MaskKeySize: 32,
		New: aesGCM,
	},
	"CHACHA20-POLY1305": {
		Name: "CHACHA20-POLY1305", KeySize: 32, FixedIVSize: 12, NonceSize: 12, Overhead: 16,
		SeqDerivedNonce: true,
		MaskCipherType:  MaskChaCha20, MaskKeySize: chacha20.KeySize,
		New: chacha20poly1305.New,
	},
	"AES-128-CBC-SHA": {
		Name: "AES-128-CBC-SHA", KeySize: 16, MACKeySize: 20, NonceSize: 16,
		Overhead: sha1.Size + aes.BlockSize,
		CBCShim:  true,
		MaskCipherType: MaskAES, MaskKeySize: 16,
		New: func(key []byte) (cipher.AEAD, error) { return cbcaead.New(key, 16, sha1.New) },
	},
	"AES-256-CBC-SHA": {
		Name: "AES-256-CBC-SHA", KeySize: 32, MACKeySize: 20, NonceSize: 16,
		Overhead: sha1.Size + aes.BlockSize,
		CBCShim:  true,
		MaskCipherType: MaskAES, MaskKeySize: 32,
		New: func(key []byte) (cipher.AEAD, error) { return cbcaead.New(key, 32, sha1.New) },
	},
	"AES-128-CBC-SHA256": {
		Name: "AES-128-CBC-SHA256", KeySize: 16, MACKeySize: 32, NonceSize: 16,
		Overhead: sha256.Size + aes.BlockSize,
		CBCShim:  true,
		MaskCipherType: MaskAES, MaskKeySize: 16,
		New: func(key []byte) (cipher.AEAD, error) { return cbcaead.New(key, 16, sha256.New) },
	},
}

// List returns the names of the available suites sorted alphabetically.
func List() []string {
	var l []string
	for k := range suites {
		l = append(l, k)
	}
	sort.Strings(l)
	return l
}

// Pick returns the Profile of the given name.
func Pick(name string) (*Profile, error) {
	if p, ok := suites[strings.ToUpper(name)]; ok {
		return p, nil
	}
	return nil, ErrSuiteNotSupported
}

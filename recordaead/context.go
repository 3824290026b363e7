package recordaead

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"io"

	"github.com/dgramsec/go-dtls-record/suite"
)

// Version is a wire protocol version. DTLS versions descend as the protocol
// evolves (1.0 > 1.2 > 1.3 on the wire).
type Version uint16

const (
	DTLS10 Version = 0xfeff
	DTLS12 Version = 0xfefd
	DTLS13 Version = 0xfefc
)

// headerIsAAD reports whether this protocol generation authenticates the
// literal record header instead of a synthesized pseudo-header.
func (v Version) headerIsAAD() bool { return v == DTLS13 }

// ContentType is the record content type byte.
type ContentType uint8

const (
	TypeChangeCipherSpec ContentType = 20
	TypeAlert            ContentType = 21
	TypeHandshake        ContentType = 22
	TypeApplicationData  ContentType = 23
)

// Direction says whether a Context protects outbound or inbound records.
type Direction int

const (
	DirectionRead Direction = iota
	DirectionWrite
)

var (
	// ErrKeyMaterial is a configuration error: the supplied key, MAC key or
	// fixed IV does not match the suite profile. Fatal to setup.
	ErrKeyMaterial = errors.New("recordaead: key material size mismatch")
	// ErrDecrypt is the single per-record failure Open reports. The caller
	// must discard the record silently.
	ErrDecrypt = errors.New("recordaead: decryption failed")
	// ErrMalformedRecord is returned for pure length violations that are
	// publicly observable before any cryptography runs.
	ErrMalformedRecord = errors.New("recordaead: malformed record")
	// ErrRecordTooLarge means the sealed record would not fit the 16-bit
	// record length field. Connection-fatal.
	ErrRecordTooLarge = errors.New("recordaead: record payload too large")
	// ErrBufferAlias means a caller passed overlapping input and output
	// buffers to Seal. Configuration error, never silent corruption.
	ErrBufferAlias = errors.New("recordaead: input and output buffers alias")
	// ErrExtraInput means extra plaintext was passed outside the random-IV
	// shim path, the only mode that supports it.
	ErrExtraInput = errors.New("recordaead: extra plaintext not supported by this suite")
)

const maxRecordPayload = 1 << 14 // plaintext cap before expansion

type nonceMode int

const (
	nonceSequenceXor nonceMode = iota
	nonceExplicitPrefix
	nonceRandomPrefix
)

// Context carries one direction's AEAD state for one epoch. Immutable after
// construction; destroy it by dropping the reference when the epoch retires.
type Context struct {
	aead             cipher.AEAD
	mode             nonceMode
	fixedNonce       []byte
	variableNonceLen int
	omitLengthInAD   bool
	adIsHeader       bool
	null             bool
}

// NewNullContext returns the placeholder context used before the first
// epoch's keys exist. It passes bodies through unchanged.
func NewNullContext() *Context { return &Context{null: true} }

// NewContext builds a direction context from raw key material. macKey is
// only accepted for CBC shim suites; fixedIV must be the profile's fixed IV
// length, or the full nonce length for sequence-derived-nonce policies.
func NewContext(dir Direction, version Version, p *suite.Profile, key, macKey, fixedIV []byte) (*Context, error) {
	if len(key) != p.KeySize {
		return nil, ErrKeyMaterial
	}

	c := &Context{adIsHeader: version.headerIsAAD()}

	switch {
	case p.CBCShim:
		// CBC suites belong to the legacy generations only.
		if version == DTLS13 || len(macKey) != p.MACKeySize || len(fixedIV) != p.FixedIVSize {
			return nil, ErrKeyMaterial
		}
		// The shim's single key is the TLS key block layout.
		shimKey := make([]byte, 0, len(macKey)+len(key)+len(fixedIV))
		shimKey = append(shimKey, macKey...)
		shimKey = append(shimKey, key...)
		shimKey = append(shimKey, fixedIV...)
		aead, err := p.New(shimKey)
		if err != nil {
			return nil, err
		}
		c.aead = aead
		c.mode = nonceRandomPrefix
		c.variableNonceLen = aead.NonceSize()
		c.omitLengthInAD = true
		return c, nil

	case len(macKey) != 0:
		return nil, ErrKeyMaterial
	}

	aead, err := p.New(key)
	if err != nil {
		return nil, err
	}
	c.aead = aead

	if version == DTLS13 || p.SeqDerivedNonce {
		if len(fixedIV) != aead.NonceSize() {
			return nil, ErrKeyMaterial
		}
		c.mode = nonceSequenceXor
		c.fixedNonce = append([]byte(nil), fixedIV...)
		c.variableNonceLen = 8
		return c, nil
	}

	if len(fixedIV) != p.FixedIVSize {
		return nil, ErrKeyMaterial
	}
	c.mode = nonceExplicitPrefix
	c.fixedNonce = append([]byte(nil), fixedIV...)
	c.variableNonceLen = aead.NonceSize() - len(fixedIV)
	if c.variableNonceLen != 8 {
		return nil, ErrKeyMaterial
	}
	return c, nil
}

// ExplicitNonceLen reports how many explicit nonce bytes each sealed record
// carries in front of the ciphertext.
func (c *Context) ExplicitNonceLen() int {
	if c.null {
		return 0
	}
	switch c.mode {
	case nonceExplicitPrefix, nonceRandomPrefix:
		return c.variableNonceLen
	}
	return 0
}

// MaxOverhead reports the worst-case expansion of Seal, for sizing buffers.
func (c *Context) MaxOverhead() int {
	if c.null {
		return 0
	}
	return c.ExplicitNonceLen() + c.aead.Overhead()
}

// additionalData assembles the AAD into scratch and returns it.
func (c *Context) additionalData(scratch []byte, typ ContentType, recVersion Version, seqWithEpoch uint64, header []byte, plaintextLen int) []byte {
	if c.adIsHeader {
		return header
	}
	ad := scratch[:0]
	ad = binary.BigEndian.AppendUint64(ad, seqWithEpoch)
	ad = append(ad, byte(typ))
	ad = binary.BigEndian.AppendUint16(ad, uint16(recVersion))
	if !c.omitLengthInAD {
		ad = binary.BigEndian.AppendUint16(ad, uint16(plaintextLen))
	}
	return ad
}

// nonceFor assembles the nonce for a known variable part (the 8-byte
// sequence for SequenceXor, or explicit bytes taken from the record).
func (c *Context) nonceFor(scratch []byte, seqWithEpoch uint64, explicit []byte) []byte {
	nonce := scratch[:c.aead.NonceSize()]
	switch c.mode {
	case nonceSequenceXor:
		copy(nonce, c.fixedNonce)
		var seq [8]byte
		binary.BigEndian.PutUint64(seq[:], seqWithEpoch)
		for i := 0; i < 8; i++ {
			nonce[len(nonce)-8+i] ^= seq[i]
		}
	default:
		n := copy(nonce, c.fixedNonce)
		copy(nonce[n:], explicit)
	}
	return nonce
}

// Open decrypts and verifies a record body in place. The returned plaintext
// is a sub-slice of body; no copy is made. Any cryptographic failure is
// ErrDecrypt, with no further detail.
func (c *Context) Open(typ ContentType, recVersion Version, seqWithEpoch uint64, header, body []byte) ([]byte, error) {
	if c.null {
		return body, nil
	}

	explicitLen := c.ExplicitNonceLen()
	plaintextLen := 0
	if !c.omitLengthInAD {
		// Pure length check, safe to report distinctly: no secret is
		// consulted before it.
		if len(body) < explicitLen+c.aead.Overhead() {
			return nil, ErrMalformedRecord
		}
		plaintextLen = len(body) - explicitLen - c.aead.Overhead()
	} else if len(body) < explicitLen {
		return nil, ErrMalformedRecord
	}

	var adScratch [13]byte
	ad := c.additionalData(adScratch[:], typ, recVersion, seqWithEpoch, header, plaintextLen)

	var nonceScratch [16]byte
	nonce := c.nonceFor(nonceScratch[:], seqWithEpoch, body[:explicitLen])
	rest := body[explicitLen:]

	out, err := c.aead.Open(rest[:0], nonce, rest, ad)
	if err != nil {
		return nil, ErrDecrypt
	}
	return out, nil
}

// Seal encrypts plaintext as one record body and appends it to dst:
// explicit nonce prefix (if any), then ciphertext, then the authentication
// suffix. extraIn is additional plaintext appended after plaintext; only
// the random-IV shim path supports it.
func (c *Context) Seal(dst []byte, typ ContentType, recVersion Version, seqWithEpoch uint64, header, plaintext, extraIn []byte) ([]byte, error) {
	if c.null {
		if len(extraIn) > 0 {
			return nil, ErrExtraInput
		}
		return append(dst, plaintext...), nil
	}
	if len(extraIn) > 0 && c.mode != nonceRandomPrefix {
		return nil, ErrExtraInput
	}
	inLen := len(plaintext) + len(extraIn)
	if inLen > maxRecordPayload || inLen+c.MaxOverhead() > 0xFFFF {
		return nil, ErrRecordTooLarge
	}
	if aliases(dst[len(dst):cap(dst)], plaintext) || aliases(dst[len(dst):cap(dst)], extraIn) {
		return nil, ErrBufferAlias
	}

	var adScratch [13]byte
	ad := c.additionalData(adScratch[:], typ, recVersion, seqWithEpoch, header, inLen)

	var nonceScratch [16]byte
	var explicit [16]byte
	var nonce []byte
	switch c.mode {
	case nonceSequenceXor:
		nonce = c.nonceFor(nonceScratch[:], seqWithEpoch, nil)
	case nonceExplicitPrefix:
		// The sequence number doubles as the explicit nonce.
		binary.BigEndian.PutUint64(explicit[:8], seqWithEpoch)
		nonce = c.nonceFor(nonceScratch[:], seqWithEpoch, explicit[:8])
	case nonceRandomPrefix:
		if _, err := io.ReadFull(rand.Reader, explicit[:c.variableNonceLen]); err != nil {
			return nil, err
		}
		nonce = c.nonceFor(nonceScratch[:], seqWithEpoch, explicit[:c.variableNonceLen])
	}

	dst = append(dst, explicit[:c.ExplicitNonceLen()]...)

	in := plaintext
	if len(extraIn) > 0 {
		in = make([]byte, 0, inLen)
		in = append(in, plaintext...)
		in = append(in, extraIn...)
	}
	return c.aead.Seal(dst, nonce, in, ad), nil
}

// SealScatter is the scatter/gather variant of Seal: the explicit nonce,
// ciphertext and authentication suffix are written into three separate
// caller-reserved buffers, and their written lengths returned. prefix must
// hold ExplicitNonceLen bytes, body len(plaintext)+len(extraIn), and suffix
// up to MaxOverhead-ExplicitNonceLen bytes.
func (c *Context) SealScatter(prefix, body, suffix []byte, typ ContentType, recVersion Version, seqWithEpoch uint64, header, plaintext, extraIn []byte) (int, int, int, error) {
	sealed, err := c.Seal(nil, typ, recVersion, seqWithEpoch, header, plaintext, extraIn)
	if err != nil {
		return 0, 0, 0, err
	}
	explicitLen := c.ExplicitNonceLen()
	bodyLen := len(plaintext) + len(extraIn)
	if c.null {
		bodyLen = len(sealed)
	}
	suffixLen := len(sealed) - explicitLen - bodyLen
	if len(prefix) < explicitLen || len(body) < bodyLen || len(suffix) < suffixLen {
		return 0, 0, 0, io.ErrShortBuffer
	}
	copy(prefix, sealed[:explicitLen])
	copy(body, sealed[explicitLen:explicitLen+bodyLen])
	copy(suffix, sealed[explicitLen+bodyLen:])
	return explicitLen, bodyLen, suffixLen, nil
}

// Package cbcaead adapts legacy CBC-with-HMAC record protection to the
// cipher.AEAD interface so the record layer can drive every suite through
// one code path.
//
// The construction is TLS MAC-then-encrypt: the MAC is computed over the
// pseudo-header and plaintext, appended to the plaintext together with CBC
// padding, and the whole is encrypted under AES-CBC. The AEAD nonce is the
// per-record IV, chosen at random by the sealer. Because the MACed length
// field is computed here, callers must pass associated data WITHOUT a
// trailing length field.
package cbcaead

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/subtle"
	"errors"
	"hash"
)

var errOpen = errors.New("cbcaead: message authentication failed")

// aeadCBC implements cipher.AEAD over AES-CBC with HMAC.
type aeadCBC struct {
	block  cipher.Block
	mac    func() hash.Hash
	macKey []byte
}

// New builds the shim from the concatenated key macKey || encKey. The MAC
// key length is the hash output size, per the TLS key expansion layout.
func New(key []byte, encKeySize int, h func() hash.Hash) (cipher.AEAD, error) {
	macSize := h().Size()
	if len(key) != macSize+encKeySize {
		return nil, errors.New("cbcaead: bad key length")
	}
	macKey := make([]byte, macSize)
	copy(macKey, key[:macSize])
	block, err := aes.NewCipher(key[macSize:])
	if err != nil {
		return nil, err
	}
	return &aeadCBC{block: block, mac: h, macKey: macKey}, nil
}

func (c *aeadCBC) NonceSize() int { return c.block.BlockSize() }

// Overhead reports the maximum expansion: MAC plus a full block of padding.
// The actual expansion varies with the plaintext length.
func (c *aeadCBC) Overhead() int { return c.mac().Size() + c.block.BlockSize() }

func (c *aeadCBC) computeMAC(additionalData, plaintext []byte) []byte {
	m := hmac.New(c.mac, c.macKey)
	m.Write(additionalData)
	var l [2]byte
	l[0], l[1] = byte(len(plaintext)>>8), byte(len(plaintext))
	m.Write(l[:])
	m.Write(plaintext)
	return m.Sum(nil)
}

func (c *aeadCBC) Seal(dst, nonce, plaintext, additionalData []byte) []byte {
	bs := c.block.BlockSize()
	if len(nonce) != bs {
		panic("cbcaead: bad nonce length")
	}
	mac := c.computeMAC(additionalData, plaintext)

	n := len(plaintext) + len(mac)
	padLen := bs - n%bs // 1..bs bytes, last byte holds padLen-1
	total := n + padLen

	ret, out := sliceForAppend(dst, total)
	copy(out, plaintext)
	copy(out[len(plaintext):], mac)
	for i := n; i < total; i++ {
		out[i] = byte(padLen - 1)
	}
	cipher.NewCBCEncrypter(c.block, nonce).CryptBlocks(out, out)
	return ret
}

func (c *aeadCBC) Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error) {
	bs := c.block.BlockSize()
	macSize := c.mac().Size()
	if len(nonce) != bs {
		return nil, errOpen
	}
	if len(ciphertext) == 0 || len(ciphertext)%bs != 0 || len(ciphertext) < macSize+1 {
		return nil, errOpen
	}

	buf := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(c.block, nonce).CryptBlocks(buf, ciphertext)

	// Padding check. Failure must look identical to a MAC failure.
	padLen := int(buf[len(buf)-1]) + 1
	good := subtle.ConstantTimeLessOrEq(padLen, bs) &
		subtle.ConstantTimeLessOrEq(macSize+padLen, len(buf))
	if good != 1 {
		return nil, errOpen
	}
	pad := buf[len(buf)-padLen:]
	padOK := 1
	for _, b := range pad {
		padOK &= subtle.ConstantTimeByteEq(b, byte(padLen-1))
	}

	n := len(buf) - padLen - macSize
	plaintext, tag := buf[:n], buf[n:n+macSize]
	expect := c.computeMAC(additionalData, plaintext)
	if subtle.ConstantTimeCompare(tag, expect)&padOK != 1 {
		return nil, errOpen
	}

	ret, out := sliceForAppend(dst, n)
	copy(out, plaintext)
	return ret, nil
}

// sliceForAppend extends dst by n bytes, reusing capacity when possible.
func sliceForAppend(in []byte, n int) (head, tail []byte) {
	if total := len(in) + n; cap(in) >= total {
		head = in[:total]
	} else {
		head = make([]byte, total)
		copy(head, in)
	}
	tail = head[len(in):]
	return
}

package cbcaead

import (
	"bytes"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"testing"
)

func newTestAEAD(t *testing.T) *aeadCBC {
	t.Helper()
	key := make([]byte, sha1.Size+16)
	for i := range key {
		key[i] = byte(i)
	}
	a, err := New(key, 16, sha1.New)
	if err != nil {
		t.Fatal(err)
	}
	return a.(*aeadCBC)
}

func TestRoundTrip(t *testing.T) {
	a := newTestAEAD(t)
	nonce := make([]byte, a.NonceSize())
	rand.Read(nonce)
	ad := []byte("pseudo header")

	for _, n := range []int{0, 1, 11, 16, 100, 1000} {
		plaintext := bytes.Repeat([]byte{0x5a}, n)
		sealed := a.Seal(nil, nonce, plaintext, ad)
		if len(sealed)%a.block.BlockSize() != 0 {
			t.Fatalf("len %d: sealed length %d not block aligned", n, len(sealed))
		}
		if len(sealed)-n > a.Overhead() {
			t.Fatalf("len %d: expansion %d exceeds Overhead %d", n, len(sealed)-n, a.Overhead())
		}
		got, err := a.Open(nil, nonce, sealed, ad)
		if err != nil {
			t.Fatalf("len %d: open: %v", n, err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Fatalf("len %d: round trip mismatch", n)
		}
	}
}

func TestTamper(t *testing.T) {
	a := newTestAEAD(t)
	nonce := make([]byte, a.NonceSize())
	ad := []byte("header")
	sealed := a.Seal(nil, nonce, []byte("some plaintext"), ad)

	for i := range sealed {
		tampered := append([]byte(nil), sealed...)
		tampered[i] ^= 0x80
		if _, err := a.Open(nil, nonce, tampered, ad); err == nil {
			t.Fatalf("tampered byte %d accepted", i)
		}
	}
	if _, err := a.Open(nil, nonce, sealed, []byte("other header")); err == nil {
		t.Fatal("modified associated data accepted")
	}
}

func TestOpenRejectsBadShapes(t *testing.T) {
	a := newTestAEAD(t)
	nonce := make([]byte, a.NonceSize())

	cases := [][]byte{
		nil,
		make([]byte, 15), // not block aligned
		make([]byte, 16), // too short to hold MAC + padding
	}
	for i, ct := range cases {
		if _, err := a.Open(nil, nonce, ct, nil); err == nil {
			t.Fatalf("case %d accepted", i)
		}
	}
	if _, err := a.Open(nil, make([]byte, 8), make([]byte, 64), nil); err == nil {
		t.Fatal("bad nonce length accepted")
	}
}

func TestKeyLayout(t *testing.T) {
	if _, err := New(make([]byte, 10), 16, sha1.New); err == nil {
		t.Fatal("short key accepted")
	}
	if _, err := New(make([]byte, sha256.Size+32), 32, sha256.New); err != nil {
		t.Fatalf("sha256 layout rejected: %v", err)
	}
}

func TestSealAppends(t *testing.T) {
	a := newTestAEAD(t)
	nonce := make([]byte, a.NonceSize())
	prefix := []byte("prefix")
	out := a.Seal(append([]byte(nil), prefix...), nonce, []byte("data"), nil)
	if !bytes.HasPrefix(out, prefix) {
		t.Fatal("Seal did not append to dst")
	}
}

package suite

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestList(t *testing.T) {
	l := List()
	require.True(t, sort.StringsAreSorted(l))
	require.Contains(t, l, "AES-128-GCM")
	require.Contains(t, l, "CHACHA20-POLY1305")
	require.Contains(t, l, "AES-128-CBC-SHA")
}

func TestPick(t *testing.T) {
	p, err := Pick("aes-128-gcm")
	require.NoError(t, err)
	require.Equal(t, "AES-128-GCM", p.Name)
	require.Equal(t, 16, p.KeySize)
	require.Equal(t, 4, p.FixedIVSize)
	require.Equal(t, 12, p.NonceSize)
	require.Equal(t, 16, p.Overhead)

	_, err = Pick("ROT13")
	require.ErrorIs(t, err, ErrSuiteNotSupported)
}

func TestProfileConstructors(t *testing.T) {
	for _, name := range List() {
		p, err := Pick(name)
		require.NoError(t, err)

		key := make([]byte, p.MACKeySize+p.KeySize)
		if !p.CBCShim {
			key = key[:p.KeySize]
		}
		aead, err := p.New(key)
		require.NoError(t, err, name)
		require.Equal(t, p.NonceSize, aead.NonceSize(), name)
		require.Equal(t, p.Overhead, aead.Overhead(), name)
	}
}

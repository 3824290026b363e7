// Package keys derives per-epoch record-protection key material from a
// pre-shared secret with HKDF-SHA256. It stands in for the handshake key
// schedule, which is an external collaborator of the record layer, so that
// tests and demos can install working epochs without a handshake.
package keys

import (
	"crypto/sha256"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/dgramsec/go-dtls-record/record"
	"github.com/dgramsec/go-dtls-record/recordaead"
	"github.com/dgramsec/go-dtls-record/suite"
)

// Material is the raw key material for one direction of one epoch.
type Material struct {
	Key     []byte
	MACKey  []byte
	IV      []byte
	MaskKey []byte
}

// Derive produces the material for one direction of one epoch. label keeps
// the two directions apart ("client write" / "server write").
func Derive(secret []byte, epoch uint16, label string, p *suite.Profile, version recordaead.Version) (*Material, error) {
	ivLen := p.FixedIVSize
	if version == recordaead.DTLS13 || p.SeqDerivedNonce {
		ivLen = p.NonceSize
	}

	info := make([]byte, 0, len(label)+len(p.Name)+4)
	info = append(info, "dtls record "...)
	info = binary.BigEndian.AppendUint16(info, epoch)
	info = append(info, ' ')
	info = append(info, label...)
	info = append(info, ' ')
	info = append(info, p.Name...)

	r := hkdf.New(sha256.New, secret, nil, info)
	m := &Material{
		Key:     make([]byte, p.KeySize),
		MACKey:  make([]byte, p.MACKeySize),
		IV:      make([]byte, ivLen),
		MaskKey: make([]byte, p.MaskKeySize),
	}
	for _, b := range [][]byte{m.Key, m.MACKey, m.IV, m.MaskKey} {
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewEpoch installs a complete epoch for one side of a connection: both
// direction contexts, the replay window, and record number maskers for the
// compact-header generation. client selects which derived direction seals.
func NewEpoch(secret []byte, number uint16, version recordaead.Version, p *suite.Profile, client bool) (*record.Epoch, error) {
	clientMat, err := Derive(secret, number, "client write", p, version)
	if err != nil {
		return nil, err
	}
	serverMat, err := Derive(secret, number, "server write", p, version)
	if err != nil {
		return nil, err
	}
	writeMat, readMat := clientMat, serverMat
	if !client {
		writeMat, readMat = serverMat, clientMat
	}

	write, err := recordaead.NewContext(recordaead.DirectionWrite, version, p, writeMat.Key, writeMat.MACKey, writeMat.IV)
	if err != nil {
		return nil, err
	}
	read, err := recordaead.NewContext(recordaead.DirectionRead, version, p, readMat.Key, readMat.MACKey, readMat.IV)
	if err != nil {
		return nil, err
	}

	ep := &record.Epoch{Number: number, Version: version, Read: read, Write: write}
	if version == recordaead.DTLS13 && number > 0 {
		if ep.WriteMask, err = recordaead.NewMasker(p, writeMat.MaskKey); err != nil {
			return nil, err
		}
		if ep.ReadMask, err = recordaead.NewMasker(p, readMat.MaskKey); err != nil {
			return nil, err
		}
	}
	return ep, nil
}

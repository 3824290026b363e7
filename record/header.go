package record

import (
	"golang.org/x/crypto/cryptobyte"

	"github.com/dgramsec/go-dtls-record/recordaead"
)

// Compact header first byte: 0 0 1 C S L E E.
const (
	compactFixedBits = 0b00100000
	compactFixedMask = 0b11100000
	compactCIDBit    = 0b00010000
	compactSeqBit    = 0b00001000 // set: 16-bit sequence number
	compactLenBit    = 0b00000100 // set: 16-bit length field present
	compactEpochMask = 0b00000011
)

const legacyHeaderLen = 13 // type(1) version(2) epoch(2) seq(6) length(2)

// header is the parsed form of one wire record header, valid only for the
// duration of a single accept call.
type header struct {
	compact bool

	// Legacy fields.
	typ     recordaead.ContentType
	version recordaead.Version

	// Compact fields. flags is the raw first byte; wireSeq is the
	// truncated (and still masked, until unmask runs) sequence value.
	flags   byte
	seqLen  int
	seqOff  int // offset of the sequence field within the record
	wireSeq uint64

	epoch     uint16 // legacy: wire value; compact: reconstructed later
	sequence  uint64
	headerLen int
	bodyLen   int
}

// parseHeader reads one record header from the front of data. The remainder
// of the datagram is used when a compact header omits the length field.
func parseHeader(data []byte) (header, bool) {
	var h header
	if len(data) == 0 {
		return h, false
	}
	if data[0]&compactFixedMask == compactFixedBits {
		return parseCompactHeader(data)
	}

	s := cryptobyte.String(data)
	var typ uint8
	var version, epoch, length uint16
	var seqHi uint16
	var seqLo uint32
	if !s.ReadUint8(&typ) ||
		!s.ReadUint16(&version) ||
		!s.ReadUint16(&epoch) ||
		!s.ReadUint16(&seqHi) ||
		!s.ReadUint32(&seqLo) ||
		!s.ReadUint16(&length) {
		return h, false
	}
	h.typ = recordaead.ContentType(typ)
	h.version = recordaead.Version(version)
	h.epoch = epoch
	h.sequence = uint64(seqHi)<<32 | uint64(seqLo)
	h.headerLen = legacyHeaderLen
	h.bodyLen = int(length)
	if h.bodyLen > len(data)-h.headerLen {
		return h, false
	}
	return h, true
}

func parseCompactHeader(data []byte) (header, bool) {
	h := header{compact: true, flags: data[0]}
	if h.flags&compactCIDBit != 0 {
		// Connection IDs are never negotiated by this layer, and without
		// the negotiated length the rest of the header cannot be found.
		return h, false
	}
	h.seqLen = 1
	if h.flags&compactSeqBit != 0 {
		h.seqLen = 2
	}
	h.seqOff = 1

	s := cryptobyte.String(data[1:])
	if h.seqLen == 2 {
		var seq uint16
		if !s.ReadUint16(&seq) {
			return h, false
		}
		h.wireSeq = uint64(seq)
	} else {
		var seq uint8
		if !s.ReadUint8(&seq) {
			return h, false
		}
		h.wireSeq = uint64(seq)
	}

	h.headerLen = 1 + h.seqLen
	if h.flags&compactLenBit != 0 {
		var length uint16
		if !s.ReadUint16(&length) {
			return h, false
		}
		h.headerLen += 2
		h.bodyLen = int(length)
		if h.bodyLen > len(data)-h.headerLen {
			return h, false
		}
	} else {
		// No length field: the record runs to the end of the datagram.
		h.bodyLen = len(data) - h.headerLen
	}
	return h, true
}

// buildCompactHeader emits the compact header for an outbound record. The
// sequence field is written unmasked; the framer masks it after sealing.
func buildCompactHeader(epoch uint16, seq uint64, bodyLen int) []byte {
	var b cryptobyte.Builder
	b.AddUint8(compactFixedBits | compactSeqBit | compactLenBit | byte(epoch&compactEpochMask))
	b.AddUint16(uint16(seq))
	b.AddUint16(uint16(bodyLen))
	out, _ := b.Bytes()
	return out
}

// buildLegacyHeader emits the 13-byte legacy header.
func buildLegacyHeader(typ recordaead.ContentType, version recordaead.Version, epoch uint16, seq uint64, bodyLen int) []byte {
	var b cryptobyte.Builder
	b.AddUint8(uint8(typ))
	b.AddUint16(uint16(version))
	b.AddUint16(epoch)
	b.AddUint16(uint16(seq >> 32))
	b.AddUint32(uint32(seq))
	b.AddUint16(uint16(bodyLen))
	out, _ := b.Bytes()
	return out
}

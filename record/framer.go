// Package record frames authenticated datagram records: it parses and emits
// wire headers in both the legacy and compact formats, reconstructs the
// truncated epoch and sequence numbers, applies record number masking, and
// enforces the anti-replay window. Accept and Emit are the only entry
// points a handshake or dispatch layer above needs.
package record

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/dgramsec/go-dtls-record/internal"
	"github.com/dgramsec/go-dtls-record/recordaead"
)

// maxCiphertextLen caps the ciphertext length an incoming record may claim.
const maxCiphertextLen = 1<<14 + 2048

const maxSequence = 1<<48 - 1

var (
	// ErrSequenceOverflow means the 48-bit write sequence space of an epoch
	// is exhausted. Connection-fatal; the caller must tear down.
	ErrSequenceOverflow = errors.New("record: write sequence number space exhausted")
	// ErrRecordOverflow means an incoming record claims a length beyond the
	// protocol limit. The caller must turn this into a fatal alert.
	ErrRecordOverflow = errors.New("record: record length exceeds protocol limit")
)

// Epoch is the per-epoch key state the framer operates on. It is owned by
// the caller's key schedule and borrowed for the duration of each call; the
// framer never allocates or retires epochs.
type Epoch struct {
	Number  uint16
	Version recordaead.Version

	Read  *recordaead.Context
	Write *recordaead.Context

	// Maskers are present only for compact-header epochs.
	ReadMask  *recordaead.Masker
	WriteMask *recordaead.Masker

	Window   ReplayWindow
	writeSeq uint64
}

// WriteSequence returns the next outbound sequence number of this epoch.
func (e *Epoch) WriteSequence() uint64 { return e.writeSeq }

// Record is one accepted inbound record.
type Record struct {
	Type     recordaead.ContentType
	Epoch    uint16
	Sequence uint64
	// Payload is a sub-slice of the datagram buffer passed to Accept and
	// is only valid until that buffer is reused.
	Payload []byte
}

// Framer drives the record transformation for a connection. The zero value
// is usable; a logger adds debug-level discard diagnostics that never
// change behavior.
type Framer struct {
	log    logrus.FieldLogger
	dedupe *internal.DedupeFilter
}

func NewFramer(log logrus.FieldLogger) *Framer {
	return &Framer{log: log}
}

// EnableDedupe makes Accept drop datagrams whose exact ciphertext bytes
// were seen before, ahead of any parsing or decryption. The filter is
// probabilistic; a false positive costs one datagram, which the transport
// already tolerates.
func (f *Framer) EnableDedupe() {
	f.dedupe = internal.NewDedupeFilter(internal.DefaultSlots, internal.DefaultCapacity, internal.DefaultFPR)
}

// Accept processes one inbound datagram and returns the records it
// accepted. Malformed, replayed and unverifiable records are dropped
// silently, one record at a time, and the rest of the datagram is still
// processed where the wire format allows it. The returned error is reserved
// for connection-fatal conditions.
//
// Accept decrypts in place: the datagram buffer is consumed and the
// returned payloads alias it.
func (f *Framer) Accept(ep *Epoch, datagram []byte) ([]Record, error) {
	if f.dedupe != nil {
		if f.dedupe.Test(datagram) {
			f.discard(ep, 0, "duplicate datagram")
			return nil, nil
		}
		f.dedupe.Add(datagram)
	}

	var out []Record
	data := datagram
	for len(data) > 0 {
		h, ok := parseHeader(data)
		if !ok {
			// Without a parsable header the next record boundary is
			// unknown; the rest of the datagram goes with it.
			f.discard(ep, 0, "malformed header")
			break
		}
		if h.bodyLen > maxCiphertextLen {
			return out, ErrRecordOverflow
		}
		end := h.headerLen + h.bodyLen
		if rec, accepted := f.acceptOne(ep, data[:end], h); accepted {
			out = append(out, rec)
		}
		data = data[end:]
	}
	return out, nil
}

func (f *Framer) acceptOne(ep *Epoch, rec []byte, h header) (Record, bool) {
	if h.compact {
		return f.acceptCompact(ep, rec, h)
	}
	return f.acceptLegacy(ep, rec, h)
}

func (f *Framer) acceptLegacy(ep *Epoch, rec []byte, h header) (Record, bool) {
	if byte(h.version>>8) != 0xfe {
		f.discard(ep, h.sequence, "bad record version")
		return Record{}, false
	}
	if h.epoch != ep.Number {
		f.discard(ep, h.sequence, "wrong epoch")
		return Record{}, false
	}
	if ep.Window.ShouldDiscard(h.sequence) {
		f.discard(ep, h.sequence, "replay")
		return Record{}, false
	}

	seqWithEpoch := uint64(h.epoch)<<48 | h.sequence
	plaintext, err := ep.Read.Open(h.typ, h.version, seqWithEpoch, rec[:h.headerLen], rec[h.headerLen:])
	if err != nil {
		// Uniform discard; the cause stays here.
		f.discard(ep, h.sequence, "open failed")
		return Record{}, false
	}
	ep.Window.Record(h.sequence)
	return Record{Type: h.typ, Epoch: h.epoch, Sequence: h.sequence, Payload: plaintext}, true
}

func (f *Framer) acceptCompact(ep *Epoch, rec []byte, h header) (Record, bool) {
	body := rec[h.headerLen:]

	// The wire sequence field is masked with keystream derived from the
	// ciphertext itself. Unmask it in place so the header bytes used as
	// AAD below are the true ones.
	wireSeq := h.wireSeq
	if ep.ReadMask != nil {
		mask, ok := ep.ReadMask.GenerateMask(body)
		if !ok {
			f.discard(ep, 0, "record too short to unmask")
			return Record{}, false
		}
		wireSeq = 0
		for i := 0; i < h.seqLen; i++ {
			rec[h.seqOff+i] ^= mask[i]
			wireSeq = wireSeq<<8 | uint64(rec[h.seqOff+i])
		}
	}

	epoch := reconstructEpoch(h.flags&compactEpochMask, ep.Number)
	if epoch != ep.Number {
		f.discard(ep, 0, "wrong epoch")
		return Record{}, false
	}
	seq := reconstructSequence(wireSeq, h.seqLen, ep.Window.MaxSeqNum())
	if ep.Window.ShouldDiscard(seq) {
		f.discard(ep, seq, "replay")
		return Record{}, false
	}

	seqWithEpoch := uint64(epoch)<<48 | seq
	plaintext, err := ep.Read.Open(recordaead.ContentType(h.flags), ep.Version, seqWithEpoch, rec[:h.headerLen], body)
	if err != nil {
		f.discard(ep, seq, "open failed")
		return Record{}, false
	}
	ep.Window.Record(seq)

	// The true content type hides at the end of the plaintext, behind any
	// zero padding.
	i := len(plaintext) - 1
	for i >= 0 && plaintext[i] == 0 {
		i--
	}
	if i < 0 {
		f.discard(ep, seq, "empty inner plaintext")
		return Record{}, false
	}
	return Record{
		Type:     recordaead.ContentType(plaintext[i]),
		Epoch:    epoch,
		Sequence: seq,
		Payload:  plaintext[:i],
	}, true
}

// Emit seals one outbound record and returns its wire bytes. The header
// format follows the epoch's negotiated version; the write sequence counter
// advances on success.
func (f *Framer) Emit(ep *Epoch, typ recordaead.ContentType, plaintext []byte) ([]byte, error) {
	if ep.writeSeq > maxSequence {
		return nil, ErrSequenceOverflow
	}
	seq := ep.writeSeq
	seqWithEpoch := uint64(ep.Number)<<48 | seq

	var out []byte
	if ep.Version == recordaead.DTLS13 && ep.Number > 0 {
		inner := make([]byte, 0, len(plaintext)+1)
		inner = append(inner, plaintext...)
		inner = append(inner, byte(typ))

		bodyLen := len(inner) + ep.Write.MaxOverhead()
		if bodyLen > 0xFFFF {
			return nil, recordaead.ErrRecordTooLarge
		}
		hdr := buildCompactHeader(ep.Number, seq, bodyLen)
		out = make([]byte, 0, len(hdr)+bodyLen)
		out = append(out, hdr...)
		var err error
		out, err = ep.Write.Seal(out, typ, ep.Version, seqWithEpoch, hdr, inner, nil)
		if err != nil {
			return nil, err
		}
		if ep.WriteMask != nil {
			mask, ok := ep.WriteMask.GenerateMask(out[len(hdr):])
			if !ok {
				return nil, recordaead.ErrMalformedRecord
			}
			for i := 0; i < 2; i++ {
				out[1+i] ^= mask[i]
			}
		}
	} else {
		body, err := ep.Write.Seal(nil, typ, ep.Version, seqWithEpoch, nil, plaintext, nil)
		if err != nil {
			return nil, err
		}
		hdr := buildLegacyHeader(typ, ep.Version, ep.Number, seq, len(body))
		out = append(hdr, body...)
	}

	ep.writeSeq++
	return out, nil
}

func (f *Framer) discard(ep *Epoch, seq uint64, reason string) {
	if f.log == nil {
		return
	}
	f.log.WithFields(logrus.Fields{
		"epoch":  ep.Number,
		"seq":    seq,
		"reason": reason,
	}).Debug("record discarded")
}

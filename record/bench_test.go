package record

import (
	"bytes"
	"testing"

	"github.com/dgramsec/go-dtls-record/recordaead"
)

func benchmarkEmitAccept(b *testing.B, name string, version recordaead.Version, size int) {
	sender, receiver := makeEpochPair(b, name, version, 1)
	f := NewFramer(nil)
	payload := bytes.Repeat([]byte{0x2a}, size)

	b.SetBytes(int64(size))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		wire, err := f.Emit(sender, recordaead.TypeApplicationData, payload)
		if err != nil {
			b.Fatal(err)
		}
		recs, err := f.Accept(receiver, wire)
		if err != nil {
			b.Fatal(err)
		}
		if len(recs) != 1 {
			b.Fatal("record dropped")
		}
	}
}

func BenchmarkLegacyGCM1K(b *testing.B) {
	benchmarkEmitAccept(b, "AES-128-GCM", recordaead.DTLS12, 1024)
}

func BenchmarkCompactGCM1K(b *testing.B) {
	benchmarkEmitAccept(b, "AES-128-GCM", recordaead.DTLS13, 1024)
}

func BenchmarkCompactChaCha1K(b *testing.B) {
	benchmarkEmitAccept(b, "CHACHA20-POLY1305", recordaead.DTLS13, 1024)
}

func BenchmarkLegacyCBC1K(b *testing.B) {
	benchmarkEmitAccept(b, "AES-128-CBC-SHA", recordaead.DTLS12, 1024)
}

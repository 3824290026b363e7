package record

import "testing"

func TestReconstructSequenceCases(t *testing.T) {
	cases := []struct {
		wire     uint64
		seqLen   int
		maxValid uint64
		want     uint64
	}{
		{wire: 101, seqLen: 1, maxValid: 100, want: 101},
		{wire: 90, seqLen: 1, maxValid: 100, want: 90},
		{wire: 200, seqLen: 1, maxValid: 100, want: 200},
		// Next expected is 301; candidates congruent to 5 are 5, 261, 517.
		// 261 is closest.
		{wire: 5, seqLen: 1, maxValid: 300, want: 261},
		{wire: 0, seqLen: 1, maxValid: 0, want: 0},
		{wire: 0, seqLen: 1, maxValid: 255, want: 256},
		{wire: 0xFFFF, seqLen: 2, maxValid: 0x1FFFF, want: 0x1FFFF},
		{wire: 0, seqLen: 2, maxValid: 0xFFFF, want: 0x10000},
		// Early in an epoch the subtraction would underflow, so the far
		// future candidate stands.
		{wire: 200, seqLen: 1, maxValid: 10, want: 200},
	}
	for _, c := range cases {
		got := reconstructSequence(c.wire, c.seqLen, c.maxValid)
		if got != c.want {
			t.Errorf("reconstructSequence(%d, %d, %d) = %d, want %d",
				c.wire, c.seqLen, c.maxValid, got, c.want)
		}
	}
}

func TestReconstructSequenceProperties(t *testing.T) {
	maxima := []uint64{0, 1, 100, 127, 128, 255, 256, 1000, 1 << 20, 1 << 47}
	for _, seqLen := range []int{1, 2} {
		step := uint64(1) << (8 * seqLen)
		for _, maxValid := range maxima {
			for wire := uint64(0); wire < step; wire += 7 {
				got := reconstructSequence(wire, seqLen, maxValid)
				if got%step != wire {
					t.Fatalf("seqLen %d max %d wire %d: got %d, not congruent",
						seqLen, maxValid, wire, got)
				}
				// got must be the candidate closest to maxValid+1 among
				// those representable without underflow.
				next := maxValid + 1
				best := got
				for _, cand := range []uint64{got - step, got + step} {
					if got < step && cand == got-step {
						continue // underflowed
					}
					if dist(cand, next) < dist(best, next) {
						best = cand
					}
				}
				if best != got {
					t.Fatalf("seqLen %d max %d wire %d: got %d, closer candidate %d",
						seqLen, maxValid, wire, got, best)
				}
			}
		}
	}
}

func dist(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

func TestReconstructEpoch(t *testing.T) {
	for current := uint16(0); current < 64; current++ {
		for wire := uint8(0); wire < 4; wire++ {
			got := reconstructEpoch(wire, current)
			if got&0x03 != uint16(wire) {
				t.Fatalf("current %d wire %d: got %d, wrong low bits", current, wire, got)
			}
			// Brute force the largest epoch <= current with those low
			// bits; when none exists the raw bits stand.
			want := uint16(wire)
			for e := current; ; e-- {
				if e&0x03 == uint16(wire) {
					want = e
					break
				}
				if e == 0 {
					break
				}
			}
			if got != want {
				t.Fatalf("current %d wire %d: got %d, want %d", current, wire, got, want)
			}
		}
	}
}

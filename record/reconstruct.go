package record

// reconstructEpoch picks the largest epoch not greater than current whose
// low two bits equal wireBits.
func reconstructEpoch(wireBits uint8, current uint16) uint16 {
	candidate := uint16(wireBits&0x03) | (current &^ 0x03)
	if candidate > current && current&^0x03 != 0 {
		candidate -= 4
	}
	return candidate
}

// reconstructSequence expands a 1- or 2-byte wire sequence number into the
// full sequence number closest to maxValid+1 among all values congruent to
// wireSeq modulo 2^(8*seqLen).
func reconstructSequence(wireSeq uint64, seqLen int, maxValid uint64) uint64 {
	step := uint64(1) << (8 * seqLen)
	// step divides 2^64, so the wrapped subtraction reduces correctly.
	diff := (wireSeq - (maxValid + 1)) % step
	seq := maxValid + 1 + diff
	overflowed := seq < maxValid+1
	if overflowed || (diff > step/2 && seq >= step) {
		seq -= step
	}
	return seq
}

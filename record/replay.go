package record

// windowWidth is the number of sequence numbers the replay window tracks.
const windowWidth = 64

// ReplayWindow is a fixed-width sliding bitmap over the sequence numbers of
// one read epoch. Bit i of the bitmap is set exactly when sequence number
// maxSeqNum-i has been accepted; anything older than the window is treated
// as already seen. One window per epoch, never reset except on rollover.
type ReplayWindow struct {
	maxSeqNum uint64
	bitmap    uint64
}

// MaxSeqNum returns the highest sequence number accepted so far.
func (w *ReplayWindow) MaxSeqNum() uint64 { return w.maxSeqNum }

// ShouldDiscard reports whether seq is a duplicate or too old to be
// tracked. Sequence numbers beyond the current maximum are always fresh.
func (w *ReplayWindow) ShouldDiscard(seq uint64) bool {
	if seq > w.maxSeqNum {
		return false
	}
	diff := w.maxSeqNum - seq
	if diff >= windowWidth {
		return true
	}
	return w.bitmap&(1<<diff) != 0
}

// Record marks seq as accepted. Callers must check ShouldDiscard first;
// recording a discardable sequence number corrupts the window.
func (w *ReplayWindow) Record(seq uint64) {
	if seq > w.maxSeqNum {
		shift := seq - w.maxSeqNum
		if shift >= windowWidth {
			w.bitmap = 0
		} else {
			w.bitmap <<= shift
		}
		w.maxSeqNum = seq
	}
	w.bitmap |= 1 << (w.maxSeqNum - seq)
}

package record

import "testing"

func TestReplayWindowFresh(t *testing.T) {
	var w ReplayWindow
	for _, seq := range []uint64{0, 1, 5, 100, 1 << 40} {
		if w.ShouldDiscard(seq) {
			t.Fatalf("fresh seq %d discarded", seq)
		}
	}
}

func TestReplayWindowDuplicate(t *testing.T) {
	var w ReplayWindow
	w.Record(10)
	if !w.ShouldDiscard(10) {
		t.Fatal("accepted seq not flagged as duplicate")
	}
	if w.ShouldDiscard(11) {
		t.Fatal("future seq discarded")
	}
	if w.ShouldDiscard(9) {
		t.Fatal("unseen in-window seq discarded")
	}
}

func TestReplayWindowTooOld(t *testing.T) {
	var w ReplayWindow
	w.Record(100)
	if !w.ShouldDiscard(100 - windowWidth) {
		t.Fatalf("seq older than window accepted")
	}
	if w.ShouldDiscard(100 - windowWidth + 1) {
		t.Fatal("oldest in-window seq discarded")
	}
}

func TestReplayWindowOutOfOrder(t *testing.T) {
	var w ReplayWindow
	for _, seq := range []uint64{5, 3, 8, 4, 6} {
		if w.ShouldDiscard(seq) {
			t.Fatalf("seq %d discarded", seq)
		}
		w.Record(seq)
	}
	for _, seq := range []uint64{5, 3, 8, 4, 6} {
		if !w.ShouldDiscard(seq) {
			t.Fatalf("seq %d not flagged after acceptance", seq)
		}
	}
	if w.ShouldDiscard(7) {
		t.Fatal("gap seq 7 discarded")
	}
	if w.MaxSeqNum() != 8 {
		t.Fatalf("max = %d, want 8", w.MaxSeqNum())
	}
}

func TestReplayWindowLargeJump(t *testing.T) {
	var w ReplayWindow
	w.Record(1)
	w.Record(1000)
	if !w.ShouldDiscard(1) {
		t.Fatal("pre-jump seq must be too old")
	}
	if w.ShouldDiscard(999) {
		t.Fatal("in-window seq after jump discarded")
	}
	w.Record(999)
	if !w.ShouldDiscard(999) {
		t.Fatal("duplicate after jump not flagged")
	}
}

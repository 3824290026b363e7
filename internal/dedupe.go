// Package internal holds the datagram dedupe filter shared by record
// framers. It is probabilistic: a hit means the exact ciphertext bytes were
// almost certainly seen before, so the datagram can be dropped before any
// parsing or decryption work is spent on it.
package internal

import (
	"hash/fnv"
	"sync"

	"github.com/riobard/go-bloom"
)

const (
	// DefaultSlots is the number of bloom filter generations kept.
	DefaultSlots = 10
	// DefaultCapacity is the total number of datagrams remembered across
	// all generations.
	DefaultCapacity = 1e6
	// DefaultFPR is the accepted false positive rate. A false positive
	// only drops one datagram, which a datagram transport tolerates.
	DefaultFPR = 1e-6
)

// Double FNV as the bloom filter hash pair.
func doubleFNV(b []byte) (uint64, uint64) {
	hx := fnv.New64()
	hx.Write(b)
	hy := fnv.New64a()
	hy.Write(b)
	return hx.Sum64(), hy.Sum64()
}

// DedupeFilter remembers recently seen datagrams in a ring of bloom filter
// generations. When the current generation fills up the oldest one is
// recycled, so memory stays bounded while lookups still cover every
// generation. Safe for use from multiple connections.
type DedupeFilter struct {
	mu           sync.RWMutex
	slotCapacity int
	slotPosition int
	entryCount   int
	slots        []bloom.Filter
}

// NewDedupeFilter creates a filter ring of the given shape.
func NewDedupeFilter(slots, capacity int, fpr float64) *DedupeFilter {
	f := &DedupeFilter{
		slotCapacity: capacity / slots,
		slots:        make([]bloom.Filter, slots),
	}
	for i := range f.slots {
		f.slots[i] = bloom.New(f.slotCapacity, fpr, doubleFNV)
	}
	return f
}

// Add records b as seen.
func (f *DedupeFilter) Add(b []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	slot := f.slots[f.slotPosition]
	if f.entryCount > f.slotCapacity {
		f.slotPosition = (f.slotPosition + 1) % len(f.slots)
		slot = f.slots[f.slotPosition]
		slot.Reset()
		f.entryCount = 0
	}
	f.entryCount++
	slot.Add(b)
}

// Test reports whether b was (probably) seen in any live generation.
func (f *DedupeFilter) Test(b []byte) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, s := range f.slots {
		if s.Test(b) {
			return true
		}
	}
	return false
}

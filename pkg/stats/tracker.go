package stats

// bitsetLimit bounds the segment count tracked with a dense bitset (16 MiB of
// bits). Larger bursts fall back to a map that only grows with what arrives.
const bitsetLimit = 1 << 27

// SegmentTracker counts distinct segment numbers of one UDP burst.
// Duplicates and numbers outside [0, total) are not counted, so the received
// count can never exceed the expected count.
type SegmentTracker struct {
	total    uint64
	distinct uint64
	bytes    uint64
	bits     []uint64
	seen     map[uint64]struct{}
}

// NewSegmentTracker creates a tracker for a burst of total segments.
func NewSegmentTracker(total uint64) *SegmentTracker {
	t := &SegmentTracker{total: total}
	if total <= bitsetLimit {
		t.bits = make([]uint64, (total+63)/64)
	} else {
		t.seen = make(map[uint64]struct{})
	}
	return t
}

// Observe records segment seq carrying n data bytes. It returns false when
// the segment was a duplicate or out of range.
func (t *SegmentTracker) Observe(seq uint64, n int) bool {
	if seq >= t.total {
		return false
	}
	if t.bits != nil {
		word, mask := seq/64, uint64(1)<<(seq%64)
		if t.bits[word]&mask != 0 {
			return false
		}
		t.bits[word] |= mask
	} else {
		if _, dup := t.seen[seq]; dup {
			return false
		}
		t.seen[seq] = struct{}{}
	}
	t.distinct++
	t.bytes += uint64(n)
	return true
}

// Total returns the expected segment count.
func (t *SegmentTracker) Total() uint64 { return t.total }

// Received returns the number of distinct segments observed.
func (t *SegmentTracker) Received() uint64 { return t.distinct }

// Bytes returns the data bytes carried by distinct segments.
func (t *SegmentTracker) Bytes() uint64 { return t.bytes }

// Complete reports whether every segment has been seen.
func (t *SegmentTracker) Complete() bool { return t.distinct == t.total }

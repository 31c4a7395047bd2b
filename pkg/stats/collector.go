package stats

import (
	"fmt"
	"sync"
)

// Collector gathers the records of one round. Every launched task owns one
// slot and writes it exactly once; Report is read after all tasks joined.
type Collector struct {
	mu      sync.Mutex
	records []TransferRecord
	filled  []bool
	pending int
}

// NewCollector creates a collector with one slot per launched task.
func NewCollector(slots int) *Collector {
	return &Collector{
		records: make([]TransferRecord, slots),
		filled:  make([]bool, slots),
		pending: slots,
	}
}

// Record stores the record of the task launched in position slot.
func (c *Collector) Record(slot int, rec TransferRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if slot < 0 || slot >= len(c.records) {
		return fmt.Errorf("slot %d out of range [0, %d)", slot, len(c.records))
	}
	if c.filled[slot] {
		return fmt.Errorf("slot %d already recorded", slot)
	}
	c.records[slot] = rec
	c.filled[slot] = true
	c.pending--
	return nil
}

// Pending returns the number of slots still waiting for a record.
func (c *Collector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Report returns one result per slot in launch order.
func (c *Collector) Report() ([]Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending > 0 {
		return nil, fmt.Errorf("%w: %d of %d pending", ErrIncompleteRound, c.pending, len(c.records))
	}
	results := make([]Result, len(c.records))
	for i, rec := range c.records {
		results[i] = rec.Result()
	}
	return results, nil
}

// Records returns a copy of the raw records in launch order.
func (c *Collector) Records() []TransferRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]TransferRecord(nil), c.records...)
}

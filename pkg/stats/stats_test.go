package stats

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMegabitsPerSecond(t *testing.T) {
	assert.Equal(t, 8.0, MegabitsPerSecond(1_000_000, time.Second))
	assert.Equal(t, 16.0, MegabitsPerSecond(1_000_000, 500*time.Millisecond))
	assert.Equal(t, 0.0, MegabitsPerSecond(1_000_000, 0))
	assert.Equal(t, 0.0, MegabitsPerSecond(0, time.Second))
}

func TestLossPercent_Bounds(t *testing.T) {
	assert.Equal(t, 100.0, LossPercent(0, 2500))
	assert.Equal(t, 0.0, LossPercent(2500, 2500))
	assert.Equal(t, 0.0, LossPercent(0, 0))
	assert.Equal(t, 0.0, LossPercent(3000, 2500), "over-count must not go negative")
	assert.InDelta(t, 25.0, LossPercent(75, 100), 1e-9)

	for expected := uint64(1); expected <= 64; expected++ {
		for received := uint64(0); received <= expected; received++ {
			loss := LossPercent(received, expected)
			assert.GreaterOrEqual(t, loss, 0.0)
			assert.LessOrEqual(t, loss, 100.0)
		}
	}
}

func TestTransferRecord_Result(t *testing.T) {
	t.Run("tcp has no loss", func(t *testing.T) {
		res := TransferRecord{Protocol: TCP, Index: 1, BytesReceived: 1_000_000, Elapsed: time.Second}.Result()
		assert.Equal(t, 8.0, res.MegabitsPerSecond)
		assert.Equal(t, 1.0, res.ElapsedSeconds)
		assert.Nil(t, res.LossPercent)
	})

	t.Run("udp loss", func(t *testing.T) {
		res := TransferRecord{
			Protocol:         UDP,
			Index:            2,
			BytesReceived:    500,
			SegmentsReceived: 1,
			SegmentsExpected: 4,
			Elapsed:          time.Second,
		}.Result()
		require.NotNil(t, res.LossPercent)
		assert.InDelta(t, 75.0, *res.LossPercent, 1e-9)
		assert.Equal(t, 2, res.Index)
	})

	t.Run("failure keeps error", func(t *testing.T) {
		boom := errors.New("connection reset")
		res := TransferRecord{Protocol: TCP, Err: boom}.Result()
		assert.ErrorIs(t, res.Err, boom)
		assert.Equal(t, 0.0, res.MegabitsPerSecond)
	})
}

func TestSegmentTracker_DistinctCounting(t *testing.T) {
	tr := NewSegmentTracker(5)

	assert.True(t, tr.Observe(0, 10))
	assert.True(t, tr.Observe(3, 10))
	assert.False(t, tr.Observe(3, 10), "duplicate")
	assert.False(t, tr.Observe(5, 10), "out of range")
	assert.True(t, tr.Observe(1, 10))

	assert.Equal(t, uint64(3), tr.Received())
	assert.Equal(t, uint64(30), tr.Bytes())
	assert.False(t, tr.Complete())

	assert.True(t, tr.Observe(2, 10))
	assert.True(t, tr.Observe(4, 7))
	assert.True(t, tr.Complete())
	assert.Equal(t, uint64(47), tr.Bytes())
}

func TestSegmentTracker_LargeBurstUsesSparseSet(t *testing.T) {
	tr := NewSegmentTracker(1 << 40)
	assert.Nil(t, tr.bits)

	assert.True(t, tr.Observe(1<<39, 1))
	assert.False(t, tr.Observe(1<<39, 1))
	assert.Equal(t, uint64(1), tr.Received())
}

func TestSegmentTracker_DropEveryThird(t *testing.T) {
	const total = 2500
	tr := NewSegmentTracker(total)
	for seq := uint64(0); seq < total; seq++ {
		if seq%3 == 2 {
			continue
		}
		tr.Observe(seq, 1000)
	}
	assert.InDelta(t, 33.3, LossPercent(tr.Received(), tr.Total()), 0.1)
}

func TestCollector_ConcurrentWritesThenReport(t *testing.T) {
	const slots = 50
	c := NewCollector(slots)

	_, err := c.Report()
	assert.ErrorIs(t, err, ErrIncompleteRound)

	var wg sync.WaitGroup
	for i := 0; i < slots; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			// Finish in reverse order to show reports follow launch order.
			time.Sleep(time.Duration(slots-slot) * time.Millisecond)
			require.NoError(t, c.Record(slot, TransferRecord{Protocol: TCP, Index: slot + 1, BytesReceived: 1, Elapsed: time.Second}))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, c.Pending())
	results, err := c.Report()
	require.NoError(t, err)
	require.Len(t, results, slots)
	for i, r := range results {
		assert.Equal(t, i+1, r.Index)
	}
}

func TestCollector_RejectsBadSlots(t *testing.T) {
	c := NewCollector(1)
	assert.Error(t, c.Record(-1, TransferRecord{}))
	assert.Error(t, c.Record(1, TransferRecord{}))
	require.NoError(t, c.Record(0, TransferRecord{}))
	assert.Error(t, c.Record(0, TransferRecord{}), "second write to a slot")
}

func TestSummarize(t *testing.T) {
	loss10, loss30 := 10.0, 30.0
	results := []Result{
		{Protocol: UDP, Index: 1, MegabitsPerSecond: 100, LossPercent: &loss10},
		{Protocol: UDP, Index: 2, MegabitsPerSecond: 300, LossPercent: &loss30},
		{Protocol: TCP, Index: 1, MegabitsPerSecond: 50},
		{Protocol: TCP, Index: 2, Err: errors.New("refused")},
	}

	summaries := Summarize(results)
	require.Len(t, summaries, 2)

	udp := summaries[0]
	assert.Equal(t, UDP, udp.Protocol)
	assert.Equal(t, 300.0, udp.MaxMbps)
	assert.Equal(t, 100.0, udp.MinMbps)
	assert.Equal(t, 200.0, udp.AverageMbps)
	require.NotNil(t, udp.AverageLoss)
	assert.Equal(t, 20.0, *udp.AverageLoss)

	tcp := summaries[1]
	assert.Equal(t, 2, tcp.Transfers)
	assert.Equal(t, 1, tcp.Failed)
	assert.Equal(t, 50.0, tcp.AverageMbps)
	assert.Nil(t, tcp.AverageLoss)
}

func TestSummarize_AllFailed(t *testing.T) {
	summaries := Summarize([]Result{{Protocol: TCP, Err: errors.New("x")}})
	require.Len(t, summaries, 1)
	assert.Equal(t, 0.0, summaries[0].MinMbps)
	assert.Equal(t, 0.0, summaries[0].AverageMbps)
}

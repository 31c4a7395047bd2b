package stats

import (
	"errors"
	"time"
)

// Protocol identifies the transport a transfer ran over.
type Protocol int

const (
	TCP Protocol = iota
	UDP
)

// String returns the protocol name as shown in reports
func (p Protocol) String() string {
	switch p {
	case TCP:
		return "TCP"
	case UDP:
		return "UDP"
	default:
		return "unknown"
	}
}

// TransferRecord holds the raw observations of one finished connection.
type TransferRecord struct {
	Protocol Protocol
	// Index is the 1-based position of the task among tasks of the same protocol.
	Index int

	BytesReceived uint64
	// SegmentsReceived counts distinct segments; UDP only.
	SegmentsReceived uint64
	// SegmentsExpected is the burst's total segment count; UDP only.
	SegmentsExpected uint64

	// Elapsed runs from the request being sent to the last byte or segment
	// being received.
	Elapsed time.Duration

	// Err is the error that ended the task early, nil on success.
	Err error
}

// Failed reports whether the task ended with an error.
func (r TransferRecord) Failed() bool {
	return r.Err != nil
}

// Result is one line of a round report.
type Result struct {
	Protocol          Protocol `json:"protocol"`
	Index             int      `json:"index"`
	MegabitsPerSecond float64  `json:"megabits_per_second"`
	ElapsedSeconds    float64  `json:"elapsed_seconds"`
	BytesReceived     uint64   `json:"bytes_received"`
	// LossPercent is nil for TCP.
	LossPercent *float64 `json:"loss_percent,omitempty"`
	Err         error    `json:"-"`
}

// ErrIncompleteRound is returned when a report is requested before every
// launched task has recorded its result.
var ErrIncompleteRound = errors.New("round has unfinished transfers")

// MegabitsPerSecond converts a byte count over a duration into Mbps
// (10^6 bits per second). A non-positive duration yields 0.
func MegabitsPerSecond(bytes uint64, elapsed time.Duration) float64 {
	seconds := elapsed.Seconds()
	if seconds <= 0 {
		return 0
	}
	return float64(bytes) * 8 / seconds / 1_000_000
}

// LossPercent returns the share of expected segments never received, clamped
// to [0, 100]. With nothing expected there is nothing to lose.
func LossPercent(received, expected uint64) float64 {
	if expected == 0 {
		return 0
	}
	if received >= expected {
		return 0
	}
	loss := 100 * (1 - float64(received)/float64(expected))
	switch {
	case loss < 0:
		return 0
	case loss > 100:
		return 100
	}
	return loss
}

// Result derives the report line for r.
func (r TransferRecord) Result() Result {
	res := Result{
		Protocol:          r.Protocol,
		Index:             r.Index,
		MegabitsPerSecond: MegabitsPerSecond(r.BytesReceived, r.Elapsed),
		ElapsedSeconds:    r.Elapsed.Seconds(),
		BytesReceived:     r.BytesReceived,
		Err:               r.Err,
	}
	if r.Protocol == UDP {
		loss := LossPercent(r.SegmentsReceived, r.SegmentsExpected)
		res.LossPercent = &loss
	}
	return res
}

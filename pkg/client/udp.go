package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/NoaS100/NetworkSpeedTest/pkg/discovery"
	"github.com/NoaS100/NetworkSpeedTest/pkg/protocol"
	"github.com/NoaS100/NetworkSpeedTest/pkg/stats"
)

// runUDP requests fileSize bytes as a UDP burst and counts distinct segments
// until all have arrived or the socket stays quiet for UDPInactivityTimeout.
// Missing segments are loss, not an error.
func (e *Engine) runUDP(ctx context.Context, offer discovery.Offer, fileSize uint64, index int) stats.TransferRecord {
	rec := stats.TransferRecord{Protocol: stats.UDP, Index: index}

	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		rec.Err = fmt.Errorf("failed to open UDP socket: %w", err)
		return rec
	}
	defer conn.Close()

	if e.cfg.UDPReadBufferSize > 0 {
		if err := conn.SetReadBuffer(e.cfg.UDPReadBufferSize); err != nil {
			slog.Debug("Could not enlarge UDP read buffer", "size", e.cfg.UDPReadBufferSize, "error", err)
		}
	}

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	start := time.Now()
	if _, err := conn.WriteToUDP(protocol.EncodeRequest(protocol.Request{FileSize: fileSize}), offer.UDPAddr()); err != nil {
		rec.Err = fmt.Errorf("failed to send request: %w", err)
		return rec
	}

	var (
		tracker *stats.SegmentTracker
		last    time.Time
		buf     = make([]byte, protocol.MaxDatagramSize)
	)
	for tracker == nil || !tracker.Complete() {
		if err := ctx.Err(); err != nil {
			rec.Err = fmt.Errorf("udp transfer interrupted: %w", err)
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(e.cfg.UDPInactivityTimeout))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				rec.Err = fmt.Errorf("udp transfer interrupted: %w", ctxErr)
				break
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				break
			}
			rec.Err = fmt.Errorf("udp read failed: %w", err)
			break
		}

		payload, err := protocol.DecodePayload(buf[:n])
		if err != nil {
			if protocol.IsForeign(err) {
				slog.Debug("Ignoring foreign datagram", "error", err)
				continue
			}
			rec.Err = fmt.Errorf("unexpected message from server: %w", err)
			break
		}

		if tracker == nil {
			tracker = stats.NewSegmentTracker(payload.TotalSegments)
		} else if payload.TotalSegments != tracker.Total() {
			// Belongs to a different burst.
			continue
		}
		if tracker.Observe(payload.SegmentNumber, len(payload.Data)) {
			last = time.Now()
		}
	}

	if last.IsZero() {
		rec.Elapsed = time.Since(start)
	} else {
		rec.Elapsed = last.Sub(start)
	}

	if tracker != nil {
		rec.SegmentsReceived = tracker.Received()
		rec.SegmentsExpected = tracker.Total()
		rec.BytesReceived = tracker.Bytes()
	} else {
		// Nothing arrived; estimate the burst from the local segment size.
		rec.SegmentsExpected = protocol.SegmentCount(fileSize, e.cfg.SegmentPayloadSize)
	}
	return rec
}

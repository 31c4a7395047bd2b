package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/NoaS100/NetworkSpeedTest/pkg/discovery"
	"github.com/NoaS100/NetworkSpeedTest/pkg/protocol"
	"github.com/NoaS100/NetworkSpeedTest/pkg/stats"
)

// runTCP requests fileSize bytes over one TCP connection and reads until the
// server closes or the full size has arrived.
func (e *Engine) runTCP(ctx context.Context, offer discovery.Offer, fileSize uint64, index int) stats.TransferRecord {
	rec := stats.TransferRecord{Protocol: stats.TCP, Index: index}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp4", offer.TCPAddr())
	if err != nil {
		rec.Err = fmt.Errorf("failed to connect to %s: %w", offer.TCPAddr(), err)
		return rec
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	start := time.Now()
	if err := protocol.WriteMessage(conn, protocol.Request{FileSize: fileSize}); err != nil {
		rec.Err = fmt.Errorf("failed to send request: %w", wrapCtx(ctx, err))
		return rec
	}

	buf := make([]byte, e.cfg.TCPBufferSize)
	last := start
	for rec.BytesReceived < fileSize {
		want := uint64(len(buf))
		if remaining := fileSize - rec.BytesReceived; remaining < want {
			want = remaining
		}
		n, err := conn.Read(buf[:want])
		if n > 0 {
			rec.BytesReceived += uint64(n)
			last = time.Now()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				rec.Err = fmt.Errorf("tcp read failed: %w", wrapCtx(ctx, err))
			}
			break
		}
	}
	rec.Elapsed = last.Sub(start)

	if rec.Err == nil && rec.BytesReceived < fileSize {
		rec.Err = fmt.Errorf("%w: received %d of %d bytes", ErrShortTransfer, rec.BytesReceived, fileSize)
	}
	return rec
}

// wrapCtx prefers the context's error when ctx ending caused err. The socket
// deadline can fire a moment before the context's own timer.
func wrapCtx(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w (%v)", ctxErr, err)
	}
	if deadline, ok := ctx.Deadline(); ok && !time.Now().Before(deadline) {
		return fmt.Errorf("%w (%v)", context.DeadlineExceeded, err)
	}
	return err
}

package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/NoaS100/NetworkSpeedTest/pkg/protocol"
	"github.com/NoaS100/NetworkSpeedTest/pkg/transfer"
)

const maxAcceptBackoff = time.Second

func (s *Server) acceptLoop(ctx context.Context) error {
	var backoff time.Duration
	for {
		conn, err := s.tcpLn.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else {
				backoff = min(2*backoff, maxAcceptBackoff)
			}
			slog.Warn("Accept failed, retrying", "error", err, "backoff", backoff)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			continue
		}
		backoff = 0

		s.spawn("tcp", func() {
			s.serveTCP(ctx, conn)
		})
	}
}

// serveTCP reads one Request and streams FileSize bytes back.
func (s *Server) serveTCP(ctx context.Context, conn net.Conn) {
	s.activeTCP.Add(1)
	defer s.activeTCP.Add(-1)
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	peer := conn.RemoteAddr().String()

	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.RequestReadTimeout))
	req, err := protocol.ReadRequest(conn)
	if err != nil {
		s.requestsBad.Add(1)
		transfer.LogError("Dropping TCP connection without a valid request", err, "peer", peer)
		return
	}
	_ = conn.SetReadDeadline(time.Time{})
	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.TransferTimeout))

	slog.Debug("Serving TCP request", "peer", peer, "file_size", req.FileSize)
	start := time.Now()
	sent, err := s.writeFill(conn, req.FileSize)
	s.bytesSent.Add(sent)
	if err != nil {
		transfer.LogError("TCP transfer aborted", err, "peer", peer, "sent", sent, "file_size", req.FileSize)
		return
	}
	s.tcpServed.Add(1)
	slog.Debug("TCP transfer finished", "peer", peer, "bytes", sent, "elapsed", time.Since(start))
}

// writeFill writes size bytes of filler to conn from one reusable buffer.
func (s *Server) writeFill(conn net.Conn, size uint64) (uint64, error) {
	buf := fillerBuffer(s.cfg.TCPBufferSize)
	var sent uint64
	for sent < size {
		chunk := uint64(len(buf))
		if remaining := size - sent; remaining < chunk {
			chunk = remaining
		}
		n, err := conn.Write(buf[:chunk])
		sent += uint64(n)
		if err != nil {
			return sent, err
		}
	}
	return sent, nil
}

func fillerBuffer(size int) []byte {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 'a'
	}
	return buf
}

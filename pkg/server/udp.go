package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/NoaS100/NetworkSpeedTest/pkg/protocol"
	"github.com/NoaS100/NetworkSpeedTest/pkg/transfer"
)

const (
	udpRequestBufferSize = 2048
	// deadlineCheckEvery bounds how often a burst looks at the clock.
	deadlineCheckEvery = 1024
)

var errSessionExpired = errors.New("udp session deadline exceeded")

func (s *Server) udpLoop(ctx context.Context) error {
	buf := make([]byte, udpRequestBufferSize)
	for {
		n, peer, err := s.udpConn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			slog.Warn("UDP read failed", "error", err)
			continue
		}

		req, err := protocol.DecodeRequest(buf[:n])
		if err != nil {
			if !protocol.IsForeign(err) {
				s.requestsBad.Add(1)
			}
			transfer.LogError("Ignoring UDP datagram", err, "peer", peer)
			continue
		}

		total := protocol.SegmentCount(req.FileSize, s.cfg.SegmentPayloadSize)
		session, ok := s.sessions.open(peer, req.FileSize, total, s.cfg.UDPSessionTimeout)
		if !ok {
			slog.Debug("Peer already has an active UDP session, ignoring request", "peer", peer)
			continue
		}

		s.spawn("udp", func() {
			defer s.sessions.close(session)
			s.serveUDP(ctx, session)
		})
	}
}

// serveUDP sends every segment of the session back-to-back. Nothing is
// acknowledged or retransmitted.
func (s *Server) serveUDP(ctx context.Context, session *udpSession) {
	s.activeUDP.Add(1)
	defer s.activeUDP.Add(-1)

	slog.Debug("Serving UDP request", "peer", session.peer, "file_size", session.fileSize, "segments", session.total)
	sent, err := s.sendBurst(ctx, session)
	if err != nil {
		transfer.LogError("UDP burst aborted", err, "peer", session.peer, "segments_sent", sent, "segments", session.total)
		return
	}
	s.udpServed.Add(1)
	slog.Debug("UDP burst finished", "peer", session.peer, "segments", sent, "elapsed", time.Since(session.started))
}

func (s *Server) sendBurst(ctx context.Context, session *udpSession) (uint64, error) {
	segmentSize := s.cfg.SegmentPayloadSize
	datagram := fillerBuffer(protocol.PayloadHeaderSize + segmentSize)

	var seq uint64
	for ; seq < session.total; seq++ {
		if seq%deadlineCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return seq, err
			}
			if time.Now().After(session.deadline) {
				return seq, fmt.Errorf("%w after %d of %d segments", errSessionExpired, seq, session.total)
			}
		}

		n := protocol.SegmentLength(session.fileSize, segmentSize, seq)
		protocol.PutPayloadHeader(datagram, session.total, seq)
		if _, err := s.udpConn.WriteToUDP(datagram[:protocol.PayloadHeaderSize+n], session.peer); err != nil {
			return seq, err
		}
		s.bytesSent.Add(uint64(n))
	}
	return seq, nil
}

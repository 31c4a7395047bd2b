package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NoaS100/NetworkSpeedTest/pkg/protocol"
)

// Broadcaster periodically sends an Offer to the broadcast address.
// Start sends the first offer synchronously so a dead interface surfaces as a
// startup error; later failures are logged and retried on the next tick.
type Broadcaster struct {
	target   *net.UDPAddr
	interval time.Duration
	offer    protocol.Offer

	conn   *net.UDPConn
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
	sent   atomic.Uint64
	failed atomic.Uint64
}

// NewBroadcaster creates a broadcaster for offer. Nothing is sent until Start.
func NewBroadcaster(target *net.UDPAddr, interval time.Duration, offer protocol.Offer) *Broadcaster {
	return &Broadcaster{
		target:   target,
		interval: interval,
		offer:    offer,
	}
}

// Start opens the broadcast socket, sends the first offer and begins the
// periodic loop. It returns an error if the first offer cannot be sent.
func (b *Broadcaster) Start(ctx context.Context) error {
	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return fmt.Errorf("failed to open broadcast socket: %w", err)
	}
	b.conn = conn

	if err := b.send(); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to send offer to %s: %w", b.target, err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.wg.Add(1)
	go b.loop(loopCtx)

	slog.Info("Broadcasting offers", "target", b.target, "interval", b.interval,
		"udp_port", b.offer.UDPPort, "tcp_port", b.offer.TCPPort)
	return nil
}

// Stop halts the loop and closes the socket. It is safe to call more than once.
func (b *Broadcaster) Stop() {
	b.once.Do(func() {
		if b.cancel != nil {
			b.cancel()
		}
		b.wg.Wait()
	})
}

// Sent returns the number of offers sent successfully.
func (b *Broadcaster) Sent() uint64 { return b.sent.Load() }

// Failed returns the number of offers that could not be sent.
func (b *Broadcaster) Failed() uint64 { return b.failed.Load() }

func (b *Broadcaster) send() error {
	// A fresh message every tick; offers are never reused.
	msg := protocol.EncodeOffer(b.offer)
	if _, err := b.conn.WriteToUDP(msg, b.target); err != nil {
		b.failed.Add(1)
		return err
	}
	b.sent.Add(1)
	return nil
}

func (b *Broadcaster) loop(ctx context.Context) {
	defer b.wg.Done()
	defer b.conn.Close()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Stopped broadcasting offers", "sent", b.Sent(), "failed", b.Failed())
			return
		case <-ticker.C:
			if err := b.send(); err != nil {
				slog.Warn("Failed to broadcast offer, retrying next tick", "target", b.target, "error", err)
			}
		}
	}
}

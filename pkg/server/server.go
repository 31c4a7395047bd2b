package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/NoaS100/NetworkSpeedTest/pkg/config"
	"github.com/NoaS100/NetworkSpeedTest/pkg/protocol"
)

// ErrNotListening is returned by Serve when Listen has not bound the ports.
var ErrNotListening = errors.New("server is not listening")

// Stats is a snapshot of the server's activity counters.
type Stats struct {
	ActiveTCP   int64
	ActiveUDP   int64
	TCPServed   uint64
	UDPServed   uint64
	BytesSent   uint64
	OffersSent  uint64
	RequestsBad uint64
}

// Server serves TCP streams and UDP bursts and advertises itself with
// periodic broadcast offers.
type Server struct {
	cfg *config.Config

	tcpLn   net.Listener
	udpConn *net.UDPConn

	sessions    *sessionTable
	handlers    sync.WaitGroup
	closeOnce   sync.Once
	broadcaster atomic.Pointer[Broadcaster]

	activeTCP   atomic.Int64
	activeUDP   atomic.Int64
	tcpServed   atomic.Uint64
	udpServed   atomic.Uint64
	bytesSent   atomic.Uint64
	requestsBad atomic.Uint64
}

// New creates a server for cfg. Sockets are bound by Listen.
func New(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &Server{
		cfg:      cfg,
		sessions: newSessionTable(),
	}, nil
}

// Listen binds the TCP and UDP service sockets. Failing to bind is fatal for
// the server and returned as is to the caller.
func (s *Server) Listen() error {
	tcpLn, err := net.Listen("tcp4", net.JoinHostPort("", strconv.Itoa(s.cfg.TCPPort)))
	if err != nil {
		return fmt.Errorf("failed to bind TCP port %d: %w", s.cfg.TCPPort, err)
	}

	udpConn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: s.cfg.UDPPort})
	if err != nil {
		_ = tcpLn.Close()
		return fmt.Errorf("failed to bind UDP port %d: %w", s.cfg.UDPPort, err)
	}

	s.tcpLn = tcpLn
	s.udpConn = udpConn
	slog.Info("Server listening", "tcp_port", s.TCPPort(), "udp_port", s.UDPPort())
	return nil
}

// TCPPort returns the bound TCP service port, 0 before Listen.
func (s *Server) TCPPort() uint16 {
	if s.tcpLn == nil {
		return 0
	}
	return uint16(s.tcpLn.Addr().(*net.TCPAddr).Port)
}

// UDPPort returns the bound UDP service port, 0 before Listen.
func (s *Server) UDPPort() uint16 {
	if s.udpConn == nil {
		return 0
	}
	return uint16(s.udpConn.LocalAddr().(*net.UDPAddr).Port)
}

// Offer returns the offer advertising the bound service ports.
func (s *Server) Offer() protocol.Offer {
	return protocol.Offer{UDPPort: s.UDPPort(), TCPPort: s.TCPPort()}
}

// Serve starts broadcasting and serves requests until ctx is cancelled. It
// waits for in-flight handlers before returning.
func (s *Server) Serve(ctx context.Context) error {
	if s.tcpLn == nil || s.udpConn == nil {
		return ErrNotListening
	}

	target, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(s.cfg.BroadcastAddr, strconv.Itoa(s.cfg.BroadcastPort)))
	if err != nil {
		s.closeListeners()
		return fmt.Errorf("invalid broadcast address: %w", err)
	}

	b := NewBroadcaster(target, s.cfg.BroadcastInterval, s.Offer())
	if err := b.Start(ctx); err != nil {
		s.closeListeners()
		return err
	}
	s.broadcaster.Store(b)
	defer b.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.acceptLoop(gctx)
	})
	g.Go(func() error {
		return s.udpLoop(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		s.closeListeners()
		return nil
	})

	err = g.Wait()
	s.handlers.Wait()
	slog.Info("Server stopped", "tcp_served", s.tcpServed.Load(), "udp_served", s.udpServed.Load())
	return err
}

// Run binds the sockets and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Stats returns a snapshot of the activity counters.
func (s *Server) Stats() Stats {
	st := Stats{
		ActiveTCP:   s.activeTCP.Load(),
		ActiveUDP:   s.activeUDP.Load(),
		TCPServed:   s.tcpServed.Load(),
		UDPServed:   s.udpServed.Load(),
		BytesSent:   s.bytesSent.Load(),
		RequestsBad: s.requestsBad.Load(),
	}
	if b := s.broadcaster.Load(); b != nil {
		st.OffersSent = b.Sent()
	}
	return st
}

func (s *Server) closeListeners() {
	s.closeOnce.Do(func() {
		if err := s.tcpLn.Close(); err != nil {
			slog.Warn("Failed to close TCP listener", "error", err)
		}
		if err := s.udpConn.Close(); err != nil {
			slog.Warn("Failed to close UDP socket", "error", err)
		}
	})
}

// spawn runs a handler on its own goroutine. A panicking handler is logged
// and does not take the listener down.
func (s *Server) spawn(name string, fn func()) {
	s.handlers.Add(1)
	go func() {
		defer s.handlers.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Handler panicked", "handler", name, "panic", r)
			}
		}()
		fn()
	}()
}

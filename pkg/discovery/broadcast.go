package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"golang.org/x/net/ipv4"

	"github.com/NoaS100/NetworkSpeedTest/pkg/protocol"
)

const discoveryBufferSize = 2048

// BroadcastListener waits for Offer datagrams on the well-known broadcast port.
type BroadcastListener struct {
	Port int
	// Host restricts the bind address; empty listens on all interfaces.
	Host string
}

// NewBroadcastListener creates a listener for the given broadcast port.
func NewBroadcastListener(port int) *BroadcastListener {
	return &BroadcastListener{Port: port}
}

// WaitForOffer binds the broadcast port, returns the first valid offer and
// releases the port. Anything that is not an offer is dropped.
func (l *BroadcastListener) WaitForOffer(ctx context.Context) (Offer, error) {
	lc := net.ListenConfig{Control: reuseControl}
	conn, err := lc.ListenPacket(ctx, "udp4", net.JoinHostPort(l.Host, strconv.Itoa(l.Port)))
	if err != nil {
		return Offer{}, fmt.Errorf("failed to bind discovery port %d: %w", l.Port, err)
	}
	defer conn.Close()

	// Unblock the pending read once ctx is done.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetControlMessage(ipv4.FlagInterface, true); err != nil {
		slog.Debug("Arrival interface unavailable on this platform", "error", err)
	}

	buf := make([]byte, discoveryBufferSize)
	for {
		n, cm, src, err := pc.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return Offer{}, ctx.Err()
			}
			return Offer{}, fmt.Errorf("discovery read failed: %w", err)
		}

		msg, err := protocol.DecodeOffer(buf[:n])
		if err != nil {
			slog.Debug("Ignoring datagram on discovery port", "from", src, "error", err)
			continue
		}

		udpSrc, ok := src.(*net.UDPAddr)
		if !ok {
			continue
		}

		offer := Offer{
			Addr:    udpSrc.IP,
			UDPPort: msg.UDPPort,
			TCPPort: msg.TCPPort,
			Source:  SourceBroadcast,
		}
		if cm != nil && cm.IfIndex > 0 {
			if iface, err := net.InterfaceByIndex(cm.IfIndex); err == nil {
				offer.Interface = iface.Name
			}
		}
		slog.Debug("Offer datagram accepted", "from", src, "interface", offer.Interface)
		return offer, nil
	}
}

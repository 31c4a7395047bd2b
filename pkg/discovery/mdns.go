package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/brutella/dnssd"
	dnssdlog "github.com/brutella/dnssd/log"
)

const (
	txtUDPPort = "udp"
	txtTCPPort = "tcp"
)

// MDNSAdapter announces and finds servers over multicast DNS. It is an
// alternative to broadcast offers on networks that filter broadcast traffic.
type MDNSAdapter struct {
	ServiceType string
	Domain      string
}

// NewMDNSAdapter creates an adapter for the default service type.
func NewMDNSAdapter() *MDNSAdapter {
	dnssdlog.Info.SetOutput(io.Discard)
	dnssdlog.Debug.SetOutput(io.Discard)
	return &MDNSAdapter{ServiceType: DefaultServiceType, Domain: DefaultDomain}
}

func (m *MDNSAdapter) service() string {
	return fmt.Sprintf("%s.%s.", m.ServiceType, m.Domain)
}

// Announce publishes the server's ports until ctx is cancelled.
func (m *MDNSAdapter) Announce(ctx context.Context, serviceInfo ServiceInfo) error {
	text := map[string]string{
		"desc":     "Network speed test server",
		txtUDPPort: strconv.Itoa(int(serviceInfo.UDPPort)),
		txtTCPPort: strconv.Itoa(int(serviceInfo.TCPPort)),
	}

	cfg := dnssd.Config{
		Name:   serviceInfo.Name,
		Type:   serviceInfo.Type,
		Domain: serviceInfo.Domain,
		// mdns will multicast to ip address, so we can leave it nil
		IPs:  nil,
		Text: text,
		Port: int(serviceInfo.TCPPort),
	}

	service, err := dnssd.NewService(cfg)
	if err != nil {
		return fmt.Errorf("failed to create mDNS service: %w", err)
	}

	rp, err := dnssd.NewResponder()
	if err != nil {
		return fmt.Errorf("failed to create mDNS responder: %w", err)
	}

	if _, err = rp.Add(service); err != nil {
		return fmt.Errorf("failed to add mDNS service: %w", err)
	}

	if err = rp.Respond(ctx); err != nil {
		// Context cancellation is not an error in normal operation
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("failed to respond to mDNS service: %w", err)
	}

	slog.Info("Shutting down mDNS announcement")
	return nil
}

// WaitForOffer browses for the service type and returns the first entry that
// carries both service ports.
func (m *MDNSAdapter) WaitForOffer(ctx context.Context) (Offer, error) {
	lookupCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	found := make(chan Offer, 1)
	addFn := func(e dnssd.BrowseEntry) {
		offer, err := offerFromEntry(e)
		if err != nil {
			slog.Debug("Ignoring mDNS entry", "name", e.Name, "error", err)
			return
		}
		select {
		case found <- offer:
			cancel()
		default:
		}
	}
	rmvFn := func(e dnssd.BrowseEntry) {}

	errCh := make(chan error, 1)
	go func() {
		errCh <- dnssd.LookupType(lookupCtx, m.service(), addFn, rmvFn)
	}()

	select {
	case offer := <-found:
		slog.Info("Received offer", "server", offer.Addr, "udp_port", offer.UDPPort, "tcp_port", offer.TCPPort, "source", offer.Source)
		return offer, nil
	case err := <-errCh:
		select {
		case offer := <-found:
			return offer, nil
		default:
		}
		if ctx.Err() != nil {
			return Offer{}, ctx.Err()
		}
		if err == nil {
			err = errors.New("lookup ended without a result")
		}
		return Offer{}, fmt.Errorf("mDNS lookup failed: %w", err)
	}
}

func offerFromEntry(e dnssd.BrowseEntry) (Offer, error) {
	if len(e.IPs) == 0 {
		return Offer{}, errors.New("entry has no addresses")
	}
	udpPort, err := parsePort(e.Text[txtUDPPort])
	if err != nil {
		return Offer{}, fmt.Errorf("bad udp port: %w", err)
	}
	tcpPort, err := parsePort(e.Text[txtTCPPort])
	if err != nil {
		return Offer{}, fmt.Errorf("bad tcp port: %w", err)
	}
	addr := e.IPs[0]
	for _, ip := range e.IPs {
		if ip.To4() != nil {
			addr = ip
			break
		}
	}
	return Offer{
		Addr:      addr,
		UDPPort:   udpPort,
		TCPPort:   tcpPort,
		Source:    SourceMDNS,
		Interface: e.IfaceName,
	}, nil
}

func parsePort(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, errors.New("port 0")
	}
	return uint16(v), nil
}

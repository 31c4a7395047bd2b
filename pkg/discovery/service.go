package discovery

import (
	"context"
	"net"
	"strconv"
)

const (
	DefaultServiceType = "_speedtest._tcp"
	DefaultDomain      = "local"
)

// Source names the channel an offer was discovered on.
type Source string

const (
	SourceBroadcast Source = "broadcast"
	SourceMDNS      Source = "mdns"
)

// Offer is a server discovered on the network, ready to serve one round.
type Offer struct {
	Addr    net.IP
	UDPPort uint16
	TCPPort uint16

	Source Source
	// Interface is the local interface the offer arrived on, when known.
	Interface string
}

// TCPAddr returns host:port of the server's TCP service.
func (o Offer) TCPAddr() string {
	return net.JoinHostPort(o.Addr.String(), strconv.Itoa(int(o.TCPPort)))
}

// UDPAddr returns the server's UDP service address.
func (o Offer) UDPAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: o.Addr, Port: int(o.UDPPort)}
}

// ServiceInfo describes a server announcement.
type ServiceInfo struct {
	Name    string // hostname or instance name
	Type    string // service name, e.g., "_speedtest._tcp"
	Domain  string // domain, e.g., "local"
	UDPPort uint16
	TCPPort uint16
}

// Listener blocks until one valid offer arrives.
type Listener interface {
	WaitForOffer(ctx context.Context) (Offer, error)
}

// Announcer advertises a server until ctx is done.
type Announcer interface {
	Announce(ctx context.Context, service ServiceInfo) error
}

var (
	_ Listener  = (*BroadcastListener)(nil)
	_ Listener  = (*MDNSAdapter)(nil)
	_ Announcer = (*MDNSAdapter)(nil)
)

package server

import "net"

// ListeningMsg is sent once the service sockets are bound.
type ListeningMsg struct {
	Instance string
	// Addr is the server's LAN address, nil when unknown.
	Addr    net.IP
	TCPPort uint16
	UDPPort uint16
	MDNS    bool
}

// StatsMsg is a periodic snapshot of server activity.
type StatsMsg struct {
	ActiveTCP  int64
	ActiveUDP  int64
	TCPServed  uint64
	UDPServed  uint64
	BytesSent  uint64
	OffersSent uint64
}

type StoppedMsg struct{}

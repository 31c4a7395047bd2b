package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/NoaS100/NetworkSpeedTest/pkg/protocol"
)

// DiscoveryMode selects how the client finds a server.
type DiscoveryMode string

const (
	DiscoveryBroadcast DiscoveryMode = "broadcast"
	DiscoveryMDNS      DiscoveryMode = "mdns"
)

// Config holds the settings shared by server and client engines.
// Both sides must agree on BroadcastPort or discovery never happens.
type Config struct {
	// Discovery
	BroadcastPort     int           `json:"broadcast_port"`
	BroadcastAddr     string        `json:"broadcast_addr"`
	BroadcastInterval time.Duration `json:"broadcast_interval"`
	Discovery         DiscoveryMode `json:"discovery"`
	MDNS              bool          `json:"mdns"`

	// Server service ports, 0 picks an ephemeral port
	TCPPort int `json:"tcp_port"`
	UDPPort int `json:"udp_port"`

	// Wire sizing
	SegmentPayloadSize int `json:"segment_payload_size"`
	TCPBufferSize      int `json:"tcp_buffer_size"`
	UDPReadBufferSize  int `json:"udp_read_buffer_size"`

	// Timeouts
	UDPInactivityTimeout time.Duration `json:"udp_inactivity_timeout"`
	TransferTimeout      time.Duration `json:"transfer_timeout"`
	UDPSessionTimeout    time.Duration `json:"udp_session_timeout"`
	RequestReadTimeout   time.Duration `json:"request_read_timeout"`

	// MaxConcurrentTransfers bounds the client's in-flight tasks per round;
	// 0 runs every task at once.
	MaxConcurrentTransfers int `json:"max_concurrent_transfers"`
}

const (
	DefaultBroadcastPort      = 13117
	DefaultBroadcastAddr      = "255.255.255.255"
	DefaultSegmentPayloadSize = 1024
	DefaultTCPBufferSize      = 64 * 1024
	DefaultUDPReadBufferSize  = 4 * 1024 * 1024
)

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		BroadcastPort:     DefaultBroadcastPort,
		BroadcastAddr:     DefaultBroadcastAddr,
		BroadcastInterval: time.Second,
		Discovery:         DiscoveryBroadcast,

		TCPPort: 0,
		UDPPort: 0,

		SegmentPayloadSize: DefaultSegmentPayloadSize,
		TCPBufferSize:      DefaultTCPBufferSize,
		UDPReadBufferSize:  DefaultUDPReadBufferSize,

		UDPInactivityTimeout: time.Second,
		TransferTimeout:      2 * time.Minute,
		UDPSessionTimeout:    5 * time.Minute,
		RequestReadTimeout:   10 * time.Second,

		MaxConcurrentTransfers: 0,
	}
}

func validPort(p int) bool {
	return p >= 0 && p <= 65535
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if c.BroadcastPort <= 0 || c.BroadcastPort > 65535 {
		return errors.New("broadcast_port must be in 1..65535")
	}
	if c.BroadcastAddr == "" {
		return errors.New("broadcast_addr cannot be empty")
	}
	if c.BroadcastInterval <= 0 {
		return errors.New("broadcast_interval must be positive")
	}
	switch c.Discovery {
	case DiscoveryBroadcast, DiscoveryMDNS:
	default:
		return fmt.Errorf("unknown discovery mode %q", c.Discovery)
	}

	if !validPort(c.TCPPort) {
		return errors.New("tcp_port must be in 0..65535")
	}
	if !validPort(c.UDPPort) {
		return errors.New("udp_port must be in 0..65535")
	}

	if c.SegmentPayloadSize <= 0 {
		return errors.New("segment_payload_size must be positive")
	}
	if c.SegmentPayloadSize > protocol.MaxSegmentPayload {
		return fmt.Errorf("segment_payload_size cannot exceed %d", protocol.MaxSegmentPayload)
	}
	if c.TCPBufferSize <= 0 {
		return errors.New("tcp_buffer_size must be positive")
	}
	if c.UDPReadBufferSize < 0 {
		return errors.New("udp_read_buffer_size cannot be negative")
	}

	if c.UDPInactivityTimeout <= 0 {
		return errors.New("udp_inactivity_timeout must be positive")
	}
	if c.TransferTimeout <= 0 {
		return errors.New("transfer_timeout must be positive")
	}
	if c.UDPSessionTimeout <= 0 {
		return errors.New("udp_session_timeout must be positive")
	}
	if c.RequestReadTimeout <= 0 {
		return errors.New("request_read_timeout must be positive")
	}

	if c.MaxConcurrentTransfers < 0 {
		return errors.New("max_concurrent_transfers cannot be negative")
	}
	return nil
}

// ClientParams are the per-run values chosen by the operator.
type ClientParams struct {
	FileSize       uint64 `json:"file_size"`
	UDPConnections uint32 `json:"udp_connections"`
	TCPConnections uint32 `json:"tcp_connections"`
	// Rounds stops the client after that many rounds; 0 runs until cancelled.
	Rounds int `json:"rounds"`
}

var ErrInvalidFileSize = errors.New("file size must be positive")

// Validate checks the parameters before any round starts.
func (p ClientParams) Validate() error {
	if p.FileSize == 0 {
		return ErrInvalidFileSize
	}
	if p.UDPConnections == 0 && p.TCPConnections == 0 {
		return errors.New("at least one UDP or TCP connection is required")
	}
	if p.Rounds < 0 {
		return errors.New("rounds cannot be negative")
	}
	return nil
}

// Connections returns the number of tasks launched per round.
func (p ClientParams) Connections() int {
	return int(p.UDPConnections) + int(p.TCPConnections)
}

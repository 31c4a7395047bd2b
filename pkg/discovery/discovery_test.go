package discovery

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NoaS100/NetworkSpeedTest/pkg/protocol"
)

func freeUDPPort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	port := conn.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, conn.Close())
	return port
}

// sendUntilDone keeps sending datagrams to port until ctx is done, so the
// listener receives them no matter when it finished binding.
func sendUntilDone(ctx context.Context, t *testing.T, port int, datagrams ...[]byte) {
	t.Helper()
	conn, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port})
	require.NoError(t, err)

	go func() {
		defer conn.Close()
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			for _, d := range datagrams {
				_, _ = conn.Write(d)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func TestBroadcastListener_ReturnsFirstOffer(t *testing.T) {
	port := freeUDPPort(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sendUntilDone(ctx, t, port, protocol.EncodeOffer(protocol.Offer{UDPPort: 5001, TCPPort: 5002}))

	listener := &BroadcastListener{Port: port, Host: "127.0.0.1"}
	offer, err := listener.WaitForOffer(ctx)
	require.NoError(t, err)

	assert.Equal(t, uint16(5001), offer.UDPPort)
	assert.Equal(t, uint16(5002), offer.TCPPort)
	assert.True(t, offer.Addr.Equal(net.IPv4(127, 0, 0, 1)))
	assert.Equal(t, SourceBroadcast, offer.Source)
	assert.Equal(t, "127.0.0.1:5002", offer.TCPAddr())
	assert.Equal(t, 5001, offer.UDPAddr().Port)
}

func TestBroadcastListener_IgnoresForeignTraffic(t *testing.T) {
	port := freeUDPPort(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	badCookie := protocol.EncodeOffer(protocol.Offer{UDPPort: 1, TCPPort: 1})
	badCookie[0] ^= 0xff
	request := protocol.EncodeRequest(protocol.Request{FileSize: 10})
	garbage := []byte("hello")

	sendUntilDone(ctx, t, port, badCookie, request, garbage, protocol.EncodeOffer(protocol.Offer{UDPPort: 7, TCPPort: 8}))

	offer, err := (&BroadcastListener{Port: port, Host: "127.0.0.1"}).WaitForOffer(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint16(7), offer.UDPPort)
	assert.Equal(t, uint16(8), offer.TCPPort)
}

func TestBroadcastListener_ContextCancel(t *testing.T) {
	port := freeUDPPort(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewBroadcastListener(port).WaitForOffer(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestMDNS_AnnounceAndDiscover(t *testing.T) {
	// Skip mDNS tests in CI environment as they may be unreliable
	if testing.Short() {
		t.Skip("Skipping mDNS test in short mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adapter := NewMDNSAdapter()
	adapter.ServiceType = "_speedtest-test._tcp"
	go func() {
		_ = adapter.Announce(ctx, ServiceInfo{
			Name:    "test-instance",
			Type:    adapter.ServiceType,
			Domain:  adapter.Domain,
			UDPPort: 5001,
			TCPPort: 5002,
		})
	}()

	queryCtx, queryCancel := context.WithTimeout(ctx, 10*time.Second)
	defer queryCancel()

	offer, err := adapter.WaitForOffer(queryCtx)
	if err != nil {
		t.Skipf("mDNS unavailable in this environment: %v", err)
	}
	assert.Equal(t, uint16(5001), offer.UDPPort)
	assert.Equal(t, uint16(5002), offer.TCPPort)
	assert.Equal(t, SourceMDNS, offer.Source)
}

func TestParsePort(t *testing.T) {
	p, err := parsePort("5001")
	require.NoError(t, err)
	assert.Equal(t, uint16(5001), p)

	_, err = parsePort("")
	assert.Error(t, err)
	_, err = parsePort("0")
	assert.Error(t, err)
	_, err = parsePort("70000")
	assert.Error(t, err)
}

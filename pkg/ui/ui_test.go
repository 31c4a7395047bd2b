package ui

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appevents "github.com/NoaS100/NetworkSpeedTest/internal/app_events"
	clientEvent "github.com/NoaS100/NetworkSpeedTest/internal/app_events/client"
	serverEvent "github.com/NoaS100/NetworkSpeedTest/internal/app_events/server"
	"github.com/NoaS100/NetworkSpeedTest/pkg/config"
	"github.com/NoaS100/NetworkSpeedTest/pkg/discovery"
	"github.com/NoaS100/NetworkSpeedTest/pkg/stats"
)

// scriptedApp replays a fixed list of messages, then returns err.
type scriptedApp struct {
	msgs   chan tea.Msg
	events chan appevents.AppEvent
	script []tea.Msg
	err    error
}

func newScriptedApp(err error, script ...tea.Msg) *scriptedApp {
	return &scriptedApp{
		msgs:   make(chan tea.Msg, len(script)),
		events: make(chan appevents.AppEvent, 1),
		script: script,
		err:    err,
	}
}

func (a *scriptedApp) UIMessages() <-chan tea.Msg { return a.msgs }

func (a *scriptedApp) AppEvents() chan<- appevents.AppEvent { return a.events }

func (a *scriptedApp) Run(ctx context.Context) error {
	for _, m := range a.script {
		a.msgs <- m
	}
	return a.err
}

func sampleRound() clientEvent.RoundCompleteMsg {
	loss := 25.0
	results := []stats.Result{
		{Protocol: stats.UDP, Index: 1, MegabitsPerSecond: 8, ElapsedSeconds: 1, BytesReceived: 750_000, LossPercent: &loss},
		{Protocol: stats.TCP, Index: 1, MegabitsPerSecond: 80, ElapsedSeconds: 0.1, BytesReceived: 1_000_000},
		{Protocol: stats.TCP, Index: 2, Err: errors.New("connection refused")},
	}
	return clientEvent.RoundCompleteMsg{Round: 1, ID: "r1", Results: results, Summaries: stats.Summarize(results)}
}

func TestRunPlain_ClientRound(t *testing.T) {
	app := newScriptedApp(nil,
		clientEvent.StateChangedMsg{State: "listening"},
		clientEvent.OfferReceivedMsg{Offer: discovery.Offer{Addr: net.IPv4(10, 0, 0, 5), UDPPort: 2000, TCPPort: 2001}},
		clientEvent.RoundStartedMsg{Round: 1, Params: config.ClientParams{FileSize: 1_000_000, UDPConnections: 1, TCPConnections: 2}},
		sampleRound(),
		clientEvent.FinishedMsg{},
	)

	var out bytes.Buffer
	require.NoError(t, RunPlain(context.Background(), app, &out))

	text := out.String()
	assert.Contains(t, text, "Client started, listening for offer requests...")
	assert.Contains(t, text, "Received offer from 10.0.0.5 (UDP port 2000, TCP port 2001)")
	assert.Contains(t, text, "UDP transfer #1 finished, total time: 1.000 s, total speed: 8.00 Mbit/s, packets received: 75.00%")
	assert.Contains(t, text, "TCP transfer #2 finished")
	assert.Contains(t, text, "failed: connection refused")
	assert.Contains(t, text, "TCP: 2 transfer(s), 1 failed, avg 80.00 Mbit/s")
	assert.Contains(t, text, "UDP: 1 transfer(s), avg 8.00 Mbit/s, min 8.00 Mbit/s, max 8.00 Mbit/s, avg loss 25.00%")
	assert.Contains(t, text, "Done.")
}

func TestRunPlain_ReturnsAppError(t *testing.T) {
	boom := errors.New("bind failed")
	app := newScriptedApp(boom, appevents.Error{Err: boom})

	var out bytes.Buffer
	err := RunPlain(context.Background(), app, &out)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, out.String(), "Error: bind failed")
}

func TestRunPlain_ServerStatsOnlyOnChange(t *testing.T) {
	app := newScriptedApp(nil,
		serverEvent.ListeningMsg{Instance: "host-1", Addr: net.IPv4(192, 168, 1, 7), TCPPort: 1, UDPPort: 2},
		serverEvent.StatsMsg{},
		serverEvent.StatsMsg{TCPServed: 1, BytesSent: 1024},
		serverEvent.StatsMsg{TCPServed: 1, BytesSent: 1024},
		serverEvent.StoppedMsg{},
	)

	var out bytes.Buffer
	require.NoError(t, RunPlain(context.Background(), app, &out))

	text := out.String()
	assert.Contains(t, text, "Server host-1 started, listening on IP address 192.168.1.7 (TCP port 1, UDP port 2)")
	assert.Equal(t, 1, bytes.Count(out.Bytes(), []byte("Served ")))
	assert.Contains(t, text, "Served 1 TCP and 0 UDP transfer(s), 1 KB sent")
	assert.Contains(t, text, "Server stopped")
}

func newTestModel(mode Mode, app AppController, params config.ClientParams) *model {
	m := InitialModel(context.Background(), mode, app, params)
	return &m
}

func update(t *testing.T, m *model, msg tea.Msg) tea.Cmd {
	t.Helper()
	next, cmd := m.Update(msg)
	switch nm := next.(type) {
	case model:
		*m = nm
	case *model:
		*m = *nm
	default:
		t.Fatalf("unexpected model type %T", next)
	}
	return cmd
}

func typeText(t *testing.T, m *model, s string) {
	t.Helper()
	for _, r := range s {
		update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestClientModel_PromptSubmitsParams(t *testing.T) {
	app := newScriptedApp(nil)
	m := newTestModel(Client, app, config.ClientParams{Rounds: 3})

	update(t, m, clientEvent.NeedParamsMsg{Params: config.ClientParams{Rounds: 3}})
	assert.Equal(t, promptingParams, m.client.state)
	assert.Contains(t, m.View(), "File size: ")

	typeText(t, m, "10MB")
	update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	typeText(t, m, "2")
	update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	typeText(t, m, "x")
	cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Error(t, m.client.inputErr)
	assert.Contains(t, m.View(), "TCP connections")

	update(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	typeText(t, m, "1")
	cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.NoError(t, m.client.inputErr)
	cmd()

	event := <-app.events
	submitted, ok := event.(clientEvent.ParamsSubmittedMsg)
	require.True(t, ok)
	assert.Equal(t, config.ClientParams{FileSize: 10_000_000, UDPConnections: 2, TCPConnections: 1, Rounds: 3}, submitted.Params)
}

func TestClientModel_QuitKeyIsTextWhilePrompting(t *testing.T) {
	m := newTestModel(Client, newScriptedApp(nil), config.ClientParams{})
	update(t, m, clientEvent.NeedParamsMsg{})

	update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	assert.Equal(t, promptingParams, m.client.state)
	assert.NoError(t, m.ctx.Err())
	assert.Equal(t, "q", m.client.inputs[fieldFileSize].Value())
}

func TestClientModel_ShowsRoundResults(t *testing.T) {
	m := newTestModel(Client, newScriptedApp(nil), config.ClientParams{FileSize: 1_000_000, UDPConnections: 1, TCPConnections: 2})

	update(t, m, clientEvent.StateChangedMsg{State: "listening"})
	assert.Contains(t, m.View(), "Waiting for a server offer")

	update(t, m, clientEvent.OfferReceivedMsg{Offer: discovery.Offer{Addr: net.IPv4(10, 0, 0, 5)}})
	update(t, m, clientEvent.RoundStartedMsg{Round: 1, Params: m.client.params})
	update(t, m, clientEvent.StateChangedMsg{State: "transferring"})
	assert.Contains(t, m.View(), "Round 1: receiving")

	update(t, m, sampleRound())
	update(t, m, clientEvent.StateChangedMsg{State: "listening"})
	view := m.View()
	assert.Contains(t, view, "Round 1 results")
	assert.Contains(t, view, "UDP #1")
	assert.Contains(t, view, "25.00%")
	assert.Contains(t, view, "avg loss 25.00%")

	update(t, m, clientEvent.FinishedMsg{})
	assert.Contains(t, m.View(), "All 1 round(s) complete.")
}

func TestClientModel_AppErrorFails(t *testing.T) {
	m := newTestModel(Client, newScriptedApp(nil), config.ClientParams{})
	update(t, m, appExitedMsg{err: errors.New("discovery failed: no route")})
	assert.Equal(t, clientFailed, m.client.state)
	assert.Contains(t, m.View(), "discovery failed: no route")
	assert.EqualError(t, m.exitErr, "discovery failed: no route")
}

func TestServerModel_ShowsStats(t *testing.T) {
	m := newTestModel(Server, newScriptedApp(nil), config.ClientParams{})

	update(t, m, serverEvent.ListeningMsg{Instance: "host-abc", TCPPort: 4000, UDPPort: 4001, MDNS: true})
	update(t, m, serverEvent.StatsMsg{ActiveTCP: 1, TCPServed: 3, UDPServed: 2, BytesSent: 3 << 20, OffersSent: 12})

	view := m.View()
	assert.Contains(t, view, "listening on all interfaces (TCP port 4000, UDP port 4001)")
	assert.Contains(t, view, "announcing over mDNS")
	assert.Contains(t, view, "3 TCP / 2 UDP")
	assert.Contains(t, view, "3 MB")

	update(t, m, appevents.Error{Err: errors.New("socket closed")})
	assert.Contains(t, m.View(), "socket closed")
}

func TestSpeedHistory_Sparkline(t *testing.T) {
	h := newSpeedHistory(3)
	for _, v := range []float64{10, 20, 30, 40} {
		h.add([]stats.Summary{{Protocol: stats.TCP, Transfers: 1, AverageMbps: v}})
	}
	h.add([]stats.Summary{{Protocol: stats.UDP, Transfers: 1, Failed: 1}})

	assert.Equal(t, "▁▄█", h.sparkline(stats.TCP))
	assert.Empty(t, h.sparkline(stats.UDP))
}

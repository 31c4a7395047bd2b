package ui

import (
	"fmt"
	"net"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	appevents "github.com/NoaS100/NetworkSpeedTest/internal/app_events"
	serverEvent "github.com/NoaS100/NetworkSpeedTest/internal/app_events/server"
	"github.com/NoaS100/NetworkSpeedTest/internal/style"
	"github.com/NoaS100/NetworkSpeedTest/internal/util"
)

// serverState defines the different states of the server UI
type serverState int

const (
	startingServer serverState = iota
	serving
	serverStopped
	serverFailed
)

type serverModel struct {
	state     serverState
	spinner   spinner.Model
	listening serverEvent.ListeningMsg
	stats     serverEvent.StatsMsg
	lastError error
}

func initServerModel() serverModel {
	return serverModel{
		state:   startingServer,
		spinner: style.NewSpinner(),
	}
}

func (m *model) initServer() tea.Cmd {
	return m.server.spinner.Tick
}

func (m *model) updateServer(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case serverEvent.ListeningMsg:
		m.server.listening = msg
		m.server.state = serving
		return m, m.listenForAppMessages()
	case serverEvent.StatsMsg:
		m.server.stats = msg
		return m, m.listenForAppMessages()
	case serverEvent.StoppedMsg:
		if m.server.state != serverFailed {
			m.server.state = serverStopped
		}
		return m, m.listenForAppMessages()
	case appevents.Error:
		m.server.lastError = msg.Err
		m.server.state = serverFailed
		return m, m.listenForAppMessages()
	case appExitedMsg:
		if m.exitErr != nil {
			m.server.lastError = m.exitErr
			m.server.state = serverFailed
		}
		return m, nil
	}

	var spinCmd tea.Cmd
	if m.server.state == startingServer || m.server.state == serving {
		m.server.spinner, spinCmd = m.server.spinner.Update(msg)
	}
	return m, spinCmd
}

func (m model) serverView() string {
	var b strings.Builder
	b.WriteString(style.TitleStyle.Render("Network speed test server"))
	b.WriteString("\n\n")

	switch m.server.state {
	case startingServer:
		fmt.Fprintf(&b, "%s Starting...\n", m.server.spinner.View())
	case serving:
		l := m.server.listening
		fmt.Fprintf(&b, "Server %s started, listening on %s (TCP port %d, UDP port %d)\n",
			style.HighlightFontStyle.Render(l.Instance), hostLabel(l.Addr), l.TCPPort, l.UDPPort)
		announce := "Broadcasting offers"
		if l.MDNS {
			announce += " and announcing over mDNS"
		}
		fmt.Fprintf(&b, "%s %s...\n\n", m.server.spinner.View(), announce)
		b.WriteString(m.serverStatsView())
	case serverStopped:
		b.WriteString("Server stopped.\n\n")
		b.WriteString(m.serverStatsView())
	case serverFailed:
		if m.server.lastError != nil {
			fmt.Fprintf(&b, "An error occurred: %s\n", style.ErrorStyle.Render(m.server.lastError.Error()))
		}
	}
	return b.String()
}

func (m model) serverStatsView() string {
	st := m.server.stats
	rows := [][]string{
		{"Active transfers", fmt.Sprintf("%d TCP / %d UDP", st.ActiveTCP, st.ActiveUDP)},
		{"Completed", fmt.Sprintf("%d TCP / %d UDP", st.TCPServed, st.UDPServed)},
		{"Data sent", util.FormatSize(st.BytesSent)},
		{"Offers sent", fmt.Sprintf("%d", st.OffersSent)},
	}
	return style.BaseStyle.Render(strings.Join(util.Columns(rows), "\n")) + "\n"
}

func hostLabel(ip net.IP) string {
	if ip == nil {
		return "all interfaces"
	}
	return "IP address " + ip.String()
}

package ui

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	appevents "github.com/NoaS100/NetworkSpeedTest/internal/app_events"
	clientEvent "github.com/NoaS100/NetworkSpeedTest/internal/app_events/client"
	"github.com/NoaS100/NetworkSpeedTest/internal/style"
	"github.com/NoaS100/NetworkSpeedTest/internal/util"
	"github.com/NoaS100/NetworkSpeedTest/pkg/config"
	"github.com/NoaS100/NetworkSpeedTest/pkg/discovery"
	"github.com/NoaS100/NetworkSpeedTest/pkg/stats"
)

// clientState defines the different states of the client UI.
type clientState int

const (
	startingClient clientState = iota
	promptingParams
	listeningForOffers
	transferring
	clientFinished
	clientFailed
)

const (
	fieldFileSize = iota
	fieldUDP
	fieldTCP
)

const historyRounds = 30

type clientModel struct {
	state   clientState
	spinner spinner.Model
	inputs  []textinput.Model
	focus   int
	params  config.ClientParams

	offer     *discovery.Offer
	round     int
	results   []stats.Result
	summaries []stats.Summary
	table     table.Model
	history   *speedHistory

	inputErr  error
	lastError error
}

var resultColumns = []table.Column{
	{Title: reportHeader[0], Width: 10},
	{Title: reportHeader[1], Width: 16},
	{Title: reportHeader[2], Width: 10},
	{Title: reportHeader[3], Width: 12},
	{Title: reportHeader[4], Width: 8},
	{Title: reportHeader[5], Width: 30},
}

func initClientModel(params config.ClientParams) clientModel {
	inputs := []textinput.Model{
		style.NewTextInput("File size: ", "e.g. 10MB"),
		style.NewTextInput("UDP connections: ", "e.g. 2"),
		style.NewTextInput("TCP connections: ", "e.g. 2"),
	}
	if params.FileSize > 0 {
		inputs[fieldFileSize].SetValue(strconv.FormatUint(params.FileSize, 10))
	}
	if params.UDPConnections > 0 {
		inputs[fieldUDP].SetValue(strconv.FormatUint(uint64(params.UDPConnections), 10))
	}
	if params.TCPConnections > 0 {
		inputs[fieldTCP].SetValue(strconv.FormatUint(uint64(params.TCPConnections), 10))
	}

	t := table.New(
		table.WithColumns(resultColumns),
		table.WithRows([]table.Row{}),
		table.WithFocused(false),
		table.WithHeight(0),
	)
	t.SetStyles(style.NewTableStyles())

	return clientModel{
		state:   startingClient,
		spinner: style.NewSpinner(),
		inputs:  inputs,
		params:  params,
		table:   t,
		history: newSpeedHistory(historyRounds),
	}
}

func (m *model) initClient() tea.Cmd {
	return m.client.spinner.Tick
}

func (m *model) updateClient(msg tea.Msg) (tea.Model, tea.Cmd) {
	if cmd, processed := m.handleClientAppEvent(msg); processed {
		return m, cmd
	}

	var cmd tea.Cmd
	if m.client.state == promptingParams {
		cmd = m.updatePrompt(msg)
	}

	var spinCmd tea.Cmd
	m.client.spinner, spinCmd = m.client.spinner.Update(msg)
	return m, tea.Batch(cmd, spinCmd)
}

func (m *model) handleClientAppEvent(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case clientEvent.NeedParamsMsg:
		m.client.state = promptingParams
		m.client.params = msg.Params
		m.setFocus(fieldFileSize)
		return tea.Batch(textinput.Blink, m.listenForAppMessages()), true
	case clientEvent.StateChangedMsg:
		switch msg.State {
		case "listening":
			m.client.state = listeningForOffers
		case "transferring":
			m.client.state = transferring
		}
		return m.listenForAppMessages(), true
	case clientEvent.OfferReceivedMsg:
		offer := msg.Offer
		m.client.offer = &offer
		return m.listenForAppMessages(), true
	case clientEvent.RoundStartedMsg:
		m.client.round = msg.Round
		m.client.params = msg.Params
		return m.listenForAppMessages(), true
	case clientEvent.RoundCompleteMsg:
		slog.Info("Round complete", "round", msg.Round, "round_id", msg.ID, "transfers", len(msg.Results))
		m.setResults(msg.Results, msg.Summaries)
		return m.listenForAppMessages(), true
	case clientEvent.FinishedMsg:
		m.client.state = clientFinished
		return nil, true
	case appevents.Error:
		if m.client.state == promptingParams {
			m.client.inputErr = msg.Err
		} else {
			m.client.lastError = msg.Err
			m.client.state = clientFailed
		}
		return m.listenForAppMessages(), true
	case appExitedMsg:
		if m.exitErr != nil {
			m.client.lastError = m.exitErr
			m.client.state = clientFailed
		}
		return nil, true
	}
	return nil, false
}

func (m *model) setResults(results []stats.Result, summaries []stats.Summary) {
	m.client.results = results
	m.client.summaries = summaries
	m.client.history.add(summaries)

	rows := make([]table.Row, 0, len(results))
	for _, r := range results {
		rows = append(rows, table.Row(resultRow(r)))
	}
	m.client.table.SetRows(rows)
	// Header row plus its border line.
	m.client.table.SetHeight(len(rows) + 2)
}

func (m *model) setFocus(i int) {
	m.client.focus = i
	for j := range m.client.inputs {
		if j == i {
			m.client.inputs[j].Focus()
		} else {
			m.client.inputs[j].Blur()
		}
	}
}

// updatePrompt handles key presses while asking for parameters.
func (m *model) updatePrompt(msg tea.Msg) tea.Cmd {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyTab, tea.KeyDown:
			m.setFocus((m.client.focus + 1) % len(m.client.inputs))
			return nil
		case tea.KeyShiftTab, tea.KeyUp:
			m.setFocus((m.client.focus + len(m.client.inputs) - 1) % len(m.client.inputs))
			return nil
		case tea.KeyEnter:
			if m.client.focus < len(m.client.inputs)-1 {
				m.setFocus(m.client.focus + 1)
				return nil
			}
			return m.submitParams()
		}
	}

	var cmd tea.Cmd
	m.client.inputs[m.client.focus], cmd = m.client.inputs[m.client.focus].Update(msg)
	return cmd
}

func (m *model) submitParams() tea.Cmd {
	params, err := parseParams(m.client.inputs, m.client.params)
	if err != nil {
		m.client.inputErr = err
		return nil
	}
	if err := params.Validate(); err != nil {
		m.client.inputErr = err
		return nil
	}
	m.client.inputErr = nil
	m.client.params = params
	m.client.state = startingClient

	sender, ok := m.app.(EventSender)
	if !ok {
		slog.Error("App controller does not accept events")
		return nil
	}
	events := sender.AppEvents()
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case events <- clientEvent.ParamsSubmittedMsg{Params: params}:
		case <-ctx.Done():
		}
		return nil
	}
}

// parseParams reads the prompt fields on top of base, which keeps Rounds.
func parseParams(inputs []textinput.Model, base config.ClientParams) (config.ClientParams, error) {
	params := base

	size, err := util.ParseSize(inputs[fieldFileSize].Value())
	if err != nil {
		return params, fmt.Errorf("file size: %w", err)
	}
	params.FileSize = size

	udp, err := parseCount(inputs[fieldUDP].Value())
	if err != nil {
		return params, fmt.Errorf("UDP connections: %w", err)
	}
	params.UDPConnections = udp

	tcp, err := parseCount(inputs[fieldTCP].Value())
	if err != nil {
		return params, fmt.Errorf("TCP connections: %w", err)
	}
	params.TCPConnections = tcp
	return params, nil
}

func parseCount(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%q is not a connection count", s)
	}
	return uint32(n), nil
}

func (m *model) clientView() string {
	var b strings.Builder
	b.WriteString(style.TitleStyle.Render("Network speed test client"))
	b.WriteString("\n\n")

	switch m.client.state {
	case startingClient:
		fmt.Fprintf(&b, "%s Starting...\n", m.client.spinner.View())
	case promptingParams:
		for _, in := range m.client.inputs {
			b.WriteString(in.View())
			b.WriteString("\n")
		}
		if m.client.inputErr != nil {
			b.WriteString(style.ErrorStyle.Render(m.client.inputErr.Error()))
			b.WriteString("\n")
		}
		b.WriteString(style.HelpStyle.Render("tab to switch fields, enter to start"))
		b.WriteString("\n")
	case listeningForOffers:
		fmt.Fprintf(&b, "%s Waiting for a server offer...\n", m.client.spinner.View())
	case transferring:
		server := "server"
		if m.client.offer != nil {
			server = m.client.offer.Addr.String()
		}
		fmt.Fprintf(&b, "%s Round %d: receiving %s over %d UDP and %d TCP connection(s) from %s...\n",
			m.client.spinner.View(), m.client.round, util.FormatSize(m.client.params.FileSize),
			m.client.params.UDPConnections, m.client.params.TCPConnections,
			style.HighlightFontStyle.Render(server))
	case clientFinished:
		fmt.Fprintf(&b, "All %d round(s) complete.\n", m.client.round)
	case clientFailed:
		if m.client.lastError != nil {
			fmt.Fprintf(&b, "An error occurred: %s\n", style.ErrorStyle.Render(m.client.lastError.Error()))
		}
	}

	if len(m.client.results) > 0 {
		fmt.Fprintf(&b, "\nRound %d results\n", m.client.round)
		b.WriteString(style.BaseStyle.Render(m.client.table.View()))
		b.WriteString("\n")
		for _, s := range m.client.summaries {
			line := summaryLine(s)
			if spark := m.client.history.sparkline(s.Protocol); spark != "" {
				line += "  " + spark
			}
			if s.Protocol == stats.UDP {
				b.WriteString(style.UDPStyle.Render(line))
			} else {
				b.WriteString(style.TCPStyle.Render(line))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

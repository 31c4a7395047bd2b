package ui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	appevents "github.com/NoaS100/NetworkSpeedTest/internal/app_events"
	"github.com/NoaS100/NetworkSpeedTest/pkg/config"
)

type Mode int

const (
	None Mode = iota
	Client
	Server
)

// AppController is the logic side of the UI: it runs until its context ends
// and reports progress on UIMessages.
type AppController interface {
	UIMessages() <-chan tea.Msg
	Run(ctx context.Context) error
}

// EventSender is implemented by controllers that take input from the TUI.
type EventSender interface {
	AppEvents() chan<- appevents.AppEvent
}

// appExitedMsg is delivered when the controller's Run returns.
type appExitedMsg struct {
	err error
}

type model struct {
	mode   Mode
	ctx    context.Context
	cancel context.CancelFunc
	app    AppController

	client clientModel
	server serverModel

	appDone bool
	exitErr error
}

func InitialModel(ctx context.Context, m Mode, app AppController, params config.ClientParams) model {
	ctx, cancel := context.WithCancel(ctx)
	mdl := model{
		mode:   m,
		ctx:    ctx,
		cancel: cancel,
		app:    app,
	}
	switch m {
	case Client:
		mdl.client = initClientModel(params)
	case Server:
		mdl.server = initServerModel()
	}
	return mdl
}

// Run starts the TUI for app and blocks until the user quits. It returns the
// controller's error, if any.
func Run(ctx context.Context, m Mode, app AppController, params config.ClientParams) error {
	p := tea.NewProgram(InitialModel(ctx, m, app, params), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	// Update hands back either a model or a pointer to one.
	switch fm := final.(type) {
	case model:
		fm.cancel()
		return fm.exitErr
	case *model:
		fm.cancel()
		return fm.exitErr
	}
	return nil
}

func (m model) Init() tea.Cmd {
	var modeCmd tea.Cmd
	switch m.mode {
	case Client:
		modeCmd = m.initClient()
	case Server:
		modeCmd = m.initServer()
	default:
		return nil
	}
	return tea.Batch(m.runApp(), m.listenForAppMessages(), modeCmd)
}

func (m model) runApp() tea.Cmd {
	return func() tea.Msg {
		return appExitedMsg{err: m.app.Run(m.ctx)}
	}
}

// listenForAppMessages is a command that listens for messages from the app controller.
func (m model) listenForAppMessages() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-m.app.UIMessages():
			return msg
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m model) View() string {
	var s string
	switch m.mode {
	case Client:
		s += m.clientView()
	case Server:
		s += m.serverView()
	default:
		return ""
	}
	s += "\nPress ctrl + c to quit"
	return s
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || (msg.String() == "q" && !m.typing()) {
			m.cancel()
			return m, tea.Quit
		}
	case appExitedMsg:
		m.appDone = true
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.exitErr = msg.err
		}
	}

	switch m.mode {
	case Client:
		return m.updateClient(msg)
	case Server:
		return m.updateServer(msg)
	}
	return m, nil
}

// typing reports whether key presses belong to a text field.
func (m model) typing() bool {
	return m.mode == Client && m.client.state == promptingParams
}

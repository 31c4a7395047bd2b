package client

import (
	"context"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	appevents "github.com/NoaS100/NetworkSpeedTest/internal/app_events"
	clientevents "github.com/NoaS100/NetworkSpeedTest/internal/app_events/client"
	"github.com/NoaS100/NetworkSpeedTest/pkg/config"
	"github.com/NoaS100/NetworkSpeedTest/pkg/discovery"
)

// App is the main application logic controller for the client.
type App struct {
	engine     *Engine
	params     config.ClientParams
	prompt     bool
	uiMessages chan tea.Msg            // App -> TUI
	appEvents  chan appevents.AppEvent // TUI -> App
}

// NewApp creates a client app. With prompt set, invalid or missing params are
// requested from the UI instead of failing.
func NewApp(cfg *config.Config, listener discovery.Listener, params config.ClientParams, prompt bool) (*App, error) {
	engine, err := New(cfg, listener)
	if err != nil {
		return nil, err
	}
	return &App{
		engine:     engine,
		params:     params,
		prompt:     prompt,
		uiMessages: make(chan tea.Msg, 10),
		appEvents:  make(chan appevents.AppEvent),
	}, nil
}

// UIMessages returns the channel for the UI to listen on for updates.
func (a *App) UIMessages() <-chan tea.Msg {
	return a.uiMessages
}

// AppEvents returns a write-only channel for the TUI to send events to the app.
func (a *App) AppEvents() chan<- appevents.AppEvent {
	return a.appEvents
}

// Run collects parameters if needed and runs rounds until they are done or
// ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	params, err := a.resolveParams(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		a.sendAndLogError(ctx, "Invalid parameters", err)
		return err
	}
	a.params = params

	hooks := Hooks{
		OnState: func(s State) {
			a.send(ctx, clientevents.StateChangedMsg{State: s.String()})
		},
		OnOffer: func(o discovery.Offer) {
			a.send(ctx, clientevents.OfferReceivedMsg{Offer: o})
		},
		OnRoundStart: func(n int, id string) {
			a.send(ctx, clientevents.RoundStartedMsg{Round: n, ID: id, Params: params})
		},
		OnRound: func(r *Round) {
			a.send(ctx, clientevents.RoundCompleteMsg{
				Round:     r.Number,
				ID:        r.ID,
				Results:   r.Results,
				Summaries: r.Summaries,
			})
		},
	}

	if err := a.engine.Run(ctx, params, hooks); err != nil {
		a.sendAndLogError(ctx, "Client stopped", err)
		return err
	}
	a.send(ctx, clientevents.FinishedMsg{})
	return nil
}

// resolveParams returns valid parameters, asking the UI until it supplies
// them when prompting is enabled.
func (a *App) resolveParams(ctx context.Context) (config.ClientParams, error) {
	params := a.params
	err := params.Validate()
	if err == nil || !a.prompt {
		return params, err
	}

	for {
		a.send(ctx, clientevents.NeedParamsMsg{Params: params})
		select {
		case <-ctx.Done():
			return params, ctx.Err()
		case event := <-a.appEvents:
			e, ok := event.(clientevents.ParamsSubmittedMsg)
			if !ok {
				continue
			}
			params = e.Params
			if err := params.Validate(); err != nil {
				slog.Warn("Rejected parameters", "error", err)
				a.send(ctx, appevents.Error{Err: err})
				continue
			}
			return params, nil
		}
	}
}

func (a *App) send(ctx context.Context, msg tea.Msg) {
	select {
	case a.uiMessages <- msg:
	case <-ctx.Done():
	}
}

// sendAndLogError is a helper function to both log an error and send it to the UI.
func (a *App) sendAndLogError(ctx context.Context, baseMessage string, err error) {
	slog.Error(baseMessage, "error", err)
	a.send(ctx, appevents.Error{Err: fmt.Errorf("%s: %w", baseMessage, err)})
}

package client

import (
	appevents "github.com/NoaS100/NetworkSpeedTest/internal/app_events"
	"github.com/NoaS100/NetworkSpeedTest/pkg/config"
	"github.com/NoaS100/NetworkSpeedTest/pkg/discovery"
	"github.com/NoaS100/NetworkSpeedTest/pkg/stats"
)

// --- App Events (from TUI to App) ---

// ParamsSubmittedMsg carries the parameters the user typed into the prompt.
type ParamsSubmittedMsg struct {
	appevents.Event
	Params config.ClientParams
}

var _ appevents.AppEvent = (*ParamsSubmittedMsg)(nil)

// --- UI Messages (from App to TUI) ---

// NeedParamsMsg asks the TUI to prompt for missing parameters.
type NeedParamsMsg struct {
	Params config.ClientParams
}

type StateChangedMsg struct {
	State string
}

type OfferReceivedMsg struct {
	Offer discovery.Offer
}

type RoundStartedMsg struct {
	Round  int
	ID     string
	Params config.ClientParams
}

type RoundCompleteMsg struct {
	Round     int
	ID        string
	Results   []stats.Result
	Summaries []stats.Summary
}

// FinishedMsg is sent once the configured number of rounds has run.
type FinishedMsg struct{}

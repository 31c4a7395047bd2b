package client

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appevents "github.com/NoaS100/NetworkSpeedTest/internal/app_events"
	clientevents "github.com/NoaS100/NetworkSpeedTest/internal/app_events/client"
	"github.com/NoaS100/NetworkSpeedTest/pkg/config"
	"github.com/NoaS100/NetworkSpeedTest/pkg/discovery"
	"github.com/NoaS100/NetworkSpeedTest/pkg/protocol"
)

func nextMsg(t *testing.T, msgs <-chan tea.Msg) tea.Msg {
	t.Helper()
	select {
	case msg := <-msgs:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("no message from app")
		return nil
	}
}

// waitFor skips messages until one of type T arrives.
func waitFor[T any](t *testing.T, msgs <-chan tea.Msg) T {
	t.Helper()
	for {
		if m, ok := nextMsg(t, msgs).(T); ok {
			return m
		}
	}
}

func TestApp_PromptsForMissingParams(t *testing.T) {
	port := fakeUDPServer(t, func(protocol.Request) []protocol.Payload {
		return payloads(1, func(uint64) bool { return true })
	})
	listener := &staticListener{offer: discovery.Offer{Addr: loopback, UDPPort: port}}
	app, err := NewApp(testConfig(), listener, config.ClientParams{}, true)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()

	waitFor[clientevents.NeedParamsMsg](t, app.UIMessages())

	// Invalid input is rejected and asked for again.
	app.AppEvents() <- clientevents.ParamsSubmittedMsg{Params: config.ClientParams{UDPConnections: 1}}
	errMsg := waitFor[appevents.Error](t, app.UIMessages())
	assert.ErrorIs(t, errMsg.Err, config.ErrInvalidFileSize)
	waitFor[clientevents.NeedParamsMsg](t, app.UIMessages())

	app.AppEvents() <- clientevents.ParamsSubmittedMsg{Params: config.ClientParams{FileSize: 100, UDPConnections: 1, Rounds: 1}}

	offer := waitFor[clientevents.OfferReceivedMsg](t, app.UIMessages())
	assert.Equal(t, port, offer.Offer.UDPPort)

	started := waitFor[clientevents.RoundStartedMsg](t, app.UIMessages())
	assert.Equal(t, 1, started.Round)

	complete := waitFor[clientevents.RoundCompleteMsg](t, app.UIMessages())
	assert.Equal(t, started.ID, complete.ID)
	require.Len(t, complete.Results, 1)
	require.Len(t, complete.Summaries, 1)

	waitFor[clientevents.FinishedMsg](t, app.UIMessages())
	assert.NoError(t, <-done)
}

func TestApp_InvalidParamsWithoutPromptFail(t *testing.T) {
	app, err := NewApp(testConfig(), &staticListener{}, config.ClientParams{FileSize: 10}, false)
	require.NoError(t, err)

	err = app.Run(context.Background())
	require.Error(t, err)

	msg := waitFor[appevents.Error](t, app.UIMessages())
	assert.ErrorContains(t, msg.Err, "Invalid parameters")
}

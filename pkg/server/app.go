package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	appevents "github.com/NoaS100/NetworkSpeedTest/internal/app_events"
	serverevents "github.com/NoaS100/NetworkSpeedTest/internal/app_events/server"
	"github.com/NoaS100/NetworkSpeedTest/internal/util"
	"github.com/NoaS100/NetworkSpeedTest/pkg/config"
	"github.com/NoaS100/NetworkSpeedTest/pkg/discovery"
)

const statsInterval = 500 * time.Millisecond

// App is the application controller for the server. It runs the engine and
// reports its state to the UI.
type App struct {
	server     *Server
	announcer  discovery.Announcer
	instance   string
	uiMessages chan tea.Msg // App -> TUI
}

// NewApp creates a server app. announcer may be nil when mDNS is disabled.
func NewApp(cfg *config.Config, announcer discovery.Announcer) (*App, error) {
	srv, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return &App{
		server:     srv,
		announcer:  announcer,
		instance:   instanceName(),
		uiMessages: make(chan tea.Msg, 10),
	}, nil
}

func instanceName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "speedtest"
	}
	return fmt.Sprintf("%s-%s", host, uuid.New().String()[:8])
}

// UIMessages returns the channel for the UI to listen on for updates.
func (a *App) UIMessages() <-chan tea.Msg {
	return a.uiMessages
}

// Server returns the underlying engine.
func (a *App) Server() *Server {
	return a.server
}

// Run binds the server, announces it and serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	defer a.send(ctx, serverevents.StoppedMsg{})

	if err := a.server.Listen(); err != nil {
		a.sendAndLogError(ctx, "Failed to start server", err)
		return err
	}
	a.send(ctx, serverevents.ListeningMsg{
		Instance: a.instance,
		Addr:     util.LocalIPv4(),
		TCPPort:  a.server.TCPPort(),
		UDPPort:  a.server.UDPPort(),
		MDNS:     a.announcer != nil,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.server.Serve(gctx); err != nil {
			a.sendAndLogError(ctx, "Server stopped", err)
			return err
		}
		return nil
	})

	if a.announcer != nil {
		g.Go(func() error {
			info := discovery.ServiceInfo{
				Name:    a.instance,
				Type:    discovery.DefaultServiceType,
				Domain:  discovery.DefaultDomain,
				UDPPort: a.server.UDPPort(),
				TCPPort: a.server.TCPPort(),
			}
			// Broadcast offers keep working without mDNS.
			if err := a.announcer.Announce(gctx, info); err != nil {
				slog.Warn("mDNS announcement failed", "error", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				a.trySend(statsMsg(a.server.Stats()))
			}
		}
	})

	return g.Wait()
}

func statsMsg(st Stats) serverevents.StatsMsg {
	return serverevents.StatsMsg{
		ActiveTCP:  st.ActiveTCP,
		ActiveUDP:  st.ActiveUDP,
		TCPServed:  st.TCPServed,
		UDPServed:  st.UDPServed,
		BytesSent:  st.BytesSent,
		OffersSent: st.OffersSent,
	}
}

func (a *App) send(ctx context.Context, msg tea.Msg) {
	select {
	case a.uiMessages <- msg:
	case <-ctx.Done():
		// The UI may be gone; never block shutdown on it.
		select {
		case a.uiMessages <- msg:
		default:
		}
	}
}

// trySend drops msg if the UI is behind. Stats are refreshed on the next tick.
func (a *App) trySend(msg tea.Msg) {
	select {
	case a.uiMessages <- msg:
	default:
	}
}

// sendAndLogError is a helper function to both log an error and send it to the UI.
func (a *App) sendAndLogError(ctx context.Context, baseMessage string, err error) {
	slog.Error(baseMessage, "error", err)
	a.send(ctx, appevents.Error{Err: fmt.Errorf("%s: %w", baseMessage, err)})
}

package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	appevents "github.com/NoaS100/NetworkSpeedTest/internal/app_events"
	clientEvent "github.com/NoaS100/NetworkSpeedTest/internal/app_events/client"
	serverEvent "github.com/NoaS100/NetworkSpeedTest/internal/app_events/server"
	"github.com/NoaS100/NetworkSpeedTest/internal/util"
)

// RunPlain runs app without a TUI and prints its progress to w as plain
// text lines. It returns once the controller's Run returns.
func RunPlain(ctx context.Context, app AppController, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	p := &plainPrinter{w: w}
	for {
		select {
		case msg := <-app.UIMessages():
			p.handle(msg)
		case err := <-done:
			// Print whatever was queued before Run returned.
			for {
				select {
				case msg := <-app.UIMessages():
					p.handle(msg)
				default:
					return err
				}
			}
		}
	}
}

type plainPrinter struct {
	w         io.Writer
	lastStats serverEvent.StatsMsg
}

func (p *plainPrinter) println(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *plainPrinter) handle(msg tea.Msg) {
	switch msg := msg.(type) {
	case clientEvent.StateChangedMsg:
		if msg.State == "listening" {
			p.println("Client started, listening for offer requests...")
		}
	case clientEvent.OfferReceivedMsg:
		p.println("Received offer from %s (UDP port %d, TCP port %d)",
			msg.Offer.Addr, msg.Offer.UDPPort, msg.Offer.TCPPort)
	case clientEvent.RoundStartedMsg:
		p.println("Round %d: requesting %s over %d UDP and %d TCP connection(s)",
			msg.Round, util.FormatSize(msg.Params.FileSize), msg.Params.UDPConnections, msg.Params.TCPConnections)
	case clientEvent.RoundCompleteMsg:
		rows := [][]string{reportHeader}
		for _, r := range msg.Results {
			p.println("%s", resultSentence(r))
			rows = append(rows, resultRow(r))
		}
		p.println("")
		p.println("%s", strings.Join(util.Columns(rows, 1, 2, 3, 4), "\n"))
		for _, s := range msg.Summaries {
			p.println("%s", summaryLine(s))
		}
		p.println("All transfers complete, listening to offer requests")
	case clientEvent.FinishedMsg:
		p.println("Done.")
	case serverEvent.ListeningMsg:
		p.println("Server %s started, listening on %s (TCP port %d, UDP port %d)", msg.Instance, hostLabel(msg.Addr), msg.TCPPort, msg.UDPPort)
	case serverEvent.StatsMsg:
		// Only report when something finished.
		if msg.TCPServed == p.lastStats.TCPServed && msg.UDPServed == p.lastStats.UDPServed {
			return
		}
		p.lastStats = msg
		p.println("Served %d TCP and %d UDP transfer(s), %s sent",
			msg.TCPServed, msg.UDPServed, util.FormatSize(msg.BytesSent))
	case serverEvent.StoppedMsg:
		p.println("Server stopped")
	case appevents.Error:
		p.println("Error: %v", msg.Err)
	}
}

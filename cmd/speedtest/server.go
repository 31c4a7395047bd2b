package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/NoaS100/NetworkSpeedTest/pkg/config"
	"github.com/NoaS100/NetworkSpeedTest/pkg/discovery"
	"github.com/NoaS100/NetworkSpeedTest/pkg/server"
	"github.com/NoaS100/NetworkSpeedTest/pkg/ui"
)

func newServerCmd(opts *rootOptions) *cobra.Command {
	var (
		tcpPort, udpPort, broadcastPort, segmentSize int
		broadcastAddr                                string
		interval                                     time.Duration
		mdns                                         bool
	)

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Serve speed test requests and broadcast offers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.envFile)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("tcp-port") {
				cfg.TCPPort = tcpPort
			}
			if flags.Changed("udp-port") {
				cfg.UDPPort = udpPort
			}
			if flags.Changed("broadcast-port") {
				cfg.BroadcastPort = broadcastPort
			}
			if flags.Changed("broadcast-addr") {
				cfg.BroadcastAddr = broadcastAddr
			}
			if flags.Changed("interval") {
				cfg.BroadcastInterval = interval
			}
			if flags.Changed("segment-size") {
				cfg.SegmentPayloadSize = segmentSize
			}
			if flags.Changed("mdns") {
				cfg.MDNS = mdns
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logCloser, err := setupLogging(opts)
			if err != nil {
				return err
			}
			defer closeLog(logCloser)

			var announcer discovery.Announcer
			if cfg.MDNS {
				announcer = discovery.NewMDNSAdapter()
			}
			app, err := server.NewApp(cfg, announcer)
			if err != nil {
				return err
			}

			if opts.plain {
				return ui.RunPlain(cmd.Context(), app, cmd.OutOrStdout())
			}
			return ui.Run(cmd.Context(), ui.Server, app, config.ClientParams{})
		},
	}

	f := cmd.Flags()
	f.IntVar(&tcpPort, "tcp-port", 0, "TCP service port (0 picks a free port)")
	f.IntVar(&udpPort, "udp-port", 0, "UDP service port (0 picks a free port)")
	f.IntVar(&broadcastPort, "broadcast-port", config.DefaultBroadcastPort, "Port offers are broadcast to")
	f.StringVar(&broadcastAddr, "broadcast-addr", config.DefaultBroadcastAddr, "Address offers are broadcast to")
	f.DurationVar(&interval, "interval", time.Second, "Time between offers")
	f.IntVar(&segmentSize, "segment-size", config.DefaultSegmentPayloadSize, "Payload bytes per UDP segment")
	f.BoolVar(&mdns, "mdns", false, "Also announce the server over mDNS")
	return cmd
}

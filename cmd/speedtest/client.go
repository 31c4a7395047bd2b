package main

import (
	"github.com/spf13/cobra"

	"github.com/NoaS100/NetworkSpeedTest/internal/util"
	"github.com/NoaS100/NetworkSpeedTest/pkg/client"
	"github.com/NoaS100/NetworkSpeedTest/pkg/config"
	"github.com/NoaS100/NetworkSpeedTest/pkg/discovery"
	"github.com/NoaS100/NetworkSpeedTest/pkg/ui"
)

func newClientCmd(opts *rootOptions) *cobra.Command {
	var (
		fileSize      string
		udp, tcp      uint32
		rounds        int
		broadcastPort int
		maxConcurrent int
		mode          string
	)

	cmd := &cobra.Command{
		Use:   "client",
		Short: "Discover a server and measure throughput",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.envFile)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("broadcast-port") {
				cfg.BroadcastPort = broadcastPort
			}
			if flags.Changed("discovery") {
				cfg.Discovery = config.DiscoveryMode(mode)
			}
			if flags.Changed("max-concurrent") {
				cfg.MaxConcurrentTransfers = maxConcurrent
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			params := config.ClientParams{UDPConnections: udp, TCPConnections: tcp, Rounds: rounds}
			if fileSize != "" {
				if params.FileSize, err = util.ParseSize(fileSize); err != nil {
					return err
				}
			}
			// The TUI asks for anything missing; plain mode cannot.
			if opts.plain {
				if err := params.Validate(); err != nil {
					return err
				}
			}

			logCloser, err := setupLogging(opts)
			if err != nil {
				return err
			}
			defer closeLog(logCloser)

			var listener discovery.Listener
			switch cfg.Discovery {
			case config.DiscoveryMDNS:
				listener = discovery.NewMDNSAdapter()
			default:
				listener = discovery.NewBroadcastListener(cfg.BroadcastPort)
			}

			app, err := client.NewApp(cfg, listener, params, !opts.plain)
			if err != nil {
				return err
			}

			if opts.plain {
				return ui.RunPlain(cmd.Context(), app, cmd.OutOrStdout())
			}
			return ui.Run(cmd.Context(), ui.Client, app, params)
		},
	}

	f := cmd.Flags()
	f.StringVar(&fileSize, "file-size", "", "Bytes to request per connection, e.g. 1000000 or 10MB")
	f.Uint32Var(&udp, "udp", 0, "Number of parallel UDP connections")
	f.Uint32Var(&tcp, "tcp", 0, "Number of parallel TCP connections")
	f.IntVar(&rounds, "rounds", 0, "Rounds to run before exiting (0 runs until interrupted)")
	f.IntVar(&broadcastPort, "broadcast-port", config.DefaultBroadcastPort, "Port to listen for offers on")
	f.IntVar(&maxConcurrent, "max-concurrent", 0, "Limit on simultaneous transfers (0 means no limit)")
	f.StringVar(&mode, "discovery", string(config.DiscoveryBroadcast), "Discovery mode: broadcast or mdns")
	return cmd
}

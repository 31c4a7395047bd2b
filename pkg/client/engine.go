package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/NoaS100/NetworkSpeedTest/pkg/concurrency"
	"github.com/NoaS100/NetworkSpeedTest/pkg/config"
	"github.com/NoaS100/NetworkSpeedTest/pkg/discovery"
	"github.com/NoaS100/NetworkSpeedTest/pkg/stats"
)

// ErrShortTransfer marks a TCP stream that ended before the requested size.
var ErrShortTransfer = errors.New("stream ended before the requested size")

// Round is the outcome of one measurement round.
type Round struct {
	Number  int
	ID      string
	Offer   discovery.Offer
	Params  config.ClientParams
	Elapsed time.Duration

	// Records and Results are in launch order: UDP tasks first, then TCP.
	Records   []stats.TransferRecord
	Results   []stats.Result
	Summaries []stats.Summary
}

// Hooks are optional callbacks for progress reporting. They run on the
// goroutine driving Run and must not block for long.
type Hooks struct {
	OnState      func(State)
	OnOffer      func(discovery.Offer)
	OnRoundStart func(number int, id string)
	OnRound      func(*Round)
}

// Engine runs measurement rounds against servers found by its listener.
type Engine struct {
	cfg      *config.Config
	listener discovery.Listener
	guard    *concurrency.ConcurrencyGuard
	state    atomic.Int32
	hooks    atomic.Pointer[Hooks]
}

// New creates a client engine that discovers servers through listener.
func New(cfg *config.Config, listener discovery.Listener) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &Engine{
		cfg:      cfg,
		listener: listener,
		guard:    concurrency.NewConcurrencyGuard(),
	}, nil
}

// State returns the engine's current state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	if State(e.state.Swap(int32(s))) == s {
		return
	}
	slog.Debug("Client state changed", "state", s)
	if h := e.hooks.Load(); h != nil && h.OnState != nil {
		h.OnState(s)
	}
}

// WaitForOffer blocks until the listener yields a server offer.
func (e *Engine) WaitForOffer(ctx context.Context) (discovery.Offer, error) {
	if e.listener == nil {
		return discovery.Offer{}, errors.New("no discovery listener configured")
	}
	e.setState(StateListening)
	offer, err := e.listener.WaitForOffer(ctx)
	if err != nil {
		return discovery.Offer{}, err
	}
	slog.Info("Received offer", "server", offer.Addr, "udp_port", offer.UDPPort,
		"tcp_port", offer.TCPPort, "source", offer.Source, "interface", offer.Interface)
	return offer, nil
}

// RunRound launches params.UDPConnections UDP tasks followed by
// params.TCPConnections TCP tasks against offer and waits for all of them.
// Failed tasks are reported, never retried, and never cancel their siblings.
// A second call while a round is running returns concurrency.ErrBusy.
func (e *Engine) RunRound(ctx context.Context, offer discovery.Offer, params config.ClientParams) (*Round, error) {
	return e.guardedRound(ctx, 0, offer, params)
}

func (e *Engine) guardedRound(ctx context.Context, number int, offer discovery.Offer, params config.ClientParams) (*Round, error) {
	var round *Round
	err := e.guard.ExecuteWithContext(ctx, func(ctx context.Context) error {
		var err error
		round, err = e.runRound(ctx, number, offer, params)
		return err
	})
	return round, err
}

type task struct {
	slot  int
	index int
	proto stats.Protocol
}

func (e *Engine) runRound(ctx context.Context, number int, offer discovery.Offer, params config.ClientParams) (*Round, error) {
	round := &Round{
		Number: number,
		ID:     uuid.New().String(),
		Offer:  offer,
		Params: params,
	}
	log := slog.With("round_id", round.ID)

	tasks := make([]task, 0, params.Connections())
	for i := 0; i < int(params.UDPConnections); i++ {
		tasks = append(tasks, task{slot: len(tasks), index: i + 1, proto: stats.UDP})
	}
	for i := 0; i < int(params.TCPConnections); i++ {
		tasks = append(tasks, task{slot: len(tasks), index: i + 1, proto: stats.TCP})
	}

	e.setState(StateTransferring)
	if h := e.hooks.Load(); h != nil && h.OnRoundStart != nil {
		h.OnRoundStart(number, round.ID)
	}
	log.Info("Round started", "round", number, "server", offer.Addr, "file_size", params.FileSize,
		"udp", params.UDPConnections, "tcp", params.TCPConnections)

	collector := stats.NewCollector(len(tasks))
	// A plain group: one failing task must not cancel the others.
	var g errgroup.Group
	if e.cfg.MaxConcurrentTransfers > 0 {
		g.SetLimit(e.cfg.MaxConcurrentTransfers)
	}

	start := time.Now()
	for _, t := range tasks {
		g.Go(func() error {
			rec := e.runTask(ctx, offer, params.FileSize, t)
			if rec.Err != nil {
				log.Warn("Transfer failed", "protocol", t.proto, "index", t.index, "error", rec.Err)
			} else {
				log.Debug("Transfer finished", "protocol", t.proto, "index", t.index,
					"bytes", rec.BytesReceived, "elapsed", rec.Elapsed)
			}
			return collector.Record(t.slot, rec)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to collect round results: %w", err)
	}
	round.Elapsed = time.Since(start)

	e.setState(StateReporting)
	results, err := collector.Report()
	if err != nil {
		return nil, err
	}
	round.Records = collector.Records()
	round.Results = results
	round.Summaries = stats.Summarize(results)
	log.Info("Round complete", "elapsed", round.Elapsed, "transfers", len(results))
	return round, nil
}

func (e *Engine) runTask(ctx context.Context, offer discovery.Offer, fileSize uint64, t task) stats.TransferRecord {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.TransferTimeout)
	defer cancel()

	switch t.proto {
	case stats.UDP:
		return e.runUDP(ctx, offer, fileSize, t.index)
	default:
		return e.runTCP(ctx, offer, fileSize, t.index)
	}
}

// Run repeats listen, transfer and report until params.Rounds rounds have
// completed, or forever when Rounds is 0. Cancelling ctx ends the loop
// without an error.
func (e *Engine) Run(ctx context.Context, params config.ClientParams, hooks Hooks) error {
	if err := params.Validate(); err != nil {
		return err
	}
	e.hooks.Store(&hooks)
	defer e.hooks.Store(nil)
	defer e.setState(StateIdle)

	for n := 1; params.Rounds == 0 || n <= params.Rounds; n++ {
		offer, err := e.WaitForOffer(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("discovery failed: %w", err)
		}
		if hooks.OnOffer != nil {
			hooks.OnOffer(offer)
		}

		round, err := e.guardedRound(ctx, n, offer, params)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if hooks.OnRound != nil {
			hooks.OnRound(round)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
	return nil
}

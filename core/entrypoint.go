package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/encodeous/dvr/perf"
	"github.com/encodeous/dvr/state"
	"golang.org/x/sync/errgroup"
)

// Start runs the router against the relay server in cfg until it receives QUIT, and returns its forwarding table.
func Start(ctx context.Context, cfg state.RouterCfg, log *slog.Logger) (state.ForwardingTable, error) {
	return Run(ctx, cfg, log, TCPDialer(cfg.Host, cfg.Port))
}

// Run manages the lifetime of a router. The returned forwarding table reflects the last consistent routing state,
// even when an error is returned. A clean QUIT from the server returns a nil error.
func Run(ctx context.Context, cfg state.RouterCfg, log *slog.Logger, dial Dialer) (state.ForwardingTable, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(context.Canceled)

	log.Info("starting router", "id", cfg.Id, "relay", cfg.RelayAddr(), "interval", cfg.UpdateInterval())
	link, hello, err := Handshake(ctx, cfg.Id, dial, log)
	if err != nil {
		if errors.Is(err, ErrQuit) {
			log.Info("received quit during handshake")
			return state.ForwardingTable{}, nil
		}
		return state.ForwardingTable{}, err
	}
	defer link.Close()
	// unblocks the receiver once we stop
	stopClose := context.AfterFunc(ctx, func() {
		_ = link.Close()
	})
	defer stopClose()

	dispatch := make(chan func(s *state.State) error, state.DispatchBufferSize)
	s := &state.State{
		Env: &state.Env{
			DispatchChannel: dispatch,
			RouterCfg:       cfg,
			Context:         ctx,
			Cancel:          cancel,
			Log:             log,
		},
		RoutingState: &state.RoutingState{
			Id: cfg.Id,
		},
		Phase: state.PhaseUninitialized,
	}
	r := &DvRouter{State: s}
	defer register(s.Env)()

	err = HandlePacket(s, r, hello)
	if err != nil {
		return state.ForwardingTable{}, err
	}

	s.Broadcast = s.RepeatTask(func(s *state.State) error {
		return broadcastVector(s, link)
	}, state.BroadcastStartDelay, cfg.UpdateInterval())

	g := errgroup.Group{}
	g.Go(func() error {
		receivePackets(s.Env, r, link)
		return nil
	})

	MainLoop(s, dispatch)

	s.Phase = state.PhaseTerminated
	s.Broadcast.Stop()
	_ = link.Close()
	_ = g.Wait()

	minCost, nextHop := Snapshot(s.RoutingState)
	table, err := state.NewForwardingTable(minCost, nextHop)
	if err != nil {
		return state.ForwardingTable{}, err
	}
	cause := context.Cause(ctx)
	if errors.Is(cause, ErrQuit) {
		log.Info("router terminated normally")
		return table, nil
	}
	log.Warn("router terminated abnormally", "reason", cause)
	return table, cause
}

// MainLoop runs dispatched functions until the router is cancelled. It is the only goroutine that touches the
// routing state.
func MainLoop(s *state.State, dispatch <-chan func(*state.State) error) {
	s.Log.Debug("started main loop")
	for {
		select {
		case fun := <-dispatch:
			start := time.Now()
			err := fun(s)
			if err != nil {
				s.Log.Error("error occurred during dispatch", "error", err)
				s.Cancel(fmt.Errorf("%w: %w", ErrAbnormalShutdown, err))
			}
			elapsed := time.Since(start)
			perf.DispatchLatency.Add(float64(elapsed.Microseconds()))
			if elapsed > state.SlowDispatchThreshold {
				s.Log.Warn("dispatch took a long time!", "elapsed", elapsed)
			}
		case <-s.Context.Done():
			goto endLoop
		}
	}
endLoop:
	s.Log.Info("stopped main loop", "reason", context.Cause(s.Context).Error())
}

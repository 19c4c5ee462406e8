//go:build integration

package integration

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"runtime/pprof"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/encodeous/dvr/core"
	"github.com/encodeous/dvr/relay"
	"github.com/encodeous/dvr/state"
)

// VirtualHarness runs a relay and one router per row of Costs in this process, over loopback tcp
type VirtualHarness struct {
	Costs    [][]int
	Changes  []state.TopologyChange
	RunFor   time.Duration
	Interval time.Duration
	Level    slog.Level

	Relay  *relay.Relay
	Tables []state.ForwardingTable
	Errs   []error
}

// Run blocks until the relay has stopped every router
func (v *VirtualHarness) Run(ctx context.Context) error {
	logger, _, err := core.NewLogger("relay", v.Level, "")
	if err != nil {
		return err
	}
	r, err := relay.New(state.RelayCfg{
		Bind:     "127.0.0.1:0",
		Costs:    v.Costs,
		RunForMs: int(v.RunFor.Milliseconds()),
		Changes:  v.Changes,
	}, logger)
	if err != nil {
		return err
	}
	err = r.Listen()
	if err != nil {
		return err
	}
	v.Relay = r
	host, portStr, err := net.SplitHostPort(r.Addr().String())
	if err != nil {
		return err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return err
	}

	n := len(v.Costs)
	v.Tables = make([]state.ForwardingTable, n)
	v.Errs = make([]error, n)
	relayErr := make(chan error, 1)
	go func() {
		relayErr <- r.Serve(ctx)
	}()

	wg := sync.WaitGroup{}
	for id := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cfg := state.RouterCfg{
				Id:               id,
				Host:             host,
				Port:             uint16(port),
				UpdateIntervalMs: int(v.Interval.Milliseconds()),
			}
			rlog, _, err := core.NewLogger(fmt.Sprintf("r%d", id), v.Level, "")
			if err != nil {
				v.Errs[id] = err
				return
			}
			labels := pprof.Labels("dvr router", strconv.Itoa(id))
			pprof.Do(ctx, labels, func(ctx context.Context) {
				v.Tables[id], v.Errs[id] = core.Start(ctx, cfg, rlog)
			})
		}()
	}
	wg.Wait()
	return <-relayErr
}

// FloydWarshall computes the all-pairs shortest paths of a cost matrix, saturating at state.Infinity
func FloydWarshall(costs [][]int) [][]int {
	n := len(costs)
	dist := make([][]int, n)
	for i := range costs {
		dist[i] = slices.Clone(costs[i])
	}
	for k := range n {
		for i := range n {
			for j := range n {
				if c := core.AddCost(dist[i][k], dist[k][j]); c < dist[i][j] {
					dist[i][j] = c
				}
			}
		}
	}
	return dist
}

package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/encodeous/dvr/state"
	"github.com/google/go-cmp/cmp"
)

type HarnessEvent struct {
	Event RouterEvent
	Desc  string
	Args  []any
}

// RouterHarness records every event the routing algorithm reports
type RouterHarness struct {
	events []HarnessEvent
}

func (h *RouterHarness) Log(event RouterEvent, desc string, args ...any) {
	h.events = append(h.events, HarnessEvent{
		Event: event,
		Desc:  desc,
		Args:  args,
	})
}

type HarnessEvents []HarnessEvent

func (e HarnessEvents) String() string {
	out := make([]string, 0)
	for _, ev := range e {
		cur := ev.Event.String() + " " + ev.Desc
		for _, arg := range ev.Args {
			cur += " " + fmt.Sprint(arg)
		}
		out = append(out, cur)
	}
	slices.Sort(out)
	return strings.Join(out, "\n")
}

// GetEvents returns the recorded events and clears the harness
func (h *RouterHarness) GetEvents() HarnessEvents {
	x := h.events
	h.events = make([]HarnessEvent, 0)
	return x
}

func (e HarnessEvents) count(event RouterEvent) int {
	n := 0
	for _, ev := range e {
		if ev.Event == event {
			n++
		}
	}
	return n
}

// contains matches events whose args start with the given key-value pairs
func (e HarnessEvents) contains(event RouterEvent, args ...any) bool {
	for _, ev := range e {
		if ev.Event != event || len(ev.Args) < len(args) {
			continue
		}
		match := true
		for i, arg := range args {
			if !cmp.Equal(ev.Args[i], arg) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func (e HarnessEvents) AssertContains(t *testing.T, event RouterEvent, args ...any) {
	t.Helper()
	if e.contains(event, args...) {
		return
	}
	t.Fatal("Expected event not found: ", event, " with args: ", args, " in ", e)
}

func (e HarnessEvents) AssertNotContains(t *testing.T, event RouterEvent, args ...any) {
	t.Helper()
	if e.contains(event, args...) {
		t.Fatal("Unexpected event found: ", event, " with args: ", args, " in ", e)
	}
}

func newRoutingState(t *testing.T, h *RouterHarness, id int, linkCost []int) *state.RoutingState {
	t.Helper()
	rs := &state.RoutingState{Id: id}
	if err := InitTopology(rs, h, linkCost); err != nil {
		t.Fatalf("InitTopology: %v", err)
	}
	return rs
}

// newTestState builds a router state that is not attached to a main loop. Dispatched functions land in the
// returned channel.
func newTestState(id int) (*state.State, chan func(*state.State) error) {
	ctx, cancel := context.WithCancelCause(context.Background())
	dispatch := make(chan func(*state.State) error, 16)
	s := &state.State{
		Env: &state.Env{
			DispatchChannel: dispatch,
			RouterCfg:       state.DefaultRouterCfg(),
			Context:         ctx,
			Cancel:          cancel,
			Log:             slog.New(slog.NewTextHandler(io.Discard, nil)),
		},
		RoutingState: &state.RoutingState{Id: id},
		Phase:        state.PhaseUninitialized,
	}
	s.RouterCfg.Id = id
	return s, dispatch
}

// floydWarshall computes the all-pairs shortest paths of a cost matrix, saturating at state.Infinity
func floydWarshall(costs [][]int) [][]int {
	n := len(costs)
	dist := make([][]int, n)
	for i := range costs {
		dist[i] = slices.Clone(costs[i])
	}
	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if c := AddCost(dist[i][k], dist[k][j]); c < dist[i][j] {
					dist[i][j] = c
				}
			}
		}
	}
	return dist
}

//go:build integration

package integration

import (
	"log/slog"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/encodeous/dvr/core"
	"github.com/encodeous/dvr/state"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const inf = state.Infinity

func TestMain(m *testing.M) {
	state.BroadcastStartDelay = 50 * time.Millisecond
	state.HandshakeRetryDelay = 50 * time.Millisecond
	state.RelayQuitGrace = 500 * time.Millisecond
	m.Run()
}

// assertOptimal checks every forwarding table against the shortest paths of costs
func assertOptimal(t *testing.T, costs [][]int, vh *VirtualHarness) {
	t.Helper()
	want := FloydWarshall(costs)
	for id, table := range vh.Tables {
		require.NoError(t, vh.Errs[id], "router %d", id)
		if diff := cmp.Diff(want[id], table.MinCost()); diff != "" {
			t.Fatalf("router %d min costs differ (-want +got):\n%s\n%s", id, diff, table)
		}
		for d, nh := range table.NextHop() {
			switch {
			case d == id:
				assert.Equal(t, id, nh)
			case want[id][d] >= inf:
				assert.Equal(t, state.NoRoute, nh, "router %d to %d", id, d)
			default:
				require.NotEqual(t, state.NoRoute, nh, "router %d to %d", id, d)
				assert.Equal(t, want[id][d], core.AddCost(costs[id][nh], want[nh][d]), "router %d to %d via %d", id, d, nh)
			}
		}
	}
}

func TestStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)
	vh := &VirtualHarness{
		Costs: [][]int{
			{0, 1, inf},
			{1, 0, 1},
			{inf, 1, 0},
		},
		RunFor:   300 * time.Millisecond,
		Interval: 50 * time.Millisecond,
		Level:    slog.LevelInfo,
	}
	require.NoError(t, vh.Run(t.Context()))
	for id, err := range vh.Errs {
		assert.NoError(t, err, "router %d", id)
		assert.Equal(t, 3, vh.Tables[id].Len())
	}
}

func TestOptimalConvergence(t *testing.T) {
	defer goleak.VerifyNone(t)
	//	    1       1
	//	0 ----- 1 ----- 2
	//	 \_____________/ \ 1
	//	        7         3
	costs := [][]int{
		{0, 1, 7, inf},
		{1, 0, 1, inf},
		{7, 1, 0, 1},
		{inf, inf, 1, 0},
	}
	vh := &VirtualHarness{
		Costs:    costs,
		RunFor:   time.Second,
		Interval: 50 * time.Millisecond,
		Level:    slog.LevelInfo,
	}
	require.NoError(t, vh.Run(t.Context()))
	assertOptimal(t, costs, vh)
	assert.Equal(t, []int{0, 1, 2, 3}, vh.Tables[0].MinCost())
	assert.Equal(t, []int{0, 1, 1, 1}, vh.Tables[0].NextHop())
}

func TestPartitionedNetwork(t *testing.T) {
	defer goleak.VerifyNone(t)
	costs := [][]int{
		{0, 2, inf, inf},
		{2, 0, inf, inf},
		{inf, inf, 0, 3},
		{inf, inf, 3, 0},
	}
	vh := &VirtualHarness{
		Costs:    costs,
		RunFor:   500 * time.Millisecond,
		Interval: 50 * time.Millisecond,
		Level:    slog.LevelInfo,
	}
	require.NoError(t, vh.Run(t.Context()))
	assertOptimal(t, costs, vh)
}

// costs only ever go down, so the routers converge to the shortest paths of the new topology
func TestTopologyChange(t *testing.T) {
	defer goleak.VerifyNone(t)
	costs := [][]int{
		{0, 5, inf, inf},
		{5, 0, 5, inf},
		{inf, 5, 0, 5},
		{inf, inf, 5, 0},
	}
	vh := &VirtualHarness{
		Costs: costs,
		Changes: []state.TopologyChange{
			// a shortcut from 0 to 3
			{AfterMs: 400, Router: 0, Costs: []int{0, 5, inf, 1}},
		},
		RunFor:   1500 * time.Millisecond,
		Interval: 50 * time.Millisecond,
		Level:    slog.LevelInfo,
	}
	require.NoError(t, vh.Run(t.Context()))

	final := vh.Relay.Costs()
	assert.Equal(t, 1, final[3][0])
	assertOptimal(t, final, vh)
	assert.Equal(t, []int{0, 5, 6, 1}, vh.Tables[0].MinCost())
	assert.Equal(t, []int{0, 1, 3, 3}, vh.Tables[0].NextHop())
}

func TestRandomTopology(t *testing.T) {
	defer goleak.VerifyNone(t)
	rng := rand.New(rand.NewPCG(4, 41))
	n := 8
	costs := make([][]int, n)
	for i := range costs {
		costs[i] = slices.Repeat([]int{inf}, n)
		costs[i][i] = 0
	}
	// a ring keeps the network connected, chords add shortcuts
	for i := range n {
		j := (i + 1) % n
		c := 1 + rng.IntN(10)
		costs[i][j], costs[j][i] = c, c
	}
	for range n / 2 {
		i, j := rng.IntN(n), rng.IntN(n)
		if i != j {
			c := 1 + rng.IntN(10)
			costs[i][j], costs[j][i] = c, c
		}
	}

	vh := &VirtualHarness{
		Costs:    costs,
		RunFor:   2 * time.Second,
		Interval: 50 * time.Millisecond,
		Level:    slog.LevelWarn,
	}
	require.NoError(t, vh.Run(t.Context()))
	assertOptimal(t, costs, vh)
}

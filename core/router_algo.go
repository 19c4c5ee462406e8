package core

import (
	"fmt"
	"slices"

	"github.com/encodeous/dvr/state"
)

type RouterEvent int

// trace events

const (
	RouteImproved RouterEvent = iota
	TopologyReset
	VectorStored
	PacketIgnored
)

// warn events

const (
	PacketRejected RouterEvent = iota + 1000
)

func (e RouterEvent) String() string {
	switch e {
	case RouteImproved:
		return "RouteImproved"
	case TopologyReset:
		return "TopologyReset"
	case VectorStored:
		return "VectorStored"
	case PacketIgnored:
		return "PacketIgnored"
	case PacketRejected:
		return "PacketRejected"
	default:
		return fmt.Sprintf("RouterEvent(%d)", int(e))
	}
}

// Router is an interface that defines the underlying router operations
type Router interface {
	Log(event RouterEvent, desc string, args ...any)
}

// AddCost adds two costs, saturating at state.Infinity.
func AddCost(a, b int) int {
	if a >= state.Infinity || b >= state.Infinity {
		return state.Infinity
	}
	return min(state.Infinity, a+b)
}

func validateVector(vec []int) error {
	for d, cost := range vec {
		if cost < 0 || cost > state.Infinity {
			return fmt.Errorf("%w: cost[%d] = %d is not in [0, %d]", ErrInvalidVector, d, cost, state.Infinity)
		}
	}
	return nil
}

// checkLinkCost reports whether linkCost can bootstrap router id
func checkLinkCost(id int, linkCost []int) error {
	n := len(linkCost)
	if n == 0 {
		return fmt.Errorf("%w: empty link cost vector", ErrInvalidVector)
	}
	if id < 0 || id >= n {
		return fmt.Errorf("%w: router %d is not part of a topology of %d routers", ErrUnknownRouter, id, n)
	}
	return validateVector(linkCost)
}

// InitTopology resets the routing state from the link costs reported by the server. Any previous state is discarded.
func InitTopology(rs *state.RoutingState, r Router, linkCost []int) error {
	if err := checkLinkCost(rs.Id, linkCost); err != nil {
		return err
	}
	n := len(linkCost)

	rs.LinkCost = slices.Clone(linkCost)
	rs.DistanceVector = make([][]int, n)
	for i := range rs.DistanceVector {
		if i == rs.Id {
			rs.DistanceVector[i] = slices.Clone(linkCost)
		} else {
			rs.DistanceVector[i] = slices.Repeat([]int{state.Infinity}, n)
		}
	}
	rs.DistanceVector[rs.Id][rs.Id] = 0

	rs.NextHop = make([]int, n)
	for d, cost := range linkCost {
		switch {
		case d == rs.Id:
			rs.NextHop[d] = rs.Id
		case cost < state.Infinity:
			rs.NextHop[d] = d
		default:
			rs.NextHop[d] = state.NoRoute
		}
	}
	r.Log(TopologyReset, "topology initialized", "size", n, "linkcost", rs.LinkCost)
	return nil
}

// AbsorbNeighbourVector replaces everything we know about the neighbour with its latest advertised vector.
func AbsorbNeighbourVector(rs *state.RoutingState, r Router, neigh int, vec []int) error {
	if !rs.Initialized() {
		return ErrNotInitialized
	}
	if neigh < 0 || neigh >= rs.Size() || neigh == rs.Id {
		return fmt.Errorf("%w: %d", ErrUnknownRouter, neigh)
	}
	if len(vec) != rs.Size() {
		return fmt.Errorf("%w: got %d costs, expected %d", ErrTopologyMismatch, len(vec), rs.Size())
	}
	if err := validateVector(vec); err != nil {
		return err
	}
	rs.DistanceVector[neigh] = slices.Clone(vec)
	r.Log(VectorStored, "stored neighbour vector", "neigh", neigh, "vec", vec)
	return nil
}

// Relax runs a single Bellman-Ford pass over our own distance vector, using the vectors last advertised by every
// router we can reach. Costs only ever decrease. When several routers offer the same best cost, the one with the
// lowest id is kept.
func Relax(rs *state.RoutingState, r Router) {
	if !rs.Initialized() {
		return
	}
	n := rs.Size()
	own := rs.DistanceVector[rs.Id]
	for d := 0; d < n; d++ {
		if d == rs.Id {
			continue
		}
		best, via := state.Infinity, state.NoRoute
		for j := 0; j < n; j++ {
			if j == rs.Id || own[j] >= state.Infinity {
				continue
			}
			candidate := AddCost(own[j], rs.DistanceVector[j][d])
			if candidate < best {
				best, via = candidate, j
			}
		}
		if best < own[d] {
			r.Log(RouteImproved, "route improved", "dst", d, "old", own[d], "new", best, "via", via, "nh", rs.NextHop[via])
			own[d] = best
			rs.NextHop[d] = rs.NextHop[via]
		}
	}
}

// Snapshot returns copies of our minimum costs and next hops.
func Snapshot(rs *state.RoutingState) (minCost []int, nextHop []int) {
	if !rs.Initialized() {
		return []int{}, []int{}
	}
	return slices.Clone(rs.DistanceVector[rs.Id]), slices.Clone(rs.NextHop)
}

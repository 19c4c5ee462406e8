package state

import (
	"fmt"
	"strings"
)

// RoutingState is the distance-vector view of a single router. It must only be accessed by the goroutine running
// the main loop.
type RoutingState struct {
	Id int
	// LinkCost is the direct cost to every router, Infinity if not a neighbour
	LinkCost []int
	// DistanceVector[i][j] is the last known cost of router i to reach router j. Row Id is our own vector.
	DistanceVector [][]int
	// NextHop[d] is the neighbour to forward through to reach d, NoRoute if d is unreachable
	NextHop []int
}

// Size returns the number of routers in the topology, 0 if the topology is not known yet.
func (rs *RoutingState) Size() int {
	return len(rs.LinkCost)
}

func (rs *RoutingState) Initialized() bool {
	return rs.Size() != 0
}

// MinCost returns our own row of the distance vector matrix. The slice is shared with the state.
func (rs *RoutingState) MinCost() []int {
	if !rs.Initialized() {
		return nil
	}
	return rs.DistanceVector[rs.Id]
}

// Neighbours returns the ids of all routers we have a finite direct link to, in ascending order.
func (rs *RoutingState) Neighbours() []int {
	neighs := make([]int, 0)
	for id, cost := range rs.LinkCost {
		if id != rs.Id && cost < Infinity {
			neighs = append(neighs, id)
		}
	}
	return neighs
}

func (rs *RoutingState) String() string {
	if !rs.Initialized() {
		return fmt.Sprintf("router %d (uninitialized)", rs.Id)
	}
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("router %d\n", rs.Id))
	sb.WriteString(fmt.Sprintf("linkcost %v\n", rs.LinkCost))
	sb.WriteString(fmt.Sprintf("nexthop  %v\n", rs.NextHop))
	for i, row := range rs.DistanceVector {
		sb.WriteString(fmt.Sprintf("dv[%d]    %v\n", i, row))
	}
	return sb.String()
}

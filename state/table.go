package state

import (
	"fmt"
	"slices"
	"strings"
)

// ForwardingTable is the final output of a router, the minimum cost and next hop for every destination.
type ForwardingTable struct {
	minCost []int
	nextHop []int
}

type forwardingTableYaml struct {
	MinCost []int `yaml:"mincost"`
	NextHop []int `yaml:"nexthop"`
}

func NewForwardingTable(minCost, nextHop []int) (ForwardingTable, error) {
	if len(minCost) != len(nextHop) {
		return ForwardingTable{}, fmt.Errorf("forwarding table arrays have different lengths: len(mincost) = %d, len(nexthop) = %d", len(minCost), len(nextHop))
	}
	return ForwardingTable{
		minCost: slices.Clone(minCost),
		nextHop: slices.Clone(nextHop),
	}, nil
}

func (t ForwardingTable) MinCost() []int {
	return slices.Clone(t.minCost)
}

func (t ForwardingTable) NextHop() []int {
	return slices.Clone(t.nextHop)
}

func (t ForwardingTable) Len() int {
	return len(t.minCost)
}

func (t ForwardingTable) String() string {
	sb := strings.Builder{}
	sb.WriteString("-------------------------\n")
	for i := range t.minCost {
		sb.WriteString(fmt.Sprintf("  mincost[%d] = %d via %d\n", i, t.minCost[i], t.nextHop[i]))
	}
	sb.WriteString("-------------------------\n")
	return sb.String()
}

func (t ForwardingTable) MarshalYAML() (any, error) {
	return forwardingTableYaml{
		MinCost: t.minCost,
		NextHop: t.nextHop,
	}, nil
}

func (t *ForwardingTable) UnmarshalYAML(unmarshal func(any) error) error {
	var raw forwardingTableYaml
	if err := unmarshal(&raw); err != nil {
		return err
	}
	tbl, err := NewForwardingTable(raw.MinCost, raw.NextHop)
	if err != nil {
		return err
	}
	*t = tbl
	return nil
}

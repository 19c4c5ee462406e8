package protocol

import (
	"fmt"
	"slices"
)

type Type int

const (
	TypeHello Type = 1 // handshake between routers and the relay server
	TypeQuit  Type = 2 // signals termination to routers
	TypeRoute Type = 3 // regular routing update
)

func (t Type) String() string {
	switch t {
	case TypeHello:
		return "Hello"
	case TypeRoute:
		return "Route"
	case TypeQuit:
		return "Quit "
	default:
		return "Unknown"
	}
}

// Message is the body of a Packet, one of *Hello, *Route or *Quit.
type Message interface {
	Type() Type
	isMessage()
}

// Hello is sent by a router with no costs to request its link costs, and by the server in reply.
type Hello struct {
	Costs []int
}

// Route carries a cost vector, from a neighbour or as a topology change from the server.
type Route struct {
	Costs []int
}

type Quit struct{}

func (*Hello) Type() Type { return TypeHello }
func (*Route) Type() Type { return TypeRoute }
func (*Quit) Type() Type  { return TypeQuit }

func (*Hello) isMessage() {}
func (*Route) isMessage() {}
func (*Quit) isMessage()  {}

type Packet struct {
	Src int
	Dst int
	Msg Message
}

func NewHello(src, dst int, costs []int) Packet {
	return Packet{Src: src, Dst: dst, Msg: &Hello{Costs: slices.Clone(costs)}}
}

func NewRoute(src, dst int, costs []int) Packet {
	return Packet{Src: src, Dst: dst, Msg: &Route{Costs: slices.Clone(costs)}}
}

func NewQuit(src, dst int) Packet {
	return Packet{Src: src, Dst: dst, Msg: &Quit{}}
}

func (p Packet) Type() Type {
	if p.Msg == nil {
		return 0
	}
	return p.Msg.Type()
}

// Costs returns a copy of the cost vector carried by the packet, nil for packets without one.
func (p Packet) Costs() []int {
	switch msg := p.Msg.(type) {
	case *Hello:
		return slices.Clone(msg.Costs)
	case *Route:
		return slices.Clone(msg.Costs)
	}
	return nil
}

func (p Packet) String() string {
	costs := p.Costs()
	if costs == nil {
		costs = []int{}
	}
	return fmt.Sprintf("%s (%d->%d) %v", p.Type(), p.Src, p.Dst, costs)
}

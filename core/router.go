package core

import (
	"fmt"

	"github.com/encodeous/dvr/perf"
	"github.com/encodeous/dvr/protocol"
	"github.com/encodeous/dvr/state"
)

// DvRouter sends router events to the state's logger
type DvRouter struct {
	*state.State
}

func (r *DvRouter) Log(event RouterEvent, desc string, args ...any) {
	if event == RouteImproved {
		perf.RouteImprovements.Add(1)
	}
	if event >= PacketRejected {
		r.Env.Log.Warn(fmt.Sprintf("%s %s", event.String(), desc), args...)
		return
	}
	if state.DBG_log_router {
		r.Env.Log.Debug(fmt.Sprintf("%s %s", event.String(), desc), args...)
	}
}

// HandlePacket applies a received packet to the router state. Errors wrap ErrRejected, the state is unchanged when
// a packet is rejected.
func HandlePacket(s *state.State, r Router, pkt protocol.Packet) error {
	if s.Phase == state.PhaseTerminated {
		r.Log(PacketIgnored, "router terminated, discarding packet", "pkt", pkt)
		return nil
	}
	var err error
	if pkt.Src == state.ServerId {
		err = handleServerPacket(s, r, pkt)
	} else {
		err = handlePeerPacket(s, r, pkt)
	}
	if err != nil {
		r.Log(PacketRejected, "rejected packet", "pkt", pkt, "err", err)
		return fmt.Errorf("%w: %s: %w", ErrRejected, pkt, err)
	}
	return nil
}

func handleServerPacket(s *state.State, r Router, pkt protocol.Packet) error {
	switch msg := pkt.Msg.(type) {
	case *protocol.Hello:
		// bootstrap, or a full reset of a known topology
		err := InitTopology(s.RoutingState, r, msg.Costs)
		if err != nil {
			return err
		}
		s.Phase = state.PhaseActive
		if s.Broadcast != nil {
			s.Broadcast.Restart()
		}
	case *protocol.Route:
		// the server changed our link costs
		if !s.Initialized() {
			return ErrNotInitialized
		}
		if len(msg.Costs) != s.Size() {
			return fmt.Errorf("%w: got %d costs, expected %d", ErrTopologyMismatch, len(msg.Costs), s.Size())
		}
		err := InitTopology(s.RoutingState, r, msg.Costs)
		if err != nil {
			return err
		}
		if s.Broadcast != nil {
			s.Broadcast.Restart()
		}
	case *protocol.Quit:
		s.Phase = state.PhaseTerminated
		if s.Broadcast != nil {
			s.Broadcast.Cancel()
		}
		// stops the receiver and the main loop
		s.Cancel(ErrQuit)
	default:
		return fmt.Errorf("unknown message type %s", pkt.Type())
	}
	return nil
}

func handlePeerPacket(s *state.State, r Router, pkt protocol.Packet) error {
	msg, ok := pkt.Msg.(*protocol.Route)
	if !ok {
		r.Log(PacketIgnored, "ignoring non-route packet from peer", "pkt", pkt)
		return nil
	}
	err := AbsorbNeighbourVector(s.RoutingState, r, pkt.Src, msg.Costs)
	if err != nil {
		return err
	}
	Relax(s.RoutingState, r)
	return nil
}

package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/encodeous/dvr/perf"
	"github.com/encodeous/dvr/protocol"
	"github.com/encodeous/dvr/state"
)

// Transport moves packets between the router and the relay server. *protocol.Link implements it.
type Transport interface {
	WritePacket(p protocol.Packet) error
	ReadPacket() (protocol.Packet, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

var _ Transport = (*protocol.Link)(nil)

// Dialer opens a new transport to the relay server
type Dialer func(ctx context.Context) (Transport, error)

func TCPDialer(host string, port uint16) Dialer {
	return func(ctx context.Context) (Transport, error) {
		return protocol.DialRelay(ctx, host, port)
	}
}

// receivePackets feeds packets to the main loop until the environment is cancelled or the transport fails.
func receivePackets(e *state.Env, r Router, link Transport) {
	e.Log.Debug("receiver started")
	for {
		pkt, err := link.ReadPacket()
		if e.Context.Err() != nil {
			// shutdown was requested while we were blocked, whatever we read is discarded
			e.Log.Debug("receiver stopped")
			return
		}
		if err != nil {
			if errors.Is(err, protocol.ErrMalformed) {
				e.Log.Warn("dropped malformed packet", "err", err)
				perf.PacketsDropped.Add(1)
				continue
			}
			// queued behind the packets already dispatched, so a QUIT that arrived before the failure wins
			e.Dispatch(func(s *state.State) error {
				return fmt.Errorf("failed to receive packet: %w", err)
			})
			return
		}
		perf.PacketsReceived.Add(1)
		e.Dispatch(func(s *state.State) error {
			return handleInbound(s, r, pkt)
		})
	}
}

func handleInbound(s *state.State, r Router, pkt protocol.Packet) error {
	err := HandlePacket(s, r, pkt)
	if errors.Is(err, ErrRejected) {
		// the router keeps running as if the packet was never received
		perf.PacketsRejected.Add(1)
		return nil
	}
	return err
}

// broadcastVector sends our distance vector to every direct neighbour. A failed send does not stop the others.
func broadcastVector(s *state.State, link Transport) error {
	if s.Phase != state.PhaseActive {
		return nil
	}
	dbgPrintRoutingState(s)
	vec := s.MinCost()
	for _, neigh := range s.Neighbours() {
		err := link.WritePacket(protocol.NewRoute(s.Id, neigh, vec))
		if err != nil {
			s.Log.Warn("failed to send routing update", "to", neigh, "err", err)
			perf.SendFailures.Add(1)
			continue
		}
		perf.PacketsSent.Add(1)
	}
	return nil
}

package state

import "time"

const (
	// Infinity is the cost of a destination with no usable path.
	Infinity = 999
	// ServerId is the id reserved for the relay server.
	ServerId = 100
	// NoRoute is the next hop of an unreachable destination.
	NoRoute = -1
)

var (
	BroadcastStartDelay   = time.Second * 1
	DefaultUpdateInterval = time.Millisecond * 1000
	HandshakeTimeout      = time.Millisecond * 1500
	HandshakeRetryDelay   = time.Millisecond * 500
	DispatchBufferSize    = 128
	SlowDispatchThreshold = time.Millisecond * 50

	// relay
	RelayLivenessTTL   = time.Second * 5
	RelayStatusDelay   = time.Second * 5
	RelayQuitGrace     = time.Second * 1
	DefaultRelayRunFor = time.Second * 10

	// defaults of the router command line
	DefaultRelayHost        = "localhost"
	DefaultRelayPort uint16 = 2227
)

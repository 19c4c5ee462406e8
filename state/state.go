package state

import (
	"context"
	"log/slog"
)

type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseActive
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseActive:
		return "active"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// State access must be done only on a single Goroutine
type State struct {
	*Env
	*RoutingState
	Phase Phase
	// Broadcast is the periodic task advertising our distance vector to neighbours
	Broadcast *Task
}

// Env can be read from any Goroutine
type Env struct {
	DispatchChannel chan<- func(s *State) error
	RouterCfg
	Context context.Context
	Cancel  context.CancelCauseFunc
	Log     *slog.Logger
}

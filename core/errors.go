package core

import "errors"

var (
	// ErrRejected wraps every error caused by a packet that was dropped without changing the routing state
	ErrRejected = errors.New("packet rejected")

	ErrTopologyMismatch = errors.New("cost vector does not match the topology size")
	ErrNotInitialized   = errors.New("topology is not initialized")
	ErrUnknownRouter    = errors.New("unknown router")
	ErrInvalidVector    = errors.New("invalid cost vector")

	// ErrQuit is the cancellation cause of a router that received QUIT from the server
	ErrQuit = errors.New("received quit from server")
	// ErrAbnormalShutdown is the cancellation cause of a router that stopped for any reason other than QUIT
	ErrAbnormalShutdown = errors.New("abnormal shutdown")
)

package core

import (
	"context"
	"fmt"
	"time"

	"github.com/encodeous/dvr/state"
)

func dbgPrintRoutingState(s *state.State) {
	if !state.DBG_log_table || !s.Initialized() {
		return
	}
	s.Log.Debug("--- routing table ---")
	for d, cost := range s.MinCost() {
		s.Log.Debug(fmt.Sprintf("%d -> %d via %d", d, cost, s.NextHop[d]))
	}
}

// sleepCtx waits for d, returns false if the context was cancelled first
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

package core

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/encodeous/dvr/state"
)

var ErrNotRunning = errors.New("router is not running")

var (
	runningMu sync.Mutex
	running   = make(map[int]*state.Env)
)

func init() {
	http.HandleFunc("GET /debug/routers/{id}", inspectHandler)
}

// register makes a running router visible to Inspect until the returned func is called
func register(e *state.Env) func() {
	runningMu.Lock()
	defer runningMu.Unlock()
	running[e.Id] = e
	return func() {
		runningMu.Lock()
		defer runningMu.Unlock()
		if running[e.Id] == e {
			delete(running, e.Id)
		}
	}
}

// Inspect returns the current forwarding table of a router running in this process. The table is built by the
// router's main loop, so it is always a consistent view.
func Inspect(id int) (state.ForwardingTable, error) {
	runningMu.Lock()
	e, ok := running[id]
	runningMu.Unlock()
	if !ok {
		return state.ForwardingTable{}, fmt.Errorf("%w: %d", ErrNotRunning, id)
	}
	res, err := e.DispatchWait(func(s *state.State) (any, error) {
		minCost, nextHop := Snapshot(s.RoutingState)
		return state.NewForwardingTable(minCost, nextHop)
	})
	if err != nil {
		return state.ForwardingTable{}, err
	}
	return res.(state.ForwardingTable), nil
}

func inspectHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid router id", http.StatusBadRequest)
		return
	}
	table, err := Inspect(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	_, _ = fmt.Fprint(w, table.String())
}

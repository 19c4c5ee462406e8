package state

import (
	"context"
	"sync"
	"time"
)

// Dispatch Dispatches the function to run on the main thread without waiting for it to complete. The function is
// dropped if the environment is cancelled first.
func (e *Env) Dispatch(fun func(*State) error) {
	e.dispatchCtx(e.Context, fun)
}

func (e *Env) dispatchCtx(ctx context.Context, fun func(*State) error) bool {
	select {
	case e.DispatchChannel <- fun:
		return true
	case <-ctx.Done():
		return false
	}
}

// DispatchWait Dispatches the function to run on the main thread and wait for it to complete
func (e *Env) DispatchWait(fun func(*State) (any, error)) (any, error) {
	ret := make(chan Pair[any, error], 1)
	ok := e.dispatchCtx(e.Context, func(s *State) error {
		res, err := fun(s)
		ret <- Pair[any, error]{res, err}
		return err
	})
	if !ok {
		return nil, context.Cause(e.Context)
	}
	select {
	case res := <-ret:
		return res.V1, res.V2
	case <-e.Context.Done():
		return nil, context.Cause(e.Context)
	}
}

// Task is a function dispatched to the main thread at a fixed interval, until it is stopped or the environment is
// cancelled.
type Task struct {
	env      *Env
	fun      func(*State) error
	delay    time.Duration
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// RepeatTask runs fun after delay, then every interval.
func (e *Env) RepeatTask(fun func(*State) error, delay, interval time.Duration) *Task {
	t := &Task{
		env:      e,
		fun:      fun,
		delay:    delay,
		interval: interval,
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.start()
	return t
}

func (t *Task) start() {
	ctx, cancel := context.WithCancel(t.env.Context)
	t.cancel = cancel
	t.wg.Add(1)
	go t.run(ctx)
}

func (t *Task) run(ctx context.Context) {
	defer t.wg.Done()
	timer := time.NewTimer(t.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		if !t.env.dispatchCtx(ctx, t.fun) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Restart cancels the current schedule and starts a fresh one with the same delay and interval. It does not wait
// for the previous schedule to exit, so it is safe to call from the main thread.
func (t *Task) Restart() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancel()
	t.start()
}

// Cancel stops the task without waiting for its goroutine to exit.
func (t *Task) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancel()
}

// Stop cancels the task and waits for its goroutine to exit.
func (t *Task) Stop() {
	t.Cancel()
	t.wg.Wait()
}

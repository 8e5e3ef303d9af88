package vm

import (
	"golang.org/x/sync/errgroup"

	"github.com/fangguanya/koala-lang/object"
)

// Scheduler runs `go`-spawned routines to completion, one at a time, FIFO
// (spec.md §4.7: "cooperative single-threaded scheduling... picks a
// runnable routine, executes until its frame chain is empty, yields...
// reference implementation runs routines to completion FIFO; cancellation
// unsupported"). No two routines ever touch shared VM state (module
// registry, atom tables) concurrently — each errgroup.Group is given
// exactly one task and waited on before the next is started, so
// [errgroup.Group] here is error-aggregation/bookkeeping around strictly
// sequential execution, never a concurrency mechanism.
type Scheduler struct {
	state *State
	queue []func() error
}

// NewScheduler creates an empty Scheduler bound to state.
func NewScheduler(state *State) *Scheduler {
	return &Scheduler{state: state}
}

// Spawn enqueues a `go fn(args)` call to run once the currently-running
// routine (if any) yields. It does not start executing immediately —
// ordering is established by Run's FIFO drain.
func (s *Scheduler) Spawn(fn *object.KFunc, receiver object.Value, args []object.Value) {
	s.queue = append(s.queue, func() error {
		r := NewRoutine(s.state)
		_, err := r.Call(fn, receiver, args)
		return err
	})
}

// Run drains the queue, running each routine to completion before starting
// the next. Returns the first error encountered, after draining what was
// queued by routines that ran before the failure.
func (s *Scheduler) Run() error {
	var firstErr error
	for len(s.queue) > 0 {
		task := s.queue[0]
		s.queue = s.queue[1:]

		var g errgroup.Group
		g.Go(task)
		if err := g.Wait(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

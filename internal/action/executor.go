package action

import (
	"sync"
	"sync/atomic"
)

// Lane selects which of the three dispatch lanes runs a submission.
type Lane int

const (
	// LaneAuto: async actions, or any action submitted while the shared
	// pool has an outstanding job, go to the shared pool; otherwise inline.
	LaneAuto Lane = iota
	// LaneCurrent: always inline on the caller (event) thread.
	LaneCurrent
	// LaneOwn: always on a dedicated private-pool goroutine.
	LaneOwn
)

// pool is a single-worker FIFO job queue, used for the shared lane: exactly
// one goroutine drains it in submission order.
type pool struct {
	jobs chan func()
	wg   sync.WaitGroup
	once sync.Once
	stop chan struct{}

	outstanding atomic.Int32 // queued plus in-flight jobs
}

func newPool() *pool {
	p := &pool{jobs: make(chan func(), 256), stop: make(chan struct{})}
	go p.run()
	return p
}

func (p *pool) run() {
	for {
		select {
		case job := <-p.jobs:
			job()
			p.outstanding.Add(-1)
			p.wg.Done()
		case <-p.stop:
			return
		}
	}
}

func (p *pool) submit(job func()) {
	p.outstanding.Add(1)
	p.wg.Add(1)
	p.jobs <- job
}

// pending reports whether the pool currently has unstarted or in-flight
// work, used by LaneAuto to decide whether to enqueue instead of running
// inline.
func (p *pool) pending() bool {
	return p.outstanding.Load() > 0
}

func (p *pool) clear() {
	for {
		select {
		case <-p.jobs:
			p.outstanding.Add(-1)
			p.wg.Done()
		default:
			return
		}
	}
}

func (p *pool) wait() {
	p.wg.Wait()
}

// ownPool runs every submission on its own goroutine (unbounded
// concurrency), one dedicated thread per submission.
type ownPool struct {
	wg sync.WaitGroup
}

func (p *ownPool) submit(job func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		job()
	}()
}

func (p *ownPool) wait() { p.wg.Wait() }

// mergeState accumulates Args across Execute calls for one Mergeable action
// that arrive while an earlier call for the same action is still queued, so
// a burst of per-update Executes (e.g. from a fast Swipe) collapses into one
// payload run with a combined delta and call count, instead of one run per
// update.
type mergeState struct {
	mu   sync.Mutex
	args Args
}

// Executor dispatches Action.Execute calls across the three lanes while
// preserving per-lane submission order.
type Executor struct {
	shared *pool
	own    *ownPool

	mergeMu sync.Mutex
	merges  map[Action]*mergeState
}

func NewExecutor() *Executor {
	return &Executor{shared: newPool(), own: &ownPool{}, merges: make(map[Action]*mergeState)}
}

// Execute submits action for execution on the given lane. AboutToExecute is
// called synchronously, before the lane dispatch, so executions() reflects
// scheduling even for work that has not run yet.
//
// Mergeable actions are special-cased: if a run for the same action is
// already queued and hasn't started, this call's args are folded into it
// instead of submitting a second run.
func (e *Executor) Execute(a Action, lane Lane, args Args) {
	a.AboutToExecute()

	if a.Mergeable() {
		e.executeMerged(a, lane, args)
		return
	}

	run := func() { a.Execute(args) }

	switch lane {
	case LaneAuto:
		if a.Async() || e.shared.pending() {
			e.shared.submit(run)
			return
		}
		run()
	case LaneCurrent:
		run()
	case LaneOwn:
		e.own.submit(run)
	}
}

func (e *Executor) executeMerged(a Action, lane Lane, args Args) {
	e.mergeMu.Lock()
	if st, pending := e.merges[a]; pending {
		st.mu.Lock()
		st.args.Executions++
		st.args.DeltaX += args.DeltaX
		st.args.DeltaY += args.DeltaY
		st.mu.Unlock()
		e.mergeMu.Unlock()
		return
	}
	st := &mergeState{args: args}
	st.args.Executions = 1
	e.merges[a] = st
	e.mergeMu.Unlock()

	run := func() {
		st.mu.Lock()
		finalArgs := st.args
		st.mu.Unlock()
		e.mergeMu.Lock()
		delete(e.merges, a)
		e.mergeMu.Unlock()
		a.Execute(finalArgs)
	}

	switch lane {
	case LaneAuto:
		if a.Async() || e.shared.pending() {
			e.shared.submit(run)
			return
		}
		run()
	case LaneCurrent:
		run()
	case LaneOwn:
		e.own.submit(run)
	}
}

// ClearQueue drops pending (not yet started) jobs on the shared pool. The
// own pool keeps no queue: each of its submissions starts on its own
// goroutine at once, so there is nothing there to drop.
func (e *Executor) ClearQueue() {
	e.shared.clear()
}

// WaitForDone blocks until both pools have drained all submitted work.
func (e *Executor) WaitForDone() {
	e.shared.wait()
	e.own.wait()
}

// Stop releases the shared pool's worker goroutine. Used on daemon
// shutdown; not part of the original lifecycle but required so the process
// can exit cleanly.
func (e *Executor) Stop() {
	close(e.shared.stop)
}

package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

var ErrUnknownCycle = errors.New("no cycle registered for kind")

// Runner owns the cycles and is the only way to start one. Scheduled ticks
// and manual triggers both go through Trigger, so at most one cycle of a
// kind runs at a time: a trigger that arrives while a cycle of its kind is
// in flight waits for that cycle and receives its summary.
type Runner struct {
	ctx    context.Context
	cycles map[Kind]Cycle
	group  singleflight.Group
	wg     sync.WaitGroup
}

// NewRunner runs cycles on ctx. Cancelling ctx stops in-flight cycles after
// their current item.
func NewRunner(ctx context.Context, cycles ...Cycle) *Runner {
	r := &Runner{
		ctx:    ctx,
		cycles: make(map[Kind]Cycle, len(cycles)),
	}
	for _, cycle := range cycles {
		r.cycles[cycle.Kind()] = cycle
	}
	return r
}

func (r *Runner) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.cycles))
	for kind := range r.cycles {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func (r *Runner) Has(kind Kind) bool {
	_, ok := r.cycles[kind]
	return ok
}

// Trigger runs the cycle for kind, or joins the one already running. shared
// reports whether the result was delivered to more than one caller. ctx only
// bounds the wait; the cycle itself keeps running if ctx is cancelled.
func (r *Runner) Trigger(ctx context.Context, kind Kind) (summary *Summary, shared bool, err error) {
	cycle, ok := r.cycles[kind]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrUnknownCycle, kind)
	}

	// Each trigger stays counted until its cycle has delivered a result,
	// even when the caller stops waiting.
	r.wg.Add(1)
	ch := r.group.DoChan(string(kind), func() (any, error) {
		return r.run(cycle)
	})

	select {
	case res := <-ch:
		r.wg.Done()
		summary, _ = res.Val.(*Summary)
		return summary, res.Shared, res.Err
	case <-ctx.Done():
		go func() {
			<-ch
			r.wg.Done()
		}()
		return nil, false, ctx.Err()
	}
}

// Wait blocks until every triggered cycle has finished. Callers stop issuing
// triggers before calling it.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) run(cycle Cycle) (summary *Summary, err error) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("Cycle panicked", "kind", string(cycle.Kind()), "panic", p)
			err = fmt.Errorf("%s cycle panicked: %v", cycle.Kind(), p)
		}
	}()

	return cycle.Run(r.ctx)
}

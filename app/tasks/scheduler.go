package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

type JobFunc func(ctx context.Context) error

// Scheduler runs one recurring job per kind. Jobs of different kinds share
// nothing and may run concurrently.
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	entries map[Kind]cron.EntryID
	wg      sync.WaitGroup
}

func NewScheduler(ctx context.Context) *Scheduler {
	ctx, cancel := context.WithCancel(ctx)
	logger := cronLogger{}

	s := &Scheduler{
		cron:    cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger))),
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[Kind]cron.EntryID),
	}
	s.cron.Start()

	return s
}

// Schedule runs fn once right away and then every interval. Scheduling a
// kind again replaces its previous job.
func (s *Scheduler) Schedule(kind Kind, interval time.Duration, fn JobFunc) error {
	if interval <= 0 {
		return fmt.Errorf("invalid interval for %s: %s", kind, interval)
	}
	if s.ctx.Err() != nil {
		return fmt.Errorf("scheduler is closed")
	}

	job := cron.FuncJob(func() { s.execute(kind, fn) })

	s.mu.Lock()
	if id, ok := s.entries[kind]; ok {
		s.cron.Remove(id)
	}
	s.entries[kind] = s.cron.Schedule(everySchedule{interval: interval}, job)
	s.mu.Unlock()

	slog.Info("Job scheduled", "kind", string(kind), "interval", interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				slog.Error("Job panicked", "kind", string(kind), "panic", p)
			}
		}()
		s.execute(kind, fn)
	}()

	return nil
}

// Stop removes the job for kind. A run already in progress finishes.
func (s *Scheduler) Stop(kind Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[kind]; ok {
		s.cron.Remove(id)
		delete(s.entries, kind)
		slog.Info("Job stopped", "kind", string(kind))
	}
}

// Close removes every job, cancels the context handed to running jobs and
// waits for them to return.
func (s *Scheduler) Close() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
}

func (s *Scheduler) execute(kind Kind, fn JobFunc) {
	if s.ctx.Err() != nil {
		return
	}

	if err := fn(s.ctx); err != nil {
		slog.Error("Job failed", "kind", string(kind), "error", err)
	}
}

// everySchedule fires at a constant interval after each activation.
// cron.Every rounds to whole seconds; this does not.
type everySchedule struct {
	interval time.Duration
}

func (e everySchedule) Next(t time.Time) time.Time {
	return t.Add(e.interval)
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

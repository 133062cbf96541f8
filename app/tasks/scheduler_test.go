package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Condition not met within %v", timeout)
}

func TestScheduler_RunsImmediately(t *testing.T) {
	scheduler := NewScheduler(context.Background())
	defer scheduler.Close()

	var calls atomic.Int32
	err := scheduler.Schedule(KindFeed, time.Hour, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	waitFor(t, time.Second, func() bool { return calls.Load() == 1 })
}

func TestScheduler_Repeats(t *testing.T) {
	scheduler := NewScheduler(context.Background())
	defer scheduler.Close()

	var calls atomic.Int32
	err := scheduler.Schedule(KindFeed, 30*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	waitFor(t, time.Second, func() bool { return calls.Load() >= 3 })
}

func TestScheduler_SurvivesErrorsAndPanics(t *testing.T) {
	scheduler := NewScheduler(context.Background())
	defer scheduler.Close()

	var calls atomic.Int32
	err := scheduler.Schedule(KindMail, 20*time.Millisecond, func(ctx context.Context) error {
		switch calls.Add(1) {
		case 1:
			return errors.New("mailbox unavailable")
		case 2:
			panic("unexpected message shape")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	waitFor(t, time.Second, func() bool { return calls.Load() >= 4 })
}

func TestScheduler_StopRemovesJob(t *testing.T) {
	scheduler := NewScheduler(context.Background())
	defer scheduler.Close()

	var feedCalls, mailCalls atomic.Int32
	_ = scheduler.Schedule(KindFeed, 20*time.Millisecond, func(ctx context.Context) error {
		feedCalls.Add(1)
		return nil
	})
	_ = scheduler.Schedule(KindMail, 20*time.Millisecond, func(ctx context.Context) error {
		mailCalls.Add(1)
		return nil
	})

	waitFor(t, time.Second, func() bool { return feedCalls.Load() >= 2 })
	scheduler.Stop(KindFeed)
	time.Sleep(30 * time.Millisecond)
	stopped := feedCalls.Load()

	time.Sleep(100 * time.Millisecond)
	if feedCalls.Load() != stopped {
		t.Errorf("Expected no feed runs after Stop, got %d more", feedCalls.Load()-stopped)
	}

	before := mailCalls.Load()
	waitFor(t, time.Second, func() bool { return mailCalls.Load() > before })
}

func TestScheduler_RescheduleReplacesJob(t *testing.T) {
	scheduler := NewScheduler(context.Background())
	defer scheduler.Close()

	var first, second atomic.Int32
	_ = scheduler.Schedule(KindFeed, 20*time.Millisecond, func(ctx context.Context) error {
		first.Add(1)
		return nil
	})
	waitFor(t, time.Second, func() bool { return first.Load() >= 1 })

	_ = scheduler.Schedule(KindFeed, 20*time.Millisecond, func(ctx context.Context) error {
		second.Add(1)
		return nil
	})
	time.Sleep(30 * time.Millisecond)
	replaced := first.Load()

	waitFor(t, time.Second, func() bool { return second.Load() >= 3 })
	if first.Load() != replaced {
		t.Errorf("Expected replaced job to stop running")
	}
}

func TestScheduler_CloseCancelsAndWaits(t *testing.T) {
	scheduler := NewScheduler(context.Background())

	started := make(chan struct{})
	var finished atomic.Bool
	err := scheduler.Schedule(KindFeed, time.Hour, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	<-started
	scheduler.Close()

	if !finished.Load() {
		t.Error("Expected Close to wait for the running job")
	}
	if err := scheduler.Schedule(KindMail, time.Minute, func(context.Context) error { return nil }); err == nil {
		t.Error("Expected Schedule to fail after Close")
	}
}

func TestScheduler_RejectsInvalidInterval(t *testing.T) {
	scheduler := NewScheduler(context.Background())
	defer scheduler.Close()

	if err := scheduler.Schedule(KindFeed, 0, func(context.Context) error { return nil }); err == nil {
		t.Error("Expected error for zero interval")
	}
}

func TestEverySchedule(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	next := everySchedule{interval: 1500 * time.Millisecond}.Next(start)

	if !next.Equal(start.Add(1500 * time.Millisecond)) {
		t.Errorf("Expected sub-second precision, got %v", next)
	}
}

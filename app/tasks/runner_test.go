package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRunner_JoinsInFlightCycle(t *testing.T) {
	cycle := &stubCycle{kind: KindFeed, release: make(chan struct{}), started: make(chan struct{}, 1)}
	runner := NewRunner(context.Background(), cycle)

	var wg sync.WaitGroup
	summaries := make([]*Summary, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		summaries[0], _, _ = runner.Trigger(context.Background(), KindFeed)
	}()

	<-cycle.started

	wg.Add(1)
	go func() {
		defer wg.Done()
		summaries[1], _, _ = runner.Trigger(context.Background(), KindFeed)
	}()

	// Give the second trigger time to join before the cycle finishes.
	time.Sleep(50 * time.Millisecond)
	close(cycle.release)
	wg.Wait()

	if cycle.runCount() != 1 {
		t.Errorf("Expected a single cycle run, got %d", cycle.runCount())
	}
	if summaries[0] == nil || summaries[0] != summaries[1] {
		t.Errorf("Expected both callers to receive the same summary, got %p and %p", summaries[0], summaries[1])
	}
}

func TestRunner_KindsAreIndependent(t *testing.T) {
	feedCycle := &stubCycle{kind: KindFeed, release: make(chan struct{}), started: make(chan struct{}, 1)}
	mailCycle := &stubCycle{kind: KindMail}
	runner := NewRunner(context.Background(), feedCycle, mailCycle)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _, _ = runner.Trigger(context.Background(), KindFeed)
	}()
	<-feedCycle.started

	summary, shared, err := runner.Trigger(context.Background(), KindMail)
	if err != nil || summary == nil || shared {
		t.Errorf("Expected mail cycle to run while feed cycle is in flight, got %v %v %v", summary, shared, err)
	}

	close(feedCycle.release)
	<-done

	if kinds := runner.Kinds(); len(kinds) != 2 || kinds[0] != KindFeed || kinds[1] != KindMail {
		t.Errorf("Expected [feed mail], got %v", kinds)
	}
}

func TestRunner_SequentialTriggersRunAgain(t *testing.T) {
	cycle := &stubCycle{kind: KindMail}
	runner := NewRunner(context.Background(), cycle)

	for i := 0; i < 2; i++ {
		if _, _, err := runner.Trigger(context.Background(), KindMail); err != nil {
			t.Fatalf("Trigger failed: %v", err)
		}
	}
	if cycle.runCount() != 2 {
		t.Errorf("Expected 2 runs, got %d", cycle.runCount())
	}
}

func TestRunner_UnknownKind(t *testing.T) {
	runner := NewRunner(context.Background(), &stubCycle{kind: KindFeed})

	if _, _, err := runner.Trigger(context.Background(), KindMail); !errors.Is(err, ErrUnknownCycle) {
		t.Errorf("Expected ErrUnknownCycle, got %v", err)
	}
	if runner.Has(KindMail) {
		t.Error("Expected mail cycle to be absent")
	}
}

func TestRunner_PanicBecomesError(t *testing.T) {
	runner := NewRunner(context.Background(), &stubCycle{kind: KindFeed, panics: true})

	summary, _, err := runner.Trigger(context.Background(), KindFeed)
	if err == nil {
		t.Fatal("Expected error from panicking cycle")
	}
	if summary != nil {
		t.Errorf("Expected no summary, got %+v", summary)
	}
}

func TestRunner_CallerContextOnlyBoundsWait(t *testing.T) {
	cycle := &stubCycle{kind: KindFeed, release: make(chan struct{}), started: make(chan struct{}, 1)}
	runner := NewRunner(context.Background(), cycle)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, _, err := runner.Trigger(ctx, KindFeed)
		errCh <- err
	}()

	<-cycle.started
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}

	close(cycle.release)
	runner.Wait()

	if cycle.runCount() != 1 {
		t.Errorf("Expected the cycle to complete once, got %d", cycle.runCount())
	}
}

func TestRunner_WaitCoversAbandonedTrigger(t *testing.T) {
	cycle := &stubCycle{kind: KindFeed, release: make(chan struct{})}
	runner := NewRunner(context.Background(), cycle)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := runner.Trigger(ctx, KindFeed); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}

	waited := make(chan struct{})
	go func() {
		runner.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		t.Fatal("Expected Wait to block while the cycle is running")
	case <-time.After(50 * time.Millisecond):
	}

	close(cycle.release)

	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("Expected Wait to return after the cycle finished")
	}
	if cycle.runCount() != 1 {
		t.Errorf("Expected the cycle to run once, got %d", cycle.runCount())
	}
}

func TestParseKind(t *testing.T) {
	if kind, err := ParseKind("feed"); err != nil || kind != KindFeed {
		t.Errorf("Expected feed, got %v %v", kind, err)
	}
	if kind, err := ParseKind("mail"); err != nil || kind != KindMail {
		t.Errorf("Expected mail, got %v %v", kind, err)
	}
	if _, err := ParseKind("sms"); err == nil {
		t.Error("Expected error for unknown kind")
	}
}

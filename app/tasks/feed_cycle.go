package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type FeedCycle struct {
	sources FeedProvider
	fetcher FeedFetcher
	store   ItemWriter
	metrics *Metrics
	timeout time.Duration
	pause   time.Duration
}

// NewFeedCycle builds the feed cycle. After a feed is done the next one
// starts no sooner than pause later; a non-positive pause disables it.
func NewFeedCycle(sources FeedProvider, fetcher FeedFetcher, store ItemWriter, metrics *Metrics, timeout, pause time.Duration) *FeedCycle {
	return &FeedCycle{
		sources: sources,
		fetcher: fetcher,
		store:   store,
		metrics: metrics,
		timeout: timeout,
		pause:   pause,
	}
}

func (c *FeedCycle) Kind() Kind {
	return KindFeed
}

// Run fetches every configured feed in order and applies its entries to the
// store. A failing feed is recorded in the summary and the cycle moves on.
// The returned error is non-nil only when the cycle was cancelled or the
// store became unavailable; the summary is then partial.
func (c *FeedCycle) Run(ctx context.Context) (*Summary, error) {
	task := NewTask(KindFeed)
	summary := newSummary(task)
	defer c.finish(&task, summary)

	sources := c.sources.Feeds()
	if len(sources) == 0 {
		slog.Debug("No feeds configured")
		return summary, nil
	}

	slog.Debug("Feed cycle started", "run_id", task.ID, "feeds", len(sources))

	for i, source := range sources {
		wait := c.pause
		if i == 0 {
			wait = 0
		}
		if err := sleep(ctx, wait); err != nil {
			return summary, fmt.Errorf("feed cycle interrupted: %w", err)
		}

		result := summary.source(source.Name)

		candidates, err := c.fetcher.Fetch(ctx, source, c.timeout)
		if err != nil {
			if ctx.Err() != nil {
				delete(summary.Results, source.Name)
				return summary, fmt.Errorf("feed cycle interrupted: %w", ctx.Err())
			}
			result.Error = err.Error()
			c.metrics.sourceFailed(KindFeed)
			slog.Warn("Failed to fetch feed", "feed", source.Name, "url", source.URL, "error", err)
			continue
		}

		for _, candidate := range candidates {
			if err := ctx.Err(); err != nil {
				return summary, fmt.Errorf("feed cycle interrupted: %w", err)
			}
			if err := applyCandidate(ctx, c.store, c.metrics, KindFeed, result, candidate); err != nil {
				return summary, err
			}
		}

		slog.Debug("Feed processed",
			"feed", source.Name,
			"total", len(candidates),
			"new", result.New,
			"duplicates", result.Duplicates,
			"failed", result.Failed)
	}

	return summary, nil
}

func (c *FeedCycle) finish(task *Task, summary *Summary) {
	summary.Duration = task.GetDuration()
	c.metrics.cycleFinished(KindFeed, summary.Duration)
	logSummary("FeedCycle", summary)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func logSummary(taskType string, summary *Summary) {
	created, duplicates, failed := summary.Totals()

	slog.Info("Task completed",
		"type", taskType,
		"run_id", summary.RunID,
		"duration", summary.Duration,
		"sources", len(summary.Results),
		"failed_sources", len(summary.FailedSources()),
		"new", created,
		"duplicates", duplicates,
		"failed", failed)
}

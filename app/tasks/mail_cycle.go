package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/news-comb/app/database"
	"github.com/lysyi3m/news-comb/app/item"
	"github.com/lysyi3m/news-comb/app/mail"
	"github.com/lysyi3m/news-comb/app/normalize"
	"google.golang.org/api/gmail/v1"
)

type MailCycle struct {
	settings   MailSettingsProvider
	mailbox    mail.Mailbox
	store      ItemWriter
	normalizer *normalize.Normalizer
	metrics    *Metrics
	now        func() time.Time
}

func NewMailCycle(settings MailSettingsProvider, mailbox mail.Mailbox, store ItemWriter, normalizer *normalize.Normalizer, metrics *Metrics) *MailCycle {
	return &MailCycle{
		settings:   settings,
		mailbox:    mailbox,
		store:      store,
		normalizer: normalizer,
		metrics:    metrics,
		now:        time.Now,
	}
}

func (c *MailCycle) Kind() Kind {
	return KindMail
}

// Run searches the mailbox once and applies every matching message. All
// messages are counted under the single "email" source. A search failure
// fails that source; a single message that cannot be fetched is counted as
// failed and skipped.
func (c *MailCycle) Run(ctx context.Context) (*Summary, error) {
	task := NewTask(KindMail)
	summary := newSummary(task)
	defer c.finish(&task, summary)

	settings := c.settings.Mail()
	query := mail.Query{
		FetchAll: settings.FetchAll,
		Senders:  settings.Senders,
		DaysBack: settings.DaysBack,
	}.String()

	result := summary.source(item.MailSourceName)

	ids, err := c.mailbox.Search(ctx, query, settings.MaxResults)
	if err != nil {
		if ctx.Err() != nil {
			delete(summary.Results, item.MailSourceName)
			return summary, fmt.Errorf("mail cycle interrupted: %w", ctx.Err())
		}
		result.Error = err.Error()
		c.metrics.sourceFailed(KindMail)
		slog.Warn("Failed to search mailbox", "query", query, "error", err)
		return summary, nil
	}

	slog.Debug("Mailbox searched", "run_id", task.ID, "query", query, "messages", len(ids))

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("mail cycle interrupted: %w", err)
		}

		msg, err := c.mailbox.Fetch(context.WithoutCancel(ctx), id)
		if err != nil {
			result.Failed++
			c.metrics.itemApplied(KindMail, database.InsertFailed)
			slog.Warn("Failed to fetch message", "identity_key", item.MailIdentityKey(id), "error", err)
			continue
		}

		candidate := c.convert(msg, id)
		if candidate == nil {
			result.Failed++
			c.metrics.itemApplied(KindMail, database.InsertFailed)
			continue
		}

		slog.Debug("Message converted", "identity_key", candidate.IdentityKey, "sender", candidate.Sender, "title", candidate.Title)

		if err := applyCandidate(ctx, c.store, c.metrics, KindMail, result, *candidate); err != nil {
			return summary, err
		}
	}

	return summary, nil
}

// convert turns a fetched message into a candidate. A panic while walking
// an unexpected message shape is contained to that message.
func (c *MailCycle) convert(msg *gmail.Message, id string) (candidate *item.Candidate) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Failed to convert message", "identity_key", item.MailIdentityKey(id), "panic", r)
			candidate = nil
		}
	}()

	converted := mail.ToCandidate(msg, c.now(), c.normalizer)
	return &converted
}

func (c *MailCycle) finish(task *Task, summary *Summary) {
	summary.Duration = task.GetDuration()
	c.metrics.cycleFinished(KindMail, summary.Duration)
	logSummary("MailCycle", summary)
}

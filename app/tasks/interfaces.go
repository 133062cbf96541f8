package tasks

import (
	"context"
	"time"

	"github.com/lysyi3m/news-comb/app/database"
	"github.com/lysyi3m/news-comb/app/feed"
	"github.com/lysyi3m/news-comb/app/item"
)

// ItemWriter is the part of the store a cycle needs.
// Implemented by database.ItemStore.
type ItemWriter interface {
	Insert(ctx context.Context, candidate item.Candidate) (database.InsertResult, error)
}

// FeedProvider returns the current feed list. Implemented by
// feed.ConfigCache, which reloads the sources file when it changes.
type FeedProvider interface {
	Feeds() []feed.Source
}

type MailSettingsProvider interface {
	Mail() feed.MailSettings
}

type FeedFetcher interface {
	Fetch(ctx context.Context, source feed.Source, timeout time.Duration) ([]item.Candidate, error)
}

var (
	_ ItemWriter           = (*database.ItemStore)(nil)
	_ FeedProvider         = (*feed.ConfigCache)(nil)
	_ MailSettingsProvider = (*feed.ConfigCache)(nil)
	_ FeedFetcher          = (*feed.Fetcher)(nil)
)

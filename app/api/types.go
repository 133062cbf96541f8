package api

import (
	"context"

	"github.com/lysyi3m/news-comb/app/database"
	"github.com/lysyi3m/news-comb/app/feed"
	"github.com/lysyi3m/news-comb/app/tasks"
)

type GeneratorInterface interface {
	Run(channel feed.Channel, items []database.Item) (string, error)
}

type TriggerInterface interface {
	Trigger(ctx context.Context, kind tasks.Kind) (*tasks.Summary, bool, error)
	Has(kind tasks.Kind) bool
}

var (
	_ GeneratorInterface = (*feed.Generator)(nil)
	_ TriggerInterface   = (*tasks.Runner)(nil)
)

type Options struct {
	BaseUrl      string
	Version      string
	ExportItems  int
	MaxPageItems int
}

type Handler struct {
	itemRepo     database.ItemRepository
	generator    GeneratorInterface
	runner       TriggerInterface
	sources      tasks.FeedProvider
	channel      feed.Channel
	exportItems  int
	maxPageItems int
	version      string
}

type itemResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	IdentityKey string `json:"identity_key"`
	PublishedAt string `json:"published_at"`
	Body        string `json:"body,omitempty"`
	SourceName  string `json:"source_name"`
	CreatedAt   string `json:"created_at"`
}

package database

import (
	"context"
	"time"

	"github.com/lysyi3m/news-comb/app/item"
)

type ItemRepository interface {
	Insert(ctx context.Context, candidate item.Candidate) (InsertResult, error)

	ListBySourcesAndDateRange(ctx context.Context, sources []string, from, to *time.Time, limit int) ([]Item, error)
	DistinctSources(ctx context.Context) ([]string, error)
	Latest(ctx context.Context) (*Item, error)
	Count(ctx context.Context) (int, error)
	CountBySource(ctx context.Context) ([]SourceCount, error)
}

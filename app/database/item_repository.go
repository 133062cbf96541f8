package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lysyi3m/news-comb/app/item"
)

// Fixed width and always UTC, so text order in sqlite is chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var (
	// ErrStoreUnavailable means no transaction could be opened. It is the
	// only insert error that should abort an ingest cycle.
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrInvalidItem = errors.New("invalid item")
)

var _ ItemRepository = (*ItemStore)(nil)

type ItemStore struct {
	db  *DB
	now func() time.Time
}

func NewItemRepository(db *DB) *ItemStore {
	return &ItemStore{db: db, now: time.Now}
}

// Insert writes candidate in its own transaction. An identity key that is
// already stored yields Duplicate with a nil error.
func (r *ItemStore) Insert(ctx context.Context, candidate item.Candidate) (InsertResult, error) {
	if err := validateCandidate(candidate); err != nil {
		return InsertFailed, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return InsertFailed, fmt.Errorf("%w: failed to begin transaction: %v", ErrStoreUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO items (title, identity_key, published_at, body, source_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (identity_key) DO NOTHING
	`, candidate.Title, candidate.IdentityKey, formatTime(candidate.Published),
		candidate.Body, candidate.SourceName, formatTime(r.now()))
	if err != nil {
		return InsertFailed, fmt.Errorf("failed to insert item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return InsertFailed, fmt.Errorf("failed to read affected rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return InsertFailed, fmt.Errorf("failed to commit item: %w", err)
	}

	if affected == 0 {
		return Duplicate, nil
	}
	return Inserted, nil
}

// ListBySourcesAndDateRange returns records newest first. An empty sources
// slice matches every source; nil bounds are open. Bounds are inclusive.
func (r *ItemStore) ListBySourcesAndDateRange(ctx context.Context, sources []string, from, to *time.Time, limit int) ([]Item, error) {
	var conditions []string
	var args []any

	if len(sources) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(sources)), ",")
		conditions = append(conditions, "source_name IN ("+placeholders+")")
		for _, source := range sources {
			args = append(args, source)
		}
	}
	if from != nil {
		conditions = append(conditions, "published_at >= ?")
		args = append(args, formatTime(*from))
	}
	if to != nil {
		conditions = append(conditions, "published_at <= ?")
		args = append(args, formatTime(*to))
	}

	query := `SELECT id, title, identity_key, published_at, body, source_name, created_at FROM items`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY published_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		record, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, nil
}

func (r *ItemStore) DistinctSources(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT source_name FROM items ORDER BY source_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to get distinct sources: %w", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return sources, nil
}

// Latest returns the most recently published record, or nil for an empty store.
func (r *ItemStore) Latest(ctx context.Context) (*Item, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, identity_key, published_at, body, source_name, created_at
		FROM items
		ORDER BY published_at DESC, id DESC
		LIMIT 1
	`)

	record, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (r *ItemStore) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM items").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get item count: %w", err)
	}
	return count, nil
}

func (r *ItemStore) CountBySource(ctx context.Context) ([]SourceCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT source_name, COUNT(*)
		FROM items
		GROUP BY source_name
		ORDER BY COUNT(*) DESC, source_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get item counts by source: %w", err)
	}
	defer rows.Close()

	var counts []SourceCount
	for rows.Next() {
		var sc SourceCount
		if err := rows.Scan(&sc.SourceName, &sc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan source count row: %w", err)
		}
		counts = append(counts, sc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source count rows: %w", err)
	}

	return counts, nil
}

func validateCandidate(c item.Candidate) error {
	switch {
	case strings.TrimSpace(c.IdentityKey) == "":
		return fmt.Errorf("%w: empty identity key", ErrInvalidItem)
	case strings.TrimSpace(c.Title) == "":
		return fmt.Errorf("%w: empty title for %s", ErrInvalidItem, c.IdentityKey)
	case strings.TrimSpace(c.SourceName) == "":
		return fmt.Errorf("%w: empty source name for %s", ErrInvalidItem, c.IdentityKey)
	case c.Published.IsZero():
		return fmt.Errorf("%w: missing published time for %s", ErrInvalidItem, c.IdentityKey)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var record Item
	var publishedAt, createdAt string

	err := row.Scan(&record.ID, &record.Title, &record.IdentityKey, &publishedAt, &record.Body, &record.SourceName, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan item row: %w", err)
	}

	if record.PublishedAt, err = parseTime(publishedAt); err != nil {
		return nil, err
	}
	if record.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}

	return &record, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse stored time %q: %w", value, err)
	}
	return t, nil
}

package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/news-comb/app/database"
	"github.com/lysyi3m/news-comb/app/item"
)

// applyCandidate inserts one candidate and records the outcome. The insert
// runs detached from ctx so an item in flight at shutdown is still
// committed or rolled back cleanly. Only ErrStoreUnavailable is returned;
// any other failure is logged and counted against the source.
func applyCandidate(ctx context.Context, store ItemWriter, metrics *Metrics, kind Kind, result *SourceResult, candidate item.Candidate) error {
	res, err := store.Insert(context.WithoutCancel(ctx), candidate)
	metrics.itemApplied(kind, res)

	switch {
	case err != nil:
		if errors.Is(err, database.ErrStoreUnavailable) {
			return fmt.Errorf("failed to store item %s: %w", candidate.IdentityKey, err)
		}
		result.Failed++
		slog.Warn("Failed to store item", "source", candidate.SourceName, "identity_key", candidate.IdentityKey, "error", err)
	case res == database.Inserted:
		result.New++
	case res == database.Duplicate:
		result.Duplicates++
		slog.Debug("Duplicate item skipped", "source", candidate.SourceName, "identity_key", candidate.IdentityKey)
	}

	return nil
}

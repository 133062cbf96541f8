package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/lysyi3m/news-comb/app/database"
	"github.com/lysyi3m/news-comb/app/feed"
	"github.com/lysyi3m/news-comb/app/tasks"
)

func newTable(title string) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(title)
	return tw
}

func renderSummary(summary *tasks.Summary) string {
	tw := newTable(fmt.Sprintf("%s cycle %s (%s)", summary.Kind, summary.RunID, summary.Duration.Round(time.Millisecond)))
	tw.AppendHeader(table.Row{"Source", "New", "Duplicates", "Failed", "Error"})

	for _, name := range summary.Sources() {
		result := summary.Results[name]
		tw.AppendRow(table.Row{name, result.New, result.Duplicates, result.Failed, result.Error})
	}

	created, duplicates, failed := summary.Totals()
	tw.AppendFooter(table.Row{"Total", created, duplicates, failed, strconv.Itoa(len(summary.FailedSources())) + " failed sources"})

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, WidthMax: 60},
	})

	return tw.Render()
}

func renderInfo(ctx context.Context, repo database.ItemRepository) (string, error) {
	count, err := repo.Count(ctx)
	if err != nil {
		return "", err
	}

	latest, err := repo.Latest(ctx)
	if err != nil {
		return "", err
	}

	counts, err := repo.CountBySource(ctx)
	if err != nil {
		return "", err
	}

	overview := newTable("Store")
	overview.AppendRow(table.Row{"Items", count})
	overview.AppendRow(table.Row{"Sources", len(counts)})
	if latest != nil {
		overview.AppendRow(table.Row{"Latest", latest.Title})
		overview.AppendRow(table.Row{"Latest published", latest.PublishedAt.In(time.Local).Format(time.RFC3339)})
	} else {
		overview.AppendRow(table.Row{"Latest", "-"})
	}

	sources := newTable("Items per source")
	sources.AppendHeader(table.Row{"Source", "Items"})
	for _, sc := range counts {
		sources.AppendRow(table.Row{sc.SourceName, sc.Count})
	}
	sources.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})

	return overview.Render() + "\n" + sources.Render(), nil
}

// writeExport renders the newest limit items to path through a temporary
// file so readers never see a partial document.
func writeExport(ctx context.Context, path string, repo database.ItemRepository, channel feed.Channel, limit int) error {
	items, err := repo.ListBySourcesAndDateRange(ctx, nil, nil, nil, limit)
	if err != nil {
		return fmt.Errorf("failed to list items for export: %w", err)
	}

	rss, err := feed.NewGenerator().Run(channel, items)
	if err != nil {
		return fmt.Errorf("failed to generate export: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(rss), 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace export: %w", err)
	}

	return nil
}

package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/news-comb/app/database"
	"github.com/lysyi3m/news-comb/app/feed"
	"github.com/lysyi3m/news-comb/app/tasks"
)

func NewHandler(itemRepo database.ItemRepository, runner TriggerInterface, sources tasks.FeedProvider, opts Options) *Handler {
	return &Handler{
		itemRepo:     itemRepo,
		generator:    feed.NewGenerator(),
		runner:       runner,
		sources:      sources,
		channel:      feed.NewChannel(opts.BaseUrl, opts.Version),
		exportItems:  opts.ExportItems,
		maxPageItems: opts.MaxPageItems,
		version:      opts.Version,
	}
}

func (h *Handler) GetFeed(c *gin.Context) {
	items, err := h.itemRepo.ListBySourcesAndDateRange(c.Request.Context(), nil, nil, nil, h.exportItems)
	if err != nil {
		slog.Error("Database error", "operation", "list_items", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.Run(h.channel, items)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(items)))
	if len(items) > 0 {
		c.Header("X-Last-Updated", items[0].PublishedAt.Format(time.RFC3339))
	}

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if count, err := h.itemRepo.Count(c.Request.Context()); err == nil {
		health["items"] = count
	} else {
		slog.Error("Database error", "operation", "count", "error", err)
		health["database"] = "unavailable"
	}

	health["loaded_feeds"] = len(h.sources.Feeds())

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	count, err := h.itemRepo.Count(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "count", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	sources, err := h.itemRepo.DistinctSources(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "distinct_sources", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	counts, err := h.itemRepo.CountBySource(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "count_by_source", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	perSource := make(map[string]int, len(counts))
	for _, sc := range counts {
		perSource[sc.SourceName] = sc.Count
	}

	stats := map[string]interface{}{
		"items":      count,
		"sources":    sources,
		"per_source": perSource,
	}

	latest, err := h.itemRepo.Latest(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "latest", "error", err)
	} else if latest != nil {
		stats["latest"] = toItemResponse(*latest)
	}

	c.JSON(http.StatusOK, stats)
}

// ListItems serves /items?source=a&source=b&from=2024-01-01&to=2024-01-31&limit=20.
// Date-only bounds are whole days: to covers the entire named day.
func (h *Handler) ListItems(c *gin.Context) {
	var sources []string
	for _, value := range c.QueryArray("source") {
		for _, name := range strings.Split(value, ",") {
			if name = strings.TrimSpace(name); name != "" {
				sources = append(sources, name)
			}
		}
	}

	from, err := parseBound(c.Query("from"), false)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from parameter", "details": err.Error()})
		return
	}

	to, err := parseBound(c.Query("to"), true)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to parameter", "details": err.Error()})
		return
	}

	limit := h.maxPageItems
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = min(n, h.maxPageItems)
	}

	items, err := h.itemRepo.ListBySourcesAndDateRange(c.Request.Context(), sources, from, to, limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_items", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	response := make([]itemResponse, 0, len(items))
	for _, it := range items {
		response = append(response, toItemResponse(it))
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"items": response,
		"total": len(response),
	})
}

func (h *Handler) APITriggerCycle(c *gin.Context) {
	kind, err := tasks.ParseKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown cycle kind", "details": err.Error()})
		return
	}

	if !h.runner.Has(kind) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cycle is not enabled", "kind": kind})
		return
	}

	summary, joined, err := h.runner.Trigger(c.Request.Context(), kind)
	if err != nil {
		slog.Error("Manual cycle failed", "kind", string(kind), "error", err)

		response := gin.H{"error": "Cycle failed", "details": err.Error()}
		if summary != nil {
			response["summary"] = summary
		}

		status := http.StatusInternalServerError
		if errors.Is(err, database.ErrStoreUnavailable) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, response)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"joined":  joined,
		"summary": summary,
	})
}

func parseBound(value string, endOfDay bool) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	t, err := dateparse.ParseIn(value, time.Local)
	if err != nil {
		return nil, err
	}

	if endOfDay && isDateOnly(value) {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}

	return &t, nil
}

func isDateOnly(value string) bool {
	_, err := time.Parse(time.DateOnly, value)
	return err == nil
}

func toItemResponse(it database.Item) itemResponse {
	return itemResponse{
		ID:          it.ID,
		Title:       it.Title,
		IdentityKey: it.IdentityKey,
		PublishedAt: it.PublishedAt.Format(time.RFC3339),
		Body:        it.Body,
		SourceName:  it.SourceName,
		CreatedAt:   it.CreatedAt.Format(time.RFC3339),
	}
}

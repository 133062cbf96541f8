package feed

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultDaysBack   = 1
	defaultMaxResults = 100
)

type sourcesFile struct {
	Feeds yaml.Node    `yaml:"feeds"`
	Mail  MailSettings `yaml:"mail"`
}

// ConfigCache holds the parsed sources file and re-reads it when the file
// changes on disk, so edits apply from the next cycle on.
type ConfigCache struct {
	path    string
	sources *Sources
	modTime time.Time
	mu      sync.RWMutex
}

func NewConfigCache(path string) *ConfigCache {
	return &ConfigCache{path: path}
}

// Run loads the sources file. A missing file yields an empty source list.
func (cc *ConfigCache) Run() error {
	info, err := os.Stat(cc.path)
	if os.IsNotExist(err) {
		slog.Warn("Sources file not found, no sources configured", "path", cc.path)
		cc.store(&Sources{Mail: defaultMailSettings()}, time.Time{})
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat sources file: %w", err)
	}

	sources, err := LoadSources(cc.path)
	if err != nil {
		return err
	}

	cc.store(sources, info.ModTime())
	slog.Debug("Sources loaded", "path", cc.path, "feeds", len(sources.Feeds), "senders", len(sources.Mail.Senders))

	return nil
}

func (cc *ConfigCache) store(sources *Sources, modTime time.Time) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.sources = sources
	cc.modTime = modTime
}

// refresh reloads the file when its modification time moved. A broken edit
// keeps the previous sources in place.
func (cc *ConfigCache) refresh() {
	info, err := os.Stat(cc.path)
	if err != nil {
		return
	}

	cc.mu.RLock()
	unchanged := info.ModTime().Equal(cc.modTime)
	cc.mu.RUnlock()
	if unchanged {
		return
	}

	sources, err := LoadSources(cc.path)
	if err != nil {
		slog.Warn("Failed to reload sources file, keeping previous sources", "path", cc.path, "error", err)
		return
	}

	cc.store(sources, info.ModTime())
	slog.Info("Sources reloaded", "path", cc.path, "feeds", len(sources.Feeds))
}

func (cc *ConfigCache) Feeds() []Source {
	cc.refresh()

	cc.mu.RLock()
	defer cc.mu.RUnlock()
	if cc.sources == nil {
		return nil
	}

	feeds := make([]Source, len(cc.sources.Feeds))
	copy(feeds, cc.sources.Feeds)
	return feeds
}

func (cc *ConfigCache) Mail() MailSettings {
	cc.refresh()

	cc.mu.RLock()
	defer cc.mu.RUnlock()
	if cc.sources == nil {
		return defaultMailSettings()
	}

	settings := cc.sources.Mail
	settings.Senders = append([]string(nil), settings.Senders...)
	return settings
}

// LoadSources parses and validates a sources file.
func LoadSources(path string) (*Sources, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	sources, err := parseSources(data)
	if err != nil {
		return nil, fmt.Errorf("invalid sources file %s: %w", path, err)
	}

	return sources, nil
}

func parseSources(data []byte) (*Sources, error) {
	var raw sourcesFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	feeds, err := flattenFeeds(&raw.Feeds)
	if err != nil {
		return nil, err
	}

	mail := raw.Mail
	if mail.DaysBack == 0 {
		mail.DaysBack = defaultDaysBack
	}
	if mail.MaxResults == 0 {
		mail.MaxResults = defaultMaxResults
	}

	sources := &Sources{Feeds: feeds, Mail: mail}
	if err := validateSources(sources); err != nil {
		return nil, err
	}

	return sources, nil
}

// flattenFeeds walks feeds: {category: {name: url}} in document order.
func flattenFeeds(node *yaml.Node) ([]Source, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("feeds must be a mapping of categories")
	}

	var feeds []Source
	for i := 0; i+1 < len(node.Content); i += 2 {
		category := node.Content[i].Value
		entries := node.Content[i+1]

		if entries.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("category %q must be a mapping of feed names to URLs", category)
		}

		for j := 0; j+1 < len(entries.Content); j += 2 {
			name := strings.TrimSpace(entries.Content[j].Value)
			value := entries.Content[j+1]
			if value.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("feed %q in category %q must map to a URL", name, category)
			}

			feeds = append(feeds, Source{
				Name:     name,
				URL:      strings.TrimSpace(value.Value),
				Category: category,
			})
		}
	}

	return feeds, nil
}

func validateSources(sources *Sources) error {
	seen := make(map[string]string, len(sources.Feeds))

	for _, source := range sources.Feeds {
		if source.Name == "" {
			return fmt.Errorf("feed name is required in category %q", source.Category)
		}
		if previous, ok := seen[source.Name]; ok {
			return fmt.Errorf("duplicate feed name %q in categories %q and %q", source.Name, previous, source.Category)
		}
		seen[source.Name] = source.Category

		if source.URL == "" {
			return fmt.Errorf("feed URL is required for %q", source.Name)
		}
		parsed, err := url.Parse(source.URL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return fmt.Errorf("invalid feed URL for %q: %s", source.Name, source.URL)
		}
	}

	nonNegativeFields := map[string]int{
		"mail days_back":   sources.Mail.DaysBack,
		"mail max_results": sources.Mail.MaxResults,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	for i, sender := range sources.Mail.Senders {
		if strings.TrimSpace(sender) == "" {
			return fmt.Errorf("mail sender at index %d is empty", i)
		}
	}

	return nil
}

func defaultMailSettings() MailSettings {
	return MailSettings{DaysBack: defaultDaysBack, MaxResults: defaultMaxResults}
}

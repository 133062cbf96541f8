package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	Mode string `long:"mode" env:"MODE" default:"daemon" choice:"daemon" choice:"once" choice:"info" description:"Run mode: daemon (schedules + HTTP), once (single pass), info (store stats)"`

	// Storage and sources
	DBPath      string `long:"db-path" env:"DB_PATH" default:"./data/news.db" description:"SQLite database file"`
	SourcesFile string `long:"sources-file" env:"SOURCES_FILE" default:"./sources.yml" description:"YAML file listing feeds and mail settings"`

	// Ingestion
	FeedInterval int  `long:"feed-interval" env:"FEED_INTERVAL" default:"10" description:"Feed ingestion interval in minutes"`
	MailInterval int  `long:"mail-interval" env:"MAIL_INTERVAL" default:"30" description:"Mail ingestion interval in minutes"`
	FeedTimeout  int  `long:"feed-timeout" env:"FEED_TIMEOUT" default:"30" description:"Per-feed fetch timeout in seconds"`
	FeedPause    int  `long:"feed-pause" env:"FEED_PAUSE" default:"1000" description:"Pause between consecutive feed fetches in milliseconds"`
	NoEmail      bool `long:"no-email" env:"NO_EMAIL" description:"Disable mail ingestion"`

	// Gmail
	GmailCredentials string `long:"gmail-credentials" env:"GMAIL_CREDENTIALS" default:"./credentials.json" description:"OAuth client secrets file"`
	GmailToken       string `long:"gmail-token" env:"GMAIL_TOKEN" default:"./token.json" description:"Stored OAuth token file"`

	// HTTP surface and export
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl      string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://news.example.com)"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	ExportItems  int    `long:"export-items" env:"EXPORT_ITEMS" default:"50" description:"Number of newest items in the RSS export"`
	ExportFile   string `long:"export-file" env:"EXPORT_FILE" description:"Write the RSS export to this file after a once run"`
	MaxPageItems int    `long:"max-page-items" env:"MAX_PAGE_ITEMS" default:"100" description:"Upper bound for the items query limit"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"News Comb/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load reads .env (when present), then the environment and args. It
// returns nil, nil when help was requested.
func Load(args []string) (*Cfg, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Mode:             Mode(raw.Mode),
		DBPath:           raw.DBPath,
		SourcesFile:      raw.SourcesFile,
		FeedInterval:     time.Duration(raw.FeedInterval) * time.Minute,
		MailInterval:     time.Duration(raw.MailInterval) * time.Minute,
		FeedTimeout:      time.Duration(raw.FeedTimeout) * time.Second,
		FeedPause:        time.Duration(raw.FeedPause) * time.Millisecond,
		NoEmail:          raw.NoEmail,
		GmailCredentials: raw.GmailCredentials,
		GmailToken:       raw.GmailToken,
		Port:             raw.Port,
		BaseUrl:          raw.BaseUrl,
		APIAccessKey:     raw.APIAccessKey,
		ExportItems:      raw.ExportItems,
		ExportFile:       raw.ExportFile,
		MaxPageItems:     raw.MaxPageItems,
		UserAgent:        raw.UserAgent,
		Timezone:         raw.Timezone,
		Debug:            raw.Debug,
		Version:          GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		slog.Warn("Invalid timezone, using system default", "timezone", cfg.Timezone, "error", err)
	}

	return cfg, nil
}

func validate(cfg *Cfg) error {
	if cfg.FeedInterval <= 0 {
		return fmt.Errorf("feed interval must be positive")
	}
	if cfg.MailInterval <= 0 {
		return fmt.Errorf("mail interval must be positive")
	}
	if cfg.FeedTimeout <= 0 {
		return fmt.Errorf("feed timeout must be positive")
	}
	if cfg.FeedPause < 0 {
		return fmt.Errorf("feed pause cannot be negative")
	}
	if cfg.ExportItems <= 0 {
		return fmt.Errorf("export items must be positive")
	}
	if cfg.MaxPageItems <= 0 {
		return fmt.Errorf("max page items must be positive")
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			return err
		}
		time.Local = loc
	}
	return nil
}

package cfg

import "time"

type Mode string

const (
	ModeDaemon Mode = "daemon"
	ModeOnce   Mode = "once"
	ModeInfo   Mode = "info"
)

type Cfg struct {
	Mode Mode

	// Storage and sources
	DBPath      string
	SourcesFile string

	// Ingestion
	FeedInterval time.Duration
	MailInterval time.Duration
	FeedTimeout  time.Duration
	FeedPause    time.Duration
	NoEmail      bool

	// Gmail
	GmailCredentials string
	GmailToken       string

	// HTTP surface and export
	Port         string
	BaseUrl      string
	APIAccessKey string
	ExportItems  int
	ExportFile   string
	MaxPageItems int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

package feed

// Source is one configured syndication feed.
type Source struct {
	Name     string
	URL      string
	Category string
}

// MailSettings is the mail section of the sources file.
type MailSettings struct {
	FetchAll   bool     `yaml:"fetch_all"`
	Senders    []string `yaml:"senders"`
	DaysBack   int      `yaml:"days_back"`
	MaxResults int      `yaml:"max_results"`
}

// Sources is the parsed sources file. Feeds keep the order they appear in
// the file, category by category.
type Sources struct {
	Feeds []Source
	Mail  MailSettings
}

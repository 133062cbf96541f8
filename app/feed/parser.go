package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lysyi3m/news-comb/app/item"
	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses a feed document into candidates attributed to sourceName.
// fetchedAt stands in for entries that carry no usable date.
func (p *Parser) Run(data []byte, sourceName string, fetchedAt time.Time) ([]item.Candidate, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		recovered, ok := p.salvage(data)
		if !ok {
			return nil, fmt.Errorf("failed to parse feed: %w", err)
		}
		slog.Warn("Feed was malformed, parsed complete entries only", "feed", sourceName, "entries", len(recovered.Items), "error", err)
		feed = recovered
	}

	candidates := make([]item.Candidate, 0, len(feed.Items))
	for _, entry := range feed.Items {
		candidate, ok := p.normalizeItem(entry, sourceName, fetchedAt)
		if !ok {
			slog.Warn("Skipping feed entry without link", "feed", sourceName, "title", entry.Title)
			continue
		}
		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

// salvage cuts the document after the last complete entry, closes the root
// element and parses again.
func (p *Parser) salvage(data []byte) (*gofeed.Feed, bool) {
	lower := asciiLower(data)

	var cut int
	var closing string
	switch {
	case bytes.Contains(lower, []byte("<rdf:rdf")):
		cut, closing = lastClose(lower, "</item>"), "</rdf:RDF>"
	case bytes.Contains(lower, []byte("<rss")):
		cut, closing = lastClose(lower, "</item>"), "</channel></rss>"
	case bytes.Contains(lower, []byte("<feed")):
		cut, closing = lastClose(lower, "</entry>"), "</feed>"
	default:
		return nil, false
	}
	if cut < 0 {
		return nil, false
	}

	truncated := make([]byte, 0, cut+len(closing))
	truncated = append(truncated, data[:cut]...)
	truncated = append(truncated, closing...)

	feed, err := p.gofeedParser.Parse(bytes.NewReader(truncated))
	if err != nil || len(feed.Items) == 0 {
		return nil, false
	}

	return feed, true
}

// asciiLower keeps byte offsets aligned with the input, unlike bytes.ToLower.
func asciiLower(data []byte) []byte {
	lower := make([]byte, len(data))
	for i, b := range data {
		if 'A' <= b && b <= 'Z' {
			b += 'a' - 'A'
		}
		lower[i] = b
	}
	return lower
}

func lastClose(lower []byte, tag string) int {
	idx := bytes.LastIndex(lower, []byte(tag))
	if idx < 0 {
		return -1
	}
	return idx + len(tag)
}

func (p *Parser) normalizeItem(entry *gofeed.Item, sourceName string, fetchedAt time.Time) (item.Candidate, bool) {
	link := strings.TrimSpace(entry.Link)
	if link == "" {
		return item.Candidate{}, false
	}

	published := fetchedAt
	if entry.PublishedParsed != nil {
		published = *entry.PublishedParsed
	} else if entry.UpdatedParsed != nil {
		published = *entry.UpdatedParsed
	}

	return item.Candidate{
		Title:       cmp.Or(strings.TrimSpace(entry.Title), item.FeedTitlePlaceholder),
		IdentityKey: link,
		Published:   published,
		Body:        strings.TrimSpace(entry.Description),
		SourceName:  sourceName,
	}, true
}

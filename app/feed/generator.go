package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/lysyi3m/news-comb/app/database"
)

// Channel describes the aggregated export feed.
type Channel struct {
	Title       string
	Link        string
	Description string
	SelfLink    string
	Generator   string
}

// NewChannel describes the export served at <baseURL>/feed.xml.
func NewChannel(baseURL, version string) Channel {
	baseURL = strings.TrimRight(baseURL, "/")

	channel := Channel{
		Title:       "News Comb",
		Link:        baseURL,
		Description: "Aggregated feeds and newsletters",
		Generator:   "NewsComb/" + version,
	}
	if baseURL != "" {
		channel.SelfLink = baseURL + "/feed.xml"
	}
	return channel
}

type Generator struct {
	now func() time.Time
}

func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// Run renders items, newest first as given, into one RSS 2.0 document.
func (g *Generator) Run(channel Channel, items []database.Item) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", channel.Title, 4)
	g.writeElement(&buf, "link", channel.Link, 4)
	g.writeElement(&buf, "description", fmt.Sprintf("%s - %d recent items", channel.Description, len(items)), 4)

	if channel.SelfLink != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(channel.SelfLink)))
	}

	now := g.now().UTC()
	pubDate := now
	if len(items) > 0 {
		pubDate = items[0].PublishedAt
	}

	g.writeElement(&buf, "pubDate", pubDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "lastBuildDate", now.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", channel.Generator, 4)

	for _, item := range items {
		g.writeItem(&buf, item)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, item database.Item) {
	buf.WriteString("    <item>\n")

	buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", g.isURL(item.IdentityKey)))
	xml.EscapeText(buf, []byte(item.IdentityKey))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", item.Title, 6)

	// Mail keys are not resolvable links.
	if g.isURL(item.IdentityKey) {
		g.writeElement(buf, "link", item.IdentityKey, 6)
	}

	g.writeElement(buf, "description", item.Body, 6)
	g.writeElement(buf, "pubDate", item.PublishedAt.Format(time.RFC1123Z), 6)
	g.writeElement(buf, "category", item.SourceName, 6)

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return (len(s) > 7 && s[:7] == "http://") || (len(s) > 8 && s[:8] == "https://")
}

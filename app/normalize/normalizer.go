// Package normalize converts newsletter HTML into clean, readable text.
//
// The output is a best-effort cleanliness heuristic, not a lossless
// transform. Run never fails: markup goes through a structured goquery pass
// first, and only when the parser itself reports an error does the input fall
// back to StripTags, which removes angle-bracket markup and nothing else.
package normalize

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	tagPattern             = regexp.MustCompile(`<[^>]+>`)
	blankRunPattern        = regexp.MustCompile(`\n\s*\n\s*\n+`)
	horizontalSpacePattern = regexp.MustCompile(`[ \t]+`)

	// Preheader padding in newsletters is built from these.
	invisibleSpaces = strings.NewReplacer(
		"\u00a0", " ",
		"\u200b", "",
		"\u200c", "",
		"\u200d", "",
		"\u034f", "",
		"\u00ad", "",
		"\ufeff", "",
		"\r\n", "\n",
		"\r", "\n",
	)
)

type Normalizer struct {
	parse func(io.Reader) (*goquery.Document, error)
	rules []LineRule
}

func NewNormalizer() *Normalizer {
	return &Normalizer{
		parse: goquery.NewDocumentFromReader,
		rules: DefaultLineRules(),
	}
}

var defaultNormalizer = NewNormalizer()

// Text normalizes src with the default rule set.
func Text(src string) string {
	return defaultNormalizer.Run(src)
}

func (n *Normalizer) Run(src string) string {
	text, err := n.structured(src)
	if err != nil {
		slog.Warn("HTML parsing failed, falling back to tag stripping", "error", err)
		return StripTags(src)
	}
	return text
}

// StripTags is the fallback path: remove tags by pattern, keep everything else.
func StripTags(src string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(src, ""))
}

func (n *Normalizer) structured(src string) (string, error) {
	doc, err := n.parse(strings.NewReader(src))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	removeNonContent(doc)
	removeTrackingImages(doc)
	rewriteLinks(doc)
	convertStructure(doc)

	return n.filterLines(collapse(doc.Text())), nil
}

func removeNonContent(doc *goquery.Document) {
	doc.Find("script, style, noscript, meta, link, head, title").Remove()
}

func removeTrackingImages(doc *goquery.Document) {
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		if isTrackingImage(img) {
			img.Remove()
		}
	})
}

func isTrackingImage(img *goquery.Selection) bool {
	src, _ := img.Attr("src")
	if containsAny(strings.ToLower(src), trackingImageKeywords) {
		return true
	}

	width, _ := img.Attr("width")
	height, _ := img.Attr("height")
	return isOnePixel(width) || isOnePixel(height)
}

func isOnePixel(dimension string) bool {
	dimension = strings.TrimSuffix(strings.TrimSpace(strings.ToLower(dimension)), "px")
	return dimension == "1"
}

func rewriteLinks(doc *goquery.Document) {
	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		text := strings.TrimSpace(a.Text())

		switch {
		case containsAny(strings.ToLower(href), linkTargetDropKeywords),
			containsAny(strings.ToLower(text), linkTextDropKeywords):
			a.Remove()
		case isRedirector(href):
			domain := ExtractDomain(href)
			if text != "" {
				replaceWithText(a, text+" ["+domain+"]")
			} else {
				replaceWithText(a, "["+domain+"]")
			}
		case text != "":
			replaceWithText(a, text)
		default:
			a.Remove()
		}
	})
}

func convertStructure(doc *goquery.Document) {
	doc.Find("br").Each(func(_ int, br *goquery.Selection) {
		replaceWithText(br, "\n")
	})

	// Inline emphasis goes first so the markers survive inside headings,
	// list items and paragraphs.
	wrapText(doc.Find("strong, b"), "**")
	wrapText(doc.Find("em, i"), "*")

	for level := 1; level <= 6; level++ {
		marker := strings.Repeat("#", min(level, 4))
		doc.Find(fmt.Sprintf("h%d", level)).Each(func(_ int, heading *goquery.Selection) {
			replaceWithText(heading, "\n"+marker+" "+strings.TrimSpace(heading.Text())+"\n\n")
		})
	}

	doc.Find("ul, ol").Each(func(_ int, list *goquery.Selection) {
		var items []string
		list.Find("li").Each(func(_ int, li *goquery.Selection) {
			items = append(items, "• "+strings.TrimSpace(li.Text()))
		})
		replaceWithText(list, "\n"+strings.Join(items, "\n")+"\n")
	})

	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		replaceWithText(p, "\n"+strings.TrimSpace(p.Text())+"\n")
	})

	// Table-based layouts would otherwise run cells and rows together.
	doc.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
		cell.AfterNodes(textNode(" "))
	})
	doc.Find("div, tr, table, section, article").Each(func(_ int, block *goquery.Selection) {
		block.AfterNodes(textNode("\n"))
	})
}

func wrapText(sel *goquery.Selection, marker string) {
	sel.Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			s.Remove()
			return
		}
		replaceWithText(s, marker+text+marker)
	})
}

func replaceWithText(s *goquery.Selection, text string) {
	s.ReplaceWithNodes(textNode(text))
}

func textNode(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

func collapse(text string) string {
	text = invisibleSpaces.Replace(text)
	text = blankRunPattern.ReplaceAllString(text, "\n\n")
	text = horizontalSpacePattern.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n")
}

func (n *Normalizer) filterLines(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if cleaned, ok := ApplyLineRules(n.rules, line); ok {
			kept = append(kept, cleaned)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}

package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	bareURLMinLength      = 100
	platformLineMinLength = 150
	embeddedURLMinLength  = 50
	maxURLStructureChars  = 10
	minMeaningfulLength   = 10
)

var (
	trackingImageKeywords = []string{"tracking", "pixel", "beacon", "1x1"}

	linkTargetDropKeywords = []string{"tracking", "pixel", "beacon", "unsubscribe"}
	linkTextDropKeywords   = []string{"view in browser", "view online", "view image", "unsubscribe"}

	boilerplatePhrases = []string{
		"view in browser",
		"view online",
		"view image",
		"follow image link",
		"unsubscribe",
		"manage your preferences",
		"update your preferences",
		"forwarded this email",
		"you received this email",
		"caption:",
		"download your kit here",
		"click here",
		"read more",
		"beehiiv.com",
		"list-manage.com",
		"mailchimp.com",
	}

	separatorPattern = regexp.MustCompile(`^[-=_*~.·•|]+$`)
)

type Action int

const (
	Drop Action = iota
	Rewrite
)

// LineRule is one step of the line filter. Rules run in order; the first
// matching Drop rule discards the line, a matching Rewrite rule replaces it
// and evaluation continues with the rewritten line.
type LineRule struct {
	Name    string
	Match   func(line string) bool
	Action  Action
	Rewrite func(line string) string
}

func ApplyLineRules(rules []LineRule, line string) (string, bool) {
	line = strings.TrimSpace(line)
	for _, rule := range rules {
		if !rule.Match(line) {
			continue
		}
		switch rule.Action {
		case Drop:
			return "", false
		case Rewrite:
			line = strings.TrimSpace(rule.Rewrite(line))
		}
	}
	return line, true
}

func DefaultLineRules() []LineRule {
	return []LineRule{
		{
			Name:   "empty",
			Match:  func(line string) bool { return line == "" },
			Action: Drop,
		},
		{
			Name: "boilerplate",
			Match: func(line string) bool {
				return containsAny(strings.ToLower(line), boilerplatePhrases)
			},
			Action: Drop,
		},
		{
			Name: "bare-url",
			Match: func(line string) bool {
				return (strings.HasPrefix(line, "https://") || strings.HasPrefix(line, "(https://")) &&
					utf8.RuneCountInString(line) > bareURLMinLength
			},
			Action: Drop,
		},
		{
			Name: "platform-url",
			Match: func(line string) bool {
				return utf8.RuneCountInString(line) > platformLineMinLength && hasMailHost(line)
			},
			Action: Drop,
		},
		{
			Name: "url-structure",
			Match: func(line string) bool {
				count := 0
				for _, r := range line {
					switch r {
					case '/', '=', '&', '?':
						count++
					}
				}
				return count > maxURLStructureChars
			},
			Action: Drop,
		},
		{
			Name:   "dominant-url",
			Match:  hasDominantURL,
			Action: Drop,
		},
		{
			Name:    "embedded-url",
			Match:   hasEmbeddedURL,
			Action:  Rewrite,
			Rewrite: replaceEmbeddedURLs,
		},
		{
			Name:   "separator",
			Match:  separatorPattern.MatchString,
			Action: Drop,
		},
		{
			Name: "short",
			Match: func(line string) bool {
				meaningful := strings.TrimSpace(strings.NewReplacer("[", "", "]", "").Replace(line))
				return utf8.RuneCountInString(meaningful) <= minMeaningfulLength
			},
			Action: Drop,
		},
	}
}

func urlToken(word string) (string, bool) {
	token := strings.Trim(word, "()")
	if !strings.HasPrefix(token, "https://") && !strings.HasPrefix(token, "http://") {
		return "", false
	}
	return token, utf8.RuneCountInString(token) > embeddedURLMinLength
}

// hasMailHost reports whether a word in line names a mail.* host, either
// bare (mail.example.com) or inside a URL.
func hasMailHost(line string) bool {
	for _, word := range strings.Fields(line) {
		word = strings.TrimLeft(strings.ToLower(word), "(")
		if i := strings.Index(word, "://"); i >= 0 {
			word = word[i+3:]
		}
		host, ok := strings.CutPrefix(word, "mail.")
		if ok && host != "" && isHostChar(host[0]) {
			return true
		}
	}
	return false
}

func isHostChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
}

func hasDominantURL(line string) bool {
	lineLength := utf8.RuneCountInString(line)
	for _, word := range strings.Fields(line) {
		if token, long := urlToken(word); long && 2*utf8.RuneCountInString(token) > lineLength {
			return true
		}
	}
	return false
}

func hasEmbeddedURL(line string) bool {
	for _, word := range strings.Fields(line) {
		if _, long := urlToken(word); long {
			return true
		}
	}
	return false
}

func replaceEmbeddedURLs(line string) string {
	words := strings.Fields(line)
	for i, word := range words {
		if token, long := urlToken(word); long {
			words[i] = "[" + ExtractDomain(token) + "]"
		}
	}
	return strings.Join(words, " ")
}

package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const redirectorMinLength = 100

var (
	hostPattern = regexp.MustCompile(`(?i)https?://(?:www\.)?([^/?#\s]+)`)

	trackingPrefixes = []string{"mail.", "link.", "click.", "track.", "go.", "em.", "newsletter.", "news."}

	newsletterPlatforms = []struct {
		marker string
		name   string
	}{
		{"beehiiv", "beehiiv.com"},
		{"mailchimp", "mailchimp.com"},
		{"list-manage", "mailchimp.com"},
		{"constantcontact", "constantcontact.com"},
		{"sendgrid", "sendgrid.com"},
	}

	redirectorMarkers = []string{"beehiiv", "mail", "list-manage", "constantcontact", "sendgrid", "redirect", "click", "track"}
)

// ExtractDomain reduces a URL to a short readable domain: tracking subdomains
// are stripped and newsletter platforms collapse to their service name.
// Returns "Link" when no host can be found.
func ExtractDomain(rawURL string) string {
	match := hostPattern.FindStringSubmatch(rawURL)
	if match == nil {
		return "Link"
	}

	host := strings.ToLower(match[1])
	if at := strings.LastIndexByte(host, '@'); at >= 0 {
		host = host[at+1:]
	}
	if colon := strings.IndexByte(host, ':'); colon >= 0 {
		host = host[:colon]
	}

	for _, platform := range newsletterPlatforms {
		if strings.Contains(host, platform.marker) {
			return platform.name
		}
	}

	return stripTrackingPrefixes(host)
}

func stripTrackingPrefixes(host string) string {
	for {
		stripped := false
		for _, prefix := range trackingPrefixes {
			rest, ok := strings.CutPrefix(host, prefix)
			if ok && strings.Contains(rest, ".") {
				host = rest
				stripped = true
				break
			}
		}
		if !stripped {
			return host
		}
	}
}

func hasTrackingPrefix(host string) bool {
	for _, prefix := range trackingPrefixes {
		if strings.HasPrefix(host, prefix) {
			return true
		}
	}
	return false
}

// isRedirector reports whether href looks like a long click-tracking redirect.
func isRedirector(href string) bool {
	if utf8.RuneCountInString(href) <= redirectorMinLength {
		return false
	}

	lower := strings.ToLower(href)
	if containsAny(lower, redirectorMarkers) {
		return true
	}

	match := hostPattern.FindStringSubmatch(lower)
	return match != nil && hasTrackingPrefix(match[1])
}

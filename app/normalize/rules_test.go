package normalize

import (
	"strings"
	"testing"
)

func TestDefaultLineRules(t *testing.T) {
	rules := DefaultLineRules()

	tests := []struct {
		name     string
		line     string
		expected string
		kept     bool
	}{
		{"empty", "   ", "", false},
		{"boilerplate", "Click here to claim your offer today", "", false},
		{"boilerplate case-insensitive", "MANAGE YOUR PREFERENCES for this newsletter", "", false},
		{"bare url", "https://example.com/" + strings.Repeat("x", 100), "", false},
		{"parenthesized bare url", "(https://example.com/" + strings.Repeat("x", 100) + ")", "", false},
		{"platform mail host", "Read at mail.example.com " + strings.Repeat("word ", 30), "", false},
		{"platform mail url", "Open (https://mail.example.com/v/abc) " + strings.Repeat("word ", 30), "", false},
		{"long line mentioning email", strings.Repeat("word ", 30) + "reply to this email.", strings.Repeat("word ", 30) + "reply to this email.", true},
		{"long line ending in mail", strings.Repeat("word ", 30) + "check your Gmail. or send us mail.", strings.Repeat("word ", 30) + "check your Gmail. or send us mail.", true},
		{"url structure", "?a=1&b=2&c=3&d=4&e=5&f=6 query strings everywhere", "", false},
		{"separator", "==========", "", false},
		{"bullet row", "• • •", "", false},
		{"short", "Short line", "", false},
		{"short after brackets", "[bbc.co.uk]", "", false},
		{"kept", "  This line is long enough to keep  ", "This line is long enough to keep", true},
		{"kept with markers", "## Market Summary", "## Market Summary", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, kept := ApplyLineRules(rules, tt.line)
			if kept != tt.kept {
				t.Fatalf("Expected kept=%v, got %v (result %q)", tt.kept, kept, result)
			}
			if result != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestApplyLineRules_RewriteContinues(t *testing.T) {
	rules := []LineRule{
		{
			Name:    "upper",
			Match:   func(string) bool { return true },
			Action:  Rewrite,
			Rewrite: strings.ToUpper,
		},
		{
			Name:   "drop-secret",
			Match:  func(line string) bool { return strings.Contains(line, "SECRET") },
			Action: Drop,
		},
	}

	if result, kept := ApplyLineRules(rules, "hello world"); !kept || result != "HELLO WORLD" {
		t.Errorf("Expected rewritten line to be kept, got %q (kept=%v)", result, kept)
	}

	if _, kept := ApplyLineRules(rules, "a secret line"); kept {
		t.Error("Expected later rule to see the rewritten line and drop it")
	}
}

func TestReplaceEmbeddedURLs(t *testing.T) {
	line := "Read it (https://www.example.com/" + strings.Repeat("segment", 8) + ") before Friday"

	result := replaceEmbeddedURLs(line)
	if result != "Read it [example.com] before Friday" {
		t.Errorf("Expected URL replaced by domain, got %q", result)
	}

	short := "See https://x.co/a for details"
	if result := replaceEmbeddedURLs(short); result != short {
		t.Errorf("Expected short URLs to be left alone, got %q", result)
	}
}

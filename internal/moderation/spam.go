package moderation

import (
	"regexp"
	"strings"
)

// Spam heuristics applied after the blocklist. Patterns are compiled once at
// package init and are safe for concurrent use.
var (
	// urlPattern matches http/https URLs, www. URLs, and bare domains. The
	// bare-domain variant requires a trailing "/" so version strings like
	// "v2.0" and decimals like "3.14" do not trip it.
	urlPattern = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+|\S+\.(com|net|org|io|co|xyz|info|biz|ru|cn|tk|ml|ga|cf)/\S*)`)

	// phonePattern matches common phone formats (+1-555-123-4567,
	// (555) 123-4567, 555.123.4567), anchored to whitespace boundaries so
	// digit runs inside normal words and short numbers do not match.
	phonePattern = regexp.MustCompile(`(?:^|\s)(\+?\d{1,3}[-.\s]?)?\(?\d{2,4}\)?[-.\s]?\d{3,4}[-.\s]?\d{3,4}(?:\s|$)`)
)

// spamRule pairs a heuristic with the name reported in FilterResult.Term.
type spamRule struct {
	name string
	hit  func(string) bool
}

var spamRules = []spamRule{
	{"url", urlPattern.MatchString},
	{"phone", phonePattern.MatchString},
	{"char_flood", hasCharFlood},
	{"word_flood", hasWordFlood},
}

// checkSpam runs the heuristics in order; the first hit wins.
func checkSpam(text string) FilterResult {
	for _, rule := range spamRules {
		if rule.hit(text) {
			return FilterResult{Blocked: true, Reason: "spam_pattern", Term: rule.name}
		}
	}
	return FilterResult{}
}

// hasCharFlood reports 5 or more consecutive identical characters. RE2 has
// no backreferences, so this is a linear scan.
func hasCharFlood(text string) bool {
	const threshold = 5

	run := 0
	prev := rune(-1)
	for _, r := range text {
		if r == prev {
			run++
			if run >= threshold {
				return true
			}
		} else {
			run = 1
			prev = r
		}
	}
	return false
}

// hasWordFlood reports the same word repeated 3 or more times consecutively,
// case-insensitive.
func hasWordFlood(text string) bool {
	const threshold = 3

	run := 0
	prev := ""
	for _, w := range strings.Fields(text) {
		lower := strings.ToLower(w)
		if lower == prev {
			run++
			if run >= threshold {
				return true
			}
		} else {
			run = 1
			prev = lower
		}
	}
	return false
}

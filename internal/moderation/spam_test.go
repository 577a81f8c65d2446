package moderation

import "testing"

func TestCheckSpam_URLs(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		blocked bool
	}{
		{"http url", "check out http://spam.example/deal", true},
		{"https url", "https://totally-legit.xyz", true},
		{"www url", "visit www.spam-site.com now", true},
		{"bare domain with path", "go to freestuff.com/win today", true},
		{"version number", "I upgraded to v2.0 yesterday", false},
		{"decimal number", "pi is about 3.14", false},
		{"plain text", "let's chat about movies", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := checkSpam(tt.input)
			if result.Blocked != tt.blocked {
				t.Errorf("checkSpam(%q).Blocked = %v, want %v", tt.input, result.Blocked, tt.blocked)
			}
			if tt.blocked && result.Reason != "spam_pattern" {
				t.Errorf("Reason = %q, want spam_pattern", result.Reason)
			}
		})
	}
}

func TestCheckSpam_PhoneNumbers(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		blocked bool
	}{
		{"dashed", "call me at 555-123-4567", true},
		{"dotted", "call 555.123.4567 ok", true},
		{"international", "text +1-555-123-4567", true},
		{"parenthesized", "my number is (555) 123-4567", true},
		{"short number", "I am 25 years old", false},
		{"year", "born in 1999", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := checkSpam(tt.input)
			if result.Blocked != tt.blocked {
				t.Errorf("checkSpam(%q).Blocked = %v, want %v", tt.input, result.Blocked, tt.blocked)
			}
		})
	}
}

func TestHasCharFlood(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"aaaaa", true},
		{"aaaa", false},
		{"hellooooo there", true},
		{"hello there", false},
		{"", false},
		{"ababababab", false},
	}

	for _, tt := range tests {
		if got := hasCharFlood(tt.input); got != tt.want {
			t.Errorf("hasCharFlood(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestHasWordFlood(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"buy buy buy", true},
		{"buy buy now", false},
		{"BUY buy Buy", true},
		{"one two three four", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := hasWordFlood(tt.input); got != tt.want {
			t.Errorf("hasWordFlood(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestCheck_SpamAfterBlocklist(t *testing.T) {
	f := NewFilterWithTerms([]string{"badword"})

	// Blocklist hit takes precedence over spam heuristics.
	result := f.Check("badword badword badword")
	if !result.Blocked || result.Reason != "blocked_keyword" {
		t.Errorf("expected blocked_keyword precedence, got %+v", result)
	}

	// Pure spam falls through to the heuristics.
	result = f.Check("win win win")
	if !result.Blocked || result.Reason != "spam_pattern" || result.Term != "word_flood" {
		t.Errorf("expected word_flood, got %+v", result)
	}
}

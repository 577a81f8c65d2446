// Package moderation screens chat messages for prohibited content before
// they are relayed. It combines a keyword/phrase blocklist (with leetspeak
// normalization) and a set of spam heuristics. Blocked messages are never
// delivered to the partner.
package moderation

import "strings"

// FilterResult is the outcome of a content check.
type FilterResult struct {
	Blocked bool
	Reason  string // "blocked_keyword" or "spam_pattern"
	Term    string // the matched term or heuristic name
}

// Filter holds the blocklist, split into single words (matched on word
// boundaries) and multi-word phrases (matched as normalized substrings on
// word boundaries).
type Filter struct {
	words   map[string]bool
	phrases []string
}

// defaultTerms is the built-in blocklist. Deployments extend it via
// NewFilterWithTerms; the default set covers the worst of harassment and
// self-harm bait.
var defaultTerms = []string{
	"kill yourself",
	"kys",
	"go die",
	"slur",
	"nazi",
}

// leetReplacer maps common character substitutions back to letters before
// matching. "!" and "1" both read as "i"; "@" as "a"; "0" as "o"; "3" as
// "e"; "$" and "5" as "s".
var leetReplacer = strings.NewReplacer(
	"@", "a",
	"0", "o",
	"3", "e",
	"$", "s",
	"5", "s",
	"1", "i",
	"!", "i",
)

// NewFilter creates a Filter with the built-in blocklist.
func NewFilter() *Filter {
	return NewFilterWithTerms(defaultTerms)
}

// NewFilterWithTerms creates a Filter from an explicit term list. Terms
// containing whitespace are treated as phrases, the rest as whole words.
func NewFilterWithTerms(terms []string) *Filter {
	f := &Filter{words: make(map[string]bool)}
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if strings.ContainsRune(term, ' ') {
			f.phrases = append(f.phrases, term)
		} else {
			f.words[term] = true
		}
	}
	return f
}

// Check screens text and returns the first violation found: blocklist terms
// take precedence over spam heuristics. The blocklist is matched against two
// normalizations of the text, because "!" is ambiguous — punctuation in
// "badword!" but a disguised "i" in "offens!ve".
func (f *Filter) Check(text string) FilterResult {
	plain := tokenize(strings.ToLower(text))
	leet := tokenize(leetReplacer.Replace(strings.ToLower(text)))

	for _, tokens := range [][]string{plain, leet} {
		if res := f.checkTokens(tokens); res.Blocked {
			return res
		}
	}

	return checkSpam(text)
}

// checkTokens matches the blocklist against one tokenized normalization.
func (f *Filter) checkTokens(tokens []string) FilterResult {
	for _, tok := range tokens {
		if f.words[tok] {
			return FilterResult{Blocked: true, Reason: "blocked_keyword", Term: tok}
		}
	}

	// Phrase matching on the token stream so punctuation between words does
	// not defeat it, but partial words ("yourselves" vs "yourself") do not
	// trigger it.
	joined := " " + strings.Join(tokens, " ") + " "
	for _, phrase := range f.phrases {
		if strings.Contains(joined, " "+phrase+" ") {
			return FilterResult{Blocked: true, Reason: "blocked_keyword", Term: phrase}
		}
	}
	return FilterResult{}
}

// CheckInterests screens a list of interest tags and returns the subset that
// passes the blocklist. Order is preserved.
func (f *Filter) CheckInterests(interests []string) []string {
	var clean []string
	for _, tag := range interests {
		if res := f.checkTokens(tokenize(strings.ToLower(tag))); !res.Blocked {
			clean = append(clean, tag)
		}
	}
	return clean
}

// tokenize splits lowercased text into words. Punctuation becomes a
// separator so "hello,badword" still tokenizes, while "mybadword" stays one
// token.
func tokenize(s string) []string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

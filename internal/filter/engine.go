// Package filter implements locality name matching over post and OCR text.
package filter

import (
	"fmt"
	"strings"
)

// Contains reports whether name occurs in text, ignoring case.
// A blank name never matches.
func Contains(text, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || text == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(name))
}

// MatchNames returns the names that occur in text as case-insensitive substrings.
// The result keeps the order of names, holds each name once, and is nil when
// nothing matches.
func MatchNames(text string, names []string) []string {
	if text == "" || len(names) == 0 {
		return nil
	}

	lower := strings.ToLower(text)
	var matched []string
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		key := strings.ToLower(n)
		if _, ok := seen[key]; ok {
			continue
		}
		if strings.Contains(lower, key) {
			seen[key] = struct{}{}
			matched = append(matched, n)
		}
	}
	return matched
}

// SearchQuery builds a recent-search query for original posts by account that
// mention at least one of names.
func SearchQuery(account string, names []string) string {
	var quoted []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		quoted = append(quoted, fmt.Sprintf("%q", n))
	}
	return fmt.Sprintf("from:%s (%s) -is:retweet -is:reply", account, strings.Join(quoted, " OR "))
}

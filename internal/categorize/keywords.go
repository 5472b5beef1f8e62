package categorize

import (
	"regexp"

	"github.com/cloudflare/ahocorasick"
)

// keywordSet matches substrings of an already lowercased description
type keywordSet struct {
	matcher *ahocorasick.Matcher
}

func newKeywordSet(words ...string) *keywordSet {
	return &keywordSet{matcher: ahocorasick.NewStringMatcher(words)}
}

// hits returns how many distinct keywords occur in s
func (k *keywordSet) hits(s string) int {
	return len(k.matcher.MatchThreadSafe([]byte(s)))
}

// Predicate decides whether a rule applies to a lowercased description
type Predicate func(description string) bool

func anyOf(k *keywordSet) Predicate {
	return func(s string) bool {
		return k.hits(s) > 0
	}
}

func atLeast(n int, k *keywordSet) Predicate {
	return func(s string) bool {
		return k.hits(s) >= n
	}
}

func exactly(n int, k *keywordSet) Predicate {
	return func(s string) bool {
		return k.hits(s) == n
	}
}

// anyPattern builds a predicate from regular expressions, typically word-bounded
func anyPattern(exprs ...string) Predicate {
	patterns := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		patterns = append(patterns, regexp.MustCompile(e))
	}
	return func(s string) bool {
		for _, p := range patterns {
			if p.MatchString(s) {
				return true
			}
		}
		return false
	}
}

func either(preds ...Predicate) Predicate {
	return func(s string) bool {
		for _, p := range preds {
			if p(s) {
				return true
			}
		}
		return false
	}
}

func both(a, b Predicate) Predicate {
	return func(s string) bool {
		return a(s) && b(s)
	}
}

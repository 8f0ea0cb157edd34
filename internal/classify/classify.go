package classify

import (
	"regexp"
	"strings"

	gitupdateErrors "github.com/bashhack/gitupdate/internal/errors"
	"github.com/bashhack/gitupdate/internal/git"
)

// PatternSet is an ordered list of compiled, case-insensitive breaking-change
// patterns. The zero value matches nothing.
type PatternSet struct {
	sources  []string
	patterns []*regexp.Regexp
}

// Compile builds a PatternSet from configured regular expressions. An empty
// or invalid pattern is a configuration error naming the offending entry.
func Compile(patterns []string) (PatternSet, error) {
	set := PatternSet{
		sources:  make([]string, 0, len(patterns)),
		patterns: make([]*regexp.Regexp, 0, len(patterns)),
	}

	for i, p := range patterns {
		if strings.TrimSpace(p) == "" {
			return PatternSet{}, gitupdateErrors.NewConfigError("breaking.patterns", p,
				gitupdateErrors.Errorf("%w: pattern %d is empty", gitupdateErrors.ErrInvalidConfiguration, i))
		}

		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return PatternSet{}, gitupdateErrors.NewConfigError("breaking.patterns", p,
				gitupdateErrors.Errorf("%w: %w", gitupdateErrors.ErrInvalidConfiguration, err))
		}

		set.sources = append(set.sources, p)
		set.patterns = append(set.patterns, re)
	}

	return set, nil
}

// MustCompile is like Compile but panics on error. It is meant for
// package-level defaults.
func MustCompile(patterns []string) PatternSet {
	set, err := Compile(patterns)
	if err != nil {
		panic(err)
	}
	return set
}

// Len returns the number of patterns in the set.
func (s PatternSet) Len() int {
	return len(s.patterns)
}

// Sources returns the patterns as configured.
func (s PatternSet) Sources() []string {
	return append([]string(nil), s.sources...)
}

// Match reports whether message matches any pattern in the set.
func (s PatternSet) Match(message string) bool {
	lower := strings.ToLower(message)
	for _, re := range s.patterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// Classify returns the commits whose message matches the pattern set, in their
// original order. progress, when non-nil, is called once per inspected commit
// with a 1-based index; it has no effect on the result.
func Classify(commits []git.CommitRecord, set PatternSet, progress func(current, total int)) []git.CommitRecord {
	breaking := []git.CommitRecord{}
	total := len(commits)

	for i, commit := range commits {
		if set.Match(commit.Message) {
			breaking = append(breaking, commit)
		}
		if progress != nil {
			progress(i+1, total)
		}
	}

	return breaking
}

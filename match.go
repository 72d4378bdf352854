package spotter

import (
	"fmt"
	"regexp"
	"strings"
)

// A Matcher reports whether a Transcript satisfies a condition.
// The string return is a human-readable description for error messages.
type Matcher func(tr *Transcript) (ok bool, description string)

// Text matches if the transcript contains the given substring anywhere.
func Text(s string) Matcher {
	return func(tr *Transcript) (bool, string) {
		return tr.Contains(s), fmt.Sprintf("output to contain %q", s)
	}
}

// Regexp matches if the transcript matches the regular expression.
// The pattern is compiled once; an invalid pattern causes a panic.
func Regexp(pattern string) Matcher {
	re := regexp.MustCompile(pattern)
	return func(tr *Transcript) (bool, string) {
		return re.MatchString(tr.String()), fmt.Sprintf("output to match regexp %q", pattern)
	}
}

// Line matches if the given line (0-indexed) equals s after trimming
// trailing spaces from the transcript line.
func Line(n int, s string) Matcher {
	return func(tr *Transcript) (bool, string) {
		l, ok := lineAt(tr, n)
		return ok && strings.TrimRight(l, " ") == s, fmt.Sprintf("line %d to equal %q", n, s)
	}
}

// LineContains matches if the given line (0-indexed) contains the substring.
func LineContains(n int, substr string) Matcher {
	return func(tr *Transcript) (bool, string) {
		l, ok := lineAt(tr, n)
		return ok && strings.Contains(l, substr), fmt.Sprintf("line %d to contain %q", n, substr)
	}
}

func lineAt(tr *Transcript, n int) (string, bool) {
	if n < 0 || n >= len(tr.lines) {
		return "", false
	}
	return tr.lines[n], true
}

// AtPrompt matches when the final transcript line matches the prompt
// pattern, meaning the debugger has finished the last command and is
// waiting for the next one.
// The pattern is compiled once; an invalid pattern causes a panic.
func AtPrompt(pattern string) Matcher {
	re := regexp.MustCompile(pattern)
	return func(tr *Transcript) (bool, string) {
		return re.MatchString(tr.LastLine()), fmt.Sprintf("output to end at prompt %q", pattern)
	}
}

// Not inverts a matcher.
func Not(m Matcher) Matcher {
	return func(tr *Transcript) (bool, string) {
		ok, desc := m(tr)
		return !ok, "NOT(" + desc + ")"
	}
}

// All matches when every provided matcher matches.
func All(matchers ...Matcher) Matcher {
	return combine("all of: ", false, matchers)
}

// Any matches when at least one provided matcher matches.
func Any(matchers ...Matcher) Matcher {
	return combine("any of: ", true, matchers)
}

// combine short-circuits on the first matcher whose result equals stop;
// the description lists every matcher evaluated up to that point.
func combine(label string, stop bool, matchers []Matcher) Matcher {
	return func(tr *Transcript) (bool, string) {
		descs := make([]string, 0, len(matchers))
		for _, m := range matchers {
			ok, desc := m(tr)
			descs = append(descs, desc)
			if ok == stop {
				return stop, label + strings.Join(descs, ", ")
			}
		}
		return !stop, label + strings.Join(descs, ", ")
	}
}

// Empty matches when the transcript has no visible content.
func Empty() Matcher {
	return func(tr *Transcript) (bool, string) {
		return strings.TrimSpace(tr.String()) == "", "output to be empty"
	}
}

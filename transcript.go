package spotter

import "strings"

// Transcript is an immutable capture of session display output: the
// concatenation of everything the marker scanner has passed through so
// far. Unlike a screen capture there is no fixed width or height, and a
// trailing newline is meaningful — a prompt waiting for input ends the
// transcript without one.
type Transcript struct {
	raw   string
	lines []string
}

// NewTranscript builds a Transcript from raw display text. Line endings
// are normalized to \n. Exported mainly so custom matchers can be tested
// without a live session.
func NewTranscript(raw string) *Transcript {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	return &Transcript{
		raw:   raw,
		lines: strings.Split(raw, "\n"),
	}
}

// String returns the full transcript content.
func (tr *Transcript) String() string {
	return tr.raw
}

// Len returns the transcript length in bytes.
func (tr *Transcript) Len() int {
	return len(tr.raw)
}

// Lines returns a copy of the transcript split into lines. The final
// element is empty when the transcript ends with a newline. Callers may
// modify the returned slice without affecting the Transcript.
func (tr *Transcript) Lines() []string {
	cp := make([]string, len(tr.lines))
	copy(cp, tr.lines)
	return cp
}

// Line returns the content of a single line (0-indexed).
// Panics if n is out of range.
func (tr *Transcript) Line(n int) string {
	return tr.lines[n]
}

// LastLine returns the final, possibly unterminated line. This is where
// an interactive prompt appears.
func (tr *Transcript) LastLine() string {
	return tr.lines[len(tr.lines)-1]
}

// Contains reports whether the transcript contains the substring.
func (tr *Transcript) Contains(substr string) bool {
	return strings.Contains(tr.raw, substr)
}

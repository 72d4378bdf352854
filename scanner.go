package spotter

import (
	"regexp"
	"strconv"
	"strings"
)

// Frame is a source position reported by the debugger: the file and line
// the debuggee is stopped at. File is empty when the debugger has not yet
// named a file — a stepping stop seen before any breakpoint report. Hosts
// should treat an empty File as "no known file" and skip navigation.
type Frame struct {
	File string
	Line int
}

// Marker grammars. The explicit shape names its own file:
//
//	Breakpoint 1, main() at `prog.awk':5
//
// The implicit shape is a stepping introducer — an echoed next/step
// command or the "Stopping in Rule ..." banner — followed by the new
// line number at the start of the next line. It inherits the last file
// an explicit marker named. The introducer must begin a token: echoed
// commands follow the prompt on the same line (`gawk> next`), so a
// line-start anchor would miss them, while the bare n/s branches must
// not fire inside a word. findImplicit enforces the token boundary;
// it cannot live in the pattern because what precedes the buffer may
// already have been flushed.
//
// Both shapes end at the last digit of the line number: trailing text on
// the number line is ordinary output, not part of the marker.
var (
	explicitRe = regexp.MustCompile("Breakpoint [0-9]+,[^\n]* at `([^'\n]*)':([0-9]+)")
	implicitRe = regexp.MustCompile(`(?:Stopping in Rule \.\.\.|next|step|n|s)[ \t]*\n([0-9]+)`)
	startRe    = regexp.MustCompile("Breakpoint [0-9]+,")
)

// Scanner extracts location markers from the chunked output of a
// line-oriented debugger while passing all other text through unchanged
// for display. Chunk boundaries are arbitrary: a marker split across
// chunks is held back until it can be resolved, and everything else is
// returned immediately.
//
// A Scanner belongs to exactly one debug session. It is not safe for
// concurrent use: Feed must be called once per output chunk, in arrival
// order, from a single goroutine.
type Scanner struct {
	pending     string
	currentFile string
	frame       Frame
	hasFrame    bool
	onFrame     func(Frame)

	// prevByte is the byte that immediately precedes the pending buffer
	// in the overall stream, zero at session start. Matching must not
	// depend on where chunks were cut, so the token boundary before an
	// implicit introducer at offset 0 is judged against this byte.
	prevByte byte
}

// NewScanner returns a Scanner with no pending text and no known file.
func NewScanner() *Scanner {
	return &Scanner{}
}

// OnFrame registers a hook invoked once per matched marker, in match
// order, from inside Feed and Flush.
func (s *Scanner) OnFrame(fn func(Frame)) {
	s.onFrame = fn
}

// Frame returns the most recently matched marker. The second return is
// false until the first marker has been seen.
func (s *Scanner) Frame() (Frame, bool) {
	return s.frame, s.hasFrame
}

// Feed appends chunk to the pending text, consumes every complete marker
// in it, and returns the text to display. Matched markers are part of the
// returned text; only a tail that may still become a marker is held back
// for the next call.
func (s *Scanner) Feed(chunk string) string {
	s.pending += chunk
	return s.drain(false)
}

// Flush returns whatever Feed held back, first resolving a marker that
// was only waiting for more digits to arrive. Call it once when the
// session ends so no output is lost.
func (s *Scanner) Flush() string {
	return s.drain(true)
}

func (s *Scanner) drain(atEOF bool) string {
	var out strings.Builder

	for {
		m, ok := s.nextMatch(atEOF)
		if !ok {
			break
		}

		file := m.file
		if m.implicit {
			file = s.currentFile
		}
		s.currentFile = file
		s.frame = Frame{File: file, Line: m.line}
		s.hasFrame = true

		out.WriteString(s.pending[:m.end])
		s.discard(m.end)

		if s.onFrame != nil {
			s.onFrame(s.frame)
		}
	}

	keep := len(s.pending)
	if !atEOF {
		keep = s.holdbackOffset()
	}
	out.WriteString(s.pending[:keep])
	s.discard(keep)

	return out.String()
}

// discard removes n processed bytes from the front of the pending buffer
// and remembers the byte now preceding it.
func (s *Scanner) discard(n int) {
	if n == 0 {
		return
	}
	s.prevByte = s.pending[n-1]
	s.pending = s.pending[n:]
}

type markerMatch struct {
	start, end int
	implicit   bool
	file       string
	line       int
}

// nextMatch finds the leftmost complete marker in the pending text. At
// equal positions the explicit shape wins. Unless atEOF, a match whose
// numeric token touches the end of the buffer is not complete yet: more
// digits may still arrive.
func (s *Scanner) nextMatch(atEOF bool) (markerMatch, bool) {
	var m markerMatch
	found := false

	if loc := explicitRe.FindStringSubmatchIndex(s.pending); loc != nil {
		line, _ := strconv.Atoi(s.pending[loc[4]:loc[5]])
		m = markerMatch{start: loc[0], end: loc[1], file: s.pending[loc[2]:loc[3]], line: line}
		found = true
	}
	if loc := s.findImplicit(); loc != nil && (!found || loc[0] < m.start) {
		line, _ := strconv.Atoi(s.pending[loc[2]:loc[3]])
		m = markerMatch{start: loc[0], end: loc[1], implicit: true, line: line}
		found = true
	}

	if !found {
		return markerMatch{}, false
	}
	if !atEOF && m.end == len(s.pending) {
		return markerMatch{}, false
	}
	return m, true
}

// findImplicit locates the leftmost implicit match whose introducer
// begins a token. Submatch indexes are relative to the pending buffer.
func (s *Scanner) findImplicit() []int {
	off := 0
	for {
		loc := implicitRe.FindStringSubmatchIndex(s.pending[off:])
		if loc == nil {
			return nil
		}
		for i, v := range loc {
			if v >= 0 {
				loc[i] = v + off
			}
		}
		if s.tokenStart(loc[0]) {
			return loc
		}
		off = loc[0] + 1
	}
}

// tokenStart reports whether offset at in the pending buffer begins a
// token: preceded by nothing yet, a newline, or horizontal whitespace.
func (s *Scanner) tokenStart(at int) bool {
	b := s.prevByte
	if at > 0 {
		b = s.pending[at-1]
	}
	return b == 0 || b == '\n' || b == ' ' || b == '\t'
}

// holdbackOffset returns the offset from which pending text must be
// retained for the next call. Everything before it can no longer become
// part of a marker and is safe to display. Only the explicit shape is
// worth buffering for: an implicit introducer split across chunks is
// treated as plain text.
func (s *Scanner) holdbackOffset() int {
	keep := len(s.pending)

	// A complete match whose digits touch the buffer end was deferred by
	// nextMatch; keep it whole.
	if loc := explicitRe.FindStringIndex(s.pending); loc != nil && loc[1] == len(s.pending) {
		keep = loc[0]
	}
	if loc := s.findImplicit(); loc != nil && loc[1] == len(s.pending) && loc[0] < keep {
		keep = loc[0]
	}

	// An explicit introducer whose line is still open may yet complete.
	// One that has been closed by a newline without matching never will;
	// it is flushed, so display withholding is bounded by one line.
	for off := 0; off < keep; {
		loc := startRe.FindStringIndex(s.pending[off:keep])
		if loc == nil {
			break
		}
		at := off + loc[0]
		if !strings.ContainsRune(s.pending[at:], '\n') {
			keep = at
			break
		}
		off = at + (loc[1] - loc[0])
	}

	// A trailing fragment of "Breakpoint N," may be the first bytes of a
	// marker split mid-introducer.
	if keep == len(s.pending) {
		lineStart := 0
		if i := strings.LastIndexByte(s.pending, '\n'); i >= 0 {
			lineStart = i + 1
		}
		for k := lineStart; k < len(s.pending); k++ {
			if s.pending[k] == 'B' && isStartPrefix(s.pending[k:]) {
				keep = k
				break
			}
		}
	}

	return keep
}

// isStartPrefix reports whether s is a proper prefix of a string matching
// "Breakpoint N," — text that may still grow into an explicit introducer.
func isStartPrefix(s string) bool {
	const word = "Breakpoint "
	if len(s) <= len(word) {
		return strings.HasPrefix(word, s)
	}
	if !strings.HasPrefix(s, word) {
		return false
	}
	for i := len(word); i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

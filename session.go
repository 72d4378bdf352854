package spotter

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/shlex"

	"github.com/mpratt/spotter/internal/procio"
)

const failureCaptureHistory = 3

// Session drives one interactive debugger process: it spawns the
// debugger, feeds every output chunk through a marker Scanner in arrival
// order, accumulates the display transcript, and tracks the current
// frame. One Session owns one process and one Scanner; concurrent
// sessions are fully independent.
type Session struct {
	runner *procio.Runner
	opts   options

	mu            sync.Mutex
	scanner       *Scanner
	output        strings.Builder
	pendingEcho   string
	pendingFrames []Frame
	lastSendMark  int
	closed        bool

	// cbMu serializes frame callback delivery across goroutines.
	cbMu sync.Mutex
}

// Start launches the debugger from a shell-style command line and begins
// scanning its output. The caller owns the returned Session and should
// Close it when the debug session ends.
func Start(commandLine string, userOpts ...Option) (*Session, error) {
	opts := defaultOptions()
	for _, o := range userOpts {
		o(&opts)
	}

	argv, err := shlex.Split(commandLine)
	if err != nil {
		return nil, fmt.Errorf("spotter: start: parsing command line: %w", err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("spotter: start: empty command line")
	}

	sess := &Session{
		opts:    opts,
		scanner: NewScanner(),
	}
	sess.scanner.OnFrame(func(f Frame) {
		sess.pendingFrames = append(sess.pendingFrames, f)
	})

	runner := procio.New(argv[0], argv[1:], procio.Config{Dir: opts.dir, Env: opts.env})
	if err := runner.Start(opts.ctx, sess.ingest); err != nil {
		return nil, fmt.Errorf("spotter: start: %w", err)
	}
	sess.runner = runner

	return sess, nil
}

// ingest is the single dispatch point for debugger output: one call per
// chunk, in arrival order, from the runner's reader goroutine. Queued
// command echo is prepended first, the way a pty would coalesce the echo
// with the response it provoked — the stepping marker shape depends on
// the echoed command and the printed line number being scanned together.
func (s *Session) ingest(chunk string) {
	s.mu.Lock()
	if s.pendingEcho != "" {
		chunk = s.pendingEcho + chunk
		s.pendingEcho = ""
	}
	text := s.scanner.Feed(chunk)
	s.output.WriteString(text)
	frames := s.takeFrames()
	s.mu.Unlock()

	s.deliverFrames(frames)
}

func (s *Session) takeFrames() []Frame {
	frames := s.pendingFrames
	s.pendingFrames = nil
	return frames
}

func (s *Session) deliverFrames(frames []Frame) {
	if s.opts.onFrame == nil || len(frames) == 0 {
		return
	}
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	for _, f := range frames {
		s.opts.onFrame(f)
	}
}

// Call looks up the named command in the session's command table,
// expands its template against the current frame and the call arguments,
// and sends the result to the debugger.
func (s *Session) Call(name Command, callOpts ...CallOption) error {
	var args callArgs
	for _, o := range callOpts {
		o(&args)
	}

	s.mu.Lock()
	tmpl, ok := s.opts.commands[name]
	frame := s.scanner.frame
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("spotter: call: unknown command %q", name)
	}

	return s.SendLine(expandTemplate(tmpl, frame, args))
}

// SendLine writes one raw command line to the debugger's stdin. Escape
// hatch for commands outside the table. Unless echo is disabled, the
// line is also queued for the scanner so the transcript reads like an
// interactive terminal session.
func (s *Session) SendLine(line string) error {
	s.mu.Lock()
	if !s.opts.noEcho {
		s.pendingEcho += line + "\n"
	}
	// WaitReady must see output beyond this mark: a prompt already on
	// screen does not mean the command we are about to send is done.
	s.lastSendMark = s.output.Len() + len(s.pendingEcho)
	s.mu.Unlock()

	if err := s.runner.Send(line); err != nil {
		return fmt.Errorf("spotter: send: %w", err)
	}
	return nil
}

// Frame returns the most recent location marker. The second return is
// false until the debugger has reported a stop. Frame.File may be empty
// when a stepping stop arrived before any breakpoint report; hosts
// should take no navigation action in that case.
func (s *Session) Frame() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanner.Frame()
}

// Output captures the display transcript produced so far.
func (s *Session) Output() *Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	return NewTranscript(s.output.String())
}

// WaitFor polls the transcript until the matcher succeeds or the timeout
// expires. On success it returns the matching Transcript. On timeout or
// unexpected process exit it returns an error describing what was
// expected along with recent transcript captures.
func (s *Session) WaitFor(m Matcher, wopts ...WaitOption) (*Transcript, error) {
	timeout, pollInterval, err := s.waitParams("wait-for", wopts)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(timeout)
	lastDesc := "matcher condition"
	recent := make([]*Transcript, 0, failureCaptureHistory)

	for {
		tr := s.Output()
		recent = appendRecentCaptures(recent, tr, failureCaptureHistory)
		ok, desc := m(tr)
		lastDesc = desc
		if ok {
			return tr, nil
		}

		if !s.runner.Alive() {
			// Drain held-back text so the final capture is complete.
			s.flushScanner()
			tr = s.Output()
			recent = appendRecentCaptures(recent, tr, failureCaptureHistory)
			if ok, desc = m(tr); ok {
				return tr, nil
			}
			lastDesc = desc
			return nil, fmt.Errorf("spotter: wait-for: process exited unexpectedly (status %d)\n    waiting for: %s\n    recent output captures (oldest to newest):\n%s",
				s.runner.ExitCode(), lastDesc, formatRecentCaptures(recent))
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("spotter: wait-for: timed out after %v\n    waiting for: %s\n    recent output captures (oldest to newest):\n%s",
				timeout, lastDesc, formatRecentCaptures(recent))
		}

		time.Sleep(pollInterval)
	}
}

// WaitReady waits until the debugger has produced output since the last
// command was sent and is back at its prompt, meaning that command has
// finished executing.
func (s *Session) WaitReady(wopts ...WaitOption) error {
	s.mu.Lock()
	mark := s.lastSendMark
	s.mu.Unlock()

	prompt := AtPrompt(s.opts.prompt)
	_, err := s.WaitFor(func(tr *Transcript) (bool, string) {
		ok, desc := prompt(tr)
		return ok && tr.Len() > mark, desc
	}, wopts...)
	return err
}

// WaitExit waits for the debugger process to exit and returns its exit
// code. Held-back scanner text is flushed into the transcript first, so
// the transcript is complete afterward.
func (s *Session) WaitExit(wopts ...WaitOption) (int, error) {
	timeout, _, err := s.waitParams("wait-exit", wopts)
	if err != nil {
		return 0, err
	}

	select {
	case <-s.runner.Done():
		s.flushScanner()
		return s.runner.ExitCode(), nil
	case <-time.After(timeout):
		return 0, fmt.Errorf("spotter: wait-exit: timed out after %v\n    process still running\n    last output:\n%s",
			timeout, formatCaptureBox(s.Output()))
	}
}

// Close kills the debugger process and flushes whatever the scanner was
// still holding, so the transcript ends up containing every byte the
// process wrote. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.runner.Kill()
	<-s.runner.Done()
	s.flushScanner()
	if err != nil {
		return fmt.Errorf("spotter: close: %w", err)
	}
	return nil
}

// flushScanner drains queued echo and held-back scanner text into the
// transcript. Safe to call more than once.
func (s *Session) flushScanner() {
	s.mu.Lock()
	if s.pendingEcho != "" {
		s.output.WriteString(s.scanner.Feed(s.pendingEcho))
		s.pendingEcho = ""
	}
	s.output.WriteString(s.scanner.Flush())
	frames := s.takeFrames()
	s.mu.Unlock()

	s.deliverFrames(frames)
}

func (s *Session) waitParams(op string, wopts []WaitOption) (timeout, pollInterval time.Duration, err error) {
	wo := waitOptions{}
	for _, o := range wopts {
		o(&wo)
	}

	timeout = s.opts.timeout
	if wo.timeout > 0 {
		timeout = wo.timeout
	} else if wo.timeout < 0 {
		return 0, 0, fmt.Errorf("spotter: %s: negative timeout: %v", op, wo.timeout)
	}

	pollInterval = s.opts.pollInterval
	if wo.pollInterval > 0 {
		pollInterval = wo.pollInterval
		if pollInterval < minPollInterval {
			pollInterval = minPollInterval
		}
	} else if wo.pollInterval < 0 {
		return 0, 0, fmt.Errorf("spotter: %s: negative poll interval: %v", op, wo.pollInterval)
	}

	return timeout, pollInterval, nil
}

func appendRecentCaptures(captures []*Transcript, tr *Transcript, max int) []*Transcript {
	if tr == nil {
		return captures
	}
	captures = append(captures, tr)
	if len(captures) > max {
		captures = captures[len(captures)-max:]
	}
	return captures
}

func formatRecentCaptures(captures []*Transcript) string {
	if len(captures) == 0 {
		return "    (no output captured)"
	}

	var b strings.Builder
	for i, tr := range captures {
		fmt.Fprintf(&b, "    capture %d/%d:\n%s", i+1, len(captures), formatCaptureBox(tr))
		if i < len(captures)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// formatCaptureBox formats the tail of a transcript with a box border
// for error messages.
func formatCaptureBox(tr *Transcript) string {
	if tr == nil || tr.Len() == 0 {
		return "    (no output captured)"
	}

	const maxBoxLines = 12
	lines := tr.Lines()
	if len(lines) > maxBoxLines {
		lines = lines[len(lines)-maxBoxLines:]
	}

	width := 40
	for _, l := range lines {
		if len(l) > width {
			width = len(l)
		}
	}

	var b strings.Builder
	border := strings.Repeat("\u2500", width)

	fmt.Fprintf(&b, "    \u250c%s\u2510\n", border)
	for _, line := range lines {
		if len(line) < width {
			line += strings.Repeat(" ", width-len(line))
		}
		fmt.Fprintf(&b, "    \u2502%s\u2502\n", line)
	}
	fmt.Fprintf(&b, "    \u2514%s\u2518", border)

	return b.String()
}

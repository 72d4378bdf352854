// Package procio runs an interactive child process with line-oriented
// stdin and a single merged stdout+stderr stream delivered to a callback
// in arrival-order chunks. It is internal to the spotter package.
package procio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
)

const readChunkSize = 4096

// Runner manages one child process.
type Runner struct {
	path string
	args []string
	cfg  Config

	mu      sync.Mutex
	started bool
	cmd     *exec.Cmd
	stdin   io.WriteCloser

	done     chan struct{}
	exitCode atomic.Int32
}

// Config holds process startup settings.
type Config struct {
	// Dir is the working directory. Empty means inherit.
	Dir string
	// Env entries in "KEY=VALUE" form, appended to the parent environment.
	Env []string
}

// New creates a Runner for the given program. Nothing is started until
// Start is called.
func New(path string, args []string, cfg Config) *Runner {
	r := &Runner{
		path: path,
		args: args,
		cfg:  cfg,
		done: make(chan struct{}),
	}
	r.exitCode.Store(-1)
	return r
}

// Start launches the process and begins delivering output chunks to
// onChunk from a single goroutine, in the order the process wrote them.
// Stdout and stderr share one pipe so their interleaving is preserved.
// Cancelling ctx kills the process.
func (r *Runner) Start(ctx context.Context, onChunk func(string)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return &Error{Op: "start", Err: errors.New("already started")}
	}

	if ctx == nil {
		ctx = context.Background()
	}
	cmd := exec.CommandContext(ctx, r.path, r.args...)
	cmd.Dir = r.cfg.Dir
	if len(r.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), r.cfg.Env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &Error{Op: "start", Err: err}
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		stdin.Close()
		return &Error{Op: "start", Err: err}
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		stdin.Close()
		pr.Close()
		pw.Close()
		return &Error{Op: "start", Err: err}
	}
	// The child holds the write end now; closing ours makes the reader
	// see EOF when the child exits.
	pw.Close()

	r.cmd = cmd
	r.stdin = stdin
	r.started = true

	go r.pump(pr, onChunk)
	return nil
}

// pump reads output chunks until EOF, then reaps the process. done is
// closed only after the final chunk has been delivered.
func (r *Runner) pump(pr *os.File, onChunk func(string)) {
	buf := make([]byte, readChunkSize)
	for {
		n, err := pr.Read(buf)
		if n > 0 {
			onChunk(string(buf[:n]))
		}
		if err != nil {
			break
		}
	}
	pr.Close()

	code := 0
	if err := r.cmd.Wait(); err != nil {
		code = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
	}
	r.exitCode.Store(int32(code))
	close(r.done)
}

// Send writes one line to the process's stdin, appending a newline.
func (r *Runner) Send(line string) error {
	if !r.Alive() {
		return &Error{Op: "send", Err: errors.New("process not running")}
	}
	if _, err := io.WriteString(r.stdin, line+"\n"); err != nil {
		return &Error{Op: "send", Err: err}
	}
	return nil
}

// Alive reports whether the process has been started and not yet exited.
func (r *Runner) Alive() bool {
	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if !started {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

// ExitCode returns the exit code. It is -1 while the process is running
// and -1 after a signal-terminated exit, matching exec.ExitError.
func (r *Runner) ExitCode() int {
	return int(r.exitCode.Load())
}

// Done is closed after the process has exited and all of its output has
// been delivered.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Kill closes stdin and terminates the process. It is a no-op once the
// process has exited.
func (r *Runner) Kill() error {
	if !r.Alive() {
		return nil
	}
	r.stdin.Close()
	if err := r.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return &Error{Op: "kill", Err: err}
	}
	return nil
}

// Path returns the program path the Runner was created with.
func (r *Runner) Path() string {
	return r.path
}

// Error represents a process operation failure.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("procio %s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

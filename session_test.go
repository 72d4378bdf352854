package spotter_test

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mpratt/spotter"
)

// testbinPath is the debugger fixture binary, built once in TestMain.
var testbinPath string

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "spotter-testbin-")
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating temp dir: %v\n", err)
		os.Exit(1)
	}

	testbinPath = filepath.Join(dir, "testbin")
	cmd := exec.Command("go", "build", "-o", testbinPath, "./internal/testbin")
	if out, err := cmd.CombinedOutput(); err != nil {
		fmt.Fprintf(os.Stderr, "building testbin: %v\n%s", err, out)
		os.RemoveAll(dir)
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

// startSession starts the fixture debugger and waits for its first
// prompt. Close is registered as cleanup.
func startSession(t *testing.T, opts ...spotter.Option) *spotter.Session {
	t.Helper()

	sess, err := spotter.Start(testbinPath, opts...)
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	t.Cleanup(func() { sess.Close() })

	if err := sess.WaitReady(); err != nil {
		t.Fatalf("waiting for first prompt: %v", err)
	}
	return sess
}

// mustCall dispatches a command and waits for the debugger to return to
// its prompt.
func mustCall(t *testing.T, sess *spotter.Session, name spotter.Command, opts ...spotter.CallOption) {
	t.Helper()
	if err := sess.Call(name, opts...); err != nil {
		t.Fatalf("Call(%q) failed: %v", name, err)
	}
	if err := sess.WaitReady(); err != nil {
		t.Fatalf("waiting after %q: %v", name, err)
	}
}

func eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestStartupPrompt(t *testing.T) {
	sess := startSession(t)

	if got := sess.Output().LastLine(); got != "gawk> " {
		t.Errorf("LastLine() = %q, want %q", got, "gawk> ")
	}
}

func TestRunReportsBreakpointFrame(t *testing.T) {
	sess := startSession(t)

	mustCall(t, sess, spotter.Run)

	f, ok := sess.Frame()
	if !ok || f != (spotter.Frame{File: "prog.awk", Line: 5}) {
		t.Errorf("Frame() = %v, %v; want {prog.awk 5}, true", f, ok)
	}
	if tr := sess.Output(); !tr.Contains("Breakpoint 1, main() at `prog.awk':5") {
		t.Errorf("transcript missing breakpoint report:\n%s", tr)
	}
}

func TestStepInheritsFileFromBreakpoint(t *testing.T) {
	sess := startSession(t)

	mustCall(t, sess, spotter.Run)
	mustCall(t, sess, spotter.Next)

	if f, _ := sess.Frame(); f != (spotter.Frame{File: "prog.awk", Line: 6}) {
		t.Errorf("Frame() = %v, want {prog.awk 6}", f)
	}
}

func TestStepBeforeRunHasNoFile(t *testing.T) {
	sess := startSession(t)

	mustCall(t, sess, spotter.Next)

	f, ok := sess.Frame()
	if !ok || f != (spotter.Frame{File: "", Line: 6}) {
		t.Errorf("Frame() = %v, %v; want {_ 6}, true", f, ok)
	}
}

func TestContinueStopsAtRuleBanner(t *testing.T) {
	sess := startSession(t)

	mustCall(t, sess, spotter.Run)
	mustCall(t, sess, spotter.Continue)

	if f, _ := sess.Frame(); f != (spotter.Frame{File: "prog.awk", Line: 10}) {
		t.Errorf("Frame() = %v, want {prog.awk 10}", f)
	}
}

func TestBreakConfirmationIsNotAStop(t *testing.T) {
	sess := startSession(t)

	mustCall(t, sess, spotter.Run)
	mustCall(t, sess, spotter.Break)

	if tr := sess.Output(); !tr.Contains("Breakpoint 2 set at file") {
		t.Fatalf("transcript missing set confirmation:\n%s", tr)
	}
	// The frame still points at the stop reported by run.
	if f, _ := sess.Frame(); f != (spotter.Frame{File: "prog.awk", Line: 5}) {
		t.Errorf("Frame() = %v, want {prog.awk 5}", f)
	}
}

func TestOnFrameCallback(t *testing.T) {
	var mu sync.Mutex
	var frames []spotter.Frame

	sess := startSession(t, spotter.WithOnFrame(func(f spotter.Frame) {
		mu.Lock()
		frames = append(frames, f)
		mu.Unlock()
	}))

	mustCall(t, sess, spotter.Run)

	eventually(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(frames) >= 1
	}, "no frame callback after run")

	mu.Lock()
	first := frames[0]
	mu.Unlock()
	if first != (spotter.Frame{File: "prog.awk", Line: 5}) {
		t.Errorf("first frame = %v, want {prog.awk 5}", first)
	}
}

func TestMarkerSplitAcrossProcessWrites(t *testing.T) {
	sess := startSession(t)

	if err := sess.SendLine("drip"); err != nil {
		t.Fatalf("SendLine() failed: %v", err)
	}
	if err := sess.WaitReady(); err != nil {
		t.Fatalf("waiting after drip: %v", err)
	}

	if f, _ := sess.Frame(); f != (spotter.Frame{File: "prog.awk", Line: 9}) {
		t.Errorf("Frame() = %v, want {prog.awk 9}", f)
	}
	// The marker text shows up exactly once despite the split write.
	tr := sess.Output()
	if got := strings.Count(tr.String(), "Breakpoint 1, main() at `prog.awk':9"); got != 1 {
		t.Errorf("marker appears %d times, want 1:\n%s", got, tr)
	}
}

func TestPrintExpression(t *testing.T) {
	sess := startSession(t)

	if err := sess.Call(spotter.Print, spotter.Expr("total")); err != nil {
		t.Fatalf("Call(print) failed: %v", err)
	}
	if _, err := sess.WaitFor(spotter.Text("total = 42")); err != nil {
		t.Fatalf("WaitFor() failed: %v", err)
	}
}

func TestCallExpandsCount(t *testing.T) {
	sess := startSession(t)

	mustCall(t, sess, spotter.Next, spotter.Count(2))

	if tr := sess.Output(); !tr.Contains("next 2") {
		t.Errorf("transcript missing expanded command:\n%s", tr)
	}
}

func TestCallUnknownCommand(t *testing.T) {
	sess := startSession(t)

	err := sess.Call(spotter.Command("bogus"))
	if err == nil || !strings.Contains(err.Error(), `unknown command "bogus"`) {
		t.Errorf("Call(bogus) error = %v, want unknown command", err)
	}
}

func TestWithoutEcho(t *testing.T) {
	sess := startSession(t, spotter.WithoutEcho())

	mustCall(t, sess, spotter.Next)

	// Without the echoed command the stepping marker shape never forms.
	if f, ok := sess.Frame(); ok {
		t.Errorf("Frame() = %v, %v; want no frame", f, ok)
	}
	if tr := sess.Output(); tr.Contains("next") {
		t.Errorf("transcript contains echoed command:\n%s", tr)
	}
}

func TestWaitForTimeout(t *testing.T) {
	sess := startSession(t)

	_, err := sess.WaitFor(spotter.Text("never appears"), spotter.WithinTimeout(100*time.Millisecond))
	if err == nil {
		t.Fatal("WaitFor() succeeded, want timeout")
	}
	for _, want := range []string{"timed out after", `output to contain "never appears"`, "recent output captures"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q:\n%v", want, err)
		}
	}
}

func TestWaitForNegativeTimeout(t *testing.T) {
	sess := startSession(t)

	if _, err := sess.WaitFor(spotter.Empty(), spotter.WithinTimeout(-time.Second)); err == nil ||
		!strings.Contains(err.Error(), "negative timeout") {
		t.Errorf("error = %v, want negative timeout", err)
	}
	if _, err := sess.WaitFor(spotter.Empty(), spotter.WithWaitPollInterval(-time.Millisecond)); err == nil ||
		!strings.Contains(err.Error(), "negative poll interval") {
		t.Errorf("error = %v, want negative poll interval", err)
	}
}

func TestWaitForProcessExit(t *testing.T) {
	sess := startSession(t)

	if err := sess.SendLine("quit"); err != nil {
		t.Fatalf("SendLine() failed: %v", err)
	}

	_, err := sess.WaitFor(spotter.Text("never appears"))
	if err == nil || !strings.Contains(err.Error(), "process exited unexpectedly (status 0)") {
		t.Errorf("error = %v, want process exit diagnostics", err)
	}
}

func TestWaitExit(t *testing.T) {
	t.Run("clean", func(t *testing.T) {
		sess := startSession(t)
		if err := sess.SendLine("quit"); err != nil {
			t.Fatalf("SendLine() failed: %v", err)
		}
		code, err := sess.WaitExit()
		if err != nil || code != 0 {
			t.Errorf("WaitExit() = %d, %v; want 0, nil", code, err)
		}
	})

	t.Run("failure", func(t *testing.T) {
		sess := startSession(t)
		if err := sess.SendLine("fail"); err != nil {
			t.Fatalf("SendLine() failed: %v", err)
		}
		code, err := sess.WaitExit()
		if err != nil || code != 1 {
			t.Errorf("WaitExit() = %d, %v; want 1, nil", code, err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		sess := startSession(t)
		_, err := sess.WaitExit(spotter.WithinTimeout(50 * time.Millisecond))
		if err == nil || !strings.Contains(err.Error(), "timed out after") {
			t.Errorf("error = %v, want timeout", err)
		}
	})
}

func TestCloseIsIdempotent(t *testing.T) {
	sess := startSession(t)

	if err := sess.Close(); err != nil {
		t.Fatalf("first Close() failed: %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("second Close() failed: %v", err)
	}
}

func TestCloseFlushesHeldText(t *testing.T) {
	sess := startSession(t)

	if err := sess.SendLine("drip"); err != nil {
		t.Fatalf("SendLine() failed: %v", err)
	}
	// Give the first half of the split marker time to arrive, then close
	// before the second half does.
	time.Sleep(30 * time.Millisecond)
	if err := sess.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	if tr := sess.Output(); !tr.Contains("Breakpoint 1,") {
		t.Errorf("held-back text lost on close:\n%s", tr)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	a := startSession(t)
	b := startSession(t)

	mustCall(t, a, spotter.Run)

	if f, _ := a.Frame(); f != (spotter.Frame{File: "prog.awk", Line: 5}) {
		t.Errorf("session a Frame() = %v, want {prog.awk 5}", f)
	}
	if f, ok := b.Frame(); ok {
		t.Errorf("session b Frame() = %v, %v; want no frame", f, ok)
	}
}

func TestStartErrors(t *testing.T) {
	if _, err := spotter.Start(""); err == nil ||
		!strings.Contains(err.Error(), "empty command line") {
		t.Errorf("Start(\"\") error = %v, want empty command line", err)
	}

	if _, err := spotter.Start("'unclosed quote"); err == nil {
		t.Error("Start() with unbalanced quote succeeded, want parse error")
	}

	if _, err := spotter.Start("/nonexistent/debugger-binary"); err == nil {
		t.Error("Start() with missing binary succeeded, want error")
	}
}

func TestSnapshot(t *testing.T) {
	sess := startSession(t)

	if err := sess.Call(spotter.Print, spotter.Expr("total")); err != nil {
		t.Fatalf("Call(print) failed: %v", err)
	}
	if err := sess.WaitReady(); err != nil {
		t.Fatalf("waiting after print: %v", err)
	}

	sess.MatchSnapshot(t, "print-total")
}

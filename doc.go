// Package spotter drives line-oriented interactive debuggers and tracks
// where execution is stopped.
//
// spotter runs a real debugger (the gawk debugger, by default) as a
// child process, sends it commands, and incrementally scans its output
// for location markers — the "Breakpoint 1, main() at `prog.awk':5"
// reports and the line numbers printed after stepping commands. All
// non-marker text passes through unchanged for display, and the latest
// (file, line) pair is exposed as the current frame so a host program
// can navigate a source view to it.
//
// # Quick Start
//
//	sess, err := spotter.Start(spotter.GawkCommandLine("prog.awk"),
//		spotter.WithOnFrame(func(f spotter.Frame) {
//			editor.ShowSource(f.File, f.Line)
//		}))
//	if err != nil {
//		return err
//	}
//	defer sess.Close()
//
//	sess.WaitReady()
//	sess.Call(spotter.Break)
//	sess.Call(spotter.Run)
//
// # Marker Scanning
//
// The core of the package is [Scanner], an incremental parser that
// consumes process output chunk by chunk. Chunk boundaries are arbitrary:
// a marker split across chunks is held back until it can be resolved,
// while everything else is returned for display immediately. Two marker
// shapes are recognized:
//
//   - explicit: a breakpoint report carrying its own file name
//   - implicit: a stepping command (next, step, n, s, or the
//     "Stopping in Rule ..." banner) followed by the new line number,
//     inheriting the last known file
//
// An implicit marker seen before any explicit one produces a frame with
// an empty File; hosts should treat that as "no known file".
//
// [Scanner] can be used on its own; [Session] wires it to a real
// process.
//
// # Session Lifecycle
//
// [Start] splits a shell-style command line, launches the debugger with
// stdout and stderr merged into one ordered stream, and feeds every
// chunk to the scanner from a single goroutine. Commands sent with
// [Session.Call] or [Session.SendLine] are echoed into the transcript,
// the way a terminal would, unless [WithoutEcho] is set. [Session.Close]
// kills the process and flushes held-back text so no output is lost.
//
// # Command Tables
//
// [Session.Call] dispatches named operations (break, step, next,
// continue, print, ...) through a [CommandSet] of literal templates.
// Templates reference the current frame with %f and %l, a count
// argument with %p, and an expression with %e. [GawkCommands] is the
// default table; [WithCommands] adapts the session to another debugger.
//
// # Waiting and Matchers
//
// [Session.WaitFor] polls the transcript until a [Matcher] succeeds or a
// timeout expires; [Session.WaitReady] waits for the debugger's prompt.
//
// Wait behavior:
//
//   - Defaults: 5s timeout, 50ms poll interval
//   - Per-session overrides: [WithTimeout], [WithPollInterval]
//   - Per-call overrides: [WithinTimeout], [WithWaitPollInterval]
//   - Poll intervals under 10ms are clamped to 10ms
//   - Negative timeout or poll values return an error immediately
//   - If the process exits early, waits fail with diagnostics
//
// Built-in matchers include [Text], [Regexp], [Line], [LineContains],
// [AtPrompt], [Not], [All], [Any], and [Empty].
//
// # Snapshots
//
// [Session.MatchSnapshot] and [Transcript.MatchSnapshot] compare the
// transcript to golden files under testdata. Set SPOTTER_UPDATE=1 to
// create or update golden files.
//
// # Diagnostics
//
// On wait failures, spotter reports:
//
//   - expected matcher description
//   - timeout or exit details
//   - multiple recent transcript captures (oldest to newest)
//
// This keeps failures actionable without extra debug tooling.
package spotter

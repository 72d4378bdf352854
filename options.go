package spotter

import (
	"context"
	"time"
)

type options struct {
	dir          string
	env          []string
	ctx          context.Context
	timeout      time.Duration
	pollInterval time.Duration
	prompt       string
	commands     CommandSet
	onFrame      func(Frame)
	noEcho       bool
}

// Option configures a Session created by Start.
type Option func(*options)

// WithDir sets the working directory for the debugger process.
func WithDir(dir string) Option {
	return func(o *options) {
		o.dir = dir
	}
}

// WithEnv appends environment variables to the process environment.
// Each entry should be in "KEY=VALUE" format.
func WithEnv(env ...string) Option {
	return func(o *options) {
		o.env = append(o.env, env...)
	}
}

// WithContext binds the debugger process to ctx: cancelling it kills the
// process. Defaults to context.Background.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		o.ctx = ctx
	}
}

// WithTimeout sets the default timeout for WaitFor, WaitReady, and WaitExit.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithPollInterval sets the default polling interval for WaitFor and WaitReady.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		o.pollInterval = d
	}
}

// WithPrompt sets the regular expression WaitReady uses to recognize the
// debugger's interactive prompt on the final transcript line.
// Defaults to GawkPrompt.
func WithPrompt(pattern string) Option {
	return func(o *options) {
		o.prompt = pattern
	}
}

// WithCommands replaces the command table used by Call.
// Defaults to GawkCommands.
func WithCommands(cs CommandSet) Option {
	return func(o *options) {
		o.commands = cs
	}
}

// WithOnFrame registers a callback invoked once per location marker, in
// match order. The callback runs outside the session lock and may call
// back into the session.
func WithOnFrame(fn func(Frame)) Option {
	return func(o *options) {
		o.onFrame = fn
	}
}

// WithoutEcho disables feeding sent command lines through the scanner.
// Without echo the stepping marker shape never forms, so the current
// frame only updates on breakpoint reports and banner stops.
func WithoutEcho() Option {
	return func(o *options) {
		o.noEcho = true
	}
}

// WaitOption configures a single WaitFor, WaitReady, or WaitExit call.
type WaitOption func(*waitOptions)

type waitOptions struct {
	timeout      time.Duration
	pollInterval time.Duration
}

// WithinTimeout overrides the call timeout for a single wait call.
// A value of 0 means "use defaults". Negative values cause an error.
func WithinTimeout(d time.Duration) WaitOption {
	return func(o *waitOptions) {
		o.timeout = d
	}
}

// WithWaitPollInterval overrides the polling interval for a single wait
// call. A value of 0 means "use defaults". Negative values cause an
// error. Positive values under 10ms are clamped to 10ms.
func WithWaitPollInterval(d time.Duration) WaitOption {
	return func(o *waitOptions) {
		o.pollInterval = d
	}
}

const (
	defaultTimeout      = 5 * time.Second
	defaultPollInterval = 50 * time.Millisecond
	minPollInterval     = 10 * time.Millisecond
)

func defaultOptions() options {
	return options{
		timeout:      defaultTimeout,
		pollInterval: defaultPollInterval,
		prompt:       GawkPrompt,
		commands:     GawkCommands(),
	}
}

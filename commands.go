package spotter

import (
	"strconv"
	"strings"
)

// Command names an operation in a debugger command table.
type Command string

// The fixed set of operations a Session can dispatch by name.
const (
	Break    Command = "break"
	TBreak   Command = "tbreak"
	Clear    Command = "clear"
	Step     Command = "step"
	StepI    Command = "stepi"
	Next     Command = "next"
	NextI    Command = "nexti"
	Continue Command = "continue"
	Finish   Command = "finish"
	Up       Command = "up"
	Down     Command = "down"
	Print    Command = "print"
	Run      Command = "run"
	Until    Command = "until"
	Eval     Command = "eval"
)

// CommandSet maps command names to the literal template strings a
// debugger understands. Templates are sent verbatim after placeholder
// expansion:
//
//	%f  current file
//	%l  current line
//	%p  numeric count argument (empty when none was given)
//	%e  expression argument
//	%%  literal percent
//
// Trailing spaces left by empty substitutions are trimmed.
type CommandSet map[Command]string

// CallOption supplies arguments to a single Call.
type CallOption func(*callArgs)

type callArgs struct {
	count    int
	hasCount bool
	expr     string
}

// Count sets the numeric argument substituted for %p.
func Count(n int) CallOption {
	return func(a *callArgs) {
		a.count = n
		a.hasCount = true
	}
}

// Expr sets the expression substituted for %e.
func Expr(e string) CallOption {
	return func(a *callArgs) {
		a.expr = e
	}
}

// expandTemplate substitutes template placeholders against the current
// frame and call arguments. An unknown %-sequence is left as is.
func expandTemplate(tmpl string, frame Frame, args callArgs) string {
	var b strings.Builder
	for i := 0; i < len(tmpl); i++ {
		if tmpl[i] != '%' || i+1 == len(tmpl) {
			b.WriteByte(tmpl[i])
			continue
		}
		i++
		switch tmpl[i] {
		case 'f':
			b.WriteString(frame.File)
		case 'l':
			if frame.Line > 0 {
				b.WriteString(strconv.Itoa(frame.Line))
			}
		case 'p':
			if args.hasCount {
				b.WriteString(strconv.Itoa(args.count))
			}
		case 'e':
			b.WriteString(args.expr)
		case '%':
			b.WriteByte('%')
		default:
			b.WriteByte('%')
			b.WriteByte(tmpl[i])
		}
	}
	return strings.TrimRight(b.String(), " ")
}

package spotter

import "strings"

// GawkPrompt matches the gawk debugger's interactive prompt. It is the
// default prompt pattern for new sessions.
const GawkPrompt = `^gawk> $`

// GawkCommands returns the command table for the gawk debugger.
func GawkCommands() CommandSet {
	return CommandSet{
		Break:    "break %f:%l",
		TBreak:   "tbreak %f:%l",
		Clear:    "clear %f:%l",
		Step:     "step %p",
		StepI:    "stepi %p",
		Next:     "next %p",
		NextI:    "nexti %p",
		Continue: "continue",
		Finish:   "finish",
		Up:       "up %p",
		Down:     "down %p",
		Print:    "print %e",
		Run:      "run",
		Until:    "until %l",
		Eval:     "eval %e",
	}
}

// GawkCommandLine builds the command line that starts the gawk debugger
// on an awk program:
//
//	gawk --debug -f prog.awk [args...]
//
// Arguments containing whitespace are quoted so Start can split the
// result back into the same words.
func GawkCommandLine(program string, args ...string) string {
	parts := []string{"gawk", "--debug", "-f", quoteWord(program)}
	for _, a := range args {
		parts = append(parts, quoteWord(a))
	}
	return strings.Join(parts, " ")
}

func quoteWord(w string) string {
	if w != "" && !strings.ContainsAny(w, " \t'\"") {
		return w
	}
	return "'" + strings.ReplaceAll(w, "'", `'\''`) + "'"
}

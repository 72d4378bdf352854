// Command testbin is a minimal fixture imitating the gawk debugger for
// testing the spotter library. It reads commands from stdin line by line
// and prints gawk-shaped responses, ending each with a "gawk> " prompt.
//
// Behavior:
//   - On startup, prints the "gawk> " prompt
//   - "run": reports hitting breakpoint 1 at `prog.awk':5
//   - "next"/"n"/"step"/"s": advances one line and prints the new line
//     number followed by a fake source line
//   - "continue"/"c": prints "Stopping in Rule ..." and a line five
//     further on
//   - "break FILE:N": confirms with a "Breakpoint N set" line, which is
//     a confirmation, not a stop report
//   - "print EXPR": prints a fake value for the expression
//   - "drip": emits a breakpoint report in two delayed writes, split in
//     the middle of the marker
//   - "quit": exits with status 0
//   - "fail": exits with status 1
//   - anything else: prints an error line
//
// Each response is issued as a single write so the chunk a reader sees
// is predictable, the way a terminal coalesces a burst of output.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

func main() {
	const file = "prog.awk"
	line := 5
	breakpoints := 1

	reply := func(format string, args ...any) {
		io.WriteString(os.Stdout, fmt.Sprintf(format, args...)+"gawk> ")
	}

	reply("")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(input)
		cmd := ""
		if len(fields) > 0 {
			cmd = fields[0]
		}

		switch cmd {
		case "quit", "q":
			os.Exit(0)

		case "fail":
			os.Exit(1)

		case "run", "r":
			line = 5
			reply("Starting program:\nBreakpoint 1, main() at `%s':%d\n%d\ttotal += $1\n", file, line, line)

		case "next", "n", "step", "s":
			line++
			reply("%d\ttotal += $1\n", line)

		case "continue", "c":
			line += 5
			reply("Stopping in Rule ...\n%d\tprint total\n", line)

		case "break", "b":
			breakpoints++
			target := file
			if len(fields) > 1 {
				target = strings.SplitN(fields[1], ":", 2)[0]
			}
			reply("Breakpoint %d set at file `%s', line %d\n", breakpoints, target, line)

		case "print", "p":
			expr := strings.TrimSpace(strings.TrimPrefix(input, cmd))
			reply("%s = 42\n", expr)

		case "drip":
			line = 9
			io.WriteString(os.Stdout, "Breakpoint 1,")
			time.Sleep(80 * time.Millisecond)
			reply(" main() at `%s':%d\n", file, line)

		default:
			reply("error: unknown command %q\n", input)
		}
	}
}

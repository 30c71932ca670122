package main

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/briefbot/briefbot/internal/brief"
)

// terminalSink renders pipeline progress to stderr. On a TTY it uses
// carriage-return updates for the enrichment counter; piped output gets
// plain lines. Quiet mode suppresses everything except errors so JSON
// output stays clean when stderr is redirected alongside stdout.
type terminalSink struct {
	out   *os.File
	tty   bool
	quiet bool
}

func newTerminalSink(out *os.File, quiet bool) *terminalSink {
	return &terminalSink{
		out:   out,
		tty:   term.IsTerminal(int(out.Fd())),
		quiet: quiet,
	}
}

func (t *terminalSink) printf(format string, args ...any) {
	if t.quiet {
		return
	}
	fmt.Fprintf(t.out, format, args...)
}

func (t *terminalSink) StartChannel(ch brief.Channel) {
	t.printf("searching %s...\n", ch)
}

func (t *terminalSink) EndChannel(ch brief.Channel, items int) {
	t.printf("%s: %d items\n", ch, items)
}

func (t *terminalSink) StartEnrich(total int) {
	t.printf("enriching %d reddit threads\n", total)
}

func (t *terminalSink) UpdateEnrich(current, total int) {
	if t.quiet {
		return
	}
	if t.tty {
		fmt.Fprintf(t.out, "\r  thread %d/%d", current, total)
		if current == total {
			fmt.Fprintln(t.out)
		}
		return
	}
	fmt.Fprintf(t.out, "  thread %d/%d\n", current, total)
}

func (t *terminalSink) EndEnrich()       {}
func (t *terminalSink) StartProcessing() { t.printf("ranking...\n") }
func (t *terminalSink) EndProcessing()   {}

func (t *terminalSink) ShowError(msg string) {
	fmt.Fprintf(t.out, "warn: %s\n", msg)
}

func (t *terminalSink) ShowComplete(items int, elapsed time.Duration) {
	t.printf("done: %d items in %.1fs\n", items, elapsed.Seconds())
}

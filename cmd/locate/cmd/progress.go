package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/dshills/locate/internal/indexer"
)

// progressPrinter renders rebuild progress. On a terminal the running totals
// overwrite one line; otherwise each batch gets its own line.
type progressPrinter struct {
	w   io.Writer
	tty bool
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w, tty: isTerminal(w)}
}

// isTerminal reports whether w is a terminal
func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// Report is an indexer.ProgressFunc
func (p *progressPrinter) Report(ev indexer.Progress) {
	switch ev.Kind {
	case indexer.ProgressBatchInserted:
		line := fmt.Sprintf("  %s files, %s folders", humanize.Comma(ev.TotalFiles), humanize.Comma(ev.TotalDirs))
		if p.tty {
			fmt.Fprintf(p.w, "\r%s", line)
			return
		}
		fmt.Fprintln(p.w, line)
	case indexer.ProgressCompleted:
		if p.tty {
			// clear the running line
			fmt.Fprint(p.w, "\r\033[K")
		}
	}
}

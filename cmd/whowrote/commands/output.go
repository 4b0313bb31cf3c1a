// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bartekus/whowrote/cmd/whowrote/internal/clierr"
	"github.com/bartekus/whowrote/internal/projection"
	"github.com/bartekus/whowrote/internal/report"
	"github.com/bartekus/whowrote/internal/tally"
)

// stdoutPath as a report path writes the report to stdout.
const stdoutPath = "-"

const (
	flagMarkdown   = "markdown"
	flagRows       = "rows"
	flagSort       = "sort"
	flagFormat     = "format"
	flagShowErrors = "show-errors"
)

var reportBindings = []binding{
	{key: "output.report", flag: flagMarkdown},
	{key: "report.rows", flag: flagRows},
	{key: "report.sort", flag: flagSort},
	{key: "report.format", flag: flagFormat},
	{key: "report.show_errors", flag: flagShowErrors},
}

func addReportFlags(f *pflag.FlagSet) {
	f.StringP(flagMarkdown, "m", "whowrote.md", "report output file, - for stdout")
	f.StringP(flagRows, "r", "5", "user rows per directory: a number, all or none")
	f.StringP(flagSort, "s", "lines", "rank users by lines, files or revs (or 0, 1, 2)")
	f.String(flagFormat, string(report.FormatMarkdown), "report format: markdown or text")
	f.Bool(flagShowErrors, false, "list each directory's errors and exclusions in the report")
}

// writeReport renders root to path, or to out when path is "-".
func writeReport(out io.Writer, path string, root *tally.Node, opts report.Options) error {
	if path == stdoutPath {
		if err := report.Render(out, root, opts); err != nil {
			return clierr.Wrap(clierr.ExitFailure, "writing report", err)
		}
		return nil
	}

	rendered, err := report.String(root, opts)
	if err != nil {
		return clierr.Wrap(clierr.ExitFailure, "rendering report", err)
	}
	if err := projection.AtomicWrite(path, []byte(rendered)); err != nil {
		return clierr.Wrap(clierr.ExitFailure, "writing report", err)
	}
	return nil
}

// status prints colored one-line messages for the user.
type status struct {
	w io.Writer
}

func (s status) ok(format string, args ...any) {
	_, _ = color.New(color.FgGreen).Fprintf(s.w, format+"\n", args...)
}

func (s status) warn(format string, args ...any) {
	_, _ = color.New(color.FgYellow).Fprintf(s.w, format+"\n", args...)
}

// progress is a spinner counting handled files. It is nil when w is not a
// terminal.
type progress struct {
	bar *progressbar.ProgressBar
}

func newProgress(w io.Writer) *progress {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil
	}

	return &progress{bar: progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("annotating"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)}
}

func (p *progress) tick(string) {
	_ = p.bar.Add(1)
}

func (p *progress) finish() {
	if p == nil {
		return
	}
	_ = p.bar.Finish()
}

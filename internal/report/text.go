// SPDX-License-Identifier: AGPL-3.0-or-later

package report

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/bartekus/whowrote/internal/tally"
)

func textSection(n *tally.Node, opts Options) string {
	var b strings.Builder
	b.WriteString(n.Path + "\n")

	if e := n.Effective(); e != nil && e.Lines > 0 {
		b.WriteString(caption(e, opts) + "\n")

		tbl := table.NewWriter()
		tbl.SetStyle(table.StyleLight)
		tbl.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, Align: text.AlignRight},
			{Number: 3, Align: text.AlignRight},
			{Number: 4, Align: text.AlignRight},
		})
		tbl.AppendHeader(table.Row{"User", "Lines", "Files", "Revisions"})

		rows, ok := sectionRows(e, opts)
		for _, r := range rows {
			tbl.AppendRow(table.Row{
				r.user,
				textCell(r.pLines, r.lines),
				textCell(r.pFiles, r.files),
				textCell(r.pRevs, r.revisions),
			})
		}
		tbl.AppendFooter(table.Row{
			"Totals",
			humanize.Comma(int64(e.Lines)),
			humanize.Comma(int64(e.Files)),
			humanize.Comma(int64(e.Revisions.Size())),
		})

		b.WriteString(tbl.Render() + "\n")
		if !ok {
			b.WriteString("Error: " + degradedNote(e) + "\n")
		}
	}

	if opts.ShowErrors && len(n.Errors) > 0 {
		b.WriteString("Errors:\n")
		for _, msg := range n.Errors {
			b.WriteString("  " + msg + "\n")
		}
	}

	b.WriteString("\n")
	return b.String()
}

func textCell(pct, value int) string {
	return fmt.Sprintf("%s (%d%%)", humanize.Comma(int64(value)), pct)
}

// SPDX-License-Identifier: AGPL-3.0-or-later

package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bartekus/whowrote/internal/projection"
	"github.com/bartekus/whowrote/internal/tally"
)

var (
	markdownHeaders = []string{"User", "Lines (%)", "Files (%)", "Revisions (%)"}
	markdownAlign   = []projection.Align{
		projection.AlignLeft,
		projection.AlignRight,
		projection.AlignRight,
		projection.AlignRight,
	}
)

func markdownSection(n *tally.Node, opts Options) string {
	var b strings.Builder
	b.WriteString(projection.RenderHeader(1, n.Path))

	if e := n.Effective(); e != nil && e.Lines > 0 {
		fmt.Fprintf(&b, "_(%s)_\n\n", caption(e, opts))

		rows, ok := sectionRows(e, opts)
		cells := [][]string{{
			"**Totals**",
			"**" + strconv.Itoa(e.Lines) + "**",
			"**" + strconv.Itoa(e.Files) + "**",
			"**" + strconv.Itoa(e.Revisions.Size()) + "**",
		}}
		for _, r := range rows {
			cells = append(cells, []string{
				r.user,
				markdownCell(r.pLines, r.lines),
				markdownCell(r.pFiles, r.files),
				markdownCell(r.pRevs, r.revisions),
			})
		}
		b.WriteString(projection.RenderTable(markdownHeaders, markdownAlign, cells))
		if !ok {
			fmt.Fprintf(&b, "\n**Error:** %s\n", degradedNote(e))
		}
		b.WriteString("\n")
	}

	if opts.ShowErrors && len(n.Errors) > 0 {
		b.WriteString("**Errors:**\n\n")
		b.WriteString(projection.RenderList(n.Errors))
		b.WriteString("\n")
	}

	return b.String()
}

func markdownCell(pct, value int) string {
	return fmt.Sprintf("_(%d%%)_  %d", pct, value)
}

// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/bartekus/whowrote/cmd/whowrote/internal/clierr"
	"github.com/bartekus/whowrote/internal/store"
	"github.com/bartekus/whowrote/internal/tally"
)

const flagIn = "in"

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the report of a previously saved tree",
		Long: `Load a tree written by "whowrote scan -o" (or the JSON of older whowrote
versions) and render its per-directory report without running any blame.`,
		Example: `  whowrote report -i whowrote.json -m - -s files -r all
  whowrote report -i tree.yaml --format text --show-errors -m report.txt`,
		Args: cobra.NoArgs,
		RunE: runReport,
	}

	cmd.Flags().StringP(flagIn, "i", "", "saved tree (.json, .yaml or .yml, required)")
	addReportFlags(cmd.Flags())

	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	in, _ := cmd.Flags().GetString(flagIn)
	if in == "" {
		return clierr.New(clierr.ExitUsage, "report: --in is required")
	}
	if _, err := os.Stat(in); err != nil {
		return clierr.Usage("report: reading input", err)
	}

	cfg, err := loadConfig(cmd, reportBindings)
	if err != nil {
		return err
	}
	opts, err := cfg.ReportOptions()
	if err != nil {
		return clierr.Usage("report", err)
	}

	root, err := store.Load(in)
	if err != nil {
		if errors.Is(err, store.ErrUnknownFormat) {
			return clierr.Usage("report", err)
		}
		return clierr.Wrap(clierr.ExitFailure, "report: loading tree", err)
	}
	if root.Stats == nil {
		tally.Annotate(root)
	}

	if cfg.Output.Report == "" {
		cfg.Output.Report = stdoutPath
	}
	if err := writeReport(cmd.OutOrStdout(), cfg.Output.Report, root, opts); err != nil {
		return err
	}
	if cfg.Output.Report != stdoutPath {
		status{w: cmd.ErrOrStderr()}.ok("Report written to %s", cfg.Output.Report)
	}
	return nil
}

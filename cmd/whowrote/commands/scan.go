// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/bartekus/whowrote/cmd/whowrote/internal/clierr"
	"github.com/bartekus/whowrote/internal/blame"
	"github.com/bartekus/whowrote/internal/config"
	"github.com/bartekus/whowrote/internal/scanner"
	"github.com/bartekus/whowrote/internal/store"
	"github.com/bartekus/whowrote/internal/tally"
)

const (
	flagDir         = "dir"
	flagOut         = "out"
	flagBackend     = "backend"
	flagCommand     = "command"
	flagUsername    = "username"
	flagPassword    = "password"
	flagTimeout     = "timeout"
	flagExclude     = "exclude"
	flagExcludeExt  = "exclude-ext"
	flagExcludeGlob = "exclude-glob"
	flagSkipBinary  = "skip-binary"
)

var scanBindings = []binding{
	{key: "output.tree", flag: flagOut},
	{key: "backend", flag: flagBackend},
	{key: "username", flag: flagUsername},
	{key: "password", flag: flagPassword},
	{key: "timeout", flag: flagTimeout},
	{key: "exclude.binary", flag: flagSkipBinary},
}

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Blame every file under a directory and write the tree and report",
		Long: `Walk a working copy, annotate every file that is not excluded, roll the
per-user statistics up the tree, then save the annotated tree (-o) and the
rendered report (-m).

Files that cannot be annotated are recorded in their directory's errors and
the scan goes on. Interrupting a scan still writes what was collected.`,
		Example: `  whowrote scan -d ~/src/project
  whowrote scan -d . --backend git -o tree.yaml -m - -r all
  whowrote scan -d . --backend command --command "hg annotate -u -n {}"`,
		Args: cobra.NoArgs,
		RunE: runScan,
	}

	f := cmd.Flags()
	f.StringP(flagDir, "d", "", "working copy directory to scan (required)")
	f.StringP(flagOut, "o", "whowrote.json", "annotated tree output file (.json, .yaml or .yml)")
	addReportFlags(f)
	f.String(flagBackend, config.BackendSVN, "annotation backend: svn, git or command")
	f.String(flagCommand, "", `annotation command for --backend command; {} is replaced by the file path`)
	f.String(flagUsername, "", "svn username")
	f.String(flagPassword, "", "svn password (never cached)")
	f.Duration(flagTimeout, blame.DefaultTimeout, "per-file annotation timeout, 0 disables")
	f.StringArray(flagExclude, nil, "additional file or directory name to skip (repeatable)")
	f.StringArray(flagExcludeExt, nil, "additional file extension to exclude (repeatable)")
	f.StringArray(flagExcludeGlob, nil, "glob relative to --dir to skip, ** allowed (repeatable)")
	f.Bool(flagSkipBinary, false, "exclude files whose content looks binary")

	return cmd
}

func runScan(cmd *cobra.Command, _ []string) error {
	dir, _ := cmd.Flags().GetString(flagDir)
	if dir == "" {
		return clierr.New(clierr.ExitUsage, "scan: --dir is required")
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return clierr.Newf(clierr.ExitUsage, "scan: -d %s is not a valid directory", dir)
	}

	cfg, err := loadConfig(cmd, append(slices.Clone(scanBindings), reportBindings...))
	if err != nil {
		return err
	}
	applyScanFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return clierr.Usage("scan", err)
	}

	opts, err := cfg.ReportOptions()
	if err != nil {
		return clierr.Usage("scan", err)
	}
	annotator, err := cfg.Annotator()
	if err != nil {
		return clierr.Usage("scan", err)
	}

	s := scanner.New(annotator, cfg.FilterOptions())
	bar := newProgress(cmd.ErrOrStderr())
	if bar != nil {
		s.OnFile = bar.tick
	}

	slog.Info("scanning", "dir", dir, "backend", cfg.Backend)
	root, err := s.Walk(cmd.Context(), dir)
	bar.finish()
	if err != nil {
		return clierr.Wrap(clierr.ExitUsage, "scan", err)
	}
	tally.Annotate(root)

	if cfg.Output.Tree != "" {
		if err := store.Save(cfg.Output.Tree, root); err != nil {
			return clierr.Wrap(clierr.ExitFailure, "scan: writing tree", err)
		}
	}
	if cfg.Output.Report != "" {
		if err := writeReport(cmd.OutOrStdout(), cfg.Output.Report, root, opts); err != nil {
			return err
		}
	}

	summarize(status{w: cmd.ErrOrStderr()}, root, cfg)

	if err := cmd.Context().Err(); err != nil {
		return clierr.Wrap(clierr.ExitFailure, "scan interrupted, partial results written", err)
	}
	return nil
}

// applyScanFlags layers the flags viper cannot bind directly.
func applyScanFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()

	if f.Changed(flagCommand) {
		command, _ := f.GetString(flagCommand)
		cfg.Command = strings.Fields(command)
		if !f.Changed(flagBackend) {
			cfg.Backend = config.BackendCommand
		}
	}

	names, _ := f.GetStringArray(flagExclude)
	exts, _ := f.GetStringArray(flagExcludeExt)
	globs, _ := f.GetStringArray(flagExcludeGlob)
	cfg.Exclude.Names = append(cfg.Exclude.Names, names...)
	cfg.Exclude.Extensions = append(cfg.Exclude.Extensions, exts...)
	cfg.Exclude.Globs = append(cfg.Exclude.Globs, globs...)
}

func summarize(s status, root *tally.Node, cfg *config.Config) {
	var failed, excluded int
	_ = root.Visit(func(n *tally.Node) error {
		skipped := lo.CountBy(n.Errors, tally.IsExclusion)
		excluded += skipped
		failed += len(n.Errors) - skipped
		return nil
	})

	total := root.Effective()
	s.ok("Annotated %s lines by %d users in %s",
		humanize.Comma(int64(total.Lines)), total.NumUsers(), root.Path)
	if excluded > 0 {
		s.ok("Excluded or skipped %d entries", excluded)
	}
	if failed > 0 {
		s.warn("%d entries could not be annotated (see errors in %s)", failed, describeOutput(cfg.Output.Tree))
	}
	if cfg.Output.Report != "" && cfg.Output.Report != stdoutPath {
		s.ok("Report written to %s", cfg.Output.Report)
	}
}

func describeOutput(path string) string {
	if path == "" {
		return "the report with --show-errors"
	}
	return path
}

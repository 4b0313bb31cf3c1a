// SPDX-License-Identifier: AGPL-3.0-or-later

/*
whowrote - who wrote what, directory by directory.
It runs a blame over every file of a working copy, rolls per-user line, file and revision counts up the directory tree, and renders a ranked report.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package commands contains the Cobra commands of the whowrote CLI.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bartekus/whowrote/cmd/whowrote/internal/clierr"
	"github.com/bartekus/whowrote/internal/config"
)

// version is overridden at build time with -ldflags "-X ...commands.version=v1.2.3".
var version = "0.0.0-dev"

const (
	flagConfig  = "config"
	flagVerbose = "verbose"
	flagLogJSON = "log-json"
)

// binding ties a config key to the flag that overrides it.
type binding struct {
	key  string
	flag string
}

var globalBindings = []binding{
	{key: "logging.json", flag: flagLogJSON},
}

// NewRootCmd constructs the whowrote root Cobra command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whowrote",
		Short: "Who wrote what: per-directory blame statistics",
		Long: `whowrote runs a blame (svn annotate, git blame or any command printing
"<revision> <user> ..." lines) over every file of a working copy, rolls
per-user line, file and revision counts up the directory tree, saves the
annotated tree and renders a ranked per-directory report.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			verbose, _ := cmd.Flags().GetBool(flagVerbose)
			slog.SetDefault(buildLogger(cmd.ErrOrStderr(), cfg.Logging, verbose))
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().String(flagConfig, "", "config file (default ./whowrote.yaml or ~/.config/whowrote/whowrote.yaml)")
	cmd.PersistentFlags().BoolP(flagVerbose, "v", false, "enable debug logging")
	cmd.PersistentFlags().Bool(flagLogJSON, false, "log as JSON")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newReportCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of whowrote",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			v := os.Getenv("WHOWROTE_VERSION")
			if v == "" {
				v = version
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "whowrote version %s\n", v)
		},
	}
}

// loadConfig reads the configuration with the given flags layered on top.
func loadConfig(cmd *cobra.Command, bindings []binding) (*config.Config, error) {
	path, _ := cmd.Flags().GetString(flagConfig)

	cfg, err := config.Load(path, func(v *viper.Viper) error {
		for _, b := range append(slices.Clone(globalBindings), bindings...) {
			f := cmd.Flags().Lookup(b.flag)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(b.key, f); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, clierr.Usage(cmd.Name()+": loading configuration", err)
	}
	return cfg, nil
}

func buildLogger(w io.Writer, cfg config.LoggingConfig, verbose bool) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.JSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

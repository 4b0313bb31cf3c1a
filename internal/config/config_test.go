// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartekus/whowrote/internal/blame"
	"github.com/bartekus/whowrote/internal/report"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, BackendSVN, cfg.Backend)
	assert.Equal(t, blame.DefaultTimeout, cfg.Timeout)
	assert.Equal(t, "whowrote.json", cfg.Output.Tree)
	assert.Equal(t, "whowrote.md", cfg.Output.Report)
	assert.Contains(t, cfg.Exclude.Names, ".svn")
	assert.Contains(t, cfg.Exclude.Extensions, ".png")

	opts, err := cfg.ReportOptions()
	require.NoError(t, err)
	assert.Equal(t, report.DefaultOptions(), opts)
}

func TestLoad_File(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "whowrote.yaml")
	content := `
backend: git
timeout: 30s
exclude:
  globs: ["vendor/**"]
  binary: true
report:
  rows: all
  sort: files
  show_errors: true
output:
  tree: tree.yaml
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, BackendGit, cfg.Backend)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"vendor/**"}, cfg.Exclude.Globs)
	assert.True(t, cfg.Exclude.Binary)
	assert.Equal(t, "tree.yaml", cfg.Output.Tree)

	opts, err := cfg.ReportOptions()
	require.NoError(t, err)
	assert.Equal(t, report.AllRows, opts.Rows)
	assert.Equal(t, report.SortFiles, opts.Sort)
	assert.True(t, opts.ShowErrors)

	filter := cfg.FilterOptions()
	assert.True(t, filter.SkipBinary)
	assert.Contains(t, filter.ExcludeNames, ".git", "defaults survive a partial exclude section")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestLoad_Env(t *testing.T) {
	isolate(t)
	t.Setenv("WHOWROTE_REPORT_ROWS", "none")
	t.Setenv("WHOWROTE_TIMEOUT", "5s")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Timeout)
	opts, err := cfg.ReportOptions()
	require.NoError(t, err)
	assert.Equal(t, report.NoRows, opts.Rows)
}

func TestLoad_BindFlags(t *testing.T) {
	isolate(t)
	t.Setenv("WHOWROTE_REPORT_SORT", "files")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("sort", "lines", "")
	require.NoError(t, flags.Parse([]string{"--sort", "revs"}))

	cfg, err := Load("", func(v *viper.Viper) error {
		return v.BindPFlag("report.sort", flags.Lookup("sort"))
	})
	require.NoError(t, err)
	assert.Equal(t, "revs", cfg.Report.Sort, "flags win over the environment")
}

func TestValidate(t *testing.T) {
	isolate(t)
	valid := func() *Config {
		cfg, err := Load("", nil)
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{name: "backend", mutate: func(c *Config) { c.Backend = "cvs" }, want: ErrInvalidBackend},
		{name: "command missing", mutate: func(c *Config) { c.Backend = BackendCommand }, want: ErrMissingCommand},
		{name: "username only", mutate: func(c *Config) { c.Username = "me" }, want: ErrCredentials},
		{name: "password only", mutate: func(c *Config) { c.Password = "secret" }, want: ErrCredentials},
		{name: "timeout", mutate: func(c *Config) { c.Timeout = -time.Second }, want: ErrInvalidTimeout},
		{name: "glob", mutate: func(c *Config) { c.Exclude.Globs = []string{"[oops"} }, want: ErrInvalidGlob},
		{name: "tree path", mutate: func(c *Config) { c.Output.Tree = "tree.txt" }, want: ErrInvalidTreePath},
		{name: "rows", mutate: func(c *Config) { c.Report.Rows = "-3" }, want: ErrInvalidRows},
		{name: "sort", mutate: func(c *Config) { c.Report.Sort = "authors" }, want: ErrInvalidSort},
		{name: "format", mutate: func(c *Config) { c.Report.Format = "html" }, want: ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestAnnotator(t *testing.T) {
	cfg := &Config{Backend: BackendSVN, Username: "me", Password: "secret", Timeout: time.Minute}

	a, err := cfg.Annotator()
	require.NoError(t, err)
	svn, ok := a.(*blame.CommandAnnotator)
	require.True(t, ok)
	assert.Equal(t, "svn", svn.Name)
	assert.Contains(t, svn.Args, "--no-auth-cache")
	assert.Equal(t, time.Minute, svn.Timeout)

	cfg = &Config{Backend: BackendCommand, Command: []string{"hg", "annotate", "-u", "{}"}}
	a, err = cfg.Annotator()
	require.NoError(t, err)
	cmd, ok := a.(*blame.CommandAnnotator)
	require.True(t, ok)
	assert.Equal(t, "hg", cmd.Name)

	cfg = &Config{Backend: BackendGit}
	a, err = cfg.Annotator()
	require.NoError(t, err)
	assert.IsType(t, &blame.GitAnnotator{}, a)

	_, err = (&Config{Backend: "cvs"}).Annotator()
	assert.ErrorIs(t, err, ErrInvalidBackend)
}

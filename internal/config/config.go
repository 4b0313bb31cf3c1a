// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads whowrote settings from defaults, a config file,
// WHOWROTE_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/bartekus/whowrote/internal/blame"
	"github.com/bartekus/whowrote/internal/report"
	"github.com/bartekus/whowrote/internal/scanner"
	"github.com/bartekus/whowrote/internal/store"
)

// Sentinel validation errors.
var (
	ErrInvalidBackend  = errors.New("invalid annotation backend")
	ErrMissingCommand  = errors.New("command backend needs a command")
	ErrCredentials     = errors.New("username and password must be given together")
	ErrInvalidTimeout  = errors.New("timeout must not be negative")
	ErrInvalidRows     = errors.New("invalid report rows")
	ErrInvalidSort     = errors.New("invalid report sort")
	ErrInvalidFormat   = errors.New("invalid report format")
	ErrInvalidGlob     = errors.New("invalid exclude glob")
	ErrInvalidTreePath = errors.New("invalid tree output path")
)

// Annotation backends.
const (
	BackendSVN     = "svn"
	BackendGit     = "git"
	BackendCommand = "command"
)

// Config holds all whowrote settings.
type Config struct {
	Backend  string        `mapstructure:"backend"`
	Command  []string      `mapstructure:"command"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`

	Exclude ExcludeConfig `mapstructure:"exclude"`
	Report  ReportConfig  `mapstructure:"report"`
	Output  OutputConfig  `mapstructure:"output"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ExcludeConfig selects what the walk skips.
type ExcludeConfig struct {
	Names      []string `mapstructure:"names"`
	Extensions []string `mapstructure:"extensions"`
	Globs      []string `mapstructure:"globs"`
	Binary     bool     `mapstructure:"binary"`
}

// ReportConfig holds rendering settings as given by the user.
type ReportConfig struct {
	Rows       string `mapstructure:"rows"`
	Sort       string `mapstructure:"sort"`
	Format     string `mapstructure:"format"`
	ShowErrors bool   `mapstructure:"show_errors"`
}

// OutputConfig names the files a scan writes.
type OutputConfig struct {
	Tree   string `mapstructure:"tree"`
	Report string `mapstructure:"report"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Load reads configuration from configPath, or from whowrote.yaml in the
// working directory or ~/.config/whowrote when configPath is empty. bind,
// if set, is called before reading so callers can layer flags on top.
func Load(configPath string, bind func(*viper.Viper) error) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("whowrote")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "whowrote"))
		}
	}

	v.SetEnvPrefix("WHOWROTE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if bind != nil {
		if err := bind(v); err != nil {
			return nil, fmt.Errorf("binding flags: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendSVN)
	v.SetDefault("command", []string{})
	v.SetDefault("username", "")
	v.SetDefault("password", "")
	v.SetDefault("timeout", blame.DefaultTimeout.String())

	v.SetDefault("exclude.names", scanner.DefaultExcludeNames())
	v.SetDefault("exclude.extensions", scanner.DefaultExcludeExtensions())
	v.SetDefault("exclude.globs", []string{})
	v.SetDefault("exclude.binary", false)

	v.SetDefault("report.rows", "5")
	v.SetDefault("report.sort", "lines")
	v.SetDefault("report.format", string(report.FormatMarkdown))
	v.SetDefault("report.show_errors", false)

	v.SetDefault("output.tree", "whowrote.json")
	v.SetDefault("output.report", "whowrote.md")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.json", false)
}

// Validate checks everything a scan needs.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSVN, BackendGit:
	case BackendCommand:
		if len(c.Command) == 0 {
			return ErrMissingCommand
		}
	default:
		return fmt.Errorf("%w: %q (want svn, git or command)", ErrInvalidBackend, c.Backend)
	}

	if (c.Username == "") != (c.Password == "") {
		return ErrCredentials
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, c.Timeout)
	}
	if err := c.FilterOptions().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidGlob, err)
	}
	if c.Output.Tree != "" {
		if _, err := store.FormatFor(c.Output.Tree); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTreePath, err)
		}
	}

	_, err := c.ReportOptions()
	return err
}

// ReportOptions parses the report settings.
func (c *Config) ReportOptions() (report.Options, error) {
	rows, err := report.ParseRowLimit(c.Report.Rows)
	if err != nil {
		return report.Options{}, fmt.Errorf("%w: %w", ErrInvalidRows, err)
	}
	sortKey, err := report.ParseSortKey(c.Report.Sort)
	if err != nil {
		return report.Options{}, fmt.Errorf("%w: %w", ErrInvalidSort, err)
	}
	format, err := report.ParseFormat(c.Report.Format)
	if err != nil {
		return report.Options{}, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}

	return report.Options{
		Sort:       sortKey,
		Rows:       rows,
		Format:     format,
		ShowErrors: c.Report.ShowErrors,
	}, nil
}

// FilterOptions returns the walk exclusions.
func (c *Config) FilterOptions() scanner.FilterOptions {
	return scanner.FilterOptions{
		ExcludeNames:      c.Exclude.Names,
		ExcludeExtensions: c.Exclude.Extensions,
		ExcludeGlobs:      c.Exclude.Globs,
		SkipBinary:        c.Exclude.Binary,
	}
}

// Annotator builds the configured annotation backend.
func (c *Config) Annotator() (blame.Annotator, error) {
	switch c.Backend {
	case BackendSVN:
		creds := blame.Credentials{Username: c.Username, Password: c.Password}
		return blame.NewSVNAnnotator(creds, c.Timeout), nil
	case BackendGit:
		return blame.NewGitAnnotator(c.Timeout), nil
	case BackendCommand:
		if len(c.Command) == 0 {
			return nil, ErrMissingCommand
		}
		return blame.NewCommandAnnotator(c.Command, c.Timeout), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidBackend, c.Backend)
}

package logging

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
)

// Profile selects the baseline logger settings before env overrides.
type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Env holds logger overrides read from the environment.
type Env struct {
	Level     string `env:"POPS_LOG_LEVEL"`
	Timestamp string `env:"POPS_LOG_TIMESTAMP"`
	Format    string `env:"POPS_LOG_FORMAT"`
}

// Options describes a logger before construction.
type Options struct {
	Level     log.Level
	Timestamp bool
	Formatter log.Formatter
	Prefix    string
}

// DefaultOptions returns the baseline options for a profile.
func DefaultOptions(profile Profile) Options {
	switch profile {
	case ProfileTest:
		return Options{Level: log.DebugLevel, Formatter: log.TextFormatter}
	default:
		return Options{Level: log.InfoLevel, Timestamp: true, Formatter: log.TextFormatter, Prefix: "pops"}
	}
}

// ReadEnv parses overrides from the process environment.
func ReadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// ReadEnvFrom parses overrides from an explicit variable map.
func ReadEnvFrom(vars map[string]string) (Env, error) {
	var e Env
	if err := env.ParseWithOptions(&e, env.Options{Environment: vars}); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// Apply layers the overrides onto opts.
func (e Env) Apply(opts Options) (Options, error) {
	if raw := strings.TrimSpace(e.Level); raw != "" {
		lvl, err := parseLevel(raw)
		if err != nil {
			return opts, err
		}
		opts.Level = lvl
	}
	if raw := strings.TrimSpace(e.Timestamp); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, fmt.Errorf("log timestamp: %w", err)
		}
		opts.Timestamp = v
	}
	switch strings.ToLower(strings.TrimSpace(e.Format)) {
	case "":
	case "text":
		opts.Formatter = log.TextFormatter
	case "json":
		opts.Formatter = log.JSONFormatter
	case "logfmt":
		opts.Formatter = log.LogfmtFormatter
	default:
		return opts, fmt.Errorf("unknown log format %q", e.Format)
	}
	return opts, nil
}

func parseLevel(raw string) (log.Level, error) {
	switch strings.ToLower(raw) {
	case "warning":
		return log.WarnLevel, nil
	case "disabled", "off", "none":
		return log.FatalLevel + 1, nil
	}
	lvl, err := log.ParseLevel(raw)
	if err != nil {
		return log.InfoLevel, fmt.Errorf("log level: %w", err)
	}
	return lvl, nil
}

// New builds a logger writing to w.
func New(w io.Writer, opts Options) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           opts.Level,
		ReportTimestamp: opts.Timestamp,
		TimeFormat:      time.RFC3339,
		Formatter:       opts.Formatter,
		Prefix:          opts.Prefix,
	})
}

// ConfigureRuntime builds the stderr logger for command-line tools and makes
// it the package default.
func ConfigureRuntime() (*log.Logger, error) {
	e, err := ReadEnv()
	if err != nil {
		return nil, err
	}
	opts, err := e.Apply(DefaultOptions(ProfileRuntime))
	if err != nil {
		return nil, err
	}
	logger := New(os.Stderr, opts)
	log.SetDefault(logger)
	return logger, nil
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel + 1})
}

// Package config loads the TOML configuration of the multibuffer tool: the
// ambient settings (logging, watching, metrics) and the manifest of excerpts
// to compose.
//
// A minimal file:
//
//	[log]
//	level = "debug"
//
//	[[excerpts]]
//	path = "internal/rope/rope.go"
//	lines = [[10, 20], [40, 45]]
//
//	[[excerpts]]
//	path = "README.md"
//	bytes = [[0, 120]]
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/multibuffer/internal/logging"
)

// Config is the complete configuration.
type Config struct {
	Log         LogConfig         `toml:"log"`
	MultiBuffer MultiBufferConfig `toml:"multibuffer"`
	Workspace   WorkspaceConfig   `toml:"workspace"`
	Watch       WatchConfig       `toml:"watch"`
	Metrics     MetricsConfig     `toml:"metrics"`
	Excerpts    []ExcerptConfig   `toml:"excerpts"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level     string `toml:"level"`
	Format    string `toml:"format"`
	AddSource bool   `toml:"add_source"`
}

// MultiBufferConfig configures the composition engine.
type MultiBufferConfig struct {
	// CheckInvariants overrides the build default when set.
	CheckInvariants *bool `toml:"check_invariants"`
}

// WorkspaceConfig configures file-backed documents.
type WorkspaceConfig struct {
	// Root is the directory relative excerpt paths resolve against.
	Root string `toml:"root"`
	// MaxConcurrentOpens bounds parallel file reads.
	MaxConcurrentOpens int `toml:"max_concurrent_opens"`
}

// WatchConfig configures file watching.
type WatchConfig struct {
	Enabled    bool `toml:"enabled"`
	BufferSize int  `toml:"buffer_size"`
	// DebounceMillis coalesces bursts of events for the same file.
	DebounceMillis int `toml:"debounce_ms"`
}

// MetricsConfig configures the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr    string `toml:"addr"`
	Runtime bool   `toml:"runtime"`
}

// ExcerptConfig names ranges of one file to include.
//
// Bytes holds [start, end) byte offsets. Lines holds [first, last] line
// numbers, 1-indexed and inclusive; the excerpt ends after the last line's
// newline.
type ExcerptConfig struct {
	Path  string    `toml:"path"`
	Bytes [][]int64 `toml:"bytes"`
	Lines [][]int64 `toml:"lines"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: string(logging.FormatText),
		},
		Workspace: WorkspaceConfig{
			Root:               ".",
			MaxConcurrentOpens: 8,
		},
		Watch: WatchConfig{
			BufferSize:     100,
			DebounceMillis: 50,
		},
	}
}

// Load reads and validates the configuration at path. Settings absent from
// the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return Parse(path, data)
}

// Parse decodes TOML data over the defaults and validates the result.
// source names the data in errors.
func Parse(source string, data []byte) (*Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, newParseError(source, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newParseError(source string, err error) *ParseError {
	pe := &ParseError{Path: source, Message: err.Error(), Err: err}

	var decErr *toml.DecodeError
	var strictErr *toml.StrictMissingError
	switch {
	case errors.As(err, &decErr):
		pe.Line, pe.Column = decErr.Position()
	case errors.As(err, &strictErr) && len(strictErr.Errors) > 0:
		first := strictErr.Errors[0]
		pe.Line, pe.Column = first.Position()
		pe.Message = "unknown setting " + strings.Join(first.Key(), ".")
	}
	return pe
}

// Validate checks every setting and returns all problems joined.
func (c *Config) Validate() error {
	var errs []error
	add := func(field, msg string, value any) {
		errs = append(errs, &ValidationError{Field: field, Message: msg, Value: value})
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("log.level", "must be debug, info, warn or error", c.Log.Level)
	}
	switch logging.Format(c.Log.Format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		add("log.format", "must be text or json", c.Log.Format)
	}
	if c.Workspace.MaxConcurrentOpens < 1 {
		add("workspace.max_concurrent_opens", "must be at least 1", c.Workspace.MaxConcurrentOpens)
	}
	if c.Watch.BufferSize < 1 {
		add("watch.buffer_size", "must be at least 1", c.Watch.BufferSize)
	}
	if c.Watch.DebounceMillis < 0 {
		add("watch.debounce_ms", "must not be negative", c.Watch.DebounceMillis)
	}

	for i, e := range c.Excerpts {
		prefix := fmt.Sprintf("excerpts[%d]", i)
		if e.Path == "" {
			add(prefix+".path", "is required", e.Path)
		}
		if len(e.Bytes) == 0 && len(e.Lines) == 0 {
			add(prefix, "needs bytes or lines", e.Path)
		}
		for j, r := range e.Bytes {
			if len(r) != 2 || r[0] < 0 || (r[1] != -1 && r[1] < r[0]) {
				add(fmt.Sprintf("%s.bytes[%d]", prefix, j), "must be [start, end] with 0 <= start <= end or end = -1", r)
			}
		}
		for j, r := range e.Lines {
			if len(r) != 2 || r[0] < 1 || r[1] < r[0] {
				add(fmt.Sprintf("%s.lines[%d]", prefix, j), "must be [first, last] with 1 <= first <= last", r)
			}
		}
	}
	return errors.Join(errs...)
}

// LoggingConfig converts the [log] section.
func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:     c.Log.Level,
		Format:    logging.Format(c.Log.Format),
		AddSource: c.Log.AddSource,
	}
}

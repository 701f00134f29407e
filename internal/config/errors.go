package config

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrFileNotFound     = errors.New("config file not found")
	ErrValidationFailed = errors.New("validation failed")
)

// ParseError is a TOML syntax or decoding failure in a manifest. Line and
// Column are 1-based; zero means the decoder reported no position.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	where := e.Path
	if e.Line > 0 {
		where += ":" + strconv.Itoa(e.Line)
		if e.Column > 0 {
			where += ":" + strconv.Itoa(e.Column)
		}
	}
	return where + ": " + e.Message
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports one setting that decoded but is unusable. Field
// uses the TOML key path, e.g. "watch.buffer_size" or "excerpts[2].lines".
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s = %v: %s", e.Field, e.Value, e.Message)
}

// Unwrap lets callers match any ValidationError with ErrValidationFailed.
func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

package workspace

import (
	"errors"
	"fmt"
)

var (
	// ErrNotOpen is returned for paths the workspace has no document for.
	ErrNotOpen = errors.New("document not open")
	// ErrAlreadyOpen is returned when a rename target is already open.
	ErrAlreadyOpen = errors.New("document already open")

	ErrIsDirectory  = errors.New("is a directory")
	ErrFileTooLarge = errors.New("exceeds maximum file size")
	ErrBinaryFile   = errors.New("contains binary data")
)

// PathError ties a workspace failure to the operation and absolute path
// that produced it.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

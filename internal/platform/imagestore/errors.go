package imagestore

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyContent is returned when a store call receives zero bytes.
	ErrEmptyContent = errors.New("cannot store empty file")
	// ErrOutsideRoot is returned when a name or ref resolves outside the store root.
	ErrOutsideRoot = errors.New("cannot store file outside the upload directory")
	// ErrInvalidRef is returned for refs that do not carry the store's url prefix.
	ErrInvalidRef = errors.New("invalid image reference")
)

// Error annotates a store failure with the operation and ref involved.
type Error struct {
	Op  string
	Ref string
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return "imagestore error"
	}
	if e.Ref != "" {
		return fmt.Sprintf("imagestore %s %q: %v", e.Op, e.Ref, e.Err)
	}
	return fmt.Sprintf("imagestore %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type BootstrapErrorCode string

const (
	BootstrapErrorInvalidRoot  BootstrapErrorCode = "invalid_root"
	BootstrapErrorCreateFailed BootstrapErrorCode = "create_failed"
	BootstrapErrorNotWritable  BootstrapErrorCode = "not_writable"
)

// BootstrapError reports why the store could not be initialized.
type BootstrapError struct {
	Code  BootstrapErrorCode
	Root  string
	Cause error
}

func (e *BootstrapError) Error() string {
	if e == nil {
		return "image store bootstrap failed"
	}
	return fmt.Sprintf("image store bootstrap failed (code=%s root=%q): %v", e.Code, e.Root, e.Cause)
}

func (e *BootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

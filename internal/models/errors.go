package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies knowledge base failures.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "not_found"
	KindUnsupportedFormat ErrorKind = "unsupported_format"
	KindEmbeddingBackend  ErrorKind = "embedding_backend"
	KindIndexIO           ErrorKind = "index_io"
	KindInvalidInput      ErrorKind = "invalid_input"
)

// Error is a classified error carrying the failed operation and, when relevant, the path.
type Error struct {
	Kind ErrorKind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewError creates a classified error.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// NewPathError creates a classified error for a file path.
func NewPathError(kind ErrorKind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// Sentinels for errors.Is.
var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrUnsupportedFormat = &Error{Kind: KindUnsupportedFormat}
	ErrEmbeddingBackend  = &Error{Kind: KindEmbeddingBackend}
	ErrIndexIO           = &Error{Kind: KindIndexIO}
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
)

// IsRetryable reports whether err is worth retrying. Only embedding backend
// failures (timeouts, throttling, transient server errors) are.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrEmbeddingBackend)
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

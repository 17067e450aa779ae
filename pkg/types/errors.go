package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a per-file failure
type ErrorKind string

const (
	IsomerMathParsingError ErrorKind = "IsomerMathParsingError"
	ReferenceParsingError  ErrorKind = "ReferenceParsingError"
	ParticleParsingError   ErrorKind = "ParticleParsingError"
	AuthorParsingError     ErrorKind = "AuthorParsingError"
	InstituteParsingError  ErrorKind = "InstituteParsingError"
	ReactionParsingError   ErrorKind = "ReactionParsingError"
	BrokenNumberError      ErrorKind = "BrokenNumberError"
	EntryStructureError    ErrorKind = "EntryStructureError"
	UnexpectedError        ErrorKind = "UnexpectedError"
)

// ErrorKinds lists every kind in report order
var ErrorKinds = []ErrorKind{
	IsomerMathParsingError,
	ReferenceParsingError,
	ParticleParsingError,
	AuthorParsingError,
	InstituteParsingError,
	ReactionParsingError,
	BrokenNumberError,
	EntryStructureError,
	UnexpectedError,
}

// EntryError is a failure confined to one entry file
type EntryError struct {
	Kind    ErrorKind
	Path    string // Entry file, relative to the database root
	Message string
	Err     error // Optional underlying cause
}

// NewEntryError creates an EntryError without an underlying cause
func NewEntryError(kind ErrorKind, path, format string, args ...any) *EntryError {
	return &EntryError{Kind: kind, Path: path, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface
func (e *EntryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause
func (e *EntryError) Unwrap() error {
	return e.Err
}

// ClassifyError returns the kind of err; anything that is not an EntryError is unexpected
func ClassifyError(err error) ErrorKind {
	var entryErr *EntryError
	if errors.As(err, &entryErr) {
		return entryErr.Kind
	}
	return UnexpectedError
}

// ErrorRecord is one line of the error log
type ErrorRecord struct {
	Path    string    `json:"path"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// NewErrorRecord captures err for the file at path
func NewErrorRecord(path string, err error) ErrorRecord {
	return ErrorRecord{Path: path, Kind: ClassifyError(err), Message: err.Error()}
}

// Package errors defines the typed error kinds of the error handling
// design (spec §7): each pipeline failure mode gets its own struct with
// Unwrap support, constructed with the operation/path/timestamp context
// that let a caller log and drop without propagating upward. This mirrors
// the teacher's internal/errors package, adapted to the import pipeline's
// failure modes instead of a file-scanning tool's.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrMissingFile is the sentinel for the MissingFile error kind: a source
// file disappeared between request enqueue and parse. Pipeline stage 1
// detects a missing file from its own os.Stat result and does not return
// this sentinel.
var ErrMissingFile = errors.New("source file missing")

// ParseError represents a ParseFailure: the indexer returned an empty set
// for a path. Surfaced as a Diagnostic only; the pipeline continues.
type ParseError struct {
	Path       string
	Underlying error
	Timestamp  time.Time
}

func NewParseError(path string, err error) *ParseError {
	return &ParseError{Path: path, Underlying: err, Timestamp: time.Now()}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse failed for %s: %v", e.Path, e.Underlying)
}

func (e *ParseError) Unwrap() error { return e.Underlying }

// CacheError reports a failed cache write (encode, mkdir or file write)
// from the cache manager's WriteToCache, which returns it to the pipeline
// for logging. A corrupt or version-mismatched cache file is not reported
// with it: the codecs treat that as a cache miss.
type CacheError struct {
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

func NewCacheError(op, path string, err error) *CacheError {
	return &CacheError{Operation: op, Path: path, Underlying: err, Timestamp: time.Now()}
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

func (e *CacheError) Unwrap() error { return e.Underlying }

// ImportError represents a DuplicateImport or DependencyNotFound
// condition: the request is dropped, never propagated.
type ImportError struct {
	Path      string
	Reason    string
	Timestamp time.Time
}

func NewImportError(path, reason string) *ImportError {
	return &ImportError{Path: path, Reason: reason, Timestamp: time.Now()}
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import dropped for %s: %s", e.Path, e.Reason)
}

// ConfigError represents a malformed configuration field.
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
}

func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{Field: field, Value: value, Underlying: err}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %q): %v", e.Field, e.Value, e.Underlying)
}

func (e *ConfigError) Unwrap() error { return e.Underlying }

// MultiError aggregates independent failures (e.g. one per dependency)
// encountered while processing a single pipeline entry.
type MultiError struct {
	Errors []error
}

func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return &MultiError{Errors: filtered}
}

func (e *MultiError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

func (e *MultiError) Unwrap() []error { return e.Errors }

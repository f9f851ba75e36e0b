// Package importerr defines the failure taxonomy shared by every decoder.
//
// Each typed error carries enough context (record index, field, received
// value) to diagnose a rejected batch without re-running it, and matches
// one of the sentinel kinds via errors.Is.
package importerr

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Callers match with errors.Is.
var (
	ErrMalformedInput   = errors.New("malformed input")
	ErrUnrecognizedMode = errors.New("unrecognized mode")
	ErrFieldValidation  = errors.New("field validation failed")
	ErrNormalization    = errors.New("normalization failed")
	ErrFetch            = errors.New("fetch failed")
)

// NoIndex marks errors that are not tied to a single record.
const NoIndex = -1

// MalformedInputError reports that the top-level structure could not be
// recognised. No per-record validation has run when it is returned.
type MalformedInputError struct {
	Format string
	Reason string
	Err    error
}

func (e *MalformedInputError) Error() string {
	msg := fmt.Sprintf("%s: malformed input: %s", e.Format, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedInputError) Unwrap() error        { return e.Err }
func (e *MalformedInputError) Is(target error) bool { return target == ErrMalformedInput }

// Malformed builds a MalformedInputError.
func Malformed(format, reason string, err error) *MalformedInputError {
	return &MalformedInputError{Format: format, Reason: reason, Err: err}
}

// UnrecognizedModeError reports a mode token that does not map to any
// game/playtype pair known to the decoder.
type UnrecognizedModeError struct {
	Index int
	Field string
	Value string
}

func (e *UnrecognizedModeError) Error() string {
	return fmt.Sprintf("record %d: field %q: unrecognized mode %s", e.Index, e.Field, e.Value)
}

func (e *UnrecognizedModeError) Is(target error) bool { return target == ErrUnrecognizedMode }

// FieldValidationError reports a single field value violating its constraint.
// Value holds the received value as the source emitted it; Present is false
// when the field was missing altogether.
type FieldValidationError struct {
	Index      int
	Field      string
	Value      string
	Present    bool
	Constraint string
}

func (e *FieldValidationError) Error() string {
	got := e.Value
	if !e.Present {
		got = "<absent>"
	}
	if e.Index == NoIndex {
		return fmt.Sprintf("field %q: got %s, want %s", e.Field, got, e.Constraint)
	}
	return fmt.Sprintf("record %d: field %q: got %s, want %s", e.Index, e.Field, got, e.Constraint)
}

func (e *FieldValidationError) Is(target error) bool { return target == ErrFieldValidation }

// NormalizationError reports a validated record that cannot be mapped onto
// the canonical shape, e.g. a missing lookup-table entry.
type NormalizationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *NormalizationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("record %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("record %d: field %q: %s", e.Index, e.Field, e.Reason)
}

func (e *NormalizationError) Is(target error) bool { return target == ErrNormalization }

// FetchError wraps a transport failure reported by the fetch collaborator.
type FetchError struct {
	Service string
	URL     string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: fetch %s: %v", e.Service, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error        { return e.Err }
func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// RecordIndex extracts the batch index from any taxonomy error, or NoIndex.
func RecordIndex(err error) int {
	var fv *FieldValidationError
	if errors.As(err, &fv) {
		return fv.Index
	}
	var um *UnrecognizedModeError
	if errors.As(err, &um) {
		return um.Index
	}
	var ne *NormalizationError
	if errors.As(err, &ne) {
		return ne.Index
	}
	return NoIndex
}

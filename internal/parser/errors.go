package parser

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrUnknownImportType = errors.New("parser: unknown import type")
	ErrMissingAuth       = errors.New("parser: api import without auth document")
)

// Stage names where a batch was rejected.
type Stage string

const (
	StageDispatch  Stage = "dispatch"
	StageDecode    Stage = "decode"
	StageNormalize Stage = "normalize"
)

// StageError tags an import failure with the import type and stage.
type StageError struct {
	ImportType ImportType
	Stage      Stage
	Err        error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.ImportType, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

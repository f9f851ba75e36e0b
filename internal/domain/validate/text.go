package validate

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/okian/scoreimport/internal/domain/importerr"
)

// Cell is one value of a tabular row, addressed by its column header.
type Cell struct {
	Index  int
	Column string
	Value  string
}

// Fail builds the validation error for c violating constraint.
func (c Cell) Fail(constraint string) error {
	return &importerr.FieldValidationError{
		Index:      c.Index,
		Field:      c.Column,
		Value:      echo(strconv.Quote(c.Value)),
		Present:    true,
		Constraint: constraint,
	}
}

// IntCell parses a bounded decimal integer cell.
func IntCell(c Cell, lo, hi int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(c.Value))
	if err != nil || n < lo || n > hi {
		return 0, c.Fail(fmt.Sprintf("integer in [%d, %d]", lo, hi))
	}
	return n, nil
}

// OptionalIntCell is IntCell where an empty cell or a "---" placeholder
// means the value was not recorded.
func OptionalIntCell(c Cell, lo, hi int) (*int, error) {
	v := strings.TrimSpace(c.Value)
	if v == "" || v == "---" {
		return nil, nil
	}
	n, err := IntCell(c, lo, hi)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// EnumCell checks a cell against a closed, case-sensitive vocabulary.
func EnumCell[T ~string](c Cell, allowed []T) (T, error) {
	v := T(c.Value)
	if !slices.Contains(allowed, v) {
		return "", c.Fail(oneOf(allowed))
	}
	return v, nil
}

// TimeCell parses a timestamp cell with layout in loc.
func TimeCell(c Cell, layout string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(layout, strings.TrimSpace(c.Value), loc)
	if err != nil {
		return time.Time{}, c.Fail("timestamp formatted as " + strconv.Quote(layout))
	}
	return t, nil
}

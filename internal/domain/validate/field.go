package validate

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"github.com/okian/scoreimport/internal/domain/importerr"
)

const maxEchoedValue = 64

func fail(rec Record, field string, raw json.RawMessage, present bool, constraint string) error {
	return &importerr.FieldValidationError{
		Index:      rec.Index,
		Field:      field,
		Value:      echo(string(raw)),
		Present:    present,
		Constraint: constraint,
	}
}

// echo shortens s to at most maxEchoedValue bytes without splitting a rune.
func echo(s string) string {
	if len(s) <= maxEchoedValue {
		return s
	}
	cut := maxEchoedValue
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// String reads a JSON string field.
func String(rec Record, field string) (string, error) {
	raw, ok := rec.Lookup(field)
	if !ok {
		return "", fail(rec, field, nil, false, "string")
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", fail(rec, field, raw, true, "string")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fail(rec, field, raw, true, "string")
	}
	return s, nil
}

// NonEmptyString reads a JSON string field that must contain non-blank text.
func NonEmptyString(rec Record, field string) (string, error) {
	s, err := String(rec, field)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(s) == "" {
		raw, _ := rec.Lookup(field)
		return "", fail(rec, field, raw, true, "non-empty string")
	}
	return s, nil
}

// Enum reads a JSON string field that must equal one of allowed exactly.
func Enum[T ~string](rec Record, field string, allowed []T) (T, error) {
	s, err := String(rec, field)
	if err != nil {
		return "", withConstraint(err, oneOf(allowed))
	}
	if !slices.Contains(allowed, T(s)) {
		raw, _ := rec.Lookup(field)
		return "", fail(rec, field, raw, true, oneOf(allowed))
	}
	return T(s), nil
}

// Int reads a JSON number that must be an integer within [lo, hi].
// Strings, null, fractions and absent fields all fail.
func Int(rec Record, field string, lo, hi int) (int, error) {
	raw, ok := rec.Lookup(field)
	constraint := fmt.Sprintf("integer in [%d, %d]", lo, hi)
	if !ok {
		return 0, fail(rec, field, nil, false, constraint)
	}
	n, ok := parseInt(raw)
	if !ok || n < lo || n > hi {
		return 0, fail(rec, field, raw, true, constraint)
	}
	return n, nil
}

// OptionalInt is Int for fields the schema allows to be absent or null.
func OptionalInt(rec Record, field string, lo, hi int) (*int, error) {
	raw, ok := rec.Lookup(field)
	if !ok || isNull(raw) {
		return nil, nil
	}
	n, err := Int(rec, field, lo, hi)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// IntEnum reads an integer field that must be one of allowed.
func IntEnum(rec Record, field string, allowed []int) (int, error) {
	raw, ok := rec.Lookup(field)
	constraint := "integer, one of " + fmt.Sprint(allowed)
	if !ok {
		return 0, fail(rec, field, nil, false, constraint)
	}
	n, ok := parseInt(raw)
	if !ok || !slices.Contains(allowed, n) {
		return 0, fail(rec, field, raw, true, constraint)
	}
	return n, nil
}

// Timestamp reads a string field formatted with layout, interpreted in loc.
func Timestamp(rec Record, field, layout string, loc *time.Location) (time.Time, error) {
	constraint := "timestamp formatted as " + strconv.Quote(layout)
	s, err := String(rec, field)
	if err != nil {
		return time.Time{}, withConstraint(err, constraint)
	}
	if loc == nil {
		loc = time.UTC
	}
	t, perr := time.ParseInLocation(layout, s, loc)
	if perr != nil {
		raw, _ := rec.Lookup(field)
		return time.Time{}, fail(rec, field, raw, true, constraint)
	}
	return t, nil
}

// RFC3339 reads an RFC 3339 timestamp string and returns it in UTC.
func RFC3339(rec Record, field string) (time.Time, error) {
	t, err := Timestamp(rec, field, time.RFC3339, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// OptionalUnixMillis reads a unix-milliseconds integer. Absent or null yields nil.
func OptionalUnixMillis(rec Record, field string) (*time.Time, error) {
	raw, ok := rec.Lookup(field)
	if !ok || isNull(raw) {
		return nil, nil
	}
	ms, ok := parseInt(raw)
	if !ok || ms < 0 {
		return nil, fail(rec, field, raw, true, "unix milliseconds or null")
	}
	t := time.UnixMilli(int64(ms)).UTC()
	return &t, nil
}

// OptionalObject reads a nested object field as a Record carrying the
// parent's index. Absent or null reports ok=false.
func OptionalObject(rec Record, field string) (Record, bool, error) {
	raw, ok := rec.Lookup(field)
	if !ok || isNull(raw) {
		return Record{}, false, nil
	}
	sub, ok := asObject(rec.Index, raw)
	if !ok {
		return Record{}, false, fail(rec, field, raw, true, "object or null")
	}
	return sub, true, nil
}

// IntMap reads every field of rec as a bounded integer keyed by field name.
// Keys must be members of allowed.
func IntMap(rec Record, prefix string, allowed []string, lo, hi int) (map[string]int, error) {
	keys := make([]string, 0, len(rec.fields))
	for k := range rec.fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make(map[string]int, len(keys))
	for _, k := range keys {
		if !slices.Contains(allowed, k) {
			return nil, fail(rec, prefix+"."+k, rec.fields[k], true, "key "+oneOf(allowed))
		}
		n, err := Int(rec, k, lo, hi)
		if err != nil {
			return nil, Renamed(err, prefix+"."+k)
		}
		out[k] = n
	}
	return out, nil
}

// parseInt accepts JSON integers and integral floats (5.0). It rejects
// strings, booleans, null and fractional numbers.
func parseInt(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	if c := raw[0]; c != '-' && (c < '0' || c > '9') {
		return 0, false
	}
	s := string(raw)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return int(n), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int(f), true
}

func oneOf[T ~string](allowed []T) string {
	parts := make([]string, len(allowed))
	for i, a := range allowed {
		parts[i] = strconv.Quote(string(a))
	}
	return "one of [" + strings.Join(parts, ", ") + "]"
}

func withConstraint(err error, constraint string) error {
	if fv, ok := err.(*importerr.FieldValidationError); ok {
		c := *fv
		c.Constraint = constraint
		return &c
	}
	return err
}

// Renamed reports a field failure under a qualified field name.
func Renamed(err error, field string) error {
	if fv, ok := err.(*importerr.FieldValidationError); ok {
		c := *fv
		c.Field = field
		return &c
	}
	return err
}

// Package validate implements the field validators every decoder runs.
//
// Validators are pure: each takes one raw field value and returns either a
// typed value or an *importerr.FieldValidationError. None of them reason
// across fields.
package validate

import (
	"bytes"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/okian/scoreimport/internal/domain/importerr"
)

// Record is a schema-checked JSON object from a batch. It keeps the raw
// value of every field so validators can tell an absent field from null.
type Record struct {
	Index  int
	fields map[string]json.RawMessage
}

// NewRecord builds a record from already-split fields. Used by decoders that
// rename partner fields before validation.
func NewRecord(index int, fields map[string]json.RawMessage) Record {
	return Record{Index: index, fields: fields}
}

// Lookup returns the raw value of field and whether it was present.
func (r Record) Lookup(field string) (json.RawMessage, bool) {
	raw, ok := r.fields[field]
	return raw, ok
}

// Fields returns the raw field map. Callers must not mutate it.
func (r Record) Fields() map[string]json.RawMessage { return r.fields }

// DecodeArray checks that data is a JSON array of objects and splits it into
// records. Any syntax error or shape mismatch is a MalformedInputError.
func DecodeArray(format string, data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, importerr.Malformed(format, "empty document", nil)
	}
	if !json.Valid(trimmed) {
		return nil, importerr.Malformed(format, "invalid JSON", nil)
	}
	if trimmed[0] != '[' {
		return nil, importerr.Malformed(format, "top-level value is not an array", nil)
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, importerr.Malformed(format, "invalid JSON array", err)
	}
	return splitObjects(format, elems)
}

// DecodeObject checks that data is a single JSON object.
func DecodeObject(format string, data []byte) (Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Record{}, importerr.Malformed(format, "empty document", nil)
	}
	if !json.Valid(trimmed) {
		return Record{}, importerr.Malformed(format, "invalid JSON", nil)
	}
	rec, ok := asObject(importerr.NoIndex, trimmed)
	if !ok {
		return Record{}, importerr.Malformed(format, "top-level value is not an object", nil)
	}
	return rec, nil
}

// ObjectArray reads field of rec as an array of objects. A missing field or
// a non-array value is a MalformedInputError since it is part of the
// document envelope, not of a record.
func ObjectArray(format string, rec Record, field string) ([]Record, error) {
	raw, ok := rec.Lookup(field)
	if !ok {
		return nil, importerr.Malformed(format, "missing "+field, nil)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, importerr.Malformed(format, field+" is not an array", nil)
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, importerr.Malformed(format, field+" is not an array", err)
	}
	return splitObjects(format, elems)
}

func splitObjects(format string, elems []json.RawMessage) ([]Record, error) {
	out := make([]Record, 0, len(elems))
	for i, elem := range elems {
		rec, ok := asObject(i, elem)
		if !ok {
			return nil, importerr.Malformed(format, "element "+strconv.Itoa(i)+" is not an object", nil)
		}
		out = append(out, rec)
	}
	return out, nil
}

func asObject(index int, raw json.RawMessage) (Record, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return Record{}, false
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Record{}, false
	}
	return Record{Index: index, fields: fields}, true
}

// Package formats holds what every source decoder shares: the decode request
// and the lazy hand-over to the normalization layer.
package formats

import (
	"time"

	"github.com/okian/scoreimport/internal/domain/game"
	"github.com/okian/scoreimport/internal/domain/model"
	"github.com/okian/scoreimport/internal/domain/normalize"
)

// Request is one raw batch plus the caller's auxiliary configuration.
type Request struct {
	ImportType string
	Data       []byte
	Filename   string
	// Playtype is required by formats that do not encode it per record.
	Playtype string
	// Location interprets zone-less timestamps. Nil means UTC.
	Location   *time.Location
	Normalizer *normalize.Normalizer
}

// Loc returns the timestamp location, defaulting to UTC.
func (r Request) Loc() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

// Emit wraps validated inputs in a lazy sequence. Each element is normalized
// only when the caller pulls it; the first failure ends the sequence.
func Emit(req Request, service string, g game.Game, inputs []normalize.Input, opts ...model.OutputOption) model.Output {
	norm := req.Normalizer
	if norm == nil {
		norm = normalize.New()
	}
	prov := model.Provenance{ImportType: req.ImportType, Service: service}
	seq := func(yield func(model.Score, error) bool) {
		for _, in := range inputs {
			s, err := norm.Normalize(in, prov)
			if err != nil {
				yield(model.Score{}, err)
				return
			}
			if !yield(s, nil) {
				return
			}
		}
	}
	return model.NewOutput(g, seq, opts...)
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

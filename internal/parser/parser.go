// Package parser is the single entry point of the import engine: it maps an
// import type to its decoder, tags failures with the stage that produced
// them, and logs each batch exactly once.
package parser

import (
	"context"
	"errors"
	"iter"
	"maps"
	"slices"
	"time"

	"github.com/okian/scoreimport/internal/adapters/formats"
	"github.com/okian/scoreimport/internal/adapters/formats/batchmanual"
	"github.com/okian/scoreimport/internal/adapters/formats/eamcsv"
	"github.com/okian/scoreimport/internal/adapters/formats/kai"
	"github.com/okian/scoreimport/internal/adapters/formats/mer"
	"github.com/okian/scoreimport/internal/domain/game"
	"github.com/okian/scoreimport/internal/domain/importerr"
	"github.com/okian/scoreimport/internal/domain/model"
	"github.com/okian/scoreimport/internal/domain/normalize"
	"github.com/okian/scoreimport/pkg/logger"
)

// Input is the raw material of one import.
type Input struct {
	Data     []byte
	Filename string
	// Auth is required by partner imports and ignored by file imports.
	Auth *kai.AuthDocument
}

// Aux is caller configuration that is not part of the upload itself.
type Aux struct {
	Playtype    string
	Fetcher     kai.Fetcher
	ChartMaxima normalize.ChartMaxima
	Location    *time.Location
	MaxPages    int
}

type decodeFunc func(ctx context.Context, req formats.Request, in Input, aux Aux) (model.Output, error)

// Registry dispatches import types to decoders. It is read-only after
// construction.
type Registry struct {
	decoders map[ImportType]decodeFunc
}

// NewRegistry registers every file format and one partner import per game
// each partner serves. With no partners the defaults are used.
func NewRegistry(partners ...kai.Partner) *Registry {
	r := &Registry{decoders: map[ImportType]decodeFunc{
		FileMerIIDX:           fileDecoder(mer.Decode),
		FileBatchManual:       fileDecoder(batchmanual.Decode),
		FileEamusementIIDXCSV: fileDecoder(eamcsv.Decode),
	}}
	if len(partners) == 0 {
		partners = kai.Partners()
	}
	for _, p := range partners {
		for _, g := range p.ServedGames() {
			r.decoders[ImportType(p.ImportType(g))] = partnerDecoder(p, g)
		}
	}
	return r
}

func fileDecoder(decode func(formats.Request) (model.Output, error)) decodeFunc {
	return func(_ context.Context, req formats.Request, _ Input, _ Aux) (model.Output, error) {
		return decode(req)
	}
}

func partnerDecoder(p kai.Partner, g game.Game) decodeFunc {
	return func(ctx context.Context, req formats.Request, in Input, aux Aux) (model.Output, error) {
		if in.Auth == nil {
			return model.Output{}, ErrMissingAuth
		}
		return kai.Parse(ctx, p, g, kai.Request{
			Request:  req,
			Auth:     *in.Auth,
			Fetcher:  aux.Fetcher,
			MaxPages: aux.MaxPages,
		})
	}
}

// Types lists the registered import types in sorted order.
func (r *Registry) Types() []ImportType {
	return slices.Sorted(maps.Keys(r.decoders))
}

// Supports reports whether t is registered.
func (r *Registry) Supports(t ImportType) bool {
	_, ok := r.decoders[t]
	return ok
}

// Parse validates the whole batch and returns its lazy score sequence. A
// batch rejected at decode time is logged here; a batch whose sequence is
// ranged is logged when the sequence ends, either at its first normalization
// failure or after its last score.
func (r *Registry) Parse(ctx context.Context, t ImportType, in Input, aux Aux, log logger.Logger) (model.Output, error) {
	if log == nil {
		log = logger.Nop()
	}
	dec, ok := r.decoders[t]
	if !ok {
		err := &StageError{ImportType: t, Stage: StageDispatch, Err: ErrUnknownImportType}
		logRejected(ctx, log, err)
		return model.Output{}, err
	}

	req := formats.Request{
		ImportType: string(t),
		Data:       in.Data,
		Filename:   in.Filename,
		Playtype:   aux.Playtype,
		Location:   aux.Location,
		Normalizer: normalize.New(normalize.WithChartMaxima(aux.ChartMaxima)),
	}
	start := time.Now()
	out, err := dec(ctx, req, in, aux)
	if err != nil {
		serr := &StageError{ImportType: t, Stage: StageDecode, Err: err}
		logRejected(ctx, log, serr)
		return model.Output{}, serr
	}

	return out.Wrap(func(seq iter.Seq2[model.Score, error]) iter.Seq2[model.Score, error] {
		return func(yield func(model.Score, error) bool) {
			n := 0
			for s, err := range seq {
				if err != nil {
					serr := &StageError{ImportType: t, Stage: StageNormalize, Err: err}
					logRejected(ctx, log, serr)
					yield(model.Score{}, serr)
					return
				}
				n++
				if !yield(s, nil) {
					return
				}
			}
			log.Info(ctx, "import completed",
				logger.String("import_type", string(t)),
				logger.String("game", string(out.Game)),
				logger.Int("scores", n),
				logger.Duration("elapsed", time.Since(start)),
			)
		}
	}), nil
}

func logRejected(ctx context.Context, log logger.Logger, err *StageError) {
	fields := []logger.Field{
		logger.String("import_type", string(err.ImportType)),
		logger.String("stage", string(err.Stage)),
		logger.Error(err.Err),
	}
	if idx := importerr.RecordIndex(err); idx != importerr.NoIndex {
		fields = append(fields, logger.Int("record_index", idx))
	}
	log.Warn(ctx, "import rejected", fields...)
}

// Drain collects the whole sequence. Any error discards every score.
func Drain(out model.Output) ([]model.Score, error) {
	var scores []model.Score
	for s, err := range out.Scores() {
		if err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, nil
}

// Kind classifies err for metrics and API responses.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnknownImportType):
		return "unknown_import_type"
	case errors.Is(err, ErrMissingAuth), errors.Is(err, kai.ErrAuthMismatch):
		return "auth"
	case errors.Is(err, importerr.ErrMalformedInput):
		return "malformed_input"
	case errors.Is(err, importerr.ErrUnrecognizedMode):
		return "unrecognized_mode"
	case errors.Is(err, importerr.ErrFieldValidation):
		return "field_validation"
	case errors.Is(err, importerr.ErrNormalization):
		return "normalization"
	case errors.Is(err, importerr.ErrFetch):
		return "fetch"
	default:
		return "internal"
	}
}

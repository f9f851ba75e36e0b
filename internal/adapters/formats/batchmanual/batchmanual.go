// Package batchmanual decodes the generic batch-manual document: a meta
// header naming the game and playtype, a scores array in canonical
// vocabulary, and optional class declarations.
package batchmanual

import (
	"context"
	"maps"
	"slices"

	"github.com/okian/scoreimport/internal/adapters/formats"
	"github.com/okian/scoreimport/internal/domain/game"
	"github.com/okian/scoreimport/internal/domain/importerr"
	"github.com/okian/scoreimport/internal/domain/model"
	"github.com/okian/scoreimport/internal/domain/normalize"
	"github.com/okian/scoreimport/internal/domain/validate"
)

// Format is the import type handled here.
const Format = "file/batch-manual"

// Context keys.
const (
	ContextService = "service"
	ContextVersion = "version"
)

const (
	maxJudgement = 1_000_000
	maxCombo     = 100_000
	maxNotes     = 5000
)

var matchTypes = []string{model.MatchInGameID, model.MatchSongTitle, model.MatchTachiSongID}

type modeKey struct{ game, playtype string }

var modes = func() game.ModeTable[modeKey] {
	t := game.ModeTable[modeKey]{}
	for _, gpt := range game.All() {
		t[modeKey{string(gpt.Game), string(gpt.Playtype)}] = gpt
	}
	return t
}()

var scoreLimits = map[game.Game]int{
	game.IIDX:     maxNotes * 2,
	game.SDVX:     normalize.SDVXMaxScore,
	game.CHUNITHM: normalize.CHUNITHMMaxScore,
}

// Decode validates the whole document before any score is produced.
func Decode(req formats.Request) (model.Output, error) {
	doc, err := validate.DecodeObject(Format, req.Data)
	if err != nil {
		return model.Output{}, err
	}
	meta, ok, err := validate.OptionalObject(doc, "meta")
	if err != nil || !ok {
		return model.Output{}, importerr.Malformed(Format, "missing meta object", err)
	}

	gameName, err := validate.String(meta, "game")
	if err != nil {
		return model.Output{}, validate.Renamed(err, "meta.game")
	}
	playtype, err := validate.String(meta, "playtype")
	if err != nil {
		return model.Output{}, validate.Renamed(err, "meta.playtype")
	}
	gpt, err := modes.Resolve(importerr.NoIndex, "meta.playtype", modeKey{gameName, playtype})
	if err != nil {
		return model.Output{}, err
	}
	service, err := validate.NonEmptyString(meta, "service")
	if err != nil {
		return model.Output{}, validate.Renamed(err, "meta.service")
	}
	ctxBag := model.Context{ContextService: service}
	if _, present := meta.Lookup("version"); present {
		version, err := validate.String(meta, "version")
		if err != nil {
			return model.Output{}, validate.Renamed(err, "meta.version")
		}
		ctxBag[ContextVersion] = version
	}

	info, _ := game.Lookup(gpt)
	classes, err := decodeClasses(doc, gpt, info)
	if err != nil {
		return model.Output{}, err
	}

	recs, err := validate.ObjectArray(Format, doc, "scores")
	if err != nil {
		return model.Output{}, err
	}
	inputs := make([]normalize.Input, 0, len(recs))
	for _, rec := range recs {
		in, err := decodeScore(rec, gpt, info)
		if err != nil {
			return model.Output{}, err
		}
		inputs = append(inputs, in)
	}

	opts := []model.OutputOption{model.WithContext(ctxBag)}
	if classes != nil {
		opts = append(opts, model.WithClassProvider(func(context.Context, model.ClassSummary) (model.Achievements, error) {
			return model.Achievements{gpt: maps.Clone(classes)}, nil
		}))
	}
	return formats.Emit(req, service, gpt.Game, inputs, opts...), nil
}

func decodeScore(rec validate.Record, gpt game.GPT, info game.Info) (normalize.Input, error) {
	var in normalize.Input

	score, err := validate.Int(rec, "score", 0, scoreLimits[gpt.Game])
	if err != nil {
		return in, err
	}
	lamp, err := validate.Enum(rec, "lamp", info.Lamps)
	if err != nil {
		return in, err
	}
	matchType, err := validate.Enum(rec, "matchType", matchTypes)
	if err != nil {
		return in, err
	}
	identifier, err := validate.NonEmptyString(rec, "identifier")
	if err != nil {
		return in, err
	}
	difficulty, err := validate.Enum(rec, "difficulty", info.Difficulties)
	if err != nil {
		return in, err
	}
	when, err := validate.OptionalUnixMillis(rec, "timeAchieved")
	if err != nil {
		return in, err
	}
	notes, err := validate.OptionalInt(rec, "notes", 1, maxNotes)
	if err != nil {
		return in, err
	}

	in = normalize.Input{
		Index: rec.Index,
		GPT:   gpt,
		Chart: model.ChartRef{
			MatchType:  matchType,
			Identifier: identifier,
			Difficulty: difficulty,
		},
		Score:        score,
		Lamp:         lamp,
		TimeAchieved: when,
	}
	if notes != nil {
		in.ChartMax = formats.IntPtr(*notes * 2)
	}

	if j, ok, err := validate.OptionalObject(rec, "judgements"); err != nil {
		return in, err
	} else if ok {
		if in.Judgements, err = validate.IntMap(j, "judgements", info.Judgements, 0, maxJudgement); err != nil {
			return in, err
		}
	}
	if hm, ok, err := validate.OptionalObject(rec, "hitMeta"); err != nil {
		return in, err
	} else if ok {
		if in.HitMeta, err = decodeHitMeta(hm); err != nil {
			return in, err
		}
	}
	return in, nil
}

func decodeHitMeta(rec validate.Record) (model.HitMeta, error) {
	var hm model.HitMeta
	fields := []struct {
		name string
		dst  **int
	}{
		{"fast", &hm.Fast},
		{"slow", &hm.Slow},
		{"maxCombo", &hm.MaxCombo},
		{"bp", &hm.BP},
	}
	for _, f := range fields {
		v, err := validate.OptionalInt(rec, f.name, 0, maxCombo)
		if err != nil {
			return hm, validate.Renamed(err, "hitMeta."+f.name)
		}
		*f.dst = v
	}
	return hm, nil
}

func decodeClasses(doc validate.Record, gpt game.GPT, info game.Info) (model.Classes, error) {
	rec, ok, err := validate.OptionalObject(doc, "classes")
	if err != nil || !ok {
		return nil, err
	}
	out := model.Classes{}
	for _, set := range slices.Sorted(maps.Keys(rec.Fields())) {
		allowed := info.Classes[game.ClassSet(set)]
		if len(allowed) == 0 {
			raw, _ := rec.Lookup(set)
			return nil, &importerr.FieldValidationError{
				Index:      importerr.NoIndex,
				Field:      "classes." + set,
				Value:      string(raw),
				Present:    true,
				Constraint: "class set of " + gpt.String(),
			}
		}
		v, err := validate.Enum(rec, set, allowed)
		if err != nil {
			return nil, validate.Renamed(err, "classes."+set)
		}
		out[game.ClassSet(set)] = v
	}
	return out, nil
}

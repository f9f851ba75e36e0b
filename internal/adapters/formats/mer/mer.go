// Package mer decodes IIDX score exports produced by the Mer tool.
package mer

import (
	"strconv"

	"github.com/okian/scoreimport/internal/adapters/formats"
	"github.com/okian/scoreimport/internal/domain/game"
	"github.com/okian/scoreimport/internal/domain/model"
	"github.com/okian/scoreimport/internal/domain/normalize"
	"github.com/okian/scoreimport/internal/domain/validate"
)

// Format is the import type handled here.
const Format = "file/mer-iidx"

// Service is the provenance name of Mer scores.
const Service = "Mer"

const (
	timeLayout = "2006-01-02 15:04:05"
	maxNotes   = 5000
	maxEX      = maxNotes * 2
)

var modes = game.ModeTable[string]{
	"SINGLE": game.IIDXSP,
	"DOUBLE": game.IIDXDP,
}

var difficulties = []string{"BEGINNER", "NORMAL", "HYPER", "ANOTHER", "LEGGENDARIA"}

var lamps = normalize.LampTable[string]{
	"NO PLAY":         game.LampNoPlay,
	"FAILED":          game.LampFailed,
	"ASSIST CLEAR":    game.LampAssistClear,
	"EASY CLEAR":      game.LampEasyClear,
	"CLEAR":           game.LampClear,
	"HARD CLEAR":      game.LampHardClear,
	"EX HARD CLEAR":   game.LampExHardClear,
	"FULLCOMBO CLEAR": game.LampFullCombo,
}

// Decode validates every record of a Mer JSON array. Any failure rejects the
// batch before a score is produced.
func Decode(req formats.Request) (model.Output, error) {
	recs, err := validate.DecodeArray(Format, req.Data)
	if err != nil {
		return model.Output{}, err
	}
	inputs := make([]normalize.Input, 0, len(recs))
	for _, rec := range recs {
		in, err := decodeRecord(rec, req)
		if err != nil {
			return model.Output{}, err
		}
		inputs = append(inputs, in)
	}
	return formats.Emit(req, Service, game.IIDX, inputs), nil
}

func decodeRecord(rec validate.Record, req formats.Request) (normalize.Input, error) {
	var in normalize.Input

	playType, err := validate.String(rec, "play_type")
	if err != nil {
		return in, err
	}
	gpt, err := modes.Resolve(rec.Index, "play_type", playType)
	if err != nil {
		return in, err
	}
	musicID, err := validate.Int(rec, "music_id", 0, 1<<31-1)
	if err != nil {
		return in, err
	}
	title, err := validate.String(rec, "music_name")
	if err != nil {
		return in, err
	}
	diff, err := validate.Enum(rec, "diff_type", difficulties)
	if err != nil {
		return in, err
	}
	score, err := validate.Int(rec, "score", 0, maxEX)
	if err != nil {
		return in, err
	}
	miss, err := validate.Int(rec, "miss_count", 0, maxNotes)
	if err != nil {
		return in, err
	}
	clearType, err := validate.Enum(rec, "clear_type", lamps.Tokens())
	if err != nil {
		return in, err
	}
	when, err := validate.Timestamp(rec, "update_time", timeLayout, req.Loc())
	if err != nil {
		return in, err
	}
	notes, err := validate.OptionalInt(rec, "note", 1, maxNotes)
	if err != nil {
		return in, err
	}

	in = normalize.Input{
		Index: rec.Index,
		GPT:   gpt,
		Chart: model.ChartRef{
			MatchType:  model.MatchInGameID,
			Identifier: strconv.Itoa(musicID),
			Difficulty: diff,
			Title:      title,
		},
		Score:        score,
		Lamp:         lamps[clearType],
		HitMeta:      model.HitMeta{BP: formats.IntPtr(miss)},
		TimeAchieved: &when,
	}
	if notes != nil {
		in.ChartMax = formats.IntPtr(*notes * 2)
	}
	return in, nil
}

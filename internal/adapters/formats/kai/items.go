package kai

import (
	"errors"
	"strconv"

	"github.com/okian/scoreimport/internal/domain/game"
	"github.com/okian/scoreimport/internal/domain/importerr"
	"github.com/okian/scoreimport/internal/domain/model"
	"github.com/okian/scoreimport/internal/domain/normalize"
	"github.com/okian/scoreimport/internal/domain/validate"
)

const (
	maxIIDXNotes = 5000
	maxSDVXNotes = 10000
	maxSongID    = 1<<31 - 1
)

type itemDecoder func(rec validate.Record) (normalize.Input, error)

// decodeAll decodes items already renamed to the shared field names. A
// failure on a renamed field is reported under the name p sent.
func (d itemDecoder) decodeAll(p Partner, items []validate.Record) ([]normalize.Input, error) {
	out := make([]normalize.Input, 0, len(items))
	for _, rec := range items {
		in, err := d(rec)
		if err != nil {
			var fv *importerr.FieldValidationError
			if errors.As(err, &fv) {
				if src, ok := p.sourceField(fv.Field); ok {
					return nil, validate.Renamed(fv, src)
				}
			}
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

var decoders = map[game.Game]itemDecoder{
	game.IIDX: decodeIIDX,
	game.SDVX: decodeSDVX,
}

var iidxModes = game.ModeTable[string]{
	"SINGLE": game.IIDXSP,
	"DOUBLE": game.IIDXDP,
}

var iidxDifficulties = []string{"BEGINNER", "NORMAL", "HYPER", "ANOTHER", "LEGGENDARIA"}

var iidxLamps = normalize.LampTable[int]{
	0: game.LampNoPlay,
	1: game.LampFailed,
	2: game.LampAssistClear,
	3: game.LampEasyClear,
	4: game.LampClear,
	5: game.LampHardClear,
	6: game.LampExHardClear,
	7: game.LampFullCombo,
}

func decodeIIDX(rec validate.Record) (normalize.Input, error) {
	var in normalize.Input

	style, err := validate.String(rec, "play_style")
	if err != nil {
		return in, err
	}
	gpt, err := iidxModes.Resolve(rec.Index, "play_style", style)
	if err != nil {
		return in, err
	}
	musicID, err := validate.Int(rec, "music_id", 0, maxSongID)
	if err != nil {
		return in, err
	}
	diff, err := validate.Enum(rec, "difficulty", iidxDifficulties)
	if err != nil {
		return in, err
	}
	lamp, err := validate.IntEnum(rec, "lamp", iidxLamps.Tokens())
	if err != nil {
		return in, err
	}
	ex, err := validate.Int(rec, "ex_score", 0, maxIIDXNotes*2)
	if err != nil {
		return in, err
	}
	miss, err := validate.Int(rec, "miss_count", 0, maxIIDXNotes)
	if err != nil {
		return in, err
	}
	fast, err := validate.OptionalInt(rec, "fast_count", 0, maxIIDXNotes)
	if err != nil {
		return in, err
	}
	slow, err := validate.OptionalInt(rec, "slow_count", 0, maxIIDXNotes)
	if err != nil {
		return in, err
	}
	when, err := validate.RFC3339(rec, "timestamp")
	if err != nil {
		return in, err
	}

	return normalize.Input{
		Index: rec.Index,
		GPT:   gpt,
		Chart: model.ChartRef{
			MatchType:  model.MatchInGameID,
			Identifier: strconv.Itoa(musicID),
			Difficulty: diff,
		},
		Score:        ex,
		Lamp:         iidxLamps[lamp],
		HitMeta:      model.HitMeta{Fast: fast, Slow: slow, BP: &miss},
		TimeAchieved: &when,
	}, nil
}

var sdvxDifficulties = map[int]string{0: "NOV", 1: "ADV", 2: "EXH", 3: "ANY_INF", 4: "MXM"}

var sdvxLamps = normalize.LampTable[int]{
	1: game.LampFailed,
	2: game.LampClear,
	3: game.LampExcessiveClear,
	4: game.LampUltimateChain,
	5: game.LampPerfectUltimateChain,
}

var sdvxJudgements = []struct{ field, name string }{
	{"critical", "critical"},
	{"near", "near"},
	{"error", "miss"},
}

func decodeSDVX(rec validate.Record) (normalize.Input, error) {
	var in normalize.Input

	songID, err := validate.Int(rec, "song_id", 0, maxSongID)
	if err != nil {
		return in, err
	}
	diff, err := validate.IntEnum(rec, "music_difficulty", []int{0, 1, 2, 3, 4})
	if err != nil {
		return in, err
	}
	score, err := validate.Int(rec, "score", 0, normalize.SDVXMaxScore)
	if err != nil {
		return in, err
	}
	clearType, err := validate.IntEnum(rec, "clear_type", sdvxLamps.Tokens())
	if err != nil {
		return in, err
	}
	judgements := map[string]int{}
	for _, j := range sdvxJudgements {
		n, err := validate.Int(rec, j.field, 0, maxSDVXNotes)
		if err != nil {
			return in, err
		}
		judgements[j.name] = n
	}
	chain, err := validate.Int(rec, "max_chain", 0, maxSDVXNotes)
	if err != nil {
		return in, err
	}
	when, err := validate.RFC3339(rec, "timestamp")
	if err != nil {
		return in, err
	}

	return normalize.Input{
		Index: rec.Index,
		GPT:   game.SDVXSingle,
		Chart: model.ChartRef{
			MatchType:  model.MatchInGameID,
			Identifier: strconv.Itoa(songID),
			Difficulty: sdvxDifficulties[diff],
		},
		Score:        score,
		Lamp:         sdvxLamps[clearType],
		Judgements:   judgements,
		HitMeta:      model.HitMeta{MaxCombo: &chain},
		TimeAchieved: &when,
	}, nil
}

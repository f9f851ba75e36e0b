// Package eamcsv decodes the official e-amusement IIDX score CSV export.
//
// One row describes a song with one column group per difficulty. Two header
// layouts exist: the current one with BEGINNER and LEGGENDARIA groups and an
// older one without them. The export does not say which side it was taken
// from, so the caller supplies the playtype.
package eamcsv

import (
	"slices"
	"strconv"
	"strings"

	"github.com/okian/scoreimport/internal/adapters/formats"
	"github.com/okian/scoreimport/internal/domain/game"
	"github.com/okian/scoreimport/internal/domain/importerr"
	"github.com/okian/scoreimport/internal/domain/model"
	"github.com/okian/scoreimport/internal/domain/normalize"
	"github.com/okian/scoreimport/internal/domain/validate"
)

// Format is the import type handled here.
const Format = "file/eamusement-iidx-csv"

// Service is the provenance name of e-amusement scores.
const Service = "e-amusement"

// Context keys.
const (
	ContextPlaytype = "playtype"
	ContextLayout   = "layout"
)

// Header layouts.
const (
	LayoutCurrent = "current"
	LayoutLegacy  = "legacy"
)

const (
	timeLayout = "2006-01-02 15:04"
	maxNotes   = 5000
	maxLevel   = 12
)

// Leading song columns, then one group per difficulty, then the last-played column.
var songColumns = []string{"バージョン", "タイトル", "ジャンル", "アーティスト", "プレー回数"}

var groupColumns = []string{"難易度", "スコア", "PGreat", "Great", "ミスカウント", "クリアタイプ", "DJ LEVEL"}

const lastPlayedColumn = "最終プレー日時"

var layouts = map[string][]string{
	LayoutCurrent: {"BEGINNER", "NORMAL", "HYPER", "ANOTHER", "LEGGENDARIA"},
	LayoutLegacy:  {"NORMAL", "HYPER", "ANOTHER"},
}

var modes = game.ModeTable[string]{
	"SP": game.IIDXSP,
	"DP": game.IIDXDP,
}

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

// Decode validates every row of the export. Difficulty groups that were
// never played (score 0 with NO PLAY) are skipped.
func Decode(req formats.Request) (model.Output, error) {
	gpt, err := modes.Resolve(importerr.NoIndex, "playtype", req.Playtype)
	if err != nil {
		return model.Output{}, err
	}
	header, rows, err := readRows(req.Data)
	if err != nil {
		return model.Output{}, err
	}
	layout, diffs, err := detectLayout(header)
	if err != nil {
		return model.Output{}, err
	}

	var inputs []normalize.Input
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		if len(row) != len(header) {
			return model.Output{}, importerr.Malformed(Format,
				"row "+strconv.Itoa(i)+" has "+strconv.Itoa(len(row))+" columns, want "+strconv.Itoa(len(header)), nil)
		}
		got, err := decodeRow(i, header, row, gpt, diffs, req)
		if err != nil {
			return model.Output{}, err
		}
		inputs = append(inputs, got...)
	}

	ctxBag := model.Context{ContextPlaytype: string(gpt.Playtype), ContextLayout: layout}
	return formats.Emit(req, Service, game.IIDX, inputs, model.WithContext(ctxBag)), nil
}

func detectLayout(header []string) (string, []string, error) {
	for _, name := range []string{LayoutCurrent, LayoutLegacy} {
		diffs := layouts[name]
		if slices.Equal(header, buildHeader(diffs)) {
			return name, diffs, nil
		}
	}
	return "", nil, importerr.Malformed(Format,
		"unrecognized header with "+strconv.Itoa(len(header))+" columns", nil)
}

func buildHeader(diffs []string) []string {
	h := slices.Clone(songColumns)
	for _, d := range diffs {
		for _, c := range groupColumns {
			h = append(h, d+" "+c)
		}
	}
	return append(h, lastPlayedColumn)
}

func decodeRow(index int, header, row []string, gpt game.GPT, diffs []string, req formats.Request) ([]normalize.Input, error) {
	cell := func(col int) validate.Cell {
		return validate.Cell{Index: index, Column: header[col], Value: row[col]}
	}
	title := strings.TrimSpace(row[1])
	if title == "" {
		return nil, cell(1).Fail("non-empty title")
	}
	when, err := validate.TimeCell(cell(len(row)-1), timeLayout, req.Loc())
	if err != nil {
		return nil, err
	}

	var out []normalize.Input
	for g, diff := range diffs {
		base := len(songColumns) + g*len(groupColumns)
		level, err := validate.IntCell(cell(base), 0, maxLevel)
		if err != nil {
			return nil, err
		}
		score, err := validate.IntCell(cell(base+1), 0, maxNotes*2)
		if err != nil {
			return nil, err
		}
		pgreat, err := validate.IntCell(cell(base+2), 0, maxNotes)
		if err != nil {
			return nil, err
		}
		great, err := validate.IntCell(cell(base+3), 0, maxNotes)
		if err != nil {
			return nil, err
		}
		bp, err := validate.OptionalIntCell(cell(base+4), 0, maxNotes)
		if err != nil {
			return nil, err
		}
		clearType, err := validate.EnumCell(cell(base+5), lamps.Tokens())
		if err != nil {
			return nil, err
		}
		if level == 0 || (score == 0 && lamps[clearType] == game.LampNoPlay) {
			continue
		}
		ts := when
		out = append(out, normalize.Input{
			Index: index,
			GPT:   gpt,
			Chart: model.ChartRef{
				MatchType:  model.MatchSongTitle,
				Identifier: title,
				Difficulty: diff,
				Title:      title,
			},
			Score:        score,
			Lamp:         lamps[clearType],
			Judgements:   map[string]int{"pgreat": pgreat, "great": great},
			HitMeta:      model.HitMeta{BP: bp},
			TimeAchieved: &ts,
		})
	}
	return out, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Package charts loads the table of chart maxima used to compute percents
// for sources that do not report a note count.
package charts

import (
	"errors"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/scoreimport/internal/domain/game"
	"github.com/okian/scoreimport/internal/domain/model"
	"github.com/okian/scoreimport/internal/domain/normalize"
)

// Sentinel errors.
var (
	ErrLoad         = errors.New("charts: load failed")
	ErrInvalidChart = errors.New("charts: invalid entry")
)

// Entry is one chart of the table file.
type Entry struct {
	Game       string `koanf:"game"`
	Playtype   string `koanf:"playtype"`
	MatchType  string `koanf:"matchType"`
	Identifier string `koanf:"identifier"`
	Difficulty string `koanf:"difficulty"`
	Max        int    `koanf:"max"`
}

type key struct {
	gpt        game.GPT
	matchType  string
	identifier string
	difficulty string
}

// Table is an immutable chart maxima lookup.
type Table struct {
	max map[key]int
}

var _ normalize.ChartMaxima = (*Table)(nil)

// Load reads a YAML file with a top-level "charts" list.
func Load(path string) (*Table, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
	}
	var entries []Entry
	if err := k.UnmarshalWithConf("charts", &entries, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
	}
	return New(entries)
}

// New builds a table. Every entry must name a supported pair, a difficulty
// of that pair and a positive maximum; a later duplicate replaces an earlier one.
func New(entries []Entry) (*Table, error) {
	t := &Table{max: make(map[key]int, len(entries))}
	for i, e := range entries {
		gpt, ok := game.Parse(e.Game, e.Playtype)
		if !ok {
			return nil, fmt.Errorf("%w: #%d: unsupported pair %s:%s", ErrInvalidChart, i, e.Game, e.Playtype)
		}
		info, _ := game.Lookup(gpt)
		switch {
		case e.Identifier == "":
			return nil, fmt.Errorf("%w: #%d: missing identifier", ErrInvalidChart, i)
		case !info.HasDifficulty(e.Difficulty):
			return nil, fmt.Errorf("%w: #%d: difficulty %q not in %s", ErrInvalidChart, i, e.Difficulty, gpt)
		case e.Max <= 0:
			return nil, fmt.Errorf("%w: #%d: max must be positive", ErrInvalidChart, i)
		}
		matchType := e.MatchType
		if matchType == "" {
			matchType = model.MatchInGameID
		}
		t.max[key{gpt: gpt, matchType: matchType, identifier: e.Identifier, difficulty: e.Difficulty}] = e.Max
	}
	return t, nil
}

// ChartMax implements normalize.ChartMaxima.
func (t *Table) ChartMax(gpt game.GPT, chart model.ChartRef) (int, bool) {
	n, ok := t.max[key{gpt: gpt, matchType: chart.MatchType, identifier: chart.Identifier, difficulty: chart.Difficulty}]
	return n, ok
}

// Len returns the number of charts held.
func (t *Table) Len() int { return len(t.max) }

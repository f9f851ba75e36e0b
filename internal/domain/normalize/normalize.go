// Package normalize converts validated per-format records into canonical
// scores. Rules are keyed by game/playtype pair so every format of a game
// shares one percent and grade table.
package normalize

import (
	"cmp"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/scoreimport/internal/domain/game"
	"github.com/okian/scoreimport/internal/domain/importerr"
	"github.com/okian/scoreimport/internal/domain/model"
)

// scoreNamespace seeds the name-based score IDs.
var scoreNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/okian/scoreimport/score"))

// ChartMaxima resolves the maximum native score of a chart.
type ChartMaxima interface {
	ChartMax(gpt game.GPT, chart model.ChartRef) (int, bool)
}

// ChartMaximaFunc adapts a function to ChartMaxima.
type ChartMaximaFunc func(gpt game.GPT, chart model.ChartRef) (int, bool)

// ChartMax implements ChartMaxima.
func (f ChartMaximaFunc) ChartMax(gpt game.GPT, chart model.ChartRef) (int, bool) {
	return f(gpt, chart)
}

// LampTable maps one format's lamp vocabulary onto canonical lamps.
type LampTable[K cmp.Ordered] map[K]game.Lamp

// Tokens returns the sorted table keys for use as a validator allow-list.
func (t LampTable[K]) Tokens() []K {
	return slices.Sorted(maps.Keys(t))
}

// Input is a validated, typed record ready for normalization.
type Input struct {
	Index        int
	GPT          game.GPT
	Chart        model.ChartRef
	Score        int
	ChartMax     *int
	Lamp         game.Lamp
	Judgements   map[string]int
	HitMeta      model.HitMeta
	TimeAchieved *time.Time
}

// Normalizer applies the per-game rule table.
type Normalizer struct {
	maxima ChartMaxima
}

// New creates a Normalizer.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize maps in onto a canonical score tagged with prov.
func (n *Normalizer) Normalize(in Input, prov model.Provenance) (model.Score, error) {
	r, ok := rules[in.GPT]
	if !ok {
		return model.Score{}, failf(in, "", "no normalization rule for "+in.GPT.String())
	}
	info, _ := game.Lookup(in.GPT)
	if !info.HasDifficulty(in.Chart.Difficulty) {
		return model.Score{}, failf(in, "difficulty", strconv.Quote(in.Chart.Difficulty)+" is not a difficulty of "+in.GPT.String())
	}
	if !info.HasLamp(in.Lamp) {
		return model.Score{}, failf(in, "lamp", strconv.Quote(string(in.Lamp))+" is not a lamp of "+in.GPT.String())
	}
	for _, j := range slices.Sorted(maps.Keys(in.Judgements)) {
		if !info.HasJudgement(j) {
			return model.Score{}, failf(in, "judgements", strconv.Quote(j)+" is not a judgement of "+in.GPT.String())
		}
	}

	limit, ok := r.max(in, n.maxima)
	if !ok || limit <= 0 {
		return model.Score{}, failf(in, "score", "no chart maximum for "+in.Chart.Identifier+" "+in.Chart.Difficulty)
	}
	if in.Score < 0 || in.Score > limit {
		return model.Score{}, failf(in, "score", strconv.Itoa(in.Score)+" exceeds maximum "+strconv.Itoa(limit))
	}
	percent := float64(in.Score) * 100 / float64(limit)

	prov.RecordIndex = in.Index
	s := model.Score{
		Game:         in.GPT.Game,
		Playtype:     in.GPT.Playtype,
		Chart:        in.Chart,
		Score:        in.Score,
		Percent:      percent,
		Grade:        r.grade(in.Score, limit),
		Lamp:         in.Lamp,
		Judgements:   maps.Clone(in.Judgements),
		HitMeta:      in.HitMeta,
		TimeAchieved: in.TimeAchieved,
		Provenance:   prov,
	}
	s.ID = ScoreID(s)
	return s, nil
}

// ScoreID is the name-based UUID of the logical play. Provenance is not part
// of the name so the same play imported through different services collides.
func ScoreID(s model.Score) string {
	ts := "-"
	if s.TimeAchieved != nil {
		ts = s.TimeAchieved.UTC().Format(time.RFC3339Nano)
	}
	name := strings.Join([]string{
		string(s.Game), string(s.Playtype),
		s.Chart.MatchType, s.Chart.Identifier, s.Chart.Difficulty,
		strconv.Itoa(s.Score), string(s.Lamp), ts,
	}, "\x1f")
	return uuid.NewSHA1(scoreNamespace, []byte(name)).String()
}

func failf(in Input, field, reason string) error {
	return &importerr.NormalizationError{Index: in.Index, Field: field, Reason: reason}
}

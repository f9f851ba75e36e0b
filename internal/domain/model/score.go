// Package model contains the canonical score shape and the output contract
// every parser returns.
package model

import (
	"time"

	"github.com/okian/scoreimport/internal/domain/game"
)

// Chart match types supplied by sources. Charts are not resolved against a
// catalog here; the reference is carried as the source gave it.
const (
	MatchInGameID    = "inGameID"
	MatchSongTitle   = "songTitle"
	MatchTachiSongID = "tachiSongID"
)

// ChartRef identifies the chart a score was set on.
type ChartRef struct {
	MatchType  string `json:"matchType"`
	Identifier string `json:"identifier"`
	Difficulty string `json:"difficulty"`
	Title      string `json:"title,omitempty"`
}

// HitMeta holds optional per-play counters. Nil means the source did not
// report the value.
type HitMeta struct {
	Fast     *int `json:"fast,omitempty"`
	Slow     *int `json:"slow,omitempty"`
	MaxCombo *int `json:"maxCombo,omitempty"`
	BP       *int `json:"bp,omitempty"`
}

// Provenance records which decoder produced a score.
type Provenance struct {
	ImportType  string `json:"importType"`
	Service     string `json:"service"`
	RecordIndex int    `json:"recordIndex"`
}

// Score is the canonical, game-agnostic output unit. A Score leaving the
// normalization layer has passed every field check for its pair.
type Score struct {
	ID           string         `json:"id"`
	Game         game.Game      `json:"game"`
	Playtype     game.Playtype  `json:"playtype"`
	Chart        ChartRef       `json:"chart"`
	Score        int            `json:"score"`
	Percent      float64        `json:"percent"`
	Grade        string         `json:"grade"`
	Lamp         game.Lamp      `json:"lamp"`
	Judgements   map[string]int `json:"judgements,omitempty"`
	HitMeta      HitMeta        `json:"hitMeta"`
	TimeAchieved *time.Time     `json:"timeAchieved"`
	Provenance   Provenance     `json:"provenance"`
}

// GPT returns the canonical pair of the score.
func (s Score) GPT() game.GPT {
	return game.GPT{Game: s.Game, Playtype: s.Playtype}
}

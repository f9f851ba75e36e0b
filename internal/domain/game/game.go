// Package game holds the closed enumeration of supported (game, playtype)
// pairs and the canonical vocabulary attached to each of them.
package game

import "slices"

// Game identifies a supported rhythm game.
type Game string

// Supported games.
const (
	IIDX     Game = "iidx"
	SDVX     Game = "sdvx"
	CHUNITHM Game = "chunithm"
)

// Playtype identifies a play mode within a game.
type Playtype string

// Supported playtypes.
const (
	SP     Playtype = "SP"
	DP     Playtype = "DP"
	Single Playtype = "Single"
)

// GPT is a canonical (game, playtype) pair.
type GPT struct {
	Game     Game     `json:"game"`
	Playtype Playtype `json:"playtype"`
}

func (g GPT) String() string { return string(g.Game) + ":" + string(g.Playtype) }

// Canonical pairs.
var (
	IIDXSP         = GPT{Game: IIDX, Playtype: SP}
	IIDXDP         = GPT{Game: IIDX, Playtype: DP}
	SDVXSingle     = GPT{Game: SDVX, Playtype: Single}
	CHUNITHMSingle = GPT{Game: CHUNITHM, Playtype: Single}
)

// Lamp is a canonical clear classification.
type Lamp string

// IIDX lamps, worst to best.
const (
	LampNoPlay      Lamp = "NO PLAY"
	LampFailed      Lamp = "FAILED"
	LampAssistClear Lamp = "ASSIST CLEAR"
	LampEasyClear   Lamp = "EASY CLEAR"
	LampClear       Lamp = "CLEAR"
	LampHardClear   Lamp = "HARD CLEAR"
	LampExHardClear Lamp = "EX HARD CLEAR"
	LampFullCombo   Lamp = "FULL COMBO"
)

// SDVX lamps not shared with IIDX.
const (
	LampExcessiveClear       Lamp = "EXCESSIVE CLEAR"
	LampUltimateChain        Lamp = "ULTIMATE CHAIN"
	LampPerfectUltimateChain Lamp = "PERFECT ULTIMATE CHAIN"
)

// CHUNITHM lamps not shared with the others.
const (
	LampAllJustice         Lamp = "ALL JUSTICE"
	LampAllJusticeCritical Lamp = "ALL JUSTICE CRITICAL"
)

// ClassSet names a family of class achievements, e.g. dan courses.
type ClassSet string

// ClassDan is the dan/skill-level class set.
const ClassDan ClassSet = "dan"

// Info is the canonical vocabulary of one GPT. Lamps and classes are
// ordered worst to best.
type Info struct {
	Difficulties []string
	Lamps        []Lamp
	Judgements   []string
	Classes      map[ClassSet][]string
}

var iidxDans = []string{
	"7KYU", "6KYU", "5KYU", "4KYU", "3KYU", "2KYU", "1KYU",
	"1DAN", "2DAN", "3DAN", "4DAN", "5DAN", "6DAN", "7DAN", "8DAN", "9DAN", "10DAN",
	"CHUUDEN", "KAIDEN",
}

var sdvxDans = []string{
	"DAN_1", "DAN_2", "DAN_3", "DAN_4", "DAN_5", "DAN_6",
	"DAN_7", "DAN_8", "DAN_9", "DAN_10", "DAN_11", "INF",
}

var iidxInfo = Info{
	Difficulties: []string{"BEGINNER", "NORMAL", "HYPER", "ANOTHER", "LEGGENDARIA"},
	Lamps: []Lamp{
		LampNoPlay, LampFailed, LampAssistClear, LampEasyClear,
		LampClear, LampHardClear, LampExHardClear, LampFullCombo,
	},
	Judgements: []string{"pgreat", "great", "good", "bad", "poor"},
	Classes:    map[ClassSet][]string{ClassDan: iidxDans},
}

var table = map[GPT]Info{
	IIDXSP: iidxInfo,
	IIDXDP: iidxInfo,
	SDVXSingle: {
		// ANY_INF is kept as supplied; INF/GRV/HVN/VVD/XCD resolution needs the chart catalog.
		Difficulties: []string{"NOV", "ADV", "EXH", "ANY_INF", "MXM"},
		Lamps: []Lamp{
			LampFailed, LampClear, LampExcessiveClear, LampUltimateChain, LampPerfectUltimateChain,
		},
		Judgements: []string{"critical", "near", "miss"},
		Classes:    map[ClassSet][]string{ClassDan: sdvxDans},
	},
	CHUNITHMSingle: {
		Difficulties: []string{"BASIC", "ADVANCED", "EXPERT", "MASTER", "ULTIMA", "WORLD'S END"},
		Lamps: []Lamp{
			LampFailed, LampClear, LampFullCombo, LampAllJustice, LampAllJusticeCritical,
		},
		Judgements: []string{"jcrit", "justice", "attack", "miss"},
	},
}

// All returns every supported pair in a fixed order.
func All() []GPT {
	return []GPT{IIDXSP, IIDXDP, SDVXSingle, CHUNITHMSingle}
}

// Lookup returns the vocabulary of g.
func Lookup(g GPT) (Info, bool) {
	info, ok := table[g]
	return info, ok
}

// Parse builds a GPT from its string parts, rejecting unsupported pairs.
func Parse(g, playtype string) (GPT, bool) {
	gpt := GPT{Game: Game(g), Playtype: Playtype(playtype)}
	_, ok := table[gpt]
	return gpt, ok
}

// Supported reports whether g is one of the canonical pairs.
func Supported(g GPT) bool {
	_, ok := table[g]
	return ok
}

// HasDifficulty reports whether d is a difficulty of the pair.
func (i Info) HasDifficulty(d string) bool { return slices.Contains(i.Difficulties, d) }

// HasLamp reports whether l is a lamp of the pair.
func (i Info) HasLamp(l Lamp) bool { return slices.Contains(i.Lamps, l) }

// HasJudgement reports whether j is a judgement of the pair.
func (i Info) HasJudgement(j string) bool { return slices.Contains(i.Judgements, j) }

// HasClass reports whether value belongs to the class set.
func (i Info) HasClass(set ClassSet, value string) bool {
	return slices.Contains(i.Classes[set], value)
}

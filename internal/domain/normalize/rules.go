package normalize

import "github.com/okian/scoreimport/internal/domain/game"

// Fixed native maxima.
const (
	SDVXMaxScore     = 10_000_000
	CHUNITHMMaxScore = 1_010_000
)

type rule struct {
	max   func(in Input, cm ChartMaxima) (int, bool)
	grade func(score, limit int) string
}

var rules = map[game.GPT]rule{
	game.IIDXSP:         {max: chartMax, grade: iidxGrade},
	game.IIDXDP:         {max: chartMax, grade: iidxGrade},
	game.SDVXSingle:     {max: fixedMax(SDVXMaxScore), grade: thresholdGrade(sdvxGrades)},
	game.CHUNITHMSingle: {max: fixedMax(CHUNITHMMaxScore), grade: thresholdGrade(chunithmGrades)},
}

func fixedMax(limit int) func(Input, ChartMaxima) (int, bool) {
	return func(Input, ChartMaxima) (int, bool) { return limit, true }
}

// chartMax prefers the maximum carried by the record, then the injected lookup.
func chartMax(in Input, cm ChartMaxima) (int, bool) {
	if in.ChartMax != nil {
		return *in.ChartMax, true
	}
	if cm == nil {
		return 0, false
	}
	return cm.ChartMax(in.GPT, in.Chart)
}

// iidxGrade works on ninths of the EX score maximum.
func iidxGrade(score, limit int) string {
	switch {
	case score == limit:
		return "MAX"
	case score*18 >= limit*17:
		return "MAX-"
	}
	ladder := []string{"F", "F", "E", "D", "C", "B", "A", "AA", "AAA"}
	for i := len(ladder) - 1; i > 0; i-- {
		if score*9 >= limit*i {
			return ladder[i]
		}
	}
	return "F"
}

type boundary struct {
	min   int
	grade string
}

// Best first.
var sdvxGrades = []boundary{
	{10_000_000, "PUC"},
	{9_900_000, "S"},
	{9_800_000, "AAA+"},
	{9_700_000, "AAA"},
	{9_500_000, "AA+"},
	{9_300_000, "AA"},
	{9_000_000, "A+"},
	{8_700_000, "A"},
	{8_000_000, "B"},
	{7_000_000, "C"},
	{0, "D"},
}

var chunithmGrades = []boundary{
	{1_009_000, "SSS+"},
	{1_007_500, "SSS"},
	{1_005_000, "SS+"},
	{1_000_000, "SS"},
	{990_000, "S+"},
	{975_000, "S"},
	{950_000, "AAA"},
	{925_000, "AA"},
	{900_000, "A"},
	{800_000, "BBB"},
	{700_000, "BB"},
	{600_000, "B"},
	{500_000, "C"},
	{0, "D"},
}

func thresholdGrade(table []boundary) func(score, limit int) string {
	return func(score, _ int) string {
		for _, b := range table {
			if score >= b.min {
				return b.grade
			}
		}
		return table[len(table)-1].grade
	}
}

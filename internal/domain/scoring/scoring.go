// Package scoring holds the score math used by enrichment: the maximum
// score a chart allows and the accuracy derived from it.
package scoring

import (
	"math"
	"strings"
)

// Scoring curve constants. Each note is worth at most 115 points before the
// combo multiplier; the multiplier doubles at 2, 6 and 14 notes.
const (
	pointsPerNote = 115

	tier2Start = 2
	tier4Start = 6
	tier8Start = 14

	percent = 100
)

// MaxScoreFromNoteCount returns the highest base score reachable on a chart
// with n notes.
func MaxScoreFromNoteCount(n int) int {
	if n <= 0 {
		return 0
	}

	total := 0.0
	if n >= tier8Start {
		total += 8 * pointsPerNote * float64(n-(tier8Start-1))
	}
	if n >= tier4Start {
		total += 4 * pointsPerNote * float64(min(n, tier8Start-1)-(tier4Start-1))
	}
	if n >= tier2Start {
		total += 2 * pointsPerNote * float64(min(n, tier4Start-1)-(tier2Start-1))
	}
	total += float64(min(n, 1)) * pointsPerNote

	return int(math.Floor(total))
}

// Accuracy returns baseScore as a percentage of maxScore, corrected for the
// modifier multiplier and rounded to two decimals. ok is false when any
// input is non-positive.
func Accuracy(baseScore, maxScore int, multiplier float64) (acc float64, ok bool) {
	if baseScore <= 0 || maxScore <= 0 || multiplier <= 0 {
		return 0, false
	}
	return Round2(float64(baseScore) / float64(maxScore) * percent / multiplier), true
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*percent) / percent
}

var difficultyLabels = map[int]string{
	1: "Easy",
	3: "Normal",
	5: "Hard",
	7: "Expert",
	9: "ExpertPlus",
}

// DifficultyLabel maps the score site's numeric difficulty to the label used
// by the metadata and replay sources. Unknown codes map to "".
func DifficultyLabel(code int) string {
	return difficultyLabels[code]
}

// Characteristic derives the map characteristic from a game mode label,
// e.g. "SoloStandard" -> "Standard", "SoloOldDotsOneSaber" -> "OneSaber".
func Characteristic(gameMode string) string {
	c := strings.ReplaceAll(gameMode, "Solo", "")
	return strings.ReplaceAll(c, "OldDots", "")
}

// ReplayMode maps a game mode label to the replay source's mode parameter.
func ReplayMode(gameMode string) string {
	switch gameMode {
	case "SoloLawless":
		return "Lawless"
	default:
		return "Standard"
	}
}

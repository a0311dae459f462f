// Package model contains domain models passed between layers.
package model

// Difficulty identifies a charted difficulty as the score site reports it.
type Difficulty struct {
	Code     int    `json:"difficulty"`    // 1, 3, 5, 7, 9
	GameMode string `json:"gameMode"`      // e.g. "SoloStandard"
	Raw      string `json:"difficultyRaw"` // e.g. "_ExpertPlus_SoloStandard"
}

// RawScoreEntry is one validated score from an observed payload.
type RawScoreEntry struct {
	Index         int        `json:"index"` // ordinal position in the source payload
	Hash          string     `json:"hash"`
	Difficulty    Difficulty `json:"difficulty"`
	BaseScore     int        `json:"baseScore"`
	ModifiedScore int        `json:"modifiedScore"`
	Multiplier    float64    `json:"multiplier"`
	PP            float64    `json:"pp"`
	Rank          int        `json:"rank"`
	PayloadMax    int        `json:"payloadMaxScore"` // 0 when the payload did not supply it
}

// EnrichedScoreRecord is a RawScoreEntry merged with map metadata and
// derived numbers.
type EnrichedScoreRecord struct {
	RawScoreEntry

	Map     *MapMetadata       `json:"map"`
	Variant *DifficultyVariant `json:"variant,omitempty"`

	Characteristic  string   `json:"characteristic"`
	DifficultyLabel string   `json:"difficultyLabel"`
	Mode            string   `json:"mode"`
	MaxScore        int      `json:"maxScore"`
	Accuracy        *float64 `json:"accuracy,omitempty"`
}

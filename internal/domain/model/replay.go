package model

import "fmt"

// ReplayKey identifies one attempt on the replay source.
type ReplayKey struct {
	SubjectID     string
	Hash          string
	Difficulty    string
	ModifiedScore int
	Mode          string
}

// String concatenates the key fields in a fixed order.
func (k ReplayKey) String() string {
	return fmt.Sprintf("%s%s%s%d%s", k.SubjectID, k.Hash, k.Difficulty, k.ModifiedScore, k.Mode)
}

// Query drops the score from the key, leaving the filter used to list a
// subject's attempts on one chart.
func (k ReplayKey) Query() ReplayQuery {
	return ReplayQuery{SubjectID: k.SubjectID, Hash: k.Hash, Difficulty: k.Difficulty, Mode: k.Mode}
}

// ReplayQuery filters a subject's replay-source scores down to one chart.
type ReplayQuery struct {
	SubjectID  string
	Hash       string
	Difficulty string
	Mode       string
}

// ScoreImprovement holds deltas against the player's best prior attempt,
// exactly as reported by the replay source.
type ScoreImprovement struct {
	Accuracy    float64 `json:"accuracy"`
	AccLeft     float64 `json:"accLeft"`
	AccRight    float64 `json:"accRight"`
	MissedNotes int     `json:"missedNotes"`
	BadCuts     int     `json:"badCuts"`
}

// ReplaySummary is the subset of a replay-source score we keep.
type ReplaySummary struct {
	ID          int64             `json:"id"`
	AccLeft     float64           `json:"accLeft"`
	AccRight    float64           `json:"accRight"`
	Accuracy    float64           `json:"accuracy"`
	FCAccuracy  float64           `json:"fcAccuracy"`
	BadCuts     int               `json:"badCuts"`
	MissedNotes int               `json:"missedNotes"`
	BombCuts    int               `json:"bombCuts"`
	WallsHit    int               `json:"wallsHit"`
	Pauses      int               `json:"pauses"`
	Improvement *ScoreImprovement `json:"scoreImprovement,omitempty"`
}

// ReplayStatus describes which replay, if any, backs a record.
type ReplayStatus string

// Replay statuses.
const (
	ReplayVerified ReplayStatus = "verified"
	ReplayFallback ReplayStatus = "fallback"
	ReplayNone     ReplayStatus = "none"
)

// ReplayResolution is the per-record result of replay lookup, tagged with
// the context it was requested for.
type ReplayResolution struct {
	BatchID    string         `json:"batchId"`
	Context    QueryContext   `json:"context"`
	Index      int            `json:"index"`
	Hash       string         `json:"hash"`
	Status     ReplayStatus   `json:"status"`
	Summary    *ReplaySummary `json:"summary,omitempty"`
	Comparison *Comparison    `json:"comparison,omitempty"`
	ReplayURL  string         `json:"replayUrl,omitempty"`
}

// ReplayCandidate is one replay-source score for a subject and chart.
type ReplayCandidate struct {
	ModifiedScore int
	Summary       ReplaySummary
}

// Comparison restates a verified replay's improvement against the previous
// best attempt in display units.
type Comparison struct {
	AccuracyGain   float64 `json:"accuracyGain"` // percentage points
	AccLeftGain    float64 `json:"accLeftGain"`
	AccRightGain   float64 `json:"accRightGain"`
	PreviousMisses int     `json:"previousMisses"` // missed notes + bad cuts of the prior best
}

// ReplayJob asks for the replay of one record of a presented batch.
type ReplayJob struct {
	BatchID string
	Context QueryContext
	Record  EnrichedScoreRecord
}

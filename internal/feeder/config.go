// Package feeder drives a running service with synthetic score pages and
// checks the enriched batches it produces.
package feeder

import "time"

// Config holds configuration for a feed run.
type Config struct {
	BaseURL        string        // Base URL of the service
	SiteURL        string        // Origin used to build observed page URLs
	SubjectID      string        // Player id; random when empty
	Pages          int           // Number of score pages to feed
	EntriesPerPage int           // Scores per page
	Workers        int           // Concurrent submitters
	Seed           uint64        // Generator seed; 0 picks one
	Timeout        time.Duration // HTTP request timeout
	PollTimeout    time.Duration // How long to wait for a batch
	OutputFile     string        // Where generated payloads are written; empty skips
	Verbose        bool          // Log every page
}

// Page is one generated scores response with the URLs it is observed under.
type Page struct {
	Number  int           `json:"page"`
	APIURL  string        `json:"apiUrl"`
	SiteURL string        `json:"siteUrl"`
	Payload ScoresPayload `json:"payload"`
}

// ScoresPayload mirrors the score site's player-scores response.
type ScoresPayload struct {
	PlayerScores []PlayerScore `json:"playerScores"`
}

// PlayerScore is one entry of a scores response.
type PlayerScore struct {
	Leaderboard Leaderboard `json:"leaderboard"`
	Score       Score       `json:"score"`
}

// Leaderboard identifies the chart of a score.
type Leaderboard struct {
	SongHash   string     `json:"songHash"`
	Difficulty Difficulty `json:"difficulty"`
}

// Difficulty is the chart difficulty as the score site reports it.
type Difficulty struct {
	Difficulty    int    `json:"difficulty"`
	GameMode      string `json:"gameMode"`
	DifficultyRaw string `json:"difficultyRaw"`
}

// Score is the scored play. A zero Multiplier is omitted, which makes the
// entry invalid for the service.
type Score struct {
	BaseScore     int     `json:"baseScore"`
	ModifiedScore int     `json:"modifiedScore"`
	Multiplier    float64 `json:"multiplier,omitempty"`
	PP            float64 `json:"pp"`
	Rank          int     `json:"rank"`
}

// Batch is the subset of an enriched batch the verifier reads.
type Batch struct {
	ID      string `json:"id"`
	Context struct {
		SubjectID string `json:"subjectId"`
		Page      int    `json:"page"`
		Sort      string `json:"sort"`
	} `json:"context"`
	Records []Record `json:"records"`
}

// Record is the subset of an enriched record the verifier reads.
type Record struct {
	Index     int      `json:"index"`
	Hash      string   `json:"hash"`
	BaseScore int      `json:"baseScore"`
	MaxScore  int      `json:"maxScore"`
	Accuracy  *float64 `json:"accuracy"`
}

// Stats holds run statistics.
type Stats struct {
	PagesGenerated   int
	EntriesGenerated int
	ResponsesPosted  int
	ResponsesFailed  int
	BatchesVerified  int
	RecordsVerified  int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}

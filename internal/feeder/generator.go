package feeder

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/okian/saberlens/internal/domain/scoring"
	"github.com/okian/saberlens/pkg/logger"
)

const (
	hashLength   = 40
	minNotes     = 100
	notesSpread  = 900
	notesPerTier = 50
	maxRank      = 1000
	maxPP        = 600.0
)

var (
	difficultyCodes = []int{1, 3, 5, 7, 9}
	multipliers     = []float64{1, 1, 1, 0.5, 1.06, 1.12, 0.96}
)

// NotesFor is the note count the fake metadata source reports for a chart.
// It is derived from the hash so generator and source agree without state.
func NotesFor(hash, label string) int {
	n, err := strconv.ParseUint(strings.ToLower(hash[:4]), 16, 32)
	if err != nil {
		return 0
	}
	tier := 0
	for i, code := range difficultyCodes {
		if scoring.DifficultyLabel(code) == label {
			tier = i
		}
	}
	return minNotes + int(n)%notesSpread + tier*notesPerTier
}

// generatePages creates the configured number of pages for one subject.
func generatePages(ctx context.Context, config *Config, stats *Stats) ([]Page, error) {
	logger.Get().Info(ctx, "generating score pages",
		logger.Int("pages", config.Pages),
		logger.Int("entriesPerPage", config.EntriesPerPage))

	rng := rand.New(rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15))
	pages := make([]Page, config.Pages)
	for i := range pages {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during generation: %w", err)
		}
		number := i + 1
		pages[i] = Page{
			Number:  number,
			APIURL:  fmt.Sprintf("%s/api/player/%s/scores?page=%d&sort=top", config.SiteURL, config.SubjectID, number),
			SiteURL: fmt.Sprintf("%s/u/%s?page=%d&sort=top", config.SiteURL, config.SubjectID, number),
			Payload: generatePayload(rng, config.EntriesPerPage),
		}
		stats.EntriesGenerated += config.EntriesPerPage
	}

	stats.PagesGenerated = len(pages)
	logger.Get().Info(ctx, "generated pages successfully", logger.Int("count", len(pages)))
	return pages, nil
}

func generatePayload(rng *rand.Rand, n int) ScoresPayload {
	out := ScoresPayload{PlayerScores: make([]PlayerScore, n)}
	for i := range out.PlayerScores {
		out.PlayerScores[i] = generateScore(rng, i)
	}
	return out
}

func generateScore(rng *rand.Rand, idx int) PlayerScore {
	hash := randomHash(rng)
	if idx%unknownEvery == unknownEvery-1 {
		hash = unknownHashPrefix + hash[len(unknownHashPrefix):]
	}

	code := difficultyCodes[rng.IntN(len(difficultyCodes))]
	label := scoring.DifficultyLabel(code)
	maxScore := scoring.MaxScoreFromNoteCount(NotesFor(hash, label))

	base := maxScore/2 + rng.IntN(maxScore/2+1)
	mult := multipliers[rng.IntN(len(multipliers))]
	ps := PlayerScore{
		Leaderboard: Leaderboard{
			SongHash: hash,
			Difficulty: Difficulty{
				Difficulty:    code,
				GameMode:      "SoloStandard",
				DifficultyRaw: "_" + label + "_SoloStandard",
			},
		},
		Score: Score{
			BaseScore:     base,
			ModifiedScore: int(float64(base) * mult),
			Multiplier:    mult,
			PP:            scoring.Round2(rng.Float64() * maxPP),
			Rank:          1 + rng.IntN(maxRank),
		},
	}
	if idx%invalidEvery == invalidEvery-1 {
		ps.Score.Multiplier = 0
	}
	return ps
}

// randomHash returns an upper-case hex hash like the score site sends.
func randomHash(rng *rand.Rand) string {
	const hex = "0123456789ABCDEF"
	b := make([]byte, hashLength)
	for i := range b {
		b[i] = hex[rng.IntN(len(hex))]
	}
	// Keep generated known maps clear of the unknown prefix.
	if strings.HasPrefix(string(b), unknownHashPrefix) {
		b[0] = 'F'
	}
	return string(b)
}

// expectedRecords lists, per payload index, the accuracy the service must
// report for entries it keeps.
func expectedRecords(p ScoresPayload) map[int]expected {
	out := make(map[int]expected, len(p.PlayerScores))
	for i, ps := range p.PlayerScores {
		if ps.Score.Multiplier == 0 || strings.HasPrefix(ps.Leaderboard.SongHash, unknownHashPrefix) {
			continue
		}
		label := scoring.DifficultyLabel(ps.Leaderboard.Difficulty.Difficulty)
		maxScore := scoring.MaxScoreFromNoteCount(NotesFor(ps.Leaderboard.SongHash, label))
		acc, _ := scoring.Accuracy(ps.Score.BaseScore, maxScore, ps.Score.Multiplier)
		out[i] = expected{hash: ps.Leaderboard.SongHash, baseScore: ps.Score.BaseScore, maxScore: maxScore, accuracy: acc}
	}
	return out
}

type expected struct {
	hash      string
	baseScore int
	maxScore  int
	accuracy  float64
}

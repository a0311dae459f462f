package model

import (
	"fmt"
	"time"
)

// SortMode is the ordering a score page was requested with.
type SortMode string

// Known sort modes.
const (
	SortTop    SortMode = "top"
	SortRecent SortMode = "recent"
)

// ParseSortMode maps anything other than "recent" to top.
func ParseSortMode(s string) SortMode {
	if s == string(SortRecent) {
		return SortRecent
	}
	return SortTop
}

// QueryContext identifies the page of scores a payload belongs to.
// Two contexts with equal fields are the same context.
type QueryContext struct {
	SubjectID string   `json:"subjectId"`
	Page      int      `json:"page"`
	Sort      SortMode `json:"sort"`
}

// Key is the serialized form used to key stored batches.
func (q QueryContext) Key() string {
	return fmt.Sprintf("%s:%d:%s", q.SubjectID, q.Page, q.Sort)
}

// IsZero reports whether q carries no subject.
func (q QueryContext) IsZero() bool {
	return q.SubjectID == ""
}

// EnrichedBatch is the set of enriched records produced for one context.
type EnrichedBatch struct {
	ID        string                `json:"id"`
	Context   QueryContext          `json:"context"`
	Records   []EnrichedScoreRecord `json:"records"`
	CreatedAt time.Time             `json:"createdAt"`
}

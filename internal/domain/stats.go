package domain

import "time"

// TimeWindow bounds analytics by event creation time. Nil bounds are open.
type TimeWindow struct {
	From *time.Time
	To   *time.Time
}

// Validate checks the window is not inverted
func (w TimeWindow) Validate() error {
	if w.From != nil && w.To != nil && w.From.After(*w.To) {
		return ErrInvalidTimeWindow
	}
	return nil
}

// EventStats aggregates the non-ignored events of a chatbot over a window
type EventStats struct {
	Total          int64
	IgnoredCount   int64
	AvgResultCount float64
	AvgReadCount   float64
	Feedback       map[ActionKind]int64
	TopCandidates  []CandidateHits
	ZeroResults    []QueryFrequency
}

// CandidateHits is one row of the per-candidate view leaderboard
type CandidateHits struct {
	FAQID    string
	Question string
	Views    int64
}

// QueryFrequency is one row of the zero-result query leaderboard
type QueryFrequency struct {
	Query string
	Count int64
}

package domain

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// SelectionMethod names a winner selection policy.
type SelectionMethod string

const (
	SelectRandom     SelectionMethod = "random"
	SelectScoreBased SelectionMethod = "score-based"
	SelectHybrid     SelectionMethod = "hybrid"
	SelectManual     SelectionMethod = "manual"
)

// UsesScores reports whether the method ranks by score and therefore
// requires scored candidates.
func (m SelectionMethod) UsesScores() bool {
	return m == SelectScoreBased || m == SelectHybrid
}

// ManualWinner is a caller-chosen winner for the manual method. Exactly one
// of SubmissionID or EntryID identifies the candidate.
type ManualWinner struct {
	SubmissionID string `json:"submission_id,omitempty"`
	EntryID      string `json:"entry_id,omitempty"`
}

// SelectionCriteria configures a winner selection run.
type SelectionCriteria struct {
	Method              SelectionMethod    `json:"method" validate:"required,oneof=random score-based hybrid manual"`
	MinScore            *float64           `json:"min_score,omitempty"`
	MaxWinners          int                `json:"max_winners" validate:"required,min=1,max=10000"`
	ExcludeUserIDs      []string           `json:"exclude_user_ids,omitempty"`
	RequireVerification bool               `json:"require_verification"`
	WeightingFactors    map[string]float64 `json:"weighting_factors,omitempty" validate:"omitempty,dive,gt=0"`
	ManualWinners       []ManualWinner     `json:"manual_winners,omitempty" validate:"required_if=Method manual"`
}

// Candidate is one member of the eligible pool: a scored or unscored
// submission, or a giveaway entry. Order is the upstream query order and is
// the tie-break for equal scores.
type Candidate struct {
	UserID       string
	SubmissionID string
	EntryID      string
	Score        *float64
}

// Key identifies the candidate's submission or entry.
func (c Candidate) Key() string {
	if c.SubmissionID != "" {
		return c.SubmissionID
	}
	return c.EntryID
}

// SelectedWinner is one ranked winner produced by a selection run.
type SelectedWinner struct {
	UserID          string   `json:"user_id"`
	SubmissionID    string   `json:"submission_id,omitempty"`
	EntryID         string   `json:"entry_id,omitempty"`
	Score           *float64 `json:"score,omitempty"`
	Rank            int      `json:"rank"`
	SelectionReason string   `json:"selection_reason"`
}

// SelectionResult is the outcome of a selection run.
type SelectionResult struct {
	Kind          string           `json:"kind"`
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Method        SelectionMethod  `json:"method"`
	Winners       []SelectedWinner `json:"winners"`
	TotalEligible int              `json:"total_eligible"`
	SelectedAt    time.Time        `json:"selected_at"`
}

// Selection reasons recorded on winners.
const (
	ReasonRandomSubmission = "Selected randomly from eligible submissions"
	ReasonRandomEntry      = "Selected randomly from eligible entries"
	ReasonManual           = "Selected manually"
)

// RankedReason formats the reason for a score-ranked winner.
func RankedReason(rank int, score float64) string {
	return fmt.Sprintf("Ranked #%d with score of %s", rank, FormatScore(score))
}

// FormatScore renders a score rounded to two decimals in its shortest form.
func FormatScore(score float64) string {
	return strconv.FormatFloat(math.Round(score*100)/100, 'f', -1, 64)
}

// WinnerStats summarizes a finished (or unfinished) selection target.
type WinnerStats struct {
	Kind               string   `json:"kind"`
	ID                 string   `json:"id"`
	Status             string   `json:"status"`
	TotalCandidates    int      `json:"total_candidates"`
	ScoredCandidates   int      `json:"scored_candidates,omitempty"`
	UniqueParticipants int      `json:"unique_participants"`
	Winners            int      `json:"winners"`
	AverageWinnerScore *float64 `json:"average_winner_score,omitempty"`
	HighestScore       *float64 `json:"highest_score,omitempty"`
	ClaimedPrizes      int      `json:"claimed_prizes,omitempty"`
	PendingPrizes      int      `json:"pending_prizes,omitempty"`
	ExpiredPrizes      int      `json:"expired_prizes,omitempty"`
}

// Package domain contains pure, dependency-free models and rules for
// contest judging and winner selection.
package domain

import "time"

// ContestStatus is the lifecycle state of a contest or giveaway.
type ContestStatus string

const (
	ContestActive    ContestStatus = "active"
	ContestJudging   ContestStatus = "judging"
	ContestCompleted ContestStatus = "completed"
)

// SubmissionStatus is the review state of a contest submission or a
// giveaway entry.
type SubmissionStatus string

const (
	SubmissionPending      SubmissionStatus = "pending"
	SubmissionUnderReview  SubmissionStatus = "under_review"
	SubmissionApproved     SubmissionStatus = "approved"
	SubmissionRejected     SubmissionStatus = "rejected"
	SubmissionDisqualified SubmissionStatus = "disqualified"
	SubmissionWinner       SubmissionStatus = "winner"
)

// Contest is the upstream contest row the engine reads and completes.
type Contest struct {
	ID        string        `json:"id" db:"id"`
	Title     string        `json:"title" db:"title"`
	Status    ContestStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

// Submission is a participant's contest entry. Score is written back by
// session completion.
type Submission struct {
	ID        string           `json:"id" db:"id"`
	ContestID string           `json:"contest_id" db:"contest_id"`
	UserID    string           `json:"user_id" db:"user_id"`
	Title     string           `json:"title" db:"title"`
	Status    SubmissionStatus `json:"status" db:"status"`
	Score     *float64         `json:"score,omitempty" db:"score"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// Giveaway is the upstream giveaway row.
type Giveaway struct {
	ID        string        `json:"id" db:"id"`
	Title     string        `json:"title" db:"title"`
	Status    ContestStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

// GiveawayEntry is one entry into a giveaway. A user may hold several.
type GiveawayEntry struct {
	ID         string           `json:"id" db:"id"`
	GiveawayID string           `json:"giveaway_id" db:"giveaway_id"`
	UserID     string           `json:"user_id" db:"user_id"`
	Status     SubmissionStatus `json:"status" db:"status"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
}

// PrizeClaimStatus tracks whether a giveaway winner claimed the prize.
type PrizeClaimStatus string

const (
	PrizeClaimPending PrizeClaimStatus = "pending"
	PrizeClaimClaimed PrizeClaimStatus = "claimed"
	PrizeClaimExpired PrizeClaimStatus = "expired"
)

// GiveawayWinner is the persisted record of a giveaway draw result.
type GiveawayWinner struct {
	ID               string           `json:"id" db:"id"`
	GiveawayID       string           `json:"giveaway_id" db:"giveaway_id"`
	EntryID          string           `json:"entry_id" db:"entry_id"`
	UserID           string           `json:"user_id" db:"user_id"`
	Rank             int              `json:"rank" db:"rank"`
	SelectionReason  string           `json:"selection_reason" db:"selection_reason"`
	PrizeClaimStatus PrizeClaimStatus `json:"prize_claim_status" db:"prize_claim_status"`
	ClaimDeadline    time.Time        `json:"claim_deadline" db:"claim_deadline"`
	SelectedAt       time.Time        `json:"selected_at" db:"selected_at"`
}

// User is the subset of the user record the engine needs.
type User struct {
	ID       string `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Email    string `json:"email" db:"email"`
	Verified bool   `json:"verified" db:"verified"`
}

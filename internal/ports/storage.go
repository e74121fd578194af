// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"

	"github.com/ahrav/go-gavel-contests/internal/domain"
)

// Store is the relational storage collaborator. Every lookup of a missing
// row returns an error matching domain.ErrNotFound.
//
// Implementations must make UpsertJudgeScore atomic on the natural key
// (submission_id, judge_id) and must make WithinTx all-or-nothing.
type Store interface {
	ContestStore
	JudgingStore
	GiveawayStore
	UserStore
	OutboxStore

	// WithinTx runs fn against a transaction-bound Store. If fn returns an
	// error every write made through the bound Store is discarded. Nested
	// calls on the bound Store join the outer transaction.
	//
	// Example:
	//
	//	err := store.WithinTx(ctx, func(tx ports.Store) error {
	//	    if err := tx.UpdateSession(ctx, session); err != nil {
	//	        return err
	//	    }
	//	    return tx.UpdateSubmissionResult(ctx, id, status, &score)
	//	})
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// ContestStore covers contests and their submissions.
type ContestStore interface {
	GetContest(ctx context.Context, id string) (domain.Contest, error)
	UpdateContestStatus(ctx context.Context, id string, status domain.ContestStatus) error

	GetSubmission(ctx context.Context, id string) (domain.Submission, error)
	// ListSubmissions returns the contest's submissions in creation order.
	ListSubmissions(ctx context.Context, contestID string) ([]domain.Submission, error)
	// UpdateSubmissionResult writes status and, when score is non-nil, score.
	UpdateSubmissionResult(ctx context.Context, id string, status domain.SubmissionStatus, score *float64) error
}

// JudgingStore covers sessions, scores, discussion and judge assignments.
type JudgingStore interface {
	CreateSession(ctx context.Context, s domain.JudgingSession) error
	GetSession(ctx context.Context, id string) (domain.JudgingSession, error)
	// LockSession reads the session and holds a write lock on it until the
	// surrounding transaction ends. Outside a transaction it behaves like
	// GetSession.
	LockSession(ctx context.Context, id string) (domain.JudgingSession, error)
	FindSessionBySubmission(ctx context.Context, submissionID string) (domain.JudgingSession, error)
	UpdateSession(ctx context.Context, s domain.JudgingSession) error

	// UpsertJudgeScore inserts or overwrites the score keyed by
	// (SubmissionID, JudgeID) and returns the stored row.
	UpsertJudgeScore(ctx context.Context, score domain.JudgeScore) (domain.JudgeScore, error)
	GetJudgeScore(ctx context.Context, submissionID, judgeID string) (domain.JudgeScore, error)
	// ListJudgeScores returns all scores for a submission ordered by first
	// submission time.
	ListJudgeScores(ctx context.Context, submissionID string) ([]domain.JudgeScore, error)
	CountSubmittedScores(ctx context.Context, submissionID string) (int, error)

	AddDiscussionEntry(ctx context.Context, e domain.DiscussionEntry) error
	GetDiscussionEntry(ctx context.Context, id string) (domain.DiscussionEntry, error)
	// ListDiscussionEntries returns all entries of a session oldest first.
	ListDiscussionEntries(ctx context.Context, sessionID string) ([]domain.DiscussionEntry, error)

	// SaveJudgeAssignment inserts or updates the row keyed by
	// (ContestID, JudgeID).
	SaveJudgeAssignment(ctx context.Context, a domain.JudgeAssignment) error
	// ListJudgeAssignments returns every assignment row for the contest,
	// removed ones included, ordered by assignment time.
	ListJudgeAssignments(ctx context.Context, contestID string) ([]domain.JudgeAssignment, error)
}

// GiveawayStore covers giveaways, entries and winner records.
type GiveawayStore interface {
	GetGiveaway(ctx context.Context, id string) (domain.Giveaway, error)
	UpdateGiveawayStatus(ctx context.Context, id string, status domain.ContestStatus) error
	// ListGiveawayEntries returns the giveaway's entries in creation order.
	ListGiveawayEntries(ctx context.Context, giveawayID string) ([]domain.GiveawayEntry, error)
	UpdateEntryStatus(ctx context.Context, id string, status domain.SubmissionStatus) error
	CreateGiveawayWinner(ctx context.Context, w domain.GiveawayWinner) error
	ListGiveawayWinners(ctx context.Context, giveawayID string) ([]domain.GiveawayWinner, error)
}

// UserStore resolves user identity and verification state.
type UserStore interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
	// GetUsers returns the users that exist among ids, keyed by ID.
	GetUsers(ctx context.Context, ids []string) (map[string]domain.User, error)
}

// OutboxStore keeps notifications whose delivery failed.
type OutboxStore interface {
	RecordUndeliveredNotification(ctx context.Context, n domain.UndeliveredNotification) error
	ListUndeliveredNotifications(ctx context.Context, limit int) ([]domain.UndeliveredNotification, error)
}

package postgres

import (
	"context"

	"github.com/ahrav/go-gavel-contests/internal/domain"
)

const submissionColumns = `id, contest_id, user_id, title, status, score, created_at`

// GetContest implements ports.ContestStore.
func (s *Store) GetContest(ctx context.Context, id string) (domain.Contest, error) {
	var c domain.Contest
	err := s.getOne(ctx, &c, "contest", id, "contests",
		`SELECT id, title, status, created_at FROM contests WHERE id = $1`, id)
	return c, err
}

// UpdateContestStatus implements ports.ContestStore.
func (s *Store) UpdateContestStatus(ctx context.Context, id string, status domain.ContestStatus) error {
	return s.execOne(ctx, "contest", id, "contests",
		`UPDATE contests SET status = $2 WHERE id = $1`, id, status)
}

// GetSubmission implements ports.ContestStore.
func (s *Store) GetSubmission(ctx context.Context, id string) (domain.Submission, error) {
	var sub domain.Submission
	err := s.getOne(ctx, &sub, "submission", id, "submissions",
		`SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id)
	return sub, err
}

// ListSubmissions implements ports.ContestStore.
func (s *Store) ListSubmissions(ctx context.Context, contestID string) ([]domain.Submission, error) {
	subs := []domain.Submission{}
	err := s.selectAll(ctx, &subs, "submissions",
		`SELECT `+submissionColumns+` FROM submissions WHERE contest_id = $1 ORDER BY seq`, contestID)
	return subs, err
}

// UpdateSubmissionResult implements ports.ContestStore. A nil score keeps
// the stored one.
func (s *Store) UpdateSubmissionResult(
	ctx context.Context, id string, status domain.SubmissionStatus, score *float64,
) error {
	return s.execOne(ctx, "submission", id, "submissions",
		`UPDATE submissions SET status = $2, score = COALESCE($3, score) WHERE id = $1`,
		id, status, score)
}

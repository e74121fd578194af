package memory

import (
	"context"

	"github.com/ahrav/go-gavel-contests/internal/domain"
)

// GetContest implements ports.ContestStore.
func (s *Store) GetContest(_ context.Context, id string) (domain.Contest, error) {
	var out domain.Contest
	err := s.read(func(d *dataset) error {
		c, ok := d.contests[id]
		if !ok {
			return domain.NewNotFoundError("contest", id)
		}
		out = c
		return nil
	})
	return out, err
}

// UpdateContestStatus implements ports.ContestStore.
func (s *Store) UpdateContestStatus(_ context.Context, id string, status domain.ContestStatus) error {
	return s.write(func(d *dataset) error {
		c, ok := d.contests[id]
		if !ok {
			return domain.NewNotFoundError("contest", id)
		}
		c.Status = status
		d.contests[id] = c
		return nil
	})
}

// GetSubmission implements ports.ContestStore.
func (s *Store) GetSubmission(_ context.Context, id string) (domain.Submission, error) {
	var out domain.Submission
	err := s.read(func(d *dataset) error {
		sub, ok := d.submissions[id]
		if !ok {
			return domain.NewNotFoundError("submission", id)
		}
		out = copySubmission(sub)
		return nil
	})
	return out, err
}

// ListSubmissions implements ports.ContestStore.
func (s *Store) ListSubmissions(_ context.Context, contestID string) ([]domain.Submission, error) {
	var out []domain.Submission
	err := s.read(func(d *dataset) error {
		ids := d.contestSubmissions[contestID]
		out = make([]domain.Submission, 0, len(ids))
		for _, id := range ids {
			out = append(out, copySubmission(d.submissions[id]))
		}
		return nil
	})
	return out, err
}

// UpdateSubmissionResult implements ports.ContestStore.
func (s *Store) UpdateSubmissionResult(
	_ context.Context, id string, status domain.SubmissionStatus, score *float64,
) error {
	return s.write(func(d *dataset) error {
		sub, ok := d.submissions[id]
		if !ok {
			return domain.NewNotFoundError("submission", id)
		}
		sub.Status = status
		if score != nil {
			v := *score
			sub.Score = &v
		}
		d.submissions[id] = sub
		return nil
	})
}

func copySubmission(sub domain.Submission) domain.Submission {
	if sub.Score != nil {
		v := *sub.Score
		sub.Score = &v
	}
	return sub
}

package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/ahrav/go-gavel-contests/internal/domain"
)

// CreateSession implements ports.JudgingStore.
func (s *Store) CreateSession(_ context.Context, sess domain.JudgingSession) error {
	return s.write(func(d *dataset) error {
		if _, ok := d.sessions[sess.ID]; ok {
			return fmt.Errorf("judging session %q already exists", sess.ID)
		}
		d.sessions[sess.ID] = copySession(sess)
		d.submissionSession[sess.SubmissionID] = sess.ID
		return nil
	})
}

// GetSession implements ports.JudgingStore.
func (s *Store) GetSession(_ context.Context, id string) (domain.JudgingSession, error) {
	var out domain.JudgingSession
	err := s.read(func(d *dataset) error {
		sess, ok := d.sessions[id]
		if !ok {
			return domain.NewNotFoundError("judging session", id)
		}
		out = copySession(sess)
		return nil
	})
	return out, err
}

// LockSession implements ports.JudgingStore. Transactions are already
// serialized, so the read needs no extra lock.
func (s *Store) LockSession(ctx context.Context, id string) (domain.JudgingSession, error) {
	return s.GetSession(ctx, id)
}

// FindSessionBySubmission implements ports.JudgingStore.
func (s *Store) FindSessionBySubmission(_ context.Context, submissionID string) (domain.JudgingSession, error) {
	var out domain.JudgingSession
	err := s.read(func(d *dataset) error {
		id, ok := d.submissionSession[submissionID]
		if !ok {
			return domain.NewNotFoundError("judging session for submission", submissionID)
		}
		out = copySession(d.sessions[id])
		return nil
	})
	return out, err
}

// UpdateSession implements ports.JudgingStore.
func (s *Store) UpdateSession(_ context.Context, sess domain.JudgingSession) error {
	return s.write(func(d *dataset) error {
		if _, ok := d.sessions[sess.ID]; !ok {
			return domain.NewNotFoundError("judging session", sess.ID)
		}
		d.sessions[sess.ID] = copySession(sess)
		return nil
	})
}

// UpsertJudgeScore implements ports.JudgingStore. The first write fixes the
// row ID and its position in the submission's ordering.
func (s *Store) UpsertJudgeScore(_ context.Context, score domain.JudgeScore) (domain.JudgeScore, error) {
	var out domain.JudgeScore
	err := s.write(func(d *dataset) error {
		key := pairKey(score.SubmissionID, score.JudgeID)
		if prev, ok := d.scores[key]; ok {
			score.ID = prev.ID
		} else {
			d.submissionScores[score.SubmissionID] = append(d.submissionScores[score.SubmissionID], key)
		}
		d.scores[key] = copyScore(score)
		out = copyScore(score)
		return nil
	})
	return out, err
}

// GetJudgeScore implements ports.JudgingStore.
func (s *Store) GetJudgeScore(_ context.Context, submissionID, judgeID string) (domain.JudgeScore, error) {
	var out domain.JudgeScore
	err := s.read(func(d *dataset) error {
		sc, ok := d.scores[pairKey(submissionID, judgeID)]
		if !ok {
			return domain.NewNotFoundError("judge score", submissionID+"/"+judgeID)
		}
		out = copyScore(sc)
		return nil
	})
	return out, err
}

// ListJudgeScores implements ports.JudgingStore.
func (s *Store) ListJudgeScores(_ context.Context, submissionID string) ([]domain.JudgeScore, error) {
	var out []domain.JudgeScore
	err := s.read(func(d *dataset) error {
		keys := d.submissionScores[submissionID]
		out = make([]domain.JudgeScore, 0, len(keys))
		for _, k := range keys {
			out = append(out, copyScore(d.scores[k]))
		}
		return nil
	})
	return out, err
}

// CountSubmittedScores implements ports.JudgingStore.
func (s *Store) CountSubmittedScores(_ context.Context, submissionID string) (int, error) {
	var n int
	err := s.read(func(d *dataset) error {
		for _, k := range d.submissionScores[submissionID] {
			if d.scores[k].IsSubmitted() {
				n++
			}
		}
		return nil
	})
	return n, err
}

// AddDiscussionEntry implements ports.JudgingStore.
func (s *Store) AddDiscussionEntry(_ context.Context, e domain.DiscussionEntry) error {
	return s.write(func(d *dataset) error {
		if _, ok := d.discussion[e.ID]; ok {
			return fmt.Errorf("discussion entry %q already exists", e.ID)
		}
		d.discussion[e.ID] = e
		d.sessionDiscussion[e.SessionID] = append(d.sessionDiscussion[e.SessionID], e.ID)
		return nil
	})
}

// GetDiscussionEntry implements ports.JudgingStore.
func (s *Store) GetDiscussionEntry(_ context.Context, id string) (domain.DiscussionEntry, error) {
	var out domain.DiscussionEntry
	err := s.read(func(d *dataset) error {
		e, ok := d.discussion[id]
		if !ok {
			return domain.NewNotFoundError("discussion entry", id)
		}
		out = e
		return nil
	})
	return out, err
}

// ListDiscussionEntries implements ports.JudgingStore.
func (s *Store) ListDiscussionEntries(_ context.Context, sessionID string) ([]domain.DiscussionEntry, error) {
	var out []domain.DiscussionEntry
	err := s.read(func(d *dataset) error {
		ids := d.sessionDiscussion[sessionID]
		out = make([]domain.DiscussionEntry, 0, len(ids))
		for _, id := range ids {
			out = append(out, d.discussion[id])
		}
		return nil
	})
	return out, err
}

// SaveJudgeAssignment implements ports.JudgingStore.
func (s *Store) SaveJudgeAssignment(_ context.Context, a domain.JudgeAssignment) error {
	return s.write(func(d *dataset) error {
		key := pairKey(a.ContestID, a.JudgeID)
		if prev, ok := d.assignments[key]; ok {
			a.ID = prev.ID
		} else {
			d.contestAssignments[a.ContestID] = append(d.contestAssignments[a.ContestID], key)
		}
		a.Permissions = slices.Clone(a.Permissions)
		d.assignments[key] = a
		return nil
	})
}

// ListJudgeAssignments implements ports.JudgingStore.
func (s *Store) ListJudgeAssignments(_ context.Context, contestID string) ([]domain.JudgeAssignment, error) {
	var out []domain.JudgeAssignment
	err := s.read(func(d *dataset) error {
		keys := d.contestAssignments[contestID]
		out = make([]domain.JudgeAssignment, 0, len(keys))
		for _, k := range keys {
			a := d.assignments[k]
			a.Permissions = slices.Clone(a.Permissions)
			out = append(out, a)
		}
		return nil
	})
	return out, err
}

func copySession(s domain.JudgingSession) domain.JudgingSession {
	s.JudgeWeights = maps.Clone(s.JudgeWeights)
	return s
}

func copyScore(s domain.JudgeScore) domain.JudgeScore {
	s.CriteriaScores = maps.Clone(s.CriteriaScores)
	return s
}

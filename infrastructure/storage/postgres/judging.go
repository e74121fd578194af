package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ahrav/go-gavel-contests/internal/domain"
)

// CreateSession implements ports.JudgingStore.
func (s *Store) CreateSession(ctx context.Context, sess domain.JudgingSession) error {
	_, err := sqlx.NamedExecContext(ctx, s.q, `
		INSERT INTO judging_sessions (`+sessionColumns+`)
		VALUES (:id, :contest_id, :submission_id, :session_type, :required_judges,
			:completed_judges, :aggregation_method, :consensus_threshold, :allow_discussion,
			:anonymous_scoring, :judge_weights, :status, :final_score, :final_decision,
			:consensus_reached, :created_at, :updated_at, :completed_at)
	`, toSessionRow(sess))
	return mapError("judging_sessions", "insert", err)
}

// GetSession implements ports.JudgingStore.
func (s *Store) GetSession(ctx context.Context, id string) (domain.JudgingSession, error) {
	var row sessionRow
	err := s.getOne(ctx, &row, "judging session", id, "judging_sessions",
		`SELECT `+sessionColumns+` FROM judging_sessions WHERE id = $1`, id)
	return row.domain(), err
}

// LockSession implements ports.JudgingStore. Inside a transaction the row
// stays locked until commit or rollback.
func (s *Store) LockSession(ctx context.Context, id string) (domain.JudgingSession, error) {
	if s.tx == nil {
		return s.GetSession(ctx, id)
	}
	var row sessionRow
	err := s.getOne(ctx, &row, "judging session", id, "judging_sessions",
		`SELECT `+sessionColumns+` FROM judging_sessions WHERE id = $1 FOR UPDATE`, id)
	return row.domain(), err
}

// FindSessionBySubmission implements ports.JudgingStore. The unique index on
// submission_id allows at most one row.
func (s *Store) FindSessionBySubmission(ctx context.Context, submissionID string) (domain.JudgingSession, error) {
	var row sessionRow
	err := s.getOne(ctx, &row, "judging session for submission", submissionID, "judging_sessions",
		`SELECT `+sessionColumns+` FROM judging_sessions
		WHERE submission_id = $1`, submissionID)
	return row.domain(), err
}

// UpdateSession implements ports.JudgingStore.
func (s *Store) UpdateSession(ctx context.Context, sess domain.JudgingSession) error {
	res, err := sqlx.NamedExecContext(ctx, s.q, `
		UPDATE judging_sessions SET
			completed_judges = :completed_judges,
			judge_weights = :judge_weights,
			status = :status,
			final_score = :final_score,
			final_decision = :final_decision,
			consensus_reached = :consensus_reached,
			updated_at = :updated_at,
			completed_at = :completed_at
		WHERE id = :id
	`, toSessionRow(sess))
	if err != nil {
		return mapError("judging_sessions", "update", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NewNotFoundError("judging session", sess.ID)
	}
	return nil
}

// UpsertJudgeScore implements ports.JudgingStore. The unique key on
// (submission_id, judge_id) makes the write atomic; the original row ID
// and position are kept on conflict.
func (s *Store) UpsertJudgeScore(ctx context.Context, score domain.JudgeScore) (domain.JudgeScore, error) {
	rows, err := sqlx.NamedQueryContext(ctx, s.q, `
		INSERT INTO judge_scores (`+scoreColumns+`)
		VALUES (:id, :session_id, :submission_id, :judge_id, :criteria_scores,
			:overall_rating, :total_score, :comments, :judge_notes, :confidence,
			:time_spent_ms, :status, :submitted_at, :updated_at)
		ON CONFLICT (submission_id, judge_id) DO UPDATE SET
			session_id = EXCLUDED.session_id,
			criteria_scores = EXCLUDED.criteria_scores,
			overall_rating = EXCLUDED.overall_rating,
			total_score = EXCLUDED.total_score,
			comments = EXCLUDED.comments,
			judge_notes = EXCLUDED.judge_notes,
			confidence = EXCLUDED.confidence,
			time_spent_ms = EXCLUDED.time_spent_ms,
			status = EXCLUDED.status,
			submitted_at = EXCLUDED.submitted_at,
			updated_at = EXCLUDED.updated_at
		RETURNING `+scoreColumns, toScoreRow(score))
	if err != nil {
		return domain.JudgeScore{}, mapError("judge_scores", "upsert", err)
	}
	defer rows.Close()

	var row scoreRow
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return domain.JudgeScore{}, mapError("judge_scores", "upsert", err)
		}
		return domain.JudgeScore{}, mapError("judge_scores", "upsert", errNoRowReturned)
	}
	if err := rows.StructScan(&row); err != nil {
		return domain.JudgeScore{}, mapError("judge_scores", "upsert", err)
	}
	return row.domain(), nil
}

// GetJudgeScore implements ports.JudgingStore.
func (s *Store) GetJudgeScore(ctx context.Context, submissionID, judgeID string) (domain.JudgeScore, error) {
	var row scoreRow
	err := s.getOne(ctx, &row, "judge score", submissionID+"/"+judgeID, "judge_scores",
		`SELECT `+scoreColumns+` FROM judge_scores WHERE submission_id = $1 AND judge_id = $2`,
		submissionID, judgeID)
	return row.domain(), err
}

// ListJudgeScores implements ports.JudgingStore.
func (s *Store) ListJudgeScores(ctx context.Context, submissionID string) ([]domain.JudgeScore, error) {
	var rows []scoreRow
	if err := s.selectAll(ctx, &rows, "judge_scores",
		`SELECT `+scoreColumns+` FROM judge_scores WHERE submission_id = $1 ORDER BY seq`,
		submissionID); err != nil {
		return nil, err
	}
	out := make([]domain.JudgeScore, len(rows))
	for i, r := range rows {
		out[i] = r.domain()
	}
	return out, nil
}

// CountSubmittedScores implements ports.JudgingStore.
func (s *Store) CountSubmittedScores(ctx context.Context, submissionID string) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, s.q, &n,
		`SELECT COUNT(*) FROM judge_scores WHERE submission_id = $1 AND status = $2`,
		submissionID, domain.ScoreStatusSubmitted)
	return n, mapError("judge_scores", "count", err)
}

const discussionColumns = `id, session_id, judge_id, message, message_type, reply_to_id, is_private, created_at`

// AddDiscussionEntry implements ports.JudgingStore.
func (s *Store) AddDiscussionEntry(ctx context.Context, e domain.DiscussionEntry) error {
	_, err := sqlx.NamedExecContext(ctx, s.q, `
		INSERT INTO discussion_entries (`+discussionColumns+`)
		VALUES (:id, :session_id, :judge_id, :message, :message_type, :reply_to_id, :is_private, :created_at)
	`, e)
	return mapError("discussion_entries", "insert", err)
}

// GetDiscussionEntry implements ports.JudgingStore.
func (s *Store) GetDiscussionEntry(ctx context.Context, id string) (domain.DiscussionEntry, error) {
	var e domain.DiscussionEntry
	err := s.getOne(ctx, &e, "discussion entry", id, "discussion_entries",
		`SELECT `+discussionColumns+` FROM discussion_entries WHERE id = $1`, id)
	return e, err
}

// ListDiscussionEntries implements ports.JudgingStore.
func (s *Store) ListDiscussionEntries(ctx context.Context, sessionID string) ([]domain.DiscussionEntry, error) {
	entries := []domain.DiscussionEntry{}
	err := s.selectAll(ctx, &entries, "discussion_entries",
		`SELECT `+discussionColumns+` FROM discussion_entries WHERE session_id = $1 ORDER BY seq`,
		sessionID)
	return entries, err
}

// SaveJudgeAssignment implements ports.JudgingStore.
func (s *Store) SaveJudgeAssignment(ctx context.Context, a domain.JudgeAssignment) error {
	_, err := sqlx.NamedExecContext(ctx, s.q, `
		INSERT INTO judge_assignments (`+assignmentColumns+`)
		VALUES (:id, :contest_id, :judge_id, :assigned_by, :permissions, :status, :assigned_at, :removed_at)
		ON CONFLICT (contest_id, judge_id) DO UPDATE SET
			assigned_by = EXCLUDED.assigned_by,
			permissions = EXCLUDED.permissions,
			status = EXCLUDED.status,
			assigned_at = EXCLUDED.assigned_at,
			removed_at = EXCLUDED.removed_at
	`, toAssignmentRow(a))
	return mapError("judge_assignments", "upsert", err)
}

// ListJudgeAssignments implements ports.JudgingStore.
func (s *Store) ListJudgeAssignments(ctx context.Context, contestID string) ([]domain.JudgeAssignment, error) {
	var rows []assignmentRow
	if err := s.selectAll(ctx, &rows, "judge_assignments",
		`SELECT `+assignmentColumns+` FROM judge_assignments WHERE contest_id = $1 ORDER BY seq`,
		contestID); err != nil {
		return nil, err
	}
	out := make([]domain.JudgeAssignment, len(rows))
	for i, r := range rows {
		out[i] = r.domain()
	}
	return out, nil
}

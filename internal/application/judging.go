package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ahrav/go-gavel-contests/infrastructure/metrics"
	"github.com/ahrav/go-gavel-contests/internal/domain"
	"github.com/ahrav/go-gavel-contests/internal/ports"
)

// CreateSessionInput opens a judging session for one submission.
type CreateSessionInput struct {
	ContestID    string               `json:"contest_id" validate:"required"`
	SubmissionID string               `json:"submission_id" validate:"required"`
	Config       domain.SessionConfig `json:"config"`
}

// ScoreInput is a judge's raw evaluation before the total is derived.
type ScoreInput struct {
	CriteriaScores   map[string]float64 `json:"criteria_scores" validate:"required,min=1"`
	OverallRating    float64            `json:"overall_rating" validate:"min=0"`
	Comments         string             `json:"comments,omitempty" validate:"max=10000"`
	JudgeNotes       string             `json:"judge_notes,omitempty" validate:"max=10000"`
	Confidence       *float64           `json:"confidence,omitempty" validate:"omitempty,min=0,max=1"`
	TimeSpentSeconds *int               `json:"time_spent_seconds,omitempty" validate:"omitempty,min=0"`
	// Status defaults to submitted. Drafts are stored but do not count
	// toward completion.
	Status domain.ScoreStatus `json:"status,omitempty" validate:"omitempty,oneof=draft submitted"`
}

// SubmitScoreInput records one judge's score for one submission.
type SubmitScoreInput struct {
	SessionID    string                    `json:"session_id" validate:"required"`
	SubmissionID string                    `json:"submission_id" validate:"required"`
	JudgeID      string                    `json:"judge_id" validate:"required"`
	Score        ScoreInput                `json:"score"`
	Criteria     []domain.JudgingCriterion `json:"criteria" validate:"required,min=1,dive"`
}

// CreateJudgingSession opens a session for a submission. Unset options take
// the engine defaults. A submission is judged by exactly one session; once
// that session exists, open or completed, further sessions are rejected.
func (e *Engine) CreateJudgingSession(ctx context.Context, in CreateSessionInput) (sess domain.JudgingSession, err error) {
	ctx, done := e.observe(ctx, "CreateJudgingSession",
		attribute.String("contest_id", in.ContestID),
		attribute.String("submission_id", in.SubmissionID),
	)
	defer func() { done(err) }()

	if err := validateInput("JudgingSession", in); err != nil {
		return domain.JudgingSession{}, err
	}

	sess = e.newSession(in)
	err = e.store.WithinTx(ctx, func(tx ports.Store) error {
		if _, err := tx.GetContest(ctx, in.ContestID); err != nil {
			return err
		}
		sub, err := tx.GetSubmission(ctx, in.SubmissionID)
		if err != nil {
			return err
		}
		if sub.ContestID != in.ContestID {
			return domain.Invalid("JudgingSession",
				fmt.Sprintf("submission %q does not belong to contest %q", in.SubmissionID, in.ContestID))
		}

		// Scores are keyed by submission, so a second session would
		// inherit them and rewrite a completed outcome.
		existing, err := tx.FindSessionBySubmission(ctx, in.SubmissionID)
		switch {
		case err == nil:
			return domain.Invalid("JudgingSession",
				fmt.Sprintf("submission %q already has %s session %q", in.SubmissionID, existing.Status, existing.ID))
		case !domain.IsNotFound(err):
			return err
		}

		if err := tx.CreateSession(ctx, sess); err != nil {
			return err
		}
		return tx.UpdateSubmissionResult(ctx, in.SubmissionID, domain.SubmissionUnderReview, nil)
	})
	if err != nil {
		return domain.JudgingSession{}, err
	}

	e.logger.InfoContext(ctx, "judging session created",
		slog.String("session_id", sess.ID),
		slog.String("submission_id", sess.SubmissionID),
		slog.Int("required_judges", sess.RequiredJudges),
		slog.String("method", sess.AggregationMethod.String()),
	)
	return sess, nil
}

func (e *Engine) newSession(in CreateSessionInput) domain.JudgingSession {
	c := in.Config
	now := e.now().UTC()
	sess := domain.JudgingSession{
		ID:                 e.newID(),
		ContestID:          in.ContestID,
		SubmissionID:       in.SubmissionID,
		SessionType:        c.SessionType,
		RequiredJudges:     c.RequiredJudges,
		AggregationMethod:  c.AggregationMethod,
		ConsensusThreshold: e.cfg.Consensus.DefaultThreshold,
		AllowDiscussion:    c.AllowDiscussion,
		AnonymousScoring:   c.AnonymousScoring,
		JudgeWeights:       c.JudgeWeights,
		Status:             domain.SessionOpen,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if sess.SessionType == "" {
		sess.SessionType = domain.SessionIndependent
	}
	if sess.RequiredJudges == 0 {
		sess.RequiredJudges = e.cfg.Sessions.DefaultRequiredJudges
	}
	if sess.AggregationMethod == "" {
		sess.AggregationMethod = domain.AggregationAverage
	}
	if c.ConsensusThreshold != nil {
		sess.ConsensusThreshold = *c.ConsensusThreshold
	}
	return sess
}

// SubmitJudgeScore upserts a judge's score and completes the session once
// enough judges have submitted. Resubmitting overwrites the judge's earlier
// score. The returned score carries the derived TotalScore.
//
// The read-modify-write of the session runs under a per-submission lock and
// inside one store transaction, so concurrent judges complete a session
// exactly once. A concurrency failure is retried once before it surfaces.
func (e *Engine) SubmitJudgeScore(ctx context.Context, in SubmitScoreInput) (score domain.JudgeScore, err error) {
	ctx, done := e.observe(ctx, "SubmitJudgeScore",
		attribute.String("session_id", in.SessionID),
		attribute.String("submission_id", in.SubmissionID),
		attribute.String("judge_id", in.JudgeID),
	)
	defer func() { done(err) }()

	if err := validateInput("JudgeScore", in); err != nil {
		return domain.JudgeScore{}, err
	}
	criteria, err := domain.NormalizeCriteria(in.Criteria)
	if err != nil {
		return domain.JudgeScore{}, err
	}
	if err := domain.ValidateCriteriaScores(in.Score.CriteriaScores, criteria); err != nil {
		return domain.JudgeScore{}, err
	}

	now := e.now().UTC()
	candidate := domain.JudgeScore{
		ID:             e.newID(),
		SessionID:      in.SessionID,
		SubmissionID:   in.SubmissionID,
		JudgeID:        in.JudgeID,
		CriteriaScores: in.Score.CriteriaScores,
		OverallRating:  in.Score.OverallRating,
		TotalScore:     domain.RoundScore(domain.ComputeTotalScore(in.Score.CriteriaScores, criteria)),
		Comments:       in.Score.Comments,
		JudgeNotes:     in.Score.JudgeNotes,
		Confidence:     in.Score.Confidence,
		Status:         in.Score.Status,
		SubmittedAt:    now,
		UpdatedAt:      now,
	}
	if candidate.Status == "" {
		candidate.Status = domain.ScoreStatusSubmitted
	}
	if in.Score.TimeSpentSeconds != nil {
		d := time.Duration(*in.Score.TimeSpentSeconds) * time.Second
		candidate.TimeSpent = &d
	}

	var completed *domain.JudgingSession
	err = e.retryOnConflict(ctx, "SubmitJudgeScore", func() error {
		completed = nil
		unlock, err := e.locks.Lock(ctx, "submission:"+in.SubmissionID, e.cfg.Sessions.LockTimeout)
		if err != nil {
			return err
		}
		defer unlock()

		return e.store.WithinTx(ctx, func(tx ports.Store) error {
			stored, sess, err := e.applyScore(ctx, tx, candidate)
			if err != nil {
				return err
			}
			score = stored
			completed = sess
			return nil
		})
	})
	if err != nil {
		return domain.JudgeScore{}, err
	}

	e.metrics.RecordCounter(metrics.MetricScoresSubmitted, 1, map[string]string{"status": string(score.Status)})
	if completed != nil {
		e.recordCompletion(ctx, *completed)
	}
	return score, nil
}

// applyScore is the transactional body of SubmitJudgeScore. It returns the
// session when this call completed it.
func (e *Engine) applyScore(
	ctx context.Context, tx ports.Store, score domain.JudgeScore,
) (domain.JudgeScore, *domain.JudgingSession, error) {
	sess, err := tx.LockSession(ctx, score.SessionID)
	if err != nil {
		return domain.JudgeScore{}, nil, err
	}
	if sess.SubmissionID != score.SubmissionID {
		return domain.JudgeScore{}, nil, domain.Invalid("JudgeScore",
			fmt.Sprintf("submission %q is not judged in session %q", score.SubmissionID, sess.ID))
	}

	if sess.IsCompleted() {
		if e.cfg.Sessions.LateSubmissionPolicy != LateSubmissionIgnore {
			return domain.JudgeScore{}, nil, fmt.Errorf("session %q: %w", sess.ID, domain.ErrSessionCompleted)
		}
		stored, err := tx.UpsertJudgeScore(ctx, score)
		return stored, nil, err
	}

	stored, err := tx.UpsertJudgeScore(ctx, score)
	if err != nil {
		return domain.JudgeScore{}, nil, err
	}

	submitted, err := tx.CountSubmittedScores(ctx, score.SubmissionID)
	if err != nil {
		return domain.JudgeScore{}, nil, err
	}
	sess.CompletedJudges = min(submitted, sess.RequiredJudges)
	sess.UpdatedAt = e.now().UTC()

	if submitted < sess.RequiredJudges {
		return stored, nil, tx.UpdateSession(ctx, sess)
	}

	if err := e.completeSession(ctx, tx, &sess); err != nil {
		return domain.JudgeScore{}, nil, err
	}
	return stored, &sess, nil
}

// GetJudgingSession returns a session by ID.
func (e *Engine) GetJudgingSession(ctx context.Context, sessionID string) (sess domain.JudgingSession, err error) {
	ctx, done := e.observe(ctx, "GetJudgingSession", attribute.String("session_id", sessionID))
	defer func() { done(err) }()
	return e.store.GetSession(ctx, sessionID)
}

// GetJudgeScore returns one judge's score for a submission.
func (e *Engine) GetJudgeScore(ctx context.Context, submissionID, judgeID string) (score domain.JudgeScore, err error) {
	ctx, done := e.observe(ctx, "GetJudgeScore",
		attribute.String("submission_id", submissionID),
		attribute.String("judge_id", judgeID),
	)
	defer func() { done(err) }()
	return e.store.GetJudgeScore(ctx, submissionID, judgeID)
}

// GetSessionResults assembles the session's scores, outcome and statistics.
// found is false when no judge has scored yet. Judge identities and the
// per-judge weights are hidden when the session scores anonymously.
func (e *Engine) GetSessionResults(ctx context.Context, sessionID string) (res domain.SessionResult, found bool, err error) {
	ctx, done := e.observe(ctx, "GetSessionResults", attribute.String("session_id", sessionID))
	defer func() { done(err) }()

	sess, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return domain.SessionResult{}, false, err
	}
	scores, err := e.store.ListJudgeScores(ctx, sess.SubmissionID)
	if err != nil {
		return domain.SessionResult{}, false, err
	}
	if len(scores) == 0 {
		return domain.SessionResult{Session: sess}, false, nil
	}

	var users map[string]domain.User
	if !sess.AnonymousScoring {
		ids := make([]string, len(scores))
		for i, s := range scores {
			ids[i] = s.JudgeID
		}
		if users, err = e.store.GetUsers(ctx, ids); err != nil {
			return domain.SessionResult{}, false, err
		}
	}

	views := make([]domain.JudgeScoreView, len(scores))
	totals := make([]float64, 0, len(scores))
	for i, s := range scores {
		views[i] = scoreView(s, i, sess.AnonymousScoring, users)
		if s.IsSubmitted() {
			totals = append(totals, s.TotalScore)
		}
	}

	if sess.AnonymousScoring {
		sess.JudgeWeights = nil
	}
	return domain.SessionResult{
		Session:          sess,
		Scores:           views,
		FinalScore:       sess.FinalScore,
		FinalDecision:    sess.FinalDecision,
		ConsensusReached: sess.ConsensusReached,
		Statistics:       e.statistics(totals),
	}, true, nil
}

func scoreView(s domain.JudgeScore, i int, anonymous bool, users map[string]domain.User) domain.JudgeScoreView {
	v := domain.JudgeScoreView{
		CriteriaScores: s.CriteriaScores,
		OverallRating:  s.OverallRating,
		TotalScore:     s.TotalScore,
		Comments:       s.Comments,
		Confidence:     s.Confidence,
		Status:         s.Status,
		SubmittedAt:    s.SubmittedAt,
	}
	if anonymous {
		v.JudgeLabel = fmt.Sprintf("Judge %d", i+1)
		return v
	}
	v.JudgeID = s.JudgeID
	v.JudgeLabel = s.JudgeID
	if u, ok := users[s.JudgeID]; ok {
		v.JudgeName = u.Name
		v.JudgeEmail = u.Email
		if u.Name != "" {
			v.JudgeLabel = u.Name
		}
	}
	return v
}

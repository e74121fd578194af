package postgres

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ahrav/go-gavel-contests/internal/domain"
)

// jsonColumn stores a Go value in a JSONB column.
type jsonColumn[T any] struct {
	V T
}

// Value implements driver.Valuer.
func (j jsonColumn[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.V)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Scan implements sql.Scanner. NULL leaves the zero value.
func (j *jsonColumn[T]) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		var zero T
		j.V = zero
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("jsonColumn: unsupported source type %T", src)
	}
	return json.Unmarshal(b, &j.V)
}

const sessionColumns = `id, contest_id, submission_id, session_type, required_judges,
	completed_judges, aggregation_method, consensus_threshold, allow_discussion,
	anonymous_scoring, judge_weights, status, final_score, final_decision,
	consensus_reached, created_at, updated_at, completed_at`

type sessionRow struct {
	ID                 string                         `db:"id"`
	ContestID          string                         `db:"contest_id"`
	SubmissionID       string                         `db:"submission_id"`
	SessionType        domain.SessionType             `db:"session_type"`
	RequiredJudges     int                            `db:"required_judges"`
	CompletedJudges    int                            `db:"completed_judges"`
	AggregationMethod  domain.AggregationMethod       `db:"aggregation_method"`
	ConsensusThreshold float64                        `db:"consensus_threshold"`
	AllowDiscussion    bool                           `db:"allow_discussion"`
	AnonymousScoring   bool                           `db:"anonymous_scoring"`
	JudgeWeights       jsonColumn[map[string]float64] `db:"judge_weights"`
	Status             domain.SessionStatus           `db:"status"`
	FinalScore         *float64                       `db:"final_score"`
	FinalDecision      *domain.Decision               `db:"final_decision"`
	ConsensusReached   *bool                          `db:"consensus_reached"`
	CreatedAt          time.Time                      `db:"created_at"`
	UpdatedAt          time.Time                      `db:"updated_at"`
	CompletedAt        *time.Time                     `db:"completed_at"`
}

func toSessionRow(s domain.JudgingSession) sessionRow {
	return sessionRow{
		ID:                 s.ID,
		ContestID:          s.ContestID,
		SubmissionID:       s.SubmissionID,
		SessionType:        s.SessionType,
		RequiredJudges:     s.RequiredJudges,
		CompletedJudges:    s.CompletedJudges,
		AggregationMethod:  s.AggregationMethod,
		ConsensusThreshold: s.ConsensusThreshold,
		AllowDiscussion:    s.AllowDiscussion,
		AnonymousScoring:   s.AnonymousScoring,
		JudgeWeights:       jsonColumn[map[string]float64]{V: s.JudgeWeights},
		Status:             s.Status,
		FinalScore:         s.FinalScore,
		FinalDecision:      s.FinalDecision,
		ConsensusReached:   s.ConsensusReached,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
		CompletedAt:        s.CompletedAt,
	}
}

func (r sessionRow) domain() domain.JudgingSession {
	return domain.JudgingSession{
		ID:                 r.ID,
		ContestID:          r.ContestID,
		SubmissionID:       r.SubmissionID,
		SessionType:        r.SessionType,
		RequiredJudges:     r.RequiredJudges,
		CompletedJudges:    r.CompletedJudges,
		AggregationMethod:  r.AggregationMethod,
		ConsensusThreshold: r.ConsensusThreshold,
		AllowDiscussion:    r.AllowDiscussion,
		AnonymousScoring:   r.AnonymousScoring,
		JudgeWeights:       r.JudgeWeights.V,
		Status:             r.Status,
		FinalScore:         r.FinalScore,
		FinalDecision:      r.FinalDecision,
		ConsensusReached:   r.ConsensusReached,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		CompletedAt:        r.CompletedAt,
	}
}

const scoreColumns = `id, session_id, submission_id, judge_id, criteria_scores,
	overall_rating, total_score, comments, judge_notes, confidence, time_spent_ms,
	status, submitted_at, updated_at`

type scoreRow struct {
	ID             string                         `db:"id"`
	SessionID      string                         `db:"session_id"`
	SubmissionID   string                         `db:"submission_id"`
	JudgeID        string                         `db:"judge_id"`
	CriteriaScores jsonColumn[map[string]float64] `db:"criteria_scores"`
	OverallRating  float64                        `db:"overall_rating"`
	TotalScore     float64                        `db:"total_score"`
	Comments       string                         `db:"comments"`
	JudgeNotes     string                         `db:"judge_notes"`
	Confidence     *float64                       `db:"confidence"`
	TimeSpentMs    *int64                         `db:"time_spent_ms"`
	Status         domain.ScoreStatus             `db:"status"`
	SubmittedAt    time.Time                      `db:"submitted_at"`
	UpdatedAt      time.Time                      `db:"updated_at"`
}

func toScoreRow(s domain.JudgeScore) scoreRow {
	row := scoreRow{
		ID:             s.ID,
		SessionID:      s.SessionID,
		SubmissionID:   s.SubmissionID,
		JudgeID:        s.JudgeID,
		CriteriaScores: jsonColumn[map[string]float64]{V: s.CriteriaScores},
		OverallRating:  s.OverallRating,
		TotalScore:     s.TotalScore,
		Comments:       s.Comments,
		JudgeNotes:     s.JudgeNotes,
		Confidence:     s.Confidence,
		Status:         s.Status,
		SubmittedAt:    s.SubmittedAt,
		UpdatedAt:      s.UpdatedAt,
	}
	if s.TimeSpent != nil {
		ms := s.TimeSpent.Milliseconds()
		row.TimeSpentMs = &ms
	}
	return row
}

func (r scoreRow) domain() domain.JudgeScore {
	s := domain.JudgeScore{
		ID:             r.ID,
		SessionID:      r.SessionID,
		SubmissionID:   r.SubmissionID,
		JudgeID:        r.JudgeID,
		CriteriaScores: r.CriteriaScores.V,
		OverallRating:  r.OverallRating,
		TotalScore:     r.TotalScore,
		Comments:       r.Comments,
		JudgeNotes:     r.JudgeNotes,
		Confidence:     r.Confidence,
		Status:         r.Status,
		SubmittedAt:    r.SubmittedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.TimeSpentMs != nil {
		d := time.Duration(*r.TimeSpentMs) * time.Millisecond
		s.TimeSpent = &d
	}
	return s
}

const assignmentColumns = `id, contest_id, judge_id, assigned_by, permissions, status, assigned_at, removed_at`

type assignmentRow struct {
	ID          string                  `db:"id"`
	ContestID   string                  `db:"contest_id"`
	JudgeID     string                  `db:"judge_id"`
	AssignedBy  string                  `db:"assigned_by"`
	Permissions pq.StringArray          `db:"permissions"`
	Status      domain.AssignmentStatus `db:"status"`
	AssignedAt  time.Time               `db:"assigned_at"`
	RemovedAt   *time.Time              `db:"removed_at"`
}

func toAssignmentRow(a domain.JudgeAssignment) assignmentRow {
	perms := a.Permissions
	if perms == nil {
		perms = []string{}
	}
	return assignmentRow{
		ID:          a.ID,
		ContestID:   a.ContestID,
		JudgeID:     a.JudgeID,
		AssignedBy:  a.AssignedBy,
		Permissions: pq.StringArray(perms),
		Status:      a.Status,
		AssignedAt:  a.AssignedAt,
		RemovedAt:   a.RemovedAt,
	}
}

func (r assignmentRow) domain() domain.JudgeAssignment {
	return domain.JudgeAssignment{
		ID:          r.ID,
		ContestID:   r.ContestID,
		JudgeID:     r.JudgeID,
		AssignedBy:  r.AssignedBy,
		Permissions: []string(r.Permissions),
		Status:      r.Status,
		AssignedAt:  r.AssignedAt,
		RemovedAt:   r.RemovedAt,
	}
}

const outboxColumns = `id, user_id, event, payload, error, created_at`

type outboxRow struct {
	ID        string                     `db:"id"`
	UserID    string                     `db:"user_id"`
	Event     domain.EventType           `db:"event"`
	Payload   jsonColumn[map[string]any] `db:"payload"`
	Error     string                     `db:"error"`
	CreatedAt time.Time                  `db:"created_at"`
}

func (r outboxRow) domain() domain.UndeliveredNotification {
	return domain.UndeliveredNotification{
		ID:        r.ID,
		UserID:    r.UserID,
		Event:     r.Event,
		Payload:   r.Payload.V,
		Error:     r.Error,
		CreatedAt: r.CreatedAt,
	}
}

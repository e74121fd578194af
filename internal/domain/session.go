package domain

import "time"

// SessionType describes how judges interact within a session.
type SessionType string

const (
	SessionIndependent   SessionType = "independent"
	SessionCollaborative SessionType = "collaborative"
	SessionConsensus     SessionType = "consensus"
)

// SessionStatus is the lifecycle state of a judging session.
type SessionStatus string

const (
	SessionOpen      SessionStatus = "open"
	SessionCompleted SessionStatus = "completed"
)

// Decision is the final outcome of a completed judging session.
type Decision string

const (
	DecisionApproved    Decision = "approved"
	DecisionRejected    Decision = "rejected"
	DecisionNeedsReview Decision = "needs_review"
)

// SubmissionStatus returns the submission status a decision writes back.
func (d Decision) SubmissionStatus() SubmissionStatus {
	switch d {
	case DecisionApproved:
		return SubmissionApproved
	case DecisionRejected:
		return SubmissionRejected
	default:
		return SubmissionUnderReview
	}
}

// DefaultConsensusThreshold is used when a session does not set one.
const DefaultConsensusThreshold = 0.8

// DecisionThresholds classify a final score. Scores at or above Approve are
// approved, at or below Reject are rejected, anything between needs review.
// Both are on the scale of JudgeScore.TotalScore.
type DecisionThresholds struct {
	Approve float64 `yaml:"approve_threshold" json:"approve_threshold"`
	Reject  float64 `yaml:"reject_threshold" json:"reject_threshold" validate:"ltfield=Approve"`
}

// DefaultDecisionThresholds assume a 0–10 total score range.
func DefaultDecisionThresholds() DecisionThresholds {
	return DecisionThresholds{Approve: 7.0, Reject: 4.0}
}

// thresholdEpsilon keeps boundary scores inclusive despite float noise.
const thresholdEpsilon = 1e-9

// ClassifyDecision maps a final score onto a Decision. Both bounds are
// inclusive.
func ClassifyDecision(score float64, t DecisionThresholds) Decision {
	switch {
	case score >= t.Approve-thresholdEpsilon:
		return DecisionApproved
	case score <= t.Reject+thresholdEpsilon:
		return DecisionRejected
	default:
		return DecisionNeedsReview
	}
}

// SessionConfig carries the per-session judging options chosen at creation.
type SessionConfig struct {
	SessionType        SessionType        `json:"session_type" validate:"omitempty,oneof=independent collaborative consensus"`
	RequiredJudges     int                `json:"required_judges" validate:"omitempty,min=1,max=100"`
	AggregationMethod  AggregationMethod  `json:"aggregation_method" validate:"omitempty,oneof=average median weighted"`
	ConsensusThreshold *float64           `json:"consensus_threshold,omitempty" validate:"omitempty,min=0,max=1"`
	AllowDiscussion    bool               `json:"allow_discussion"`
	AnonymousScoring   bool               `json:"anonymous_scoring"`
	JudgeWeights       map[string]float64 `json:"judge_weights,omitempty" validate:"omitempty,dive,gt=0"`
}

// JudgingSession is one evaluation unit for a (contest, submission) pair.
// It transitions open -> completed exactly once.
type JudgingSession struct {
	ID                 string             `json:"id"`
	ContestID          string             `json:"contest_id"`
	SubmissionID       string             `json:"submission_id"`
	SessionType        SessionType        `json:"session_type"`
	RequiredJudges     int                `json:"required_judges"`
	CompletedJudges    int                `json:"completed_judges"`
	AggregationMethod  AggregationMethod  `json:"aggregation_method"`
	ConsensusThreshold float64            `json:"consensus_threshold"`
	AllowDiscussion    bool               `json:"allow_discussion"`
	AnonymousScoring   bool               `json:"anonymous_scoring"`
	JudgeWeights       map[string]float64 `json:"judge_weights,omitempty"`
	Status             SessionStatus      `json:"status"`
	FinalScore         *float64           `json:"final_score,omitempty"`
	FinalDecision      *Decision          `json:"final_decision,omitempty"`
	ConsensusReached   *bool              `json:"consensus_reached,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	CompletedAt        *time.Time         `json:"completed_at,omitempty"`
}

// IsCompleted reports whether the session has reached its final decision.
func (s JudgingSession) IsCompleted() bool { return s.Status == SessionCompleted }

// Complete records the final outcome. It is the only transition out of
// SessionOpen.
func (s *JudgingSession) Complete(finalScore float64, decision Decision, consensus bool, at time.Time) {
	s.Status = SessionCompleted
	s.FinalScore = &finalScore
	s.FinalDecision = &decision
	s.ConsensusReached = &consensus
	s.CompletedAt = &at
	s.UpdatedAt = at
}

// JudgeWeightsFor returns weights aligned with judgeIDs, or nil when the
// session has no judge weights. Judges without a configured weight get 1.
func (s JudgingSession) JudgeWeightsFor(judgeIDs []string) []float64 {
	if len(s.JudgeWeights) == 0 {
		return nil
	}
	weights := make([]float64, len(judgeIDs))
	for i, id := range judgeIDs {
		w, ok := s.JudgeWeights[id]
		if !ok {
			w = 1
		}
		weights[i] = w
	}
	return weights
}

// Statistics summarizes a set of judge totals for reporting.
type Statistics struct {
	Count          int     `json:"count"`
	AverageScore   float64 `json:"average_score"`
	MedianScore    float64 `json:"median_score"`
	ScoreVariance  float64 `json:"score_variance"`
	AgreementLevel float64 `json:"agreement_level"`
	MinScore       float64 `json:"min_score"`
	MaxScore       float64 `json:"max_score"`
}

// JudgeScoreView is a judge score as presented in session results. Judge
// identity is blank and JudgeLabel generic when scoring is anonymous.
type JudgeScoreView struct {
	JudgeID        string             `json:"judge_id,omitempty"`
	JudgeName      string             `json:"judge_name,omitempty"`
	JudgeEmail     string             `json:"judge_email,omitempty"`
	JudgeLabel     string             `json:"judge_label"`
	CriteriaScores map[string]float64 `json:"criteria_scores"`
	OverallRating  float64            `json:"overall_rating"`
	TotalScore     float64            `json:"total_score"`
	Comments       string             `json:"comments,omitempty"`
	Confidence     *float64           `json:"confidence,omitempty"`
	Status         ScoreStatus        `json:"status"`
	SubmittedAt    time.Time          `json:"submitted_at"`
}

// SessionResult is the assembled view of a session's scores and outcome.
type SessionResult struct {
	Session          JudgingSession   `json:"session"`
	Scores           []JudgeScoreView `json:"scores"`
	FinalScore       *float64         `json:"final_score,omitempty"`
	FinalDecision    *Decision        `json:"final_decision,omitempty"`
	ConsensusReached *bool            `json:"consensus_reached,omitempty"`
	Statistics       Statistics       `json:"statistics"`
}

package domain

import (
	"math"
	"time"
)

// totalWeight is the sum every session's criteria weights are expected to
// reach. Totals are computed on the scale of the criteria maxima.
const totalWeight = 100.0

// weightTolerance absorbs float noise when checking the weight sum.
const weightTolerance = 1e-9

// JudgingCriterion is one named, weighted scoring dimension of a rubric.
type JudgingCriterion struct {
	ID          string  `json:"id" yaml:"id" validate:"required"`
	Name        string  `json:"name" yaml:"name"`
	Weight      float64 `json:"weight" yaml:"weight" validate:"min=0,max=100"`
	MaxScore    float64 `json:"max_score" yaml:"max_score" validate:"gt=0"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
}

// ScoreStatus is the lifecycle state of a judge's score.
type ScoreStatus string

const (
	ScoreStatusDraft     ScoreStatus = "draft"
	ScoreStatusSubmitted ScoreStatus = "submitted"
)

// JudgeScore is one judge's evaluation of one submission. The pair
// (SubmissionID, JudgeID) is the natural key; resubmission overwrites.
type JudgeScore struct {
	ID             string             `json:"id" db:"id"`
	SessionID      string             `json:"session_id" db:"session_id"`
	SubmissionID   string             `json:"submission_id" db:"submission_id"`
	JudgeID        string             `json:"judge_id" db:"judge_id"`
	CriteriaScores map[string]float64 `json:"criteria_scores" db:"-"`
	OverallRating  float64            `json:"overall_rating" db:"overall_rating"`
	TotalScore     float64            `json:"total_score" db:"total_score"`
	Comments       string             `json:"comments,omitempty" db:"comments"`
	JudgeNotes     string             `json:"judge_notes,omitempty" db:"judge_notes"`
	Confidence     *float64           `json:"confidence,omitempty" db:"confidence"`
	TimeSpent      *time.Duration     `json:"time_spent,omitempty" db:"-"`
	Status         ScoreStatus        `json:"status" db:"status"`
	SubmittedAt    time.Time          `json:"submitted_at" db:"submitted_at"`
	UpdatedAt      time.Time          `json:"updated_at" db:"updated_at"`
}

// IsSubmitted reports whether the score counts toward session completion.
func (s JudgeScore) IsSubmitted() bool { return s.Status == ScoreStatusSubmitted }

// ComputeTotalScore returns the weighted sum of criteria scores. Each
// criterion contributes score*weight/100; criteria without a score
// contribute zero. The result is not clamped.
func ComputeTotalScore(criteriaScores map[string]float64, criteria []JudgingCriterion) float64 {
	var total float64
	for _, c := range criteria {
		score, ok := criteriaScores[c.ID]
		if !ok {
			continue
		}
		total += score * c.Weight / totalWeight
	}
	return total
}

// MaxTotalScore returns the total a judge reaches when scoring every
// criterion at its maximum.
func MaxTotalScore(criteria []JudgingCriterion) float64 {
	maxima := make(map[string]float64, len(criteria))
	for _, c := range criteria {
		maxima[c.ID] = c.MaxScore
	}
	return ComputeTotalScore(maxima, criteria)
}

// NormalizeCriteria validates a criteria set and rescales the weights
// proportionally so they sum to 100. A set that already sums to 100 is
// returned unchanged (as a copy).
func NormalizeCriteria(criteria []JudgingCriterion) ([]JudgingCriterion, error) {
	verr := NewValidationError("JudgingCriteria")
	if len(criteria) == 0 {
		verr.AddError("at least one criterion is required")
		return nil, verr
	}

	seen := make(map[string]struct{}, len(criteria))
	var sum float64
	for i, c := range criteria {
		switch {
		case c.ID == "":
			verr.AddErrorf("criterion %d has an empty id", i)
		case hasKey(seen, c.ID):
			verr.AddErrorf("duplicate criterion id %q", c.ID)
		}
		seen[c.ID] = struct{}{}

		if math.IsNaN(c.Weight) || c.Weight < 0 || c.Weight > totalWeight {
			verr.AddErrorf("criterion %q weight %v outside [0, 100]", c.ID, c.Weight)
		}
		if math.IsNaN(c.MaxScore) || c.MaxScore <= 0 {
			verr.AddErrorf("criterion %q max score must be positive", c.ID)
		}
		sum += c.Weight
	}
	if !verr.HasErrors() && sum == 0 {
		verr.AddError("criteria weights sum to zero")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	out := make([]JudgingCriterion, len(criteria))
	copy(out, criteria)
	if math.Abs(sum-totalWeight) <= weightTolerance {
		return out, nil
	}
	for i := range out {
		out[i].Weight = out[i].Weight * totalWeight / sum
	}
	return out, nil
}

// ValidateCriteriaScores checks a judge's per-criterion scores against the
// rubric. Missing criteria are allowed; unknown ones are not.
func ValidateCriteriaScores(scores map[string]float64, criteria []JudgingCriterion) error {
	byID := make(map[string]JudgingCriterion, len(criteria))
	for _, c := range criteria {
		byID[c.ID] = c
	}

	verr := NewValidationError("JudgeScore")
	if len(scores) == 0 {
		verr.AddError("criteria scores are required")
	}
	for id, score := range scores {
		c, ok := byID[id]
		if !ok {
			verr.AddErrorf("unknown criterion %q", id)
			continue
		}
		if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 {
			verr.AddErrorf("criterion %q score %v is invalid", id, score)
			continue
		}
		if score > c.MaxScore {
			verr.AddErrorf("criterion %q score %v exceeds max %v", id, score, c.MaxScore)
		}
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// scorePrecision is the grid stored totals and final scores are rounded to
// so that float noise cannot flip a decision at a threshold.
const scorePrecision = 1e6

// RoundScore rounds a derived score to six decimal places.
func RoundScore(score float64) float64 {
	return math.Round(score*scorePrecision) / scorePrecision
}

func hasKey(m map[string]struct{}, k string) bool {
	_, ok := m[k]
	return ok
}

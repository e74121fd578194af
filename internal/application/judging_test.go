package application

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-gavel-contests/infrastructure/metrics"
	"github.com/ahrav/go-gavel-contests/internal/domain"
)

var rubric = []domain.JudgingCriterion{
	{ID: "technique", Name: "Technique", Weight: 60, MaxScore: 10},
	{ID: "creativity", Name: "Creativity", Weight: 40, MaxScore: 10},
}

func scoreFor(sess domain.JudgingSession, judgeID string, technique, creativity float64) SubmitScoreInput {
	return SubmitScoreInput{
		SessionID:    sess.ID,
		SubmissionID: sess.SubmissionID,
		JudgeID:      judgeID,
		Score: ScoreInput{
			CriteriaScores: map[string]float64{"technique": technique, "creativity": creativity},
			OverallRating:  technique,
		},
		Criteria: rubric,
	}
}

func (f *fixture) openSession(t *testing.T, cfg domain.SessionConfig) domain.JudgingSession {
	t.Helper()
	f.seedContest("c1", "alice")
	f.seedJudges("j1", "j2", "j3")
	sess, err := f.engine.CreateJudgingSession(context.Background(), CreateSessionInput{
		ContestID:    "c1",
		SubmissionID: "c1-sub-1",
		Config:       cfg,
	})
	require.NoError(t, err)
	return sess
}

func TestCreateJudgingSession(t *testing.T) {
	ctx := context.Background()

	t.Run("applies defaults and marks the submission under review", func(t *testing.T) {
		f := newFixture(t)
		sess := f.openSession(t, domain.SessionConfig{})

		assert.Equal(t, domain.SessionIndependent, sess.SessionType)
		assert.Equal(t, 3, sess.RequiredJudges)
		assert.Equal(t, domain.AggregationAverage, sess.AggregationMethod)
		assert.InDelta(t, domain.DefaultConsensusThreshold, sess.ConsensusThreshold, 1e-9)
		assert.Equal(t, domain.SessionOpen, sess.Status)
		assert.Equal(t, testNow, sess.CreatedAt)

		sub, err := f.store.GetSubmission(ctx, "c1-sub-1")
		require.NoError(t, err)
		assert.Equal(t, domain.SubmissionUnderReview, sub.Status)

		got, err := f.engine.GetJudgingSession(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, sess.ID, got.ID)
	})

	t.Run("keeps explicit options", func(t *testing.T) {
		f := newFixture(t)
		threshold := 0.5
		sess := f.openSession(t, domain.SessionConfig{
			SessionType:        domain.SessionConsensus,
			RequiredJudges:     2,
			AggregationMethod:  domain.AggregationMedian,
			ConsensusThreshold: &threshold,
			AllowDiscussion:    true,
		})
		assert.Equal(t, domain.SessionConsensus, sess.SessionType)
		assert.Equal(t, 2, sess.RequiredJudges)
		assert.Equal(t, domain.AggregationMedian, sess.AggregationMethod)
		assert.InDelta(t, 0.5, sess.ConsensusThreshold, 1e-9)
		assert.True(t, sess.AllowDiscussion)
	})

	t.Run("unknown contest", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.CreateJudgingSession(ctx, CreateSessionInput{ContestID: "nope", SubmissionID: "s"})
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("submission from another contest", func(t *testing.T) {
		f := newFixture(t)
		f.seedContest("c1", "alice")
		f.seedContest("c2", "bob")
		_, err := f.engine.CreateJudgingSession(ctx, CreateSessionInput{ContestID: "c1", SubmissionID: "c2-sub-1"})
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("second open session is rejected", func(t *testing.T) {
		f := newFixture(t)
		f.openSession(t, domain.SessionConfig{})
		_, err := f.engine.CreateJudgingSession(ctx, CreateSessionInput{ContestID: "c1", SubmissionID: "c1-sub-1"})
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("completed session cannot be reopened", func(t *testing.T) {
		f := newFixture(t)
		first := f.openSession(t, domain.SessionConfig{RequiredJudges: 2})
		_, err := f.engine.SubmitJudgeScore(ctx, scoreFor(first, "j1", 8, 6))
		require.NoError(t, err)
		_, err = f.engine.SubmitJudgeScore(ctx, scoreFor(first, "j2", 6, 8))
		require.NoError(t, err)

		_, err = f.engine.CreateJudgingSession(ctx, CreateSessionInput{
			ContestID:    "c1",
			SubmissionID: "c1-sub-1",
			Config:       domain.SessionConfig{RequiredJudges: 3},
		})
		require.True(t, domain.IsValidation(err), "got %v", err)
		assert.Contains(t, err.Error(), first.ID)

		got, err := f.engine.GetJudgingSession(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SessionCompleted, got.Status)
		assert.InDelta(t, 7.0, *got.FinalScore, 1e-9)

		res, found, err := f.engine.GetSessionResults(ctx, first.ID)
		require.NoError(t, err)
		require.True(t, found)
		assert.Len(t, res.Scores, 2)

		sub, err := f.store.GetSubmission(ctx, "c1-sub-1")
		require.NoError(t, err)
		assert.Equal(t, domain.SubmissionApproved, sub.Status)
	})

	t.Run("invalid config", func(t *testing.T) {
		f := newFixture(t)
		f.seedContest("c1", "alice")
		_, err := f.engine.CreateJudgingSession(ctx, CreateSessionInput{
			ContestID:    "c1",
			SubmissionID: "c1-sub-1",
			Config:       domain.SessionConfig{AggregationMethod: "mode"},
		})
		assert.True(t, domain.IsValidation(err))
	})
}

func TestSubmitJudgeScore_CompletesAtThreshold(t *testing.T) {
	orders := map[string][]string{
		"first judge first":  {"j1", "j2"},
		"second judge first": {"j2", "j1"},
	}
	totals := map[string][2]float64{
		"j1": {8, 6}, // 7.2
		"j2": {6, 8}, // 6.8
	}

	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			sess := f.openSession(t, domain.SessionConfig{RequiredJudges: 2})

			first := totals[order[0]]
			_, err := f.engine.SubmitJudgeScore(ctx, scoreFor(sess, order[0], first[0], first[1]))
			require.NoError(t, err)

			mid, err := f.engine.GetJudgingSession(ctx, sess.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.SessionOpen, mid.Status)
			assert.Equal(t, 1, mid.CompletedJudges)
			assert.Nil(t, mid.FinalScore)

			second := totals[order[1]]
			_, err = f.engine.SubmitJudgeScore(ctx, scoreFor(sess, order[1], second[0], second[1]))
			require.NoError(t, err)

			done, err := f.engine.GetJudgingSession(ctx, sess.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.SessionCompleted, done.Status)
			assert.Equal(t, 2, done.CompletedJudges)
			require.NotNil(t, done.FinalScore)
			assert.InDelta(t, 7.0, *done.FinalScore, 1e-9)
			assert.Equal(t, domain.DecisionApproved, *done.FinalDecision)
			assert.True(t, *done.ConsensusReached)
			assert.Equal(t, testNow, *done.CompletedAt)

			sub, err := f.store.GetSubmission(ctx, sess.SubmissionID)
			require.NoError(t, err)
			assert.Equal(t, domain.SubmissionApproved, sub.Status)
			require.NotNil(t, sub.Score)
			assert.InDelta(t, 7.0, *sub.Score, 1e-9)

			assert.Equal(t, 1.0, f.metrics.get(metrics.MetricSessionsCompleted))
		})
	}
}

func TestSubmitJudgeScore_ReturnsDerivedTotal(t *testing.T) {
	f := newFixture(t)
	sess := f.openSession(t, domain.SessionConfig{RequiredJudges: 2})
	seconds := 90

	in := scoreFor(sess, "j1", 8, 6)
	in.Score.TimeSpentSeconds = &seconds
	score, err := f.engine.SubmitJudgeScore(context.Background(), in)
	require.NoError(t, err)

	assert.InDelta(t, 7.2, score.TotalScore, 1e-9)
	assert.Equal(t, domain.ScoreStatusSubmitted, score.Status)
	require.NotNil(t, score.TimeSpent)
	assert.Equal(t, 90.0, score.TimeSpent.Seconds())

	stored, err := f.engine.GetJudgeScore(context.Background(), sess.SubmissionID, "j1")
	require.NoError(t, err)
	assert.Equal(t, score.ID, stored.ID)
}

func TestSubmitJudgeScore_NormalizesWeights(t *testing.T) {
	f := newFixture(t)
	sess := f.openSession(t, domain.SessionConfig{RequiredJudges: 2})

	in := scoreFor(sess, "j1", 8, 6)
	in.Criteria = []domain.JudgingCriterion{
		{ID: "technique", Weight: 3, MaxScore: 10},
		{ID: "creativity", Weight: 2, MaxScore: 10},
	}
	score, err := f.engine.SubmitJudgeScore(context.Background(), in)
	require.NoError(t, err)
	assert.InDelta(t, 7.2, score.TotalScore, 1e-9)
}

func TestSubmitJudgeScore_LateSubmission(t *testing.T) {
	ctx := context.Background()

	t.Run("rejected by default", func(t *testing.T) {
		f := newFixture(t)
		sess := f.openSession(t, domain.SessionConfig{RequiredJudges: 2})
		_, err := f.engine.SubmitJudgeScore(ctx, scoreFor(sess, "j1", 8, 6))
		require.NoError(t, err)
		_, err = f.engine.SubmitJudgeScore(ctx, scoreFor(sess, "j2", 6, 8))
		require.NoError(t, err)

		_, err = f.engine.SubmitJudgeScore(ctx, scoreFor(sess, "j3", 1, 1))
		assert.ErrorIs(t, err, domain.ErrSessionCompleted)

		_, err = f.store.GetJudgeScore(ctx, sess.SubmissionID, "j3")
		assert.True(t, domain.IsNotFound(err))

		done, err := f.engine.GetJudgingSession(ctx, sess.ID)
		require.NoError(t, err)
		assert.InDelta(t, 7.0, *done.FinalScore, 1e-9)
	})

	t.Run("stored without reopening under the ignore policy", func(t *testing.T) {
		f := newFixture(t, func(c *EngineConfig) { c.Sessions.LateSubmissionPolicy = LateSubmissionIgnore })
		sess := f.openSession(t, domain.SessionConfig{RequiredJudges: 2})
		_, err := f.engine.SubmitJudgeScore(ctx, scoreFor(sess, "j1", 8, 6))
		require.NoError(t, err)
		_, err = f.engine.SubmitJudgeScore(ctx, scoreFor(sess, "j2", 6, 8))
		require.NoError(t, err)

		late, err := f.engine.SubmitJudgeScore(ctx, scoreFor(sess, "j3", 1, 1))
		require.NoError(t, err)
		assert.InDelta(t, 1.0, late.TotalScore, 1e-9)

		done, err := f.engine.GetJudgingSession(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SessionCompleted, done.Status)
		assert.Equal(t, 2, done.CompletedJudges)
		assert.InDelta(t, 7.0, *done.FinalScore, 1e-9)
		assert.Equal(t, 1.0, f.metrics.get(metrics.MetricSessionsCompleted))
	})
}

func TestSubmitJudgeScore_ResubmissionOverwrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.openSession(t, domain.SessionConfig{RequiredJudges: 2})

	first, err := f.engine.SubmitJudgeScore(ctx, scoreFor(sess, "j1", 2, 2))
	require.NoError(t, err)
	second, err := f.engine.SubmitJudgeScore(ctx, scoreFor(sess, "j1", 8, 6))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	scores, err := f.store.ListJudgeScores(ctx, sess.SubmissionID)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.InDelta(t, 7.2, scores[0].TotalScore, 1e-9)

	got, err := f.engine.GetJudgingSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionOpen, got.Status)
	assert.Equal(t, 1, got.CompletedJudges)
}

func TestSubmitJudgeScore_DraftsDoNotCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.openSession(t, domain.SessionConfig{RequiredJudges: 1})

	in := scoreFor(sess, "j1", 8, 6)
	in.Score.Status = domain.ScoreStatusDraft
	_, err := f.engine.SubmitJudgeScore(ctx, in)
	require.NoError(t, err)

	got, err := f.engine.GetJudgingSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionOpen, got.Status)
	assert.Equal(t, 0, got.CompletedJudges)

	in.Score.Status = domain.ScoreStatusSubmitted
	_, err = f.engine.SubmitJudgeScore(ctx, in)
	require.NoError(t, err)

	got, err = f.engine.GetJudgingSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, got.Status)
}

func TestSubmitJudgeScore_Decisions(t *testing.T) {
	tests := []struct {
		name       string
		technique  float64
		creativity float64
		want       domain.Decision
		wantStatus domain.SubmissionStatus
	}{
		{"approved", 9, 9, domain.DecisionApproved, domain.SubmissionApproved},
		{"needs review", 5, 5, domain.DecisionNeedsReview, domain.SubmissionUnderReview},
		{"rejected at the boundary", 4, 4, domain.DecisionRejected, domain.SubmissionRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			sess := f.openSession(t, domain.SessionConfig{RequiredJudges: 1})

			_, err := f.engine.SubmitJudgeScore(ctx, scoreFor(sess, "j1", tt.technique, tt.creativity))
			require.NoError(t, err)

			got, err := f.engine.GetJudgingSession(ctx, sess.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got.FinalDecision)

			sub, err := f.store.GetSubmission(ctx, sess.SubmissionID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, sub.Status)
		})
	}
}

func TestSubmitJudgeScore_WeightedAggregation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.openSession(t, domain.SessionConfig{
		RequiredJudges:    2,
		AggregationMethod: domain.AggregationWeighted,
		JudgeWeights:      map[string]float64{"j1": 3, "j2": 1},
	})

	_, err := f.engine.SubmitJudgeScore(ctx, scoreFor(sess, "j1", 8, 8))
	require.NoError(t, err)
	_, err = f.engine.SubmitJudgeScore(ctx, scoreFor(sess, "j2", 4, 4))
	require.NoError(t, err)

	got, err := f.engine.GetJudgingSession(ctx, sess.ID)
	require.NoError(t, err)
	// (3*8 + 1*4) / 4
	assert.InDelta(t, 7.0, *got.FinalScore, 1e-9)
	assert.Equal(t, domain.DecisionApproved, *got.FinalDecision)
	assert.False(t, *got.ConsensusReached)
}

func TestSubmitJudgeScore_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.openSession(t, domain.SessionConfig{RequiredJudges: 2})

	tests := []struct {
		name   string
		mutate func(*SubmitScoreInput)
	}{
		{"missing judge", func(in *SubmitScoreInput) { in.JudgeID = "" }},
		{"unknown criterion", func(in *SubmitScoreInput) { in.Score.CriteriaScores["style"] = 5 }},
		{"score above max", func(in *SubmitScoreInput) { in.Score.CriteriaScores["technique"] = 11 }},
		{"negative score", func(in *SubmitScoreInput) { in.Score.CriteriaScores["technique"] = -1 }},
		{"no criteria", func(in *SubmitScoreInput) { in.Criteria = nil }},
		{"submission not in session", func(in *SubmitScoreInput) { in.SubmissionID = "other" }},
		{"confidence out of range", func(in *SubmitScoreInput) {
			c := 1.5
			in.Score.Confidence = &c
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := scoreFor(sess, "j1", 8, 6)
			tt.mutate(&in)
			_, err := f.engine.SubmitJudgeScore(ctx, in)
			assert.True(t, domain.IsValidation(err), "got %v", err)
		})
	}

	t.Run("unknown session", func(t *testing.T) {
		in := scoreFor(sess, "j1", 8, 6)
		in.SessionID = "missing"
		_, err := f.engine.SubmitJudgeScore(ctx, in)
		assert.True(t, domain.IsNotFound(err))
	})
}

func TestSubmitJudgeScore_ConcurrentJudgesCompleteOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.openSession(t, domain.SessionConfig{RequiredJudges: 2})

	judges := []string{"j1", "j2", "j3", "j4", "j5", "j6", "j7", "j8"}
	f.seedJudges(judges...)

	var wg sync.WaitGroup
	errs := make([]error, len(judges))
	for i, j := range judges {
		wg.Add(1)
		go func(i int, judge string) {
			defer wg.Done()
			_, errs[i] = f.engine.SubmitJudgeScore(ctx, scoreFor(sess, judge, 8, 6))
		}(i, j)
	}
	wg.Wait()

	var ok, late int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrSessionCompleted):
			late++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 2, ok)
	assert.Equal(t, len(judges)-2, late)
	assert.Equal(t, 1.0, f.metrics.get(metrics.MetricSessionsCompleted))

	got, err := f.engine.GetJudgingSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, got.Status)
	assert.Equal(t, 2, got.CompletedJudges)
	assert.InDelta(t, 7.2, *got.FinalScore, 1e-9)
}

func TestGetSessionResults(t *testing.T) {
	ctx := context.Background()

	t.Run("no scores yet", func(t *testing.T) {
		f := newFixture(t)
		sess := f.openSession(t, domain.SessionConfig{RequiredJudges: 2})
		res, found, err := f.engine.GetSessionResults(ctx, sess.ID)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, res.Scores)
	})

	t.Run("unknown session", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := f.engine.GetSessionResults(ctx, "missing")
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("named judges", func(t *testing.T) {
		f := newFixture(t)
		sess := f.openSession(t, domain.SessionConfig{RequiredJudges: 2})
		_, err := f.engine.SubmitJudgeScore(ctx, scoreFor(sess, "j1", 8, 6))
		require.NoError(t, err)
		_, err = f.engine.SubmitJudgeScore(ctx, scoreFor(sess, "j2", 6, 8))
		require.NoError(t, err)

		res, found, err := f.engine.GetSessionResults(ctx, sess.ID)
		require.NoError(t, err)
		require.True(t, found)
		require.Len(t, res.Scores, 2)
		assert.Equal(t, "j1", res.Scores[0].JudgeID)
		assert.Equal(t, "Judge j1", res.Scores[0].JudgeName)
		assert.Equal(t, "j1@judges.example.com", res.Scores[0].JudgeEmail)
		assert.InDelta(t, 7.0, *res.FinalScore, 1e-9)
		assert.Equal(t, domain.DecisionApproved, *res.FinalDecision)

		assert.Equal(t, 2, res.Statistics.Count)
		assert.InDelta(t, 7.0, res.Statistics.AverageScore, 1e-9)
		assert.InDelta(t, 7.0, res.Statistics.MedianScore, 1e-9)
		assert.InDelta(t, 0.04, res.Statistics.ScoreVariance, 1e-9)
		assert.InDelta(t, 6.8, res.Statistics.MinScore, 1e-9)
		assert.InDelta(t, 7.2, res.Statistics.MaxScore, 1e-9)
	})

	t.Run("anonymous judges", func(t *testing.T) {
		f := newFixture(t)
		sess := f.openSession(t, domain.SessionConfig{
			RequiredJudges:    3,
			AnonymousScoring:  true,
			AggregationMethod: domain.AggregationWeighted,
			JudgeWeights:      map[string]float64{"j1": 3, "j2": 1},
		})
		_, err := f.engine.SubmitJudgeScore(ctx, scoreFor(sess, "j2", 8, 6))
		require.NoError(t, err)
		_, err = f.engine.SubmitJudgeScore(ctx, scoreFor(sess, "j1", 6, 8))
		require.NoError(t, err)

		res, found, err := f.engine.GetSessionResults(ctx, sess.ID)
		require.NoError(t, err)
		require.True(t, found)
		require.Len(t, res.Scores, 2)
		for i, v := range res.Scores {
			assert.Empty(t, v.JudgeID)
			assert.Empty(t, v.JudgeName)
			assert.Empty(t, v.JudgeEmail)
			assert.Equal(t, []string{"Judge 1", "Judge 2"}[i], v.JudgeLabel)
		}
		assert.Nil(t, res.FinalScore)
		assert.Nil(t, res.Session.JudgeWeights)

		raw, err := json.Marshal(res)
		require.NoError(t, err)
		for _, id := range []string{"j1", "j2"} {
			assert.NotContains(t, string(raw), `"`+id+`"`)
		}

		stored, err := f.engine.GetJudgingSession(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, map[string]float64{"j1": 3, "j2": 1}, stored.JudgeWeights)
	})
}

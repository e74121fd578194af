package application

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ahrav/go-gavel-contests/infrastructure/aggregation"
	"github.com/ahrav/go-gavel-contests/infrastructure/metrics"
	"github.com/ahrav/go-gavel-contests/internal/domain"
	"github.com/ahrav/go-gavel-contests/internal/ports"
)

// completeSession aggregates the submitted scores, classifies the outcome
// and writes both the session and the submission through tx. The caller
// holds the submission lock and owns the transaction, so either both writes
// land or neither does.
func (e *Engine) completeSession(ctx context.Context, tx ports.Store, sess *domain.JudgingSession) error {
	scores, err := tx.ListJudgeScores(ctx, sess.SubmissionID)
	if err != nil {
		return err
	}

	judgeIDs := make([]string, 0, len(scores))
	totals := make([]float64, 0, len(scores))
	for _, s := range scores {
		if !s.IsSubmitted() {
			continue
		}
		judgeIDs = append(judgeIDs, s.JudgeID)
		totals = append(totals, s.TotalScore)
	}

	var weights []float64
	if sess.AggregationMethod == domain.AggregationWeighted {
		weights = sess.JudgeWeightsFor(judgeIDs)
	}
	final, err := aggregation.Aggregate(totals, sess.AggregationMethod, weights)
	if err != nil {
		return fmt.Errorf("aggregate session %q: %w", sess.ID, err)
	}
	final = domain.RoundScore(final)

	decision := domain.ClassifyDecision(final, e.cfg.Decision)
	consensus := aggregation.CheckConsensus(totals, sess.ConsensusThreshold)
	sess.Complete(final, decision, consensus, e.now().UTC())

	if err := tx.UpdateSession(ctx, *sess); err != nil {
		return err
	}
	return tx.UpdateSubmissionResult(ctx, sess.SubmissionID, decision.SubmissionStatus(), &final)
}

// recordCompletion logs and counts a committed completion.
func (e *Engine) recordCompletion(ctx context.Context, sess domain.JudgingSession) {
	if sess.FinalScore == nil || sess.FinalDecision == nil || sess.ConsensusReached == nil {
		return
	}
	labels := map[string]string{
		"decision":  string(*sess.FinalDecision),
		"consensus": strconv.FormatBool(*sess.ConsensusReached),
		"method":    sess.AggregationMethod.String(),
	}
	e.metrics.RecordCounter(metrics.MetricSessionsCompleted, 1, labels)
	e.metrics.RecordHistogram(metrics.MetricFinalScore, *sess.FinalScore, labels)

	e.logger.InfoContext(ctx, "judging session completed",
		slog.String("session_id", sess.ID),
		slog.String("submission_id", sess.SubmissionID),
		slog.Float64("final_score", *sess.FinalScore),
		slog.String("decision", string(*sess.FinalDecision)),
		slog.Bool("consensus", *sess.ConsensusReached),
	)
}

// statistics summarizes judge totals for reporting.
func (e *Engine) statistics(totals []float64) domain.Statistics {
	return aggregation.Summarize(totals, e.cfg.Consensus.MaxVariance)
}

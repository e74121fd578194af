package application

import (
	"context"
	"fmt"

	"github.com/montanaflynn/stats"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ahrav/go-gavel-contests/internal/domain"
)

// GetWinnerStats summarizes a contest or giveaway and its winners. kind is
// KindContest or KindGiveaway. Concurrent calls for the same target share
// one computation.
func (e *Engine) GetWinnerStats(ctx context.Context, kind, id string) (ws domain.WinnerStats, err error) {
	ctx, done := e.observe(ctx, "GetWinnerStats",
		attribute.String("kind", kind),
		attribute.String("id", id),
	)
	defer func() { done(err) }()

	var compute func(context.Context, string) (domain.WinnerStats, error)
	switch kind {
	case KindContest:
		compute = e.contestStats
	case KindGiveaway:
		compute = e.giveawayStats
	default:
		return domain.WinnerStats{}, domain.Invalid("WinnerStats", fmt.Sprintf("unknown kind %q", kind))
	}

	v, err, _ := e.statsGroup.Do(kind+":"+id, func() (any, error) {
		return compute(ctx, id)
	})
	if err != nil {
		return domain.WinnerStats{}, err
	}
	return v.(domain.WinnerStats), nil
}

func (e *Engine) contestStats(ctx context.Context, id string) (domain.WinnerStats, error) {
	contest, err := e.store.GetContest(ctx, id)
	if err != nil {
		return domain.WinnerStats{}, err
	}
	subs, err := e.store.ListSubmissions(ctx, id)
	if err != nil {
		return domain.WinnerStats{}, err
	}

	ws := domain.WinnerStats{
		Kind:            KindContest,
		ID:              id,
		Status:          string(contest.Status),
		TotalCandidates: len(subs),
	}
	users := make(map[string]struct{}, len(subs))
	var winnerScores []float64
	for _, s := range subs {
		users[s.UserID] = struct{}{}
		if s.Score != nil {
			ws.ScoredCandidates++
		}
		if s.Status != domain.SubmissionWinner {
			continue
		}
		ws.Winners++
		if s.Score != nil {
			winnerScores = append(winnerScores, *s.Score)
		}
	}
	ws.UniqueParticipants = len(users)

	if len(winnerScores) > 0 {
		avg, _ := stats.Mean(winnerScores)
		high, _ := stats.Max(winnerScores)
		avg = domain.RoundScore(avg)
		ws.AverageWinnerScore = &avg
		ws.HighestScore = &high
	}
	return ws, nil
}

func (e *Engine) giveawayStats(ctx context.Context, id string) (domain.WinnerStats, error) {
	giveaway, err := e.store.GetGiveaway(ctx, id)
	if err != nil {
		return domain.WinnerStats{}, err
	}
	entries, err := e.store.ListGiveawayEntries(ctx, id)
	if err != nil {
		return domain.WinnerStats{}, err
	}
	winners, err := e.store.ListGiveawayWinners(ctx, id)
	if err != nil {
		return domain.WinnerStats{}, err
	}

	users := make(map[string]struct{}, len(entries))
	for _, en := range entries {
		users[en.UserID] = struct{}{}
	}
	ws := domain.WinnerStats{
		Kind:               KindGiveaway,
		ID:                 id,
		Status:             string(giveaway.Status),
		TotalCandidates:    len(entries),
		UniqueParticipants: len(users),
		Winners:            len(winners),
	}

	now := e.now().UTC()
	for _, w := range winners {
		switch claimStatusAt(w, now) {
		case domain.PrizeClaimClaimed:
			ws.ClaimedPrizes++
		case domain.PrizeClaimExpired:
			ws.ExpiredPrizes++
		default:
			ws.PendingPrizes++
		}
	}
	return ws, nil
}

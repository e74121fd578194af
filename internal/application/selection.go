package application

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ahrav/go-gavel-contests/infrastructure/metrics"
	"github.com/ahrav/go-gavel-contests/internal/domain"
	"github.com/ahrav/go-gavel-contests/internal/ports"
)

// Selection target kinds.
const (
	KindContest  = "contest"
	KindGiveaway = "giveaway"
)

// quotaEpsilon keeps ceil(max * fraction) from rounding up float noise,
// e.g. 10 * 0.7 = 7.000000000000001.
const quotaEpsilon = 1e-9

// SelectContestWinners picks winners among the contest's eligible
// submissions, marks them as winners and completes the contest in one
// transaction. Winners are notified after the commit.
func (e *Engine) SelectContestWinners(
	ctx context.Context, contestID string, criteria domain.SelectionCriteria,
) (res domain.SelectionResult, err error) {
	ctx, done := e.observe(ctx, "SelectContestWinners",
		attribute.String("contest_id", contestID),
		attribute.String("method", string(criteria.Method)),
		attribute.Int("max_winners", criteria.MaxWinners),
	)
	defer func() { done(err) }()

	if err := validateInput("SelectionCriteria", criteria); err != nil {
		return domain.SelectionResult{}, err
	}

	err = e.withSelectionLock(ctx, KindContest, contestID, func(tx ports.Store) error {
		contest, err := tx.GetContest(ctx, contestID)
		if err != nil {
			return err
		}
		if contest.Status == domain.ContestCompleted {
			return domain.Invalid("SelectionCriteria", fmt.Sprintf("contest %q already has winners", contestID))
		}

		subs, err := tx.ListSubmissions(ctx, contestID)
		if err != nil {
			return err
		}
		pool := make([]domain.Candidate, 0, len(subs))
		for _, s := range subs {
			switch s.Status {
			case domain.SubmissionWinner, domain.SubmissionDisqualified, domain.SubmissionRejected:
				continue
			}
			pool = append(pool, domain.Candidate{UserID: s.UserID, SubmissionID: s.ID, Score: s.Score})
		}

		pool, err = e.filterEligible(ctx, tx, pool, criteria)
		if err != nil {
			return err
		}
		if len(pool) == 0 {
			return &domain.NoEligibleEntriesError{Kind: KindContest, ID: contestID}
		}

		winners, err := e.pickWinners(pool, criteria, domain.ReasonRandomSubmission)
		if err != nil {
			return err
		}
		for _, w := range winners {
			if err := tx.UpdateSubmissionResult(ctx, w.SubmissionID, domain.SubmissionWinner, nil); err != nil {
				return err
			}
		}
		if err := tx.UpdateContestStatus(ctx, contestID, domain.ContestCompleted); err != nil {
			return err
		}

		res = domain.SelectionResult{
			Kind:          KindContest,
			ID:            contestID,
			Title:         contest.Title,
			Method:        criteria.Method,
			Winners:       winners,
			TotalEligible: len(pool),
			SelectedAt:    e.now().UTC(),
		}
		return nil
	})
	if err != nil {
		return domain.SelectionResult{}, err
	}

	e.announce(ctx, domain.EventContestWinner, res)
	return res, nil
}

// SelectGiveawayWinners draws winners among the giveaway's eligible
// entries. Entries carry no score, so the draw is always random whatever
// criteria.Method says. Each winner gets a pending prize claim that expires
// after the configured claim window.
func (e *Engine) SelectGiveawayWinners(
	ctx context.Context, giveawayID string, criteria domain.SelectionCriteria,
) (res domain.SelectionResult, err error) {
	ctx, done := e.observe(ctx, "SelectGiveawayWinners",
		attribute.String("giveaway_id", giveawayID),
		attribute.Int("max_winners", criteria.MaxWinners),
	)
	defer func() { done(err) }()

	criteria.Method = domain.SelectRandom
	criteria.ManualWinners = nil
	if err := validateInput("SelectionCriteria", criteria); err != nil {
		return domain.SelectionResult{}, err
	}

	err = e.withSelectionLock(ctx, KindGiveaway, giveawayID, func(tx ports.Store) error {
		giveaway, err := tx.GetGiveaway(ctx, giveawayID)
		if err != nil {
			return err
		}
		if giveaway.Status == domain.ContestCompleted {
			return domain.Invalid("SelectionCriteria", fmt.Sprintf("giveaway %q already has winners", giveawayID))
		}

		entries, err := tx.ListGiveawayEntries(ctx, giveawayID)
		if err != nil {
			return err
		}
		pool := make([]domain.Candidate, 0, len(entries))
		for _, en := range entries {
			switch en.Status {
			case domain.SubmissionWinner, domain.SubmissionDisqualified, domain.SubmissionRejected:
				continue
			}
			pool = append(pool, domain.Candidate{UserID: en.UserID, EntryID: en.ID})
		}

		pool, err = e.filterEligible(ctx, tx, pool, criteria)
		if err != nil {
			return err
		}
		if len(pool) == 0 {
			return &domain.NoEligibleEntriesError{Kind: KindGiveaway, ID: giveawayID}
		}

		now := e.now().UTC()
		winners := e.drawRandom(pool, criteria.MaxWinners, domain.ReasonRandomEntry, nil, 1)
		for _, w := range winners {
			if err := tx.UpdateEntryStatus(ctx, w.EntryID, domain.SubmissionWinner); err != nil {
				return err
			}
			if err := tx.CreateGiveawayWinner(ctx, domain.GiveawayWinner{
				ID:               e.newID(),
				GiveawayID:       giveawayID,
				EntryID:          w.EntryID,
				UserID:           w.UserID,
				Rank:             w.Rank,
				SelectionReason:  w.SelectionReason,
				PrizeClaimStatus: domain.PrizeClaimPending,
				ClaimDeadline:    now.Add(e.cfg.Selection.ClaimWindow),
				SelectedAt:       now,
			}); err != nil {
				return err
			}
		}
		if err := tx.UpdateGiveawayStatus(ctx, giveawayID, domain.ContestCompleted); err != nil {
			return err
		}

		res = domain.SelectionResult{
			Kind:          KindGiveaway,
			ID:            giveawayID,
			Title:         giveaway.Title,
			Method:        domain.SelectRandom,
			Winners:       winners,
			TotalEligible: len(pool),
			SelectedAt:    now,
		}
		return nil
	})
	if err != nil {
		return domain.SelectionResult{}, err
	}

	e.announce(ctx, domain.EventGiveawayWinner, res)
	return res, nil
}

// withSelectionLock serializes selection runs per target and runs fn in a
// transaction, retrying once on a concurrency conflict.
func (e *Engine) withSelectionLock(ctx context.Context, kind, id string, fn func(tx ports.Store) error) error {
	return e.retryOnConflict(ctx, "select:"+kind, func() error {
		unlock, err := e.locks.Lock(ctx, kind+":"+id, e.cfg.Sessions.LockTimeout)
		if err != nil {
			return err
		}
		defer unlock()
		return e.store.WithinTx(ctx, fn)
	})
}

// filterEligible applies the exclusion, verification and score filters.
// The relative order of the pool is preserved.
func (e *Engine) filterEligible(
	ctx context.Context, tx ports.Store, pool []domain.Candidate, criteria domain.SelectionCriteria,
) ([]domain.Candidate, error) {
	excluded := make(map[string]struct{}, len(criteria.ExcludeUserIDs))
	for _, id := range criteria.ExcludeUserIDs {
		excluded[id] = struct{}{}
	}

	var users map[string]domain.User
	if criteria.RequireVerification {
		ids := make([]string, 0, len(pool))
		for _, c := range pool {
			ids = append(ids, c.UserID)
		}
		var err error
		if users, err = tx.GetUsers(ctx, dedupe(ids)); err != nil {
			return nil, err
		}
	}

	out := pool[:0:0]
	for _, c := range pool {
		if _, ok := excluded[c.UserID]; ok {
			continue
		}
		if criteria.RequireVerification && !users[c.UserID].Verified {
			continue
		}
		if criteria.Method.UsesScores() {
			if c.Score == nil {
				continue
			}
			if criteria.MinScore != nil && *c.Score < *criteria.MinScore {
				continue
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// pickWinners runs the contest selection policy named by criteria.Method.
// No user wins twice.
func (e *Engine) pickWinners(
	pool []domain.Candidate, criteria domain.SelectionCriteria, randomReason string,
) ([]domain.SelectedWinner, error) {
	switch criteria.Method {
	case domain.SelectScoreBased:
		return rankByScore(pool, criteria.MaxWinners, criteria.WeightingFactors), nil

	case domain.SelectRandom:
		return e.drawRandom(pool, criteria.MaxWinners, randomReason, nil, 1), nil

	case domain.SelectHybrid:
		quota := int(math.Ceil(float64(criteria.MaxWinners)*e.cfg.Selection.HybridScoreFraction - quotaEpsilon))
		quota = min(max(quota, 0), criteria.MaxWinners)

		top := rankByScore(pool, quota, criteria.WeightingFactors)
		taken := make(map[string]struct{}, len(top))
		chosen := make(map[string]struct{}, len(top))
		for _, w := range top {
			taken[w.UserID] = struct{}{}
			chosen[winnerKey(w)] = struct{}{}
		}
		rest := make([]domain.Candidate, 0, len(pool))
		for _, c := range pool {
			if _, ok := chosen[c.Key()]; !ok {
				rest = append(rest, c)
			}
		}
		drawn := e.drawRandom(rest, criteria.MaxWinners-len(top), randomReason, taken, len(top)+1)
		return append(top, drawn...), nil

	case domain.SelectManual:
		return manualWinners(pool, criteria)
	}
	return nil, domain.Invalid("SelectionCriteria", fmt.Sprintf("unknown selection method %q", criteria.Method))
}

// rankByScore sorts a copy of pool by weighted score, highest first, with
// pool order breaking ties, and takes the first n distinct users. Reasons
// report the unweighted score.
func rankByScore(pool []domain.Candidate, n int, factors map[string]float64) []domain.SelectedWinner {
	type ranked struct {
		c     domain.Candidate
		score float64
	}
	ordered := make([]ranked, 0, len(pool))
	for _, c := range pool {
		if c.Score == nil {
			continue
		}
		f, ok := factors[c.UserID]
		if !ok {
			f = 1
		}
		ordered = append(ordered, ranked{c: c, score: *c.Score * f})
	}
	slices.SortStableFunc(ordered, func(a, b ranked) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return 0
	})

	seen := make(map[string]struct{}, n)
	winners := make([]domain.SelectedWinner, 0, min(n, len(ordered)))
	for _, r := range ordered {
		if len(winners) == n {
			break
		}
		if _, dup := seen[r.c.UserID]; dup {
			continue
		}
		seen[r.c.UserID] = struct{}{}
		rank := len(winners) + 1
		winners = append(winners, toWinner(r.c, rank, domain.RankedReason(rank, *r.c.Score)))
	}
	return winners
}

// drawRandom shuffles a copy of pool and takes the first n distinct users
// not in taken. Ranks start at firstRank. Fewer than n winners is not an
// error.
func (e *Engine) drawRandom(
	pool []domain.Candidate, n int, reason string, taken map[string]struct{}, firstRank int,
) []domain.SelectedWinner {
	if n <= 0 {
		return nil
	}
	shuffled := slices.Clone(pool)
	e.shuffler.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	seen := cloneSet(taken)
	winners := make([]domain.SelectedWinner, 0, min(n, len(shuffled)))
	for _, c := range shuffled {
		if len(winners) == n {
			break
		}
		if _, dup := seen[c.UserID]; dup {
			continue
		}
		seen[c.UserID] = struct{}{}
		winners = append(winners, toWinner(c, firstRank+len(winners), reason))
	}
	return winners
}

// manualWinners passes the caller's choice through after checking every
// pick is in the eligible pool.
func manualWinners(pool []domain.Candidate, criteria domain.SelectionCriteria) ([]domain.SelectedWinner, error) {
	byKey := make(map[string]domain.Candidate, len(pool))
	for _, c := range pool {
		byKey[c.Key()] = c
	}

	verr := domain.NewValidationError("SelectionCriteria")
	if len(criteria.ManualWinners) > criteria.MaxWinners {
		verr.AddErrorf("%d manual winners exceed max winners %d", len(criteria.ManualWinners), criteria.MaxWinners)
	}
	users := make(map[string]struct{}, len(criteria.ManualWinners))
	winners := make([]domain.SelectedWinner, 0, len(criteria.ManualWinners))
	for _, m := range criteria.ManualWinners {
		key := m.SubmissionID
		if key == "" {
			key = m.EntryID
		}
		c, ok := byKey[key]
		if !ok {
			verr.AddErrorf("manual winner %q is not eligible", key)
			continue
		}
		if _, dup := users[c.UserID]; dup {
			verr.AddErrorf("user %q is selected more than once", c.UserID)
			continue
		}
		users[c.UserID] = struct{}{}
		winners = append(winners, toWinner(c, len(winners)+1, domain.ReasonManual))
	}
	if verr.HasErrors() {
		return nil, verr
	}
	return winners, nil
}

// announce records metrics and notifies each winner. It runs after commit.
func (e *Engine) announce(ctx context.Context, event domain.EventType, res domain.SelectionResult) {
	e.metrics.RecordCounter(metrics.MetricWinnersSelected, float64(len(res.Winners)), map[string]string{
		"kind":   res.Kind,
		"method": string(res.Method),
	})
	e.logger.InfoContext(ctx, "winners selected",
		slog.String("kind", res.Kind),
		slog.String("id", res.ID),
		slog.String("method", string(res.Method)),
		slog.Int("winners", len(res.Winners)),
		slog.Int("eligible", res.TotalEligible),
	)

	notifications := make([]domain.Notification, len(res.Winners))
	for i, w := range res.Winners {
		notifications[i] = domain.WinnerNotification(event, res.Title, w, len(res.Winners))
	}
	e.notify(ctx, notifications)
}

func toWinner(c domain.Candidate, rank int, reason string) domain.SelectedWinner {
	w := domain.SelectedWinner{
		UserID:          c.UserID,
		SubmissionID:    c.SubmissionID,
		EntryID:         c.EntryID,
		Rank:            rank,
		SelectionReason: reason,
	}
	if c.Score != nil {
		v := *c.Score
		w.Score = &v
	}
	return w
}

func winnerKey(w domain.SelectedWinner) string {
	if w.SubmissionID != "" {
		return w.SubmissionID
	}
	return w.EntryID
}

func cloneSet(s map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// claimStatusAt reports a winner's claim status as of now; pending claims
// past their deadline count as expired.
func claimStatusAt(w domain.GiveawayWinner, now time.Time) domain.PrizeClaimStatus {
	if w.PrizeClaimStatus == domain.PrizeClaimPending && now.After(w.ClaimDeadline) {
		return domain.PrizeClaimExpired
	}
	return w.PrizeClaimStatus
}

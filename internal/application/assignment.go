package application

import (
	"context"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ahrav/go-gavel-contests/internal/domain"
	"github.com/ahrav/go-gavel-contests/internal/ports"
)

// AssignJudgesInput replaces a contest's judge panel.
type AssignJudgesInput struct {
	ContestID   string   `json:"contest_id" validate:"required"`
	JudgeIDs    []string `json:"judge_ids" validate:"dive,required"`
	AssignedBy  string   `json:"assigned_by" validate:"required"`
	Permissions []string `json:"permissions,omitempty" validate:"omitempty,dive,oneof=score comment view"`
}

// AssignJudges makes JudgeIDs the contest's active panel. Judges dropped
// from the panel are marked removed rather than deleted, so the assignment
// history stays auditable. Only judges who were not already active are
// notified. The returned slice is the new active panel.
func (e *Engine) AssignJudges(ctx context.Context, in AssignJudgesInput) (active []domain.JudgeAssignment, err error) {
	ctx, done := e.observe(ctx, "AssignJudges",
		attribute.String("contest_id", in.ContestID),
		attribute.Int("judges", len(in.JudgeIDs)),
	)
	defer func() { done(err) }()

	if err := validateInput("JudgeAssignment", in); err != nil {
		return nil, err
	}
	judgeIDs := dedupe(in.JudgeIDs)
	perms := in.Permissions
	if len(perms) == 0 {
		perms = domain.DefaultJudgePermissions
	}

	var newlyActive []string
	err = e.store.WithinTx(ctx, func(tx ports.Store) error {
		newlyActive = nil
		active = nil

		contest, err := tx.GetContest(ctx, in.ContestID)
		if err != nil {
			return err
		}
		if contest.Status == domain.ContestCompleted {
			return domain.Invalid("JudgeAssignment", fmt.Sprintf("contest %q is already completed", contest.ID))
		}

		users, err := tx.GetUsers(ctx, judgeIDs)
		if err != nil {
			return err
		}
		for _, id := range judgeIDs {
			if _, ok := users[id]; !ok {
				return domain.NewNotFoundError("judge", id)
			}
		}

		current, err := tx.ListJudgeAssignments(ctx, in.ContestID)
		if err != nil {
			return err
		}
		now := e.now().UTC()
		existing := make(map[string]domain.JudgeAssignment, len(current))
		for _, a := range current {
			existing[a.JudgeID] = a
			if a.IsActive() && !slices.Contains(judgeIDs, a.JudgeID) {
				a.Status = domain.AssignmentRemoved
				a.RemovedAt = &now
				if err := tx.SaveJudgeAssignment(ctx, a); err != nil {
					return err
				}
			}
		}

		for _, id := range judgeIDs {
			a := domain.JudgeAssignment{
				ID:          e.newID(),
				ContestID:   in.ContestID,
				JudgeID:     id,
				AssignedBy:  in.AssignedBy,
				Permissions: slices.Clone(perms),
				Status:      domain.AssignmentActive,
				AssignedAt:  now,
			}
			prev, seen := existing[id]
			if seen {
				a.ID = prev.ID
			}
			if seen && prev.IsActive() {
				a.AssignedAt = prev.AssignedAt
			} else {
				newlyActive = append(newlyActive, id)
			}
			if err := tx.SaveJudgeAssignment(ctx, a); err != nil {
				return err
			}
			active = append(active, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	notifications := make([]domain.Notification, 0, len(newlyActive))
	for _, id := range newlyActive {
		notifications = append(notifications, domain.Notification{
			UserID: id,
			Event:  domain.EventJudgeAssigned,
			Payload: map[string]any{
				"contestId":   in.ContestID,
				"assignedBy":  in.AssignedBy,
				"permissions": slices.Clone(perms),
			},
		})
	}
	e.notify(ctx, notifications)
	return active, nil
}

// GetContestJudges returns the contest's active panel.
func (e *Engine) GetContestJudges(ctx context.Context, contestID string) (active []domain.JudgeAssignment, err error) {
	ctx, done := e.observe(ctx, "GetContestJudges", attribute.String("contest_id", contestID))
	defer func() { done(err) }()

	all, err := e.GetJudgeAssignmentHistory(ctx, contestID)
	if err != nil {
		return nil, err
	}
	active = make([]domain.JudgeAssignment, 0, len(all))
	for _, a := range all {
		if a.IsActive() {
			active = append(active, a)
		}
	}
	return active, nil
}

// GetJudgeAssignmentHistory returns every assignment row of the contest,
// removed ones included.
func (e *Engine) GetJudgeAssignmentHistory(ctx context.Context, contestID string) ([]domain.JudgeAssignment, error) {
	if _, err := e.store.GetContest(ctx, contestID); err != nil {
		return nil, err
	}
	return e.store.ListJudgeAssignments(ctx, contestID)
}

// dedupe drops repeated IDs, keeping first occurrences in order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

package domain

import "time"

// EventType names a notification the engine emits.
type EventType string

const (
	EventJudgeAssigned   EventType = "judge_assigned"
	EventJudgeDiscussion EventType = "judge_discussion"
	EventContestWinner   EventType = "contest_winner"
	EventGiveawayWinner  EventType = "giveaway_winner"
)

// Notification is a structured event addressed to one user. Delivery is
// external; the engine only produces these.
type Notification struct {
	UserID  string         `json:"user_id"`
	Event   EventType      `json:"event"`
	Payload map[string]any `json:"payload"`
}

// WinnerNotification builds the per-winner event payload.
func WinnerNotification(event EventType, title string, w SelectedWinner, totalWinners int) Notification {
	payload := map[string]any{
		"title":           title,
		"rank":            w.Rank,
		"totalWinners":    totalWinners,
		"selectionReason": w.SelectionReason,
	}
	if w.Score != nil {
		payload["score"] = *w.Score
	}
	return Notification{UserID: w.UserID, Event: event, Payload: payload}
}

// UndeliveredNotification is an outbox row kept for reconciliation when
// delivery fails after the primary write committed.
type UndeliveredNotification struct {
	ID        string         `json:"id" db:"id"`
	UserID    string         `json:"user_id" db:"user_id"`
	Event     EventType      `json:"event" db:"event"`
	Payload   map[string]any `json:"payload" db:"-"`
	Error     string         `json:"error" db:"error"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ahrav/go-gavel-contests/internal/domain"
)

// GetGiveaway implements ports.GiveawayStore.
func (s *Store) GetGiveaway(ctx context.Context, id string) (domain.Giveaway, error) {
	var g domain.Giveaway
	err := s.getOne(ctx, &g, "giveaway", id, "giveaways",
		`SELECT id, title, status, created_at FROM giveaways WHERE id = $1`, id)
	return g, err
}

// UpdateGiveawayStatus implements ports.GiveawayStore.
func (s *Store) UpdateGiveawayStatus(ctx context.Context, id string, status domain.ContestStatus) error {
	return s.execOne(ctx, "giveaway", id, "giveaways",
		`UPDATE giveaways SET status = $2 WHERE id = $1`, id, status)
}

// ListGiveawayEntries implements ports.GiveawayStore.
func (s *Store) ListGiveawayEntries(ctx context.Context, giveawayID string) ([]domain.GiveawayEntry, error) {
	entries := []domain.GiveawayEntry{}
	err := s.selectAll(ctx, &entries, "giveaway_entries",
		`SELECT id, giveaway_id, user_id, status, created_at
		FROM giveaway_entries WHERE giveaway_id = $1 ORDER BY seq`, giveawayID)
	return entries, err
}

// UpdateEntryStatus implements ports.GiveawayStore.
func (s *Store) UpdateEntryStatus(ctx context.Context, id string, status domain.SubmissionStatus) error {
	return s.execOne(ctx, "giveaway entry", id, "giveaway_entries",
		`UPDATE giveaway_entries SET status = $2 WHERE id = $1`, id, status)
}

const winnerColumns = `id, giveaway_id, entry_id, user_id, rank, selection_reason,
	prize_claim_status, claim_deadline, selected_at`

// CreateGiveawayWinner implements ports.GiveawayStore.
func (s *Store) CreateGiveawayWinner(ctx context.Context, w domain.GiveawayWinner) error {
	_, err := sqlx.NamedExecContext(ctx, s.q, `
		INSERT INTO giveaway_winners (`+winnerColumns+`)
		VALUES (:id, :giveaway_id, :entry_id, :user_id, :rank, :selection_reason,
			:prize_claim_status, :claim_deadline, :selected_at)
	`, w)
	return mapError("giveaway_winners", "insert", err)
}

// ListGiveawayWinners implements ports.GiveawayStore.
func (s *Store) ListGiveawayWinners(ctx context.Context, giveawayID string) ([]domain.GiveawayWinner, error) {
	winners := []domain.GiveawayWinner{}
	err := s.selectAll(ctx, &winners, "giveaway_winners",
		`SELECT `+winnerColumns+` FROM giveaway_winners WHERE giveaway_id = $1 ORDER BY rank`, giveawayID)
	return winners, err
}

// GetUser implements ports.UserStore.
func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	err := s.getOne(ctx, &u, "user", id, "users",
		`SELECT id, name, email, verified FROM users WHERE id = $1`, id)
	return u, err
}

// GetUsers implements ports.UserStore.
func (s *Store) GetUsers(ctx context.Context, ids []string) (map[string]domain.User, error) {
	out := make(map[string]domain.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []domain.User
	if err := s.selectAll(ctx, &users, "users",
		`SELECT id, name, email, verified FROM users WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// RecordUndeliveredNotification implements ports.OutboxStore.
func (s *Store) RecordUndeliveredNotification(ctx context.Context, n domain.UndeliveredNotification) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO undelivered_notifications (`+outboxColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, n.ID, n.UserID, n.Event, jsonColumn[map[string]any]{V: n.Payload}, n.Error, n.CreatedAt)
	return mapError("undelivered_notifications", "insert", err)
}

// ListUndeliveredNotifications implements ports.OutboxStore. A non-positive
// limit returns every row.
func (s *Store) ListUndeliveredNotifications(ctx context.Context, limit int) ([]domain.UndeliveredNotification, error) {
	query := `SELECT ` + outboxColumns + ` FROM undelivered_notifications ORDER BY seq`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	var rows []outboxRow
	if err := s.selectAll(ctx, &rows, "undelivered_notifications", query, args...); err != nil {
		return nil, err
	}
	out := make([]domain.UndeliveredNotification, len(rows))
	for i, r := range rows {
		out[i] = r.domain()
	}
	return out, nil
}

package memory

import (
	"context"
	"maps"
	"slices"

	"github.com/ahrav/go-gavel-contests/internal/domain"
)

// GetGiveaway implements ports.GiveawayStore.
func (s *Store) GetGiveaway(_ context.Context, id string) (domain.Giveaway, error) {
	var out domain.Giveaway
	err := s.read(func(d *dataset) error {
		g, ok := d.giveaways[id]
		if !ok {
			return domain.NewNotFoundError("giveaway", id)
		}
		out = g
		return nil
	})
	return out, err
}

// UpdateGiveawayStatus implements ports.GiveawayStore.
func (s *Store) UpdateGiveawayStatus(_ context.Context, id string, status domain.ContestStatus) error {
	return s.write(func(d *dataset) error {
		g, ok := d.giveaways[id]
		if !ok {
			return domain.NewNotFoundError("giveaway", id)
		}
		g.Status = status
		d.giveaways[id] = g
		return nil
	})
}

// ListGiveawayEntries implements ports.GiveawayStore.
func (s *Store) ListGiveawayEntries(_ context.Context, giveawayID string) ([]domain.GiveawayEntry, error) {
	var out []domain.GiveawayEntry
	err := s.read(func(d *dataset) error {
		ids := d.giveawayEntries[giveawayID]
		out = make([]domain.GiveawayEntry, 0, len(ids))
		for _, id := range ids {
			out = append(out, d.entries[id])
		}
		return nil
	})
	return out, err
}

// UpdateEntryStatus implements ports.GiveawayStore.
func (s *Store) UpdateEntryStatus(_ context.Context, id string, status domain.SubmissionStatus) error {
	return s.write(func(d *dataset) error {
		e, ok := d.entries[id]
		if !ok {
			return domain.NewNotFoundError("giveaway entry", id)
		}
		e.Status = status
		d.entries[id] = e
		return nil
	})
}

// CreateGiveawayWinner implements ports.GiveawayStore.
func (s *Store) CreateGiveawayWinner(_ context.Context, w domain.GiveawayWinner) error {
	return s.write(func(d *dataset) error {
		if _, ok := d.giveaways[w.GiveawayID]; !ok {
			return domain.NewNotFoundError("giveaway", w.GiveawayID)
		}
		d.winners[w.GiveawayID] = append(d.winners[w.GiveawayID], w)
		return nil
	})
}

// ListGiveawayWinners implements ports.GiveawayStore.
func (s *Store) ListGiveawayWinners(_ context.Context, giveawayID string) ([]domain.GiveawayWinner, error) {
	var out []domain.GiveawayWinner
	err := s.read(func(d *dataset) error {
		out = slices.Clone(d.winners[giveawayID])
		return nil
	})
	return out, err
}

// GetUser implements ports.UserStore.
func (s *Store) GetUser(_ context.Context, id string) (domain.User, error) {
	var out domain.User
	err := s.read(func(d *dataset) error {
		u, ok := d.users[id]
		if !ok {
			return domain.NewNotFoundError("user", id)
		}
		out = u
		return nil
	})
	return out, err
}

// GetUsers implements ports.UserStore.
func (s *Store) GetUsers(_ context.Context, ids []string) (map[string]domain.User, error) {
	out := make(map[string]domain.User, len(ids))
	err := s.read(func(d *dataset) error {
		for _, id := range ids {
			if u, ok := d.users[id]; ok {
				out[id] = u
			}
		}
		return nil
	})
	return out, err
}

// RecordUndeliveredNotification implements ports.OutboxStore.
func (s *Store) RecordUndeliveredNotification(_ context.Context, n domain.UndeliveredNotification) error {
	return s.write(func(d *dataset) error {
		n.Payload = maps.Clone(n.Payload)
		d.outbox = append(d.outbox, n)
		return nil
	})
}

// ListUndeliveredNotifications implements ports.OutboxStore. A non-positive
// limit returns every row.
func (s *Store) ListUndeliveredNotifications(_ context.Context, limit int) ([]domain.UndeliveredNotification, error) {
	var out []domain.UndeliveredNotification
	err := s.read(func(d *dataset) error {
		rows := d.outbox
		if limit > 0 && len(rows) > limit {
			rows = rows[:limit]
		}
		out = slices.Clone(rows)
		return nil
	})
	return out, err
}

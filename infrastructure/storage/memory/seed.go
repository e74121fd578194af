package memory

import (
	"github.com/ahrav/go-gavel-contests/internal/domain"
)

// The Put helpers seed upstream rows the engine only reads. They overwrite
// rows with the same ID.

// PutUser stores a user.
func (s *Store) PutUser(u domain.User) {
	_ = s.write(func(d *dataset) error {
		d.users[u.ID] = u
		return nil
	})
}

// PutContest stores a contest.
func (s *Store) PutContest(c domain.Contest) {
	_ = s.write(func(d *dataset) error {
		d.contests[c.ID] = c
		return nil
	})
}

// PutSubmission stores a submission and appends it to its contest's order.
func (s *Store) PutSubmission(sub domain.Submission) {
	_ = s.write(func(d *dataset) error {
		if _, ok := d.submissions[sub.ID]; !ok {
			d.contestSubmissions[sub.ContestID] = append(d.contestSubmissions[sub.ContestID], sub.ID)
		}
		d.submissions[sub.ID] = sub
		return nil
	})
}

// PutGiveaway stores a giveaway.
func (s *Store) PutGiveaway(g domain.Giveaway) {
	_ = s.write(func(d *dataset) error {
		d.giveaways[g.ID] = g
		return nil
	})
}

// PutGiveawayEntry stores an entry and appends it to its giveaway's order.
func (s *Store) PutGiveawayEntry(e domain.GiveawayEntry) {
	_ = s.write(func(d *dataset) error {
		if _, ok := d.entries[e.ID]; !ok {
			d.giveawayEntries[e.GiveawayID] = append(d.giveawayEntries[e.GiveawayID], e.ID)
		}
		d.entries[e.ID] = e
		return nil
	})
}

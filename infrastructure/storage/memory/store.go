// Package memory provides a transactional in-memory ports.Store. It backs
// the unit tests and the demo binary when no DATABASE_URL is configured.
//
// Writes are serialized. WithinTx works on a private copy of the dataset and
// swaps it in only when the callback succeeds, so a failed transaction
// leaves no trace. Reads outside a transaction see the last committed state.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/ahrav/go-gavel-contests/internal/domain"
	"github.com/ahrav/go-gavel-contests/internal/ports"
)

var _ ports.Store = (*Store)(nil)

// shared is the committed state and the locks guarding it.
type shared struct {
	// writeMu serializes every write, transactional or not.
	writeMu sync.Mutex
	// mu guards the data pointer for readers.
	mu   sync.RWMutex
	data *dataset
}

// Store is a ports.Store held in process memory. The zero value is not
// usable; call New.
type Store struct {
	shared *shared
	// tx is the private dataset of an open transaction, nil otherwise.
	tx *dataset
}

// New returns an empty Store.
func New() *Store {
	return &Store{shared: &shared{data: newDataset()}}
}

// WithinTx implements ports.Store.
func (s *Store) WithinTx(ctx context.Context, fn func(tx ports.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.shared.writeMu.Lock()
	defer s.shared.writeMu.Unlock()

	s.shared.mu.RLock()
	work := s.shared.data.clone()
	s.shared.mu.RUnlock()

	if err := fn(&Store{shared: s.shared, tx: work}); err != nil {
		return err
	}

	s.shared.mu.Lock()
	s.shared.data = work
	s.shared.mu.Unlock()
	return nil
}

func (s *Store) read(fn func(d *dataset) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.shared.mu.RLock()
	defer s.shared.mu.RUnlock()
	return fn(s.shared.data)
}

// write applies fn to the committed dataset. Every fn validates before it
// mutates, so a returned error leaves the dataset untouched.
func (s *Store) write(fn func(d *dataset) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.shared.writeMu.Lock()
	defer s.shared.writeMu.Unlock()
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	return fn(s.shared.data)
}

// dataset holds every table. Slices of IDs record insertion order where the
// store contract promises one.
type dataset struct {
	contests    map[string]domain.Contest
	submissions map[string]domain.Submission
	// contestSubmissions maps contest ID to submission IDs.
	contestSubmissions map[string][]string

	sessions map[string]domain.JudgingSession
	// submissionSession maps submission ID to its most recent session.
	submissionSession map[string]string

	scores map[string]domain.JudgeScore
	// submissionScores maps submission ID to score keys in first-write order.
	submissionScores map[string][]string

	discussion        map[string]domain.DiscussionEntry
	sessionDiscussion map[string][]string

	assignments        map[string]domain.JudgeAssignment
	contestAssignments map[string][]string

	giveaways       map[string]domain.Giveaway
	entries         map[string]domain.GiveawayEntry
	giveawayEntries map[string][]string
	winners         map[string][]domain.GiveawayWinner

	users  map[string]domain.User
	outbox []domain.UndeliveredNotification
}

func newDataset() *dataset {
	return &dataset{
		contests:           make(map[string]domain.Contest),
		submissions:        make(map[string]domain.Submission),
		contestSubmissions: make(map[string][]string),
		sessions:           make(map[string]domain.JudgingSession),
		submissionSession:  make(map[string]string),
		scores:             make(map[string]domain.JudgeScore),
		submissionScores:   make(map[string][]string),
		discussion:         make(map[string]domain.DiscussionEntry),
		sessionDiscussion:  make(map[string][]string),
		assignments:        make(map[string]domain.JudgeAssignment),
		contestAssignments: make(map[string][]string),
		giveaways:          make(map[string]domain.Giveaway),
		entries:            make(map[string]domain.GiveawayEntry),
		giveawayEntries:    make(map[string][]string),
		winners:            make(map[string][]domain.GiveawayWinner),
		users:              make(map[string]domain.User),
	}
}

// clone copies the table maps and index slices. Stored values are never
// mutated in place, so they can be shared between copies.
func (d *dataset) clone() *dataset {
	return &dataset{
		contests:           maps.Clone(d.contests),
		submissions:        maps.Clone(d.submissions),
		contestSubmissions: cloneIndex(d.contestSubmissions),
		sessions:           maps.Clone(d.sessions),
		submissionSession:  maps.Clone(d.submissionSession),
		scores:             maps.Clone(d.scores),
		submissionScores:   cloneIndex(d.submissionScores),
		discussion:         maps.Clone(d.discussion),
		sessionDiscussion:  cloneIndex(d.sessionDiscussion),
		assignments:        maps.Clone(d.assignments),
		contestAssignments: cloneIndex(d.contestAssignments),
		giveaways:          maps.Clone(d.giveaways),
		entries:            maps.Clone(d.entries),
		giveawayEntries:    cloneIndex(d.giveawayEntries),
		winners:            cloneIndex(d.winners),
		users:              maps.Clone(d.users),
		outbox:             slices.Clone(d.outbox),
	}
}

func cloneIndex[T any](m map[string][]T) map[string][]T {
	out := make(map[string][]T, len(m))
	for k, v := range m {
		out[k] = slices.Clone(v)
	}
	return out
}

func pairKey(a, b string) string { return a + "\x00" + b }

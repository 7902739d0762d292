// Package roster owns the participant list and the active session. Every
// other component reads through Store and mutates only via its methods.
package roster

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"rollcall/internal/domain"
)

// Op names the mutation that produced a Change.
type Op string

const (
	OpLoad   Op = "roster.load"
	OpStatus Op = "participant.status"
	OpReset  Op = "roster.reset"
)

// Change is delivered to listeners after every mutation.
type Change struct {
	Op            Op
	ParticipantID string
	Status        domain.Status
	Snapshot      domain.Snapshot
}

// Listener observes store mutations. Listeners run synchronously while the
// store is locked and must not call back into the store.
type Listener func(Change)

type Store struct {
	mu        sync.Mutex
	roster    []domain.Participant
	session   *domain.Session
	listeners []Listener
	newID     func() string
}

type Option func(*Store)

// WithIDGenerator replaces the uuid generator, for deterministic tests.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

func New(opts ...Option) *Store {
	s := &Store{newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers a listener. Listeners are called in registration order.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Restore installs a trusted snapshot without validation or notification.
func (s *Store) Restore(snap domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := snap.Clone()
	s.roster = c.Roster
	s.session = c.Session
}

// LoadRoster replaces the roster and session. On error nothing changes.
func (s *Store) LoadRoster(names []string, session domain.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}
	session = session.Normalized()
	def := session.Variant.Default()
	roster := make([]domain.Participant, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		roster = append(roster, domain.Participant{ID: s.newID(), Name: name, Status: def})
	}
	if len(roster) == 0 {
		return domain.ErrEmptyOrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.roster = roster
	s.session = &session
	s.notify(Change{Op: OpLoad})
	return nil
}

// SetStatus records status for the participant with the given id. Setting
// the status a participant already has succeeds and still notifies.
func (s *Store) SetStatus(id string, status domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return domain.ErrNoSession
	}
	if !s.session.Variant.Allows(status) {
		return fmt.Errorf("%w: %q not in %s", domain.ErrInvalidStatus, status.Name(), s.session.Variant)
	}
	idx := -1
	for i := range s.roster {
		if s.roster[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", domain.ErrUnknownParticipant, id)
	}
	// Copy-on-write so snapshots handed out earlier stay unchanged.
	next := append([]domain.Participant(nil), s.roster...)
	next[idx].Status = status
	s.roster = next
	s.notify(Change{Op: OpStatus, ParticipantID: id, Status: status})
	return nil
}

// Reset clears roster and session. Calling it on an empty store is fine.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roster = nil
	s.session = nil
	s.notify(Change{Op: OpReset})
}

// Attendees returns a copy of the current roster in insertion order.
func (s *Store) Attendees() []domain.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Participant(nil), s.roster...)
}

// Session returns the active session, if any.
func (s *Store) Session() (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return domain.Session{}, false
	}
	return *s.session, true
}

// Participant looks up a participant by id.
func (s *Store) Participant(id string) (domain.Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.roster {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Participant{}, false
}

// Snapshot returns a consistent copy of roster and session.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{Roster: s.roster, Session: s.session}.Clone()
}

func (s *Store) notify(c Change) {
	if len(s.listeners) == 0 {
		return
	}
	c.Snapshot = s.snapshotLocked()
	for _, l := range s.listeners {
		l(c)
	}
}

// Package flow exposes the transient in-flight flags for each auth verb plus
// the last flow error. Purely ephemeral coordination state: no side effects,
// no network, no persistence.
package flow

import "sync"

// Op names an auth verb that can be in flight.
type Op string

const (
	OpSignIn  Op = "sign_in"
	OpSignUp  Op = "sign_up"
	OpSignOut Op = "sign_out"
	OpRefresh Op = "refresh"
)

// Flags is a point-in-time view of the in-flight state.
type Flags struct {
	SigningIn  bool
	SigningUp  bool
	SigningOut bool
	Refreshing bool
	Error      string
}

// Store tracks which auth verbs are in flight. Begin is a check-and-set under
// the store lock, so two concurrent callers of the same verb cannot both
// proceed.
type Store struct {
	lock     sync.Mutex
	inFlight map[Op]bool
	lastErr  string
}

func NewStore() *Store {
	return &Store{inFlight: make(map[Op]bool)}
}

// Begin marks op in flight. Returns false when op is already in flight.
func (s *Store) Begin(op Op) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.inFlight[op] {
		return false
	}
	s.inFlight[op] = true
	return true
}

// End clears op's in-flight flag. Safe to call when the flag is not set.
func (s *Store) End(op Op) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.inFlight, op)
}

// InFlight reports whether op is currently in flight.
func (s *Store) InFlight(op Op) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.inFlight[op]
}

// SetError records the last flow error.
func (s *Store) SetError(msg string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.lastErr = msg
}

// ClearError clears the last flow error.
func (s *Store) ClearError() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.lastErr = ""
}

// Flags returns a snapshot of all flags and the last error.
func (s *Store) Flags() Flags {
	s.lock.Lock()
	defer s.lock.Unlock()

	return Flags{
		SigningIn:  s.inFlight[OpSignIn],
		SigningUp:  s.inFlight[OpSignUp],
		SigningOut: s.inFlight[OpSignOut],
		Refreshing: s.inFlight[OpRefresh],
		Error:      s.lastErr,
	}
}

// Reset returns every flag and the error to defaults.
func (s *Store) Reset() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.inFlight = make(map[Op]bool)
	s.lastErr = ""
}

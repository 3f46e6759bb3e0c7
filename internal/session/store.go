package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"expensedash/internal/cache"
)

// Store keeps session state in process memory, keyed by an opaque token.
// Nothing survives a restart.
type Store struct {
	// mu serialises read-modify-write cycles on a session.
	mu     sync.Mutex
	states cache.Cache[State]
}

func NewStore(states cache.Cache[State]) *Store {
	return &Store{states: states}
}

// NewToken returns 32 random bytes, hex encoded.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Load returns the state for token, or the anonymous state when the token is
// unknown or expired.
func (s *Store) Load(token string) (State, bool) {
	if token == "" {
		return Anonymous(), false
	}
	st, ok := s.states.Get(token)
	if !ok {
		return Anonymous(), false
	}
	return st, true
}

// Apply runs ev against the stored state and saves the result. A pending
// flash survives the transition. A Logout event discards the token entirely.
func (s *Store) Apply(token string, ev Event) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, _ := s.Load(token)
	next := Transition(cur, ev)
	if _, ok := ev.(Logout); ok {
		s.states.Delete(token)
		return next
	}
	next.Flash = cur.Flash
	if token != "" {
		s.states.Set(token, next)
	}
	return next
}

// SetFlash attaches a one-shot message to the session behind token.
func (s *Store) SetFlash(token string, f Flash) {
	if token == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, _ := s.Load(token)
	cur.Flash = f
	s.states.Set(token, cur)
}

// TakeFlash returns and clears the pending message.
func (s *Store) TakeFlash(token string) Flash {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.Load(token)
	if !ok || cur.Flash.Empty() {
		return Flash{}
	}
	f := cur.Flash
	cur.Flash = Flash{}
	s.states.Set(token, cur)
	return f
}

// Destroy forgets token.
func (s *Store) Destroy(token string) {
	s.states.Delete(token)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	return s.states.Size()
}

// Package memory is an in-process Mirror for development and tests.
package memory

import (
	"context"
	"sync"

	ports "expensedash/internal/sheets"
)

var _ ports.Mirror = (*Store)(nil)

type Store struct {
	mu      sync.Mutex
	header  []string
	rows    [][]string
	writes  int
	failErr error
}

func New() *Store {
	return &Store{}
}

// ReplaceAll stores a copy of header and rows.
func (s *Store) ReplaceAll(_ context.Context, header []string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.header = append([]string(nil), header...)
	s.rows = make([][]string, len(rows))
	for i, r := range rows {
		s.rows[i] = append([]string(nil), r...)
	}
	s.writes++
	return nil
}

// Snapshot returns the current contents.
func (s *Store) Snapshot() (header []string, rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.header...), append([][]string(nil), s.rows...)
}

// Writes counts successful ReplaceAll calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// FailWith makes subsequent writes return err; nil restores normal behaviour.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

// Package data holds the shared experiment data for one run.
//
// The store keeps two generations of the named-value mapping: the committed
// generation, visible to the part about to run, and a staging generation
// that the running part reads and writes. A part that fails mid-run is
// rolled back by discarding staging; committed data is never touched by a
// failed part.
//
// The store requires no locking: exactly one part mutates it at a time
// (the run loop is strictly sequential).
package data

import (
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/crucible/internal/value"
)

// Store is the mutable experiment data with copy-on-write staging.
type Store struct {
	committed value.Map
	staging   value.Map
}

// New creates a store seeded with the given initial values. Both
// generations start as deep copies of the seed.
func New(initial value.Map) *Store {
	s := &Store{}
	if initial == nil {
		initial = value.Map{}
	}
	s.committed = normalizeKeys(initial)
	s.staging = s.committed.CopyMap()
	return s
}

// Begin starts a transition: staging becomes a fresh copy of committed.
func (s *Store) Begin() {
	s.staging = s.committed.CopyMap()
}

// Commit publishes staging as the new committed generation.
func (s *Store) Commit() {
	s.committed = s.staging.CopyMap()
}

// Rollback discards staging, restoring it from committed.
func (s *Store) Rollback() {
	s.staging = s.committed.CopyMap()
}

// Get reads a named value from staging.
func (s *Store) Get(name string) (value.Value, bool) {
	v, ok := s.staging[normKey(name)]
	return v, ok
}

// Set writes a named value into staging.
func (s *Store) Set(name string, v value.Value) {
	if v == nil {
		v = value.Null{}
	}
	s.staging[normKey(name)] = v
}

// Committed returns a deep copy of the committed generation.
func (s *Store) Committed() value.Map {
	return s.committed.CopyMap()
}

// Staging returns a deep copy of the staging generation.
func (s *Store) Staging() value.Map {
	return s.staging.CopyMap()
}

// Keys are NFC-normalized so a key written from a config file and the same
// key typed at run time cannot differ by Unicode representation.
func normKey(name string) string {
	return norm.NFC.String(name)
}

func normalizeKeys(m value.Map) value.Map {
	out := make(value.Map, len(m))
	for k, v := range m {
		out[normKey(k)] = v.Copy()
	}
	return out
}

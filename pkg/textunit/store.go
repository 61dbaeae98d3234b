package textunit

import (
	"os"
	"sync"
)

// Store is the ordered, mutex-guarded collection of units for the loaded
// document. Snapshot returns copies, so readers never share mutable state
// with the preload tasks; SetAudio is the single mutation entry point for
// audio fields.
type Store struct {
	mu    sync.RWMutex
	units []Unit
	index map[string]int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		index: make(map[string]int),
	}
}

// Replace swaps the store contents for a freshly loaded batch of units.
func (s *Store) Replace(units []Unit) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.units = make([]Unit, len(units))
	copy(s.units, units)
	s.index = make(map[string]int, len(units))
	for i, u := range units {
		s.index[u.ID] = i
	}
}

// Snapshot returns a copy of all units in document order.
func (s *Store) Snapshot() []Unit {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Unit, len(s.units))
	copy(out, s.units)
	return out
}

// Get returns a copy of the unit with the given id.
func (s *Store) Get(id string) (Unit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return Unit{}, false
	}
	return s.units[i], true
}

// Len returns the number of units.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.units)
}

// SetAudio records a finalized audio artifact for one side of a unit and
// returns the updated copy. The ready flag is set only when the path is
// non-empty and the file exists at this moment; staleness after external
// deletion is tolerated until the next lookup re-validates it.
func (s *Store) SetAudio(id string, d Direction, path string) (Unit, bool) {
	ready := path != "" && fileExists(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return Unit{}, false
	}

	if d == Target {
		s.units[i].TargetAudioPath = path
		s.units[i].TargetAudioReady = ready
	} else {
		s.units[i].SourceAudioPath = path
		s.units[i].SourceAudioReady = ready
	}
	return s.units[i], true
}

// ClearAudio resets the audio fields of every unit, both directions.
// Used after the audio cache is cleared.
func (s *Store) ClearAudio() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.units {
		s.units[i].SourceAudioPath = ""
		s.units[i].SourceAudioReady = false
		s.units[i].TargetAudioPath = ""
		s.units[i].TargetAudioReady = false
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

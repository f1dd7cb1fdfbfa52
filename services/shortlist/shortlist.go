// Package shortlist keeps the capped, ordered list of movies a session has
// picked as wheel candidates.
package shortlist

import (
	"errors"
	"fmt"

	"moviepicker/models"
)

var (
	ErrFull       = fmt.Errorf("You can store up to %d movies in your shortlist.", models.MaxShortlistSize)
	ErrIDRequired = errors.New("movie id is required")
)

// Shortlist is an insertion-ordered set of entries keyed by movie id.
// It is not safe for concurrent use; the owning session serializes access.
type Shortlist struct {
	entries []models.ShortlistEntry
}

// New returns a shortlist seeded with entries. Duplicates and anything past
// the cap are dropped.
func New(entries ...models.ShortlistEntry) *Shortlist {
	s := &Shortlist{}
	for _, e := range entries {
		if e.ID == 0 || s.Contains(e.ID) || len(s.entries) >= models.MaxShortlistSize {
			continue
		}
		s.entries = append(s.entries, e)
	}
	return s
}

// Toggle removes the movie when present, otherwise appends it. It returns
// whether the movie is shortlisted afterwards. Adding to a full list fails
// with ErrFull and leaves the list unchanged.
func (s *Shortlist) Toggle(entry models.ShortlistEntry) (bool, error) {
	if entry.ID == 0 {
		return false, ErrIDRequired
	}
	if s.Remove(entry.ID) {
		return false, nil
	}
	if len(s.entries) >= models.MaxShortlistSize {
		return false, ErrFull
	}
	s.entries = append(s.entries, entry)
	return true, nil
}

// Remove deletes the movie if present and reports whether it was.
func (s *Shortlist) Remove(id int64) bool {
	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Shortlist) Contains(id int64) bool {
	for _, e := range s.entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

// Entries returns a copy of the entries in insertion order.
func (s *Shortlist) Entries() []models.ShortlistEntry {
	out := make([]models.ShortlistEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Shortlist) Len() int {
	return len(s.entries)
}

// CanSpin reports whether there are enough entries to offer the wheel.
func (s *Shortlist) CanSpin() bool {
	return len(s.entries) >= 2
}

// Package sessions keeps per-browser picker state in memory, keyed by a
// session cookie.
package sessions

import (
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"moviepicker/models"
	"moviepicker/services/grid"
	"moviepicker/services/shortlist"
)

// Session is one browser's picker state. Callers hold Lock while reading or
// mutating any field.
type Session struct {
	ID string

	mu       sync.Mutex
	lastSeen atomic.Int64

	Shortlist *shortlist.Shortlist
	Filters   *models.FilterCriteria
	Grid      grid.State
	// Seq increments on every search so late results can be recognised.
	Seq uint64
	// Alert is a one-shot banner shown on the next page render.
	Alert string

	movies    *lru.Cache[int64, models.Movie]
	providers *lru.Cache[int64, *models.RegionProviders]
}

func newSession(id string, now time.Time, movieCacheSize, providerCacheSize int) *Session {
	movies, _ := lru.New[int64, models.Movie](movieCacheSize)
	providers, _ := lru.New[int64, *models.RegionProviders](providerCacheSize)
	s := &Session{
		ID:        id,
		Shortlist: shortlist.New(),
		movies:    movies,
		providers: providers,
	}
	s.lastSeen.Store(now.UnixNano())
	return s
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// RememberMovies adds records to the session's movie cache.
func (s *Session) RememberMovies(movies []models.Movie) {
	for _, m := range movies {
		s.movies.Add(m.ID, m)
	}
}

// Movie returns a movie record. Cards still on the grid are found even
// after the bounded cache has evicted them.
func (s *Session) Movie(id int64) (models.Movie, bool) {
	if m, ok := s.movies.Get(id); ok {
		return m, true
	}
	for _, m := range s.Grid.Movies {
		if m.ID == id {
			s.movies.Add(id, m)
			return m, true
		}
	}
	return models.Movie{}, false
}

// CachedProviders returns the providers remembered for a movie. A nil result
// with ok=true means the movie is known to have none.
func (s *Session) CachedProviders(id int64) (*models.RegionProviders, bool) {
	return s.providers.Get(id)
}

// RememberProviders stores a provider lookup; nil records "none".
func (s *Session) RememberProviders(id int64, region *models.RegionProviders) {
	s.providers.Add(id, region)
}

// PopAlert returns and clears the pending banner.
func (s *Session) PopAlert() string {
	alert := s.Alert
	s.Alert = ""
	return alert
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) idleSince() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

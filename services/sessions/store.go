package sessions

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const CookieName = "moviepicker_session"

// Options configures a Store. Zero values fall back to defaults.
type Options struct {
	IdleTimeout       time.Duration
	MovieCacheSize    int
	ProviderCacheSize int
	Now               func() time.Time
}

// Store holds live sessions and evicts idle ones.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	idle              time.Duration
	movieCacheSize    int
	providerCacheSize int
	now               func() time.Time
}

func NewStore(opts Options) *Store {
	s := &Store{
		sessions:          make(map[string]*Session),
		idle:              opts.IdleTimeout,
		movieCacheSize:    opts.MovieCacheSize,
		providerCacheSize: opts.ProviderCacheSize,
		now:               opts.Now,
	}
	if s.idle <= 0 {
		s.idle = 12 * time.Hour
	}
	if s.movieCacheSize <= 0 {
		s.movieCacheSize = 500
	}
	if s.providerCacheSize <= 0 {
		s.providerCacheSize = 100
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Create starts a new empty session.
func (s *Store) Create() *Session {
	sess := newSession(uuid.NewString(), s.now(), s.movieCacheSize, s.providerCacheSize)
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Get returns a live session and marks it as used.
func (s *Store) Get(id string) (*Session, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	now := s.now()
	if now.Sub(sess.idleSince()) > s.idle {
		s.delete(id)
		return nil, false
	}
	sess.touch(now)
	return sess, true
}

// Resolve returns the request's session, creating one and setting the cookie
// when the browser has none or it expired. The cookie carries no Max-Age so
// it ends with the browser session.
func (s *Store) Resolve(w http.ResponseWriter, r *http.Request) *Session {
	if cookie, err := r.Cookie(CookieName); err == nil {
		if sess, ok := s.Get(cookie.Value); ok {
			return sess
		}
	}
	sess := s.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep evicts idle sessions and returns how many were dropped.
func (s *Store) Sweep() int {
	cutoff := s.now().Add(-s.idle)

	s.mu.RLock()
	var expired []string
	for id, sess := range s.sessions {
		if sess.idleSince().Before(cutoff) {
			expired = append(expired, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range expired {
		s.delete(id)
	}
	return len(expired)
}

// Run sweeps on every interval until ctx is cancelled.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				log.Printf("[sessions] evicted %d idle sessions", n)
			}
		}
	}
}

func (s *Store) delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

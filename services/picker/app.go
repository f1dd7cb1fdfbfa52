package picker

import (
	"context"
	"errors"
	"log"
	"math/rand/v2"
	"sync"

	"moviepicker/models"
	"moviepicker/services/sessions"
	"moviepicker/services/shortlist"
	"moviepicker/services/wheel"
)

// Banner messages shown on the picker page.
const (
	SearchFailedMessage = "Could not fetch movies. Please try again later."
)

var (
	// ErrStale marks a result that arrived after a newer search started.
	ErrStale          = errors.New("result superseded by a newer search")
	// ErrNoSearch is returned by load-more when no successful search can be
	// continued.
	ErrNoSearch       = errors.New("no search to continue")
	ErrUnknownMovie   = errors.New("movie is not in this session")
	ErrEmptyShortlist = errors.New("shortlist is empty")
)

// Command is a user action applied to a session.
type Command interface {
	command()
}

// SearchCommand starts a new search, replacing the grid.
type SearchCommand struct {
	Criteria models.FilterCriteria
}

// LoadMoreCommand appends another random page for the last search.
type LoadMoreCommand struct{}

// ToggleShortlistCommand adds or removes a movie from the shortlist.
type ToggleShortlistCommand struct {
	MovieID int64
}

// RemoveShortlistCommand removes a movie; absent ids are ignored.
type RemoveShortlistCommand struct {
	MovieID int64
}

// SpinCommand spins the wheel over the current shortlist.
type SpinCommand struct{}

func (SearchCommand) command()          {}
func (LoadMoreCommand) command()        {}
func (ToggleShortlistCommand) command() {}
func (RemoveShortlistCommand) command() {}
func (SpinCommand) command()            {}

// Result reports what a command did. Only the fields relevant to the command
// are set.
type Result struct {
	Added    int
	Selected bool
	Spin     *wheel.Spin
	Winner   *models.ShortlistEntry
}

// RandomSource draws random movies for a filter set.
type RandomSource interface {
	RandomMovies(ctx context.Context, criteria models.FilterCriteria) ([]models.Movie, error)
}

// FilterValidator rejects malformed criteria before any upstream call.
type FilterValidator interface {
	Filters(criteria models.FilterCriteria) error
}

// App applies commands to sessions. Upstream calls happen without holding
// the session lock; results are applied only if no newer search started.
type App struct {
	movies    RandomSource
	validator FilterValidator
	posterURL func(string) string

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewApp wires the picker. posterURL builds the poster address stored with
// shortlist entries; rnd drives wheel spins and may be nil.
func NewApp(movies RandomSource, validator FilterValidator, posterURL func(string) string, rnd *rand.Rand) *App {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &App{movies: movies, validator: validator, posterURL: posterURL, rnd: rnd}
}

// Dispatch runs cmd against sess.
func (a *App) Dispatch(ctx context.Context, sess *sessions.Session, cmd Command) (Result, error) {
	switch c := cmd.(type) {
	case SearchCommand:
		return a.search(ctx, sess, c.Criteria)
	case LoadMoreCommand:
		return a.loadMore(ctx, sess)
	case ToggleShortlistCommand:
		return a.toggle(sess, c.MovieID)
	case RemoveShortlistCommand:
		sess.Lock()
		sess.Shortlist.Remove(c.MovieID)
		sess.Unlock()
		return Result{}, nil
	case SpinCommand:
		return a.spin(sess)
	default:
		return Result{}, errors.New("unknown command")
	}
}

func (a *App) search(ctx context.Context, sess *sessions.Session, criteria models.FilterCriteria) (Result, error) {
	if a.validator != nil {
		if err := a.validator.Filters(criteria); err != nil {
			var verr *models.ValidationError
			if errors.As(err, &verr) {
				sess.Lock()
				sess.Alert = verr.Message
				sess.Unlock()
			}
			return Result{}, err
		}
	}

	sess.Lock()
	sess.Seq++
	seq := sess.Seq
	saved := criteria
	saved.Genres = append([]string(nil), criteria.Genres...)
	sess.Filters = &saved
	sess.Unlock()

	movies, err := a.movies.RandomMovies(ctx, criteria)

	sess.Lock()
	defer sess.Unlock()
	if sess.Seq != seq {
		return Result{}, ErrStale
	}
	if err != nil {
		log.Printf("[picker] search failed: %v", err)
		sess.Grid.Clear()
		sess.Alert = SearchFailedMessage
		return Result{}, err
	}
	sess.RememberMovies(movies)
	sess.Grid.Reset(movies)
	return Result{Added: len(sess.Grid.Movies)}, nil
}

func (a *App) loadMore(ctx context.Context, sess *sessions.Session) (Result, error) {
	sess.Lock()
	if sess.Filters == nil || !sess.Grid.CanLoadMore {
		sess.Unlock()
		return Result{}, ErrNoSearch
	}
	seq := sess.Seq
	criteria := *sess.Filters
	sess.Unlock()

	movies, err := a.movies.RandomMovies(ctx, criteria)

	sess.Lock()
	defer sess.Unlock()
	if sess.Seq != seq {
		return Result{}, ErrStale
	}
	if err != nil {
		log.Printf("[picker] load more failed: %v", err)
		sess.Grid.DisableLoadMore()
		return Result{}, err
	}
	before := len(sess.Grid.Movies)
	sess.RememberMovies(movies)
	sess.Grid.Append(movies)
	return Result{Added: len(sess.Grid.Movies) - before}, nil
}

func (a *App) toggle(sess *sessions.Session, id int64) (Result, error) {
	sess.Lock()
	defer sess.Unlock()

	if sess.Shortlist.Remove(id) {
		return Result{Selected: false}, nil
	}
	movie, ok := sess.Movie(id)
	if !ok {
		return Result{}, ErrUnknownMovie
	}
	selected, err := sess.Shortlist.Toggle(shortlist.EntryFor(movie, a.posterURL))
	if err != nil {
		if errors.Is(err, shortlist.ErrFull) {
			sess.Alert = err.Error()
		}
		return Result{}, err
	}
	return Result{Selected: selected}, nil
}

func (a *App) spin(sess *sessions.Session) (Result, error) {
	sess.Lock()
	entries := sess.Shortlist.Entries()
	sess.Unlock()

	if len(entries) == 0 {
		return Result{}, ErrEmptyShortlist
	}

	a.mu.Lock()
	spin, err := wheel.NewSpin(a.rnd, len(entries))
	a.mu.Unlock()
	if err != nil {
		return Result{}, err
	}
	winner := entries[spin.WinnerIndex]
	return Result{Spin: &spin, Winner: &winner}, nil
}

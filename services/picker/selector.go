// Package picker draws random movies for a set of filters and applies the
// picker's user commands to a session.
package picker

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"

	"moviepicker/models"
	"moviepicker/services/catalog"
)

//go:generate mockgen -source=selector.go -destination=mock_source_test.go -package=picker

// maxCatalogPage is the highest page the catalog serves for discover.
const maxCatalogPage = 500

var ErrNoResults = errors.New("no movies matched the filters")

// MovieSource returns one page of discover results.
type MovieSource interface {
	Discover(ctx context.Context, q catalog.DiscoverQuery) (*models.DiscoverPage, error)
}

// Selector picks a random sample of movies matching a filter set. The random
// source is guarded so one Selector can serve concurrent requests.
type Selector struct {
	source  MovieSource
	maxPage int

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSelector builds a selector. A nil rnd uses a randomly seeded PCG source;
// a maxPage <= 0 uses the catalog ceiling.
func NewSelector(source MovieSource, rnd *rand.Rand, maxPage int) *Selector {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if maxPage <= 0 || maxPage > maxCatalogPage {
		maxPage = maxCatalogPage
	}
	return &Selector{source: source, rnd: rnd, maxPage: maxPage}
}

// RandomMovies reads the first page to learn how many pages match, fetches a
// uniformly random page, shuffles it and returns up to Quantity movies.
func (s *Selector) RandomMovies(ctx context.Context, criteria models.FilterCriteria) ([]models.Movie, error) {
	base := catalog.DiscoverQuery{
		Genre:    criteria.GenreParam(),
		Year:     criteria.Year,
		Language: criteria.Language,
	}

	first := base
	first.Page = "1"
	probe, err := s.source.Discover(ctx, first)
	if err != nil {
		return nil, fmt.Errorf("discover first page: %w", err)
	}
	if probe == nil || len(probe.Results) == 0 {
		return nil, ErrNoResults
	}

	page := s.intN(s.pageCount(probe.TotalPages)) + 1
	movies := probe.Results
	if page != 1 {
		q := base
		q.Page = strconv.Itoa(page)
		result, err := s.source.Discover(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("discover page %d: %w", page, err)
		}
		if result == nil || len(result.Results) == 0 {
			return nil, ErrNoResults
		}
		movies = result.Results
	}

	movies = uniqueByID(movies)
	s.mu.Lock()
	Shuffle(s.rnd, movies)
	s.mu.Unlock()

	if criteria.Quantity > 0 && len(movies) > criteria.Quantity {
		movies = movies[:criteria.Quantity]
	}
	return movies, nil
}

func (s *Selector) pageCount(totalPages int) int {
	n := min(totalPages, s.maxPage)
	if n < 1 {
		n = 1
	}
	return n
}

func (s *Selector) intN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.IntN(n)
}

// Shuffle permutes items in place with the Fisher-Yates algorithm.
func Shuffle[T any](rnd *rand.Rand, items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := rnd.IntN(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

// uniqueByID copies movies dropping repeated ids, keeping first occurrences.
func uniqueByID(movies []models.Movie) []models.Movie {
	seen := make(map[int64]struct{}, len(movies))
	out := make([]models.Movie, 0, len(movies))
	for _, m := range movies {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}

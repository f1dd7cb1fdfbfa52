// Package providers resolves where a movie can be watched in the configured
// region, with a shared expiring cache in front of the catalog.
package providers

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"moviepicker/models"
)

var (
	ErrInvalidMovieID = errors.New("invalid movie id")

	movieIDPattern = regexp.MustCompile(`^\d+$`)
)

// Fetcher retrieves raw watch-provider data from the catalog.
type Fetcher interface {
	WatchProviders(ctx context.Context, movieID string) (*models.WatchProviders, error)
}

// Service caches one region's provider breakdown per movie. Entries are
// replaced wholesale, never mutated in place.
type Service struct {
	fetcher Fetcher
	region  string
	cache   *expirable.LRU[string, *models.RegionProviders]
	group   singleflight.Group

	upstreamCalls atomic.Int64
}

// NewService creates a provider service. A zero ttl falls back to one hour
// and a zero size to 1000 entries.
func NewService(fetcher Fetcher, region string, ttl time.Duration, maxEntries int) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = "GB"
	}
	return &Service{
		fetcher: fetcher,
		region:  region,
		cache:   expirable.NewLRU[string, *models.RegionProviders](maxEntries, nil, ttl),
	}
}

// ValidMovieID reports whether id is a plain decimal numeral.
func ValidMovieID(id string) bool {
	return movieIDPattern.MatchString(id)
}

// Region returns the country code this service extracts.
func (s *Service) Region() string {
	return s.region
}

// Lookup returns the region's providers for a movie, or nil when the movie
// has no offers there. Concurrent misses for the same id share one upstream
// call.
func (s *Service) Lookup(ctx context.Context, movieID string) (*models.RegionProviders, error) {
	if !ValidMovieID(movieID) {
		return nil, ErrInvalidMovieID
	}

	if cached, ok := s.cache.Get(movieID); ok {
		return cached, nil
	}

	v, err, _ := s.group.Do(movieID, func() (any, error) {
		if cached, ok := s.cache.Get(movieID); ok {
			return cached, nil
		}

		s.upstreamCalls.Add(1)
		payload, err := s.fetcher.WatchProviders(context.WithoutCancel(ctx), movieID)
		if err != nil {
			log.Printf("[providers] fetch movie %s failed: %v", movieID, err)
			return nil, err
		}

		var region *models.RegionProviders
		if r, ok := payload.Results[s.region]; ok {
			region = &r
		}
		s.cache.Add(movieID, region)
		return region, nil
	})
	if err != nil {
		return nil, err
	}
	region, _ := v.(*models.RegionProviders)
	return region, nil
}

// UpstreamCalls returns how many catalog requests the service has issued.
func (s *Service) UpstreamCalls() int64 {
	return s.upstreamCalls.Load()
}

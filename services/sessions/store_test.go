package sessions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviepicker/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(clock *fakeClock) *Store {
	return NewStore(Options{IdleTimeout: time.Hour, MovieCacheSize: 2, ProviderCacheSize: 2, Now: clock.Now})
}

func TestResolveSetsSessionCookie(t *testing.T) {
	store := newTestStore(&fakeClock{now: time.Unix(1_700_000_000, 0)})

	rec := httptest.NewRecorder()
	sess := store.Resolve(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, sess)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, sess.ID, cookies[0].Value)
	assert.Zero(t, cookies[0].MaxAge, "cookie must end with the browser session")
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	again := store.Resolve(rec, req)
	assert.Same(t, sess, again)
	assert.Empty(t, rec.Result().Cookies())
}

func TestResolveReplacesUnknownCookie(t *testing.T) {
	store := newTestStore(&fakeClock{now: time.Unix(1_700_000_000, 0)})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "not-a-uuid"})
	rec := httptest.NewRecorder()
	sess := store.Resolve(rec, req)

	assert.NotEqual(t, "not-a-uuid", sess.ID)
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestIdleSessionsExpire(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := newTestStore(clock)

	stale := store.Create()
	clock.Advance(50 * time.Minute)
	fresh := store.Create()

	_, ok := store.Get(stale.ID)
	require.True(t, ok, "used sessions stay alive")

	clock.Advance(61 * time.Minute)
	assert.Equal(t, 2, store.Sweep())
	assert.Equal(t, 0, store.Len())

	_, ok = store.Get(fresh.ID)
	assert.False(t, ok)
}

func TestGetDropsExpiredSessionBeforeSweep(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := newTestStore(clock)

	sess := store.Create()
	clock.Advance(2 * time.Hour)

	_, ok := store.Get(sess.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestRunStopsWithContext(t *testing.T) {
	store := newTestStore(&fakeClock{now: time.Unix(1_700_000_000, 0)})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		store.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestSessionCachesAreBounded(t *testing.T) {
	store := newTestStore(&fakeClock{now: time.Unix(1_700_000_000, 0)})
	sess := store.Create()

	sess.Lock()
	defer sess.Unlock()

	sess.RememberMovies([]models.Movie{{ID: 1}, {ID: 2}, {ID: 3}})
	_, ok := sess.Movie(1)
	assert.False(t, ok, "oldest movie evicted")
	m, ok := sess.Movie(3)
	require.True(t, ok)
	assert.EqualValues(t, 3, m.ID)

	sess.RememberProviders(10, nil)
	region, ok := sess.CachedProviders(10)
	assert.True(t, ok)
	assert.Nil(t, region)
}

func TestPopAlertClears(t *testing.T) {
	sess := newSession("id", time.Now(), 1, 1)
	sess.Alert = "hello"
	assert.Equal(t, "hello", sess.PopAlert())
	assert.Empty(t, sess.PopAlert())
}

func TestMovieFallsBackToGrid(t *testing.T) {
	sess := newSession("id", time.Now(), 2, 1)
	sess.Lock()
	defer sess.Unlock()

	shown := []models.Movie{{ID: 1, Title: "One"}, {ID: 2}, {ID: 3}, {ID: 4}}
	sess.Grid.Reset(shown)
	sess.RememberMovies(shown)

	m, ok := sess.Movie(1)
	require.True(t, ok, "a card on the grid stays reachable after eviction")
	assert.Equal(t, "One", m.Title)

	sess.Grid.Clear()
	_, ok = sess.Movie(2)
	assert.False(t, ok)
}

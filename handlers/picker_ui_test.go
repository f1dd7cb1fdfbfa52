package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviepicker/handlers"
	"moviepicker/internal/validation"
	"moviepicker/models"
	"moviepicker/services/grid"
	"moviepicker/services/picker"
	"moviepicker/services/sessions"
)

type fakeListings struct {
	genres    []models.Genre
	languages []models.Language
	err       error
}

func (f *fakeListings) Genres(context.Context) ([]models.Genre, error) {
	return f.genres, f.err
}

func (f *fakeListings) Languages(context.Context) ([]models.Language, error) {
	return f.languages, f.err
}

type fakeRandomSource struct {
	movies []models.Movie
	err    error
	calls  int
}

func (f *fakeRandomSource) RandomMovies(_ context.Context, c models.FilterCriteria) ([]models.Movie, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	n := min(c.Quantity, len(f.movies))
	return append([]models.Movie(nil), f.movies[:n]...), nil
}

type pickerEnv struct {
	handler  *handlers.PickerUIHandler
	list     *handlers.ShortlistHandler
	source   *fakeRandomSource
	listings *fakeListings
	avail    *fakeAvailability
	store    *sessions.Store
	cookie   *http.Cookie
}

func newPickerEnv(t *testing.T) *pickerEnv {
	t.Helper()
	env := &pickerEnv{
		source: &fakeRandomSource{movies: []models.Movie{
			{ID: 603, Title: "The Matrix", OriginalTitle: "The Matrix", ReleaseDate: "1999-03-30", PosterPath: "/matrix.jpg", Overview: "A hacker learns the truth.", VoteAverage: 8.2, VoteCount: 26123},
			{ID: 949, Title: "Heat", OriginalTitle: "Heat", ReleaseDate: "1995-12-15", PosterPath: "/heat.jpg", VoteAverage: 7.9, VoteCount: 7000},
			{ID: 680, Title: "Pulp Fiction", OriginalTitle: "Pulp Fiction", ReleaseDate: "1994-09-10"},
		}},
		listings: &fakeListings{
			genres:    []models.Genre{{ID: 28, Name: "Action"}, {ID: 35, Name: "Comedy"}},
			languages: []models.Language{{ISO6391: "fr", EnglishName: "French"}, {ISO6391: "en", EnglishName: "English"}},
		},
		avail: &fakeAvailability{region: &models.RegionProviders{
			Link: "https://www.themoviedb.org/movie/603/watch?locale=GB",
			Rent: []models.Provider{{ProviderName: "Apple TV", LogoPath: "/apple.jpg"}},
		}},
		store: sessions.NewStore(sessions.Options{}),
	}

	posterURL := func(p string) string { return "https://image.tmdb.org/t/p/w342" + p }
	validator := validation.New(nil)
	app := picker.NewApp(env.source, validator, posterURL, rand.New(rand.NewPCG(1, 2)))
	env.handler = handlers.NewPickerUIHandler(handlers.PickerOptions{
		Sessions:     env.store,
		App:          app,
		Listings:     env.listings,
		Availability: env.avail,
		Cards:        grid.NewBuilder(posterURL),
		LogoURL:      func(p string) string { return "https://image.tmdb.org/t/p/w92" + p },
		WebsiteURL:   "https://www.themoviedb.org",
		Region:       "GB",
		Feedback:     validator,
	})
	env.list = handlers.NewShortlistHandler(env.store, app)
	return env
}

type call struct {
	method string
	target string
	form   url.Values
	vars   map[string]string
	json   bool
}

func (e *pickerEnv) do(h http.HandlerFunc, c call) *httptest.ResponseRecorder {
	var req *http.Request
	if c.form != nil {
		req = httptest.NewRequest(c.method, c.target, strings.NewReader(c.form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(c.method, c.target, nil)
	}
	if c.json {
		req.Header.Set("Accept", "application/json")
	}
	if e.cookie != nil {
		req.AddCookie(e.cookie)
	}
	if c.vars != nil {
		req = mux.SetURLVars(req, c.vars)
	}

	rec := httptest.NewRecorder()
	h(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == sessions.CookieName {
			e.cookie = ck
		}
	}
	return rec
}

func (e *pickerEnv) search(form url.Values, asJSON bool) *httptest.ResponseRecorder {
	return e.do(e.handler.Search, call{method: http.MethodPost, target: "/picker/search", form: form, json: asJSON})
}

func (e *pickerEnv) toggle(id int64) *httptest.ResponseRecorder {
	idStr := strconv.FormatInt(id, 10)
	return e.do(e.handler.ToggleShortlist, call{
		method: http.MethodPost,
		target: "/picker/shortlist/" + idStr,
		vars:   map[string]string{"id": idStr},
		json:   true,
	})
}

func validSearch() url.Values {
	return url.Values{"genre1": {"28"}, "genre2": {""}, "year": {"1999"}, "language": {"en"}, "quantity": {"2"}}
}

func TestPickerPageRendersFilterLists(t *testing.T) {
	env := newPickerEnv(t)

	rec := env.do(env.handler.Picker, call{method: http.MethodGet, target: "/moviepicker"})

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.cookie)
	assert.True(t, env.cookie.HttpOnly)
	body := rec.Body.String()
	assert.Contains(t, body, "Action")
	assert.Contains(t, body, "Comedy")
	assert.Less(t, strings.Index(body, ">English<"), strings.Index(body, ">French<"), "languages are sorted by English name")
	assert.Contains(t, body, `<option value="en" selected>`)
}

func TestPickerPageShowsListError(t *testing.T) {
	env := newPickerEnv(t)
	env.listings.err = errors.New("catalog down")

	rec := env.do(env.handler.Picker, call{method: http.MethodGet, target: "/moviepicker"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Could not load the filter options")
}

func TestSearchFormRedirectsAndRendersGrid(t *testing.T) {
	env := newPickerEnv(t)

	rec := env.search(validSearch(), false)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/moviepicker#results", rec.Header().Get("Location"))

	rec = env.do(env.handler.Picker, call{method: http.MethodGet, target: "/moviepicker"})
	body := rec.Body.String()
	assert.Contains(t, body, "The Matrix")
	assert.Contains(t, body, "Heat")
	assert.NotContains(t, body, "Pulp Fiction")
	assert.Contains(t, body, "26,123 votes")
	assert.Contains(t, body, `<option value="28" selected>`)
}

func TestSearchJSONReportsAddedCount(t *testing.T) {
	env := newPickerEnv(t)

	rec := env.search(validSearch(), true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"added":2,"selected":false}`, rec.Body.String())
}

func TestSearchRejectsMissingFilters(t *testing.T) {
	env := newPickerEnv(t)

	form := validSearch()
	form.Set("genre1", "")
	rec := env.search(form, true)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, validation.MissingFiltersMessage, decodeError(t, rec))
	assert.Zero(t, env.source.calls)

	page := env.do(env.handler.Picker, call{method: http.MethodGet, target: "/moviepicker"})
	assert.Contains(t, page.Body.String(), "Please select both a Genre and a Number of movies")
}

func TestSearchFailureShowsBanner(t *testing.T) {
	env := newPickerEnv(t)
	env.source.err = errors.New("upstream 500")

	rec := env.search(validSearch(), true)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, picker.SearchFailedMessage, decodeError(t, rec))

	page := env.do(env.handler.Picker, call{method: http.MethodGet, target: "/moviepicker"})
	assert.Contains(t, page.Body.String(), picker.SearchFailedMessage)
}

func TestLoadMoreWithoutSearchConflicts(t *testing.T) {
	env := newPickerEnv(t)

	rec := env.do(env.handler.LoadMore, call{method: http.MethodPost, target: "/picker/more", json: true})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestToggleShortlistAndList(t *testing.T) {
	env := newPickerEnv(t)
	require.Equal(t, http.StatusOK, env.search(validSearch(), true).Code)

	rec := env.toggle(603)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"added":0,"selected":true}`, rec.Body.String())

	rec = env.do(env.list.List, call{method: http.MethodGet, target: "/api/shortlist"})
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Shortlist []models.ShortlistEntry `json:"shortlist"`
		CanSpin   bool                    `json:"canSpin"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Shortlist, 1)
	assert.Equal(t, models.ShortlistEntry{
		ID:          603,
		Title:       "The Matrix",
		PosterPath:  "https://image.tmdb.org/t/p/w342/matrix.jpg",
		ReleaseYear: "1999",
	}, list.Shortlist[0])
	assert.False(t, list.CanSpin)

	rec = env.toggle(603)
	assert.JSONEq(t, `{"added":0,"selected":false}`, rec.Body.String())
}

func TestToggleUnknownMovie(t *testing.T) {
	env := newPickerEnv(t)

	rec := env.toggle(12345)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestToggleRejectsBadID(t *testing.T) {
	env := newPickerEnv(t)

	rec := env.do(env.handler.ToggleShortlist, call{
		method: http.MethodPost,
		target: "/picker/shortlist/x1",
		vars:   map[string]string{"id": "x1"},
		json:   true,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShortlistAPIRemove(t *testing.T) {
	env := newPickerEnv(t)
	require.Equal(t, http.StatusOK, env.search(validSearch(), true).Code)
	require.Equal(t, http.StatusOK, env.toggle(603).Code)
	require.Equal(t, http.StatusOK, env.toggle(949).Code)

	rec := env.do(env.list.Remove, call{
		method: http.MethodDelete,
		target: "/api/shortlist/603",
		vars:   map[string]string{"id": "603"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Shortlist []models.ShortlistEntry `json:"shortlist"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Shortlist, 1)
	assert.Equal(t, int64(949), list.Shortlist[0].ID)
}

func TestRemoveShortlistFormRedirects(t *testing.T) {
	env := newPickerEnv(t)

	rec := env.do(env.handler.RemoveShortlist, call{
		method: http.MethodPost,
		target: "/picker/shortlist/1/remove",
		vars:   map[string]string{"id": "1"},
		form:   url.Values{},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/moviepicker#shortlist", rec.Header().Get("Location"))
}

func TestSpinNeedsShortlist(t *testing.T) {
	env := newPickerEnv(t)

	rec := env.do(env.handler.Spin, call{method: http.MethodPost, target: "/picker/wheel/spin"})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSpinPicksShortlistedWinner(t *testing.T) {
	env := newPickerEnv(t)
	require.Equal(t, http.StatusOK, env.search(validSearch(), true).Code)
	require.Equal(t, http.StatusOK, env.toggle(603).Code)
	require.Equal(t, http.StatusOK, env.toggle(949).Code)

	rec := env.do(env.handler.Spin, call{method: http.MethodPost, target: "/picker/wheel/spin"})

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Velocity    float64               `json:"velocity"`
		Frames      int                   `json:"frames"`
		WinnerIndex int                   `json:"winnerIndex"`
		Winner      models.ShortlistEntry `json:"winner"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.GreaterOrEqual(t, body.Velocity, 0.45)
	assert.Positive(t, body.Frames)
	ids := []int64{603, 949}
	require.Contains(t, []int{0, 1}, body.WinnerIndex)
	assert.Equal(t, ids[body.WinnerIndex], body.Winner.ID)
}

func TestWheelImageIsPNG(t *testing.T) {
	env := newPickerEnv(t)
	require.Equal(t, http.StatusOK, env.search(validSearch(), true).Code)
	require.Equal(t, http.StatusOK, env.toggle(603).Code)
	require.Equal(t, http.StatusOK, env.toggle(949).Code)

	rec := env.do(env.handler.WheelImage, call{method: http.MethodGet, target: "/picker/wheel.png?size=200&highlight=1"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
}

func TestMovieDetailPartial(t *testing.T) {
	env := newPickerEnv(t)
	require.Equal(t, http.StatusOK, env.search(validSearch(), true).Code)

	rec := env.do(env.handler.MovieDetail, call{
		method: http.MethodGet,
		target: "/picker/movies/603?partial=1",
		vars:   map[string]string{"id": "603"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "The Matrix")
	assert.Contains(t, body, "A hacker learns the truth.")
	assert.NotContains(t, body, "<nav", "partial responses skip the page layout")
}

func TestMovieDetailUnknownMovie(t *testing.T) {
	env := newPickerEnv(t)

	rec := env.do(env.handler.MovieDetail, call{
		method: http.MethodGet,
		target: "/picker/movies/1",
		vars:   map[string]string{"id": "1"},
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMovieInfoListsProvidersOncePerSession(t *testing.T) {
	env := newPickerEnv(t)
	require.Equal(t, http.StatusOK, env.search(validSearch(), true).Code)

	info := call{
		method: http.MethodGet,
		target: "/picker/movies/603/info?partial=1",
		vars:   map[string]string{"id": "603"},
	}
	rec := env.do(env.handler.MovieInfo, info)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Apple TV")
	assert.Contains(t, body, "https://www.themoviedb.org/movie/603-the-matrix?language=en-GB")
	assert.Contains(t, body, "https://image.tmdb.org/t/p/w92/apple.jpg")

	env.do(env.handler.MovieInfo, info)
	assert.Equal(t, 1, env.avail.calls)
}

func TestMovieInfoFallbackWhenLookupFails(t *testing.T) {
	env := newPickerEnv(t)
	env.avail.err = errors.New("timeout")

	rec := env.do(env.handler.MovieInfo, call{
		method: http.MethodGet,
		target: "/picker/movies/77/info?partial=1",
		vars:   map[string]string{"id": "77"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "isn't available to stream, rent or buy in United Kingdom right now")
}

func TestMovieInfoFallbackNamesConfiguredRegion(t *testing.T) {
	cases := map[string]string{
		"FR": "in France right now",
		"":   "in your region right now",
	}
	for region, want := range cases {
		t.Run(region, func(t *testing.T) {
			env := newPickerEnv(t)
			env.avail.region = nil
			env.handler = handlers.NewPickerUIHandler(handlers.PickerOptions{
				Sessions:     env.store,
				App:          picker.NewApp(env.source, validation.New(nil), func(p string) string { return p }, nil),
				Listings:     env.listings,
				Availability: env.avail,
				Cards:        grid.NewBuilder(func(p string) string { return p }),
				LogoURL:      func(p string) string { return p },
				Region:       region,
			})

			rec := env.do(env.handler.MovieInfo, call{
				method: http.MethodGet,
				target: "/picker/movies/5/info?partial=1",
				vars:   map[string]string{"id": "5"},
			})

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), want)
		})
	}
}

func TestFeedbackFormThanksUser(t *testing.T) {
	env := newPickerEnv(t)

	rec := env.do(env.handler.SendFeedback, call{
		method: http.MethodPost,
		target: "/picker/feedback",
		form:   url.Values{"message": {"Please add TV shows"}, "email": {"me@example.com"}},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/moviepicker", rec.Header().Get("Location"))

	page := env.do(env.handler.Picker, call{method: http.MethodGet, target: "/moviepicker"})
	body := page.Body.String()
	assert.Contains(t, body, handlers.FeedbackThanks)
	assert.Contains(t, body, `id="feedback-modal"`)
}

func TestFeedbackRejectsBlankMessage(t *testing.T) {
	env := newPickerEnv(t)

	rec := env.do(env.handler.SendFeedback, call{
		method: http.MethodPost,
		target: "/picker/feedback",
		form:   url.Values{"message": {"   "}},
		json:   true,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, validation.FeedbackMessage, decodeError(t, rec))

	rec = env.do(env.handler.SendFeedback, call{
		method: http.MethodPost,
		target: "/picker/feedback",
		form:   url.Values{"message": {""}},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	page := env.do(env.handler.Picker, call{method: http.MethodGet, target: "/moviepicker"})
	assert.Contains(t, page.Body.String(), "Please write a message")
}

func TestFeedbackJSON(t *testing.T) {
	env := newPickerEnv(t)

	rec := env.do(env.handler.SendFeedback, call{
		method: http.MethodPost,
		target: "/picker/feedback",
		form:   url.Values{"message": {"Great app"}},
		json:   true,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Thanks for your feedback!"}`, rec.Body.String())
}

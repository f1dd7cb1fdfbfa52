package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviepicker/api"
	"moviepicker/handlers"
	"moviepicker/internal/validation"
	"moviepicker/models"
	"moviepicker/services/catalog"
	"moviepicker/services/grid"
	"moviepicker/services/picker"
	"moviepicker/services/sessions"
)

type stubCatalog struct{}

func (stubCatalog) DiscoverRaw(context.Context, catalog.DiscoverQuery) (*catalog.Response, error) {
	return &catalog.Response{Status: http.StatusOK, Body: []byte(`{"page":1,"results":[]}`)}, nil
}

func (stubCatalog) GenresRaw(context.Context) (*catalog.Response, error) {
	return &catalog.Response{Status: http.StatusOK, Body: []byte(`{"genres":[{"id":28,"name":"Action"}]}`)}, nil
}

func (stubCatalog) LanguagesRaw(context.Context) (*catalog.Response, error) {
	return &catalog.Response{Status: http.StatusOK, Body: []byte(`[]`)}, nil
}

func (stubCatalog) Genres(context.Context) ([]models.Genre, error) { return nil, nil }

func (stubCatalog) Languages(context.Context) ([]models.Language, error) { return nil, nil }

type stubProviders struct{}

func (stubProviders) Lookup(context.Context, string) (*models.RegionProviders, error) {
	return nil, nil
}

type stubSource struct{}

func (stubSource) RandomMovies(context.Context, models.FilterCriteria) ([]models.Movie, error) {
	return nil, nil
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := sessions.NewStore(sessions.Options{})
	app := picker.NewApp(stubSource{}, validation.New(nil), func(p string) string { return p }, nil)

	r := mux.NewRouter()
	api.Register(r,
		handlers.NewCatalogHandler(stubCatalog{}, stubProviders{}),
		handlers.NewShortlistHandler(store, app),
		handlers.NewImageHandler(afero.NewMemMapFs(), "/cache", nil, "image.tmdb.org"),
		handlers.NewPickerUIHandler(handlers.PickerOptions{
			Sessions:     store,
			App:          app,
			Listings:     stubCatalog{},
			Availability: stubProviders{},
			Cards:        grid.NewBuilder(func(p string) string { return p }),
			LogoURL:      func(p string) string { return p },
		}),
	)
	srv := httptest.NewServer(api.WithCORS(r))
	t.Cleanup(srv.Close)
	return srv
}

func TestRoutesServeAPIWithCORS(t *testing.T) {
	srv := newServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/genres", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRoutesAnswerPreflight(t *testing.T) {
	srv := newServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/shortlist/603", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodDelete)
}

func TestRoutesStatusCodes(t *testing.T) {
	srv := newServer(t)

	cases := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/favicon.ico", http.StatusNoContent},
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/about", http.StatusOK},
		{http.MethodGet, "/moviepicker", http.StatusOK},
		{http.MethodGet, "/api/movies?genre=28", http.StatusOK},
		{http.MethodGet, "/api/shortlist", http.StatusOK},
		{http.MethodGet, "/api/movie/abc/providers", http.StatusBadRequest},
		{http.MethodPost, "/api/genres", http.StatusMethodNotAllowed},
		{http.MethodGet, "/css/style.css", http.StatusOK},
		{http.MethodGet, "/javascript/moviePicker.js", http.StatusOK},
		{http.MethodGet, "/pictures/movie_image_fallback_small_1.png", http.StatusOK},
		{http.MethodGet, "/nope", http.StatusNotFound},
		{http.MethodGet, "/picker/feedback", http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, srv.URL+tc.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"moviepicker/models"
	"moviepicker/services/catalog"
	"moviepicker/services/providers"
)

type catalogService interface {
	DiscoverRaw(context.Context, catalog.DiscoverQuery) (*catalog.Response, error)
	GenresRaw(context.Context) (*catalog.Response, error)
	LanguagesRaw(context.Context) (*catalog.Response, error)
}

type providerLookup interface {
	Lookup(ctx context.Context, movieID string) (*models.RegionProviders, error)
}

var (
	_ catalogService = (*catalog.Client)(nil)
	_ providerLookup = (*providers.Service)(nil)
)

// CatalogHandler proxies the movie catalog so the access token never
// reaches the browser.
type CatalogHandler struct {
	Catalog      catalogService
	Availability providerLookup
}

func NewCatalogHandler(c catalogService, p providerLookup) *CatalogHandler {
	return &CatalogHandler{Catalog: c, Availability: p}
}

// Movies forwards a discover query. Query params: genre, year, language, page.
func (h *CatalogHandler) Movies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.Catalog.DiscoverRaw(r.Context(), catalog.DiscoverQuery{
		Genre:    q.Get("genre"),
		Year:     q.Get("year"),
		Language: q.Get("language"),
		Page:     q.Get("page"),
	})
	h.passthrough(w, "movies", resp, err, "Failed to fetch movies from TMDb.")
}

func (h *CatalogHandler) Genres(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Catalog.GenresRaw(r.Context())
	h.passthrough(w, "genres", resp, err, "Failed to fetch genres")
}

func (h *CatalogHandler) Languages(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Catalog.LanguagesRaw(r.Context())
	h.passthrough(w, "languages", resp, err, "Failed to fetch languages")
}

// passthrough mirrors the upstream status and body. Anything that is not a
// JSON reply is reported with the route's generic message.
func (h *CatalogHandler) passthrough(w http.ResponseWriter, route string, resp *catalog.Response, err error, failure string) {
	if err != nil {
		log.Printf("[catalog] %s: %v", route, err)
		writeJSONError(w, failure, http.StatusInternalServerError)
		return
	}
	if !json.Valid(resp.Body) {
		log.Printf("[catalog] %s: upstream returned %d with a non-JSON body", route, resp.Status)
		writeJSONError(w, failure, http.StatusInternalServerError)
		return
	}
	if !resp.OK() {
		log.Printf("[catalog] %s: upstream error %d: %s", route, resp.Status, strings.TrimSpace(string(resp.Body)))
	}
	contentType := resp.ContentType
	if !strings.Contains(contentType, "json") {
		contentType = "application/json"
	}
	writeRaw(w, resp.Status, contentType, resp.Body)
}

type upstreamErrorBody struct {
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details"`
}

// Providers returns where a movie can be watched in the configured region.
func (h *CatalogHandler) Providers(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	region, err := h.Availability.Lookup(r.Context(), id)
	if err != nil {
		if errors.Is(err, providers.ErrInvalidMovieID) {
			writeJSONError(w, "Invalid movie id", http.StatusBadRequest)
			return
		}
		var statusErr *catalog.StatusError
		if errors.As(err, &statusErr) {
			log.Printf("[catalog] providers %s: upstream error %d", id, statusErr.Status)
			details := json.RawMessage(`{}`)
			if json.Valid(statusErr.Body) {
				details = statusErr.Body
			}
			writeJSON(w, statusErr.Status, upstreamErrorBody{Error: "TMDb error", Details: details})
			return
		}
		log.Printf("[catalog] providers %s: %v", id, err)
		writeJSONError(w, "Failed to fetch providers", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, models.ProvidersResponse{ID: id, GB: region})
}

// Favicon answers with no content so browsers stop asking.
func (h *CatalogHandler) Favicon(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

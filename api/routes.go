package api

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"

	"moviepicker/assets"
	"moviepicker/handlers"
)

// Register mounts the JSON API, the picker pages and the static assets onto
// the provided router.
func Register(
	r *mux.Router,
	catalogHandler *handlers.CatalogHandler,
	shortlistHandler *handlers.ShortlistHandler,
	imageHandler *handlers.ImageHandler,
	pickerHandler *handlers.PickerUIHandler,
) {
	api := r.PathPrefix("/api").Subrouter()

	// Catalog proxy
	api.HandleFunc("/movies", catalogHandler.Movies).Methods(http.MethodGet)
	api.HandleFunc("/genres", catalogHandler.Genres).Methods(http.MethodGet)
	api.HandleFunc("/languages", catalogHandler.Languages).Methods(http.MethodGet)
	api.HandleFunc("/movie/{id}/providers", catalogHandler.Providers).Methods(http.MethodGet)

	// Session shortlist
	api.HandleFunc("/shortlist", shortlistHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/shortlist/{id}", shortlistHandler.Toggle).Methods(http.MethodPost)
	api.HandleFunc("/shortlist/{id}", shortlistHandler.Remove).Methods(http.MethodDelete)

	// Poster proxy
	api.HandleFunc("/image", imageHandler.Proxy).Methods(http.MethodGet)

	// Pages
	r.HandleFunc("/", pickerHandler.Home).Methods(http.MethodGet)
	r.HandleFunc("/moviepicker", pickerHandler.Picker).Methods(http.MethodGet)
	r.HandleFunc("/about", pickerHandler.About).Methods(http.MethodGet)
	r.HandleFunc("/favicon.ico", catalogHandler.Favicon).Methods(http.MethodGet)

	// Picker actions
	p := r.PathPrefix("/picker").Subrouter()
	p.HandleFunc("/search", pickerHandler.Search).Methods(http.MethodPost)
	p.HandleFunc("/more", pickerHandler.LoadMore).Methods(http.MethodPost)
	p.HandleFunc("/shortlist/{id}", pickerHandler.ToggleShortlist).Methods(http.MethodPost)
	p.HandleFunc("/shortlist/{id}/remove", pickerHandler.RemoveShortlist).Methods(http.MethodPost)
	p.HandleFunc("/movies/{id}", pickerHandler.MovieDetail).Methods(http.MethodGet)
	p.HandleFunc("/movies/{id}/info", pickerHandler.MovieInfo).Methods(http.MethodGet)
	p.HandleFunc("/wheel/spin", pickerHandler.Spin).Methods(http.MethodPost)
	p.HandleFunc("/wheel.png", pickerHandler.WheelImage).Methods(http.MethodGet)
	p.HandleFunc("/feedback", pickerHandler.SendFeedback).Methods(http.MethodPost)

	// Static assets
	static := http.FileServerFS(assets.FS)
	for _, prefix := range []string{"/css/", "/javascript/", "/pictures/"} {
		r.PathPrefix(prefix).Handler(static).Methods(http.MethodGet, http.MethodHead)
	}
}

// WithCORS allows any origin on every route. It wraps the whole router so
// preflight requests are answered before route matching.
func WithCORS(h http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(h)
}

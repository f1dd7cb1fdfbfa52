package handlers

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sourcegraph/conc"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"moviepicker/internal/validation"
	"moviepicker/models"
	"moviepicker/services/grid"
	"moviepicker/services/picker"
	"moviepicker/services/providers"
	"moviepicker/services/sessions"
	"moviepicker/services/shortlist"
	"moviepicker/services/wheel"
	"moviepicker/utils/slug"
)

//go:embed picker_templates/*
var pickerTemplates embed.FS

// maxQuantity is the largest batch the quantity select offers.
const maxQuantity = 20

type listingService interface {
	Genres(context.Context) ([]models.Genre, error)
	Languages(context.Context) ([]models.Language, error)
}

type pickerApp interface {
	Dispatch(context.Context, *sessions.Session, picker.Command) (picker.Result, error)
}

type feedbackValidator interface {
	Feedback(models.Feedback) error
}

var (
	_ pickerApp         = (*picker.App)(nil)
	_ feedbackValidator = (*validation.Validator)(nil)
)

// FeedbackThanks is the banner shown after feedback is accepted.
const FeedbackThanks = "Thanks for your feedback!"

// PickerOptions wires the picker UI.
type PickerOptions struct {
	Sessions     *sessions.Store
	App          pickerApp
	Listings     listingService
	Availability providerLookup
	Cards        *grid.Builder
	LogoURL      func(string) string
	WebsiteURL   string
	// Region is the country code provider lookups are made for.
	Region       string
	Feedback     feedbackValidator
}

// PickerUIHandler renders the pages and applies picker form actions.
type PickerUIHandler struct {
	PickerOptions
	pages      map[string]*template.Template
	regionName string
}

func NewPickerUIHandler(opts PickerOptions) *PickerUIHandler {
	funcMap := template.FuncMap{
		"json": func(v any) template.JS {
			b, _ := json.Marshal(v)
			return template.JS(b)
		},
		"itoa": func(v int) string { return strconv.Itoa(v) },
	}

	pages := make(map[string]*template.Template)
	for _, name := range []string{"home", "about", "picker", "info", "detail"} {
		tmpl, err := template.New(name).Funcs(funcMap).ParseFS(pickerTemplates,
			"picker_templates/base.html",
			"picker_templates/"+name+".html",
		)
		if err != nil {
			// templates are embedded; a parse failure is a build defect
			panic(fmt.Sprintf("parse %s template: %v", name, err))
		}
		pages[name] = tmpl
	}

	return &PickerUIHandler{PickerOptions: opts, pages: pages, regionName: regionName(opts.Region)}
}

// regionName returns the English name of a country code, or the code itself
// when it is not a known region.
func regionName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	region, err := language.ParseRegion(code)
	if err != nil {
		return code
	}
	if name := display.English.Regions().Name(region); name != "" {
		return name
	}
	return code
}

func (h *PickerUIHandler) render(w http.ResponseWriter, page, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.pages[page].ExecuteTemplate(w, name, data); err != nil {
		log.Printf("[picker] %s template error: %v", page, err)
	}
}

type basePage struct {
	Title      string
	ActivePage string
}

func (h *PickerUIHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, "home", "base", basePage{Title: "Movie Picker", ActivePage: "home"})
}

func (h *PickerUIHandler) About(w http.ResponseWriter, r *http.Request) {
	h.render(w, "about", "base", basePage{Title: "About", ActivePage: "about"})
}

type genreSlot struct {
	Index    int
	Selected string
}

type pickerPage struct {
	basePage
	Genres      []models.Genre
	Languages   []models.Language
	GenreSlots  []genreSlot
	Year        string
	Language    string
	Quantity    int
	Quantities  []int
	Cards       []grid.Card
	Phase       string
	CanLoadMore bool
	Shortlist   []models.ShortlistEntry
	CanSpin     bool
	Alert       string
	ListsError  string
}

// Picker renders the picker page from the session state.
func (h *PickerUIHandler) Picker(w http.ResponseWriter, r *http.Request) {
	sess := h.Sessions.Resolve(w, r)

	var (
		genres       []models.Genre
		languages    []models.Language
		genresErr    error
		languagesErr error
		wg           conc.WaitGroup
	)
	wg.Go(func() { genres, genresErr = h.Listings.Genres(r.Context()) })
	wg.Go(func() { languages, languagesErr = h.Listings.Languages(r.Context()) })
	wg.Wait()

	page := pickerPage{
		basePage:   basePage{Title: "Pick a movie", ActivePage: "picker"},
		Genres:     genres,
		Languages:  sortLanguages(languages),
		Language:   "en",
		Quantities: make([]int, 0, maxQuantity),
	}
	for q := 1; q <= maxQuantity; q++ {
		page.Quantities = append(page.Quantities, q)
	}
	if genresErr != nil || languagesErr != nil {
		log.Printf("[picker] filter lists unavailable: genres=%v languages=%v", genresErr, languagesErr)
		page.ListsError = "Could not load the filter options. Please refresh the page."
	}

	sess.Lock()
	var selectedGenres []string
	if f := sess.Filters; f != nil {
		selectedGenres = f.Genres
		page.Year = f.Year
		page.Language = f.Language
		page.Quantity = f.Quantity
	}
	page.Cards = sess.Grid.Cards(h.Cards, sess.Shortlist.Contains)
	page.Phase = sess.Grid.Phase.String()
	page.CanLoadMore = sess.Grid.CanLoadMore
	page.Shortlist = sess.Shortlist.Entries()
	page.CanSpin = sess.Shortlist.CanSpin()
	page.Alert = sess.PopAlert()
	sess.Unlock()

	for i := range 3 {
		slot := genreSlot{Index: i + 1}
		if i < len(selectedGenres) {
			slot.Selected = selectedGenres[i]
		}
		page.GenreSlots = append(page.GenreSlots, slot)
	}

	h.render(w, "picker", "base", page)
}

func sortLanguages(langs []models.Language) []models.Language {
	out := make([]models.Language, len(langs))
	copy(out, langs)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].EnglishName) < strings.ToLower(out[j].EnglishName)
	})
	return out
}

// criteriaFromForm reads the filter form. Blank genre selects are skipped.
func criteriaFromForm(r *http.Request) models.FilterCriteria {
	var c models.FilterCriteria
	for _, key := range []string{"genre1", "genre2", "genre3"} {
		if g := strings.TrimSpace(r.PostFormValue(key)); g != "" {
			c.Genres = append(c.Genres, g)
		}
	}
	c.Year = strings.TrimSpace(r.PostFormValue("year"))
	c.Language = strings.TrimSpace(r.PostFormValue("language"))
	c.Quantity, _ = strconv.Atoi(strings.TrimSpace(r.PostFormValue("quantity")))
	return c
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func backToPicker(w http.ResponseWriter, r *http.Request, anchor string) {
	target := "/moviepicker"
	if anchor != "" {
		target += "#" + anchor
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// Search starts a new search from the filter form.
func (h *PickerUIHandler) Search(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSONError(w, "invalid form", http.StatusBadRequest)
		return
	}
	sess := h.Sessions.Resolve(w, r)
	res, err := h.App.Dispatch(r.Context(), sess, picker.SearchCommand{Criteria: criteriaFromForm(r)})
	h.respondAction(w, r, res, err, "results")
}

// LoadMore appends another random batch for the last search.
func (h *PickerUIHandler) LoadMore(w http.ResponseWriter, r *http.Request) {
	sess := h.Sessions.Resolve(w, r)
	res, err := h.App.Dispatch(r.Context(), sess, picker.LoadMoreCommand{})
	h.respondAction(w, r, res, err, "load-more")
}

// ToggleShortlist adds or removes the clicked card.
func (h *PickerUIHandler) ToggleShortlist(w http.ResponseWriter, r *http.Request) {
	id, ok := movieIDFromPath(w, r)
	if !ok {
		return
	}
	sess := h.Sessions.Resolve(w, r)
	res, err := h.App.Dispatch(r.Context(), sess, picker.ToggleShortlistCommand{MovieID: id})
	h.respondAction(w, r, res, err, fmt.Sprintf("movie-%d", id))
}

// RemoveShortlist removes an entry from the shortlist panel.
func (h *PickerUIHandler) RemoveShortlist(w http.ResponseWriter, r *http.Request) {
	id, ok := movieIDFromPath(w, r)
	if !ok {
		return
	}
	sess := h.Sessions.Resolve(w, r)
	res, err := h.App.Dispatch(r.Context(), sess, picker.RemoveShortlistCommand{MovieID: id})
	h.respondAction(w, r, res, err, "shortlist")
}

// SendFeedback accepts the feedback form. Messages are written to the log.
func (h *PickerUIHandler) SendFeedback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSONError(w, "invalid form", http.StatusBadRequest)
		return
	}
	fb := models.Feedback{
		Message: strings.TrimSpace(r.PostFormValue("message")),
		Email:   strings.TrimSpace(r.PostFormValue("email")),
	}
	sess := h.Sessions.Resolve(w, r)

	var err error
	if h.Feedback != nil {
		err = h.Feedback.Feedback(fb)
	}
	if err == nil {
		log.Printf("[feedback] session=%s email=%q message=%q", sess.ID, fb.Email, fb.Message)
	}

	if wantsJSON(r) {
		if err != nil {
			writeActionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": FeedbackThanks})
		return
	}

	sess.Lock()
	var verr *models.ValidationError
	switch {
	case err == nil:
		sess.Alert = FeedbackThanks
	case errors.As(err, &verr):
		sess.Alert = verr.Message
	default:
		sess.Alert = validation.FeedbackMessage
	}
	sess.Unlock()
	backToPicker(w, r, "")
}

type actionResponse struct {
	Added    int  `json:"added"`
	Selected bool `json:"selected"`
}

// respondAction answers JSON callers directly and redirects form posts back
// to the picker page, where the session banner reports any failure.
func (h *PickerUIHandler) respondAction(w http.ResponseWriter, r *http.Request, res picker.Result, err error, anchor string) {
	if !wantsJSON(r) {
		backToPicker(w, r, anchor)
		return
	}
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Added: res.Added, Selected: res.Selected})
}

func writeActionError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, verr)
	case errors.Is(err, shortlist.ErrFull):
		writeJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, picker.ErrEmptyShortlist):
		writeJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, picker.ErrUnknownMovie):
		writeJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, picker.ErrNoSearch):
		writeJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, picker.ErrStale):
		writeJSONError(w, err.Error(), http.StatusConflict)
	default:
		writeJSONError(w, picker.SearchFailedMessage, http.StatusBadGateway)
	}
}

func movieIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]
	if !providers.ValidMovieID(raw) {
		writeJSONError(w, "Invalid movie id", http.StatusBadRequest)
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeJSONError(w, "Invalid movie id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

type detailView struct {
	basePage
	Card     grid.Card
	Overview string
	Partial  bool
}

// MovieDetail renders the full card for "See more".
func (h *PickerUIHandler) MovieDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := movieIDFromPath(w, r)
	if !ok {
		return
	}
	sess := h.Sessions.Resolve(w, r)
	sess.Lock()
	movie, found := sess.Movie(id)
	selected := sess.Shortlist.Contains(id)
	sess.Unlock()
	if !found {
		http.NotFound(w, r)
		return
	}

	view := detailView{
		basePage: basePage{Title: movie.DisplayTitle(), ActivePage: "picker"},
		Card:     h.Cards.Card(movie, selected),
		Overview: movie.Overview,
		Partial:  r.URL.Query().Get("partial") == "1",
	}
	if view.Overview == "" {
		view.Overview = grid.NoDescription
	}
	if view.Partial {
		h.render(w, "detail", "detail", view)
		return
	}
	h.render(w, "detail", "base", view)
}

type infoView struct {
	basePage
	ID         int64
	MovieURL   string
	Link       string
	Groups     []providers.Group
	Available  bool
	RegionName string
	Partial    bool
}

// MovieInfo renders where to watch a movie. A failed lookup is remembered
// as "no providers" for the rest of the session.
func (h *PickerUIHandler) MovieInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := movieIDFromPath(w, r)
	if !ok {
		return
	}
	sess := h.Sessions.Resolve(w, r)

	sess.Lock()
	movie, known := sess.Movie(id)
	region, cached := sess.CachedProviders(id)
	sess.Unlock()

	if !cached {
		var err error
		region, err = h.Availability.Lookup(r.Context(), strconv.FormatInt(id, 10))
		if err != nil {
			log.Printf("[picker] providers for %d: %v", id, err)
			region = nil
		}
		sess.Lock()
		sess.RememberProviders(id, region)
		sess.Unlock()
	}

	title := "Movie"
	if known {
		if t := movie.DisplayTitle(); t != "" {
			title = t
		}
	}

	view := infoView{
		basePage:   basePage{Title: title, ActivePage: "picker"},
		ID:         id,
		MovieURL:   slug.MovieURL(h.WebsiteURL, id, title),
		Groups:     providers.BuildGroups(region, h.LogoURL),
		RegionName: h.regionName,
		Partial:    r.URL.Query().Get("partial") == "1",
	}
	view.Available = len(view.Groups) > 0
	if region != nil {
		view.Link = region.Link
	}

	if view.Partial {
		h.render(w, "info", "info", view)
		return
	}
	h.render(w, "info", "base", view)
}

type spinResponse struct {
	wheel.Spin
	Winner models.ShortlistEntry `json:"winner"`
}

// Spin plans a wheel spin over the shortlist and returns it as JSON.
func (h *PickerUIHandler) Spin(w http.ResponseWriter, r *http.Request) {
	sess := h.Sessions.Resolve(w, r)
	res, err := h.App.Dispatch(r.Context(), sess, picker.SpinCommand{})
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, spinResponse{Spin: *res.Spin, Winner: *res.Winner})
}

// WheelImage draws the wheel for the session's shortlist. ?highlight=k
// outlines the winning slice.
func (h *PickerUIHandler) WheelImage(w http.ResponseWriter, r *http.Request) {
	sess := h.Sessions.Resolve(w, r)
	sess.Lock()
	entries := sess.Shortlist.Entries()
	sess.Unlock()

	highlight := -1
	if v, err := strconv.Atoi(r.URL.Query().Get("highlight")); err == nil && v >= 0 && v < len(entries) {
		highlight = v
	}
	size := wheel.DefaultSize
	if v, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil && v >= 100 && v <= 1000 {
		size = v
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := wheel.EncodePNG(w, wheel.Slices(entries), wheel.RenderOptions{Size: size, Highlight: highlight}); err != nil {
		log.Printf("[picker] wheel render: %v", err)
	}
}

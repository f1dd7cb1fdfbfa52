package handlers

import (
	"net/http"

	"moviepicker/models"
	"moviepicker/services/picker"
	"moviepicker/services/sessions"
)

// ShortlistHandler exposes the session shortlist as JSON.
type ShortlistHandler struct {
	Sessions *sessions.Store
	App      pickerApp
}

func NewShortlistHandler(store *sessions.Store, app pickerApp) *ShortlistHandler {
	return &ShortlistHandler{Sessions: store, App: app}
}

type shortlistResponse struct {
	Selected *bool                   `json:"selected,omitempty"`
	Entries  []models.ShortlistEntry `json:"shortlist"`
	CanSpin  bool                    `json:"canSpin"`
}

func (h *ShortlistHandler) List(w http.ResponseWriter, r *http.Request) {
	sess := h.Sessions.Resolve(w, r)
	writeJSON(w, http.StatusOK, snapshot(sess, nil))
}

// Toggle adds the movie, or removes it when already shortlisted.
func (h *ShortlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := movieIDFromPath(w, r)
	if !ok {
		return
	}
	sess := h.Sessions.Resolve(w, r)
	res, err := h.App.Dispatch(r.Context(), sess, picker.ToggleShortlistCommand{MovieID: id})
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot(sess, &res.Selected))
}

func (h *ShortlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := movieIDFromPath(w, r)
	if !ok {
		return
	}
	sess := h.Sessions.Resolve(w, r)
	if _, err := h.App.Dispatch(r.Context(), sess, picker.RemoveShortlistCommand{MovieID: id}); err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot(sess, nil))
}

func snapshot(sess *sessions.Session, selected *bool) shortlistResponse {
	sess.Lock()
	defer sess.Unlock()
	return shortlistResponse{
		Selected: selected,
		Entries:  sess.Shortlist.Entries(),
		CanSpin:  sess.Shortlist.CanSpin(),
	}
}

package models

// MaxShortlistSize caps the number of movies a session can shortlist.
const MaxShortlistSize = 10

// ShortlistEntry is a snapshot of a movie taken when it was shortlisted.
// Later changes to the source record are not reflected here.
type ShortlistEntry struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	PosterPath  string `json:"posterPath"`
	ReleaseYear string `json:"release_year"`
}

package shortlist

import "moviepicker/models"

// EntryFor snapshots a movie into a shortlist entry. posterURL builds the
// absolute poster address for the movie's poster path.
func EntryFor(movie models.Movie, posterURL func(string) string) models.ShortlistEntry {
	title := movie.OriginalTitle
	if title == "" {
		title = movie.Title
	}
	entry := models.ShortlistEntry{
		ID:          movie.ID,
		Title:       title,
		ReleaseYear: movie.ReleaseYear(),
	}
	if posterURL != nil {
		entry.PosterPath = posterURL(movie.PosterPath)
	}
	return entry
}

package models

import "strings"

// Movie is a single discover result as returned by the catalog.
type Movie struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title"`
	ReleaseDate      string  `json:"release_date,omitempty"`
	PosterPath       string  `json:"poster_path"`
	Overview         string  `json:"overview"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	GenreIDs         []int   `json:"genre_ids,omitempty"`
	OriginalLanguage string  `json:"original_language,omitempty"`
	Popularity       float64 `json:"popularity,omitempty"`
}

// ReleaseYear returns the year portion of the release date or "N/A".
func (m Movie) ReleaseYear() string {
	date := strings.TrimSpace(m.ReleaseDate)
	if date == "" {
		return "N/A"
	}
	year, _, _ := strings.Cut(date, "-")
	return year
}

// DisplayTitle prefers the localized title and falls back to the original one.
func (m Movie) DisplayTitle() string {
	if t := strings.TrimSpace(m.Title); t != "" {
		return t
	}
	return strings.TrimSpace(m.OriginalTitle)
}

// DiscoverPage mirrors one page of /discover/movie.
type DiscoverPage struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// Genre is a catalog movie genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// GenreList is the /genre/movie/list payload.
type GenreList struct {
	Genres []Genre `json:"genres"`
}

// Language is an entry of /configuration/languages.
type Language struct {
	ISO6391     string `json:"iso_639_1"`
	EnglishName string `json:"english_name"`
	Name        string `json:"name"`
}

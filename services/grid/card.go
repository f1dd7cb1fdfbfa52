// Package grid turns discover results into the cards shown on the picker
// page and tracks what the grid currently shows.
package grid

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"moviepicker/models"
)

const (
	FallbackPoster = "/pictures/movie_image_fallback_small_1.png"
	NoDescription  = "No description available."

	// OverviewWords is how many words a card shows before "See more".
	OverviewWords = 30
)

// Card is the view model for one movie tile.
type Card struct {
	ID        int64
	Title     string
	Year      string
	PosterURL string
	HasPoster bool
	Overview  string
	Truncated bool
	Rating    string
	Selected  bool
}

// Builder renders movies as cards. PosterURL maps a catalog poster path to a
// browser usable URL.
type Builder struct {
	PosterURL func(posterPath string) string
	printer   *message.Printer
}

func NewBuilder(posterURL func(string) string) *Builder {
	return &Builder{
		PosterURL: posterURL,
		printer:   message.NewPrinter(language.BritishEnglish),
	}
}

// Card builds a single card. selected reports the shortlist membership.
func (b *Builder) Card(m models.Movie, selected bool) Card {
	c := Card{
		ID:        m.ID,
		Title:     m.Title,
		Year:      m.ReleaseYear(),
		PosterURL: FallbackPoster,
		Rating:    b.Rating(m),
		Selected:  selected,
	}
	if strings.TrimSpace(c.Title) == "" {
		c.Title = "Untitled"
	}
	if m.PosterPath != "" && b.PosterURL != nil {
		if u := b.PosterURL(m.PosterPath); u != "" {
			c.PosterURL = u
			c.HasPoster = true
		}
	}
	c.Overview, c.Truncated = TruncateWords(m.Overview, OverviewWords)
	return c
}

// Rating formats the score with one decimal and a grouped vote count.
func (b *Builder) Rating(m models.Movie) string {
	p := b.printer
	if p == nil {
		p = message.NewPrinter(language.BritishEnglish)
	}
	return p.Sprintf("⭐ %.1f (%d votes)", m.VoteAverage, m.VoteCount)
}

// TruncateWords keeps the first maxWords words of text, splitting on single
// spaces. An empty text yields NoDescription.
func TruncateWords(text string, maxWords int) (string, bool) {
	if text == "" {
		return NoDescription, false
	}
	words := strings.Split(text, " ")
	if len(words) <= maxWords {
		return text, false
	}
	return strings.Join(words[:maxWords], " ") + "...", true
}

package grid

import "moviepicker/models"

// Phase is where the grid is in its lifecycle.
type Phase int

const (
	PhaseEmpty Phase = iota
	PhasePopulated
	PhaseAppended
)

func (p Phase) String() string {
	switch p {
	case PhasePopulated:
		return "populated"
	case PhaseAppended:
		return "appended"
	default:
		return "empty"
	}
}

// State is the ordered set of movies on screen. Batches are deduped
// internally only; a load-more batch may repeat a movie already shown.
type State struct {
	Phase       Phase
	Movies      []models.Movie
	CanLoadMore bool
}

// Reset starts a new search with the given batch.
func (s *State) Reset(batch []models.Movie) {
	s.Movies = DedupeBatch(batch)
	if len(s.Movies) == 0 {
		s.Phase = PhaseEmpty
		s.CanLoadMore = false
		return
	}
	s.Phase = PhasePopulated
	s.CanLoadMore = true
}

// Append adds a load-more batch. An empty batch disables load-more.
func (s *State) Append(batch []models.Movie) {
	batch = DedupeBatch(batch)
	if len(batch) == 0 {
		s.CanLoadMore = false
		return
	}
	s.Movies = append(s.Movies, batch...)
	s.Phase = PhaseAppended
}

// DisableLoadMore hides the load-more control after a failure.
func (s *State) DisableLoadMore() {
	s.CanLoadMore = false
}

// Clear returns the grid to empty.
func (s *State) Clear() {
	*s = State{}
}

// DedupeBatch drops repeated ids within one batch, keeping first occurrence.
func DedupeBatch(batch []models.Movie) []models.Movie {
	seen := make(map[int64]struct{}, len(batch))
	out := make([]models.Movie, 0, len(batch))
	for _, m := range batch {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}

// Cards renders every movie in the grid, marking shortlisted ones.
func (s *State) Cards(b *Builder, selected func(id int64) bool) []Card {
	cards := make([]Card, 0, len(s.Movies))
	for _, m := range s.Movies {
		cards = append(cards, b.Card(m, selected != nil && selected(m.ID)))
	}
	return cards
}

// Package wheel lays out the shortlist on a spinning wheel, plans spins and
// resolves which slice ends up under the pointer.
//
// Angles are radians measured clockwise from the pointer at the top of the
// wheel. Slice k covers [k*w, (k+1)*w) where w = 2*pi/n.
package wheel

import (
	"errors"
	"math"

	"moviepicker/models"
)

const (
	fullTurn = 2 * math.Pi

	// MaxLabelRunes is how much of a title fits on a slice.
	MaxLabelRunes = 15
)

var ErrNoSlices = errors.New("wheel needs at least one movie")

// Slice is one movie's arc on the wheel.
type Slice struct {
	Index int
	ID    int64
	Title string
	Label string
	Start float64
	End   float64
	Hue   float64
}

// Mid returns the angle halfway through the slice.
func (s Slice) Mid() float64 {
	return (s.Start + s.End) / 2
}

// Width returns the arc width for n slices.
func Width(n int) float64 {
	if n <= 0 {
		return 0
	}
	return fullTurn / float64(n)
}

// Slices lays entries out in shortlist order with equal arcs.
func Slices(entries []models.ShortlistEntry) []Slice {
	n := len(entries)
	w := Width(n)
	out := make([]Slice, 0, n)
	for k, e := range entries {
		out = append(out, Slice{
			Index: k,
			ID:    e.ID,
			Title: e.Title,
			Label: Label(e.Title),
			Start: float64(k) * w,
			End:   float64(k+1) * w,
			Hue:   float64(k) * 360 / float64(n),
		})
	}
	return out
}

// Label shortens a title to MaxLabelRunes runes plus an ellipsis.
func Label(title string) string {
	r := []rune(title)
	if len(r) <= MaxLabelRunes {
		return title
	}
	return string(r[:MaxLabelRunes]) + "…"
}

// Normalize maps any angle into [0, 2*pi).
func Normalize(angle float64) float64 {
	a := math.Mod(angle, fullTurn)
	if a < 0 {
		a += fullTurn
	}
	if a >= fullTurn {
		a = 0
	}
	return a
}

// SliceAt returns the slice covering the given wheel offset.
func SliceAt(offset float64, n int) int {
	if n <= 0 {
		return -1
	}
	idx := int(math.Floor(Normalize(offset) / Width(n)))
	return min(max(idx, 0), n-1)
}

// WinnerIndex returns the slice under the pointer once the wheel has turned
// clockwise by rotation. A clockwise turn brings offset -rotation under the
// pointer.
func WinnerIndex(rotation float64, n int) int {
	return SliceAt(fullTurn-Normalize(rotation), n)
}

package models

import (
	"sort"
	"strings"
)

// FilterCriteria is the set of filters for one search, reused by load-more.
type FilterCriteria struct {
	Genres   []string `json:"genres" validate:"min=1,max=3,unique,dive,required,numeric"`
	Year     string   `json:"year,omitempty" validate:"omitempty,len=4,numeric,releaseyear"`
	Language string   `json:"language,omitempty" validate:"omitempty,isolang"`
	Quantity int      `json:"quantity" validate:"min=1,max=20"`
}

// GenreParam joins the selected genres with "|" which the catalog treats as OR.
func (f FilterCriteria) GenreParam() string {
	return strings.Join(f.Genres, "|")
}

// ValidationError carries per-field messages for rejected input.
type ValidationError struct {
	Message string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return e.Message + ": " + strings.Join(parts, ", ")
}

// Package validation checks user supplied filters with validator/v10 and
// converts failures into models.ValidationError.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"

	"moviepicker/models"
)

const (
	// MissingFiltersMessage is shown when genre or quantity is absent.
	MissingFiltersMessage = "Please select both a Genre and a Number of movies 🙂"
	InvalidFiltersMessage = "Some filters are invalid."
	// FeedbackMessage is shown when the feedback form is rejected.
	FeedbackMessage = "Please write a message (and a valid email, if you leave one)."

	// firstReleaseYear is the earliest year the catalog lists films for.
	firstReleaseYear = 1874
)

// Validator wraps go-playground/validator with the picker's custom tags.
type Validator struct {
	v   *validator.Validate
	now func() time.Time
}

// New creates a validator. The clock bounds the accepted release years.
func New(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	out := &Validator{v: v, now: now}
	_ = v.RegisterValidation("releaseyear", out.releaseYear)
	_ = v.RegisterValidation("isolang", isoLanguage)
	return out
}

// Filters validates search criteria.
func (v *Validator) Filters(criteria models.FilterCriteria) error {
	if err := v.v.Struct(criteria); err != nil {
		return formatError(err)
	}
	return nil
}

// Feedback validates a feedback form submission. Surrounding whitespace is
// ignored.
func (v *Validator) Feedback(f models.Feedback) error {
	f.Message = strings.TrimSpace(f.Message)
	f.Email = strings.TrimSpace(f.Email)
	if err := v.v.Struct(f); err != nil {
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			return err
		}
		fields := make(map[string]string, len(validationErrs))
		for _, e := range validationErrs {
			fields[e.Field()] = friendlyMessage(e.Field(), e)
		}
		return &models.ValidationError{Message: FeedbackMessage, Fields: fields}
	}
	return nil
}

func (v *Validator) releaseYear(fl validator.FieldLevel) bool {
	year, err := strconv.Atoi(fl.Field().String())
	if err != nil {
		return false
	}
	return year >= firstReleaseYear && year <= v.now().Year()+5
}

// isoLanguage accepts lower-case ISO 639-1 codes, plus "xx" which the catalog
// uses for films without spoken language.
func isoLanguage(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	if code == "xx" {
		return true
	}
	if len(code) != 2 {
		return false
	}
	base, err := language.ParseBase(code)
	return err == nil && base.String() == code
}

func formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fields := make(map[string]string, len(validationErrs))
	missing := false
	for _, e := range validationErrs {
		// "genres[1]" reports against the list itself
		name, _, _ := strings.Cut(e.Field(), "[")
		if _, exists := fields[name]; !exists {
			fields[name] = friendlyMessage(name, e)
		}
		if (name == "genres" || name == "quantity") && isMissing(e) {
			missing = true
		}
	}

	msg := InvalidFiltersMessage
	if missing {
		msg = MissingFiltersMessage
	}
	return &models.ValidationError{Message: msg, Fields: fields}
}

func isMissing(e validator.FieldError) bool {
	switch e.Tag() {
	case "required":
		return true
	case "min":
		return e.Param() == "1"
	}
	return false
}

func friendlyMessage(field string, e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		if field == "genres" {
			return "must include at least " + e.Param() + " genre"
		}
		return "must be at least " + e.Param()
	case "max":
		if field == "genres" {
			return "must include at most " + e.Param() + " genres"
		}
		return "must not exceed " + e.Param()
	case "unique":
		return "must not repeat"
	case "numeric":
		return "must be numeric"
	case "len":
		return fmt.Sprintf("must be exactly %s digits", e.Param())
	case "releaseyear":
		return fmt.Sprintf("must be a year from %d onwards", firstReleaseYear)
	case "isolang":
		return "must be an ISO 639-1 language code"
	case "email":
		return "must be an email address"
	default:
		return "is invalid"
	}
}

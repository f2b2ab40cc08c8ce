// Package validation holds the field-shape rules applied to movies before
// the store accepts them.
package validation

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"git.cscs.ch/openchami/chamicore-movies/internal/model"
)

// Field names as they appear in client-facing error payloads.
const (
	FieldID            = "id"
	FieldTitle         = "title"
	FieldSlug          = "slug"
	FieldYearOfRelease = "yearOfRelease"
	FieldGenres        = "genres"
)

// earliestYearOfRelease is the year of the oldest surviving motion picture.
const earliestYearOfRelease = 1888

// Violation is a single field-level validation failure.
type Violation struct {
	Field   string
	Message string
}

// Violations is an ordered list of failures. An empty list means valid.
type Violations []Violation

// Valid reports whether no violation was recorded.
func (v Violations) Valid() bool {
	return len(v) == 0
}

// Has reports whether a violation was recorded for field.
func (v Violations) Has(field string) bool {
	for _, violation := range v {
		if violation.Field == field {
			return true
		}
	}
	return false
}

// Add appends a violation for field.
func (v *Violations) Add(field, message string) {
	*v = append(*v, Violation{Field: field, Message: message})
}

// Validator checks the shape of a movie. Implementations must not mutate
// the movie or any shared state.
type Validator interface {
	Validate(m model.Movie) Violations
}

// ValidatorFunc adapts a plain function to the Validator interface.
type ValidatorFunc func(m model.Movie) Violations

// Validate calls f(m).
func (f ValidatorFunc) Validate(m model.Movie) Violations {
	return f(m)
}

// MovieValidator enforces the default field rules for movies.
type MovieValidator struct {
	now func() time.Time
}

// Option configures a MovieValidator.
type Option func(*MovieValidator)

// WithClock overrides the clock used to bound the release year.
func WithClock(now func() time.Time) Option {
	return func(v *MovieValidator) {
		v.now = now
	}
}

// NewMovieValidator returns the default movie validator.
func NewMovieValidator(opts ...Option) *MovieValidator {
	v := &MovieValidator{now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate returns the violations for m in field order.
func (v *MovieValidator) Validate(m model.Movie) Violations {
	var errs Violations

	if m.ID == uuid.Nil {
		errs.Add(FieldID, "id is required and must not be the zero UUID")
	}

	if strings.TrimSpace(m.Title) == "" {
		errs.Add(FieldTitle, "title is required and must not be blank")
	}

	if strings.TrimSpace(m.Slug) == "" {
		errs.Add(FieldSlug, "slug is required and must not be blank")
	}

	currentYear := v.now().UTC().Year()
	if m.YearOfRelease < earliestYearOfRelease || m.YearOfRelease > currentYear {
		errs.Add(FieldYearOfRelease, "yearOfRelease must be between 1888 and the current year")
	}

	if len(m.Genres) == 0 {
		errs.Add(FieldGenres, "at least one genre is required")
	} else {
		for _, genre := range m.Genres {
			if strings.TrimSpace(genre) == "" {
				errs.Add(FieldGenres, "genres must not contain blank entries")
				break
			}
		}
	}

	return errs
}

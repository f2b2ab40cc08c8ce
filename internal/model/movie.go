// Package model contains internal domain models for the movies service.
package model

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var slugDisallowed = regexp.MustCompile(`[^0-9a-z _-]`)

// Movie is the record held by the store. ID and Slug are the two lookup
// keys; the remaining fields are payload the store does not interpret.
type Movie struct {
	ID            uuid.UUID
	Title         string
	Slug          string
	YearOfRelease int
	Genres        []string
}

// Clone returns a copy of m that shares no backing arrays with it.
func (m Movie) Clone() Movie {
	m.Genres = slices.Clone(m.Genres)
	return m
}

// Slugify derives the canonical slug for a title and release year,
// e.g. ("Dune", 1984) -> "dune-1984".
func Slugify(title string, yearOfRelease int) string {
	base := slugDisallowed.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), "")
	base = strings.ReplaceAll(base, " ", "-")
	return base + "-" + strconv.Itoa(yearOfRelease)
}

// Package seed loads a YAML movie catalogue into the store at startup.
package seed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"git.cscs.ch/openchami/chamicore-movies/internal/model"
	"git.cscs.ch/openchami/chamicore-movies/internal/store"
	"git.cscs.ch/openchami/chamicore-movies/internal/validation"
)

// Entry is one catalogue record. A missing slug is derived from title and
// year; a missing id gets a fresh random UUID.
type Entry struct {
	ID            string   `yaml:"id"`
	Title         string   `yaml:"title"`
	Slug          string   `yaml:"slug"`
	YearOfRelease int      `yaml:"yearOfRelease"`
	Genres        []string `yaml:"genres"`
}

// Movie converts e to a model.Movie.
func (e Entry) Movie() (model.Movie, error) {
	id := uuid.New()
	if raw := strings.TrimSpace(e.ID); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return model.Movie{}, fmt.Errorf("parsing id %q: %w", raw, err)
		}
		id = parsed
	}

	slug := strings.TrimSpace(e.Slug)
	if slug == "" {
		slug = model.Slugify(e.Title, e.YearOfRelease)
	}

	return model.Movie{
		ID:            id,
		Title:         e.Title,
		Slug:          slug,
		YearOfRelease: e.YearOfRelease,
		Genres:        e.Genres,
	}, nil
}

// EntryError reports the catalogue entry that stopped the load.
type EntryError struct {
	Index      int
	Title      string
	Violations validation.Violations
	Err        error
}

func (e *EntryError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "seed entry %d (%q)", e.Index, e.Title)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	for _, v := range e.Violations {
		fmt.Fprintf(&b, "; %s: %s", v.Field, v.Message)
	}
	return b.String()
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// Parse decodes a catalogue. Unknown keys are rejected.
func Parse(r io.Reader) ([]Entry, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var entries []Entry
	if err := dec.Decode(&entries); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding seed catalogue: %w", err)
	}
	return entries, nil
}

// ParseFile reads and decodes the catalogue at path.
func ParseFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Apply creates every entry through st, in order. The first rejected entry
// aborts the load with an *EntryError; entries before it stay stored.
func Apply(st store.Store, entries []Entry, logger zerolog.Logger) (int, error) {
	for i, entry := range entries {
		m, err := entry.Movie()
		if err != nil {
			return i, &EntryError{Index: i, Title: entry.Title, Err: err}
		}

		res := st.Create(m)
		if res.Outcome != store.OutcomeSucceeded {
			return i, &EntryError{Index: i, Title: entry.Title, Violations: res.Violations}
		}
		logger.Debug().Str("id", m.ID.String()).Str("slug", m.Slug).Msg("seeded movie")
	}
	return len(entries), nil
}

// LoadFile parses path and applies it to st.
func LoadFile(st store.Store, path string, logger zerolog.Logger) (int, error) {
	logger = logger.With().Str("component", "seed").Str("path", path).Logger()

	entries, err := ParseFile(path)
	if err != nil {
		return 0, err
	}
	n, err := Apply(st, entries, logger)
	if err != nil {
		return n, err
	}
	logger.Info().Int("movies", n).Msg("seed catalogue loaded")
	return n, nil
}

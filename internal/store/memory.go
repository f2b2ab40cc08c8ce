package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"git.cscs.ch/openchami/chamicore-movies/internal/model"
	"git.cscs.ch/openchami/chamicore-movies/internal/validation"
)

const (
	msgSlugExists = "this movie already exists in the system"
	msgSlugInUse  = "slug is already used by another movie"
	msgIDRequired = "id is required and must not be the zero UUID"
)

// Observer receives store instrumentation callbacks. OnSize is invoked with
// the store lock held and must not call back into the store.
type Observer interface {
	OnOperation(op Op, outcome Outcome, d time.Duration)
	OnSize(records int)
}

type noopObserver struct{}

func (noopObserver) OnOperation(Op, Outcome, time.Duration) {}
func (noopObserver) OnSize(int)                             {}

// MemoryStore implements Store with two maps guarded by a single RWMutex.
// Writers hold the lock across both index mutations, so readers never see
// a slug without its movie or a movie without its slug.
type MemoryStore struct {
	mu     sync.RWMutex
	movies map[uuid.UUID]model.Movie
	slugs  map[string]uuid.UUID

	validator validation.Validator
	observer  Observer
	logger    zerolog.Logger
}

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithObserver installs an instrumentation observer.
func WithObserver(o Observer) Option {
	return func(s *MemoryStore) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLogger sets the logger used for per-operation debug entries.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *MemoryStore) {
		s.logger = logger.With().Str("component", "store").Logger()
	}
}

// NewMemoryStore creates an empty store gated by v.
func NewMemoryStore(v validation.Validator, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		movies:    make(map[uuid.UUID]model.Movie),
		slugs:     make(map[string]uuid.UUID),
		validator: v,
		observer:  noopObserver{},
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create runs the validation gate, then inserts m into both indexes.
// On top of the validator's own rules, the zero UUID is rejected on the id
// field and a slug already present in the secondary index is rejected on
// the slug field.
func (s *MemoryStore) Create(m model.Movie) CreateResult {
	start := time.Now()
	m = m.Clone()

	errs := s.validator.Validate(m)
	if m.ID == uuid.Nil && !errs.Has(validation.FieldID) {
		errs.Add(validation.FieldID, msgIDRequired)
	}

	s.mu.Lock()
	if _, taken := s.slugs[m.Slug]; taken {
		errs.Add(validation.FieldSlug, msgSlugExists)
	}
	if !errs.Valid() {
		s.mu.Unlock()
		s.finish(OpCreate, OutcomeValidationFailed, start, m.ID, m.Slug)
		return CreateResult{Outcome: OutcomeValidationFailed, Violations: errs}
	}

	if prior, exists := s.movies[m.ID]; exists {
		delete(s.slugs, prior.Slug)
	}
	s.slugs[m.Slug] = m.ID
	s.movies[m.ID] = m
	s.observer.OnSize(len(s.movies))
	s.mu.Unlock()

	s.finish(OpCreate, OutcomeSucceeded, start, m.ID, m.Slug)
	return CreateResult{Outcome: OutcomeSucceeded}
}

// GetByID looks id up in the primary index. The zero UUID never matches.
func (s *MemoryStore) GetByID(id uuid.UUID) LookupResult {
	start := time.Now()
	if id == uuid.Nil {
		s.finish(OpGetByID, OutcomeNotFound, start, id, "")
		return LookupResult{Outcome: OutcomeNotFound}
	}

	s.mu.RLock()
	m, ok := s.movies[id]
	s.mu.RUnlock()

	if !ok {
		s.finish(OpGetByID, OutcomeNotFound, start, id, "")
		return LookupResult{Outcome: OutcomeNotFound}
	}
	s.finish(OpGetByID, OutcomeSucceeded, start, id, m.Slug)
	return LookupResult{Outcome: OutcomeSucceeded, Movie: m.Clone()}
}

// GetBySlug resolves slug through the secondary index. An empty slug is
// never a valid key and a dangling index entry reads as not found.
func (s *MemoryStore) GetBySlug(slug string) LookupResult {
	start := time.Now()
	if slug == "" {
		s.finish(OpGetBySlug, OutcomeNotFound, start, uuid.Nil, slug)
		return LookupResult{Outcome: OutcomeNotFound}
	}

	s.mu.RLock()
	id, ok := s.slugs[slug]
	var m model.Movie
	if ok {
		m, ok = s.movies[id]
	}
	s.mu.RUnlock()

	if !ok || m.Slug != slug {
		if id != uuid.Nil {
			s.logger.Warn().Str("slug", slug).Str("id", id.String()).Msg("slug index entry does not resolve to a movie")
		}
		s.finish(OpGetBySlug, OutcomeNotFound, start, id, slug)
		return LookupResult{Outcome: OutcomeNotFound}
	}
	s.finish(OpGetBySlug, OutcomeSucceeded, start, id, slug)
	return LookupResult{Outcome: OutcomeSucceeded, Movie: m.Clone()}
}

// GetAll returns copies of every stored movie.
func (s *MemoryStore) GetAll() []model.Movie {
	start := time.Now()

	s.mu.RLock()
	out := make([]model.Movie, 0, len(s.movies))
	for _, m := range s.movies {
		out = append(out, m.Clone())
	}
	s.mu.RUnlock()

	s.finish(OpGetAll, OutcomeSucceeded, start, uuid.Nil, "")
	return out
}

// Update validates m, then moves the stored movie to m.Slug and replaces
// its body. The shape validator runs before the existence check, so an
// invalid update of a missing movie reports the violations. The zero UUID
// is never stored and always reads as not found.
func (s *MemoryStore) Update(m model.Movie) UpdateResult {
	start := time.Now()
	m = m.Clone()

	if errs := s.validator.Validate(m); !errs.Valid() {
		s.finish(OpUpdate, OutcomeValidationFailed, start, m.ID, m.Slug)
		return UpdateResult{Outcome: OutcomeValidationFailed, Violations: errs}
	}
	if m.ID == uuid.Nil {
		s.finish(OpUpdate, OutcomeNotFound, start, m.ID, m.Slug)
		return UpdateResult{Outcome: OutcomeNotFound}
	}

	s.mu.Lock()
	current, ok := s.movies[m.ID]
	if !ok {
		s.mu.Unlock()
		s.finish(OpUpdate, OutcomeNotFound, start, m.ID, m.Slug)
		return UpdateResult{Outcome: OutcomeNotFound}
	}

	if owner, taken := s.slugs[m.Slug]; taken && owner != m.ID {
		s.mu.Unlock()
		var errs validation.Violations
		errs.Add(validation.FieldSlug, msgSlugInUse)
		s.finish(OpUpdate, OutcomeValidationFailed, start, m.ID, m.Slug)
		return UpdateResult{Outcome: OutcomeValidationFailed, Violations: errs}
	}

	delete(s.slugs, current.Slug)
	s.slugs[m.Slug] = m.ID
	s.movies[m.ID] = m
	s.mu.Unlock()

	s.finish(OpUpdate, OutcomeSucceeded, start, m.ID, m.Slug)
	return UpdateResult{Outcome: OutcomeSucceeded, Movie: m.Clone()}
}

// DeleteByID removes the movie stored under id from both indexes and
// returns the removed movie.
func (s *MemoryStore) DeleteByID(id uuid.UUID) DeleteResult {
	start := time.Now()
	if id == uuid.Nil {
		s.finish(OpDelete, OutcomeNotFound, start, id, "")
		return DeleteResult{Outcome: OutcomeNotFound}
	}

	s.mu.Lock()
	current, ok := s.movies[id]
	if !ok {
		s.mu.Unlock()
		s.finish(OpDelete, OutcomeNotFound, start, id, "")
		return DeleteResult{Outcome: OutcomeNotFound}
	}

	delete(s.movies, id)
	if owner, indexed := s.slugs[current.Slug]; indexed && owner == id {
		delete(s.slugs, current.Slug)
	}
	s.observer.OnSize(len(s.movies))
	s.mu.Unlock()

	s.finish(OpDelete, OutcomeSucceeded, start, id, current.Slug)
	return DeleteResult{Outcome: OutcomeSucceeded, Movie: current}
}

// Len returns the number of stored movies.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.movies)
}

func (s *MemoryStore) finish(op Op, outcome Outcome, start time.Time, id uuid.UUID, slug string) {
	elapsed := time.Since(start)
	s.observer.OnOperation(op, outcome, elapsed)

	entry := s.logger.Debug().Str("op", string(op)).Str("outcome", outcome.String())
	if id != uuid.Nil {
		entry = entry.Str("id", id.String())
	}
	if slug != "" {
		entry = entry.Str("slug", slug)
	}
	entry.Dur("elapsed", elapsed).Msg("store operation")
}

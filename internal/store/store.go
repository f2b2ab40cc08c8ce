// Package store holds the in-memory movie store.
//
// The store keeps two indexes: a primary index from movie ID to movie, and a
// secondary index from slug to movie ID. Every operation reports a typed
// result; expected failures (validation, missing records) are never errors.
package store

import (
	"fmt"

	"github.com/google/uuid"

	"git.cscs.ch/openchami/chamicore-movies/internal/model"
	"git.cscs.ch/openchami/chamicore-movies/internal/validation"
)

// Outcome identifies which variant of an operation result was produced.
type Outcome uint8

const (
	// OutcomeSucceeded means the operation was applied, or the lookup found
	// a record.
	OutcomeSucceeded Outcome = iota + 1
	// OutcomeNotFound means no record matched the given key.
	OutcomeNotFound
	// OutcomeValidationFailed means the candidate was rejected before any
	// mutation.
	OutcomeValidationFailed
)

// String returns the label used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeValidationFailed:
		return "validation_failed"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(o))
	}
}

// Op names a store operation.
type Op string

// Store operations.
const (
	OpCreate    Op = "create"
	OpGetByID   Op = "get_by_id"
	OpGetBySlug Op = "get_by_slug"
	OpGetAll    Op = "get_all"
	OpUpdate    Op = "update"
	OpDelete    Op = "delete"
)

// CreateResult is the result of Create: OutcomeSucceeded or
// OutcomeValidationFailed with Violations set.
type CreateResult struct {
	Outcome    Outcome
	Violations validation.Violations
}

// LookupResult is the result of GetByID and GetBySlug: OutcomeSucceeded with
// Movie set, or OutcomeNotFound.
type LookupResult struct {
	Outcome Outcome
	Movie   model.Movie
}

// UpdateResult is the result of Update: OutcomeSucceeded with Movie set,
// OutcomeNotFound, or OutcomeValidationFailed with Violations set.
type UpdateResult struct {
	Outcome    Outcome
	Movie      model.Movie
	Violations validation.Violations
}

// DeleteResult is the result of DeleteByID: OutcomeSucceeded with the
// removed movie, or OutcomeNotFound.
type DeleteResult struct {
	Outcome Outcome
	Movie   model.Movie
}

// Store defines the movie store operations used by the request layer.
// Implementations must be safe for concurrent use.
type Store interface {
	// Create validates and inserts m. A movie already stored under m.ID is
	// replaced.
	Create(m model.Movie) CreateResult

	// GetByID returns the movie stored under id.
	GetByID(id uuid.UUID) LookupResult

	// GetBySlug returns the movie currently holding slug.
	GetBySlug(slug string) LookupResult

	// GetAll returns a point-in-time snapshot of every stored movie in no
	// particular order.
	GetAll() []model.Movie

	// Update validates m and replaces the movie stored under m.ID, moving
	// it to m.Slug.
	Update(m model.Movie) UpdateResult

	// DeleteByID removes the movie stored under id.
	DeleteByID(id uuid.UUID) DeleteResult

	// Len returns the number of stored movies.
	Len() int
}

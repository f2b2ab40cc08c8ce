// Package types defines the wire format of the movies API. These types are
// shared by the server, the client SDK and integration tests, and must stay
// backward-compatible across minor versions.
//
// Conventions:
//   - Every response wraps its payload in the resource envelope (kind,
//     apiVersion, metadata, spec).
//   - JSON tags use camelCase.
//   - Validation is not performed here; the server validates inputs.
package types

// Resource kinds and API version.
const (
	MovieKind     = "Movie"
	MovieListKind = "MovieList"
	APIVersion    = "movies/v1"
)

// Resource is the standard envelope for a single API resource.
type Resource[T any] struct {
	// Kind identifies the resource type (e.g., "Movie").
	Kind string `json:"kind"`

	// APIVersion identifies the API version (e.g., "movies/v1").
	APIVersion string `json:"apiVersion"`

	// Metadata contains resource identity.
	Metadata ResourceMetadata `json:"metadata"`

	// Spec contains the resource-specific payload.
	Spec T `json:"spec"`
}

// ResourceMetadata carries identity fields common to all resources.
type ResourceMetadata struct {
	// ID is the unique resource identifier (UUID).
	ID string `json:"id"`
}

// ResourceList is the standard envelope for a collection of API resources.
type ResourceList[T any] struct {
	Kind       string       `json:"kind"`
	APIVersion string       `json:"apiVersion"`
	Metadata   ListMetadata `json:"metadata"`
	Items      []T          `json:"items"`
}

// ListMetadata carries collection information for list responses.
type ListMetadata struct {
	// TotalCount is the number of items in the collection.
	TotalCount int `json:"totalCount"`
}

// Movie is the public representation of a movie. It appears in the "spec"
// field of the resource envelope.
type Movie struct {
	// Title is the display title.
	Title string `json:"title"`

	// Slug is the human-readable key derived from title and release year.
	Slug string `json:"slug"`

	// YearOfRelease is the four-digit release year.
	YearOfRelease int `json:"yearOfRelease"`

	// Genres lists the genres, in the order supplied.
	Genres []string `json:"genres"`
}

// CreateMovieRequest is the request body for creating a movie. The server
// assigns the ID and derives the slug.
type CreateMovieRequest struct {
	Title         string   `json:"title"`
	YearOfRelease int      `json:"yearOfRelease"`
	Genres        []string `json:"genres"`
}

// UpdateMovieRequest is the request body for a full replacement (PUT). The
// slug is re-derived from title and year.
type UpdateMovieRequest struct {
	Title         string   `json:"title"`
	YearOfRelease int      `json:"yearOfRelease"`
	Genres        []string `json:"genres"`
}

// ProblemDetail represents an RFC 9457 Problem Details response.
type ProblemDetail struct {
	// Type is a URI reference identifying the problem type.
	// Default: "about:blank"
	Type string `json:"type"`

	// Title is a short, human-readable summary.
	Title string `json:"title"`

	// Status is the HTTP status code.
	Status int `json:"status"`

	// Detail is a human-readable explanation specific to this occurrence.
	Detail string `json:"detail,omitempty"`

	// Instance is a URI reference identifying the specific occurrence.
	Instance string `json:"instance,omitempty"`

	// Errors is an optional list of field-level validation errors.
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a single field-level validation failure.
type ValidationError struct {
	// Field is the JSON field name (e.g., "title").
	Field string `json:"field"`

	// Message describes what is wrong with the field value.
	Message string `json:"message"`
}
